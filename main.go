package main

import "midislicer/cmd"

func main() {
	cmd.Execute()
}
