package constants

import "os"

func GetOutDir() string {
	path := os.Getenv("OUT_PATH")
	if path != "" {
		return path
	}
	return "./out"
}

// DefaultGridBars is the stepped-grid bar count commands fall back to
// when no step flag is given.
const DefaultGridBars = 1
