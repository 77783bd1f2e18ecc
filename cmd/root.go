package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "midislicer",
	Short: "Slices multi-track MIDI timelines",
	Long:  `Slices multi-track MIDI timelines into independent files by grid, channel, note identity or track, or cuts a part out of the middle.`,
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
