package cmd

import (
	"midislicer/split"
	"midislicer/tempomap"
	"midislicer/timeline"

	"github.com/spf13/cobra"
)

var (
	partStart  int64
	partLength int64
	partEnd    int64
)

func init() {
	registerSliceFlags(takeCmd)
	takeCmd.Flags().Int64Var(&partStart, "start", 0, "part start in ticks")
	takeCmd.Flags().Int64Var(&partLength, "length", 0, "part length in ticks")
	rootCmd.AddCommand(takeCmd)

	registerSliceFlags(skipCmd)
	skipCmd.Flags().Int64Var(&partLength, "length", 0, "head length to discard, in ticks")
	rootCmd.AddCommand(skipCmd)

	registerSliceFlags(cutCmd)
	cutCmd.Flags().Int64Var(&partStart, "start", 0, "removed range start in ticks")
	cutCmd.Flags().Int64Var(&partEnd, "end", 0, "removed range end in ticks, exclusive")
	rootCmd.AddCommand(cutCmd)
}

var takeCmd = &cobra.Command{
	Use:   "take <file>",
	Short: "Extracts a part of a file",
	Long:  `Extracts a part of a file`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		tl := loadTimelineOrPanic(args[0])
		var part *timeline.Timeline
		var err error
		if partStart > 0 {
			part, err = split.TakePartFrom(tl, tempomap.Ticks(partStart), tempomap.Ticks(partLength), sliceSettings())
		} else {
			part, err = split.TakePart(tl, tempomap.Ticks(partLength), sliceSettings())
		}
		cobra.CheckErr(err)
		writeParts([]*timeline.Timeline{part}, args[0])
	},
}

var skipCmd = &cobra.Command{
	Use:   "skip <file>",
	Short: "Discards the head of a file and keeps the rest",
	Long:  `Discards the head of a file and keeps the rest`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		tl := loadTimelineOrPanic(args[0])
		part, err := split.SkipPart(tl, tempomap.Ticks(partLength), sliceSettings())
		cobra.CheckErr(err)
		writeParts([]*timeline.Timeline{part}, args[0])
	},
}

var cutCmd = &cobra.Command{
	Use:   "cut <file>",
	Short: "Removes a range from the middle of a file and rejoins the rest",
	Long:  `Removes a range from the middle of a file and rejoins the rest`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		tl := loadTimelineOrPanic(args[0])
		part, err := split.CutPart(tl, tempomap.Ticks(partStart), tempomap.Ticks(partEnd), sliceSettings())
		cobra.CheckErr(err)
		writeParts([]*timeline.Timeline{part}, args[0])
	},
}
