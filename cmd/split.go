package cmd

import (
	"midislicer/split"

	"github.com/spf13/cobra"
)

var (
	gridBars  int
	gridTicks int64

	channelCopyOther bool

	notesIgnoreChannel bool
	notesCopyOther     bool
)

func init() {
	registerSliceFlags(splitGridCmd)
	splitGridCmd.Flags().IntVar(&gridBars, "bars", 1, "grid step in bars")
	splitGridCmd.Flags().Int64Var(&gridTicks, "ticks", 0, "grid step in ticks, overrides --bars")
	rootCmd.AddCommand(splitGridCmd)

	splitChannelsCmd.Flags().BoolVar(&channelCopyOther, "copy-other", false, "copy non-channel events into every output")
	rootCmd.AddCommand(splitChannelsCmd)

	splitNotesCmd.Flags().BoolVar(&notesIgnoreChannel, "ignore-channel", false, "bucket by pitch alone")
	splitNotesCmd.Flags().BoolVar(&notesCopyOther, "copy-other", false, "copy non-note events into every output")
	rootCmd.AddCommand(splitNotesCmd)

	rootCmd.AddCommand(splitTracksCmd)
}

var splitGridCmd = &cobra.Command{
	Use:   "split-grid <file>",
	Short: "Splits a file at grid boundaries",
	Long:  `Splits a file at grid boundaries`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		tl := loadTimelineOrPanic(args[0])
		parts, err := split.ByGrid(tl, stepGrid(gridBars, gridTicks), sliceSettings())
		cobra.CheckErr(err)
		writeParts(parts, args[0])
	},
}

var splitChannelsCmd = &cobra.Command{
	Use:   "split-channels <file>",
	Short: "Splits a file into one file per channel",
	Long:  `Splits a file into one file per channel`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		tl := loadTimelineOrPanic(args[0])
		parts, err := split.ByChannel(tl, split.ChannelSplitSettings{
			CopyNonChannelEventsToEachFile: channelCopyOther,
		})
		cobra.CheckErr(err)
		writeParts(parts, args[0])
	},
}

var splitNotesCmd = &cobra.Command{
	Use:   "split-notes <file>",
	Short: "Splits a file into one file per note identity",
	Long:  `Splits a file into one file per note identity`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		tl := loadTimelineOrPanic(args[0])
		parts, err := split.ByNotes(tl, split.NoteSplitSettings{
			IgnoreChannel:               notesIgnoreChannel,
			CopyNonNoteEventsToEachFile: notesCopyOther,
		})
		cobra.CheckErr(err)
		writeParts(parts, args[0])
	},
}

var splitTracksCmd = &cobra.Command{
	Use:   "split-tracks <file>",
	Short: "Splits a file into one file per track",
	Long:  `Splits a file into one file per track`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		tl := loadTimelineOrPanic(args[0])
		parts, err := split.ByTracks(tl, split.TrackSplitSettings{})
		cobra.CheckErr(err)
		writeParts(parts, args[0])
	},
}
