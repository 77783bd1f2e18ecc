package cmd

import (
	"fmt"

	"midislicer/chord"
	"midislicer/note"

	"github.com/spf13/cobra"
)

var inspectMinCount int

func init() {
	inspectCmd.Flags().IntVar(&inspectMinCount, "min-count", 2, "smallest note cluster reported as a chord")
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Inspects a file",
	Long:  `Inspects a file`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		inspect(args[0])
	},
}

func inspect(path string) {
	tl := loadTimelineOrPanic(path)
	fmt.Printf("tracks: %v\n", len(tl.Tracks))
	fmt.Printf("events: %v\n", tl.NumEvents())
	fmt.Printf("duration: %v ticks\n", tl.Duration())

	objs, err := chord.Detect(tl, chord.DetectionSettings{
		NotesMinCount:  inspectMinCount,
		NotesTolerance: int64(tl.Ticks) / 16,
		SearchContext:  chord.WholeTimeline,
	})
	cobra.CheckErr(err)

	var numNotes, numChords int
	for _, obj := range objs {
		switch v := obj.(type) {
		case *note.Note:
			numNotes++
		case *chord.Chord:
			numChords++
			numNotes += len(v.Notes)
			fmt.Printf("chord at %v: %v\n", v.StartTick(), v.Key())
		}
	}
	fmt.Printf("notes: %v\n", numNotes)
	fmt.Printf("chords: %v\n", numChords)
}
