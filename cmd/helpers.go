package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"midislicer/constants"
	"midislicer/grid"
	"midislicer/midi"
	"midislicer/note"
	"midislicer/slicer"
	"midislicer/tempomap"
	"midislicer/timeline"

	"github.com/spf13/cobra"
)

// flags shared by the splitting commands
var (
	flagPreserveTimes  bool
	flagPreserveTracks bool
	flagSplitNotes     bool
	flagZeroLengthOff  bool
)

func registerSliceFlags(c *cobra.Command) {
	c.Flags().BoolVar(&flagPreserveTimes, "preserve-times", false, "keep absolute event times instead of re-basing each part to 0")
	c.Flags().BoolVar(&flagPreserveTracks, "preserve-tracks", false, "keep tracks a part left empty")
	c.Flags().BoolVar(&flagSplitNotes, "split-notes", true, "split notes crossing a cut point")
	c.Flags().BoolVar(&flagZeroLengthOff, "zero-length-orphans", false, "treat orphan note-offs as zero-length notes instead of dropping them")
}

func sliceSettings() slicer.Settings {
	s := slicer.Settings{
		PreserveTrackChunks: flagPreserveTracks,
		PreserveTimes:       flagPreserveTimes,
		SplitNotes:          flagSplitNotes,
	}
	if flagZeroLengthOff {
		s.NoteSettings.OrphanOff = note.OrphanOffAsZeroLength
	}
	return s
}

func loadTimelineOrPanic(path string) *timeline.Timeline {
	tl, err := midi.ReadTimeline(path)
	if err != nil {
		panic("Could not read midi file: " + err.Error())
	}
	return tl
}

func stepGrid(bars int, ticks int64) grid.Grid {
	if ticks > 0 {
		return grid.Stepped{Start: tempomap.Ticks(0), Steps: []tempomap.Span{tempomap.Ticks(ticks)}}
	}
	if bars < 1 {
		bars = constants.DefaultGridBars
	}
	return grid.Stepped{Start: tempomap.Ticks(0), Steps: []tempomap.Span{tempomap.Metric(bars, 0)}}
}

// writeParts writes every part into the out dir as <base>.partNNN.mid and
// returns the written paths.
func writeParts(parts []*timeline.Timeline, srcPath string) []string {
	outDir := constants.GetOutDir()
	if err := os.MkdirAll(outDir, 0777); err != nil {
		panic("Could not create out dir: " + err.Error())
	}
	base := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))

	var res []string
	for i, part := range parts {
		name := fmt.Sprintf("%v.part%03d.mid", base, i+1)
		path := filepath.Join(outDir, name)
		if err := midi.WriteTimeline(part, path); err != nil {
			panic("Could not write part: " + err.Error())
		}
		res = append(res, path)
	}
	fmt.Printf("Wrote %v parts to %v\n", len(res), outDir)
	return res
}
