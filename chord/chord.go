// Package chord groups simultaneous notes into chords under a tolerance
// window. Chords are a derived read view over a timeline; nothing here
// writes back onto it.
package chord

import (
	"fmt"
	"sort"

	"midislicer/note"
	"midislicer/timeline"
)

// SearchContext selects whether notes may only form chords with notes of
// their own track or across the whole timeline.
type SearchContext int

const (
	PerTrack SearchContext = iota
	WholeTimeline
)

type DetectionSettings struct {
	// NotesMinCount is the smallest cluster emitted as a chord. Smaller
	// clusters stay individual notes.
	NotesMinCount int
	// NotesTolerance widens the window anchored at a cluster's first
	// note to [first.Tick, first.Tick+NotesTolerance].
	NotesTolerance int64
	SearchContext  SearchContext
	NoteSettings   note.DetectionSettings
}

func (s DetectionSettings) Validate() error {
	if s.NotesMinCount < 1 {
		return fmt.Errorf("chord: NotesMinCount must be at least 1, got %v", s.NotesMinCount)
	}
	if s.NotesTolerance < 0 {
		return fmt.Errorf("chord: NotesTolerance must be non-negative, got %v", s.NotesTolerance)
	}
	if s.SearchContext != PerTrack && s.SearchContext != WholeTimeline {
		return fmt.Errorf("chord: unrecognized search context %v", s.SearchContext)
	}
	return s.NoteSettings.Validate()
}

type Chord struct {
	Notes []*note.Note
}

func (c *Chord) StartTick() int64 {
	return c.Notes[0].Tick
}

func (c *Chord) EndTick() int64 {
	var max int64
	for _, n := range c.Notes {
		if end := n.EndTick(); end > max {
			max = end
		}
	}
	return max
}

// Key renders the chord's pitches sorted and dash-joined, e.g. "60-64-67".
func (c *Chord) Key() string {
	pitches := make([]uint8, len(c.Notes))
	for i, n := range c.Notes {
		pitches[i] = n.Pitch
	}
	sort.Slice(pitches, func(i, j int) bool { return pitches[i] < pitches[j] })
	var res string
	for i, p := range pitches {
		res += fmt.Sprintf("%v", p)
		if i < len(pitches)-1 {
			res += "-"
		}
	}
	return res
}

// Detect returns chords, leftover notes and untouched events ordered by
// start tick.
func Detect(tl *timeline.Timeline, s DetectionSettings) ([]note.Object, error) {
	if tl == nil {
		return nil, fmt.Errorf("chord: timeline is required")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	if s.SearchContext == WholeTimeline {
		return group(note.Detect(tl, s.NoteSettings), s), nil
	}

	var res []note.Object
	for i, track := range tl.Tracks {
		res = append(res, group(note.DetectTrack(track, i, s.NoteSettings), s)...)
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].StartTick() < res[j].StartTick()
	})
	return res, nil
}

// group clusters consecutive notes whose starts fall inside the window
// anchored at the cluster's first note. Clusters below NotesMinCount
// dissolve back into individual notes.
func group(objs []note.Object, s DetectionSettings) []note.Object {
	var res []note.Object
	var cluster []*note.Note

	flush := func() {
		if len(cluster) == 0 {
			return
		}
		if len(cluster) >= s.NotesMinCount {
			res = append(res, &Chord{Notes: cluster})
		} else {
			for _, n := range cluster {
				res = append(res, n)
			}
		}
		cluster = nil
	}

	for _, obj := range objs {
		n, ok := obj.(*note.Note)
		if !ok {
			res = append(res, obj)
			continue
		}
		if len(cluster) > 0 && n.Tick <= cluster[0].Tick+s.NotesTolerance {
			cluster = append(cluster, n)
			continue
		}
		flush()
		cluster = []*note.Note{n}
	}
	flush()

	sort.SliceStable(res, func(i, j int) bool {
		return res[i].StartTick() < res[j].StartTick()
	})
	return res
}
