// Package split contains the segmentation policies: splitting a timeline
// into independent timelines by track, channel, note identity or grid,
// and extracting or removing a contiguous part.
//
// Every policy reads its input once and never mutates it; grid-based
// policies clone before pre-splitting notes. When a policy finds nothing
// to bucket it falls back to returning the whole (filtered) input as a
// single result, so there is always at least one output.
package split

import (
	"errors"
	"fmt"

	"midislicer/grid"
	"midislicer/note"
	"midislicer/slicer"
	"midislicer/tempomap"
	"midislicer/timeline"
	"midislicer/util"

	"golang.org/x/exp/slices"
)

var (
	errNilTimeline = errors.New("split: timeline is required")
	errNilGrid     = errors.New("split: grid is required")
)

type TrackSplitSettings struct {
	// Filter keeps the tracks it returns true for. Nil keeps all.
	Filter func(index int, track timeline.Track) bool
}

// ByTracks emits one timeline per track chunk, in track order.
func ByTracks(tl *timeline.Timeline, s TrackSplitSettings) ([]*timeline.Timeline, error) {
	if tl == nil {
		return nil, errNilTimeline
	}
	var res []*timeline.Timeline
	for i, track := range tl.Tracks {
		if s.Filter != nil && !s.Filter(i, track) {
			continue
		}
		cp := make(timeline.Track, len(track))
		copy(cp, track)
		res = append(res, &timeline.Timeline{Ticks: tl.Ticks, Tracks: []timeline.Track{cp}})
	}
	if len(res) == 0 {
		return []*timeline.Timeline{{Ticks: tl.Ticks}}, nil
	}
	return res, nil
}

type ChannelSplitSettings struct {
	// Filter keeps the channels it returns true for. Nil keeps all 16.
	Filter func(channel uint8) bool
	// CopyNonChannelEventsToEachFile duplicates meta and system events
	// into every output. When unset they are dropped.
	CopyNonChannelEventsToEachFile bool
}

// ByChannel emits one timeline per 4-bit channel in use, ascending.
// Every output keeps the input's track structure.
func ByChannel(tl *timeline.Timeline, s ChannelSplitSettings) ([]*timeline.Timeline, error) {
	if tl == nil {
		return nil, errNilTimeline
	}

	var used [16]bool
	for _, track := range tl.Tracks {
		for _, ev := range track {
			var ch uint8
			if ev.Message.GetChannel(&ch) {
				if s.Filter == nil || s.Filter(ch) {
					used[ch] = true
				}
			}
		}
	}

	buckets := make(map[uint8]*timeline.Timeline)
	for ch := 0; ch < 16; ch++ {
		if used[ch] {
			buckets[uint8(ch)] = &timeline.Timeline{
				Ticks:  tl.Ticks,
				Tracks: make([]timeline.Track, len(tl.Tracks)),
			}
		}
	}
	if len(buckets) == 0 {
		return []*timeline.Timeline{filterChannels(tl, s.Filter)}, nil
	}
	order := util.GetKeys(buckets)
	slices.Sort(order)

	for t, track := range tl.Tracks {
		for _, ev := range track {
			var ch uint8
			if ev.Message.GetChannel(&ch) {
				if b, ok := buckets[ch]; ok {
					b.Tracks[t] = append(b.Tracks[t], ev)
				}
				continue
			}
			if s.CopyNonChannelEventsToEachFile {
				for _, b := range buckets {
					b.Tracks[t] = append(b.Tracks[t], ev)
				}
			}
		}
	}

	res := make([]*timeline.Timeline, len(order))
	for i, ch := range order {
		res[i] = buckets[ch]
	}
	return res, nil
}

// filterChannels clones the timeline with channel events failing the
// filter removed. Non-channel events always survive.
func filterChannels(tl *timeline.Timeline, filter func(uint8) bool) *timeline.Timeline {
	if filter == nil {
		return tl.Clone()
	}
	res := &timeline.Timeline{
		Ticks:  tl.Ticks,
		Tracks: make([]timeline.Track, len(tl.Tracks)),
	}
	for t, track := range tl.Tracks {
		for _, ev := range track {
			var ch uint8
			if ev.Message.GetChannel(&ch) && !filter(ch) {
				continue
			}
			res.Tracks[t] = append(res.Tracks[t], ev)
		}
	}
	return res
}

type NoteSplitSettings struct {
	// IgnoreChannel makes notes of equal pitch share an output
	// regardless of channel.
	IgnoreChannel bool
	// Filter keeps the notes it returns true for. Nil keeps all.
	Filter func(n *note.Note) bool
	// CopyNonNoteEventsToEachFile duplicates non-note events into every
	// output, including outputs whose first note appears later.
	CopyNonNoteEventsToEachFile bool
	NoteSettings                note.DetectionSettings
}

// ByNotes emits one timeline per note identity, in order of first
// appearance. Non-note events seen before an identity's first note are
// replayed into its bucket when CopyNonNoteEventsToEachFile is set.
func ByNotes(tl *timeline.Timeline, s NoteSplitSettings) ([]*timeline.Timeline, error) {
	if tl == nil {
		return nil, errNilTimeline
	}
	if err := s.NoteSettings.Validate(); err != nil {
		return nil, err
	}

	buckets := make(map[uint16]*timeline.Timeline)
	var order []uint16
	var replay []note.Raw

	for _, obj := range note.Detect(tl, s.NoteSettings) {
		switch v := obj.(type) {
		case note.Raw:
			replay = append(replay, v)
			if s.CopyNonNoteEventsToEachFile {
				for _, b := range buckets {
					b.Tracks[v.Track] = append(b.Tracks[v.Track], v.Event)
				}
			}
		case *note.Note:
			if s.Filter != nil && !s.Filter(v) {
				continue
			}
			key := note.IdentityKey(v.Channel, v.Pitch, s.IgnoreChannel)
			b, ok := buckets[key]
			if !ok {
				b = &timeline.Timeline{
					Ticks:  tl.Ticks,
					Tracks: make([]timeline.Track, len(tl.Tracks)),
				}
				if s.CopyNonNoteEventsToEachFile {
					for _, r := range replay {
						b.Tracks[r.Track] = append(b.Tracks[r.Track], r.Event)
					}
				}
				buckets[key] = b
				order = append(order, key)
			}
			on, off := v.Events()
			b.Tracks[v.Track] = append(b.Tracks[v.Track], on, off)
		}
	}

	if len(buckets) == 0 {
		return []*timeline.Timeline{tl.Clone()}, nil
	}
	res := make([]*timeline.Timeline, len(order))
	for i, key := range order {
		res[i] = buckets[key]
		res[i].Sort()
	}
	return res, nil
}

// ByGrid slices the timeline at the grid's cut times, emitting one
// timeline per segment in order. The final segment is flushed with the
// end-of-timeline sentinel.
func ByGrid(tl *timeline.Timeline, g grid.Grid, s slicer.Settings) ([]*timeline.Timeline, error) {
	if tl == nil {
		return nil, errNilTimeline
	}
	if g == nil {
		return nil, errNilGrid
	}
	if err := s.NoteSettings.Validate(); err != nil {
		return nil, err
	}

	clone := tl.Clone()
	tm := tempomap.FromTimeline(clone)

	cuts, err := g.CutTimes(tm)
	if err != nil {
		return nil, err
	}
	var times []int64
	var prev int64
	for _, t := range cuts {
		if t < prev {
			return nil, fmt.Errorf("split: grid produced decreasing cut time %v after %v", t, prev)
		}
		if t <= 0 || t == prev {
			continue
		}
		times = append(times, t)
		prev = t
	}

	if s.SplitNotes {
		note.SplitAtPoints(clone, times, s.NoteSettings)
	}

	sl := slicer.New(clone)
	defer sl.Release()

	var parts []*timeline.Timeline
	for _, t := range times {
		if sl.AllEventsProcessed() {
			break
		}
		parts = append(parts, sl.NextSlice(t, s))
	}
	if !sl.AllEventsProcessed() {
		parts = append(parts, sl.NextSlice(slicer.EndOfTimeline, s))
	}

	if len(parts) == 0 {
		return []*timeline.Timeline{tl.Clone()}, nil
	}
	return parts, nil
}
