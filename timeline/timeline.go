// Package timeline holds the absolute-tick event model that every splitting
// policy operates on. A Timeline is the parsed form of an SMF: per-track
// event lists with absolute tick times instead of deltas, kept sorted
// ascending and stable on ties.
package timeline

import (
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"
)

// Event is one timestamped message. Tick is absolute, counted from the
// start of the file.
type Event struct {
	Tick    int64
	Message smf.Message
}

// Track is an ordered event list for one parallel lane of the timeline.
type Track []Event

type Timeline struct {
	Ticks  smf.MetricTicks
	Tracks []Track
}

// FromSMF converts delta times to absolute ticks, dropping end-of-track
// messages (they are re-added on write).
func FromSMF(s *smf.SMF) *Timeline {
	var tl Timeline
	if mt, ok := s.TimeFormat.(smf.MetricTicks); ok {
		tl.Ticks = mt
	} else {
		tl.Ticks = smf.MetricTicks(960)
	}

	for _, events := range s.Tracks {
		var track Track
		var absTicks int64
		for _, event := range events {
			absTicks += int64(event.Delta)
			if event.Message.Is(smf.MetaEndOfTrackMsg) {
				continue
			}
			track = append(track, Event{Tick: absTicks, Message: event.Message})
		}
		tl.Tracks = append(tl.Tracks, track)
	}
	tl.Sort()
	return &tl
}

// ToSMF rebuilds delta times and closes every track.
func (tl *Timeline) ToSMF() *smf.SMF {
	res := smf.NewSMF1()
	res.TimeFormat = tl.Ticks
	for _, track := range tl.Tracks {
		var st smf.Track
		var lastTick int64
		for _, ev := range track {
			st = append(st, smf.Event{
				Delta:   uint32(ev.Tick - lastTick),
				Message: ev.Message,
			})
			lastTick = ev.Tick
		}
		st.Close(0)
		res.Add(st)
	}
	return res
}

// Clone deep-copies the track structure. Messages are immutable byte
// slices and are shared.
func (tl *Timeline) Clone() *Timeline {
	res := Timeline{Ticks: tl.Ticks}
	res.Tracks = make([]Track, len(tl.Tracks))
	for i, track := range tl.Tracks {
		newTrack := make(Track, len(track))
		copy(newTrack, track)
		res.Tracks[i] = newTrack
	}
	return &res
}

// Sort orders every track ascending by tick, stable on equal ticks.
func (tl *Timeline) Sort() {
	for _, track := range tl.Tracks {
		t := track
		sort.SliceStable(t, func(i, j int) bool {
			return t[i].Tick < t[j].Tick
		})
	}
}

// Duration returns the last event tick across all tracks.
func (tl *Timeline) Duration() int64 {
	var max int64
	for _, track := range tl.Tracks {
		if len(track) == 0 {
			continue
		}
		if last := track[len(track)-1].Tick; last > max {
			max = last
		}
	}
	return max
}

func (tl *Timeline) NumEvents() int {
	var n int
	for _, track := range tl.Tracks {
		n += len(track)
	}
	return n
}

func (tl *Timeline) IsEmpty() bool {
	return tl.NumEvents() == 0
}

// Shift moves every event by delta ticks. Callers must not shift any
// event below zero.
func (tl *Timeline) Shift(delta int64) {
	for _, track := range tl.Tracks {
		for i := range track {
			track[i].Tick += delta
		}
	}
}

// DropEmptyTracks removes tracks with no events, keeping the relative
// order of the remaining ones.
func (tl *Timeline) DropEmptyTracks() {
	var kept []Track
	for _, track := range tl.Tracks {
		if len(track) > 0 {
			kept = append(kept, track)
		}
	}
	tl.Tracks = kept
}
