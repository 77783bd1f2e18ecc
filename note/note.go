// Package note pairs channel note-on and note-off events into Note values
// spanning a duration. Splitting policies lean on this to decide which
// events belong together before a cut point lands between them.
package note

import (
	"fmt"
	"sort"

	"midislicer/timeline"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// OrphanOffPolicy decides what happens to a note-off with no matching
// note-on before it.
type OrphanOffPolicy int

const (
	// DropOrphanOff omits the event from the detected sequence.
	DropOrphanOff OrphanOffPolicy = iota
	// OrphanOffAsZeroLength emits a zero-length note at the off tick.
	OrphanOffAsZeroLength
)

type DetectionSettings struct {
	OrphanOff OrphanOffPolicy
}

func (s DetectionSettings) Validate() error {
	switch s.OrphanOff {
	case DropOrphanOff, OrphanOffAsZeroLength:
		return nil
	}
	return fmt.Errorf("note: unrecognized orphan-off policy %v", s.OrphanOff)
}

// Object is an element of a detected sequence: either a *Note or a Raw
// event the detector left untouched.
type Object interface {
	StartTick() int64
}

// Raw wraps a timeline event that did not form part of a note.
type Raw struct {
	Track int
	Event timeline.Event
}

func (r Raw) StartTick() int64 { return r.Event.Tick }

type Note struct {
	Track       int
	Channel     uint8
	Pitch       uint8
	Tick        int64
	Length      int64
	OnVelocity  uint8
	OffVelocity uint8

	onEvent  timeline.Event
	offEvent timeline.Event
}

func (n *Note) StartTick() int64 { return n.Tick }

func (n *Note) EndTick() int64 { return n.Tick + n.Length }

// Events returns the on/off event pair carrying this note, suitable for
// writing back onto a track.
func (n *Note) Events() (on, off timeline.Event) {
	return n.onEvent, n.offEvent
}

// NewNote builds a note along with synthesized on/off events. Detected
// notes keep their original events instead; this is for fragments created
// by splitting and for tests.
func NewNote(track int, channel, pitch uint8, tick, length int64, onVel, offVel uint8) *Note {
	return &Note{
		Track:       track,
		Channel:     channel,
		Pitch:       pitch,
		Tick:        tick,
		Length:      length,
		OnVelocity:  onVel,
		OffVelocity: offVel,
		onEvent: timeline.Event{
			Tick:    tick,
			Message: smf.Message(midi.NoteOn(channel, pitch, onVel)),
		},
		offEvent: timeline.Event{
			Tick:    tick + length,
			Message: smf.Message(midi.NoteOffVelocity(channel, pitch, offVel)),
		},
	}
}

// IdentityKey folds channel and pitch into one bucket key. With
// ignoreChannel set, notes of equal pitch share a key regardless of
// channel.
func IdentityKey(channel, pitch uint8, ignoreChannel bool) uint16 {
	if ignoreChannel {
		return uint16(pitch)
	}
	return uint16(channel)<<8 | uint16(pitch)
}

// Detect returns the objects of every track merged into one sequence,
// ordered by start tick, stable on ties with lower tracks first.
func Detect(tl *timeline.Timeline, s DetectionSettings) []Object {
	var res []Object
	for i, track := range tl.Tracks {
		res = append(res, DetectTrack(track, i, s)...)
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].StartTick() < res[j].StartTick()
	})
	return res
}

// DetectTrack pairs on/off events within one track. Ties between open
// notes of the same (channel, pitch) resolve first-in-first-out: an off
// closes the earliest still-open on. A note-on never closed by the end of
// the track degrades to a Raw event.
func DetectTrack(track timeline.Track, trackNum int, s DetectionSettings) []Object {
	var objs []Object
	pending := make(map[uint16][]int)

	for _, ev := range track {
		var ch, key, vel uint8
		switch {
		case ev.Message.GetNoteStart(&ch, &key, &vel):
			n := &Note{
				Track:      trackNum,
				Channel:    ch,
				Pitch:      key,
				Tick:       ev.Tick,
				OnVelocity: vel,
				onEvent:    ev,
			}
			objs = append(objs, n)
			k := IdentityKey(ch, key, false)
			pending[k] = append(pending[k], len(objs)-1)

		case ev.Message.GetNoteEnd(&ch, &key):
			var offVel uint8
			ev.Message.GetNoteOff(&ch, &key, &offVel)
			k := IdentityKey(ch, key, false)
			open := pending[k]
			if len(open) > 0 {
				n := objs[open[0]].(*Note)
				pending[k] = open[1:]
				n.Length = ev.Tick - n.Tick
				n.OffVelocity = offVel
				n.offEvent = ev
				continue
			}
			if s.OrphanOff == OrphanOffAsZeroLength {
				n := NewNote(trackNum, ch, key, ev.Tick, 0, 0, offVel)
				n.offEvent = ev
				objs = append(objs, n)
			}
			// DropOrphanOff: the event is omitted.

		default:
			objs = append(objs, Raw{Track: trackNum, Event: ev})
		}
	}

	for _, open := range pending {
		for _, idx := range open {
			n := objs[idx].(*Note)
			objs[idx] = Raw{Track: trackNum, Event: n.onEvent}
		}
	}
	return objs
}

// SplitAtPoints rewrites the timeline in place so that no note straddles
// any of the given tick points. A note crossing a point becomes
// boundary-aligned fragments carrying the original velocities on every
// fragment. Points are deduplicated; a point at a note edge splits
// nothing.
func SplitAtPoints(tl *timeline.Timeline, points []int64, s DetectionSettings) {
	if len(points) == 0 {
		return
	}
	sorted := make([]int64, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	for t, track := range tl.Tracks {
		var out timeline.Track
		for _, obj := range DetectTrack(track, t, s) {
			switch v := obj.(type) {
			case Raw:
				out = append(out, v.Event)
			case *Note:
				inner := innerPoints(sorted, v.Tick, v.EndTick())
				if len(inner) == 0 {
					on, off := v.Events()
					out = append(out, on, off)
					continue
				}
				start := v.Tick
				for _, p := range inner {
					f := NewNote(t, v.Channel, v.Pitch, start, p-start, v.OnVelocity, v.OffVelocity)
					on, off := f.Events()
					out = append(out, on, off)
					start = p
				}
				f := NewNote(t, v.Channel, v.Pitch, start, v.EndTick()-start, v.OnVelocity, v.OffVelocity)
				on, off := f.Events()
				out = append(out, on, off)
			}
		}
		tl.Tracks[t] = out
	}
	tl.Sort()

	pointSet := make(map[int64]bool, len(sorted))
	for _, p := range sorted {
		pointSet[p] = true
	}
	for _, track := range tl.Tracks {
		sortEndsFirstAt(track, pointSet)
	}
}

// sortEndsFirstAt reorders equal-tick runs sitting exactly on a split
// point so note-ends come before note-starts. The slicer relies on that
// order to hand a boundary-aligned off to the slice that opened it.
func sortEndsFirstAt(track timeline.Track, points map[int64]bool) {
	fixup := func(begin, end int) {
		if end <= begin+1 || !points[track[begin].Tick] {
			return
		}
		run := track[begin:end]
		sort.SliceStable(run, func(i, j int) bool {
			var ch, key uint8
			iEnd := run[i].Message.GetNoteEnd(&ch, &key)
			jEnd := run[j].Message.GetNoteEnd(&ch, &key)
			return iEnd && !jEnd
		})
	}
	begin := 0
	for i := 1; i <= len(track); i++ {
		if i == len(track) || track[i].Tick != track[begin].Tick {
			fixup(begin, i)
			begin = i
		}
	}
}

// innerPoints returns the distinct points strictly inside (lo, hi).
func innerPoints(sorted []int64, lo, hi int64) []int64 {
	var res []int64
	for _, p := range sorted {
		if p <= lo {
			continue
		}
		if p >= hi {
			break
		}
		if len(res) > 0 && res[len(res)-1] == p {
			continue
		}
		res = append(res, p)
	}
	return res
}
