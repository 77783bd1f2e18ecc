// Package slicer implements the sequential cursor that carves a timeline
// into non-overlapping segments, one per monotonically increasing cut
// time. A Slicer owns one mutable cursor per track and is not safe for
// concurrent use.
package slicer

import (
	"fmt"
	"math"

	"midislicer/note"
	"midislicer/timeline"
	"midislicer/util"

	"gitlab.com/gomidi/midi/v2/smf"
)

// EndOfTimeline is the sentinel cut time that drains every remaining
// event on the final NextSlice call.
const EndOfTimeline int64 = math.MaxInt64

// MarkerFactory builds the tagged event appended at a slice boundary.
// The tag must be recoverable by IsMarker for later stripping.
type MarkerFactory func(tag string) smf.Message

type MarkerSettings struct {
	StartTag string
	EndTag   string
	Factory  MarkerFactory
}

func (ms *MarkerSettings) event(tag string) smf.Message {
	if ms.Factory != nil {
		return ms.Factory(tag)
	}
	return smf.MetaMarker(tag)
}

// IsMarker reports whether msg is a boundary marker carrying tag, as
// produced by the default marker factory.
func IsMarker(msg smf.Message, tag string) bool {
	var text string
	return msg.GetMetaMarker(&text) && text == tag
}

// Settings is the shared slice configuration. SplitNotes and
// NoteSettings are consumed by the policies before events ever reach the
// slicer; the slicer itself reads the other fields.
type Settings struct {
	// PreserveTrackChunks keeps tracks the slice left empty.
	PreserveTrackChunks bool
	// PreserveTimes leaves events at absolute ticks instead of
	// re-basing each slice to start at 0.
	PreserveTimes bool
	// SplitNotes makes grid policies pre-split notes so none straddles
	// a future cut point.
	SplitNotes   bool
	Markers      *MarkerSettings
	NoteSettings note.DetectionSettings
}

type Slicer struct {
	ticks   smf.MetricTicks
	tracks  []timeline.Track
	cursors []int
	open    []map[uint16]int
	lastCut int64
	started bool
	done    bool

	// tempo map state consumed so far, replayed into re-based slices
	lastTempo   smf.Message
	lastTimeSig smf.Message
}

// New takes ownership of the timeline's tracks. Callers that need the
// input afterwards must pass a clone.
func New(tl *timeline.Timeline) *Slicer {
	s := Slicer{
		ticks:   tl.Ticks,
		tracks:  tl.Tracks,
		cursors: make([]int, len(tl.Tracks)),
		open:    make([]map[uint16]int, len(tl.Tracks)),
	}
	for i := range s.open {
		s.open[i] = make(map[uint16]int)
	}
	s.done = s.drained()
	return &s
}

func (s *Slicer) drained() bool {
	for t := range s.tracks {
		if s.cursors[t] < len(s.tracks[t]) {
			return false
		}
	}
	return true
}

// AllEventsProcessed reports whether every track has been drained.
// Further NextSlice calls return empty slices.
func (s *Slicer) AllEventsProcessed() bool {
	return s.done
}

// Release drops the retained event buffers. The slicer stays usable only
// for AllEventsProcessed queries.
func (s *Slicer) Release() {
	s.tracks = nil
	s.cursors = nil
	s.open = nil
	s.done = true
}

// NextSlice drains, per track, the unconsumed events with tick < cutTime
// into a new segment. Cut times must be strictly increasing across
// calls; violating that is a programmer error and panics.
func (s *Slicer) NextSlice(cutTime int64, st Settings) *timeline.Timeline {
	if s.started && cutTime <= s.lastCut {
		panic(fmt.Sprintf("slicer: cut time %v is not greater than previous cut time %v", cutTime, s.lastCut))
	}
	sliceStart := s.lastCut
	s.started = true
	s.lastCut = cutTime

	// Context as of the slice start, before this slice's events are
	// consumed.
	tempo, timeSig := s.lastTempo, s.lastTimeSig

	res := &timeline.Timeline{
		Ticks:  s.ticks,
		Tracks: make([]timeline.Track, len(s.tracks)),
	}
	lastEventTick := sliceStart
	for t := range s.tracks {
		var seg timeline.Track
		for s.cursors[t] < len(s.tracks[t]) {
			ev := s.tracks[t][s.cursors[t]]
			if ev.Tick > cutTime {
				break
			}
			// An event exactly at the cut belongs to the next slice,
			// with one exception: a note-end closing a note that
			// started in this slice travels with it, so boundary
			// fragments stay whole.
			if ev.Tick == cutTime && !s.closesOpenNote(t, ev.Message) {
				break
			}
			s.account(t, ev.Message)
			s.remember(ev.Message)
			if ev.Tick > lastEventTick {
				lastEventTick = ev.Tick
			}
			seg = append(seg, ev)
			s.cursors[t]++
		}
		res.Tracks[t] = seg
	}
	s.done = s.drained()

	if st.Markers != nil {
		endTick := cutTime
		if cutTime == EndOfTimeline {
			endTick = lastEventTick
		}
		for t := range res.Tracks {
			seg := make(timeline.Track, 0, len(res.Tracks[t])+2)
			seg = append(seg, timeline.Event{Tick: sliceStart, Message: st.Markers.event(st.Markers.StartTag)})
			seg = append(seg, res.Tracks[t]...)
			seg = append(seg, timeline.Event{Tick: endTick, Message: st.Markers.event(st.Markers.EndTag)})
			res.Tracks[t] = seg
		}
	}

	if !st.PreserveTimes {
		s.rebase(res, sliceStart, tempo, timeSig)
	}
	if !st.PreserveTrackChunks {
		res.DropEmptyTracks()
	}
	return res
}

func (s *Slicer) closesOpenNote(t int, msg smf.Message) bool {
	var ch, key uint8
	if !msg.GetNoteEnd(&ch, &key) {
		return false
	}
	return s.open[t][note.IdentityKey(ch, key, false)] > 0
}

// account keeps the per-track count of open notes the cursor has passed.
func (s *Slicer) account(t int, msg smf.Message) {
	var ch, key, vel uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		s.open[t][note.IdentityKey(ch, key, false)]++
	case msg.GetNoteEnd(&ch, &key):
		k := note.IdentityKey(ch, key, false)
		if s.open[t][k] > 0 {
			s.open[t][k]--
		}
	}
}

func (s *Slicer) remember(msg smf.Message) {
	var bpm float64
	var num, denom, cpt, dsqpq uint8
	switch {
	case msg.GetMetaTempo(&bpm):
		s.lastTempo = msg
	case msg.GetMetaTimeSig(&num, &denom, &cpt, &dsqpq):
		s.lastTimeSig = msg
	}
}

// rebase shifts the slice so its earliest event sits at tick 0 and
// replays the tempo map state in effect at the slice start, so a part
// cut from the middle of the file still plays correctly. Tempo and
// time-signature metadata already present at the slice start win over
// the replayed state.
func (s *Slicer) rebase(res *timeline.Timeline, sliceStart int64, tempo, timeSig smf.Message) {
	anchor := int64(math.MaxInt64)
	for _, track := range res.Tracks {
		if len(track) > 0 {
			anchor = util.Min(anchor, track[0].Tick)
		}
	}
	if anchor == math.MaxInt64 {
		return
	}
	res.Shift(-anchor)

	if sliceStart == 0 || len(res.Tracks) == 0 {
		return
	}
	var inject timeline.Track
	if timeSig != nil && !hasAtStart(res, isTimeSig) {
		inject = append(inject, timeline.Event{Tick: 0, Message: timeSig})
	}
	if tempo != nil && !hasAtStart(res, isTempo) {
		inject = append(inject, timeline.Event{Tick: 0, Message: tempo})
	}
	if len(inject) > 0 {
		res.Tracks[0] = append(inject, res.Tracks[0]...)
	}
}

func isTempo(msg smf.Message) bool {
	var bpm float64
	return msg.GetMetaTempo(&bpm)
}

func isTimeSig(msg smf.Message) bool {
	var num, denom, cpt, dsqpq uint8
	return msg.GetMetaTimeSig(&num, &denom, &cpt, &dsqpq)
}

func hasAtStart(tl *timeline.Timeline, pred func(smf.Message) bool) bool {
	for _, track := range tl.Tracks {
		for _, ev := range track {
			if ev.Tick > 0 {
				break
			}
			if pred(ev.Message) {
				return true
			}
		}
	}
	return false
}
