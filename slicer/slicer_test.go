package slicer

import (
	"testing"

	"midislicer/timeline"

	"github.com/stretchr/testify/assert"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func on(tick int64, ch, key, vel uint8) timeline.Event {
	return timeline.Event{Tick: tick, Message: smf.Message(midi.NoteOn(ch, key, vel))}
}

func off(tick int64, ch, key, vel uint8) timeline.Event {
	return timeline.Event{Tick: tick, Message: smf.Message(midi.NoteOffVelocity(ch, key, vel))}
}

func newTimeline(tracks ...timeline.Track) *timeline.Timeline {
	return &timeline.Timeline{Ticks: smf.MetricTicks(480), Tracks: tracks}
}

func TestSlicesPartitionTheOriginal(t *testing.T) {
	track0 := timeline.Track{
		on(0, 0, 60, 100), off(120, 0, 60, 0),
		on(150, 0, 62, 100), off(400, 0, 62, 0),
		on(500, 0, 64, 100), off(700, 0, 64, 0),
	}
	track1 := timeline.Track{
		on(90, 1, 40, 80), off(290, 1, 40, 0),
	}
	tl := newTimeline(
		append(timeline.Track{}, track0...),
		append(timeline.Track{}, track1...),
	)

	s := New(tl)
	defer s.Release()
	settings := Settings{PreserveTimes: true, PreserveTrackChunks: true}

	var rejoined [2]timeline.Track
	for _, cut := range []int64{100, 300, EndOfTimeline} {
		part := s.NextSlice(cut, settings)
		for i := range part.Tracks {
			rejoined[i] = append(rejoined[i], part.Tracks[i]...)
		}
	}

	assert := assert.New(t)
	assert.True(s.AllEventsProcessed())
	assert.Equal(track0, rejoined[0])
	assert.Equal(track1, rejoined[1])
}

func TestNonIncreasingCutTimePanics(t *testing.T) {
	tl := newTimeline(timeline.Track{on(0, 0, 60, 100), off(500, 0, 60, 0)})
	s := New(tl)
	defer s.Release()
	s.NextSlice(100, Settings{PreserveTimes: true})

	assert.Panics(t, func() {
		s.NextSlice(100, Settings{PreserveTimes: true})
	})
}

func TestExhaustedSlicerReturnsEmptySlices(t *testing.T) {
	tl := newTimeline(timeline.Track{on(0, 0, 60, 100), off(50, 0, 60, 0)})
	s := New(tl)
	defer s.Release()

	s.NextSlice(100, Settings{PreserveTimes: true})
	assert := assert.New(t)
	assert.True(s.AllEventsProcessed())

	part := s.NextSlice(200, Settings{PreserveTimes: true})
	assert.True(part.IsEmpty())
}

func TestBoundaryNoteEndTravelsWithItsSlice(t *testing.T) {
	// fragment boundary at 100: the off at 100 closes a note opened at 0
	// and must land in the first slice; the restart at 100 must not
	tl := newTimeline(timeline.Track{
		on(0, 0, 60, 100),
		off(100, 0, 60, 64),
		on(100, 0, 60, 100),
		off(200, 0, 60, 64),
	})
	s := New(tl)
	defer s.Release()
	settings := Settings{PreserveTimes: true, PreserveTrackChunks: true}

	head := s.NextSlice(100, settings)
	tail := s.NextSlice(EndOfTimeline, settings)

	assert := assert.New(t)
	assert.Equal(2, len(head.Tracks[0]))
	assert.Equal(int64(100), head.Tracks[0][1].Tick)
	var ch, key uint8
	assert.True(head.Tracks[0][1].Message.GetNoteEnd(&ch, &key))
	assert.Equal(2, len(tail.Tracks[0]))
	assert.True(tail.Tracks[0][0].Message.GetNoteStart(&ch, &key, new(uint8)))
}

func TestOffAtCutWithoutOpenNoteStaysBehind(t *testing.T) {
	tl := newTimeline(timeline.Track{
		on(100, 0, 60, 100),
		off(300, 0, 60, 0),
	})
	s := New(tl)
	defer s.Release()
	settings := Settings{PreserveTimes: true, PreserveTrackChunks: true}

	head := s.NextSlice(100, settings)
	assert.Equal(t, 0, len(head.Tracks[0]))
}

func TestRebaseAnchorsEarliestEvent(t *testing.T) {
	tl := newTimeline(timeline.Track{
		on(500, 0, 60, 100),
		off(700, 0, 60, 0),
	})
	s := New(tl)
	defer s.Release()

	part := s.NextSlice(EndOfTimeline, Settings{})
	assert := assert.New(t)
	assert.Equal(int64(0), part.Tracks[0][0].Tick)
	assert.Equal(int64(200), part.Tracks[0][1].Tick)
}

func TestRebasedSliceCarriesTempoState(t *testing.T) {
	tl := newTimeline(timeline.Track{
		{Tick: 0, Message: smf.MetaTempo(100)},
		{Tick: 0, Message: smf.MetaMeter(3, 4)},
		on(0, 0, 60, 100), off(100, 0, 60, 0),
		on(400, 0, 62, 100), off(500, 0, 62, 0),
	})
	s := New(tl)
	defer s.Release()

	s.NextSlice(200, Settings{})
	part := s.NextSlice(EndOfTimeline, Settings{})

	assert := assert.New(t)
	track := part.Tracks[0]
	var bpm float64
	var num, denom, cpt, dsqpq uint8
	assert.True(track[0].Message.GetMetaTimeSig(&num, &denom, &cpt, &dsqpq))
	assert.True(track[1].Message.GetMetaTempo(&bpm))
	assert.Equal(float64(100), bpm)
	assert.Equal(int64(0), track[0].Tick)
	// events re-based: the tick-400 note lands at 0
	assert.Equal(int64(0), track[2].Tick)
}

func TestPreserveTimesDoesNotInjectTempoState(t *testing.T) {
	tl := newTimeline(timeline.Track{
		{Tick: 0, Message: smf.MetaTempo(100)},
		on(0, 0, 60, 100), off(100, 0, 60, 0),
		on(400, 0, 62, 100), off(500, 0, 62, 0),
	})
	s := New(tl)
	defer s.Release()

	s.NextSlice(200, Settings{PreserveTimes: true, PreserveTrackChunks: true})
	part := s.NextSlice(EndOfTimeline, Settings{PreserveTimes: true, PreserveTrackChunks: true})

	assert := assert.New(t)
	assert.Equal(2, len(part.Tracks[0]))
	assert.Equal(int64(400), part.Tracks[0][0].Tick)
}

func TestMarkersTagSliceBoundaries(t *testing.T) {
	tl := newTimeline(timeline.Track{
		on(50, 0, 60, 100), off(150, 0, 60, 0),
	})
	s := New(tl)
	defer s.Release()
	settings := Settings{
		PreserveTimes:       true,
		PreserveTrackChunks: true,
		Markers:             &MarkerSettings{StartTag: "start-tag", EndTag: "end-tag"},
	}

	part := s.NextSlice(200, settings)
	track := part.Tracks[0]

	assert := assert.New(t)
	assert.Equal(4, len(track))
	assert.True(IsMarker(track[0].Message, "start-tag"))
	assert.Equal(int64(0), track[0].Tick)
	assert.True(IsMarker(track[3].Message, "end-tag"))
	assert.Equal(int64(200), track[3].Tick)
	assert.False(IsMarker(track[0].Message, "end-tag"))
}

func TestDropsEmptyTracksUnlessPreserved(t *testing.T) {
	tl := newTimeline(
		timeline.Track{on(0, 0, 60, 100), off(50, 0, 60, 0)},
		nil,
	)

	s := New(tl.Clone())
	part := s.NextSlice(EndOfTimeline, Settings{PreserveTimes: true})
	s.Release()
	assert.Equal(t, 1, len(part.Tracks))

	s = New(tl)
	part = s.NextSlice(EndOfTimeline, Settings{PreserveTimes: true, PreserveTrackChunks: true})
	s.Release()
	assert.Equal(t, 2, len(part.Tracks))
}
