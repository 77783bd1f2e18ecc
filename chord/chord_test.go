package chord

import (
	"fmt"
	"testing"

	"midislicer/note"
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

// three simultaneous notes at tick 0 plus one at tick 4
func clusterTimeline() *timeline.Timeline {
	return newTimeline(timeline.Track{
		on(0, 0, 60, 100), on(0, 0, 64, 100), on(0, 0, 67, 100),
		on(4, 0, 72, 100),
		off(480, 0, 60, 0), off(480, 0, 64, 0), off(480, 0, 67, 0),
		off(480, 0, 72, 0),
	})
}

func count(objs []note.Object) (chords, notes int) {
	for _, obj := range objs {
		switch obj.(type) {
		case *Chord:
			chords++
		case *note.Note:
			notes++
		}
	}
	return chords, notes
}

func TestMinCountOneGroupsEveryCluster(t *testing.T) {
	objs, err := Detect(clusterTimeline(), DetectionSettings{
		NotesMinCount:  1,
		NotesTolerance: 0,
		SearchContext:  PerTrack,
	})

	assert := assert.New(t)
	assert.NoError(err)
	chords, notes := count(objs)
	assert.Equal(2, chords)
	assert.Equal(0, notes)
}

func TestMinCountAboveClusterSizeLeavesNotes(t *testing.T) {
	objs, err := Detect(clusterTimeline(), DetectionSettings{
		NotesMinCount:  4,
		NotesTolerance: 0,
		SearchContext:  PerTrack,
	})

	assert := assert.New(t)
	assert.NoError(err)
	chords, notes := count(objs)
	assert.Equal(0, chords)
	assert.Equal(4, notes)
}

func TestToleranceWindowIsAnchoredAtFirstNote(t *testing.T) {
	objs, err := Detect(clusterTimeline(), DetectionSettings{
		NotesMinCount:  2,
		NotesTolerance: 4,
		SearchContext:  PerTrack,
	})

	assert := assert.New(t)
	assert.NoError(err)
	chords, notes := count(objs)
	// the tick-4 note falls inside [0, 4]
	assert.Equal(1, chords)
	assert.Equal(0, notes)

	for _, obj := range objs {
		if c, ok := obj.(*Chord); ok {
			assert.Equal(4, len(c.Notes))
			assert.Equal("60-64-67-72", c.Key())
		}
	}
}

func TestPerTrackContextKeepsTracksApart(t *testing.T) {
	tl := newTimeline(
		timeline.Track{on(0, 0, 60, 100), off(480, 0, 60, 0)},
		timeline.Track{on(0, 1, 64, 100), off(480, 1, 64, 0)},
	)
	settings := DetectionSettings{NotesMinCount: 2, NotesTolerance: 0}

	assert := assert.New(t)

	settings.SearchContext = PerTrack
	objs, err := Detect(tl, settings)
	assert.NoError(err)
	chords, notes := count(objs)
	assert.Equal(0, chords)
	assert.Equal(2, notes)

	settings.SearchContext = WholeTimeline
	objs, err = Detect(tl, settings)
	assert.NoError(err)
	chords, notes = count(objs)
	assert.Equal(1, chords)
	assert.Equal(0, notes)
}

func TestValidationFailsFast(t *testing.T) {
	cases := []DetectionSettings{
		{NotesMinCount: 0, NotesTolerance: 0, SearchContext: PerTrack},
		{NotesMinCount: 1, NotesTolerance: -1, SearchContext: PerTrack},
		{NotesMinCount: 1, NotesTolerance: 0, SearchContext: SearchContext(99)},
	}
	for _, c := range cases {
		name := fmt.Sprintf("minCount=%v tolerance=%v context=%v", c.NotesMinCount, c.NotesTolerance, c.SearchContext)
		t.Run(name, func(t *testing.T) {
			_, err := Detect(newTimeline(), c)
			assert.Error(t, err)
		})
	}
}

func TestNilTimelineIsAnError(t *testing.T) {
	_, err := Detect(nil, DetectionSettings{NotesMinCount: 1})
	assert.Error(t, err)
}
