package split

import (
	"fmt"
	"math"

	"midislicer/note"
	"midislicer/slicer"
	"midislicer/tempomap"
	"midislicer/timeline"
	"midislicer/util"

	"github.com/google/uuid"
	"gitlab.com/gomidi/midi/v2/smf"
	"golang.org/x/exp/slices"
)

// SkipPart discards the head [0, length) and returns the remainder.
func SkipPart(tl *timeline.Timeline, length tempomap.Span, s slicer.Settings) (*timeline.Timeline, error) {
	if tl == nil {
		return nil, errNilTimeline
	}
	if err := s.NoteSettings.Validate(); err != nil {
		return nil, err
	}
	clone := tl.Clone()
	b := tempomap.FromTimeline(clone).ConvertToTicks(length)
	if b < 0 {
		return nil, fmt.Errorf("split: part length resolves to negative tick %v", b)
	}
	if s.SplitNotes {
		note.SplitAtPoints(clone, []int64{b}, s.NoteSettings)
	}
	sl := slicer.New(clone)
	defer sl.Release()
	if b > 0 {
		sl.NextSlice(b, s)
	}
	return sl.NextSlice(slicer.EndOfTimeline, s), nil
}

// TakePart returns the head [0, length).
func TakePart(tl *timeline.Timeline, length tempomap.Span, s slicer.Settings) (*timeline.Timeline, error) {
	if tl == nil {
		return nil, errNilTimeline
	}
	if err := s.NoteSettings.Validate(); err != nil {
		return nil, err
	}
	clone := tl.Clone()
	b := tempomap.FromTimeline(clone).ConvertToTicks(length)
	if b < 0 {
		return nil, fmt.Errorf("split: part length resolves to negative tick %v", b)
	}
	if s.SplitNotes {
		note.SplitAtPoints(clone, []int64{b}, s.NoteSettings)
	}
	sl := slicer.New(clone)
	defer sl.Release()
	return sl.NextSlice(b, s), nil
}

// TakePartFrom returns the part [start, start+length).
func TakePartFrom(tl *timeline.Timeline, start, length tempomap.Span, s slicer.Settings) (*timeline.Timeline, error) {
	if tl == nil {
		return nil, errNilTimeline
	}
	if err := s.NoteSettings.Validate(); err != nil {
		return nil, err
	}
	clone := tl.Clone()
	tm := tempomap.FromTimeline(clone)
	b1 := tm.ConvertToTicks(start)
	b2 := b1 + tm.ConvertToTicks(length)
	if b1 < 0 || b2 < b1 {
		return nil, fmt.Errorf("split: part boundaries resolve to invalid ticks [%v, %v)", b1, b2)
	}
	if s.SplitNotes {
		note.SplitAtPoints(clone, []int64{b1, b2}, s.NoteSettings)
	}
	sl := slicer.New(clone)
	defer sl.Release()
	if b1 > 0 {
		sl.NextSlice(b1, s)
	}
	return sl.NextSlice(b2, s), nil
}

// splitDescriptor identifies a note that fully covered the removed part
// and was fragmented by the boundary pre-split. The match back to the
// fragments is by identity and velocities, not a structural link.
type splitDescriptor struct {
	track       int
	channel     uint8
	pitch       uint8
	onVelocity  uint8
	offVelocity uint8
}

// CutPart removes [start, end) from the timeline and rejoins the head
// with the tail per track. With note splitting enabled, notes spanning
// the whole removed part are shortened by its length instead of being
// severed at the boundaries.
func CutPart(tl *timeline.Timeline, start, end tempomap.Span, s slicer.Settings) (*timeline.Timeline, error) {
	if tl == nil {
		return nil, errNilTimeline
	}
	if err := s.NoteSettings.Validate(); err != nil {
		return nil, err
	}
	clone := tl.Clone()
	tm := tempomap.FromTimeline(clone)
	b1 := tm.ConvertToTicks(start)
	b2 := tm.ConvertToTicks(end)
	if b1 < 0 || b2 <= b1 {
		return nil, fmt.Errorf("split: cut boundaries resolve to invalid ticks [%v, %v)", b1, b2)
	}

	var descriptors []splitDescriptor
	if s.SplitNotes {
		for _, obj := range note.Detect(clone, s.NoteSettings) {
			n, ok := obj.(*note.Note)
			if !ok {
				continue
			}
			if n.Tick < b1 && n.EndTick() > b2 {
				descriptors = append(descriptors, splitDescriptor{
					track:       n.Track,
					channel:     n.Channel,
					pitch:       n.Pitch,
					onVelocity:  n.OnVelocity,
					offVelocity: n.OffVelocity,
				})
			}
		}
		note.SplitAtPoints(clone, []int64{b1, b2}, s.NoteSettings)
	}

	last := util.Max(b2, clone.Duration())

	// The boundary markers are internal bookkeeping: always the default
	// meta-marker factory, so stripping them back out cannot miss.
	internal := s
	internal.PreserveTimes = true
	internal.PreserveTrackChunks = true
	internal.Markers = &slicer.MarkerSettings{
		StartTag: uuid.New().String(),
		EndTag:   uuid.New().String(),
	}

	sl := slicer.New(clone)
	defer sl.Release()
	head := sl.NextSlice(b1, internal)
	middle := sl.NextSlice(b2, internal)
	tail := sl.NextSlice(last+1, internal)

	// A tempo or meter change inside the removed span still governs the
	// tail; carry the last one over to the seam.
	seamTempo, seamTimeSig := lastTempoState(middle, internal.Markers)

	seam := b2
	if s.PreserveTimes {
		tail.Shift(b1 - b2)
		seam = b1
	}

	res := &timeline.Timeline{
		Ticks:  clone.Ticks,
		Tracks: make([]timeline.Track, len(head.Tracks)),
	}
	for t := range head.Tracks {
		joined := append(head.Tracks[t], tail.Tracks[t]...)
		res.Tracks[t] = stripMarkers(joined, internal.Markers)
	}

	for _, d := range descriptors {
		removeSeamFragment(res, d, b1, seam)
	}

	if !tailEmpty(res, b1) {
		injectAtSeam(res, seam, seamTempo, seamTimeSig)
	}
	res.Sort()

	if !s.PreserveTimes {
		rebaseToFirstEvent(res)
	}
	if !s.PreserveTrackChunks {
		res.DropEmptyTracks()
	}
	return res, nil
}

func stripMarkers(track timeline.Track, ms *slicer.MarkerSettings) timeline.Track {
	var res timeline.Track
	for _, ev := range track {
		if slicer.IsMarker(ev.Message, ms.StartTag) || slicer.IsMarker(ev.Message, ms.EndTag) {
			continue
		}
		res = append(res, ev)
	}
	return res
}

// removeSeamFragment deletes the orphaned on/off pair left at the seam by
// discarding a covering note's middle fragment: one off at the head-side
// boundary and one on at the tail-side boundary, both matching the
// descriptor's identity and velocities.
func removeSeamFragment(tl *timeline.Timeline, d splitDescriptor, offTick, onTick int64) {
	if d.track >= len(tl.Tracks) {
		return
	}
	track := tl.Tracks[d.track]
	for i, ev := range track {
		var ch, key, vel uint8
		if ev.Tick == offTick && ev.Message.GetNoteOff(&ch, &key, &vel) &&
			ch == d.channel && key == d.pitch && vel == d.offVelocity {
			track = slices.Delete(track, i, i+1)
			break
		}
	}
	for i, ev := range track {
		var ch, key, vel uint8
		if ev.Tick == onTick && ev.Message.GetNoteStart(&ch, &key, &vel) &&
			ch == d.channel && key == d.pitch && vel == d.onVelocity {
			track = slices.Delete(track, i, i+1)
			break
		}
	}
	tl.Tracks[d.track] = track
}

func lastTempoState(tl *timeline.Timeline, ms *slicer.MarkerSettings) (tempo, timeSig smf.Message) {
	var tempoTick, sigTick int64 = -1, -1
	for _, track := range tl.Tracks {
		for _, ev := range track {
			if slicer.IsMarker(ev.Message, ms.StartTag) || slicer.IsMarker(ev.Message, ms.EndTag) {
				continue
			}
			var bpm float64
			var num, denom, cpt, dsqpq uint8
			switch {
			case ev.Message.GetMetaTempo(&bpm):
				if ev.Tick >= tempoTick {
					tempo, tempoTick = ev.Message, ev.Tick
				}
			case ev.Message.GetMetaTimeSig(&num, &denom, &cpt, &dsqpq):
				if ev.Tick >= sigTick {
					timeSig, sigTick = ev.Message, ev.Tick
				}
			}
		}
	}
	return tempo, timeSig
}

func tailEmpty(tl *timeline.Timeline, b1 int64) bool {
	for _, track := range tl.Tracks {
		if len(track) > 0 && track[len(track)-1].Tick > b1 {
			return false
		}
	}
	return true
}

func injectAtSeam(tl *timeline.Timeline, seam int64, tempo, timeSig smf.Message) {
	if len(tl.Tracks) == 0 {
		return
	}
	var inject timeline.Track
	if timeSig != nil {
		inject = append(inject, timeline.Event{Tick: seam, Message: timeSig})
	}
	if tempo != nil {
		inject = append(inject, timeline.Event{Tick: seam, Message: tempo})
	}
	if len(inject) > 0 {
		tl.Tracks[0] = append(tl.Tracks[0], inject...)
	}
}

func rebaseToFirstEvent(tl *timeline.Timeline) {
	anchor := int64(math.MaxInt64)
	for _, track := range tl.Tracks {
		if len(track) > 0 && track[0].Tick < anchor {
			anchor = track[0].Tick
		}
	}
	if anchor != int64(math.MaxInt64) && anchor > 0 {
		tl.Shift(-anchor)
	}
}
