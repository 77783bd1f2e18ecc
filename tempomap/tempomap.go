// Package tempomap converts abstract time spans (ticks, wall-clock
// durations, bar/beat positions) into absolute ticks. The splitting
// policies only ever read a tempo map, never mutate one.
package tempomap

import (
	"sort"
	"time"

	"midislicer/timeline"

	"gitlab.com/gomidi/midi/v2/smf"
)

type spanKind int

const (
	ticksSpan spanKind = iota
	durationSpan
	metricSpan
)

// Span is an abstract length or position a TempoMap can resolve to ticks.
type Span struct {
	kind  spanKind
	ticks int64
	dur   time.Duration
	bars  int
	beats int
}

func Ticks(n int64) Span { return Span{kind: ticksSpan, ticks: n} }

func Duration(d time.Duration) Span { return Span{kind: durationSpan, dur: d} }

// Metric addresses a position bars whole bars plus beats beats from the
// start, under the time signatures in effect along the way.
func Metric(bars, beats int) Span { return Span{kind: metricSpan, bars: bars, beats: beats} }

type TempoMap interface {
	ConvertToTicks(s Span) int64
	Duration() int64
}

type tempoChange struct {
	tick int64
	bpm  float64
}

type timeSig struct {
	tick  int64
	num   uint8
	denom uint8
}

// Map is the concrete TempoMap built from a timeline's meta events.
type Map struct {
	ticks    smf.MetricTicks
	tempos   []tempoChange
	sigs     []timeSig
	duration int64
}

// New returns a map with a constant tempo and a 4/4 signature.
func New(ticks smf.MetricTicks, bpm float64, duration int64) *Map {
	return &Map{
		ticks:    ticks,
		tempos:   []tempoChange{{tick: 0, bpm: bpm}},
		sigs:     []timeSig{{tick: 0, num: 4, denom: 4}},
		duration: duration,
	}
}

// FromTimeline scans every track for tempo and time-signature events.
// Missing events fall back to 120 BPM and 4/4.
func FromTimeline(tl *timeline.Timeline) *Map {
	m := Map{ticks: tl.Ticks, duration: tl.Duration()}
	for _, track := range tl.Tracks {
		for _, ev := range track {
			var bpm float64
			var num, denom, cpt, dsqpq uint8
			switch {
			case ev.Message.GetMetaTempo(&bpm):
				m.tempos = append(m.tempos, tempoChange{tick: ev.Tick, bpm: bpm})
			case ev.Message.GetMetaTimeSig(&num, &denom, &cpt, &dsqpq):
				m.sigs = append(m.sigs, timeSig{tick: ev.Tick, num: num, denom: denom})
			}
		}
	}
	sort.SliceStable(m.tempos, func(i, j int) bool { return m.tempos[i].tick < m.tempos[j].tick })
	sort.SliceStable(m.sigs, func(i, j int) bool { return m.sigs[i].tick < m.sigs[j].tick })
	if len(m.tempos) == 0 || m.tempos[0].tick > 0 {
		m.tempos = append([]tempoChange{{tick: 0, bpm: 120}}, m.tempos...)
	}
	if len(m.sigs) == 0 || m.sigs[0].tick > 0 {
		m.sigs = append([]timeSig{{tick: 0, num: 4, denom: 4}}, m.sigs...)
	}
	return &m
}

func (m *Map) Duration() int64 {
	return m.duration
}

func (m *Map) ConvertToTicks(s Span) int64 {
	switch s.kind {
	case ticksSpan:
		return s.ticks
	case durationSpan:
		return m.durationToTicks(s.dur)
	case metricSpan:
		return m.metricToTicks(s.bars, s.beats)
	}
	panic("tempomap: unknown span kind")
}

// durationToTicks walks the tempo segments, spending the duration
// piecewise at each segment's rate.
func (m *Map) durationToTicks(d time.Duration) int64 {
	remaining := d.Seconds()
	var tick int64
	for i, tc := range m.tempos {
		secsPerTick := 60.0 / (tc.bpm * float64(m.ticks))
		if i+1 < len(m.tempos) {
			next := m.tempos[i+1].tick
			segSecs := float64(next-tc.tick) * secsPerTick
			if segSecs < remaining {
				remaining -= segSecs
				tick = next
				continue
			}
		}
		return tick + int64(remaining/secsPerTick+0.5)
	}
	return tick
}

// metricToTicks resolves bars whole bars plus beats beats, honoring
// time-signature changes between bars.
func (m *Map) metricToTicks(bars, beats int) int64 {
	var tick int64
	sig := m.sigs[0]
	next := 1
	for b := 0; b < bars; b++ {
		for next < len(m.sigs) && m.sigs[next].tick <= tick {
			sig = m.sigs[next]
			next++
		}
		tick += m.barLength(sig)
	}
	for next < len(m.sigs) && m.sigs[next].tick <= tick {
		sig = m.sigs[next]
		next++
	}
	return tick + int64(beats)*m.beatLength(sig)
}

func (m *Map) barLength(sig timeSig) int64 {
	return int64(sig.num) * m.beatLength(sig)
}

func (m *Map) beatLength(sig timeSig) int64 {
	return int64(m.ticks) * 4 / int64(sig.denom)
}
