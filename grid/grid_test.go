package grid

import (
	"testing"

	"midislicer/tempomap"

	"github.com/stretchr/testify/assert"
	"gitlab.com/gomidi/midi/v2/smf"
)

func TestSteppedRepeatsPatternPastDuration(t *testing.T) {
	tm := tempomap.New(smf.MetricTicks(480), 120, 2000)
	g := Stepped{Steps: []tempomap.Span{tempomap.Ticks(500)}}

	got, err := g.CutTimes(tm)

	assert := assert.New(t)
	assert.NoError(err)
	assert.Equal([]int64{500, 1000, 1500, 2000}, got)
}

func TestSteppedAlternatingSteps(t *testing.T) {
	tm := tempomap.New(smf.MetricTicks(480), 120, 1000)
	g := Stepped{Steps: []tempomap.Span{tempomap.Ticks(100), tempomap.Ticks(300)}}

	got, err := g.CutTimes(tm)

	assert := assert.New(t)
	assert.NoError(err)
	assert.Equal([]int64{100, 400, 500, 800, 900}, got)
}

func TestSteppedStartOffsetSuppressesZero(t *testing.T) {
	tm := tempomap.New(smf.MetricTicks(480), 120, 1000)

	assert := assert.New(t)
	// starting at 0 the origin is not a boundary
	g := Stepped{Steps: []tempomap.Span{tempomap.Ticks(400)}}
	got, err := g.CutTimes(tm)
	assert.NoError(err)
	assert.Equal([]int64{400, 800}, got)

	g.Start = tempomap.Ticks(250)
	got, err = g.CutTimes(tm)
	assert.NoError(err)
	assert.Equal([]int64{250, 650}, got)
}

func TestSteppedMetricBarSteps(t *testing.T) {
	// 4/4 at 480 tpq: one bar is 1920 ticks
	tm := tempomap.New(smf.MetricTicks(480), 120, 4000)
	g := Stepped{Steps: []tempomap.Span{tempomap.Metric(1, 0)}}

	got, err := g.CutTimes(tm)

	assert := assert.New(t)
	assert.NoError(err)
	assert.Equal([]int64{1920, 3840}, got)
}

func TestSteppedRejectsInvalidSteps(t *testing.T) {
	tm := tempomap.New(smf.MetricTicks(480), 120, 1000)

	cases := []struct {
		name  string
		steps []tempomap.Span
	}{
		{"no steps", nil},
		{"negative step", []tempomap.Span{tempomap.Ticks(-100)}},
		{"negative step in pattern", []tempomap.Span{tempomap.Ticks(200), tempomap.Ticks(-50)}},
		{"non-advancing pattern", []tempomap.Span{tempomap.Ticks(0), tempomap.Ticks(0)}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Stepped{Steps: c.steps}.CutTimes(tm)
			assert.Error(t, err)
		})
	}
}

func TestArbitrarySortsAndDropsNonPositive(t *testing.T) {
	tm := tempomap.New(smf.MetricTicks(480), 120, 4000)
	g := Arbitrary{Points: []tempomap.Span{
		tempomap.Ticks(900),
		tempomap.Ticks(0),
		tempomap.Ticks(300),
		tempomap.Metric(1, 0),
	}}

	got, err := g.CutTimes(tm)

	assert := assert.New(t)
	assert.NoError(err)
	assert.Equal([]int64{300, 900, 1920}, got)
}
