// Package grid produces the ordered cut times a timeline is sliced at.
package grid

import (
	"fmt"
	"sort"

	"midislicer/tempomap"
)

// Grid is a finite, non-decreasing source of cut times. A cut time of
// exactly 0 denotes the file start, not a boundary, and is never exposed.
// An invalid grid configuration is an argument error.
type Grid interface {
	CutTimes(tm tempomap.TempoMap) ([]int64, error)
}

// Stepped lays boundaries from Start onward, advancing by the Steps
// pattern repeated until the tempo map's duration is passed. Every step
// must resolve to a non-negative tick count and the pattern as a whole
// must advance.
type Stepped struct {
	Start tempomap.Span
	Steps []tempomap.Span
}

func (g Stepped) CutTimes(tm tempomap.TempoMap) ([]int64, error) {
	if len(g.Steps) == 0 {
		return nil, fmt.Errorf("grid: at least one step is required")
	}
	steps := make([]int64, len(g.Steps))
	var total int64
	for i, s := range g.Steps {
		steps[i] = tm.ConvertToTicks(s)
		if steps[i] < 0 {
			return nil, fmt.Errorf("grid: step %v resolves to negative tick count %v", i, steps[i])
		}
		total += steps[i]
	}
	if total == 0 {
		return nil, fmt.Errorf("grid: step pattern does not advance")
	}

	var res []int64
	t := tm.ConvertToTicks(g.Start)
	end := tm.Duration()
	for i := 0; t <= end; i++ {
		if t > 0 {
			res = append(res, t)
		}
		t += steps[i%len(steps)]
	}
	return res, nil
}

// Arbitrary exposes explicitly given boundaries. Each point is converted
// through the tempo map once, non-positive points are dropped and the
// rest is sorted ascending.
type Arbitrary struct {
	Points []tempomap.Span
}

func (g Arbitrary) CutTimes(tm tempomap.TempoMap) ([]int64, error) {
	var res []int64
	for _, p := range g.Points {
		if t := tm.ConvertToTicks(p); t > 0 {
			res = append(res, t)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res, nil
}
