// Series derivation — pure functions over frozen aggregator state.
package metrics

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Point is one chart sample: x is the bin index, y the derived value.
type Point struct {
	X int     `json:"x"`
	Y float64 `json:"y"`
}

// Series holds the three derived per-bin series for one scenario.
type Series struct {
	Efficiency []Point `json:"efficiency"`
	Cost       []Point `json:"cost"`
	TimeSaved  []Point `json:"time_saved"`
}

const (
	walkPenaltyFactor = 0.05
	minDistScale      = 200.0
	timeSavedScale    = 10.0
	spendEpsilon      = 1e-6
)

// Summarize derives the efficiency, cost, and time-saved series, comparing
// against baseline when non-nil. Pure over aggregator state: repeated calls
// return identical values. Summarizing the baseline against itself yields a
// zero cost series.
func (a *Aggregator) Summarize(baseline *Aggregator) Series {
	agents := float64(a.agentCount)
	distScale := math.Max(minDistScale, sum(a.WalkCells)/agents)

	var baseAvgTime float64
	if baseline != nil {
		if byCat := baseline.avgCatTime(); len(byCat) > 0 {
			for _, v := range byCat {
				baseAvgTime += v
			}
			baseAvgTime /= float64(len(byCat))
		}
	}

	s := Series{
		Efficiency: make([]Point, a.Bins),
		Cost:       make([]Point, a.Bins),
		TimeSaved:  make([]Point, a.Bins),
	}
	for i := 0; i < a.Bins; i++ {
		successes := float64(a.Arrivals[i]) / agents
		penalty := walkPenaltyFactor * (a.WalkCells[i] / (agents * distScale))
		s.Efficiency[i] = Point{X: i, Y: 100 * clamp(successes-penalty, 0, 1)}

		if baseline != nil {
			// Identical spend is exactly zero reduction, even when both
			// bins are empty and the epsilon guard would skew the ratio.
			y := 0.0
			if a.Spend[i] != baseline.Spend[i] {
				y = 100 * (baseline.Spend[i] - a.Spend[i]) / math.Max(spendEpsilon, baseline.Spend[i])
			}
			s.Cost[i] = Point{X: i, Y: y}
		} else {
			s.Cost[i] = Point{X: i, Y: math.Min(100, timeSavedScale*math.Sqrt(a.Spend[i]+1))}
		}

		ts := 0.0
		if baseline != nil && a.Arrivals[i] > 0 {
			avgS := a.TravelTime[i] / math.Max(1, float64(a.Arrivals[i]))
			ts = math.Max(0, baseAvgTime-avgS) * timeSavedScale
		}
		s.TimeSaved[i] = Point{X: i, Y: ts}
	}
	return s
}

func sum(vs []float64) float64 {
	t := 0.0
	for _, v := range vs {
		t += v
	}
	return t
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
