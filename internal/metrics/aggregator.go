// Package metrics accumulates per-bin event counters for one scenario run
// and derives the efficiency, cost, and time-saved series published in the
// analytics document.
package metrics

import "math"

// DefaultBins is the canonical series length.
const DefaultBins = 25

// catStat accumulates travel time per destination category.
type catStat struct {
	Sum   float64
	Count int
}

// Aggregator owns all mutable per-scenario metric state. Exactly one
// simulation worker writes to it; readers wait for the worker to finish.
type Aggregator struct {
	ExpID  string
	EnvKey string // env1..envN, env1 is the baseline

	Bins      int
	DurationS float64
	binW      float64

	Decisions  []int
	Arrivals   []int
	WalkCells  []float64
	TravelTime []float64
	Spend      []float64

	agentCount int
	catTime    map[string]catStat
}

// NewAggregator creates an aggregator with bins*duration geometry. Values
// below their minimum are clamped.
func NewAggregator(expID, envKey string, bins int, durationS float64) *Aggregator {
	if bins < 1 {
		bins = 1
	}
	if durationS < 1 {
		durationS = 1
	}
	return &Aggregator{
		ExpID:      expID,
		EnvKey:     envKey,
		Bins:       bins,
		DurationS:  durationS,
		binW:       durationS / float64(bins),
		Decisions:  make([]int, bins),
		Arrivals:   make([]int, bins),
		WalkCells:  make([]float64, bins),
		TravelTime: make([]float64, bins),
		Spend:      make([]float64, bins),
		agentCount: 1,
		catTime:    make(map[string]catStat),
	}
}

// StartRun records the population size used to normalize efficiency.
func (a *Aggregator) StartRun(agentCount int) {
	if agentCount < 1 {
		agentCount = 1
	}
	a.agentCount = agentCount
}

// BinIdx maps a simulated timestamp onto a bin, clamping into [0, Bins).
func (a *Aggregator) BinIdx(tS float64) int {
	idx := int(math.Floor(math.Max(0, tS) / a.binW))
	if idx >= a.Bins {
		idx = a.Bins - 1
	}
	return idx
}

// RecordDecision counts one destination decision.
func (a *Aggregator) RecordDecision(tS float64) {
	a.Decisions[a.BinIdx(tS)]++
}

// RecordArrival counts one arrival with its walked path and travel time.
func (a *Aggregator) RecordArrival(category string, pathLenCells int, travelTimeS, tS float64) {
	bi := a.BinIdx(tS)
	a.Arrivals[bi]++
	a.WalkCells[bi] += float64(pathLenCells)
	a.TravelTime[bi] += travelTimeS
	st := a.catTime[category]
	st.Sum += travelTimeS
	st.Count++
	a.catTime[category] = st
}

// RecordPurchase adds a spend amount to the event's bin.
func (a *Aggregator) RecordPurchase(amount, tS float64) {
	a.Spend[a.BinIdx(tS)] += amount
}

// TotalDecisions sums decision counts across all bins.
func (a *Aggregator) TotalDecisions() int {
	n := 0
	for _, d := range a.Decisions {
		n += d
	}
	return n
}

// TotalArrivals sums arrival counts across all bins.
func (a *Aggregator) TotalArrivals() int {
	n := 0
	for _, v := range a.Arrivals {
		n += v
	}
	return n
}

// TotalSpend sums spend across all bins.
func (a *Aggregator) TotalSpend() float64 {
	s := 0.0
	for _, v := range a.Spend {
		s += v
	}
	return s
}

// ArrivalsByCategory returns per-category arrival counts.
func (a *Aggregator) ArrivalsByCategory() map[string]int {
	out := make(map[string]int, len(a.catTime))
	for cat, st := range a.catTime {
		out[cat] = st.Count
	}
	return out
}

// avgCatTime returns mean travel time per category with at least one arrival.
func (a *Aggregator) avgCatTime() map[string]float64 {
	out := make(map[string]float64, len(a.catTime))
	for cat, st := range a.catTime {
		if st.Count > 0 {
			out[cat] = st.Sum / float64(st.Count)
		}
	}
	return out
}
