// Package sim runs one scenario's tick loop: decisions, travel along A*
// paths, arrival and purchase events, and need decay. One Runner owns its
// agents and its aggregator; nothing else touches them while it runs.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/abhinav24jha/blank-slate/internal/agents"
	"github.com/abhinav24jha/blank-slate/internal/brain"
	"github.com/abhinav24jha/blank-slate/internal/grid"
	"github.com/abhinav24jha/blank-slate/internal/metrics"
	"github.com/abhinav24jha/blank-slate/internal/nav"
	"github.com/abhinav24jha/blank-slate/internal/runlog"
	"github.com/abhinav24jha/blank-slate/internal/scenario"
)

// Purchase model constants.
const (
	purchaseProb      = 0.7
	purchaseMin       = 5.0
	purchaseMax       = 25.0
	scenarioBoostMin  = 1.3
	scenarioBoostMax  = 2.5
	defaultTickS      = 0.5
	defaultWalkSpeedM = 1.4 // m/s, pedestrian pace
)

// Spawn modes.
const (
	SpawnCenter    = "center"
	SpawnRandomAll = "random_all"
	SpawnCluster   = "cluster"

	clusterJitterM = 60.0 // gaussian sigma around the cluster center
)

// Options configures one scenario run.
type Options struct {
	Seed       int64
	AgentCount int
	DurationS  float64
	TickS      float64 // simulated seconds per tick; 0 selects 0.5
	Speed      float64 // wall pacing multiplier; 0 runs as fast as possible
	WalkSpeed  float64 // m/s; 0 selects 1.4
	SpawnMode  string  // center, random_all, or cluster; "" selects center

	// MeetingProb is the per-tick chance that idle agents decide under a
	// social-meeting context. Zero disables meetings.
	MeetingProb float64
}

func (o *Options) tick() float64 {
	if o.TickS > 0 {
		return o.TickS
	}
	return defaultTickS
}

func (o *Options) walkSpeed() float64 {
	if o.WalkSpeed > 0 {
		return o.WalkSpeed
	}
	return defaultWalkSpeedM
}

// agentState tracks one agent's current trip. A nil path means idle.
type agentState struct {
	agent    *agents.Agent
	path     []grid.Cell
	pathPos  float64 // fractional index into path
	category string
	targetID int // index into pois, -1 when none
	departT  float64
	fallback bool // intent came from the deterministic fallback
}

// Runner executes one scenario simulation.
type Runner struct {
	g     *grid.Grid
	pois  []grid.POI
	scn   *scenario.Scenario
	dec   brain.Decider
	agg   *metrics.Aggregator
	log   *runlog.Log
	opts  Options
	rng   *rand.Rand // purchase and meeting draws
	state []*agentState
}

// NewRunner assembles a runner. scn may be nil for a plain baseline run;
// log may be nil when no event log is wanted.
func NewRunner(g *grid.Grid, pois []grid.POI, scn *scenario.Scenario, dec brain.Decider, agg *metrics.Aggregator, log *runlog.Log, opts Options) *Runner {
	return &Runner{
		g:    g,
		pois: pois,
		scn:  scn,
		dec:  dec,
		agg:  agg,
		log:  log,
		opts: opts,
		rng:  rand.New(rand.NewSource(opts.Seed + 500)),
	}
}

// Run executes the tick loop until duration elapses or ctx is done. A
// cancelled context finishes the current tick and returns ctx.Err(); the
// aggregator stays valid either way.
func (r *Runner) Run(ctx context.Context) error {
	if r.opts.AgentCount < 1 {
		return fmt.Errorf("agent count must be positive, got %d", r.opts.AgentCount)
	}

	cells, err := r.spawnCells()
	if err != nil {
		return err
	}

	var biases map[string]float64
	title := ""
	if r.scn != nil {
		biases = agents.BuildNeedBiases(r.scn)
		title = r.scn.Title
	}

	spawner := agents.NewSpawner(r.opts.Seed)
	for _, a := range spawner.SpawnAtCells(cells, biases) {
		r.state = append(r.state, &agentState{agent: a, targetID: -1})
	}
	r.agg.StartRun(len(r.state))

	tickS := r.opts.tick()
	cellM := float64(r.g.CellM)
	if cellM <= 0 {
		cellM = 1.0 // navgraph bundle absent, treat cells as 1 m
	}
	cellsPerS := r.opts.walkSpeed() / cellM
	steps := int(math.Ceil(r.opts.DurationS / tickS))

	slog.Info("simulation start",
		"env", r.agg.EnvKey, "agents", len(r.state), "steps", steps, "tick_s", tickS)

	var cancelled error
	for step := 0; step < steps; step++ {
		t := float64(step) * tickS

		r.decide(ctx, t, biases, title)
		r.travel(t, tickS, cellsPerS)
		for _, st := range r.state {
			agents.DecayAndReinforce(st.agent.Needs, tickS, biases)
		}

		if r.opts.Speed > 0 {
			time.Sleep(time.Duration(tickS / r.opts.Speed * float64(time.Second)))
		}

		select {
		case <-ctx.Done():
			cancelled = ctx.Err()
		default:
		}
		if cancelled != nil {
			break
		}
	}

	slog.Info("simulation done",
		"env", r.agg.EnvKey,
		"decisions", r.agg.TotalDecisions(),
		"arrivals", r.agg.TotalArrivals())
	return cancelled
}

// spawnCell finds a walkable cell at or near the grid center.
func (r *Runner) spawnCell() (grid.Cell, bool) {
	maxR := r.g.H
	if r.g.W > maxR {
		maxR = r.g.W
	}
	return nav.SnapToWalkable(r.g, r.g.H/2, r.g.W/2, maxR)
}

// spawnCells places the population per the configured spawn mode. The
// placement RNG is its own stream so changing modes never perturbs the
// purchase or persona draws.
func (r *Runner) spawnCells() ([]grid.Cell, error) {
	center, ok := r.spawnCell()
	if !ok {
		return nil, fmt.Errorf("no walkable spawn cell in %dx%d grid", r.g.H, r.g.W)
	}
	n := r.opts.AgentCount

	switch r.opts.SpawnMode {
	case "", SpawnCenter:
		cells := make([]grid.Cell, n)
		for i := range cells {
			cells[i] = center
		}
		return cells, nil

	case SpawnRandomAll:
		rng := rand.New(rand.NewSource(r.opts.Seed + 700))
		var walk []grid.Cell
		for iy := 0; iy < r.g.H; iy++ {
			for ix := 0; ix < r.g.W; ix++ {
				if r.g.IsWalkable(iy, ix) {
					walk = append(walk, grid.Cell{IY: iy, IX: ix})
				}
			}
		}
		rng.Shuffle(len(walk), func(i, j int) { walk[i], walk[j] = walk[j], walk[i] })
		cells := make([]grid.Cell, n)
		for i := range cells {
			cells[i] = walk[i%len(walk)]
		}
		return cells, nil

	case SpawnCluster:
		rng := rand.New(rand.NewSource(r.opts.Seed + 700))
		cellM := float64(r.g.CellM)
		if cellM <= 0 {
			cellM = 1.0
		}
		sigma := math.Max(1, clusterJitterM/cellM)
		cells := make([]grid.Cell, 0, n)
		for tries := 0; tries < n*5 && len(cells) < n; tries++ {
			jy := center.IY + int(math.Round(rng.NormFloat64()*sigma))
			jx := center.IX + int(math.Round(rng.NormFloat64()*sigma))
			if r.g.IsWalkable(jy, jx) {
				cells = append(cells, grid.Cell{IY: jy, IX: jx})
			}
		}
		// The attempt pool can run dry on sparse grids; the remainder
		// lands on the cluster center.
		for len(cells) < n {
			cells = append(cells, center)
		}
		return cells, nil
	}
	return nil, fmt.Errorf("unknown spawn mode %q", r.opts.SpawnMode)
}

// decide records one decision per agent per tick: idle agents consult the
// decider and resolve a fresh target, en-route agents reaffirm their
// current intent. A decision with no reachable POI is still recorded; the
// agent stays put. Every bin therefore holds at least as many decisions as
// arrivals.
func (r *Runner) decide(ctx context.Context, t float64, biases map[string]float64, title string) {
	var idle []*agentState
	for _, st := range r.state {
		if st.path != nil {
			r.agg.RecordDecision(t)
			r.emit(runlog.Record{
				Kind:     runlog.KindDecision,
				Agent:    st.agent.ID,
				Category: st.category,
				TS:       t,
				Fallback: st.fallback,
			})
			continue
		}
		idle = append(idle, st)
	}
	if len(idle) == 0 {
		return
	}

	batch := make([]*agents.Agent, len(idle))
	for i, st := range idle {
		batch[i] = st.agent
	}
	dc := &brain.Context{
		TimeS:     t,
		TimeOfDay: brain.TimeOfDay(t),
		Biases:    biases,
		Scenario:  title,
		Meeting:   r.opts.MeetingProb > 0 && r.rng.Float64() < r.opts.MeetingProb,
	}
	decisions := brain.DecideBatch(ctx, r.dec, batch, dc)

	for i, st := range idle {
		d := decisions[i]
		r.agg.RecordDecision(t)
		r.emit(runlog.Record{
			Kind:     runlog.KindDecision,
			Agent:    st.agent.ID,
			Category: d.Category,
			TS:       t,
			Thought:  d.Thought,
			Fallback: d.Fallback,
		})
		agents.AppendMemory(st.agent, agents.MemoryEvent{
			TS:   fmt.Sprintf("%.1f", t),
			Kind: "decision",
			Text: d.Memory,
		})

		from := r.cellOf(st)
		pi, path := nav.NearestPOIPath(r.g, r.pois, d.Category, from)
		if path == nil {
			slog.Debug("no reachable target", "agent", st.agent.ID, "category", d.Category)
			continue
		}
		st.path = path
		st.pathPos = 0
		st.category = d.Category
		st.targetID = pi
		st.departT = t
		st.fallback = d.Fallback
	}
}

// travel advances en-route agents and emits arrival and purchase events.
func (r *Runner) travel(t, tickS, cellsPerS float64) {
	for _, st := range r.state {
		if st.path == nil {
			continue
		}
		st.pathPos += cellsPerS * tickS
		last := float64(len(st.path) - 1)
		if st.pathPos < last {
			c := st.path[int(st.pathPos)]
			st.agent.Y, st.agent.X = float64(c.IY), float64(c.IX)
			continue
		}

		// Arrived.
		dst := st.path[len(st.path)-1]
		st.agent.Y, st.agent.X = float64(dst.IY), float64(dst.IX)
		travelTime := (t + tickS) - st.departT
		pathLen := len(st.path)
		r.agg.RecordArrival(st.category, pathLen, travelTime, t)
		r.emit(runlog.Record{
			Kind:         runlog.KindArrival,
			Agent:        st.agent.ID,
			Category:     st.category,
			TS:           t,
			PathLenCells: pathLen,
			TravelTimeS:  travelTime,
		})
		agents.AppendMemory(st.agent, agents.MemoryEvent{
			TS:   fmt.Sprintf("%.1f", t),
			Kind: "arrival",
			Text: "arrived at a " + st.category,
		})

		r.maybePurchase(st, t)

		st.path = nil
		st.pathPos = 0
		st.targetID = -1
	}
}

// maybePurchase draws the purchase model on arrival. POIs the scenario
// added carry an origin tag and take a spend boost.
func (r *Runner) maybePurchase(st *agentState, t float64) {
	if r.rng.Float64() >= purchaseProb {
		return
	}
	amount := purchaseMin + r.rng.Float64()*(purchaseMax-purchaseMin)
	if st.targetID >= 0 && st.targetID < len(r.pois) {
		if tag, ok := r.pois[st.targetID].Tags[scenario.OriginTag]; ok && tag == scenario.OriginScenario {
			amount *= scenarioBoostMin + r.rng.Float64()*(scenarioBoostMax-scenarioBoostMin)
		}
	}
	r.agg.RecordPurchase(amount, t)
	r.emit(runlog.Record{
		Kind:     runlog.KindPurchase,
		Agent:    st.agent.ID,
		Category: st.category,
		TS:       t,
		Amount:   amount,
	})
}

// MemoryRecords snapshots every agent's memory stream, in agent order,
// for per-run persistence.
func (r *Runner) MemoryRecords() []runlog.MemoryRecord {
	var out []runlog.MemoryRecord
	for _, st := range r.state {
		for _, m := range st.agent.Memory {
			out = append(out, runlog.MemoryRecord{
				Agent: st.agent.ID,
				TS:    m.TS,
				Kind:  m.Kind,
				Text:  m.Text,
			})
		}
	}
	return out
}

func (r *Runner) cellOf(st *agentState) grid.Cell {
	return grid.Cell{IY: int(math.Round(st.agent.Y)), IX: int(math.Round(st.agent.X))}
}

func (r *Runner) emit(rec runlog.Record) {
	if r.log == nil {
		return
	}
	if err := r.log.Append(rec); err != nil {
		slog.Warn("event log append failed", "env", r.agg.EnvKey, "error", err)
	}
}
