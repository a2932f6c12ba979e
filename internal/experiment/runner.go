// Package experiment orchestrates a set of scenario runs against one
// baseline: materialize assets, run workers concurrently, compose and
// atomically publish the final analytics document.
package experiment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/abhinav24jha/blank-slate/internal/brain"
	"github.com/abhinav24jha/blank-slate/internal/grid"
	"github.com/abhinav24jha/blank-slate/internal/metrics"
	"github.com/abhinav24jha/blank-slate/internal/runlog"
	"github.com/abhinav24jha/blank-slate/internal/scenario"
	"github.com/abhinav24jha/blank-slate/internal/sim"
)

// ErrNoDecisions reports that at least one scenario ended with an empty
// aggregator; the analytics document is still produced.
var ErrNoDecisions = errors.New("scenario produced no decision events")

const (
	defaultWorkers     = 4
	defaultSlackFactor = 2.0
	envSeedStride      = 1000
)

// Options configures one experiment.
type Options struct {
	Seed        int64
	AgentCount  int
	DurationS   float64
	Bins        int
	Speed       float64
	SpawnMode   string
	MeetingProb float64
	BaselineDir string
	OutDir      string
	StorePath   string  // optional SQLite run store
	Workers     int     // 0 selects 4
	SlackFactor float64 // wall timeout = duration * (1 + slack); 0 selects 2
}

func (o *Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return defaultWorkers
}

func (o *Options) wallTimeout() time.Duration {
	slack := o.SlackFactor
	if slack <= 0 {
		slack = defaultSlackFactor
	}
	return time.Duration(o.DurationS * (1 + slack) * float64(time.Second))
}

// EnvRun is one environment's outcome. env1 is always the baseline.
type EnvRun struct {
	EnvKey     string
	ScenarioID string
	Scenario   *scenario.Scenario // nil for the baseline
	AssetsDir  string
	RunDir     string
	Agg        *metrics.Aggregator
	Err        error
}

// Result is the experiment outcome.
type Result struct {
	ExpID         string
	Dir           string
	AnalyticsPath string
	Envs          []*EnvRun
}

// Run executes the baseline plus the given scenarios, composes the
// analytics document, and writes it atomically. A non-nil error means at
// least one environment failed or recorded no decisions; the document is
// written regardless as long as composition is possible.
func Run(ctx context.Context, scenarios []*scenario.Scenario, dec brain.Decider, opts Options) (*Result, error) {
	expID := "exp_" + uuid.NewString()[:8]
	dir := filepath.Join(opts.OutDir, expID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create experiment dir: %w", err)
	}

	var store *runlog.Store
	if opts.StorePath != "" {
		var err error
		if store, err = runlog.OpenStore(opts.StorePath); err != nil {
			slog.Warn("run store unavailable", "path", opts.StorePath, "error", err)
		} else {
			defer store.Close()
		}
	}

	envs := materialize(dir, scenarios, opts)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for i, env := range envs {
		if env.Err != nil {
			continue
		}
		seed := opts.Seed + int64(i)*envSeedStride
		g.Go(func() error {
			env.Err = runEnv(gctx, env, dec, store, expID, seed, opts)
			// Environment failures never abort siblings.
			return nil
		})
	}
	_ = g.Wait()

	res := &Result{
		ExpID:         expID,
		Dir:           dir,
		AnalyticsPath: filepath.Join(dir, "analytics.json"),
		Envs:          envs,
	}

	series := composeSeries(envs)
	doc := metrics.BuildAnalytics(series, opts.Bins)
	if err := metrics.NewWriter(res.AnalyticsPath).Write(doc); err != nil {
		return res, err
	}

	return res, checkDecisions(envs)
}

// materialize prepares per-environment asset directories. env1 reuses the
// baseline assets; each scenario gets its own diffed copy.
func materialize(dir string, scenarios []*scenario.Scenario, opts Options) []*EnvRun {
	envs := []*EnvRun{{
		EnvKey:     "env1",
		ScenarioID: "baseline",
		AssetsDir:  opts.BaselineDir,
		RunDir:     filepath.Join(dir, "runs", "env1"),
	}}

	for i, scn := range scenarios {
		envKey := fmt.Sprintf("env%d", i+2)
		env := &EnvRun{
			EnvKey:     envKey,
			ScenarioID: scn.ID,
			Scenario:   scn,
			AssetsDir:  filepath.Join(dir, "assets", envKey),
			RunDir:     filepath.Join(dir, "runs", envKey),
		}
		if _, err := scenario.Materialize(opts.BaselineDir, scn, env.AssetsDir); err != nil {
			env.Err = fmt.Errorf("materialize %s: %w", scn.ID, err)
			slog.Error("materialization failed", "env", envKey, "scenario", scn.ID, "error", err)
		}
		envs = append(envs, env)
	}
	return envs
}

// runEnv loads assets and runs one scenario to completion.
func runEnv(ctx context.Context, env *EnvRun, dec brain.Decider, store *runlog.Store, expID string, seed int64, opts Options) error {
	gr, pois, err := grid.Load(env.AssetsDir)
	if err != nil {
		return fmt.Errorf("load assets: %w", err)
	}

	log, err := runlog.OpenLog(env.RunDir)
	if err != nil {
		return fmt.Errorf("open run log: %w", err)
	}
	defer log.Close()

	meta := runlog.RunMeta{
		ExpID:      expID,
		EnvKey:     env.EnvKey,
		ScenarioID: env.ScenarioID,
		Seed:       seed,
		AgentCount: opts.AgentCount,
		DurationS:  opts.DurationS,
		Bins:       opts.Bins,
		StartedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if err := runlog.WriteMeta(env.RunDir, meta); err != nil {
		return err
	}
	if store != nil {
		if err := store.InsertRun(meta); err != nil {
			slog.Warn("run store insert failed", "env", env.EnvKey, "error", err)
		}
	}

	env.Agg = metrics.NewAggregator(expID, env.EnvKey, opts.Bins, opts.DurationS)
	runner := sim.NewRunner(gr, pois, env.Scenario, dec, env.Agg, log, sim.Options{
		Seed:        seed,
		AgentCount:  opts.AgentCount,
		DurationS:   opts.DurationS,
		Speed:       opts.Speed,
		SpawnMode:   opts.SpawnMode,
		MeetingProb: opts.MeetingProb,
	})

	runCtx, cancel := context.WithTimeout(ctx, opts.wallTimeout())
	defer cancel()
	runErr := runner.Run(runCtx)

	if err := runlog.WriteMemories(env.RunDir, runner.MemoryRecords()); err != nil {
		slog.Warn("memories write failed", "env", env.EnvKey, "error", err)
	}

	status := "done"
	switch {
	case errors.Is(runErr, context.DeadlineExceeded):
		status = "timeout"
		runErr = fmt.Errorf("scenario %s exceeded wall timeout: %w", env.ScenarioID, runErr)
	case errors.Is(runErr, context.Canceled):
		// Graceful shutdown: partial aggregator stands.
		status = "cancelled"
		runErr = nil
	}

	finishEnv(env, store, expID, status)
	return runErr
}

// finishEnv writes the run summary and closes out the store row.
func finishEnv(env *EnvRun, store *runlog.Store, expID, status string) {
	summary := map[string]any{
		"env_key":     env.EnvKey,
		"scenario_id": env.ScenarioID,
		"status":      status,
		"decisions":   env.Agg.TotalDecisions(),
		"arrivals":    env.Agg.TotalArrivals(),
		"spend":       env.Agg.TotalSpend(),
		"by_category": env.Agg.ArrivalsByCategory(),
		"amount_unit": "dollars per visit",
	}
	if data, err := json.MarshalIndent(summary, "", "  "); err == nil {
		if err := os.WriteFile(filepath.Join(env.RunDir, "summary.json"), data, 0o644); err != nil {
			slog.Warn("summary write failed", "env", env.EnvKey, "error", err)
		}
	}

	if store == nil {
		return
	}
	finished := time.Now().UTC().Format(time.RFC3339)
	if err := store.FinishRun(expID, env.EnvKey, status, finished,
		env.Agg.TotalDecisions(), env.Agg.TotalArrivals(), env.Agg.TotalSpend()); err != nil {
		slog.Warn("run store finish failed", "env", env.EnvKey, "error", err)
	}
	if recs, err := runlog.ScanEvents(env.RunDir); err == nil {
		if err := store.SaveEvents(expID, env.EnvKey, recs); err != nil {
			slog.Warn("run store events failed", "env", env.EnvKey, "error", err)
		}
	}
	if mems, err := runlog.ScanMemories(env.RunDir); err == nil {
		if err := store.SaveMemories(expID, env.EnvKey, mems); err != nil {
			slog.Warn("run store memories failed", "env", env.EnvKey, "error", err)
		}
	}
}

// composeSeries summarizes every environment: the baseline with no
// reference, the rest against the baseline aggregator. Environments that
// never ran yield empty series so the document always parses.
func composeSeries(envs []*EnvRun) map[string]metrics.Series {
	var baseline *metrics.Aggregator
	for _, env := range envs {
		if env.EnvKey == "env1" && env.Agg != nil {
			baseline = env.Agg
		}
	}

	out := make(map[string]metrics.Series, len(envs))
	for _, env := range envs {
		if env.Agg == nil {
			continue
		}
		if env.EnvKey == "env1" {
			out[env.EnvKey] = env.Agg.Summarize(nil)
		} else {
			out[env.EnvKey] = env.Agg.Summarize(baseline)
		}
	}
	return out
}

func checkDecisions(envs []*EnvRun) error {
	var bad []string
	for _, env := range envs {
		if env.Err != nil {
			bad = append(bad, fmt.Sprintf("%s: %v", env.EnvKey, env.Err))
			continue
		}
		if env.Agg == nil || env.Agg.TotalDecisions() == 0 {
			bad = append(bad, fmt.Sprintf("%s: no decisions", env.EnvKey))
		}
	}
	if len(bad) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrNoDecisions, strings.Join(bad, "; "))
}
