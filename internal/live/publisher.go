// Package live republishes the analytics document while scenarios are
// still running. It polls the per-run event logs, replays them through
// ephemeral aggregators, and atomically rewrites analytics.json so
// dashboard readers always see a complete document.
package live

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/abhinav24jha/blank-slate/internal/metrics"
	"github.com/abhinav24jha/blank-slate/internal/runlog"
)

// DefaultInterval is the republish cadence.
const DefaultInterval = time.Second

// Publisher watches a runs directory and keeps one analytics file fresh.
type Publisher struct {
	runsDir  string
	writer   *metrics.Writer
	interval time.Duration
	bins     int
	duration float64
}

// NewPublisher creates a publisher. interval <= 0 selects 1 s.
func NewPublisher(runsDir, outPath string, bins int, durationS float64, interval time.Duration) *Publisher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if bins < 1 {
		bins = metrics.DefaultBins
	}
	return &Publisher{
		runsDir:  runsDir,
		writer:   metrics.NewWriter(outPath),
		interval: interval,
		bins:     bins,
		duration: durationS,
	}
}

// Run polls until ctx is done, then performs one final cycle and returns.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	slog.Info("live publisher start", "runs", p.runsDir, "out", p.writer.Path())
	for {
		select {
		case <-ctx.Done():
			err := p.publish()
			slog.Info("live publisher stop", "error", err)
			return err
		case <-ticker.C:
			if err := p.publish(); err != nil {
				slog.Warn("live publish failed", "error", err)
			}
		}
	}
}

// publish replays every run log into fresh aggregators and writes the
// composed document.
func (p *Publisher) publish() error {
	aggs := p.replayAll()
	if len(aggs) == 0 {
		return nil
	}

	baseline := aggs["env1"]
	series := make(map[string]metrics.Series, len(aggs))
	for env, agg := range aggs {
		if env == "env1" || baseline == nil {
			series[env] = agg.Summarize(nil)
		} else {
			series[env] = agg.Summarize(baseline)
		}
	}
	return p.writer.Write(metrics.BuildAnalytics(series, p.bins))
}

// replayAll scans run directories and rebuilds one aggregator per env.
// Aggregators are ephemeral: rebuilt from scratch every cycle so partial
// log reads can never accumulate drift.
func (p *Publisher) replayAll() map[string]*metrics.Aggregator {
	entries, err := os.ReadDir(p.runsDir)
	if err != nil {
		return nil
	}

	aggs := make(map[string]*metrics.Aggregator)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(p.runsDir, e.Name())
		meta, err := runlog.ReadMeta(dir)
		if err != nil {
			continue
		}
		recs, err := runlog.ScanEvents(dir)
		if err != nil {
			slog.Debug("run log scan failed", "dir", dir, "error", err)
			continue
		}

		duration := meta.DurationS
		if duration <= 0 {
			duration = p.duration
		}
		// The run's own binning wins; the configured value only covers
		// logs recorded without one.
		bins := meta.Bins
		if bins < 1 {
			bins = p.bins
		}
		agg := metrics.NewAggregator(meta.ExpID, meta.EnvKey, bins, duration)
		agg.StartRun(meta.AgentCount)
		Replay(agg, recs)
		aggs[meta.EnvKey] = agg
	}
	return aggs
}

// Replay feeds records into an aggregator in log order.
func Replay(agg *metrics.Aggregator, recs []runlog.Record) {
	for _, r := range recs {
		switch r.Kind {
		case runlog.KindDecision:
			agg.RecordDecision(r.TS)
		case runlog.KindArrival:
			agg.RecordArrival(r.Category, r.PathLenCells, r.TravelTimeS, r.TS)
		case runlog.KindPurchase:
			agg.RecordPurchase(r.Amount, r.TS)
		}
	}
}
