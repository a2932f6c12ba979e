package live

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhinav24jha/blank-slate/internal/metrics"
	"github.com/abhinav24jha/blank-slate/internal/runlog"
)

// writeRun lays down one env's meta and event log under runsDir.
func writeRun(t *testing.T, runsDir, envKey string, recs []runlog.Record) {
	t.Helper()
	dir := filepath.Join(runsDir, envKey)
	l, err := runlog.OpenLog(dir)
	require.NoError(t, err)
	require.NoError(t, runlog.WriteMeta(dir, runlog.RunMeta{
		ExpID: "exp_live", EnvKey: envKey, ScenarioID: envKey,
		AgentCount: 4, DurationS: 40, Bins: 4,
	}))
	for _, r := range recs {
		require.NoError(t, l.Append(r))
	}
	require.NoError(t, l.Close())
}

func TestReplay(t *testing.T) {
	agg := metrics.NewAggregator("exp", "env1", 4, 40)
	agg.StartRun(2)
	Replay(agg, []runlog.Record{
		{Kind: runlog.KindDecision, Agent: "E0", Category: "cafe", TS: 1},
		{Kind: runlog.KindArrival, Agent: "E0", Category: "cafe", TS: 9, PathLenCells: 10, TravelTimeS: 8},
		{Kind: runlog.KindPurchase, Agent: "E0", Category: "cafe", TS: 9, Amount: 12},
		{Kind: "unknown", Agent: "E0", TS: 10},
	})
	assert.Equal(t, 1, agg.TotalDecisions())
	assert.Equal(t, 1, agg.TotalArrivals())
	assert.InDelta(t, 12, agg.TotalSpend(), 1e-9)
}

func TestPublishComposesDocument(t *testing.T) {
	runsDir := t.TempDir()
	writeRun(t, runsDir, "env1", []runlog.Record{
		{Kind: runlog.KindDecision, Agent: "E0", Category: "cafe", TS: 1},
		{Kind: runlog.KindArrival, Agent: "E0", Category: "cafe", TS: 8, PathLenCells: 20, TravelTimeS: 11},
		{Kind: runlog.KindPurchase, Agent: "E0", Category: "cafe", TS: 8, Amount: 20},
	})
	writeRun(t, runsDir, "env2", []runlog.Record{
		{Kind: runlog.KindDecision, Agent: "E0", Category: "cafe", TS: 1},
		{Kind: runlog.KindArrival, Agent: "E0", Category: "cafe", TS: 5, PathLenCells: 8, TravelTimeS: 4},
		{Kind: runlog.KindPurchase, Agent: "E0", Category: "cafe", TS: 5, Amount: 10},
	})

	out := filepath.Join(t.TempDir(), "analytics.json")
	p := NewPublisher(runsDir, out, 4, 40, time.Hour)
	require.NoError(t, p.publish())

	var doc metrics.Analytics
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Len(t, doc.Metrics.Efficiency.Env1, 4)
	assert.Len(t, doc.Metrics.Efficiency.Env2, 4)
	assert.Equal(t, 4, doc.Metadata.DataPoints)

	// env2 spends half the baseline in bin 0, a 50% reduction.
	assert.InDelta(t, 50, doc.Metrics.Cost.Env2[0].Y, 1e-9)
}

func TestPublishHonorsRunBins(t *testing.T) {
	runsDir := t.TempDir()
	writeRun(t, runsDir, "env1", []runlog.Record{
		{Kind: runlog.KindDecision, Agent: "E0", Category: "cafe", TS: 1},
	})

	out := filepath.Join(t.TempDir(), "analytics.json")
	// Configured with a different granularity than the run recorded.
	p := NewPublisher(runsDir, out, 2, 40, time.Hour)
	require.NoError(t, p.publish())

	var doc metrics.Analytics
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Len(t, doc.Metrics.Efficiency.Env1, 4, "the run's own binning wins over the publisher's")
}

func TestPublishSkipsEmptyRunsDir(t *testing.T) {
	out := filepath.Join(t.TempDir(), "analytics.json")
	p := NewPublisher(t.TempDir(), out, 4, 40, time.Hour)
	require.NoError(t, p.publish())
	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err), "nothing to publish, nothing written")
}

func TestRunFinalCycleOnCancel(t *testing.T) {
	runsDir := t.TempDir()
	writeRun(t, runsDir, "env1", []runlog.Record{
		{Kind: runlog.KindDecision, Agent: "E0", Category: "cafe", TS: 1},
	})

	out := filepath.Join(t.TempDir(), "analytics.json")
	p := NewPublisher(runsDir, out, 4, 40, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, p.Run(ctx))

	_, err := os.Stat(out)
	assert.NoError(t, err, "cancellation still publishes one final document")
}
