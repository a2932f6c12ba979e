package metrics

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinIdxClamps(t *testing.T) {
	a := NewAggregator("exp", "env1", 5, 100)
	assert.Equal(t, 0, a.BinIdx(-3))
	assert.Equal(t, 0, a.BinIdx(0))
	assert.Equal(t, 2, a.BinIdx(45))
	assert.Equal(t, 4, a.BinIdx(99.9))
	assert.Equal(t, 4, a.BinIdx(5000))
}

func TestRecordingInvariants(t *testing.T) {
	a := NewAggregator("exp", "env1", 4, 40)
	a.StartRun(3)

	a.RecordDecision(1)
	a.RecordDecision(2)
	a.RecordArrival("cafe", 12, 6.0, 3)
	a.RecordDecision(15)
	a.RecordPurchase(9.5, 16)

	for i := 0; i < a.Bins; i++ {
		assert.GreaterOrEqual(t, a.Decisions[i], a.Arrivals[i], "bin %d", i)
		assert.GreaterOrEqual(t, a.Arrivals[i], 0, "bin %d", i)
	}
	assert.Equal(t, 3, a.TotalDecisions())
	assert.Equal(t, 1, a.TotalArrivals())
	assert.InDelta(t, 9.5, a.TotalSpend(), 1e-9)
	assert.Equal(t, map[string]int{"cafe": 1}, a.ArrivalsByCategory())
}

func TestSummarizeEfficiencyBounds(t *testing.T) {
	a := NewAggregator("exp", "env1", 10, 100)
	a.StartRun(5)
	for i := 0; i < 80; i++ {
		a.RecordDecision(float64(i))
		a.RecordArrival("cafe", 100, 8, float64(i))
	}

	s := a.Summarize(nil)
	require.Len(t, s.Efficiency, 10)
	for _, p := range s.Efficiency {
		assert.GreaterOrEqual(t, p.Y, 0.0)
		assert.LessOrEqual(t, p.Y, 100.0)
	}
}

func TestSummarizeBaselineSelfCostIsZero(t *testing.T) {
	a := NewAggregator("exp", "env1", 6, 60)
	a.StartRun(4)
	a.RecordPurchase(12, 5)
	a.RecordPurchase(7, 35)

	s := a.Summarize(a)
	for i, p := range s.Cost {
		assert.Zero(t, p.Y, "bin %d: spend compared against itself", i)
	}
	for _, p := range s.TimeSaved {
		assert.Zero(t, p.Y, "no arrivals means no time saved")
	}
}

func TestSummarizeCostReduction(t *testing.T) {
	base := NewAggregator("exp", "env1", 2, 20)
	base.StartRun(4)
	base.RecordPurchase(100, 1)
	base.RecordPurchase(100, 11)

	scn := NewAggregator("exp", "env2", 2, 20)
	scn.StartRun(4)
	scn.RecordPurchase(60, 1)
	scn.RecordPurchase(150, 11)

	s := scn.Summarize(base)
	assert.InDelta(t, 40, s.Cost[0].Y, 1e-9, "spend below baseline is positive reduction")
	assert.InDelta(t, -50, s.Cost[1].Y, 1e-9, "spend above baseline is negative")
}

func TestSummarizeTimeSaved(t *testing.T) {
	base := NewAggregator("exp", "env1", 1, 10)
	base.StartRun(2)
	base.RecordArrival("cafe", 10, 20, 1)
	base.RecordArrival("grocery", 10, 10, 2)

	scn := NewAggregator("exp", "env2", 1, 10)
	scn.StartRun(2)
	scn.RecordArrival("cafe", 10, 5, 1)

	// Baseline global average is (20+10)/2 = 15; scenario bin average 5.
	s := scn.Summarize(base)
	assert.InDelta(t, 100, s.TimeSaved[0].Y, 1e-9, "(15-5)*10")
}

func TestSummarizeIsPure(t *testing.T) {
	a := NewAggregator("exp", "env2", 4, 40)
	a.StartRun(3)
	a.RecordDecision(1)
	a.RecordArrival("cafe", 30, 4, 2)
	a.RecordPurchase(15, 3)

	first := a.Summarize(nil)
	second := a.Summarize(nil)
	assert.Equal(t, first, second)
}

func TestBuildAnalyticsShape(t *testing.T) {
	series := map[string]Series{
		"env1": NewAggregator("e", "env1", 25, 100).Summarize(nil),
		"env2": NewAggregator("e", "env2", 25, 100).Summarize(nil),
	}
	doc := BuildAnalytics(series, 25)

	assert.Len(t, doc.Metrics.Efficiency.Env1, 25)
	assert.Len(t, doc.Metrics.Efficiency.Env2, 25)
	assert.Empty(t, doc.Metrics.Efficiency.Env3, "missing envs stay empty but parseable")
	assert.Equal(t, "Efficiency %", doc.Metrics.Efficiency.Label)
	assert.Equal(t, "Cost Reduction %", doc.Metrics.Cost.Label)
	assert.Equal(t, "Time Saved (hours/month)", doc.Metrics.TimeSaved.Label)
	assert.Equal(t, ColorEnv1, doc.Metrics.Cost.ColorEnv1)

	total := 0.0
	for _, w := range doc.Overall.Weights {
		total += w
	}
	assert.InDelta(t, 1.0, total, 1e-9, "overall weights sum to 1")
	assert.Equal(t, 25, doc.Metadata.DataPoints)
	assert.NotEmpty(t, doc.Metadata.GeneratedAt)
}

func TestWriterAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "analytics.json")
	w := NewWriter(path)

	doc := BuildAnalytics(map[string]Series{
		"env1": NewAggregator("e", "env1", 3, 30).Summarize(nil),
	}, 3)
	require.NoError(t, w.Write(doc))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var parsed map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Contains(t, parsed, "metrics")
	assert.Contains(t, parsed, "overall")
	assert.Contains(t, parsed, "summary")
	assert.Contains(t, parsed, "metadata")

	// No temp litter after a successful write.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
