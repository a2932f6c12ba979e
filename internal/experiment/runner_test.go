package experiment

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhinav24jha/blank-slate/internal/brain"
	"github.com/abhinav24jha/blank-slate/internal/grid"
	"github.com/abhinav24jha/blank-slate/internal/metrics"
	"github.com/abhinav24jha/blank-slate/internal/runlog"
	"github.com/abhinav24jha/blank-slate/internal/scenario"
)

// writeBaseline builds a small walkable district with one POI per
// deterministic-decider destination.
func writeBaseline(t *testing.T) string {
	t.Helper()
	g := grid.New(20, 20)
	for iy := 0; iy < 20; iy++ {
		for ix := 0; ix < 20; ix++ {
			g.SetCell(iy, ix, grid.ClassSidewalk, true, 10)
		}
	}
	snap := func(iy, ix int) *grid.Cell { return &grid.Cell{IY: iy, IX: ix} }
	pois := []grid.POI{
		{Type: grid.CatCafe, IY: 2, IX: 2, Snapped: snap(2, 2)},
		{Type: grid.CatRestaurant, IY: 17, IX: 2, Snapped: snap(17, 2)},
		{Type: grid.CatGrocery, IY: 2, IX: 17, Snapped: snap(2, 17)},
		{Type: grid.CatPharmacy, IY: 17, IX: 17, Snapped: snap(17, 17)},
		{Type: grid.CatEducation, IY: 10, IX: 2, Snapped: snap(10, 2)},
		{Type: grid.CatRetail, IY: 2, IX: 10, Snapped: snap(2, 10)},
	}
	dir := t.TempDir()
	require.NoError(t, grid.Save(dir, g, pois))
	return dir
}

func addScenario(id, cat string) *scenario.Scenario {
	return &scenario.Scenario{
		ID:     id,
		Title:  "Add a " + cat,
		POIAdd: []scenario.POIDef{{Type: cat, Anchor: &scenario.Anchor{Name: "center"}}},
	}
}

func TestRunFourEnvironments(t *testing.T) {
	baseline := writeBaseline(t)
	outDir := t.TempDir()
	storePath := filepath.Join(t.TempDir(), "runs.db")

	scenarios := []*scenario.Scenario{
		addScenario("h001", grid.CatCafe),
		addScenario("h002", grid.CatGrocery),
		addScenario("h003", grid.CatRetail),
	}
	opts := Options{
		Seed:        42,
		AgentCount:  5,
		DurationS:   5,
		Bins:        10,
		BaselineDir: baseline,
		OutDir:      outDir,
		StorePath:   storePath,
	}

	res, err := Run(context.Background(), scenarios, brain.Deterministic{}, opts)
	require.NoError(t, err)
	require.Len(t, res.Envs, 4)

	for i, env := range res.Envs {
		assert.NoError(t, env.Err, env.EnvKey)
		require.NotNil(t, env.Agg, env.EnvKey)
		assert.Positive(t, env.Agg.TotalDecisions(), env.EnvKey)

		if i > 0 {
			_, pois, err := grid.Load(env.AssetsDir)
			require.NoError(t, err, env.EnvKey)
			assert.Len(t, pois, 7, "baseline POIs plus the scenario add")
		}

		var summary map[string]any
		data, err := os.ReadFile(filepath.Join(env.RunDir, "summary.json"))
		require.NoError(t, err, env.EnvKey)
		require.NoError(t, json.Unmarshal(data, &summary))
		assert.Equal(t, "done", summary["status"], env.EnvKey)
		assert.Equal(t, "dollars per visit", summary["amount_unit"])

		meta, err := runlog.ReadMeta(env.RunDir)
		require.NoError(t, err, env.EnvKey)
		assert.Equal(t, res.ExpID, meta.ExpID)
		assert.Equal(t, opts.Seed+int64(i)*envSeedStride, meta.Seed, "per-env seed stride")

		mems, err := runlog.ScanMemories(env.RunDir)
		require.NoError(t, err, env.EnvKey)
		assert.NotEmpty(t, mems, "agent memory snapshot persists per run")
	}

	var doc metrics.Analytics
	data, err := os.ReadFile(res.AnalyticsPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &doc))

	for _, envSeries := range [][]metrics.Point{
		doc.Metrics.Efficiency.Env1, doc.Metrics.Efficiency.Env2,
		doc.Metrics.Efficiency.Env3, doc.Metrics.Efficiency.Env4,
		doc.Metrics.Cost.Env1, doc.Metrics.Cost.Env4,
		doc.Metrics.TimeSaved.Env1, doc.Metrics.TimeSaved.Env4,
	} {
		assert.Len(t, envSeries, opts.Bins)
	}
	total := 0.0
	for _, w := range doc.Overall.Weights {
		total += w
	}
	assert.InDelta(t, 1.0, total, 1e-9)
	assert.Equal(t, opts.Bins, doc.Metadata.DataPoints)

	store, err := runlog.OpenStore(storePath)
	require.NoError(t, err)
	defer store.Close()
	rows, err := store.Runs(res.ExpID)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	for _, row := range rows {
		assert.Equal(t, "done", row.Status, row.EnvKey)
		assert.Positive(t, row.Decisions, row.EnvKey)

		mems, err := store.AgentMemories(res.ExpID, row.EnvKey)
		require.NoError(t, err)
		assert.NotEmpty(t, mems, row.EnvKey)
	}
}

func TestRunBaselineOnly(t *testing.T) {
	baseline := writeBaseline(t)
	res, err := Run(context.Background(), nil, brain.Deterministic{}, Options{
		Seed: 7, AgentCount: 3, DurationS: 3, Bins: 5,
		BaselineDir: baseline, OutDir: t.TempDir(),
	})
	require.NoError(t, err)
	require.Len(t, res.Envs, 1)
	assert.Equal(t, "env1", res.Envs[0].EnvKey)
	_, err = os.Stat(res.AnalyticsPath)
	assert.NoError(t, err)
}

func TestRunMissingBaselineStillWritesDocument(t *testing.T) {
	res, err := Run(context.Background(), []*scenario.Scenario{addScenario("h001", grid.CatCafe)},
		brain.Deterministic{}, Options{
			Seed: 1, AgentCount: 2, DurationS: 1, Bins: 3,
			BaselineDir: filepath.Join(t.TempDir(), "nope"),
			OutDir:      t.TempDir(),
		})
	require.ErrorIs(t, err, ErrNoDecisions)
	require.NotNil(t, res)

	// The document is still produced, empty but parseable.
	var doc metrics.Analytics
	data, readErr := os.ReadFile(res.AnalyticsPath)
	require.NoError(t, readErr)
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Empty(t, doc.Metrics.Efficiency.Env1)
}

func TestRunScenarioBoostRaisesSpend(t *testing.T) {
	baseline := writeBaseline(t)

	res, err := Run(context.Background(), []*scenario.Scenario{addScenario("h001", grid.CatCafe)},
		brain.Deterministic{}, Options{
			Seed: 42, AgentCount: 8, DurationS: 20, Bins: 5,
			BaselineDir: baseline, OutDir: t.TempDir(),
		})
	require.NoError(t, err)
	require.Len(t, res.Envs, 2)

	base, scn := res.Envs[0].Agg, res.Envs[1].Agg
	require.NotNil(t, base)
	require.NotNil(t, scn)
	assert.Positive(t, scn.TotalArrivals())
	// The biased population heads for the added cafe, whose purchases carry
	// the scenario boost, so total spend should exceed the baseline's.
	assert.Greater(t, scn.TotalSpend(), base.TotalSpend())
}
