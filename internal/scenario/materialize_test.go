package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhinav24jha/blank-slate/internal/grid"
)

// writeBaseline builds a small asset directory: walkable sidewalks, one
// named building footprint, and a grocery POI.
func writeBaseline(t *testing.T) string {
	t.Helper()
	g := grid.New(20, 20)
	for iy := 0; iy < 20; iy++ {
		for ix := 0; ix < 20; ix++ {
			g.SetCell(iy, ix, grid.ClassSidewalk, true, 10)
		}
	}
	for iy := 8; iy <= 11; iy++ {
		for ix := 8; ix <= 11; ix++ {
			g.SetCell(iy, ix, grid.ClassBuilding, false, 0)
			g.FeatureID[g.Idx(iy, ix)] = 1
		}
	}
	pois := []grid.POI{
		{Type: grid.CatGrocery, IY: 3, IX: 3, Snapped: &grid.Cell{IY: 3, IX: 3}, Name: "Baseline Grocery"},
	}

	dir := t.TempDir()
	require.NoError(t, grid.Save(dir, g, pois))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "labels.json"), []byte(`{"note":"external"}`), 0o644))
	return dir
}

func TestMaterializeEmptyScenarioIsIdempotent(t *testing.T) {
	baseline := writeBaseline(t)
	out := filepath.Join(t.TempDir(), "env2")

	res, err := Materialize(baseline, &Scenario{ID: "noop", Title: "No change"}, out)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Added)
	assert.Equal(t, 0, res.Updated)

	bg, bp, err := grid.Load(baseline)
	require.NoError(t, err)
	og, op, err := grid.Load(out)
	require.NoError(t, err)
	assert.Equal(t, bg.Semantic, og.Semantic)
	assert.Equal(t, bg.Walkable, og.Walkable)
	assert.Equal(t, bp, op, "POI list must equal the baseline structurally")
}

func TestMaterializeAddsPOIWithOriginTag(t *testing.T) {
	baseline := writeBaseline(t)
	out := filepath.Join(t.TempDir(), "env2")

	s := &Scenario{
		ID:    "h001",
		Title: "Cafe at center",
		POIAdd: []POIDef{
			{Type: "cafe", Name: "New Cafe", Anchor: &Anchor{Name: "center"}},
		},
	}
	res, err := Materialize(baseline, s, out)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 2, res.POICount)

	_, pois, err := grid.Load(out)
	require.NoError(t, err)
	added := pois[1]
	assert.Equal(t, "cafe", added.Type)
	assert.Equal(t, OriginScenario, added.Tags[OriginTag])
	require.NotNil(t, added.Snapped)

	// Passthrough files ride along.
	_, err = os.Stat(filepath.Join(out, "labels.json"))
	assert.NoError(t, err)
}

func TestMaterializeOpensBuildingUnderAddedPOI(t *testing.T) {
	baseline := writeBaseline(t)
	out := filepath.Join(t.TempDir(), "env2")

	iy, ix := 9, 9 // inside the building footprint
	s := &Scenario{
		ID:     "h002",
		Title:  "POI in building",
		POIAdd: []POIDef{{Type: "retail", IY: &iy, IX: &ix}},
	}
	res, err := Materialize(baseline, s, out)
	require.NoError(t, err)
	assert.Equal(t, 1, res.OpenedBuildings)

	g, pois, err := grid.Load(out)
	require.NoError(t, err)
	assert.True(t, g.IsWalkable(9, 9), "building interior must be walkable after opening")
	require.NotNil(t, pois[1].Snapped)
	assert.True(t, g.IsWalkable(pois[1].Snapped.IY, pois[1].Snapped.IX))
}

func TestMaterializeUpdates(t *testing.T) {
	baseline := writeBaseline(t)
	out := filepath.Join(t.TempDir(), "env2")

	s := &Scenario{
		ID:    "h003",
		Title: "Rebrand grocery",
		POIUpdate: []POIUpdate{
			{
				Match: map[string]any{"type": "grocery"},
				Set: map[string]any{
					"name": "Fresh Mart",
					"tags": map[string]any{"hours": "24/7"},
				},
			},
		},
	}
	res, err := Materialize(baseline, s, out)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	_, pois, err := grid.Load(out)
	require.NoError(t, err)
	assert.Equal(t, "Fresh Mart", pois[0].Name)
	assert.Equal(t, "24/7", pois[0].Tags["hours"])
}

func TestMaterializeMissingBaseline(t *testing.T) {
	_, err := Materialize(t.TempDir(), &Scenario{ID: "x", Title: "x"}, filepath.Join(t.TempDir(), "out"))
	require.ErrorIs(t, err, grid.ErrMissingAsset)
}
