package grid

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGrid() *Grid {
	g := New(6, 8)
	for iy := 0; iy < g.H; iy++ {
		for ix := 0; ix < g.W; ix++ {
			g.SetCell(iy, ix, ClassSidewalk, true, 10)
		}
	}
	// A 2x2 building with a shared feature id.
	for iy := 1; iy <= 2; iy++ {
		for ix := 1; ix <= 2; ix++ {
			g.SetCell(iy, ix, ClassBuilding, false, 0)
			g.FeatureID[g.Idx(iy, ix)] = 7
		}
	}
	g.SetCell(5, 7, ClassWater, false, 0)
	return g
}

func TestSetCellKeepsWalkableCostInvariant(t *testing.T) {
	g := testGrid()
	for i := range g.Walkable {
		if g.Walkable[i] == 1 {
			assert.Less(t, g.Cost[i], CostBlocked, "walkable cell %d must have passable cost", i)
		} else {
			assert.Equal(t, CostBlocked, g.Cost[i], "blocked cell %d must carry blocked cost", i)
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	g := testGrid()
	c := g.Clone()
	c.SetCell(0, 0, ClassWater, false, 0)
	assert.Equal(t, ClassSidewalk, g.ClassAt(0, 0))
	assert.Equal(t, ClassWater, c.ClassAt(0, 0))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	g := testGrid()
	g.OriginX, g.OriginY = -8864321.5, 5420137.25
	g.CellM = 2.0
	pois := []POI{
		{Type: CatGrocery, IY: 3, IX: 4, Snapped: &Cell{IY: 3, IX: 4}, Name: "Corner Foods"},
		{Type: CatCafe, IY: 1, IX: 1, Tags: map[string]any{"origin": "scenario"}},
	}

	require.NoError(t, Save(dir, g, pois))

	got, gotPOIs, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, g.H, got.H)
	assert.Equal(t, g.W, got.W)
	assert.Equal(t, g.Semantic, got.Semantic)
	assert.Equal(t, g.Walkable, got.Walkable)
	assert.Equal(t, g.Cost, got.Cost)
	assert.Equal(t, g.FeatureID, got.FeatureID)
	assert.Equal(t, g.OriginX, got.OriginX)
	assert.Equal(t, g.OriginY, got.OriginY)
	assert.Equal(t, g.CellM, got.CellM)

	require.Len(t, gotPOIs, 2)
	assert.Equal(t, CatGrocery, gotPOIs[0].Type)
	require.NotNil(t, gotPOIs[0].Snapped)
	assert.Equal(t, Cell{IY: 3, IX: 4}, *gotPOIs[0].Snapped)
	assert.Nil(t, gotPOIs[1].Snapped)
	assert.Equal(t, "scenario", gotPOIs[1].Tags["origin"])
}

func TestLoadMissingAsset(t *testing.T) {
	_, _, err := Load(t.TempDir())
	require.ErrorIs(t, err, ErrMissingAsset)
}

func TestLoadShapeMismatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(dir, testGrid(), nil))

	// Overwrite one layer with a different shape.
	f, err := os.Create(filepath.Join(dir, "walkable.npy"))
	require.NoError(t, err)
	require.NoError(t, writeNPY(f, uint8Array([]int{2, 2}, []uint8{1, 1, 1, 1})))
	require.NoError(t, f.Close())

	_, _, err = Load(dir)
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestLoadRejectsUnknownClass(t *testing.T) {
	dir := t.TempDir()
	g := testGrid()
	g.Semantic[0] = 42
	require.NoError(t, Save(dir, g, nil))

	_, _, err := Load(dir)
	require.ErrorIs(t, err, ErrClassOutOfRange)
}

func TestLoadRejectsWalkableBlockedCell(t *testing.T) {
	dir := t.TempDir()
	g := testGrid()
	// Violate the invariant behind SetCell's back.
	g.Walkable[g.Idx(0, 0)] = 1
	g.Cost[g.Idx(0, 0)] = CostBlocked
	require.NoError(t, Save(dir, g, nil))

	_, _, err := Load(dir)
	require.ErrorIs(t, err, ErrClassOutOfRange)
}

func TestGeoRoundTrip(t *testing.T) {
	g := testGrid()
	g.OriginX, g.OriginY = -8864321.5, 5420137.25
	g.CellM = 2.0

	lon, lat := g.CellToLonLat(3, 5)
	iy, ix, ok := g.LonLatToCell(lon, lat)
	require.True(t, ok)
	assert.Equal(t, 3, iy)
	assert.Equal(t, 5, ix)

	_, _, ok = g.LonLatToCell(0, 0)
	assert.False(t, ok, "null island is far outside this raster")
}

func TestKnownCategory(t *testing.T) {
	assert.True(t, KnownCategory(CatCafe))
	assert.False(t, KnownCategory("arcade"))
}
