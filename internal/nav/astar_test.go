package nav

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhinav24jha/blank-slate/internal/grid"
)

// openGrid builds an h×w grid walkable everywhere at uniform cost.
func openGrid(h, w int, cost uint8) *grid.Grid {
	g := grid.New(h, w)
	for iy := 0; iy < h; iy++ {
		for ix := 0; ix < w; ix++ {
			g.SetCell(iy, ix, grid.ClassSidewalk, true, cost)
		}
	}
	return g
}

func chebyshev(a, b grid.Cell) int {
	dy, dx := abs(a.IY-b.IY), abs(a.IX-b.IX)
	if dy > dx {
		return dy
	}
	return dx
}

func TestAStarRoundTripProperties(t *testing.T) {
	g := openGrid(12, 16, 10)
	start := grid.Cell{IY: 1, IX: 1}
	goal := grid.Cell{IY: 10, IX: 13}

	path := AStar(g, start, goal)
	require.NotNil(t, path)
	assert.Equal(t, start, path[0])
	assert.Equal(t, goal, path[len(path)-1])
	for i, c := range path {
		assert.True(t, g.IsWalkable(c.IY, c.IX), "path cell %d not walkable", i)
		if i > 0 {
			assert.Equal(t, 1, chebyshev(path[i-1], c), "step %d is not 8-connected", i)
		}
	}
}

func TestAStarTrivialPath(t *testing.T) {
	g := openGrid(3, 3, 10)
	c := grid.Cell{IY: 1, IX: 1}
	path := AStar(g, c, c)
	require.NotNil(t, path)
	assert.Equal(t, []grid.Cell{c}, path)
}

func TestAStarAvoidsExpensiveCells(t *testing.T) {
	// Middle column is passable but very costly; the path should route
	// around it through the top row.
	g := openGrid(5, 5, 10)
	for iy := 1; iy < 5; iy++ {
		g.SetCell(iy, 2, grid.ClassParking, true, 200)
	}

	path := AStar(g, grid.Cell{IY: 4, IX: 0}, grid.Cell{IY: 4, IX: 4})
	require.NotNil(t, path)
	for _, c := range path {
		if c.IX == 2 {
			assert.Equal(t, 0, c.IY, "crossing the costly column anywhere but the free top row")
		}
	}
}

func TestAStarUnreachable(t *testing.T) {
	g := openGrid(3, 3, 10)
	// Wall off the right column.
	for iy := 0; iy < 3; iy++ {
		g.SetCell(iy, 1, grid.ClassBuilding, false, 0)
	}
	assert.Nil(t, AStar(g, grid.Cell{IY: 0, IX: 0}, grid.Cell{IY: 2, IX: 2}))
}

func TestAStarRejectsBadEndpoints(t *testing.T) {
	g := openGrid(3, 3, 10)
	g.SetCell(2, 2, grid.ClassWater, false, 0)

	assert.Nil(t, AStar(g, grid.Cell{IY: -1, IX: 0}, grid.Cell{IY: 1, IX: 1}))
	assert.Nil(t, AStar(g, grid.Cell{IY: 0, IX: 0}, grid.Cell{IY: 2, IX: 2}))
	assert.Nil(t, AStar(g, grid.Cell{IY: 0, IX: 0}, grid.Cell{IY: 5, IX: 5}))
}

func TestAStarNoCornerCut(t *testing.T) {
	// Diagonal gap between two blocked cells: permitted by default,
	// forbidden with NoCornerCut.
	g := openGrid(2, 2, 10)
	g.SetCell(0, 1, grid.ClassBuilding, false, 0)
	g.SetCell(1, 0, grid.ClassBuilding, false, 0)

	start, goal := grid.Cell{IY: 0, IX: 0}, grid.Cell{IY: 1, IX: 1}
	assert.NotNil(t, AStar(g, start, goal))
	assert.Nil(t, AStarOpts(g, start, goal, Options{NoCornerCut: true}))
}

func TestSnapToWalkable(t *testing.T) {
	g := openGrid(9, 9, 10)
	// Block a 3x3 patch around (4,4).
	for iy := 3; iy <= 5; iy++ {
		for ix := 3; ix <= 5; ix++ {
			g.SetCell(iy, ix, grid.ClassBuilding, false, 0)
		}
	}

	c, ok := SnapToWalkable(g, 1, 1, 5)
	require.True(t, ok)
	assert.Equal(t, grid.Cell{IY: 1, IX: 1}, c, "walkable cells snap to themselves")

	c, ok = SnapToWalkable(g, 4, 4, 5)
	require.True(t, ok)
	assert.True(t, g.IsWalkable(c.IY, c.IX))
	assert.LessOrEqual(t, chebyshev(grid.Cell{IY: 4, IX: 4}, c), 5)
}

func TestSnapToWalkableOutOfRadius(t *testing.T) {
	g := grid.New(9, 9) // all blocked
	g.SetCell(8, 8, grid.ClassSidewalk, true, 10)

	_, ok := SnapToWalkable(g, 0, 0, 2)
	assert.False(t, ok)

	c, ok := SnapToWalkable(g, 0, 0, 8)
	require.True(t, ok)
	assert.Equal(t, grid.Cell{IY: 8, IX: 8}, c)
}

func TestNearestPOIPath(t *testing.T) {
	g := openGrid(10, 10, 10)
	pois := []grid.POI{
		{Type: grid.CatCafe, IY: 9, IX: 9, Snapped: &grid.Cell{IY: 9, IX: 9}},
		{Type: grid.CatCafe, IY: 2, IX: 2, Snapped: &grid.Cell{IY: 2, IX: 2}},
		{Type: grid.CatGrocery, IY: 0, IX: 9, Snapped: &grid.Cell{IY: 0, IX: 9}},
		{Type: grid.CatCafe, IY: 1, IX: 1}, // unsnapped, must be skipped
	}

	idx, path := NearestPOIPath(g, pois, grid.CatCafe, grid.Cell{IY: 0, IX: 0})
	require.NotNil(t, path)
	assert.Equal(t, 1, idx)
	assert.Equal(t, grid.Cell{IY: 2, IX: 2}, path[len(path)-1])

	idx, path = NearestPOIPath(g, pois, grid.CatPharmacy, grid.Cell{IY: 0, IX: 0})
	assert.Equal(t, -1, idx)
	assert.Nil(t, path)
}

func TestCarveDoorway(t *testing.T) {
	g := grid.New(7, 7) // all blocked
	CarveDoorway(g, grid.Cell{IY: 3, IX: 0}, grid.Cell{IY: 3, IX: 6}, 2, 10)

	for ix := 0; ix <= 6; ix++ {
		assert.True(t, g.IsWalkable(3, ix), "corridor cell (3,%d)", ix)
		assert.Equal(t, uint8(10), g.CostAt(3, ix))
	}
	// width 2 → ±1 cells around the line
	assert.True(t, g.IsWalkable(2, 3))
	assert.True(t, g.IsWalkable(4, 3))
	assert.False(t, g.IsWalkable(0, 0))
}

func TestOpenBuilding(t *testing.T) {
	g := openGrid(12, 12, 10)
	for iy := 4; iy <= 7; iy++ {
		for ix := 4; ix <= 7; ix++ {
			g.SetCell(iy, ix, grid.ClassBuilding, false, 0)
			g.FeatureID[g.Idx(iy, ix)] = 3
		}
	}

	require.True(t, OpenBuilding(g, 3, 12, 10, 2, 60))
	for iy := 4; iy <= 7; iy++ {
		for ix := 4; ix <= 7; ix++ {
			assert.True(t, g.IsWalkable(iy, ix), "interior (%d,%d)", iy, ix)
		}
	}

	// The interior is now reachable from outside.
	path := AStar(g, grid.Cell{IY: 0, IX: 0}, grid.Cell{IY: 5, IX: 5})
	assert.NotNil(t, path)

	assert.False(t, OpenBuilding(g, 99, 12, 10, 2, 60), "unknown feature id")
}
