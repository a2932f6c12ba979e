// Snapping and nearest-POI selection.
package nav

import (
	"github.com/abhinav24jha/blank-slate/internal/grid"
)

// DefaultSnapRadius bounds the outward ring search in cells.
const DefaultSnapRadius = 20

// SnapToWalkable returns (iy, ix) unchanged when already walkable, else the
// first walkable cell found scanning expanding square rings (row-major
// within each ring window) out to maxR. ok is false when nothing walkable
// lies within the radius; the POI is then unreachable.
func SnapToWalkable(g *grid.Grid, iy, ix, maxR int) (grid.Cell, bool) {
	if g.IsWalkable(iy, ix) {
		return grid.Cell{IY: iy, IX: ix}, true
	}
	for r := 1; r <= maxR; r++ {
		y0, y1 := max(0, iy-r), min(g.H-1, iy+r)
		x0, x1 := max(0, ix-r), min(g.W-1, ix+r)
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				if g.Walkable[g.Idx(y, x)] == 1 {
					return grid.Cell{IY: y, IX: x}, true
				}
			}
		}
	}
	return grid.Cell{}, false
}

// NearestByPath runs A* from start to every candidate and returns the index
// of the candidate with the shortest path (in cells) together with that
// path. Returns -1 and nil when no candidate is reachable.
func NearestByPath(g *grid.Grid, start grid.Cell, candidates []grid.Cell) (int, []grid.Cell) {
	best := -1
	var bestPath []grid.Cell
	for i, c := range candidates {
		p := AStar(g, start, c)
		if p == nil {
			continue
		}
		if best == -1 || len(p) < len(bestPath) {
			best = i
			bestPath = p
		}
	}
	return best, bestPath
}

// NearestPOIPath finds the closest POI of the given category by path
// length. Unsnapped POIs are skipped. Returns the POI index into pois and
// the path, or (-1, nil) when none is reachable.
func NearestPOIPath(g *grid.Grid, pois []grid.POI, category string, start grid.Cell) (int, []grid.Cell) {
	best := -1
	var bestPath []grid.Cell
	for i := range pois {
		if pois[i].Type != category {
			continue
		}
		target, ok := pois[i].Target()
		if !ok {
			continue
		}
		p := AStar(g, start, target)
		if p == nil {
			continue
		}
		if best == -1 || len(p) < len(bestPath) {
			best = i
			bestPath = p
		}
	}
	return best, bestPath
}
