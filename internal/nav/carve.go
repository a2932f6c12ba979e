// Doorway carving for enterable buildings.
package nav

import (
	"github.com/abhinav24jha/blank-slate/internal/grid"
)

// CarveDoorway rasterizes a straight Bresenham corridor from src to dst,
// widened by ±width/2, marking every covered cell walkable at stepCost.
// It mutates g, so callers pass a scenario copy, never the baseline.
func CarveDoorway(g *grid.Grid, src, dst grid.Cell, width int, stepCost uint8) {
	half := width / 2
	for _, c := range bresenham(src, dst) {
		for oy := -half; oy <= half; oy++ {
			for ox := -half; ox <= half; ox++ {
				y, x := c.IY+oy, c.IX+ox
				if !g.InBounds(y, x) {
					continue
				}
				i := g.Idx(y, x)
				g.Walkable[i] = 1
				g.Cost[i] = stepCost
			}
		}
	}
}

// OpenBuilding makes every cell of a building feature walkable at
// interiorCost, then carves a doorway from the interior centroid to the
// nearest outdoor walkable cell within searchPx. Returns false when no
// outdoor cell is found (isolated footprint, doorway skipped).
func OpenBuilding(g *grid.Grid, featureID int32, interiorCost, doorCost uint8, doorWidth, searchPx int) bool {
	var sumY, sumX, count int
	interior := make([]bool, g.H*g.W)
	for i, fid := range g.FeatureID {
		if fid != featureID {
			continue
		}
		interior[i] = true
		sumY += i / g.W
		sumX += i % g.W
		count++
	}
	if count == 0 {
		return false
	}

	for i := range interior {
		if interior[i] {
			g.Walkable[i] = 1
			g.Cost[i] = interiorCost
		}
	}

	cy, cx := sumY/count, sumX/count
	y0, x0 := max(0, cy-searchPx), max(0, cx-searchPx)
	y1, x1 := min(g.H-1, cy+searchPx), min(g.W-1, cx+searchPx)

	bestD2 := -1
	var best grid.Cell
	// Stride 2 keeps the scan cheap on large footprints.
	for y := y0; y <= y1; y += 2 {
		for x := x0; x <= x1; x += 2 {
			i := g.Idx(y, x)
			if g.Walkable[i] != 1 || interior[i] {
				continue
			}
			d2 := (y-cy)*(y-cy) + (x-cx)*(x-cx)
			if bestD2 == -1 || d2 < bestD2 {
				bestD2 = d2
				best = grid.Cell{IY: y, IX: x}
			}
		}
	}
	if bestD2 == -1 {
		return false
	}
	CarveDoorway(g, grid.Cell{IY: cy, IX: cx}, best, doorWidth, doorCost)
	return true
}

func bresenham(a, b grid.Cell) []grid.Cell {
	dx := abs(b.IX - a.IX)
	dy := -abs(b.IY - a.IY)
	sx, sy := 1, 1
	if a.IX > b.IX {
		sx = -1
	}
	if a.IY > b.IY {
		sy = -1
	}
	err := dx + dy

	var pts []grid.Cell
	y, x := a.IY, a.IX
	for {
		pts = append(pts, grid.Cell{IY: y, IX: x})
		if x == b.IX && y == b.IY {
			return pts
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
