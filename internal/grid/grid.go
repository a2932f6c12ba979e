// Package grid provides the rasterized city model: semantic classes,
// walkability, traversal cost, and feature ids, plus the asset codecs
// used to load and store per-scenario grid directories.
package grid

import "fmt"

// Class is a semantic cell class. The set is closed; rasterizers upstream
// guarantee every cell carries exactly one class.
type Class uint8

const (
	ClassVoid     Class = iota // Outside any mapped polygon
	ClassBuilding              // Building footprint
	ClassSidewalk
	ClassFootpath
	ClassParking
	ClassPlaza
	ClassGreen
	ClassWater
	ClassRoad
	ClassCrossing

	NumClasses = 10
)

// CostBlocked marks a cell that cannot be traversed.
const CostBlocked uint8 = 255

// ClassName returns a human-readable name for a semantic class.
func ClassName(c Class) string {
	names := [NumClasses]string{
		"void", "building", "sidewalk", "footpath", "parking",
		"plaza", "green", "water", "road", "crossing",
	}
	if int(c) < len(names) {
		return names[c]
	}
	return fmt.Sprintf("class(%d)", c)
}

// Grid is the immutable rasterized city model for one scenario.
// All four layers share the same H×W shape and are stored row-major.
// A Grid is never mutated after load; scenario edits go through Clone.
type Grid struct {
	H, W int

	Semantic  []uint8 // Class per cell
	Walkable  []uint8 // 0 or 1
	Cost      []uint8 // Traversal cost, CostBlocked = impassable
	FeatureID []int32 // Shared positive id per named polygon, else -1

	// Geographic anchor: mercator (EPSG:3857) coordinates of the grid's
	// minimum corner, and meters covered by one cell edge.
	OriginX, OriginY float64
	CellM            float32
}

// Idx returns the row-major index of (iy, ix).
func (g *Grid) Idx(iy, ix int) int { return iy*g.W + ix }

// InBounds reports whether (iy, ix) lies on the grid.
func (g *Grid) InBounds(iy, ix int) bool {
	return iy >= 0 && iy < g.H && ix >= 0 && ix < g.W
}

// IsWalkable reports whether (iy, ix) is on the grid and walkable.
func (g *Grid) IsWalkable(iy, ix int) bool {
	return g.InBounds(iy, ix) && g.Walkable[g.Idx(iy, ix)] == 1
}

// ClassAt returns the semantic class at (iy, ix). Caller ensures bounds.
func (g *Grid) ClassAt(iy, ix int) Class { return Class(g.Semantic[g.Idx(iy, ix)]) }

// CostAt returns the traversal cost at (iy, ix). Caller ensures bounds.
func (g *Grid) CostAt(iy, ix int) uint8 { return g.Cost[g.Idx(iy, ix)] }

// FeatureAt returns the feature id at (iy, ix). Caller ensures bounds.
func (g *Grid) FeatureAt(iy, ix int) int32 { return g.FeatureID[g.Idx(iy, ix)] }

// Center returns the grid midpoint cell.
func (g *Grid) Center() (iy, ix int) { return g.H / 2, g.W / 2 }

// Clamp pulls (iy, ix) onto the nearest in-bounds cell.
func (g *Grid) Clamp(iy, ix int) (int, int) {
	if iy < 0 {
		iy = 0
	}
	if iy >= g.H {
		iy = g.H - 1
	}
	if ix < 0 {
		ix = 0
	}
	if ix >= g.W {
		ix = g.W - 1
	}
	return iy, ix
}

// Clone returns a deep copy. Scenario materialization edits the copy;
// the baseline grid stays untouched.
func (g *Grid) Clone() *Grid {
	c := &Grid{
		H: g.H, W: g.W,
		Semantic:  make([]uint8, len(g.Semantic)),
		Walkable:  make([]uint8, len(g.Walkable)),
		Cost:      make([]uint8, len(g.Cost)),
		FeatureID: make([]int32, len(g.FeatureID)),
		OriginX:   g.OriginX, OriginY: g.OriginY,
		CellM: g.CellM,
	}
	copy(c.Semantic, g.Semantic)
	copy(c.Walkable, g.Walkable)
	copy(c.Cost, g.Cost)
	copy(c.FeatureID, g.FeatureID)
	return c
}

// New creates an all-void, non-walkable grid of the given shape.
func New(h, w int) *Grid {
	n := h * w
	g := &Grid{
		H: h, W: w,
		Semantic:  make([]uint8, n),
		Walkable:  make([]uint8, n),
		Cost:      make([]uint8, n),
		FeatureID: make([]int32, n),
		CellM:     1.0,
	}
	for i := range g.Cost {
		g.Cost[i] = CostBlocked
		g.FeatureID[i] = -1
	}
	return g
}

// SetCell writes one cell's class, walkability, and cost together so the
// walkable/cost invariant cannot be violated piecemeal.
func (g *Grid) SetCell(iy, ix int, class Class, walkable bool, cost uint8) {
	i := g.Idx(iy, ix)
	g.Semantic[i] = uint8(class)
	if walkable {
		g.Walkable[i] = 1
		g.Cost[i] = cost
	} else {
		g.Walkable[i] = 0
		g.Cost[i] = CostBlocked
	}
}

func (g *Grid) String() string {
	return fmt.Sprintf("Grid(%dx%d, cell=%.1fm)", g.H, g.W, g.CellM)
}
