// Package nav implements navigation over the walkable grid: snapping,
// 8-connected weighted A*, and doorway carving for enterable buildings.
// All functions are pure over their inputs except CarveDoorway, which
// mutates a grid copy supplied by the caller.
package nav

import (
	"container/heap"
	"math"

	"github.com/abhinav24jha/blank-slate/internal/grid"
)

// diag is the octile diagonal step length.
const diag = math.Sqrt2

// neighbors8 lists the 8-connected move offsets.
var neighbors8 = [8][2]int{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// Options tunes pathfinding behavior.
type Options struct {
	// NoCornerCut forbids diagonal moves unless both orthogonal neighbors
	// are walkable. Default permits corner cutting.
	NoCornerCut bool
}

// AStar finds the cheapest 8-connected path from start to goal over the
// walkable sub-grid, weighting steps by the destination cell's cost. The
// returned path includes both endpoints. It returns nil when either
// endpoint is out of bounds or non-walkable, or no path exists; callers
// treat nil as "skip this destination", never as a fatal error.
func AStar(g *grid.Grid, start, goal grid.Cell) []grid.Cell {
	return AStarOpts(g, start, goal, Options{})
}

// AStarOpts is AStar with explicit Options.
func AStarOpts(g *grid.Grid, start, goal grid.Cell, opts Options) []grid.Cell {
	if !g.IsWalkable(start.IY, start.IX) || !g.IsWalkable(goal.IY, goal.IX) {
		return nil
	}

	n := g.H * g.W
	gScore := make([]float64, n)
	for i := range gScore {
		gScore[i] = math.Inf(1)
	}
	parent := make([]int32, n)
	for i := range parent {
		parent[i] = -1
	}

	h := func(iy, ix int) float64 {
		dy := math.Abs(float64(iy - goal.IY))
		dx := math.Abs(float64(ix - goal.IX))
		return math.Max(dy, dx) + (diag-1)*math.Min(dy, dx)
	}

	startIdx := g.Idx(start.IY, start.IX)
	gScore[startIdx] = 0

	open := &openHeap{}
	heap.Init(open)
	heap.Push(open, node{f: h(start.IY, start.IX), g: 0, iy: start.IY, ix: start.IX, seq: 0})
	seq := 1

	for open.Len() > 0 {
		cur := heap.Pop(open).(node)
		if cur.iy == goal.IY && cur.ix == goal.IX {
			return reconstruct(g, parent, start, goal)
		}
		curIdx := g.Idx(cur.iy, cur.ix)
		if cur.g > gScore[curIdx] {
			continue // stale heap entry
		}

		for _, d := range neighbors8 {
			ny, nx := cur.iy+d[0], cur.ix+d[1]
			if !g.IsWalkable(ny, nx) {
				continue
			}
			step := 1.0
			if d[0] != 0 && d[1] != 0 {
				if opts.NoCornerCut &&
					(!g.IsWalkable(cur.iy+d[0], cur.ix) || !g.IsWalkable(cur.iy, cur.ix+d[1])) {
					continue
				}
				step = diag
			}
			ng := gScore[curIdx] + step*float64(g.CostAt(ny, nx))
			ni := g.Idx(ny, nx)
			if ng < gScore[ni] {
				gScore[ni] = ng
				parent[ni] = int32(curIdx)
				heap.Push(open, node{f: ng + h(ny, nx), g: ng, iy: ny, ix: nx, seq: seq})
				seq++
			}
		}
	}
	return nil
}

func reconstruct(g *grid.Grid, parent []int32, start, goal grid.Cell) []grid.Cell {
	var rev []grid.Cell
	idx := g.Idx(goal.IY, goal.IX)
	startIdx := g.Idx(start.IY, start.IX)
	for idx != startIdx {
		rev = append(rev, grid.Cell{IY: idx / g.W, IX: idx % g.W})
		idx = int(parent[idx])
	}
	rev = append(rev, start)

	path := make([]grid.Cell, len(rev))
	for i, c := range rev {
		path[len(rev)-1-i] = c
	}
	return path
}

// node is a frontier entry. Ordering: lowest f, then lowest g, then
// insertion order.
type node struct {
	f, g   float64
	iy, ix int
	seq    int
}

type openHeap []node

func (h openHeap) Len() int { return len(h) }

func (h openHeap) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	if h[i].g != h[j].g {
		return h[i].g < h[j].g
	}
	return h[i].seq < h[j].seq
}

func (h openHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *openHeap) Push(x any) { *h = append(*h, x.(node)) }

func (h *openHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}
