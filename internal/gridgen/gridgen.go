// Package gridgen produces synthetic city grids for demos and tests: a
// street lattice with sidewalks and crossings, noise-driven parks and
// water, block-interior buildings, and a POI sprinkle per category.
package gridgen

import (
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/abhinav24jha/blank-slate/internal/grid"
	"github.com/abhinav24jha/blank-slate/internal/nav"
)

// Walk costs per semantic class.
const (
	costPlaza    = 8
	costSidewalk = 10
	costFootpath = 12
	costCrossing = 12
	costParking  = 18
	costGreen    = 14
)

// Config holds generation parameters.
type Config struct {
	H, W      int
	Seed      int64
	CellM     float32 // meters per cell; 0 selects 1.0
	BlockSize int     // cells between street centerlines; 0 selects 24
}

// DefaultConfig returns a mid-size demo city.
func DefaultConfig() Config {
	return Config{H: 240, W: 320, Seed: 7, CellM: 1.0, BlockSize: 24}
}

// Generate builds the grid and its POIs. Identical configs always produce
// identical output.
func Generate(cfg Config) (*grid.Grid, []grid.POI) {
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = 24
	}
	if cfg.CellM <= 0 {
		cfg.CellM = 1.0
	}

	g := grid.New(cfg.H, cfg.W)
	g.CellM = cfg.CellM

	greenNoise := opensimplex.NewNormalized(cfg.Seed)
	waterNoise := opensimplex.NewNormalized(cfg.Seed + 1)

	// Terrain base: footpaths with noise-driven green and water pockets.
	for iy := 0; iy < cfg.H; iy++ {
		for ix := 0; ix < cfg.W; ix++ {
			x, y := float64(ix)/48.0, float64(iy)/48.0
			switch {
			case waterNoise.Eval2(x, y) > 0.82:
				g.SetCell(iy, ix, grid.ClassWater, false, 0)
			case greenNoise.Eval2(x, y) > 0.68:
				g.SetCell(iy, ix, grid.ClassGreen, true, costGreen)
			default:
				g.SetCell(iy, ix, grid.ClassFootpath, true, costFootpath)
			}
		}
	}

	// Street lattice: 2-wide roads flanked by sidewalks, crossings where
	// centerlines meet.
	bs := cfg.BlockSize
	onRoad := func(v int) bool { m := v % bs; return m == 0 || m == 1 }
	nearRoad := func(v int) bool { m := v % bs; return m == bs-1 || m == 2 }
	for iy := 0; iy < cfg.H; iy++ {
		for ix := 0; ix < cfg.W; ix++ {
			switch {
			case onRoad(iy) && onRoad(ix):
				g.SetCell(iy, ix, grid.ClassCrossing, true, costCrossing)
			case onRoad(iy) || onRoad(ix):
				g.SetCell(iy, ix, grid.ClassRoad, false, 0)
			case nearRoad(iy) || nearRoad(ix):
				g.SetCell(iy, ix, grid.ClassSidewalk, true, costSidewalk)
			}
		}
	}

	// Central plaza.
	cy, cx := g.Center()
	for iy := cy - 4; iy <= cy+4; iy++ {
		for ix := cx - 6; ix <= cx+6; ix++ {
			if g.InBounds(iy, ix) && g.ClassAt(iy, ix) != grid.ClassRoad {
				g.SetCell(iy, ix, grid.ClassPlaza, true, costPlaza)
			}
		}
	}

	pois := placeBuildings(g, cfg)
	for i := range pois {
		if c, ok := nav.SnapToWalkable(g, pois[i].IY, pois[i].IX, nav.DefaultSnapRadius); ok {
			pois[i].Snapped = &grid.Cell{IY: c.IY, IX: c.IX}
		}
		pois[i].Lon, pois[i].Lat = g.CellToLonLat(pois[i].IY, pois[i].IX)
	}
	return g, pois
}

// placeBuildings fills block interiors with buildings and assigns one POI
// per building, cycling through the category set.
func placeBuildings(g *grid.Grid, cfg Config) []grid.POI {
	rng := rand.New(rand.NewSource(cfg.Seed + 2))
	bs := cfg.BlockSize

	var pois []grid.POI
	featureID := int32(1)
	for by := 0; by+bs <= cfg.H; by += bs {
		for bx := 0; bx+bs <= cfg.W; bx += bs {
			// Interior margin inside the sidewalk ring.
			top, left := by+4, bx+4
			bottom, right := by+bs-4, bx+bs-4
			if bottom-top < 4 || right-left < 4 {
				continue
			}
			// Skip blocks that landed on water or the plaza.
			my, mx := (top+bottom)/2, (left+right)/2
			if cl := g.ClassAt(my, mx); cl == grid.ClassWater || cl == grid.ClassPlaza {
				continue
			}
			if rng.Float64() < 0.15 {
				// Leave some blocks as parking lots.
				for iy := top; iy < bottom; iy++ {
					for ix := left; ix < right; ix++ {
						g.SetCell(iy, ix, grid.ClassParking, true, costParking)
					}
				}
				continue
			}

			h := 3 + rng.Intn(bottom-top-3)
			w := 3 + rng.Intn(right-left-3)
			oy := top + rng.Intn(bottom-top-h+1)
			ox := left + rng.Intn(right-left-w+1)
			for iy := oy; iy < oy+h; iy++ {
				for ix := ox; ix < ox+w; ix++ {
					g.SetCell(iy, ix, grid.ClassBuilding, false, 0)
					g.FeatureID[g.Idx(iy, ix)] = featureID
				}
			}

			cat := grid.Categories[int(featureID)%len(grid.Categories)]
			pois = append(pois, grid.POI{
				Type: cat,
				IY:   oy + h/2,
				IX:   ox + w/2,
				Tags: map[string]any{"feature_id": int(featureID)},
			})
			featureID++
		}
	}
	return pois
}
