// Asset materializer: baseline directory + scenario diff → per-scenario
// asset directory. The baseline is never mutated; edits happen on a grid
// clone. Adds are applied before updates, in input order, so a later
// update can match an earlier add.
package scenario

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/abhinav24jha/blank-slate/internal/grid"
	"github.com/abhinav24jha/blank-slate/internal/nav"
)

const (
	interiorCost     = 12
	doorwayCost      = 10
	doorwayWidth     = 2
	doorwaySearchPx  = 60
	snapSearchRadius = nav.DefaultSnapRadius
)

// OriginTag marks POIs introduced by a scenario; the purchase model reads
// it to apply the scenario spend multiplier.
const OriginTag = "origin"

// OriginScenario is the OriginTag value for scenario-added POIs.
const OriginScenario = "scenario"

// Result summarizes one materialization.
type Result struct {
	POICount        int
	Added           int
	Updated         int
	OpenedBuildings int
}

// Materialize produces outDir from baselineDir and the scenario diff.
// Grids are copied unchanged except where an added POI lands inside a
// building footprint: that building becomes enterable (interior walkable,
// doorway carved) so agents can reach the new POI.
func Materialize(baselineDir string, s *Scenario, outDir string) (*Result, error) {
	g, pois, err := grid.Load(baselineDir)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: load baseline: %w", s.ID, err)
	}

	work := g.Clone()
	out := make([]grid.POI, 0, len(pois)+len(s.POIAdd))
	for _, p := range pois {
		out = append(out, p.Clone())
	}

	res := &Result{}
	opened := make(map[int32]bool)

	for i := range s.POIAdd {
		pd := &s.POIAdd[i]
		raw := Place(pd, work)

		// A POI dropped onto a named building opens that building.
		if work.ClassAt(raw.IY, raw.IX) == grid.ClassBuilding {
			if fid := work.FeatureAt(raw.IY, raw.IX); fid > 0 && !opened[fid] {
				if nav.OpenBuilding(work, fid, interiorCost, doorwayCost, doorwayWidth, doorwaySearchPx) {
					opened[fid] = true
					res.OpenedBuildings++
				}
			}
		}

		p := grid.POI{
			Type: pd.Type,
			Name: pd.Name,
			IY:   raw.IY,
			IX:   raw.IX,
			Tags: map[string]any{OriginTag: OriginScenario},
		}
		for k, v := range pd.Attrs {
			p.Tags[k] = v
		}
		if snapped, ok := nav.SnapToWalkable(work, raw.IY, raw.IX, snapSearchRadius); ok {
			p.Snapped = &snapped
		} else {
			slog.Warn("added POI has no walkable cell in range",
				"scenario", s.ID, "type", pd.Type, "iy", raw.IY, "ix", raw.IX)
		}
		p.Lon, p.Lat = work.CellToLonLat(raw.IY, raw.IX)
		out = append(out, p)
		res.Added++
	}

	for i := range s.POIUpdate {
		u := &s.POIUpdate[i]
		for j := range out {
			if !matches(&out[j], u.Match) {
				continue
			}
			applySet(&out[j], u.Set)
			res.Updated++
		}
	}

	if err := grid.Save(outDir, work, out); err != nil {
		return nil, fmt.Errorf("scenario %s: write assets: %w", s.ID, err)
	}
	if err := copyPassthrough(baselineDir, outDir); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.ID, err)
	}

	res.POICount = len(out)
	slog.Info("materialized scenario assets",
		"scenario", s.ID, "pois", res.POICount, "added", res.Added,
		"updated", res.Updated, "opened_buildings", res.OpenedBuildings)
	return res, nil
}

// passthroughFiles are consumed only by external tooling; they are copied
// verbatim when present.
var passthroughFiles = []string{"labels.json", "feature_table.json", "venues.json"}

func copyPassthrough(srcDir, dstDir string) error {
	for _, name := range passthroughFiles {
		src, err := os.Open(filepath.Join(srcDir, name))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("open %s: %w", name, err)
		}
		dst, err := os.Create(filepath.Join(dstDir, name))
		if err != nil {
			src.Close()
			return fmt.Errorf("create %s: %w", name, err)
		}
		_, err = io.Copy(dst, src)
		src.Close()
		if cerr := dst.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("copy %s: %w", name, err)
		}
	}
	return nil
}

// matches reports whether every match entry equals the POI's corresponding
// attribute. Known fields are checked directly; unknown keys fall through
// to the tag map.
func matches(p *grid.POI, match map[string]any) bool {
	for k, v := range match {
		switch k {
		case "type":
			if s, ok := v.(string); !ok || s != p.Type {
				return false
			}
		case "name":
			if s, ok := v.(string); !ok || s != p.Name {
				return false
			}
		case "iy":
			if !numEq(v, p.IY) {
				return false
			}
		case "ix":
			if !numEq(v, p.IX) {
				return false
			}
		default:
			if p.Tags == nil || p.Tags[k] != v {
				return false
			}
		}
	}
	return true
}

// applySet writes update values onto the POI: "tags" merges shallowly,
// known fields replace, anything else lands in the tag map.
func applySet(p *grid.POI, set map[string]any) {
	for k, v := range set {
		switch k {
		case "type":
			if s, ok := v.(string); ok {
				p.Type = s
			}
		case "name":
			if s, ok := v.(string); ok {
				p.Name = s
			}
		case "iy":
			if n, ok := v.(float64); ok {
				p.IY = int(n)
			}
		case "ix":
			if n, ok := v.(float64); ok {
				p.IX = int(n)
			}
		case "tags":
			m, ok := v.(map[string]any)
			if !ok {
				continue
			}
			if p.Tags == nil {
				p.Tags = make(map[string]any, len(m))
			}
			for tk, tv := range m {
				p.Tags[tk] = tv
			}
		default:
			if p.Tags == nil {
				p.Tags = make(map[string]any, 1)
			}
			p.Tags[k] = v
		}
	}
}

// numEq compares a JSON number (float64) against an int attribute.
func numEq(v any, n int) bool {
	f, ok := v.(float64)
	return ok && int(f) == n
}
