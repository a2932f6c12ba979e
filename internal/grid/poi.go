// POI model and the pois.json codec.
package grid

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// POI categories form a closed vocabulary shared by the decider, the
// metrics aggregator, and scenario diffs.
const (
	CatGrocery    = "grocery"
	CatPharmacy   = "pharmacy"
	CatCafe       = "cafe"
	CatRestaurant = "restaurant"
	CatTransit    = "transit"
	CatEducation  = "education"
	CatHealth     = "health"
	CatRetail     = "retail"
	CatOther      = "other"
)

// Categories lists the known POI categories in canonical order.
var Categories = []string{
	CatGrocery, CatPharmacy, CatCafe, CatRestaurant, CatTransit,
	CatEducation, CatHealth, CatRetail, CatOther,
}

var categorySet = func() map[string]bool {
	m := make(map[string]bool, len(Categories))
	for _, c := range Categories {
		m[c] = true
	}
	return m
}()

// KnownCategory reports whether c belongs to the closed category set.
func KnownCategory(c string) bool { return categorySet[c] }

// Cell is a grid coordinate pair.
type Cell struct {
	IY int `json:"iy"`
	IX int `json:"ix"`
}

// POI is a typed point of interest. IY/IX are the raw rasterized
// coordinates; Snapped, when present, is the nearest walkable cell and is
// what navigation targets. A nil Snapped means the POI is unreachable.
type POI struct {
	Type    string         `json:"type"`
	IY      int            `json:"iy"`
	IX      int            `json:"ix"`
	Snapped *Cell          `json:"snapped"`
	Name    string         `json:"name,omitempty"`
	Tags    map[string]any `json:"tags,omitempty"`
	Lon     float64        `json:"lon,omitempty"`
	Lat     float64        `json:"lat,omitempty"`
}

// Target returns the cell navigation should aim for and whether one exists.
func (p *POI) Target() (Cell, bool) {
	if p.Snapped == nil {
		return Cell{}, false
	}
	return *p.Snapped, true
}

// Clone returns a deep copy, including the tag map.
func (p POI) Clone() POI {
	c := p
	if p.Snapped != nil {
		s := *p.Snapped
		c.Snapped = &s
	}
	if p.Tags != nil {
		c.Tags = make(map[string]any, len(p.Tags))
		for k, v := range p.Tags {
			c.Tags[k] = v
		}
	}
	return c
}

// LoadPOIs reads pois.json from an asset directory.
func LoadPOIs(dir string) ([]POI, error) {
	path := filepath.Join(dir, "pois.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: pois.json", ErrMissingAsset)
		}
		return nil, fmt.Errorf("read pois.json: %w", err)
	}
	var pois []POI
	if err := json.Unmarshal(data, &pois); err != nil {
		return nil, fmt.Errorf("parse pois.json: %w", err)
	}
	return pois, nil
}

// SavePOIs writes pois.json into an asset directory.
func SavePOIs(dir string, pois []POI) error {
	data, err := json.MarshalIndent(pois, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal pois: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "pois.json"), data, 0o644); err != nil {
		return fmt.Errorf("write pois.json: %w", err)
	}
	return nil
}
