// Package scenario defines the declarative diff a hypothesis applies over
// baseline assets — POI additions, attribute updates, and category biases —
// and materializes per-scenario asset directories from it.
package scenario

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/abhinav24jha/blank-slate/internal/grid"
)

var (
	// ErrInvalid marks a scenario document that fails validation.
	ErrInvalid = errors.New("invalid scenario")
)

// Anchor places a POI relative to a named grid landmark.
type Anchor struct {
	Name string `json:"name"`
	DX   int    `json:"dx"`
	DY   int    `json:"dy"`
}

// POIDef describes one POI to add. Either absolute (IY, IX) or an Anchor
// must be present.
type POIDef struct {
	Type   string         `json:"type"`
	Name   string         `json:"name,omitempty"`
	IY     *int           `json:"iy,omitempty"`
	IX     *int           `json:"ix,omitempty"`
	Anchor *Anchor        `json:"anchor,omitempty"`
	Attrs  map[string]any `json:"attrs,omitempty"`
}

// POIUpdate mutates every baseline or added POI whose attributes equal all
// Match entries. Tags entries in Set merge shallowly; other keys replace.
type POIUpdate struct {
	Match map[string]any `json:"match"`
	Set   map[string]any `json:"set"`
}

// Scenario is a diff over baseline assets plus free-form tags. The
// recognized tag "bias" maps category → weight in [0,1].
type Scenario struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	POIAdd      []POIDef       `json:"poi_add,omitempty"`
	POIUpdate   []POIUpdate    `json:"poi_update,omitempty"`
	Tags        map[string]any `json:"tags,omitempty"`
}

// Parse decodes and validates a scenario document.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadFile reads and validates a scenario JSON file.
func LoadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return Parse(data)
}

// Validate checks the whole document: every add carries a position, every
// update is non-empty, and declared bias weights are sane.
func (s *Scenario) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalid)
	}
	for i, pd := range s.POIAdd {
		if pd.Type == "" {
			return fmt.Errorf("%w: poi_add[%d] missing type", ErrInvalid, i)
		}
		if (pd.IY == nil || pd.IX == nil) && pd.Anchor == nil {
			return fmt.Errorf("%w: poi_add[%d] needs (iy, ix) or anchor", ErrInvalid, i)
		}
	}
	for i, u := range s.POIUpdate {
		if len(u.Match) == 0 || len(u.Set) == 0 {
			return fmt.Errorf("%w: poi_update[%d] must have match and set", ErrInvalid, i)
		}
	}
	for cat, w := range s.Biases() {
		if w < 0 || w > 1 {
			return fmt.Errorf("%w: bias %s=%v outside [0,1]", ErrInvalid, cat, w)
		}
	}
	return nil
}

// Biases returns the scenario's declared category biases, or nil when the
// "bias" tag is absent or malformed.
func (s *Scenario) Biases() map[string]float64 {
	raw, ok := s.Tags["bias"].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]float64, len(raw))
	for cat, v := range raw {
		if w, ok := v.(float64); ok {
			out[cat] = w
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ResolveAnchor maps an anchor name to a grid cell. "center" and
// "frontage_center" both resolve to the grid midpoint; grids in this
// pipeline carry no designated frontage polygon, so frontage_center keeps
// center semantics. Unknown names fall back to center.
func ResolveAnchor(name string, g *grid.Grid) grid.Cell {
	iy, ix := g.Center()
	return grid.Cell{IY: iy, IX: ix}
}

// Place resolves a POIDef to a raw grid cell, clamped in-bounds.
func Place(pd *POIDef, g *grid.Grid) grid.Cell {
	var iy, ix int
	if pd.IY != nil && pd.IX != nil {
		iy, ix = *pd.IY, *pd.IX
	} else {
		a := ResolveAnchor(pd.Anchor.Name, g)
		iy, ix = a.IY+pd.Anchor.DY, a.IX+pd.Anchor.DX
	}
	iy, ix = g.Clamp(iy, ix)
	return grid.Cell{IY: iy, IX: ix}
}
