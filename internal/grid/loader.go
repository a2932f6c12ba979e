// Asset directory loader and writer.
//
// A scenario asset directory holds four grid layers (semantic.npy,
// walkable.npy, cost.npy, feature_id.npy), the navgraph.npz bundle
// (walkable, cost, origin, cell_m), and pois.json. labels.json,
// feature_table.json, and venues.json may also be present; they belong to
// external tooling and are copied through untouched.
package grid

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	// ErrMissingAsset means a required file is absent from the asset dir.
	ErrMissingAsset = errors.New("missing asset")
	// ErrShapeMismatch means the four grid layers disagree on H×W.
	ErrShapeMismatch = errors.New("grid shape mismatch")
	// ErrClassOutOfRange means a cell value violates its layer's range,
	// including the walkable⇒cost<255 invariant.
	ErrClassOutOfRange = errors.New("cell value out of range")
)

func loadLayer(dir, name string) (*npyArray, error) {
	path := filepath.Join(dir, name)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingAsset, name)
		}
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()
	arr, err := readNPY(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if len(arr.shape) != 2 {
		return nil, fmt.Errorf("%s: %w: want 2-D, got %d-D", name, ErrShapeMismatch, len(arr.shape))
	}
	return arr, nil
}

// Load reads and validates a scenario asset directory. The returned Grid is
// immutable by convention; nothing in this package mutates it after return.
func Load(dir string) (*Grid, []POI, error) {
	semantic, err := loadLayer(dir, "semantic.npy")
	if err != nil {
		return nil, nil, err
	}
	walkable, err := loadLayer(dir, "walkable.npy")
	if err != nil {
		return nil, nil, err
	}
	cost, err := loadLayer(dir, "cost.npy")
	if err != nil {
		return nil, nil, err
	}
	featureID, err := loadLayer(dir, "feature_id.npy")
	if err != nil {
		return nil, nil, err
	}

	h, w := semantic.shape[0], semantic.shape[1]
	for _, l := range []struct {
		name string
		arr  *npyArray
	}{{"walkable.npy", walkable}, {"cost.npy", cost}, {"feature_id.npy", featureID}} {
		if l.arr.shape[0] != h || l.arr.shape[1] != w {
			return nil, nil, fmt.Errorf("%w: %s is %dx%d, semantic is %dx%d",
				ErrShapeMismatch, l.name, l.arr.shape[0], l.arr.shape[1], h, w)
		}
	}

	g := &Grid{
		H: h, W: w,
		Semantic:  semantic.asUint8(),
		Walkable:  walkable.asUint8(),
		Cost:      cost.asUint8(),
		FeatureID: featureID.asInt32(),
		CellM:     1.0,
	}

	for i, v := range g.Semantic {
		if v >= NumClasses {
			return nil, nil, fmt.Errorf("%w: semantic[%d]=%d", ErrClassOutOfRange, i, v)
		}
	}
	for i, v := range g.Walkable {
		if v > 1 {
			return nil, nil, fmt.Errorf("%w: walkable[%d]=%d", ErrClassOutOfRange, i, v)
		}
		if v == 1 && g.Cost[i] == CostBlocked {
			return nil, nil, fmt.Errorf("%w: walkable cell %d has blocked cost", ErrClassOutOfRange, i)
		}
	}

	if err := loadNavgraph(dir, g); err != nil {
		return nil, nil, err
	}

	pois, err := LoadPOIs(dir)
	if err != nil {
		return nil, nil, err
	}
	return g, pois, nil
}

// loadNavgraph fills origin and cell_m from navgraph.npz. A missing bundle
// leaves the defaults in place so purely synthetic grids keep working.
func loadNavgraph(dir string, g *Grid) error {
	path := filepath.Join(dir, "navgraph.npz")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	members, err := readNPZ(path)
	if err != nil {
		return fmt.Errorf("navgraph.npz: %w", err)
	}
	if origin, ok := members["origin"]; ok {
		vals := origin.asFloat64()
		if len(vals) == 2 {
			g.OriginX, g.OriginY = vals[0], vals[1]
		}
	}
	if cm, ok := members["cell_m"]; ok {
		vals := cm.asFloat32()
		if len(vals) == 1 {
			g.CellM = vals[0]
		}
	}
	return nil
}

// Save writes a Grid and its POI list as a complete asset directory.
func Save(dir string, g *Grid, pois []POI) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create asset dir: %w", err)
	}
	shape := []int{g.H, g.W}
	layers := map[string]*npyArray{
		"semantic.npy":   uint8Array(shape, g.Semantic),
		"walkable.npy":   uint8Array(shape, g.Walkable),
		"cost.npy":       uint8Array(shape, g.Cost),
		"feature_id.npy": int32Array(shape, g.FeatureID),
	}
	for name, arr := range layers {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
		err = writeNPY(f, arr)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}

	nf, err := os.Create(filepath.Join(dir, "navgraph.npz"))
	if err != nil {
		return fmt.Errorf("create navgraph.npz: %w", err)
	}
	err = writeNPZ(nf, map[string]*npyArray{
		"walkable": uint8Array(shape, g.Walkable),
		"cost":     uint8Array(shape, g.Cost),
		"origin":   float64Array([]int{2}, []float64{g.OriginX, g.OriginY}),
		"cell_m":   float32Array([]int{1}, []float32{g.CellM}),
	})
	if cerr := nf.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write navgraph.npz: %w", err)
	}

	return SavePOIs(dir, pois)
}
