// Minimal NPY/NPZ codec for the 2-D arrays the rasterizer emits.
// Supports version 1.0 files with C-order u1/i4/f4/f8 payloads, which is
// exactly what semantic/walkable/cost/feature_id and the navgraph bundle
// use. Not a general NumPy reader.
package grid

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const npyMagic = "\x93NUMPY"

var npyHeaderRe = regexp.MustCompile(
	`'descr':\s*'([^']+)',\s*'fortran_order':\s*(False|True),\s*'shape':\s*\(([^)]*)\)`)

type npyArray struct {
	descr string // "|u1", "<i4", "<f4", "<f8"
	shape []int
	data  []byte // raw little-endian payload
}

func (a *npyArray) elemSize() int {
	switch a.descr {
	case "|u1", "|i1":
		return 1
	case "<i4", "<f4":
		return 4
	case "<f8", "<i8":
		return 8
	}
	return 0
}

func readNPY(r io.Reader) (*npyArray, error) {
	head := make([]byte, 10)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, fmt.Errorf("npy header: %w", err)
	}
	if string(head[:6]) != npyMagic {
		return nil, fmt.Errorf("npy: bad magic")
	}
	if head[6] != 1 {
		return nil, fmt.Errorf("npy: unsupported version %d.%d", head[6], head[7])
	}
	hlen := int(binary.LittleEndian.Uint16(head[8:10]))
	hdr := make([]byte, hlen)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, fmt.Errorf("npy header dict: %w", err)
	}

	m := npyHeaderRe.FindStringSubmatch(string(hdr))
	if m == nil {
		return nil, fmt.Errorf("npy: unparseable header %q", strings.TrimSpace(string(hdr)))
	}
	if m[2] != "False" {
		return nil, fmt.Errorf("npy: fortran order not supported")
	}

	arr := &npyArray{descr: m[1]}
	for _, part := range strings.Split(m[3], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("npy: bad shape element %q", part)
		}
		arr.shape = append(arr.shape, n)
	}

	es := arr.elemSize()
	if es == 0 {
		return nil, fmt.Errorf("npy: unsupported dtype %q", arr.descr)
	}
	count := 1
	for _, n := range arr.shape {
		count *= n
	}
	arr.data = make([]byte, count*es)
	if _, err := io.ReadFull(r, arr.data); err != nil {
		return nil, fmt.Errorf("npy payload: %w", err)
	}
	return arr, nil
}

func writeNPY(w io.Writer, arr *npyArray) error {
	shape := make([]string, len(arr.shape))
	for i, n := range arr.shape {
		shape[i] = strconv.Itoa(n)
	}
	dict := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': (%s), }",
		arr.descr, strings.Join(shape, ", "))
	// Pad so magic+header aligns to 64 bytes, newline-terminated.
	pad := 64 - (10+len(dict)+1)%64
	if pad == 64 {
		pad = 0
	}
	dict = dict + strings.Repeat(" ", pad) + "\n"

	var head bytes.Buffer
	head.WriteString(npyMagic)
	head.WriteByte(1)
	head.WriteByte(0)
	var hlen [2]byte
	binary.LittleEndian.PutUint16(hlen[:], uint16(len(dict)))
	head.Write(hlen[:])
	head.WriteString(dict)

	if _, err := w.Write(head.Bytes()); err != nil {
		return fmt.Errorf("npy header: %w", err)
	}
	if _, err := w.Write(arr.data); err != nil {
		return fmt.Errorf("npy payload: %w", err)
	}
	return nil
}

// typed payload helpers

func (a *npyArray) asUint8() []uint8 {
	out := make([]uint8, len(a.data))
	copy(out, a.data)
	return out
}

func (a *npyArray) asInt32() []int32 {
	out := make([]int32, len(a.data)/4)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(a.data[i*4:]))
	}
	return out
}

func (a *npyArray) asFloat32() []float32 {
	out := make([]float32, len(a.data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(a.data[i*4:]))
	}
	return out
}

func (a *npyArray) asFloat64() []float64 {
	out := make([]float64, len(a.data)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(a.data[i*8:]))
	}
	return out
}

func uint8Array(shape []int, v []uint8) *npyArray {
	data := make([]byte, len(v))
	copy(data, v)
	return &npyArray{descr: "|u1", shape: shape, data: data}
}

func int32Array(shape []int, v []int32) *npyArray {
	data := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(data[i*4:], uint32(x))
	}
	return &npyArray{descr: "<i4", shape: shape, data: data}
}

func float32Array(shape []int, v []float32) *npyArray {
	data := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(x))
	}
	return &npyArray{descr: "<f4", shape: shape, data: data}
}

func float64Array(shape []int, v []float64) *npyArray {
	data := make([]byte, len(v)*8)
	for i, x := range v {
		binary.LittleEndian.PutUint64(data[i*8:], math.Float64bits(x))
	}
	return &npyArray{descr: "<f8", shape: shape, data: data}
}

// readNPZ reads the named members of an NPZ bundle (a zip of .npy files).
func readNPZ(path string) (map[string]*npyArray, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open npz: %w", err)
	}
	defer zr.Close()

	out := make(map[string]*npyArray, len(zr.File))
	for _, f := range zr.File {
		name := strings.TrimSuffix(f.Name, ".npy")
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("npz member %s: %w", f.Name, err)
		}
		arr, err := readNPY(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("npz member %s: %w", f.Name, err)
		}
		out[name] = arr
	}
	return out, nil
}

// writeNPZ writes an NPZ bundle with the given members.
func writeNPZ(w io.Writer, members map[string]*npyArray) error {
	zw := zip.NewWriter(w)
	for name, arr := range members {
		mw, err := zw.Create(name + ".npy")
		if err != nil {
			return fmt.Errorf("npz member %s: %w", name, err)
		}
		if err := writeNPY(mw, arr); err != nil {
			return fmt.Errorf("npz member %s: %w", name, err)
		}
	}
	return zw.Close()
}
