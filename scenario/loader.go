package scenario

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
)

// internal JSON shape; values are indexed [third][first][second]. A null
// cell is a missing value and loads as NaN.
type cubeJSON struct {
	Names  [3]string         `json:"names"`
	Axes   [3][]string       `json:"axes"`
	Values [][][]*float64    `json:"values"`
	Labels map[string]string `json:"labels"`
}

// LoadCube decodes a cube and its optional label table from r.
func LoadCube(r io.Reader) (*Cube, *Labels, error) {
	var payload cubeJSON
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, nil, fmt.Errorf("LoadCube: decode failed: %w", err)
	}

	c, err := NewCube(payload.Names, payload.Axes[0], payload.Axes[1], payload.Axes[2])
	if err != nil {
		return nil, nil, fmt.Errorf("LoadCube: %w", err)
	}
	if len(payload.Values) != len(payload.Axes[2]) {
		return nil, nil, fmt.Errorf("LoadCube: %w: %d slabs for %d labels", ErrShape, len(payload.Values), len(payload.Axes[2]))
	}
	for k, slab := range payload.Values {
		if len(slab) != len(payload.Axes[0]) {
			return nil, nil, fmt.Errorf("LoadCube: %w: slab %d has %d rows", ErrShape, k, len(slab))
		}
		for i, row := range slab {
			if len(row) != len(payload.Axes[1]) {
				return nil, nil, fmt.Errorf("LoadCube: %w: slab %d row %d has %d columns", ErrShape, k, i, len(row))
			}
			for j, v := range row {
				if v == nil {
					c.slabs[k].Set(i, j, math.NaN())
					continue
				}
				c.slabs[k].Set(i, j, *v)
			}
		}
	}
	return c, NewLabels(payload.Labels), nil
}

// LoadCubeFile opens path and decodes it with LoadCube.
func LoadCubeFile(path string) (*Cube, *Labels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	c, l, err := LoadCube(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, l, nil
}
