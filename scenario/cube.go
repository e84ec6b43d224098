// Package scenario holds the scenario model's regional projections as
// labelled three-axis arrays.
package scenario

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrAxisLabel indicates a label that is not on the requested axis.
	ErrAxisLabel = errors.New("unknown axis label")
	// ErrShape indicates values that do not match the declared axes.
	ErrShape = errors.New("cube shape mismatch")
)

// Axis is an ordered set of labels.
type Axis struct {
	Name   string
	labels []string
	index  map[string]int
}

func newAxis(name string, labels []string) (*Axis, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: axis %q is empty", ErrShape, name)
	}
	a := &Axis{Name: name, labels: append([]string(nil), labels...), index: make(map[string]int, len(labels))}
	for i, l := range labels {
		if _, dup := a.index[l]; dup {
			return nil, fmt.Errorf("%w: duplicate label %q on axis %q", ErrShape, l, name)
		}
		a.index[l] = i
	}
	return a, nil
}

// Labels returns the axis labels in order.
func (a *Axis) Labels() []string { return append([]string(nil), a.labels...) }

// Len returns the number of labels.
func (a *Axis) Len() int { return len(a.labels) }

// Index returns the position of label.
func (a *Axis) Index(label string) (int, error) {
	i, ok := a.index[label]
	if !ok {
		return 0, fmt.Errorf("%w: %q not on axis %q", ErrAxisLabel, label, a.Name)
	}
	return i, nil
}

// Cube is a dense three-axis array. Each index of the third axis owns one
// matrix whose rows follow the first axis and columns the second.
type Cube struct {
	axes  [3]*Axis
	slabs []*mat.Dense
}

// NewCube allocates a zero-valued cube.
func NewCube(names [3]string, first, second, third []string) (*Cube, error) {
	var c Cube
	for i, labels := range [3][]string{first, second, third} {
		a, err := newAxis(names[i], labels)
		if err != nil {
			return nil, err
		}
		c.axes[i] = a
	}
	c.slabs = make([]*mat.Dense, len(third))
	for k := range c.slabs {
		c.slabs[k] = mat.NewDense(len(first), len(second), nil)
	}
	return &c, nil
}

// Axis returns axis 0, 1 or 2.
func (c *Cube) Axis(i int) *Axis { return c.axes[i] }

func (c *Cube) locate(a, b string) (int, int, error) {
	i, err := c.axes[0].Index(a)
	if err != nil {
		return 0, 0, err
	}
	j, err := c.axes[1].Index(b)
	if err != nil {
		return 0, 0, err
	}
	return i, j, nil
}

// At returns the value addressed by three labels.
func (c *Cube) At(a, b, third string) (float64, error) {
	i, j, err := c.locate(a, b)
	if err != nil {
		return 0, err
	}
	k, err := c.axes[2].Index(third)
	if err != nil {
		return 0, err
	}
	return c.slabs[k].At(i, j), nil
}

// AtIndex returns the value for two labels at position k of the third axis.
func (c *Cube) AtIndex(a, b string, k int) (float64, error) {
	i, j, err := c.locate(a, b)
	if err != nil {
		return 0, err
	}
	if k < 0 || k >= len(c.slabs) {
		return 0, fmt.Errorf("%w: index %d outside axis %q", ErrAxisLabel, k, c.axes[2].Name)
	}
	return c.slabs[k].At(i, j), nil
}

// Set stores a value addressed by three labels.
func (c *Cube) Set(a, b, third string, v float64) error {
	i, j, err := c.locate(a, b)
	if err != nil {
		return err
	}
	k, err := c.axes[2].Index(third)
	if err != nil {
		return err
	}
	c.slabs[k].Set(i, j, v)
	return nil
}

// Mean averages the values of a over the given second-axis labels at
// position k of the third axis. NaN is returned for an empty label set.
func (c *Cube) Mean(a string, bs []string, k int) (float64, error) {
	if len(bs) == 0 {
		return math.NaN(), nil
	}
	vals := make([]float64, 0, len(bs))
	for _, b := range bs {
		v, err := c.AtIndex(a, b, k)
		if err != nil {
			return 0, err
		}
		vals = append(vals, v)
	}
	return stat.Mean(vals, nil), nil
}
