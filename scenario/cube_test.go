package scenario

import (
	"errors"
	"math"
	"strings"
	"testing"
)

const supplyJSON = `{
  "names": ["variable", "region", "time"],
  "axes": [["SE|Electricity|Coal", "SE|Electricity|Solar"], ["EUR", "USA", "CAZ"], ["0", "1"]],
  "values": [
    [[0.6, 0.5, 0.2], [0.4, 0.5, 0.8]],
    [[0.5, 0.4, 0.1], [0.5, 0.6, 0.9]]
  ],
  "labels": {"Coal PC": "SE|Electricity|Coal", "Solar PV": "SE|Electricity|Solar"}
}`

func TestLoadCubeIndexesAxes(t *testing.T) {
	c, labels, err := LoadCube(strings.NewReader(supplyJSON))
	if err != nil {
		t.Fatalf("LoadCube: %v", err)
	}
	v, err := c.At("SE|Electricity|Solar", "CAZ", "1")
	if err != nil {
		t.Fatalf("At: %v", err)
	}
	if v != 0.9 {
		t.Fatalf("At = %v, want 0.9", v)
	}
	if v, _ := c.AtIndex("SE|Electricity|Coal", "USA", 0); v != 0.5 {
		t.Fatalf("AtIndex = %v, want 0.5", v)
	}

	if variable, ok := labels.Variable("Coal PC"); !ok || variable != "SE|Electricity|Coal" {
		t.Fatalf("Variable(Coal PC) = %q,%v", variable, ok)
	}
	if label, ok := labels.Label("SE|Electricity|Solar"); !ok || label != "Solar PV" {
		t.Fatalf("Label = %q,%v", label, ok)
	}
}

func TestCubeUnknownLabel(t *testing.T) {
	c, _, err := LoadCube(strings.NewReader(supplyJSON))
	if err != nil {
		t.Fatalf("LoadCube: %v", err)
	}
	if _, err := c.At("SE|Electricity|Wind", "EUR", "0"); !errors.Is(err, ErrAxisLabel) {
		t.Fatalf("err = %v, want ErrAxisLabel", err)
	}
	if _, err := c.AtIndex("SE|Electricity|Coal", "EUR", 5); !errors.Is(err, ErrAxisLabel) {
		t.Fatalf("err = %v, want ErrAxisLabel", err)
	}
}

func TestCubeMean(t *testing.T) {
	c, _, err := LoadCube(strings.NewReader(supplyJSON))
	if err != nil {
		t.Fatalf("LoadCube: %v", err)
	}
	m, err := c.Mean("SE|Electricity|Coal", []string{"EUR", "USA"}, 0)
	if err != nil {
		t.Fatalf("Mean: %v", err)
	}
	if math.Abs(m-0.55) > 1e-12 {
		t.Fatalf("Mean = %v, want 0.55", m)
	}
	if m, _ := c.Mean("SE|Electricity|Coal", nil, 0); !math.IsNaN(m) {
		t.Fatalf("Mean of nothing = %v, want NaN", m)
	}
}

func TestLoadCubeRejectsShapeMismatch(t *testing.T) {
	bad := `{"axes": [["a"], ["b", "c"], ["0"]], "values": [[[1]]]}`
	if _, _, err := LoadCube(strings.NewReader(bad)); !errors.Is(err, ErrShape) {
		t.Fatalf("err = %v, want ErrShape", err)
	}
	empty := `{"axes": [[], ["b"], ["0"]], "values": []}`
	if _, _, err := LoadCube(strings.NewReader(empty)); !errors.Is(err, ErrShape) {
		t.Fatalf("err = %v, want ErrShape", err)
	}
}

func TestSetThenAt(t *testing.T) {
	c, err := NewCube([3]string{"sector", "region", "pollutant"}, []string{"coal"}, []string{"EUR"}, []string{"SO2", "NOx"})
	if err != nil {
		t.Fatalf("NewCube: %v", err)
	}
	if err := c.Set("coal", "EUR", "NOx", 0.042); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, _ := c.At("coal", "EUR", "NOx"); v != 0.042 {
		t.Fatalf("At = %v", v)
	}
	if v, _ := c.At("coal", "EUR", "SO2"); v != 0 {
		t.Fatalf("untouched cell = %v", v)
	}
}

func TestLoadCubeNullCellIsNaN(t *testing.T) {
	in := `{
  "names": ["sector", "region", "pollutant"],
  "axes": [["Power|Coal"], ["EUR", "USA"], ["SO2"]],
  "values": [[[null, 0.05]]]
}`
	c, _, err := LoadCube(strings.NewReader(in))
	if err != nil {
		t.Fatalf("LoadCube: %v", err)
	}
	if v, _ := c.At("Power|Coal", "EUR", "SO2"); !math.IsNaN(v) {
		t.Fatalf("null cell = %v, want NaN", v)
	}
	if v, _ := c.At("Power|Coal", "USA", "SO2"); v != 0.05 {
		t.Fatalf("At(USA) = %v, want 0.05", v)
	}
}
