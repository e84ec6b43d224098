// Package tables loads the semicolon-separated lookup tables consumed by the
// transform: region membership, population per country, fuel heating values
// and geography aggregates.
package tables

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrTableMissing indicates a required lookup file does not exist.
var ErrTableMissing = errors.New("lookup table missing")

// ExcludedISO lists country codes the geography service cannot place.
var ExcludedISO = map[string]struct{}{
	"CC": {}, "CX": {}, "GG": {}, "JE": {}, "BL": {},
}

// RegionMapping relates ISO country codes to scenario regions.
type RegionMapping struct {
	regionOf map[string]string
	members  map[string][]string
	regions  []string
}

// NewRegionMapping builds a mapping from (ISO, region) pairs, dropping
// excluded codes. Regions keep first-seen order; members keep input order.
func NewRegionMapping(pairs [][2]string) *RegionMapping {
	m := &RegionMapping{
		regionOf: make(map[string]string),
		members:  make(map[string][]string),
	}
	for _, p := range pairs {
		iso, region := p[0], p[1]
		if _, skip := ExcludedISO[iso]; skip {
			continue
		}
		if _, seen := m.members[region]; !seen {
			m.regions = append(m.regions, region)
		}
		m.members[region] = append(m.members[region], iso)
		m.regionOf[iso] = region
	}
	return m
}

// Region returns the scenario region of an ISO code.
func (m *RegionMapping) Region(iso string) (string, bool) {
	r, ok := m.regionOf[iso]
	return r, ok
}

// Members returns the ISO codes of a region in file order.
func (m *RegionMapping) Members(region string) []string {
	return append([]string(nil), m.members[region]...)
}

// Regions returns scenario regions in file order.
func (m *RegionMapping) Regions() []string {
	return append([]string(nil), m.regions...)
}

// Population maps ISO codes to population counts. Missing codes count as 0.
type Population map[string]float64

// Of returns the population of a location, or 0.
func (p Population) Of(location string) float64 { return p[location] }

// HeatingValues maps fuel labels to lower heating values in MJ per unit.
type HeatingValues map[string]float64

// Aggregates maps inventory aggregate locations to member ISO codes.
type Aggregates map[string][]string

// LoadRegionMapping reads [ignored;ISO;region] rows.
func LoadRegionMapping(path string) (*RegionMapping, error) {
	rows, err := readFile(path, 3)
	if err != nil {
		return nil, fmt.Errorf("region mapping: %w", err)
	}
	pairs := make([][2]string, 0, len(rows))
	for _, r := range rows {
		pairs = append(pairs, [2]string{r[1], r[2]})
	}
	return NewRegionMapping(pairs), nil
}

// LoadPopulation reads [ISO;count] rows.
func LoadPopulation(path string) (Population, error) {
	rows, err := readFile(path, 2)
	if err != nil {
		return nil, fmt.Errorf("population: %w", err)
	}
	out := make(Population, len(rows))
	for i, r := range rows {
		v, err := parseNumber(r[1])
		if err != nil {
			return nil, fmt.Errorf("population row %d: %w", i+2, err)
		}
		out[r[0]] = v
	}
	return out, nil
}

// LoadHeatingValues reads [fuel;LHV] rows.
func LoadHeatingValues(path string) (HeatingValues, error) {
	rows, err := readFile(path, 2)
	if err != nil {
		return nil, fmt.Errorf("heating values: %w", err)
	}
	out := make(HeatingValues, len(rows))
	for i, r := range rows {
		v, err := parseNumber(r[1])
		if err != nil {
			return nil, fmt.Errorf("heating values row %d: %w", i+2, err)
		}
		out[r[0]] = v
	}
	return out, nil
}

// LoadAggregates reads [aggregate;ISO] rows, one member per row.
func LoadAggregates(path string) (Aggregates, error) {
	rows, err := readFile(path, 2)
	if err != nil {
		return nil, fmt.Errorf("aggregates: %w", err)
	}
	out := make(Aggregates)
	for _, r := range rows {
		out[r[0]] = append(out[r[0]], r[1])
	}
	return out, nil
}

func readFile(path string, minCols int) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTableMissing, path)
		}
		return nil, err
	}
	defer f.Close()
	return Read(f, minCols)
}

// Read parses a ';' separated table, skipping the header line and blank
// rows. Every remaining row must have at least minCols trimmed columns.
func Read(r io.Reader, minCols int) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out [][]string
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if line == 1 {
			continue
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		if len(rec) == 1 && rec[0] == "" {
			continue
		}
		if len(rec) < minCols {
			return nil, fmt.Errorf("line %d: want %d columns, got %d", line, minCols, len(rec))
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}
