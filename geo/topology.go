// Package geo relates inventory locations to scenario regions through the
// sets of ISO country codes they cover.
package geo

import (
	"sort"

	"github.com/signalsfoundry/powermix/internal/tables"
)

type isoSet map[string]struct{}

func newISOSet(codes []string) isoSet {
	s := make(isoSet, len(codes))
	for _, c := range codes {
		s[c] = struct{}{}
	}
	return s
}

func (s isoSet) intersects(o isoSet) bool {
	a, b := s, o
	if len(b) < len(a) {
		a, b = b, a
	}
	for c := range a {
		if _, ok := b[c]; ok {
			return true
		}
	}
	return false
}

func (s isoSet) containsAll(o isoSet) bool {
	if len(o) == 0 || len(o) > len(s) {
		return false
	}
	for c := range o {
		if _, ok := s[c]; !ok {
			return false
		}
	}
	return true
}

// Topology is the geo-intersection service. Inventory locations (countries
// and named aggregates) and scenario regions live in separate namespaces and
// are compared through their ISO code sets.
type Topology struct {
	locations map[string]isoSet
	regions   map[string]isoSet
	order     []string
}

// NewTopology builds a topology from the region mapping and a set of
// inventory aggregates. Every mapped ISO code is also an inventory location.
func NewTopology(mapping *tables.RegionMapping, aggregates tables.Aggregates) *Topology {
	t := &Topology{
		locations: make(map[string]isoSet),
		regions:   make(map[string]isoSet),
	}
	for _, region := range mapping.Regions() {
		members := mapping.Members(region)
		t.regions[region] = newISOSet(members)
		t.order = append(t.order, region)
		for _, iso := range members {
			t.locations[iso] = newISOSet([]string{iso})
		}
	}
	for name, members := range aggregates {
		kept := make([]string, 0, len(members))
		for _, iso := range members {
			if _, skip := tables.ExcludedISO[iso]; !skip {
				kept = append(kept, iso)
			}
		}
		t.locations[name] = newISOSet(kept)
	}
	return t
}

// AddRegion defines or replaces a scenario region. New regions are appended
// to the region order.
func (t *Topology) AddRegion(name string, members []string) {
	if _, ok := t.regions[name]; !ok {
		t.order = append(t.order, name)
	}
	t.regions[name] = newISOSet(members)
}

// AddLocation defines or replaces an inventory location.
func (t *Topology) AddLocation(name string, members []string) {
	t.locations[name] = newISOSet(members)
}

// HasRegion reports whether region is a known scenario region.
func (t *Topology) HasRegion(region string) bool {
	_, ok := t.regions[region]
	return ok
}

// Regions returns the scenario regions in mapping-file order.
func (t *Topology) Regions() []string { return append([]string(nil), t.order...) }

// Members returns the ISO codes covered by an inventory location, sorted.
func (t *Topology) Members(location string) []string {
	set := t.locations[location]
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Intersects returns the inventory locations sharing at least one ISO code
// with the scenario region, sorted. Unknown regions yield nil.
func (t *Topology) Intersects(region string) []string {
	rs, ok := t.regions[region]
	if !ok {
		return nil
	}
	var out []string
	for name, ls := range t.locations {
		if rs.intersects(ls) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Within returns the scenario regions that fully contain the location, in
// mapping-file order. Unknown locations yield nil.
func (t *Topology) Within(location string) []string {
	ls, ok := t.locations[location]
	if !ok {
		return nil
	}
	var out []string
	for _, region := range t.order {
		if t.regions[region].containsAll(ls) {
			out = append(out, region)
		}
	}
	return out
}
