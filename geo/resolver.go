package geo

import (
	"context"
	"errors"
	"fmt"

	"github.com/signalsfoundry/powermix/internal/logging"
	"github.com/signalsfoundry/powermix/model"
)

// ErrUnknownRegion indicates a scenario region the topology does not know.
var ErrUnknownRegion = errors.New("unknown scenario region")

// Inventory locations with a fixed scenario region.
const (
	defaultRoWRegion = "CAZ"
	iaiArea          = "IAI Area, Russia & RER w/o EU27 & EFTA"
	iaiAreaRegion    = "REF"
)

// tieBreaks resolves locations contained in more than one scenario region.
// Rules apply in order; when both regions are present, drop is removed.
var tieBreaks = []struct{ drop, keep string }{
	{"EUR", "NEU"},
	{"EUR", "REF"},
	{"OAS", "IND"},
	{"OAS", "JPN"},
	{"AFR", "SSA"},
	{"USA", "CAZ"},
	{"OAS", "CHA"},
	{"AFR", "MEA"},
	{"OAS", "MEA"},
	{"OAS", "REF"},
	{"OAS", "EUR"},
}

// Resolver maps between scenario regions and inventory locations.
type Resolver struct {
	topo *Topology
	log  logging.Logger
}

// NewResolver constructs a resolver over topo. A nil logger drops logs.
func NewResolver(topo *Topology, log logging.Logger) *Resolver {
	if log == nil {
		log = logging.Noop()
	}
	return &Resolver{topo: topo, log: log}
}

// Topology returns the underlying geo-intersection service.
func (r *Resolver) Topology() *Topology { return r.topo }

// ScenarioToInventory returns the inventory locations covered by a scenario
// region. World maps to the global location.
func (r *Resolver) ScenarioToInventory(region string) ([]string, error) {
	if region == model.RegionWorld {
		return []string{model.LocationGlobal}, nil
	}
	if !r.topo.HasRegion(region) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRegion, region)
	}
	var out []string
	for _, loc := range r.topo.Intersects(region) {
		if r.topo.HasRegion(loc) {
			continue
		}
		out = append(out, loc)
	}
	return out, nil
}

// InventoryToScenario returns the scenario region(s) of an inventory
// location, narrowed by the tie-break table. An empty result is logged and
// left for the caller to handle.
func (r *Resolver) InventoryToScenario(location string) []string {
	switch location {
	case model.LocationGlobal:
		return []string{model.RegionWorld}
	case model.LocationRestOfWorld:
		return []string{defaultRoWRegion}
	case iaiArea:
		return []string{iaiAreaRegion}
	}

	var regions []string
	for _, region := range r.topo.Within(location) {
		if region != model.RegionWorld {
			regions = append(regions, region)
		}
	}

	if len(regions) > 1 {
		regions = applyTieBreaks(regions)
	}
	if len(regions) == 0 {
		r.log.Warn(context.Background(), "no scenario region for location",
			logging.String("location", location),
		)
	}
	return regions
}

func applyTieBreaks(regions []string) []string {
	for _, rule := range tieBreaks {
		if contains(regions, rule.drop) && contains(regions, rule.keep) {
			regions = remove(regions, rule.drop)
		}
	}
	return regions
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func remove(list []string, v string) []string {
	out := list[:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
