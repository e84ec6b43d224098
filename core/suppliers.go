package core

import (
	"errors"
	"fmt"

	"github.com/signalsfoundry/powermix/kb"
	"github.com/signalsfoundry/powermix/model"
)

// ErrUnresolvedDemand indicates no supplier was found after every fallback.
var ErrUnresolvedDemand = errors.New("unresolved supplier demand")

// supplierFallbacks are tried in order when the home locations of a region
// have no supplier.
var supplierFallbacks = [][]string{
	{model.LocationEurope},
	{model.LocationRestOfWorld},
}

// FindSuppliers returns electricity datasets whose name is one of names and
// whose location is one of locations, in inventory order.
func FindSuppliers(inv *kb.Inventory, locations, names []string) []*model.Dataset {
	var out []*model.Dataset
	for _, ds := range inv.Lookup(names, locations) {
		if ds.Unit == model.UnitKilowattHour {
			out = append(out, ds)
		}
	}
	return out
}

// ResolveSuppliers tries the home locations, then each fallback, and returns
// the first non-empty supplier set with the index of the step that matched
// (0 for home).
func ResolveSuppliers(inv *kb.Inventory, home, names []string) ([]*model.Dataset, int, error) {
	steps := make([][]string, 0, len(supplierFallbacks)+1)
	steps = append(steps, home)
	steps = append(steps, supplierFallbacks...)

	for i, locations := range steps {
		if len(locations) == 0 {
			continue
		}
		if suppliers := FindSuppliers(inv, locations, names); len(suppliers) > 0 {
			return suppliers, i, nil
		}
	}
	return nil, len(steps), fmt.Errorf("%w: none of %d names in %d location sets", ErrUnresolvedDemand, len(names), len(steps))
}
