package core

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/signalsfoundry/powermix/internal/tables"
	"github.com/signalsfoundry/powermix/model"
)

// ErrNoAllocationBasis indicates every supplier in a set has zero population.
var ErrNoAllocationBasis = errors.New("no basis for allocation")

// Allocator splits a technology share across suppliers by the population of
// their locations.
type Allocator struct {
	population tables.Population
}

// NewAllocator builds an allocator over a population table.
func NewAllocator(pop tables.Population) *Allocator {
	return &Allocator{population: pop}
}

// Population returns the population of a location, or 0. Aggregates such as
// RER carry no entry of their own and so take no share next to countries.
func (a *Allocator) Population(location string) float64 {
	return a.population.Of(location)
}

// Share returns supplier's population over the summed population of
// suppliers.
func (a *Allocator) Share(supplier *model.Dataset, suppliers []*model.Dataset) (float64, error) {
	total := floats.Sum(a.populations(suppliers))
	if total == 0 {
		return 0, fmt.Errorf("%w: %d suppliers", ErrNoAllocationBasis, len(suppliers))
	}
	return a.Population(supplier.Location) / total, nil
}

// Shares returns the share of every supplier, in order. The shares sum to 1.
func (a *Allocator) Shares(suppliers []*model.Dataset) ([]float64, error) {
	pops := a.populations(suppliers)
	total := floats.Sum(pops)
	if total == 0 {
		return nil, fmt.Errorf("%w: %d suppliers", ErrNoAllocationBasis, len(suppliers))
	}
	for i := range pops {
		pops[i] /= total
	}
	return pops, nil
}

func (a *Allocator) populations(suppliers []*model.Dataset) []float64 {
	out := make([]float64, len(suppliers))
	for i, s := range suppliers {
		out[i] = a.Population(s.Location)
	}
	return out
}
