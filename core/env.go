// Package core composes scenario electricity markets, relinks their consumers
// and rescales power plants to scenario efficiencies and emission factors.
package core

import (
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/signalsfoundry/powermix/geo"
	"github.com/signalsfoundry/powermix/internal/logging"
	"github.com/signalsfoundry/powermix/internal/tables"
	"github.com/signalsfoundry/powermix/kb"
	"github.com/signalsfoundry/powermix/scenario"
)

// MetricsRecorder receives transform counters. The Prometheus collector in
// internal/observability satisfies it.
type MetricsRecorder interface {
	MarketCreated(tier string)
	ExchangeRelinked(tier string)
	DatasetRescaled(technology string)
	DemandUnresolved(tier string)
	ObservePhase(phase string, d time.Duration, datasets int)
}

type noopMetrics struct{}

func (noopMetrics) MarketCreated(string)                    {}
func (noopMetrics) ExchangeRelinked(string)                 {}
func (noopMetrics) DatasetRescaled(string)                  {}
func (noopMetrics) DemandUnresolved(string)                 {}
func (noopMetrics) ObservePhase(string, time.Duration, int) {}

// Env carries the shared inputs of every transform component. The inventory
// is owned by the caller and mutated in place.
type Env struct {
	Inventory     *kb.Inventory
	Resolver      *geo.Resolver
	Allocator     *Allocator
	Scenario      *scenario.Scenario
	Technologies  tables.TechnologyMap
	Emissions     tables.EmissionMap
	HeatingValues tables.HeatingValues

	// Strict turns unresolved demand and skipped datasets into errors.
	Strict bool

	Logger  logging.Logger
	Metrics MetricsRecorder

	// NewCode generates dataset codes; defaults to 32 hex chars from a
	// random UUID.
	NewCode func() string
}

// ErrIncompleteEnv indicates a transform was started without a required input.
var ErrIncompleteEnv = errors.New("incomplete transform environment")

func (e *Env) validate() error {
	switch {
	case e == nil:
		return ErrIncompleteEnv
	case e.Inventory == nil:
		return fmt.Errorf("%w: missing inventory", ErrIncompleteEnv)
	case e.Resolver == nil:
		return fmt.Errorf("%w: missing resolver", ErrIncompleteEnv)
	case e.Scenario == nil || e.Scenario.Supply == nil:
		return fmt.Errorf("%w: missing scenario supply table", ErrIncompleteEnv)
	}
	return nil
}

func (e *Env) defaults() {
	if e.Logger == nil {
		e.Logger = logging.Noop()
	}
	if e.Metrics == nil {
		e.Metrics = noopMetrics{}
	}
	if e.NewCode == nil {
		e.NewCode = newCode
	}
	if e.Technologies == nil {
		e.Technologies = tables.DefaultTechnologyMap()
	}
	if e.Emissions == nil {
		e.Emissions = tables.DefaultEmissionMap()
	}
	if e.Allocator == nil {
		e.Allocator = NewAllocator(nil)
	}
}

func newCode() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}
