package core

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/signalsfoundry/powermix/internal/logging"
	"github.com/signalsfoundry/powermix/internal/observability"
	"github.com/signalsfoundry/powermix/kb"
)

// obsoleteMarkets are removed before new tier markets are composed.
var obsoleteMarkets = []string{
	"market group for electricity, high voltage",
	"market group for electricity, medium voltage",
	"market group for electricity, low voltage",
	"market for electricity, high voltage",
	"market for electricity, medium voltage",
	"market for electricity, low voltage",
	"electricity, high voltage, import",
	"electricity, high voltage, production mix",
}

// Phase names used for spans and the phase duration histogram.
const (
	PhaseRemove     = "remove_markets"
	PhaseCompose    = "compose_markets"
	PhaseRelink     = "relink"
	PhaseEfficiency = "efficiency"
)

// Transformer runs the transform phases over a shared inventory in order.
type Transformer struct {
	env    *Env
	report *Report
}

// NewTransformer validates env and fills its optional fields.
func NewTransformer(env *Env) (*Transformer, error) {
	if err := env.validate(); err != nil {
		return nil, err
	}
	env.defaults()
	return &Transformer{env: env, report: NewReport()}, nil
}

// Report returns the diagnostics accumulated so far.
func (t *Transformer) Report() *Report { return t.report }

// UpdateMarkets replaces the electricity markets of the inventory with
// scenario market groups and relinks their consumers.
func (t *Transformer) UpdateMarkets(ctx context.Context) error {
	err := t.phase(ctx, PhaseRemove, func(ctx context.Context) error {
		removed := t.env.Inventory.RemoveNameContaining(obsoleteMarkets...)
		t.report.Removed += len(removed)
		t.logger(ctx).Info(ctx, "removed obsolete electricity markets", logging.Int("datasets", len(removed)))
		return nil
	})
	if err != nil {
		return err
	}

	composer := NewMarketComposer(t.env, t.report)
	if err := t.phase(ctx, PhaseCompose, composer.BuildAll); err != nil {
		return err
	}

	relinker := NewRelinker(t.env, t.report)
	return t.phase(ctx, PhaseRelink, func(ctx context.Context) error {
		_, err := relinker.Relink(ctx)
		return err
	})
}

// UpdateEfficiency rescales power plants to scenario efficiencies and
// emission intensities.
func (t *Transformer) UpdateEfficiency(ctx context.Context) error {
	return t.phase(ctx, PhaseEfficiency, NewRescaler(t.env, t.report).RescaleAll)
}

// Run rescales power plants and then replaces the electricity markets.
func (t *Transformer) Run(ctx context.Context) (*Report, error) {
	if err := t.UpdateEfficiency(ctx); err != nil {
		return t.report, err
	}
	if err := t.UpdateMarkets(ctx); err != nil {
		return t.report, err
	}
	return t.report, nil
}

func (t *Transformer) phase(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, span := observability.StartPhase(ctx, name,
		attribute.String("scenario", t.env.Scenario.Name),
		attribute.Int("year", t.env.Scenario.Year),
	)
	defer span.End()

	var added, removed int
	unsubscribe := t.env.Inventory.Subscribe(func(e kb.Event) {
		switch e.Type {
		case kb.EventDatasetAdded:
			added++
		case kb.EventDatasetRemoved:
			removed++
		}
	})
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	unsubscribe()
	t.env.Metrics.ObservePhase(name, elapsed, t.env.Inventory.Len())
	if err != nil {
		span.RecordError(err)
		t.logger(ctx).Error(ctx, "transform phase failed", logging.String("phase", name), logging.Err(err))
		return err
	}
	span.SetAttributes(
		attribute.Int("inventory.datasets", t.env.Inventory.Len()),
		attribute.Int("inventory.added", added),
		attribute.Int("inventory.removed", removed),
	)
	t.logger(ctx).Debug(ctx, "transform phase finished",
		logging.String("phase", name),
		logging.Duration("elapsed", elapsed),
		logging.Int("added", added),
		logging.Int("removed", removed),
	)
	return nil
}

func (t *Transformer) logger(ctx context.Context) logging.Logger {
	return logging.FromContext(ctx, t.env.Logger)
}
