package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/signalsfoundry/powermix/internal/logging"
	"github.com/signalsfoundry/powermix/kb"
	"github.com/signalsfoundry/powermix/model"
)

// ErrDanglingLink indicates a consumer input left pointing at a supplier that
// is no longer in the inventory.
var ErrDanglingLink = errors.New("input points at a removed dataset")

// electricityInput selects exchanges that look like electricity purchases.
var electricityInput = kb.Either(
	kb.Contains(model.FieldUnit, model.UnitKilowattHour),
	kb.Contains(model.FieldName, "market for electricity"),
	kb.Contains(model.FieldName, "electricity voltage transformation"),
	kb.Contains(model.FieldName, "market group for electricity"),
)

// consumers excludes the composed and pre-existing market groups.
var consumers = kb.Exclude(kb.Contains(model.FieldName, "market group for electricity"))

// Relinker points the electricity inputs of every consumer at the composed
// tier markets of the consumer's scenario region.
type Relinker struct {
	env     *Env
	report  *Report
	regions map[string][]string
}

// NewRelinker builds a relinker over env's inventory.
func NewRelinker(env *Env, report *Report) *Relinker {
	if report == nil {
		report = NewReport()
	}
	return &Relinker{env: env, report: report, regions: make(map[string][]string)}
}

// Relink rewrites matching exchanges and returns how many were changed.
// Every scenario region must carry all three tier markets. Running it twice
// changes nothing the second time.
func (r *Relinker) Relink(ctx context.Context) (int, error) {
	names := make(map[model.VoltageTier]string, len(model.Tiers))
	markets := make(map[model.VoltageTier]map[string]bool, len(model.Tiers))
	for _, tier := range model.Tiers {
		name := tier.MarketName(r.env.Scenario.Name, r.env.Scenario.Year)
		names[tier] = name
		markets[tier] = make(map[string]bool)
		for _, ds := range r.env.Inventory.ByName(name) {
			markets[tier][ds.Location] = true
		}
		for _, region := range r.env.Scenario.Regions() {
			if !markets[tier][region] {
				return 0, fmt.Errorf("%w: %s voltage market for %s", ErrTierMissing, tier, region)
			}
		}
	}

	relinked := 0
	for _, ds := range r.env.Inventory.Select(consumers) {
		for _, exc := range ds.Exchanges {
			if !isElectricityInput(exc) {
				continue
			}
			tier, ok := tierOf(exc.Product)
			if !ok || exc.Name == names[tier] {
				continue
			}
			region, ok := r.targetRegion(exc)
			if !ok {
				if err := r.unmapped(ctx, ds, exc, "no scenario region contains location"); err != nil {
					return relinked, err
				}
				continue
			}
			if !markets[tier][region] {
				if err := r.unmapped(ctx, ds, exc, fmt.Sprintf("no %s voltage market for region %s", tier, region)); err != nil {
					return relinked, err
				}
				continue
			}

			exc.Name = names[tier]
			exc.Product = tier.Product()
			exc.Location = region
			relinked++
			r.report.Relinked[tier]++
			r.env.Metrics.ExchangeRelinked(string(tier))
		}
	}

	r.env.Logger.Info(ctx, "relinked electricity consumers",
		logging.Int("exchanges", relinked),
		logging.Int("unmapped_locations", len(r.report.UnmappedLocations)),
	)
	return relinked, nil
}

// targetRegion maps the exchange's supplier location to the first scenario
// region that contains it.
func (r *Relinker) targetRegion(exc *model.Exchange) (string, bool) {
	regions, cached := r.regions[exc.Location]
	if !cached {
		regions = r.env.Resolver.InventoryToScenario(exc.Location)
		r.regions[exc.Location] = regions
	}
	if len(regions) == 0 {
		return "", false
	}
	return regions[0], true
}

// unmapped records an exchange that stays as it is. When its supplier is gone
// from the inventory the link is dangling, which fails a strict run.
func (r *Relinker) unmapped(ctx context.Context, ds *model.Dataset, exc *model.Exchange, reason string) error {
	r.report.addUnmappedLocation(ds.Name, exc.Location, reason)
	if len(r.env.Inventory.Lookup([]string{exc.Name}, []string{exc.Location})) > 0 {
		return nil
	}
	r.report.addDanglingLink(ds.Name, exc.Name, exc.Location)
	r.env.Logger.Warn(ctx, "input left pointing at a removed dataset",
		logging.Dataset(ds.Name, ds.Location),
		logging.String("input", exc.Name),
		logging.String("input_location", exc.Location),
	)
	if r.env.Strict {
		return fmt.Errorf("%w: %s in %s from %s", ErrDanglingLink, exc.Name, exc.Location, ds.Name)
	}
	return nil
}

// isElectricityInput reports whether exc is a non-production electricity
// purchase measured in kilowatt hours.
func isElectricityInput(exc *model.Exchange) bool {
	if !electricityInput.Match(exc) {
		return false
	}
	return exc.Type != model.ExchangeProduction && exc.Unit == model.UnitKilowattHour
}

// tierOf picks the voltage tier named by a product, checking high, medium
// and low in turn.
func tierOf(product string) (model.VoltageTier, bool) {
	for _, tier := range model.Tiers {
		if strings.Contains(product, string(tier)) {
			return tier, true
		}
	}
	return "", false
}
