package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/signalsfoundry/powermix/internal/logging"
	"github.com/signalsfoundry/powermix/model"
)

// Loss and leakage coefficients of the three-tier grid, per kWh delivered.
const (
	HighToMediumLoss    = 1.0062
	MediumSelfLoss      = 0.0041
	MediumSF6Leakage    = 5.4e-8
	MediumNetworkLength = 1.8628e-8
	LowSF6Leakage       = 2.99e-9
	LowNetworkLength    = 8.74e-8
	MediumToLowLoss     = 1.0276
	LowSelfLoss         = 0.0298
)

const marketComment = "Dataset produced from REMIND scenario output results"

// Fixed technosphere inputs shared by every region.
const (
	sf6MarketName    = "market for sulfur hexafluoride, liquid"
	sf6Product       = "sulfur hexafluoride, liquid"
	mvNetworkName    = "transmission network construction, electricity, medium voltage"
	mvNetworkProduct = "transmission network, electricity, medium voltage"
	lvNetworkName    = "distribution network construction, electricity, low voltage"
	lvNetworkProduct = "distribution network, electricity, low voltage"
	sf6FlowName      = "Sulfur hexafluoride"
)

// Sulfur hexafluoride emission to air.
var (
	sf6FlowKey    = model.FlowKey{Database: "biosphere3", Code: "35d1dff5-b535-4628-9826-4a8fce08a1f2"}
	sf6Categories = []string{"air", "non-urban air or from high stacks"}
)

var (
	// ErrTierMissing indicates a market of a lower tier references a tier
	// market that was not composed.
	ErrTierMissing = errors.New("voltage tier market missing")
	// ErrInvalidShare indicates a NaN technology share in the supply table.
	ErrInvalidShare = errors.New("invalid supply share")
)

// MarketComposer synthesizes one market group per scenario region and
// voltage tier.
type MarketComposer struct {
	env    *Env
	report *Report
	homes  map[string][]string
}

// NewMarketComposer builds a composer that appends to env's inventory and
// records diagnostics into report.
func NewMarketComposer(env *Env, report *Report) *MarketComposer {
	if report == nil {
		report = NewReport()
	}
	return &MarketComposer{env: env, report: report, homes: make(map[string][]string)}
}

// BuildAll composes high, medium and low voltage markets in that order.
func (c *MarketComposer) BuildAll(ctx context.Context) error {
	for _, build := range []func(context.Context) ([]*model.Dataset, error){c.BuildHigh, c.BuildMedium, c.BuildLow} {
		if _, err := build(ctx); err != nil {
			return err
		}
	}
	return nil
}

// BuildHigh composes the high voltage markets from every non-solar
// technology with a non-zero share.
func (c *MarketComposer) BuildHigh(ctx context.Context) ([]*model.Dataset, error) {
	return c.build(ctx, model.TierHigh, func(region string, ds *model.Dataset) error {
		home := c.homeLocations(ctx, region)
		for _, variable := range c.env.Scenario.Variables() {
			if isSolar(variable) {
				continue
			}
			share, err := c.env.Scenario.Supply.AtIndex(variable, region, 0)
			if err != nil {
				return err
			}
			if share == 0 {
				continue
			}
			excs, err := c.supply(ctx, model.TierHigh, region, home, variable, share)
			if err != nil {
				return err
			}
			ds.Exchanges = append(ds.Exchanges, excs...)
		}
		return nil
	})
}

// BuildMedium composes the medium voltage markets. Each consumes the high
// voltage market of its region.
func (c *MarketComposer) BuildMedium(ctx context.Context) ([]*model.Dataset, error) {
	return c.build(ctx, model.TierMedium, func(region string, ds *model.Dataset) error {
		high, err := c.requireTier(model.TierHigh, region)
		if err != nil {
			return err
		}
		ds.Exchanges = append(ds.Exchanges,
			model.NewTechnosphere(high, model.TierHigh.Product(), model.UnitKilowattHour, region, HighToMediumLoss),
			model.NewTechnosphere(ds.Name, ds.ReferenceProduct, model.UnitKilowattHour, region, MediumSelfLoss),
		)
		ds.Exchanges = append(ds.Exchanges, sf6Leakage(MediumSF6Leakage)...)
		ds.Exchanges = append(ds.Exchanges,
			model.NewTechnosphere(mvNetworkName, mvNetworkProduct, model.UnitKilometer, model.LocationRestOfWorld, MediumNetworkLength))
		return nil
	})
}

// BuildLow composes the low voltage markets. Solar technologies supply the
// low tier directly; the remaining demand is routed to the medium voltage
// market of the region.
func (c *MarketComposer) BuildLow(ctx context.Context) ([]*model.Dataset, error) {
	return c.build(ctx, model.TierLow, func(region string, ds *model.Dataset) error {
		medium, err := c.requireTier(model.TierMedium, region)
		if err != nil {
			return err
		}
		ds.Exchanges = append(ds.Exchanges, sf6Leakage(LowSF6Leakage)...)
		ds.Exchanges = append(ds.Exchanges,
			model.NewTechnosphere(lvNetworkName, lvNetworkProduct, model.UnitKilometer, model.LocationRestOfWorld, LowNetworkLength))

		var solar float64
		home := c.homeLocations(ctx, region)
		for _, variable := range c.env.Scenario.Variables() {
			if !isSolar(variable) {
				continue
			}
			share, err := c.env.Scenario.Supply.AtIndex(variable, region, 0)
			if err != nil {
				return err
			}
			if share == 0 {
				continue
			}
			// Unresolved solar still reduces the medium voltage input.
			solar += share
			excs, err := c.supply(ctx, model.TierLow, region, home, variable, share)
			if err != nil {
				return err
			}
			ds.Exchanges = append(ds.Exchanges, excs...)
		}

		ds.Exchanges = append(ds.Exchanges,
			model.NewTechnosphere(medium, model.TierMedium.Product(), model.UnitKilowattHour, region, (1-solar)*MediumToLowLoss),
			model.NewTechnosphere(ds.Name, ds.ReferenceProduct, model.UnitKilowattHour, region, LowSelfLoss),
		)
		return nil
	})
}

func (c *MarketComposer) build(ctx context.Context, tier model.VoltageTier, fill func(region string, ds *model.Dataset) error) ([]*model.Dataset, error) {
	database := c.env.Inventory.DatabaseTag()
	var out []*model.Dataset
	for _, region := range c.env.Scenario.Regions() {
		ds := c.newMarket(tier, region, database)
		if err := fill(region, ds); err != nil {
			return out, fmt.Errorf("%s voltage market for %s: %w", tier, region, err)
		}
		if err := c.env.Inventory.Add(ds); err != nil {
			return out, fmt.Errorf("%s voltage market for %s: %w", tier, region, err)
		}
		c.report.MarketsCreated[tier]++
		c.env.Metrics.MarketCreated(string(tier))
		out = append(out, ds)
	}
	c.env.Logger.Info(ctx, "composed electricity markets",
		logging.String("tier", string(tier)),
		logging.Int("markets", len(out)),
	)
	return out, nil
}

func (c *MarketComposer) newMarket(tier model.VoltageTier, region, database string) *model.Dataset {
	name := tier.MarketName(c.env.Scenario.Name, c.env.Scenario.Year)
	production := &model.Exchange{
		Type:        model.ExchangeProduction,
		Name:        name,
		Product:     tier.Product(),
		Unit:        model.UnitKilowattHour,
		Amount:      1,
		Uncertainty: model.Uncertainty{Loc: 1},
		Location:    region,
	}
	return &model.Dataset{
		Code:             c.env.NewCode(),
		Location:         region,
		Name:             name,
		ReferenceProduct: tier.Product(),
		Unit:             model.UnitKilowattHour,
		Database:         database,
		Comment:          marketComment,
		Exchanges:        []*model.Exchange{production},
	}
}

// requireTier returns the name of the tier market for region, or
// ErrTierMissing when it has not been composed.
func (c *MarketComposer) requireTier(tier model.VoltageTier, region string) (string, error) {
	name := tier.MarketName(c.env.Scenario.Name, c.env.Scenario.Year)
	if len(c.env.Inventory.Lookup([]string{name}, []string{region})) == 0 {
		return "", fmt.Errorf("%w: %s voltage market for %s", ErrTierMissing, tier, region)
	}
	return name, nil
}

// homeLocations resolves and caches the inventory locations of a region.
// An unknown region has no home locations and relies on the fallbacks.
func (c *MarketComposer) homeLocations(ctx context.Context, region string) []string {
	if home, ok := c.homes[region]; ok {
		return home
	}
	home, err := c.env.Resolver.ScenarioToInventory(region)
	if err != nil {
		c.env.Logger.Warn(ctx, "scenario region has no inventory locations",
			logging.String("region", region),
			logging.Err(err),
		)
		if !contains(c.report.UnmappedRegions, region) {
			c.report.UnmappedRegions = append(c.report.UnmappedRegions, region)
		}
	}
	c.homes[region] = home
	return home
}

// supply resolves the suppliers of one technology share and splits the
// share across them by population.
func (c *MarketComposer) supply(ctx context.Context, tier model.VoltageTier, region string, home []string, variable string, share float64) ([]*model.Exchange, error) {
	if math.IsNaN(share) {
		return nil, fmt.Errorf("%w: %s in %s", ErrInvalidShare, variable, region)
	}
	label, ok := c.env.Scenario.SupplyLabels.Label(variable)
	if !ok {
		label = variable
	}
	names := c.env.Technologies.Names(label)
	if len(names) == 0 {
		return nil, c.unresolved(ctx, tier, region, label, share,
			fmt.Errorf("%w: no inventory names for %q", ErrUnresolvedDemand, label))
	}

	suppliers, step, err := ResolveSuppliers(c.env.Inventory, home, names)
	if err != nil {
		return nil, c.unresolved(ctx, tier, region, label, share, err)
	}
	shares, err := c.env.Allocator.Shares(suppliers)
	if err != nil {
		return nil, c.unresolved(ctx, tier, region, label, share, err)
	}
	if step > 0 {
		c.env.Logger.Debug(ctx, "suppliers found through fallback",
			logging.String("region", region),
			logging.String("technology", label),
			logging.Strings("locations", supplierFallbacks[step-1]),
		)
	}

	out := make([]*model.Exchange, 0, len(suppliers))
	for i, s := range suppliers {
		out = append(out, model.NewTechnosphere(s.Name, s.ReferenceProduct, model.UnitKilowattHour, s.Location, share*shares[i]))
	}
	return out, nil
}

// unresolved zeroes a technology share. It returns cause in strict mode.
func (c *MarketComposer) unresolved(ctx context.Context, tier model.VoltageTier, region, technology string, share float64, cause error) error {
	c.report.Unresolved = append(c.report.Unresolved, Unresolved{
		Tier:       tier,
		Region:     region,
		Technology: technology,
		Share:      share,
		Reason:     cause.Error(),
	})
	c.env.Metrics.DemandUnresolved(string(tier))
	c.env.Logger.Warn(ctx, "technology share left unallocated",
		logging.String("tier", string(tier)),
		logging.String("region", region),
		logging.String("technology", technology),
		logging.Float("share", share),
		logging.Err(cause),
	)
	if c.env.Strict {
		return fmt.Errorf("%s: %w", technology, cause)
	}
	return nil
}

func sf6Leakage(amount float64) []*model.Exchange {
	return []*model.Exchange{
		model.NewTechnosphere(sf6MarketName, sf6Product, model.UnitKilogram, model.LocationRestOfWorld, amount),
		model.NewBiosphere(sf6FlowName, model.UnitKilogram, sf6FlowKey, sf6Categories, amount),
	}
}

func isSolar(variable string) bool { return strings.Contains(variable, "Solar") }

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
