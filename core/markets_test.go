package core

import (
	"context"
	"errors"
	"testing"

	"github.com/signalsfoundry/powermix/internal/tables"
	"github.com/signalsfoundry/powermix/model"
)

func TestBuildAllMatchesScenarioShares(t *testing.T) {
	env := testEnv(t)
	report := NewReport()
	if err := NewMarketComposer(env, report).BuildAll(context.Background()); err != nil {
		t.Fatalf("BuildAll: %v", err)
	}

	high := market(t, env.Inventory, model.TierHigh, "EUR")
	cases := []struct {
		name string
		want float64
	}{
		{coalPlant, 0.6},
		{windPlant, 0.3},
		{solarPlant, 0},
	}
	for _, tc := range cases {
		if got := inputsFrom(high, tc.name); !approx(got, tc.want) {
			t.Errorf("EUR high voltage %q = %v, want %v", tc.name, got, tc.want)
		}
	}

	low := market(t, env.Inventory, model.TierLow, "EUR")
	if got := inputsFrom(low, solarPlant); !approx(got, 0.1) {
		t.Fatalf("EUR low voltage solar = %v, want 0.1", got)
	}
	medium := model.TierMedium.MarketName(testScenario, testYear)
	if got := inputsFrom(low, medium); !approx(got, 0.9*MediumToLowLoss) {
		t.Fatalf("EUR low voltage medium input = %v, want %v", got, 0.9*MediumToLowLoss)
	}
	if got := inputsFrom(low, low.Name); got != LowSelfLoss {
		t.Fatalf("low voltage self input = %v, want %v", got, LowSelfLoss)
	}

	for _, tier := range model.Tiers {
		if report.MarketsCreated[tier] != 2 {
			t.Fatalf("%s markets created = %d, want 2", tier, report.MarketsCreated[tier])
		}
	}
	if len(report.Unresolved) != 0 {
		t.Fatalf("unexpected unresolved demand: %+v", report.Unresolved)
	}
}

func TestMarketsHaveSingleUnitProduction(t *testing.T) {
	env := testEnv(t)
	if err := NewMarketComposer(env, nil).BuildAll(context.Background()); err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	for _, tier := range model.Tiers {
		for _, region := range []string{"EUR", "USA"} {
			ds := market(t, env.Inventory, tier, region)
			prods := ds.ExchangesOf(model.ExchangeProduction)
			if len(prods) != 1 || prods[0].Amount != 1 {
				t.Fatalf("%s %s: production exchanges %+v", tier, region, prods)
			}
			if ds.Comment != marketComment || ds.Database != "ecoinvent 3.6 cutoff" || ds.ReferenceProduct != tier.Product() {
				t.Fatalf("%s %s: unexpected metadata %+v", tier, region, ds)
			}
		}
	}
}

func TestMediumMarketFixedInputs(t *testing.T) {
	env := testEnv(t)
	if err := NewMarketComposer(env, nil).BuildAll(context.Background()); err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	ds := market(t, env.Inventory, model.TierMedium, "USA")

	if got := inputsFrom(ds, model.TierHigh.MarketName(testScenario, testYear)); got != HighToMediumLoss {
		t.Fatalf("high voltage input = %v", got)
	}
	if got := inputsFrom(ds, ds.Name); got != MediumSelfLoss {
		t.Fatalf("self input = %v", got)
	}
	if got := inputsFrom(ds, sf6MarketName); got != MediumSF6Leakage {
		t.Fatalf("SF6 input = %v", got)
	}
	if got := inputsFrom(ds, mvNetworkName); got != MediumNetworkLength {
		t.Fatalf("network input = %v", got)
	}

	bio := ds.ExchangesOf(model.ExchangeBiosphere)
	if len(bio) != 1 {
		t.Fatalf("biosphere exchanges = %d, want 1", len(bio))
	}
	if bio[0].Name != sf6FlowName || bio[0].Amount != MediumSF6Leakage || *bio[0].Input != sf6FlowKey {
		t.Fatalf("SF6 emission = %+v", bio[0])
	}
	for _, exc := range ds.ExchangesOf(model.ExchangeTechnosphere) {
		if exc.Name == sf6MarketName && exc.Location != model.LocationRestOfWorld {
			t.Fatalf("SF6 input location = %q, want RoW", exc.Location)
		}
	}
}

func TestHighVoltageSplitsByCountryPopulation(t *testing.T) {
	env := testEnv(t)
	if err := env.Inventory.Add(plant("coal-rer", coalPlant, model.LocationEurope)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	report := NewReport()
	if _, err := NewMarketComposer(env, report).BuildHigh(context.Background()); err != nil {
		t.Fatalf("BuildHigh: %v", err)
	}

	ds := market(t, env.Inventory, model.TierHigh, "EUR")
	cases := []struct {
		loc  string
		want float64
	}{
		{"DE", 0.42},
		{"FR", 0.18},
		{model.LocationEurope, 0},
	}
	for _, tc := range cases {
		if got := inputsAt(ds, coalPlant, tc.loc); !approx(got, tc.want) {
			t.Errorf("EUR coal from %s = %v, want %v", tc.loc, got, tc.want)
		}
	}
	if len(report.Unresolved) != 0 {
		t.Fatalf("unexpected unresolved demand: %+v", report.Unresolved)
	}
}

func TestHighVoltageFallsBackToEurope(t *testing.T) {
	env := testEnv(t)
	if err := env.Inventory.Remove("wind-us"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := env.Inventory.Add(plant("wind-rer", windPlant, model.LocationEurope)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	env.Allocator = NewAllocator(tables.Population{"DE": 7e6, "FR": 3e6, "US": 1e7, model.LocationEurope: 5e8})

	if _, err := NewMarketComposer(env, nil).BuildHigh(context.Background()); err != nil {
		t.Fatalf("BuildHigh: %v", err)
	}
	ds := market(t, env.Inventory, model.TierHigh, "USA")
	if got := inputsAt(ds, windPlant, model.LocationEurope); !approx(got, 0.2) {
		t.Fatalf("USA wind from RER = %v, want 0.2", got)
	}
	if got := inputsFrom(ds, coalPlant); !approx(got, 0.8) {
		t.Fatalf("USA coal = %v, want 0.8", got)
	}
}

func TestFallbackWithoutPopulationIsUnresolved(t *testing.T) {
	env := testEnv(t)
	if err := env.Inventory.Remove("wind-us"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := env.Inventory.Add(plant("wind-rer", windPlant, model.LocationEurope)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	report := NewReport()
	if _, err := NewMarketComposer(env, report).BuildHigh(context.Background()); err != nil {
		t.Fatalf("BuildHigh: %v", err)
	}
	if got := report.UnresolvedShare(model.TierHigh, "USA"); !approx(got, 0.2) {
		t.Fatalf("unresolved USA share = %v, want 0.2", got)
	}
	if got := inputsFrom(market(t, env.Inventory, model.TierHigh, "USA"), windPlant); got != 0 {
		t.Fatalf("USA wind input = %v, want 0", got)
	}
}

func TestUnresolvedDemandIsZeroedAndReported(t *testing.T) {
	env := testEnv(t)
	delete(env.Technologies, "Wind Onshore")
	metrics := newRecordingMetrics()
	env.Metrics = metrics

	report := NewReport()
	if _, err := NewMarketComposer(env, report).BuildHigh(context.Background()); err != nil {
		t.Fatalf("BuildHigh: %v", err)
	}
	ds := market(t, env.Inventory, model.TierHigh, "EUR")
	if got := inputsFrom(ds, windPlant); got != 0 {
		t.Fatalf("wind input = %v, want 0", got)
	}
	if got := report.UnresolvedShare(model.TierHigh, "EUR"); !approx(got, 0.3) {
		t.Fatalf("unresolved EUR share = %v, want 0.3", got)
	}
	if len(report.Unresolved) != 2 || report.Unresolved[0].Technology != "Wind Onshore" {
		t.Fatalf("unresolved = %+v", report.Unresolved)
	}
	if metrics.unresolved["high"] != 2 {
		t.Fatalf("unresolved metric = %d, want 2", metrics.unresolved["high"])
	}
}

func TestStrictModeFailsOnUnresolvedDemand(t *testing.T) {
	env := testEnv(t)
	env.Strict = true
	env.Allocator = NewAllocator(tables.Population{})

	_, err := NewMarketComposer(env, nil).BuildHigh(context.Background())
	if !errors.Is(err, ErrNoAllocationBasis) {
		t.Fatalf("BuildHigh = %v, want ErrNoAllocationBasis", err)
	}
}

func TestBuildLowRequiresMediumMarket(t *testing.T) {
	env := testEnv(t)
	_, err := NewMarketComposer(env, nil).BuildLow(context.Background())
	if !errors.Is(err, ErrTierMissing) {
		t.Fatalf("BuildLow = %v, want ErrTierMissing", err)
	}
}

func TestUnknownRegionUsesFallbacks(t *testing.T) {
	env := testEnv(t)
	report := NewReport()
	c := NewMarketComposer(env, report)

	if home := c.homeLocations(context.Background(), "MEA"); home != nil {
		t.Fatalf("home locations of unknown region = %v", home)
	}
	if len(report.UnmappedRegions) != 1 || report.UnmappedRegions[0] != "MEA" {
		t.Fatalf("UnmappedRegions = %v", report.UnmappedRegions)
	}
	c.homeLocations(context.Background(), "MEA")
	if len(report.UnmappedRegions) != 1 {
		t.Fatalf("region reported twice: %v", report.UnmappedRegions)
	}
}

func TestDefaultCodesAreHex(t *testing.T) {
	code := newCode()
	if len(code) != 32 {
		t.Fatalf("code %q has length %d, want 32", code, len(code))
	}
	for _, r := range code {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			t.Fatalf("code %q is not lowercase hex", code)
		}
	}
}
