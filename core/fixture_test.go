package core

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/signalsfoundry/powermix/geo"
	"github.com/signalsfoundry/powermix/internal/tables"
	"github.com/signalsfoundry/powermix/kb"
	"github.com/signalsfoundry/powermix/model"
	"github.com/signalsfoundry/powermix/scenario"
)

const (
	coalPlant  = "electricity production, hard coal"
	windPlant  = "electricity production, wind, 1-3MW turbine, onshore"
	solarPlant = "electricity production, photovoltaic, 3kWp slanted-roof installation"

	testScenario = "SSP2-Base"
	testYear     = 2030
)

func testResolver() *geo.Resolver {
	mapping := tables.NewRegionMapping([][2]string{
		{"DE", "EUR"}, {"FR", "EUR"},
		{"US", "USA"},
	})
	topo := geo.NewTopology(mapping, tables.Aggregates{
		model.LocationEurope: {"DE", "FR"},
	})
	return geo.NewResolver(topo, nil)
}

func mustCube(t *testing.T, names [3]string, first, second, third []string, values map[[3]string]float64) *scenario.Cube {
	t.Helper()
	c, err := scenario.NewCube(names, first, second, third)
	if err != nil {
		t.Fatalf("NewCube: %v", err)
	}
	for k, v := range values {
		if err := c.Set(k[0], k[1], k[2], v); err != nil {
			t.Fatalf("Set %v: %v", k, err)
		}
	}
	return c
}

func testScenarioTables(t *testing.T) *scenario.Scenario {
	t.Helper()
	regions := []string{"EUR", "USA"}
	supply := mustCube(t, [3]string{"variable", "region", "year"},
		[]string{"Coal", "Wind", "Solar PV"}, regions, []string{"2030"},
		map[[3]string]float64{
			{"Coal", "EUR", "2030"}:     0.6,
			{"Wind", "EUR", "2030"}:     0.3,
			{"Solar PV", "EUR", "2030"}: 0.1,
			{"Coal", "USA", "2030"}:     0.8,
			{"Wind", "USA", "2030"}:     0.2,
		})
	efficiency := mustCube(t, [3]string{"variable", "region", "year"},
		[]string{"Eff|Coal PC"}, regions, []string{"2030"},
		map[[3]string]float64{
			{"Eff|Coal PC", "EUR", "2030"}: 0.5,
			{"Eff|Coal PC", "USA", "2030"}: 0.4,
		})
	emission := mustCube(t, [3]string{"sector", "region", "pollutant"},
		[]string{"Power|Coal"}, regions, []string{"SO2", "CH4"},
		map[[3]string]float64{
			{"Power|Coal", "EUR", "SO2"}: 0.042,
			{"Power|Coal", "EUR", "CH4"}: 1.0,
			{"Power|Coal", "USA", "SO2"}: 0.05,
			{"Power|Coal", "USA", "CH4"}: 0.5,
		})
	return &scenario.Scenario{
		Name:   testScenario,
		Year:   testYear,
		Supply: supply,
		SupplyLabels: scenario.NewLabels(map[string]string{
			"Coal PC":      "Coal",
			"Wind Onshore": "Wind",
			"Solar PV":     "Solar PV",
		}),
		Efficiency:       efficiency,
		EfficiencyLabels: scenario.NewLabels(map[string]string{"Coal PC": "Eff|Coal PC"}),
		Emission:         emission,
		EmissionLabels:   scenario.NewLabels(map[string]string{"Coal PC": "Power|Coal"}),
	}
}

func plant(code, name, location string) *model.Dataset {
	return &model.Dataset{
		Code:             code,
		Name:             name,
		Location:         location,
		ReferenceProduct: model.TierHigh.Product(),
		Unit:             model.UnitKilowattHour,
		Database:         "ecoinvent 3.6 cutoff",
		Exchanges: []*model.Exchange{{
			Type:        model.ExchangeProduction,
			Name:        name,
			Product:     model.TierHigh.Product(),
			Unit:        model.UnitKilowattHour,
			Amount:      1,
			Uncertainty: model.Uncertainty{Loc: 1},
			Location:    location,
		}},
	}
}

func testInventory(t *testing.T) *kb.Inventory {
	t.Helper()
	inv := kb.NewInventory()
	for _, ds := range []*model.Dataset{
		plant("coal-de", coalPlant, "DE"),
		plant("coal-fr", coalPlant, "FR"),
		plant("coal-us", coalPlant, "US"),
		plant("wind-de", windPlant, "DE"),
		plant("wind-us", windPlant, "US"),
		plant("solar-de", solarPlant, "DE"),
	} {
		if err := inv.Add(ds); err != nil {
			t.Fatalf("Add %s: %v", ds.Code, err)
		}
	}
	return inv
}

func testEnv(t *testing.T) *Env {
	t.Helper()
	resolver := testResolver()
	n := 0
	env := &Env{
		Inventory: testInventory(t),
		Resolver:  resolver,
		Allocator: NewAllocator(tables.Population{"DE": 7e6, "FR": 3e6, "US": 1e7}),
		Scenario:  testScenarioTables(t),
		Technologies: tables.TechnologyMap{
			"Coal PC":      {coalPlant},
			"Wind Onshore": {windPlant},
			"Solar PV":     {solarPlant},
		},
		Emissions: tables.EmissionMap{
			"Sulfur dioxide":  "SO2",
			"Methane, fossil": "CH4",
		},
		HeatingValues: tables.HeatingValues{"hard coal": 27},
		NewCode: func() string {
			n++
			return fmt.Sprintf("market-%03d", n)
		},
	}
	if err := env.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	env.defaults()
	return env
}

// market returns the composed tier market of a region.
func market(t *testing.T, inv *kb.Inventory, tier model.VoltageTier, region string) *model.Dataset {
	t.Helper()
	found := inv.Lookup([]string{tier.MarketName(testScenario, testYear)}, []string{region})
	if len(found) != 1 {
		t.Fatalf("%s voltage market for %s: found %d", tier, region, len(found))
	}
	return found[0]
}

// inputsFrom sums technosphere amounts supplied by datasets named name.
func inputsFrom(ds *model.Dataset, name string) float64 {
	var sum float64
	for _, exc := range ds.ExchangesOf(model.ExchangeTechnosphere) {
		if exc.Name == name {
			sum += exc.Amount
		}
	}
	return sum
}

// inputsAt sums technosphere amounts supplied by datasets named name at loc.
func inputsAt(ds *model.Dataset, name, loc string) float64 {
	var sum float64
	for _, exc := range ds.ExchangesOf(model.ExchangeTechnosphere) {
		if exc.Name == name && exc.Location == loc {
			sum += exc.Amount
		}
	}
	return sum
}

func approx(a, b float64) bool { return math.Abs(a-b) <= 1e-9 }

type phaseCall struct {
	phase    string
	datasets int
}

type recordingMetrics struct {
	markets    map[string]int
	relinked   map[string]int
	rescaled   map[string]int
	unresolved map[string]int
	phases     []phaseCall
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		markets:    make(map[string]int),
		relinked:   make(map[string]int),
		rescaled:   make(map[string]int),
		unresolved: make(map[string]int),
	}
}

func (m *recordingMetrics) MarketCreated(tier string)         { m.markets[tier]++ }
func (m *recordingMetrics) ExchangeRelinked(tier string)      { m.relinked[tier]++ }
func (m *recordingMetrics) DatasetRescaled(technology string) { m.rescaled[technology]++ }
func (m *recordingMetrics) DemandUnresolved(tier string)      { m.unresolved[tier]++ }
func (m *recordingMetrics) ObservePhase(phase string, _ time.Duration, datasets int) {
	m.phases = append(m.phases, phaseCall{phase: phase, datasets: datasets})
}
