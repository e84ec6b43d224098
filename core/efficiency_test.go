package core

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/signalsfoundry/powermix/kb"
	"github.com/signalsfoundry/powermix/model"
	"github.com/signalsfoundry/powermix/scenario"
)

func technology(t *testing.T, label string) PlantTechnology {
	t.Helper()
	for _, tech := range PlantTechnologies() {
		if tech.Label == label {
			return tech
		}
	}
	t.Fatalf("no technology %q", label)
	return PlantTechnology{}
}

// coalStation is a Coal PC plant with a declared efficiency of 0.4.
func coalStation(location string) *model.Dataset {
	ds := plant("station-"+location, "electricity production, hard coal", location)
	ds.Parameters = map[string]float64{"efficiency": 0.4}
	lognormalScale := 0.2
	ds.Exchanges = append(ds.Exchanges,
		model.NewTechnosphere("market for hard coal", "hard coal", model.UnitKilogram, "RoW", 0.5),
		model.NewTechnosphere("market for electricity, high voltage", "electricity, high voltage", model.UnitKilowattHour, location, 0.1),
		&model.Exchange{
			Type:        model.ExchangeBiosphere,
			Name:        "Sulfur dioxide",
			Unit:        model.UnitKilogram,
			Input:       &model.FlowKey{Database: "biosphere3", Code: "so2"},
			Uncertainty: model.Uncertainty{Type: model.UncertaintyLognormal, Scale: &lognormalScale},
		},
		model.NewBiosphere("Methane, fossil", model.UnitKilogram, model.FlowKey{Database: "biosphere3", Code: "ch4"}, nil, 2.0),
		model.NewBiosphere("Carbon dioxide, fossil", model.UnitKilogram, model.FlowKey{Database: "biosphere3", Code: "co2"}, nil, 1.0),
	)
	return ds
}

func exchangeNamed(t *testing.T, ds *model.Dataset, name string) *model.Exchange {
	t.Helper()
	for _, exc := range ds.Exchanges {
		if exc.Name == name && exc.Type != model.ExchangeProduction {
			return exc
		}
	}
	t.Fatalf("%s has no exchange %q", ds.Name, name)
	return nil
}

func TestRescaleDatasetAppliesEfficiencyAndEmissions(t *testing.T) {
	env := testEnv(t)
	ds := coalStation("DE")
	r := NewRescaler(env, nil)

	factor, err := r.RescaleDataset(ds, technology(t, "Coal PC"))
	if err != nil {
		t.Fatalf("RescaleDataset: %v", err)
	}
	if !approx(factor, 0.8) {
		t.Fatalf("factor = %v, want 0.8", factor)
	}
	if v, _ := ds.Parameter("efficiency"); !approx(v, 0.5) {
		t.Fatalf("efficiency parameter = %v, want 0.5", v)
	}
	if got := exchangeNamed(t, ds, "market for hard coal").Amount; !approx(got, 0.4) {
		t.Fatalf("coal input = %v, want 0.4", got)
	}
	if got := exchangeNamed(t, ds, "Carbon dioxide, fossil").Amount; !approx(got, 0.8) {
		t.Fatalf("CO2 = %v, want 0.8", got)
	}

	so2 := exchangeNamed(t, ds, "Sulfur dioxide")
	if so2.Amount != 0.042 {
		t.Fatalf("SO2 = %v, want 0.042", so2.Amount)
	}
	if so2.Uncertainty.Type != model.UncertaintyUndefined || so2.Scale != nil {
		t.Fatalf("SO2 uncertainty not cleared: %+v", so2.Uncertainty)
	}
	if got := exchangeNamed(t, ds, "Methane, fossil").Amount; got != 1.0 {
		t.Fatalf("CH4 = %v, want 1.0", got)
	}
}

func TestRescaleDatasetRejectsNaNEmission(t *testing.T) {
	env := testEnv(t)
	if err := env.Scenario.Emission.Set("Power|Coal", "EUR", "CH4", math.NaN()); err != nil {
		t.Fatalf("Set: %v", err)
	}
	ds := coalStation("DE")

	_, err := NewRescaler(env, nil).RescaleDataset(ds, technology(t, "Coal PC"))
	if !errors.Is(err, ErrInvalidEmission) {
		t.Fatalf("RescaleDataset = %v, want ErrInvalidEmission", err)
	}
	if got := exchangeNamed(t, ds, "market for hard coal").Amount; got != 0.5 {
		t.Fatalf("coal input changed to %v before validation", got)
	}
	if err := NewRescaler(env, nil).RescaleAll(context.Background()); err != nil {
		t.Fatalf("RescaleAll without pollutant flows: %v", err)
	}
	if err := env.Inventory.Add(ds); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := NewRescaler(env, nil).RescaleAll(context.Background()); !errors.Is(err, ErrInvalidEmission) {
		t.Fatalf("RescaleAll = %v, want ErrInvalidEmission", err)
	}
}

func TestRescaleDatasetKeepsParametersOnFailure(t *testing.T) {
	env := testEnv(t)
	if err := env.Scenario.Emission.Set("Power|Coal", "EUR", "SO2", math.NaN()); err != nil {
		t.Fatalf("Set: %v", err)
	}
	ds := coalStation("DE")
	ds.Database = "custom plants"
	ds.Parameters = map[string]float64{"lifetime": 30}

	if _, err := NewRescaler(env, nil).RescaleDataset(ds, technology(t, "Coal PC")); !errors.Is(err, ErrInvalidEmission) {
		t.Fatalf("RescaleDataset = %v, want ErrInvalidEmission", err)
	}
	if len(ds.Parameters) != 1 || ds.Parameters["lifetime"] != 30 {
		t.Fatalf("parameters changed to %v", ds.Parameters)
	}
}

func TestRescaleAllRejectsMissingEmissionCell(t *testing.T) {
	const emissionJSON = `{
  "names": ["sector", "region", "pollutant"],
  "axes": [["Power|Coal"], ["EUR", "USA"], ["SO2", "CH4"]],
  "values": [[[0.042, 0.05]], [[null, 0.5]]]
}`
	env := testEnv(t)
	emission, _, err := scenario.LoadCube(strings.NewReader(emissionJSON))
	if err != nil {
		t.Fatalf("LoadCube: %v", err)
	}
	env.Scenario.Emission = emission
	ds := coalStation("DE")
	if err := env.Inventory.Add(ds); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := NewRescaler(env, nil).RescaleAll(context.Background()); !errors.Is(err, ErrInvalidEmission) {
		t.Fatalf("RescaleAll = %v, want ErrInvalidEmission", err)
	}
	if got := exchangeNamed(t, ds, "Methane, fossil").Amount; got != 2 {
		t.Fatalf("methane set to %v from a missing cell", got)
	}
}

func TestEfficiencyPrefersDeclaredParameter(t *testing.T) {
	env := testEnv(t)
	ds := plant("p", "electricity production, hard coal", "DE")
	ds.Parameters = map[string]float64{"thermal efficiency": 0.9, "efficiency_electrical": 0.35}

	got, err := NewRescaler(env, nil).Efficiency(ds, technology(t, "Coal PC").Fuels)
	if err != nil || got != 0.35 {
		t.Fatalf("Efficiency = %v, %v; want 0.35", got, err)
	}
}

func TestEfficiencyDerivedFromHeatingValues(t *testing.T) {
	env := testEnv(t)
	ds := plant("p", "electricity production, hard coal", "DE")
	ds.Exchanges = append(ds.Exchanges,
		model.NewTechnosphere("market for hard coal", "hard coal", model.UnitKilogram, "RoW", 0.4),
		model.NewTechnosphere("market for hard coal ash", "hard coal ash", model.UnitKilogram, "RoW", 5),
	)

	got, err := NewRescaler(env, nil).Efficiency(ds, technology(t, "Coal PC").Fuels)
	if err != nil {
		t.Fatalf("Efficiency: %v", err)
	}
	// 0.4 kg at 27 MJ/kg is 3 kWh of fuel.
	if !approx(got, 1.0/3) {
		t.Fatalf("Efficiency = %v, want 1/3", got)
	}
	if v, ok := ds.Parameter("efficiency"); !ok || v != got {
		t.Fatalf("efficiency parameter = %v, %v", v, ok)
	}
}

func TestEfficiencyOfOtherDatabasesIsAlwaysDerived(t *testing.T) {
	env := testEnv(t)
	ds := plant("p", "electricity production, hard coal, IGCC, pre, no CCS", "DE")
	ds.Database = "carma"
	ds.Parameters = map[string]float64{"efficiency": 0.9, "lifetime": 30}
	ds.Exchanges = append(ds.Exchanges,
		model.NewTechnosphere("Hard coal, burned in power plant", "Hard coal", model.UnitMegajoule, "RoW", 9))

	got, err := NewRescaler(env, nil).Efficiency(ds, technology(t, "Coal IGCC").Fuels)
	if err != nil {
		t.Fatalf("Efficiency: %v", err)
	}
	if !approx(got, 0.4) {
		t.Fatalf("Efficiency = %v, want 0.4", got)
	}
	if len(ds.Parameters) != 1 {
		t.Fatalf("parameters not reset: %v", ds.Parameters)
	}
}

func TestEfficiencyWithoutFuelInput(t *testing.T) {
	env := testEnv(t)
	ds := plant("p", "electricity production, hard coal", "DE")
	_, err := NewRescaler(env, nil).Efficiency(ds, technology(t, "Coal PC").Fuels)
	if !errors.Is(err, ErrNoEnergyInput) {
		t.Fatalf("Efficiency = %v, want ErrNoEnergyInput", err)
	}
}

func TestScalingFactorRejectsZeroTarget(t *testing.T) {
	env := testEnv(t)
	if err := env.Scenario.Efficiency.Set("Eff|Coal PC", "USA", "2030", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	_, err := NewRescaler(env, nil).ScalingFactor(coalStation("US"), technology(t, "Coal PC"))
	if !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("ScalingFactor = %v, want ErrInvalidTarget", err)
	}
}

func TestRescaleAllSkipsAndReports(t *testing.T) {
	env := testEnv(t)
	metrics := newRecordingMetrics()
	env.Metrics = metrics
	for _, ds := range []*model.Dataset{coalStation("DE"), coalStation("BR")} {
		if err := env.Inventory.Add(ds); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	report := NewReport()
	if err := NewRescaler(env, report).RescaleAll(context.Background()); err != nil {
		t.Fatalf("RescaleAll: %v", err)
	}
	if report.Rescaled["Coal PC"] != 1 || metrics.rescaled["Coal PC"] != 1 {
		t.Fatalf("rescaled = %v / %v", report.Rescaled, metrics.rescaled)
	}

	var skipped []string
	for _, s := range report.Skipped {
		skipped = append(skipped, s.Location)
	}
	// The plain supplier plants carry no fuel input; BR lies outside every region.
	if len(skipped) != 4 || skipped[3] != "BR" {
		t.Fatalf("skipped = %v", skipped)
	}

	env.Strict = true
	if err := NewRescaler(env, nil).RescaleAll(context.Background()); !errors.Is(err, ErrNoEnergyInput) {
		t.Fatalf("strict RescaleAll = %v, want ErrNoEnergyInput", err)
	}
}

func TestTechnologyTableIsComplete(t *testing.T) {
	want := []string{
		"Coal IGCC", "Coal IGCC CCS", "Coal CHP", "Coal PC", "Coal PC CCS",
		"Gas OC", "Gas CC", "Gas CHP", "Gas CCS", "Oil",
		"Biomass CHP", "Biomass IGCC CCS", "Biomass IGCC",
	}
	got := PlantTechnologies()
	if len(got) != len(want) {
		t.Fatalf("%d technologies, want %d", len(got), len(want))
	}
	for i, tech := range got {
		if tech.Label != want[i] {
			t.Fatalf("technology %d = %q, want %q", i, tech.Label, want[i])
		}
		if len(tech.Datasets) == 0 || len(tech.Fuels) == 0 {
			t.Fatalf("%s has empty filters", tech.Label)
		}
	}

	chp := plant("chp", "heat and power co-generation, hard coal", "DE")
	pc := plant("pc", "electricity production, hard coal", "DE")
	coalPC := technology(t, "Coal PC")
	coalCHP := technology(t, "Coal CHP")
	if !kb.MatchAll(chp, coalPC.Datasets...) || !kb.MatchAll(chp, coalCHP.Datasets...) {
		t.Fatalf("co-generation plant should match both coal PC and CHP filters")
	}
	if kb.MatchAll(pc, coalCHP.Datasets...) || !kb.MatchAll(pc, coalPC.Datasets...) {
		t.Fatalf("pulverised coal plant matched by CHP filters")
	}
}

func TestRescaleAllHandlesEachPlantOnce(t *testing.T) {
	env := testEnv(t)
	chp := coalStation("DE")
	chp.Code = "chp-de"
	chp.Name = "heat and power co-generation, hard coal"
	if err := env.Inventory.Add(chp); err != nil {
		t.Fatalf("Add: %v", err)
	}

	report := NewReport()
	if err := NewRescaler(env, report).RescaleAll(context.Background()); err != nil {
		t.Fatalf("RescaleAll: %v", err)
	}
	var owners []string
	for _, s := range report.Skipped {
		if s.Dataset == chp.Name {
			owners = append(owners, s.Technology)
		}
	}
	// Coal CHP has no scenario efficiency label here, and Coal PC must not
	// pick the plant up instead.
	if len(owners) != 1 || owners[0] != "Coal CHP" {
		t.Fatalf("co-generation plant handled by %v, want [Coal CHP]", owners)
	}
	if report.Rescaled["Coal PC"] != 0 {
		t.Fatalf("Rescaled = %v", report.Rescaled)
	}
	if got := exchangeNamed(t, chp, "market for hard coal").Amount; got != 0.5 {
		t.Fatalf("coal input changed to %v", got)
	}
}
