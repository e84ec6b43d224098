package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/signalsfoundry/powermix/internal/logging"
	"github.com/signalsfoundry/powermix/kb"
	"github.com/signalsfoundry/powermix/model"
)

var (
	// ErrInvalidEmission indicates a NaN scenario emission intensity.
	ErrInvalidEmission = errors.New("invalid scenario emission intensity")
	// ErrNoEnergyInput indicates a power plant without fuel energy input.
	ErrNoEnergyInput = errors.New("no fuel energy input")
	// ErrInvalidTarget indicates a zero or NaN scenario efficiency.
	ErrInvalidTarget = errors.New("invalid scenario efficiency")
	// ErrNoScenarioRegion indicates a dataset location outside every
	// scenario region.
	ErrNoScenarioRegion = errors.New("location outside scenario regions")
	// ErrMissingLabel indicates a technology without a scenario variable.
	ErrMissingLabel = errors.New("technology has no scenario label")
)

// mjPerKWh converts megajoules to kilowatt hours.
const mjPerKWh = 3.6

// efficiencyParameters are kept consistent with the rescaled inputs.
var efficiencyParameters = []string{"efficiency", "efficiency_oil_country", "efficiency_electrical"}

// Rescaler aligns power plants with scenario efficiencies and emission
// intensities.
type Rescaler struct {
	env    *Env
	report *Report

	// Technologies is processed in order by RescaleAll.
	Technologies []PlantTechnology
}

// NewRescaler builds a rescaler over env's inventory.
func NewRescaler(env *Env, report *Report) *Rescaler {
	if report == nil {
		report = NewReport()
	}
	return &Rescaler{env: env, report: report, Technologies: PlantTechnologies()}
}

// Efficiency returns the current conversion efficiency of a power plant.
// Records from an ecoinvent database keep their own efficiency parameter
// when present; otherwise it is derived from the fuel inputs and stored as
// the "efficiency" parameter.
func (r *Rescaler) Efficiency(ds *model.Dataset, fuels []kb.Filter) (float64, error) {
	eff, derived, err := r.currentEfficiency(ds, fuels)
	if err != nil {
		return 0, err
	}
	if derived {
		storeEfficiency(ds, eff)
	}
	return eff, nil
}

// currentEfficiency reads or derives the efficiency of ds without touching
// it. derived reports whether the value still has to be stored.
func (r *Rescaler) currentEfficiency(ds *model.Dataset, fuels []kb.Filter) (eff float64, derived bool, err error) {
	var terms []float64
	if isEcoinvent(ds) {
		keys := make([]string, 0, len(ds.Parameters))
		for k := range ds.Parameters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if strings.Contains(k, "efficiency") && !strings.Contains(k, "thermal") {
				return ds.Parameters[k], false, nil
			}
		}

		inputs := fuelInputs(ds, fuels)
		for _, fuel := range sortedKeys(r.env.HeatingValues) {
			lhv := r.env.HeatingValues[fuel]
			for _, exc := range inputs {
				if strings.Contains(exc.Name, fuel) {
					terms = append(terms, lhv/mjPerKWh*exc.Amount)
				}
			}
		}
	} else {
		for _, exc := range fuelInputs(ds, fuels) {
			terms = append(terms, exc.Amount/mjPerKWh)
		}
	}

	energy := floats.Sum(terms)
	if energy == 0 {
		return 0, false, fmt.Errorf("%w: %s in %s", ErrNoEnergyInput, ds.Name, ds.Location)
	}
	prod := ds.Production()
	if prod == nil {
		return 0, false, fmt.Errorf("%w: %q has no production exchange", model.ErrInvalidDataset, ds.Name)
	}
	return prod.Amount / energy, true, nil
}

// storeEfficiency records a derived efficiency. Records from other databases
// lose their previous parameters.
func storeEfficiency(ds *model.Dataset, eff float64) {
	if !isEcoinvent(ds) {
		ds.Parameters = nil
	}
	ds.SetParameter("efficiency", eff)
}

func isEcoinvent(ds *model.Dataset) bool { return strings.Contains(ds.Database, "ecoinvent") }

// ScalingFactor returns the current efficiency over the mean scenario
// efficiency of the regions containing the dataset's location. It does not
// modify ds.
func (r *Rescaler) ScalingFactor(ds *model.Dataset, tech PlantTechnology) (float64, error) {
	factor, _, _, err := r.scalingFactor(ds, tech)
	return factor, err
}

func (r *Rescaler) scalingFactor(ds *model.Dataset, tech PlantTechnology) (factor, current float64, derived bool, err error) {
	current, derived, err = r.currentEfficiency(ds, tech.Fuels)
	if err != nil {
		return 0, 0, false, err
	}
	variable, ok := r.env.Scenario.EfficiencyLabels.Variable(tech.Label)
	if !ok {
		return 0, 0, false, fmt.Errorf("%w: efficiency of %s", ErrMissingLabel, tech.Label)
	}
	regions := r.env.Resolver.InventoryToScenario(ds.Location)
	if len(regions) == 0 {
		return 0, 0, false, fmt.Errorf("%w: %s", ErrNoScenarioRegion, ds.Location)
	}
	target, err := r.env.Scenario.Efficiency.Mean(variable, regions, 0)
	if err != nil {
		return 0, 0, false, err
	}
	if target == 0 || math.IsNaN(target) {
		return 0, 0, false, fmt.Errorf("%w: %v for %s in %v", ErrInvalidTarget, target, tech.Label, regions)
	}
	return current / target, current, derived, nil
}

type emissionUpdate struct {
	exc    *model.Exchange
	target float64
}

// RescaleDataset applies the scaling factor of tech to ds and sets its
// pollutant flows to the scenario intensities. ds is left unchanged when the
// factor or an emission target cannot be read.
func (r *Rescaler) RescaleDataset(ds *model.Dataset, tech PlantTechnology) (float64, error) {
	factor, current, derived, err := r.scalingFactor(ds, tech)
	if err != nil {
		return 0, err
	}
	updates, err := r.emissionTargets(ds, tech)
	if err != nil {
		return 0, err
	}

	if derived {
		storeEfficiency(ds, current)
	}

	for _, key := range efficiencyParameters {
		if v, ok := ds.Parameter(key); ok {
			ds.Parameters[key] = v / factor
		}
	}

	pending := make(map[*model.Exchange]float64, len(updates))
	for _, u := range updates {
		pending[u.exc] = u.target
	}
	flows := r.env.Emissions.Flows()
	for _, exc := range ds.Exchanges {
		switch exc.Type {
		case model.ExchangeTechnosphere:
			if _, pollutant := r.env.Emissions.Pollutant(exc.Name); pollutant {
				continue
			}
			if matchesAny(exc, tech.TechnosphereExcludes) {
				continue
			}
			exc.Rescale(factor, false)
		case model.ExchangeBiosphere:
			if target, ok := pending[exc]; ok {
				if exc.Amount == 0 {
					exc.SetAmount(target)
				} else {
					exc.Rescale(target/exc.Amount, false)
				}
				continue
			}
			if nameContainsAny(exc.Name, flows) {
				continue
			}
			exc.Rescale(factor, false)
		}
	}
	return factor, nil
}

// emissionTargets reads the scenario intensity of every pollutant flow of
// ds for the first scenario region of its location.
func (r *Rescaler) emissionTargets(ds *model.Dataset, tech PlantTechnology) ([]emissionUpdate, error) {
	var pollutants []*model.Exchange
	for _, exc := range ds.ExchangesOf(model.ExchangeBiosphere) {
		if _, ok := r.env.Emissions.Pollutant(exc.Name); ok {
			pollutants = append(pollutants, exc)
		}
	}
	if len(pollutants) == 0 {
		return nil, nil
	}

	sector, ok := r.env.Scenario.EmissionLabels.Variable(tech.Label)
	if !ok {
		return nil, fmt.Errorf("%w: emissions of %s", ErrMissingLabel, tech.Label)
	}
	regions := r.env.Resolver.InventoryToScenario(ds.Location)
	if len(regions) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoScenarioRegion, ds.Location)
	}

	out := make([]emissionUpdate, 0, len(pollutants))
	for _, exc := range pollutants {
		pollutant, _ := r.env.Emissions.Pollutant(exc.Name)
		target, err := r.env.Scenario.Emission.At(sector, regions[0], pollutant)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(target) {
			return nil, fmt.Errorf("%w: %s for %s in %s (%s)", ErrInvalidEmission, pollutant, sector, regions[0], ds.Name)
		}
		out = append(out, emissionUpdate{exc: exc, target: target})
	}
	return out, nil
}

// RescaleAll rescales every power plant selected by the technology table.
// Each dataset is handled by the first technology that selects it. Datasets
// that cannot be rescaled are skipped and reported; a NaN emission intensity
// aborts the pass.
func (r *Rescaler) RescaleAll(ctx context.Context) error {
	if r.env.Scenario.Efficiency == nil || r.env.Scenario.Emission == nil {
		return fmt.Errorf("%w: missing scenario efficiency or emission table", ErrIncompleteEnv)
	}
	claimed := make(map[string]string)
	for _, tech := range r.Technologies {
		rescaled := 0
		for _, ds := range r.env.Inventory.Select(tech.Datasets...) {
			if owner, ok := claimed[ds.Code]; ok {
				r.env.Logger.Debug(ctx, "power plant already handled",
					logging.String("technology", tech.Label),
					logging.String("owner", owner),
					logging.Dataset(ds.Name, ds.Location),
				)
				continue
			}
			claimed[ds.Code] = tech.Label

			factor, err := r.RescaleDataset(ds, tech)
			if errors.Is(err, ErrInvalidEmission) {
				return err
			}
			if err != nil {
				r.report.Skipped = append(r.report.Skipped, Skipped{
					Technology: tech.Label,
					Dataset:    ds.Name,
					Location:   ds.Location,
					Reason:     err.Error(),
				})
				r.env.Logger.Warn(ctx, "power plant not rescaled",
					logging.String("technology", tech.Label),
					logging.Dataset(ds.Name, ds.Location),
					logging.Err(err),
				)
				if r.env.Strict {
					return fmt.Errorf("%s: %w", tech.Label, err)
				}
				continue
			}
			rescaled++
			r.report.Rescaled[tech.Label]++
			r.env.Metrics.DatasetRescaled(tech.Label)
			r.env.Logger.Debug(ctx, "power plant rescaled",
				logging.Dataset(ds.Name, ds.Location),
				logging.Float("factor", factor),
			)
		}
		r.env.Logger.Info(ctx, "rescaled inventories and emissions",
			logging.String("technology", tech.Label),
			logging.Int("datasets", rescaled),
		)
	}
	return nil
}

func fuelInputs(ds *model.Dataset, fuels []kb.Filter) []*model.Exchange {
	var out []*model.Exchange
	for _, exc := range ds.ExchangesOf(model.ExchangeTechnosphere) {
		if kb.MatchAll(exc, fuels...) {
			out = append(out, exc)
		}
	}
	return out
}

func matchesAny(exc *model.Exchange, excludes []kb.Filter) bool {
	for _, f := range excludes {
		if f.Match(exc) {
			return true
		}
	}
	return false
}

func nameContainsAny(name string, fragments []string) bool {
	for _, f := range fragments {
		if strings.Contains(name, f) {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
