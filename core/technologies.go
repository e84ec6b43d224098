package core

import (
	"github.com/signalsfoundry/powermix/kb"
	"github.com/signalsfoundry/powermix/model"
)

// PlantTechnology names a scenario power-plant technology with the filters
// that select its inventory records and fuel inputs.
type PlantTechnology struct {
	Label string
	// Datasets selects the power plants to rescale.
	Datasets []kb.Filter
	// Fuels selects the fuel inputs whose energy content defines efficiency.
	Fuels []kb.Filter
	// TechnosphereExcludes lists inputs the scaling factor leaves untouched.
	TechnosphereExcludes []kb.Filter
}

func nameHas(v string) kb.Filter         { return kb.Contains(model.FieldName, v) }
func nameIs(v string) kb.Filter          { return kb.Equals(model.FieldName, v) }
func unitIs(v string) kb.Filter          { return kb.Equals(model.FieldUnit, v) }
func nameLacks(v string) kb.Filter       { return kb.Exclude(nameHas(v)) }
func filters(f ...kb.Filter) []kb.Filter { return f }

func join(groups ...[]kb.Filter) []kb.Filter {
	var out []kb.Filter
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

var (
	genericExcludes = filters(nameLacks("aluminium industry"), nameLacks("carbon capture and storage"), nameLacks("market"))
	noImports       = filters(nameLacks("import"))

	coalElectricity = filters(
		kb.Either(nameHas("hard coal"), nameHas("lignite")),
		kb.DoesntContainAny(model.FieldName, "mine", "supply", "import"),
		unitIs(model.UnitKilowattHour),
	)
	coalCHPElectricity = join(coalElectricity, filters(nameHas("co-generation")))

	gasOpenCycle     = filters(nameIs("electricity production, natural gas, conventional power plant"))
	gasCombinedCycle = filters(nameIs("electricity production, natural gas, combined cycle power plant"))
	gasCHP           = filters(nameIs("heat and power co-generation, natural gas, combined cycle power plant, 400MW electrical"))
	oilOpenCycle     = filters(nameIs("electricity production, oil"))

	biomassCHP = filters(
		kb.Either(nameHas(" wood"), nameHas("bio")),
		unitIs(model.UnitKilowattHour),
		nameHas("heat and power co-generation"),
	)
	coalIGCC = filters(
		kb.Either(nameHas("coal"), nameHas("lignite")),
		nameHas("IGCC"), nameHas("pre"), nameHas("no CCS"),
		unitIs(model.UnitKilowattHour),
	)
	coalIGCCCCS = filters(
		kb.Either(nameHas("coal"), nameHas("lignite")),
		nameHas("storage"), nameHas("pre"),
		unitIs(model.UnitKilowattHour),
	)
	coalPCCCS = filters(
		kb.Either(nameHas("coal"), nameHas("lignite")),
		nameHas("storage"), nameHas("post"),
		unitIs(model.UnitKilowattHour),
	)
	gasCCS = filters(
		nameHas("natural gas"),
		kb.Either(nameHas("post"), nameHas("pre")),
		nameHas("storage"),
		unitIs(model.UnitKilowattHour),
	)
	biomassIGCCCCS = filters(
		kb.Either(nameHas("SNG"), nameHas("wood"), nameHas("BIGCC")),
		nameHas("storage"),
		unitIs(model.UnitKilowattHour),
	)
	biomassIGCC = filters(
		nameHas("BIGCC"), nameHas("no CCS"),
		unitIs(model.UnitKilowattHour),
	)

	coalMJFuels  = filters(kb.Either(nameHas("Hard coal"), nameHas("Lignite")), unitIs(model.UnitMegajoule))
	coalKgFuels  = filters(kb.Either(nameHas("hard coal"), nameHas("lignite")), kb.DoesntContainAny(model.FieldName, "ash", "SOx"), unitIs(model.UnitKilogram))
	naturalGasM3 = filters(kb.Either(nameHas("natural gas, low pressure"), nameHas("natural gas, high pressure")), unitIs(model.UnitCubicMeter))
)

// plantTechnologies is processed in order. A record selected by more than
// one entry belongs to the first, so Coal CHP is listed ahead of Coal PC.
var plantTechnologies = []PlantTechnology{
	{Label: "Coal IGCC", Datasets: coalIGCC, Fuels: coalMJFuels},
	{Label: "Coal IGCC CCS", Datasets: coalIGCCCCS, Fuels: coalMJFuels},
	{Label: "Coal CHP", Datasets: join(coalCHPElectricity, genericExcludes), Fuels: coalKgFuels},
	{Label: "Coal PC", Datasets: join(coalElectricity, genericExcludes), Fuels: coalKgFuels},
	{Label: "Coal PC CCS", Datasets: coalPCCCS, Fuels: coalMJFuels},
	{Label: "Gas OC", Datasets: join(gasOpenCycle, genericExcludes, noImports), Fuels: naturalGasM3},
	{Label: "Gas CC", Datasets: join(gasCombinedCycle, genericExcludes, noImports), Fuels: naturalGasM3},
	{Label: "Gas CHP", Datasets: join(gasCHP, genericExcludes, noImports), Fuels: naturalGasM3},
	{Label: "Gas CCS", Datasets: gasCCS, Fuels: filters(nameHas("Natural gas"), unitIs(model.UnitMegajoule))},
	{Label: "Oil", Datasets: join(oilOpenCycle, genericExcludes, filters(nameLacks("nuclear"))), Fuels: filters(nameHas("heavy fuel oil"), unitIs(model.UnitKilogram))},
	{
		Label:    "Biomass CHP",
		Datasets: join(biomassCHP, genericExcludes),
		Fuels: filters(
			kb.Either(nameHas("wood pellet"), nameHas("biogas")),
			kb.Either(unitIs(model.UnitKilogram), unitIs(model.UnitCubicMeter)),
		),
	},
	{
		Label:    "Biomass IGCC CCS",
		Datasets: biomassIGCCCCS,
		Fuels: filters(
			kb.Either(nameHas("100% SNG, burned in CC plant"), nameHas("Wood chips"), nameHas("Hydrogen")),
			unitIs(model.UnitMegajoule),
		),
	},
	{Label: "Biomass IGCC", Datasets: biomassIGCC, Fuels: filters(nameHas("Hydrogen"), unitIs(model.UnitMegajoule))},
}

// PlantTechnologies returns the power-plant technologies rescaled to
// scenario efficiencies, in processing order.
func PlantTechnologies() []PlantTechnology {
	return append([]PlantTechnology(nil), plantTechnologies...)
}
