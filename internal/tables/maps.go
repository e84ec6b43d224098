package tables

import "sort"

// TechnologyMap maps a scenario technology label to the inventory dataset
// names that produce electricity with that technology.
type TechnologyMap map[string][]string

// Names returns the inventory names for a label.
func (m TechnologyMap) Names(label string) []string { return m[label] }

// EmissionMap maps biosphere flow names to scenario pollutant labels.
type EmissionMap map[string]string

// Pollutant returns the scenario pollutant label of a flow name.
func (m EmissionMap) Pollutant(flow string) (string, bool) {
	p, ok := m[flow]
	return p, ok
}

// Flows returns the mapped flow names, sorted.
func (m EmissionMap) Flows() []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DefaultTechnologyMap returns the built-in technology synonyms.
func DefaultTechnologyMap() TechnologyMap {
	return TechnologyMap{
		"Biomass CHP": {
			"heat and power co-generation, wood chips, 6667 kW, state-of-the-art 2014",
			"heat and power co-generation, wood chips, 6667 kW",
			"heat and power co-generation, biogas, gas engine",
		},
		"Biomass IGCC": {
			"electricity production, at BIGCC power plant 450MW, no CCS",
		},
		"Biomass IGCC CCS": {
			"electricity production, at BIGCC power plant 450MW, pre, pipeline 200km, storage 1000m",
		},
		"Coal PC": {
			"electricity production, hard coal",
			"electricity production, lignite",
		},
		"Coal CHP": {
			"heat and power co-generation, hard coal",
			"heat and power co-generation, lignite",
		},
		"Coal IGCC": {
			"electricity production, at power plant/hard coal, IGCC, no CCS",
			"electricity production, at power plant/lignite, IGCC, no CCS",
		},
		"Coal IGCC CCS": {
			"electricity production, at power plant/hard coal, pre, pipeline 200km, storage 1000m",
			"electricity production, at power plant/lignite, pre, pipeline 200km, storage 1000m",
		},
		"Coal PC CCS": {
			"electricity production, at power plant/hard coal, post, pipeline 200km, storage 1000m",
			"electricity production, at power plant/lignite, post, pipeline 200km, storage 1000m",
		},
		"Gas OC": {
			"electricity production, natural gas, conventional power plant",
		},
		"Gas CC": {
			"electricity production, natural gas, combined cycle power plant",
		},
		"Gas CHP": {
			"heat and power co-generation, natural gas, combined cycle power plant, 400MW electrical",
			"heat and power co-generation, natural gas, conventional power plant, 100MW electrical",
		},
		"Gas CCS": {
			"electricity production, at power plant/natural gas, pre, pipeline 200km, storage 1000m",
			"electricity production, at power plant/natural gas, post, pipeline 200km, storage 1000m",
		},
		"Oil": {
			"electricity production, oil",
			"heat and power co-generation, oil",
		},
		"Geothermal": {
			"electricity production, deep geothermal",
		},
		"Hydro": {
			"electricity production, hydro, run-of-river",
			"electricity production, hydro, reservoir, alpine region",
			"electricity production, hydro, reservoir, non-alpine region",
		},
		"Nuclear": {
			"electricity production, nuclear, pressure water reactor",
			"electricity production, nuclear, boiling water reactor",
		},
		"Solar PV": {
			"electricity production, photovoltaic, 3kWp slanted-roof installation, multi-Si, panel, mounted",
			"electricity production, photovoltaic, 570kWp open ground installation, multi-Si",
		},
		"Solar CSP": {
			"electricity production, solar thermal parabolic trough, 50 MW",
			"electricity production, solar tower power plant, 20 MW",
		},
		"Wind Onshore": {
			"electricity production, wind, <1MW turbine, onshore",
			"electricity production, wind, 1-3MW turbine, onshore",
			"electricity production, wind, >3MW turbine, onshore",
		},
		"Wind Offshore": {
			"electricity production, wind, 1-3MW turbine, offshore",
		},
	}
}

// DefaultEmissionMap returns the built-in pollutant synonyms.
func DefaultEmissionMap() EmissionMap {
	return EmissionMap{
		"Sulfur dioxide":                     "Sulfur dioxide",
		"Carbon monoxide, fossil":            "Carbon monoxide",
		"Nitrogen oxides":                    "Nitrogen oxides",
		"Ammonia":                            "Ammonia",
		"Particulates, < 2.5 um":             "PM25",
		"Particulates, > 2.5 um, and < 10um": "PM10",
		"Particulates, > 10 um":              "PM10",
		"Methane, fossil":                    "CH4",
		"Dinitrogen monoxide":                "N2O",
		"NMVOC, non-methane volatile organic compounds, unspecified origin": "VOC",
	}
}
