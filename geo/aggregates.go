package geo

import "github.com/signalsfoundry/powermix/internal/tables"

var (
	ucte = []string{
		"AT", "BA", "BE", "BG", "CH", "CZ", "DE", "ES", "FR", "GR", "HR", "HU",
		"IT", "LU", "ME", "MK", "NL", "PL", "PT", "RO", "RS", "SI", "SK",
	}
	nordel  = []string{"DK", "FI", "IS", "NO", "SE"}
	centrel = []string{"CZ", "HU", "PL", "SK"}
	europe  = []string{
		"AD", "AL", "AT", "BA", "BE", "BG", "BY", "CH", "CY", "CZ", "DE", "DK",
		"EE", "ES", "FI", "FO", "FR", "GB", "GI", "GR", "HR", "HU", "IE", "IS",
		"IT", "LI", "LT", "LU", "LV", "MC", "MD", "ME", "MK", "MT", "NL", "NO",
		"PL", "PT", "RO", "RS", "SE", "SI", "SK", "SM", "UA", "VA",
	}
	usGrids = []string{
		"ASCC", "FRCC", "HICC", "MRO", "NPCC", "RFC", "SERC", "SPP", "TRE", "WECC",
	}
	caProvinces = []string{
		"CA-AB", "CA-BC", "CA-MB", "CA-NB", "CA-NF", "CA-NS", "CA-NT", "CA-NU",
		"CA-ON", "CA-PE", "CA-QC", "CA-SK", "CA-YK",
	}
)

// DefaultAggregates returns the electricity-grid aggregates most often used
// as locations of power-plant datasets.
func DefaultAggregates() tables.Aggregates {
	agg := tables.Aggregates{
		"RER":                               europe,
		"Europe without Switzerland":        without(europe, "CH"),
		"Europe, without Russia and Turkey": europe,
		"UCTE":                              ucte,
		"ENTSO-E":                           append(append([]string{}, ucte...), "CY", "DK", "EE", "FI", "GB", "IE", "IS", "LT", "LV", "NO", "SE"),
		"NORDEL":                            nordel,
		"CENTREL":                           centrel,
		"RNA":                               {"CA", "US"},
	}
	for _, g := range usGrids {
		agg[g] = []string{"US"}
	}
	for _, p := range caProvinces {
		agg[p] = []string{"CA"}
	}
	return agg
}

// Merge returns base overlaid with extra; entries in extra win.
func Merge(base, extra tables.Aggregates) tables.Aggregates {
	out := make(tables.Aggregates, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func without(codes []string, drop string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if c != drop {
			out = append(out, c)
		}
	}
	return out
}
