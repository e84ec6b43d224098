package model

import "strconv"

// Inventory location sentinels.
const (
	// LocationGlobal is the inventory's global location.
	LocationGlobal = "GLO"
	// LocationRestOfWorld is the inventory's "Rest of World" aggregate.
	LocationRestOfWorld = "RoW"
	// LocationEurope is the inventory's European aggregate.
	LocationEurope = "RER"
)

// RegionWorld is the scenario model's global region.
const RegionWorld = "World"

// VoltageTier is one of the three electricity market aggregation levels.
type VoltageTier string

const (
	TierHigh   VoltageTier = "high"
	TierMedium VoltageTier = "medium"
	TierLow    VoltageTier = "low"
)

// Tiers lists voltage tiers in composition order.
var Tiers = []VoltageTier{TierHigh, TierMedium, TierLow}

// Product is the reference product delivered at this tier.
func (t VoltageTier) Product() string {
	return "electricity, " + string(t) + " voltage"
}

// MarketName is the name of the composed market group for a scenario year.
func (t VoltageTier) MarketName(scenario string, year int) string {
	return "market group for electricity, " + string(t) + " voltage, " + scenario + ", " + strconv.Itoa(year)
}
