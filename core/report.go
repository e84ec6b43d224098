package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/signalsfoundry/powermix/model"
)

// Unresolved records a technology share that could not be placed in a
// market and was zeroed.
type Unresolved struct {
	Tier       model.VoltageTier `json:"tier"`
	Region     string            `json:"region"`
	Technology string            `json:"technology"`
	Share      float64           `json:"share"`
	Reason     string            `json:"reason"`
}

// UnmappedLocation records an inventory location that could not be
// translated to a scenario market.
type UnmappedLocation struct {
	Dataset  string `json:"dataset"`
	Location string `json:"location"`
	Reason   string `json:"reason"`
}

// DanglingLink records a consumer input whose supplier was removed and could
// not be replaced by a scenario market.
type DanglingLink struct {
	Dataset  string `json:"dataset"`
	Input    string `json:"input"`
	Location string `json:"location"`
}

// Skipped records a power plant left unchanged by the rescaler.
type Skipped struct {
	Technology string `json:"technology"`
	Dataset    string `json:"dataset"`
	Location   string `json:"location"`
	Reason     string `json:"reason"`
}

// Report is the structured diagnostic of one transform run. Consumers use
// it to detect under-allocated markets.
type Report struct {
	Removed           int                       `json:"removed"`
	MarketsCreated    map[model.VoltageTier]int `json:"markets_created"`
	Relinked          map[model.VoltageTier]int `json:"relinked"`
	Rescaled          map[string]int            `json:"rescaled"`
	Unresolved        []Unresolved              `json:"unresolved,omitempty"`
	UnmappedRegions   []string                  `json:"unmapped_regions,omitempty"`
	UnmappedLocations []UnmappedLocation        `json:"unmapped_locations,omitempty"`
	DanglingLinks     []DanglingLink            `json:"dangling_links,omitempty"`
	Skipped           []Skipped                 `json:"skipped,omitempty"`
}

// NewReport returns an empty report.
func NewReport() *Report {
	return &Report{
		MarketsCreated: make(map[model.VoltageTier]int),
		Relinked:       make(map[model.VoltageTier]int),
		Rescaled:       make(map[string]int),
	}
}

// UnresolvedShare sums the zeroed share per region and tier.
func (r *Report) UnresolvedShare(tier model.VoltageTier, region string) float64 {
	var sum float64
	for _, u := range r.Unresolved {
		if u.Tier == tier && u.Region == region {
			sum += u.Share
		}
	}
	return sum
}

func (r *Report) addUnmappedLocation(dataset, location, reason string) {
	for _, u := range r.UnmappedLocations {
		if u.Dataset == dataset && u.Location == location {
			return
		}
	}
	r.UnmappedLocations = append(r.UnmappedLocations, UnmappedLocation{Dataset: dataset, Location: location, Reason: reason})
}

func (r *Report) addDanglingLink(dataset, input, location string) {
	for _, d := range r.DanglingLinks {
		if d.Dataset == dataset && d.Input == input && d.Location == location {
			return
		}
	}
	r.DanglingLinks = append(r.DanglingLinks, DanglingLink{Dataset: dataset, Input: input, Location: location})
}

// Summary renders a short human readable digest.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "removed %d obsolete markets\n", r.Removed)
	for _, tier := range model.Tiers {
		fmt.Fprintf(&b, "%s voltage: %d markets, %d exchanges relinked\n", tier, r.MarketsCreated[tier], r.Relinked[tier])
	}
	techs := make([]string, 0, len(r.Rescaled))
	for t := range r.Rescaled {
		techs = append(techs, t)
	}
	sort.Strings(techs)
	for _, t := range techs {
		fmt.Fprintf(&b, "rescaled %d datasets for %s\n", r.Rescaled[t], t)
	}
	if n := len(r.Unresolved); n > 0 {
		fmt.Fprintf(&b, "%d technology shares unresolved\n", n)
	}
	if n := len(r.UnmappedLocations); n > 0 {
		fmt.Fprintf(&b, "%d locations without scenario market\n", n)
	}
	if n := len(r.DanglingLinks); n > 0 {
		fmt.Fprintf(&b, "%d inputs still point at removed datasets\n", n)
	}
	if n := len(r.Skipped); n > 0 {
		fmt.Fprintf(&b, "%d power plants skipped\n", n)
	}
	return b.String()
}
