package kb

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/signalsfoundry/powermix/model"
)

// LoadSummary is a small summary of what was loaded from JSON.
// It's mainly useful for logging from main().
type LoadSummary struct {
	Datasets  int
	Exchanges int
	Databases []string
}

// LoadJSON reads a JSON array of datasets from r and adds them to inv.
// It fails on decode errors and on the first dataset the inventory rejects.
func LoadJSON(inv *Inventory, r io.Reader) (*LoadSummary, error) {
	if inv == nil {
		return nil, fmt.Errorf("LoadJSON: inventory is nil")
	}

	var payload []*model.Dataset
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadJSON: decode failed: %w", err)
	}

	summary := &LoadSummary{}
	dbs := make(map[string]struct{})
	for i, ds := range payload {
		if ds == nil {
			return nil, fmt.Errorf("LoadJSON: dataset %d is null", i)
		}
		if err := inv.Add(ds); err != nil {
			return nil, fmt.Errorf("LoadJSON: dataset %d: %w", i, err)
		}
		summary.Datasets++
		summary.Exchanges += len(ds.Exchanges)
		if _, ok := dbs[ds.Database]; !ok {
			dbs[ds.Database] = struct{}{}
			summary.Databases = append(summary.Databases, ds.Database)
		}
	}
	return summary, nil
}

// WriteJSON writes every dataset in insertion order as an indented JSON array.
func WriteJSON(inv *Inventory, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	datasets := inv.Datasets()
	if datasets == nil {
		datasets = []*model.Dataset{}
	}
	if err := enc.Encode(datasets); err != nil {
		return fmt.Errorf("WriteJSON: %w", err)
	}
	return nil
}
