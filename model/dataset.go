package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidDataset indicates a dataset is missing required fields.
	ErrInvalidDataset = errors.New("invalid dataset")
	// ErrInvalidExchange indicates an exchange is missing required fields.
	ErrInvalidExchange = errors.New("invalid exchange")
)

// Attribute names understood by Field on datasets and exchanges.
const (
	FieldName     = "name"
	FieldProduct  = "reference product"
	FieldUnit     = "unit"
	FieldLocation = "location"
	FieldDatabase = "database"
	FieldType     = "type"
)

// Units used by electricity datasets.
const (
	UnitKilowattHour = "kilowatt hour"
	UnitKilogram     = "kilogram"
	UnitKilometer    = "kilometer"
	UnitMegajoule    = "megajoule"
	UnitCubicMeter   = "cubic meter"
)

// Dataset is one life-cycle inventory record: a production activity with its
// input and output flows.
type Dataset struct {
	Code             string             `json:"code"`
	Location         string             `json:"location"`
	Name             string             `json:"name"`
	ReferenceProduct string             `json:"reference_product"`
	Unit             string             `json:"unit"`
	Exchanges        []*Exchange        `json:"exchanges"`
	Parameters       map[string]float64 `json:"parameters,omitempty"`
	Comment          string             `json:"comment,omitempty"`
	Database         string             `json:"database"`
}

// NewDataset builds a dataset and validates its required field set.
func NewDataset(code, location, name, product, unit, database string, exchanges ...*Exchange) (*Dataset, error) {
	ds := &Dataset{
		Code:             code,
		Location:         location,
		Name:             name,
		ReferenceProduct: product,
		Unit:             unit,
		Database:         database,
		Exchanges:        exchanges,
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

// Validate checks required fields and every exchange.
func (d *Dataset) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: nil dataset", ErrInvalidDataset)
	}
	var missing []string
	if d.Code == "" {
		missing = append(missing, "code")
	}
	if d.Name == "" {
		missing = append(missing, "name")
	}
	if d.Location == "" {
		missing = append(missing, "location")
	}
	if d.Unit == "" {
		missing = append(missing, "unit")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %q missing %s", ErrInvalidDataset, d.Name, strings.Join(missing, ", "))
	}
	for _, exc := range d.Exchanges {
		if err := exc.Validate(); err != nil {
			return fmt.Errorf("dataset %q: %w", d.Name, err)
		}
	}
	return nil
}

// Field returns the string value of a named attribute.
func (d *Dataset) Field(name string) string {
	switch name {
	case FieldName:
		return d.Name
	case FieldProduct:
		return d.ReferenceProduct
	case FieldUnit:
		return d.Unit
	case FieldLocation:
		return d.Location
	case FieldDatabase:
		return d.Database
	}
	return ""
}

// Production returns the dataset's reference-product exchange, or nil.
func (d *Dataset) Production() *Exchange {
	for _, exc := range d.Exchanges {
		if exc.Type == ExchangeProduction {
			return exc
		}
	}
	return nil
}

// ExchangesOf returns exchanges of the given type in dataset order.
func (d *Dataset) ExchangesOf(t ExchangeType) []*Exchange {
	var out []*Exchange
	for _, exc := range d.Exchanges {
		if exc.Type == t {
			out = append(out, exc)
		}
	}
	return out
}

// Parameter returns a named parameter and whether it is set.
func (d *Dataset) Parameter(key string) (float64, bool) {
	v, ok := d.Parameters[key]
	return v, ok
}

// SetParameter stores a named parameter, allocating the map on first use.
func (d *Dataset) SetParameter(key string, value float64) {
	if d.Parameters == nil {
		d.Parameters = make(map[string]float64)
	}
	d.Parameters[key] = value
}
