package model

import (
	"fmt"
	"math"
)

// ExchangeType identifies the kind of flow an exchange represents.
type ExchangeType string

const (
	ExchangeProduction   ExchangeType = "production"
	ExchangeTechnosphere ExchangeType = "technosphere"
	ExchangeBiosphere    ExchangeType = "biosphere"
)

// Valid reports whether t is one of the known exchange types.
func (t ExchangeType) Valid() bool {
	switch t {
	case ExchangeProduction, ExchangeTechnosphere, ExchangeBiosphere:
		return true
	}
	return false
}

// Uncertainty distribution identifiers as used by inventory exports.
const (
	UncertaintyUndefined = 0
	UncertaintyNone      = 1
	UncertaintyLognormal = 2
)

// Uncertainty carries the pass-through distribution metadata of an exchange.
// Only Loc is kept consistent with Amount when an exchange is rescaled.
type Uncertainty struct {
	Type    int      `json:"uncertainty_type"`
	Loc     float64  `json:"loc"`
	Scale   *float64 `json:"scale,omitempty"`
	Shape   *float64 `json:"shape,omitempty"`
	Minimum *float64 `json:"minimum,omitempty"`
	Maximum *float64 `json:"maximum,omitempty"`
}

// FlowKey references an elementary flow in a biosphere database.
type FlowKey struct {
	Database string `json:"database"`
	Code     string `json:"code"`
}

// Exchange is a single input or output flow of a Dataset.
type Exchange struct {
	Type    ExchangeType `json:"type"`
	Name    string       `json:"name"`
	Product string       `json:"product,omitempty"` // technosphere/production only
	Unit    string       `json:"unit"`
	Amount  float64      `json:"amount"`

	Uncertainty
	ProductionVolume float64 `json:"production_volume"`

	// Location is the supplier location of a technosphere input.
	Location string `json:"location,omitempty"`

	// Input and Categories identify biosphere flows.
	Input      *FlowKey `json:"input,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

// Field returns the string value of a named attribute so exchanges can be
// matched by the same predicates as datasets.
func (e *Exchange) Field(name string) string {
	switch name {
	case FieldName:
		return e.Name
	case FieldProduct:
		return e.Product
	case FieldUnit:
		return e.Unit
	case FieldLocation:
		return e.Location
	case FieldType:
		return string(e.Type)
	}
	return ""
}

// Validate checks the required field set for the exchange's type.
func (e *Exchange) Validate() error {
	if e == nil {
		return fmt.Errorf("%w: nil exchange", ErrInvalidExchange)
	}
	if !e.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidExchange, e.Type)
	}
	if e.Name == "" || e.Unit == "" {
		return fmt.Errorf("%w: %s exchange needs name and unit", ErrInvalidExchange, e.Type)
	}
	switch e.Type {
	case ExchangeBiosphere:
		if e.Input == nil {
			return fmt.Errorf("%w: biosphere exchange %q has no flow key", ErrInvalidExchange, e.Name)
		}
	default:
		if e.Product == "" {
			return fmt.Errorf("%w: %s exchange %q has no product", ErrInvalidExchange, e.Type, e.Name)
		}
	}
	if math.IsNaN(e.Amount) || math.IsInf(e.Amount, 0) {
		return fmt.Errorf("%w: exchange %q amount is %v", ErrInvalidExchange, e.Name, e.Amount)
	}
	return nil
}

// Rescale multiplies the amount by factor. With removeUncertainty the
// distribution metadata is dropped and the point estimate reset to the new
// amount; otherwise the point estimate and bounds follow the amount.
func (e *Exchange) Rescale(factor float64, removeUncertainty bool) {
	e.Amount *= factor

	if removeUncertainty {
		e.Uncertainty = Uncertainty{Type: UncertaintyUndefined, Loc: e.Amount}
		return
	}
	if e.Uncertainty.Type == UncertaintyUndefined || e.Uncertainty.Type == UncertaintyNone {
		e.Uncertainty = Uncertainty{Type: e.Uncertainty.Type, Loc: e.Amount}
		return
	}

	if e.Uncertainty.Type == UncertaintyLognormal {
		// lognormal loc lives in log space
		if e.Amount != 0 {
			e.Uncertainty.Loc = math.Log(math.Abs(e.Amount))
		}
	} else {
		e.Uncertainty.Loc *= factor
	}
	scaleBound(e.Uncertainty.Minimum, factor)
	scaleBound(e.Uncertainty.Maximum, factor)
	if factor < 0 && e.Uncertainty.Minimum != nil && e.Uncertainty.Maximum != nil {
		e.Uncertainty.Minimum, e.Uncertainty.Maximum = e.Uncertainty.Maximum, e.Uncertainty.Minimum
	}
}

// SetAmount overwrites the amount and clears uncertainty metadata.
func (e *Exchange) SetAmount(amount float64) {
	e.Amount = amount
	e.Uncertainty = Uncertainty{Type: UncertaintyUndefined, Loc: amount}
}

func scaleBound(v *float64, factor float64) {
	if v != nil {
		*v *= factor
	}
}

// NewTechnosphere builds a technosphere input with no uncertainty.
func NewTechnosphere(name, product, unit, location string, amount float64) *Exchange {
	return &Exchange{
		Type:        ExchangeTechnosphere,
		Name:        name,
		Product:     product,
		Unit:        unit,
		Location:    location,
		Amount:      amount,
		Uncertainty: Uncertainty{Loc: amount},
	}
}

// NewBiosphere builds an elementary flow with no uncertainty.
func NewBiosphere(name, unit string, key FlowKey, categories []string, amount float64) *Exchange {
	return &Exchange{
		Type:        ExchangeBiosphere,
		Name:        name,
		Unit:        unit,
		Input:       &key,
		Categories:  append([]string(nil), categories...),
		Amount:      amount,
		Uncertainty: Uncertainty{Loc: amount},
	}
}
