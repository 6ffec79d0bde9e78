// Package underwriting implements the deal-metrics and risk-classification
// engine for distressed-property acquisitions.
//
// Every function here is pure: no I/O, no shared state, safe to call from
// any number of goroutines. Monetary inputs are float64 because the
// annualized-return formula needs math.Pow; values are never rounded here.
// Rounding and currency display are left to FormatCurrency/FormatPercentage
// and to the persistence layer, which stores money as decimal.
package underwriting

import (
	"errors"
	"math"
)

// PropertyType is the closed set of asset classes a deal can describe.
type PropertyType string

const (
	SingleFamily PropertyType = "Single Family"
	TwoFamily    PropertyType = "2-Family"
	MultiFamily  PropertyType = "Multi-Family"
	Condo        PropertyType = "Condo"
	Commercial   PropertyType = "Commercial"
)

var validPropertyTypes = map[PropertyType]bool{
	SingleFamily: true,
	TwoFamily:    true,
	MultiFamily:  true,
	Condo:        true,
	Commercial:   true,
}

// ExitStrategy is display-only; it never affects the calculation.
type ExitStrategy string

const (
	RetailSale    ExitStrategy = "Retail Sale"
	WholesaleFlip ExitStrategy = "Wholesale Flip"
	RentalHold    ExitStrategy = "Rental Hold"
	FixAndFlip    ExitStrategy = "Fix & Flip"
)

var validExitStrategies = map[ExitStrategy]bool{
	RetailSale:    true,
	WholesaleFlip: true,
	RentalHold:    true,
	FixAndFlip:    true,
}

// Deal is the input to a single underwriting pass.
type Deal struct {
	Address      string       `json:"address"`
	PropertyType PropertyType `json:"property_type"`
	Units        int          `json:"units"`
	BPOValue     float64      `json:"bpo_value"`    // broker's price opinion
	StrikePrice  float64      `json:"strike_price"` // acquisition price under evaluation
	RehabCosts   float64      `json:"rehab_costs"`
	HoldPeriod   int          `json:"hold_period"` // months
	ExitStrategy ExitStrategy `json:"exit_strategy"`
	SalePrice    float64      `json:"sale_price"`
	Latitude     float64      `json:"latitude"`
	Longitude    float64      `json:"longitude"`
}

// Validate checks every field the calculator divides by or relies on.
// All violations are reported, joined; each one is a *DomainError naming
// its field. A nil result guarantees CalculateMetrics performs no division
// by zero.
func (d Deal) Validate() error {
	var errs []error

	if !validPropertyTypes[d.PropertyType] {
		errs = append(errs, invalid("property_type", "must be one of Single Family, 2-Family, Multi-Family, Condo, Commercial"))
	}
	if d.Units < 1 {
		errs = append(errs, invalid("units", "must be at least 1"))
	}
	if err := positive("bpo_value", d.BPOValue); err != nil {
		errs = append(errs, err)
	}
	if err := positive("strike_price", d.StrikePrice); err != nil {
		errs = append(errs, err)
	}
	if err := nonNegative("rehab_costs", d.RehabCosts); err != nil {
		errs = append(errs, err)
	}
	if d.HoldPeriod < 1 {
		errs = append(errs, invalid("hold_period", "must be at least 1 month"))
	}
	if !validExitStrategies[d.ExitStrategy] {
		errs = append(errs, invalid("exit_strategy", "must be one of Retail Sale, Wholesale Flip, Rental Hold, Fix & Flip"))
	}
	if err := nonNegative("sale_price", d.SalePrice); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func positive(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return invalid(field, "must be a finite amount")
	}
	if v <= 0 {
		return invalid(field, "must be greater than zero")
	}
	return nil
}

func nonNegative(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return invalid(field, "must be a finite amount")
	}
	if v < 0 {
		return invalid(field, "must not be negative")
	}
	return nil
}
