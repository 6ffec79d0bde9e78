// Package importer ingests property spreadsheets (CSV or XLSX) into the
// store and exports the property book back out.
//
// Headers are auto-mapped onto property columns by name heuristics, cell
// values are coerced by column kind, and rows are upserted in batches keyed
// by property_id.
package importer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dealdesk/deal-engine/internal/model"
)

// Kind is the value type of a target column.
type Kind int

const (
	KindString Kind = iota
	KindInteger
	KindDecimal
	KindBoolean
)

type column struct {
	name string
	kind Kind
	set  func(p *model.Property, v interface{})
}

// columns lists the importable property columns in match-priority order.
var columns = []column{
	{"property_id", KindString, func(p *model.Property, v interface{}) { p.PropertyID = v.(string) }},
	{"source", KindString, func(p *model.Property, v interface{}) { p.Source = v.(string) }},
	{"source_loan_number", KindString, func(p *model.Property, v interface{}) { p.SourceLoanNumber = v.(string) }},
	{"deal_stage", KindString, func(p *model.Property, v interface{}) { p.DealStage = v.(string) }},
	{"address", KindString, func(p *model.Property, v interface{}) { p.Address = v.(string) }},
	{"city", KindString, func(p *model.Property, v interface{}) { p.City = v.(string) }},
	{"state", KindString, func(p *model.Property, v interface{}) { p.State = v.(string) }},
	{"zip_code", KindString, func(p *model.Property, v interface{}) { p.ZipCode = v.(string) }},
	{"county", KindString, func(p *model.Property, v interface{}) { p.County = v.(string) }},
	{"property_type", KindString, func(p *model.Property, v interface{}) { p.PropertyType = v.(string) }},
	{"num_units", KindInteger, func(p *model.Property, v interface{}) { p.NumUnits = intPtr(v) }},
	{"bedrooms", KindInteger, func(p *model.Property, v interface{}) { p.Bedrooms = intPtr(v) }},
	{"bathrooms", KindDecimal, func(p *model.Property, v interface{}) { p.Bathrooms = nullDecimal(v) }},
	{"square_feet", KindInteger, func(p *model.Property, v interface{}) { p.SquareFeet = intPtr(v) }},
	{"year_built", KindInteger, func(p *model.Property, v interface{}) { p.YearBuilt = intPtr(v) }},
	{"occupancy_status", KindString, func(p *model.Property, v interface{}) { p.OccupancyStatus = v.(string) }},
	{"owner_occupied", KindBoolean, func(p *model.Property, v interface{}) { p.OwnerOccupied = v.(bool) }},
	{"bpo", KindDecimal, func(p *model.Property, v interface{}) { p.BPO = nullDecimal(v) }},
	{"arv", KindDecimal, func(p *model.Property, v interface{}) { p.ARV = nullDecimal(v) }},
	{"upb", KindDecimal, func(p *model.Property, v interface{}) { p.UPB = nullDecimal(v) }},
	{"current_interest_rate", KindDecimal, func(p *model.Property, v interface{}) { p.CurrentInterestRate = nullDecimal(v) }},
	{"delinquent_status", KindString, func(p *model.Property, v interface{}) { p.DelinquentStatus = v.(string) }},
	{"foreclosure_flag", KindBoolean, func(p *model.Property, v interface{}) { p.ForeclosureFlag = v.(bool) }},
	{"bankruptcy_flag", KindBoolean, func(p *model.Property, v interface{}) { p.BankruptcyFlag = v.(bool) }},
	{"strike_price", KindDecimal, func(p *model.Property, v interface{}) { p.StrikePrice = nullDecimal(v) }},
	{"ltv_ratio", KindDecimal, func(p *model.Property, v interface{}) { p.LTVRatio = nullDecimal(v) }},
	{"estimated_roi", KindDecimal, func(p *model.Property, v interface{}) { p.EstimatedROI = nullDecimal(v) }},
	{"estimated_irr", KindDecimal, func(p *model.Property, v interface{}) { p.EstimatedIRR = nullDecimal(v) }},
	{"projected_hold_period_months", KindInteger, func(p *model.Property, v interface{}) { p.HoldPeriodMonths = intPtr(v) }},
	{"risk_score", KindInteger, func(p *model.Property, v interface{}) { p.RiskScore = intPtr(v) }},
	{"notes", KindString, func(p *model.Property, v interface{}) { p.Notes = v.(string) }},
}

var columnIndex = func() map[string]column {
	m := make(map[string]column, len(columns))
	for _, c := range columns {
		m[c.name] = c
	}
	return m
}()

// Columns returns the importable target column names.
func Columns() []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.name
	}
	return names
}

// ColumnKind reports the kind of a target column.
func ColumnKind(name string) (Kind, bool) {
	c, ok := columnIndex[name]
	return c.kind, ok
}

var (
	nonInteger  = regexp.MustCompile(`[^0-9-]`)
	leadingInt  = regexp.MustCompile(`^-?[0-9]+`)
	decimalJunk = strings.NewReplacer("$", "", ",", "", "%", "")
)

// ParseValue coerces a raw cell for the given column kind. A nil result
// means the cell carries no value. Blank cells and "-" are nil; integers
// drop every character other than digits and '-'; decimals drop '$', ','
// and '%'; booleans accept true, yes, y and 1. Unparseable numbers are nil.
func ParseValue(raw string, kind Kind) interface{} {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "-" {
		return nil
	}

	switch kind {
	case KindInteger:
		digits := leadingInt.FindString(nonInteger.ReplaceAllString(raw, ""))
		n, err := strconv.Atoi(digits)
		if err != nil {
			return nil
		}
		return n
	case KindDecimal:
		d, err := decimal.NewFromString(decimalJunk.Replace(raw))
		if err != nil {
			return nil
		}
		return d
	case KindBoolean:
		switch strings.ToLower(raw) {
		case "true", "yes", "y", "1":
			return true
		}
		return false
	default:
		return raw
	}
}

func intPtr(v interface{}) *int {
	n := v.(int)
	return &n
}

func nullDecimal(v interface{}) decimal.NullDecimal {
	return decimal.NewNullDecimal(v.(decimal.Decimal))
}
