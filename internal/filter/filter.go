// Package filter handles portfolio and marketplace query parsing,
// validation, and matching of property records against facet filters.
package filter

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dealdesk/deal-engine/internal/model"
)

// facetAll disables a facet when sent by the client.
const facetAll = "all"

var (
	ErrInvalidNumber = errors.New("filter: invalid number")
	ErrInvalidRange  = errors.New("filter: minimum exceeds maximum")
)

// PropertyFilter is a parsed set of facets. Zero values disable a facet.
type PropertyFilter struct {
	Search          string           `json:"search,omitempty"`
	City            string           `json:"city,omitempty"`
	PropertyType    string           `json:"property_type,omitempty"`
	OccupancyStatus string           `json:"occupancy_status,omitempty"`
	DealStage       string           `json:"deal_stage,omitempty"`
	MinPrice        *decimal.Decimal `json:"min_price,omitempty"`
	MaxPrice        *decimal.Decimal `json:"max_price,omitempty"`
	MinROI          *decimal.Decimal `json:"min_roi,omitempty"`
	MaxROI          *decimal.Decimal `json:"max_roi,omitempty"`
}

// ParseQuery builds a filter from URL query parameters:
// q, city, property_type, occupancy_status, deal_stage,
// min_price, max_price, min_roi, max_roi.
func ParseQuery(q url.Values) (PropertyFilter, error) {
	f := PropertyFilter{
		Search:          strings.TrimSpace(q.Get("q")),
		City:            facet(q.Get("city")),
		PropertyType:    facet(q.Get("property_type")),
		OccupancyStatus: facet(q.Get("occupancy_status")),
		DealStage:       facet(q.Get("deal_stage")),
	}

	var err error
	if f.MinPrice, err = parseBound(q, "min_price"); err != nil {
		return PropertyFilter{}, err
	}
	if f.MaxPrice, err = parseBound(q, "max_price"); err != nil {
		return PropertyFilter{}, err
	}
	if f.MinROI, err = parseBound(q, "min_roi"); err != nil {
		return PropertyFilter{}, err
	}
	if f.MaxROI, err = parseBound(q, "max_roi"); err != nil {
		return PropertyFilter{}, err
	}

	if inverted(f.MinPrice, f.MaxPrice) {
		return PropertyFilter{}, fmt.Errorf("%w: price %s > %s", ErrInvalidRange, f.MinPrice, f.MaxPrice)
	}
	if inverted(f.MinROI, f.MaxROI) {
		return PropertyFilter{}, fmt.Errorf("%w: roi %s > %s", ErrInvalidRange, f.MinROI, f.MaxROI)
	}
	return f, nil
}

func facet(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, facetAll) {
		return ""
	}
	return v
}

func parseBound(q url.Values, key string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s=%q", ErrInvalidNumber, key, raw)
	}
	return &v, nil
}

func inverted(min, max *decimal.Decimal) bool {
	return min != nil && max != nil && min.GreaterThan(*max)
}

// Match reports whether p passes every engaged facet. A record with no
// value for a ranged facet passes that facet.
func (f PropertyFilter) Match(p model.Property) bool {
	if f.Search != "" && !matchesSearch(p, f.Search) {
		return false
	}
	if f.City != "" && !strings.EqualFold(p.City, f.City) {
		return false
	}
	if f.PropertyType != "" && !strings.EqualFold(p.PropertyType, f.PropertyType) {
		return false
	}
	if f.OccupancyStatus != "" && !strings.EqualFold(p.OccupancyStatus, f.OccupancyStatus) {
		return false
	}
	if f.DealStage != "" && !strings.EqualFold(p.DealStage, f.DealStage) {
		return false
	}
	if !inRange(Price(p), f.MinPrice, f.MaxPrice) {
		return false
	}
	return inRange(p.EstimatedROI, f.MinROI, f.MaxROI)
}

// Price is the strike price, falling back to BPO.
func Price(p model.Property) decimal.NullDecimal {
	if p.StrikePrice.Valid {
		return p.StrikePrice
	}
	return p.BPO
}

func matchesSearch(p model.Property, term string) bool {
	term = strings.ToLower(term)
	for _, field := range []string{p.Address, p.City, p.ZipCode, p.County} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func inRange(v decimal.NullDecimal, min, max *decimal.Decimal) bool {
	if !v.Valid {
		return true
	}
	if min != nil && v.Decimal.LessThan(*min) {
		return false
	}
	if max != nil && v.Decimal.GreaterThan(*max) {
		return false
	}
	return true
}

// Apply returns the matching properties in their original order.
func (f PropertyFilter) Apply(props []model.Property) []model.Property {
	out := make([]model.Property, 0, len(props))
	for _, p := range props {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

// ActiveCount returns the number of engaged facets. A price or ROI range
// counts once even when both bounds are set.
func (f PropertyFilter) ActiveCount() int {
	n := 0
	for _, s := range []string{f.Search, f.City, f.PropertyType, f.OccupancyStatus, f.DealStage} {
		if s != "" {
			n++
		}
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		n++
	}
	if f.MinROI != nil || f.MaxROI != nil {
		n++
	}
	return n
}
