package underwriting

import "math"

// Fixed underwriting assumptions. These are not caller inputs.
const (
	ClosingCostRate   = 0.03 // of strike price
	AnnualHoldingRate = 0.08 // on strike + rehab, prorated by months held
	SellingCostRate   = 0.06 // of sale price
	monthsPerYear     = 12.0
	percent           = 100.0
)

// CalculatedMetrics is derived from a Deal on every call; it has no identity.
type CalculatedMetrics struct {
	Discount        float64 `json:"discount"` // % strike undercuts BPO; negative is a premium
	ClosingCosts    float64 `json:"closing_costs"`
	HoldingCosts    float64 `json:"holding_costs"`
	TotalInvestment float64 `json:"total_investment"`
	SellingCosts    float64 `json:"selling_costs"`
	NetProceeds     float64 `json:"net_proceeds"`
	Profit          float64 `json:"profit"`
	ROI             float64 `json:"roi"`
	// IRR keeps its historical name but is the annualized holding-period
	// return: the whole-period multiple compounded to a 12-month basis.
	// No periodic cash flows are modelled.
	IRR       float64 `json:"irr"`
	LTV       float64 `json:"ltv"` // strike / BPO, a price-to-value ratio
	CostBasis float64 `json:"cost_basis"`
}

// CalculateMetrics validates deal and derives its financial metrics.
// Validation guarantees strictly positive denominators; amounts that are
// valid but extreme enough to overflow float64 (or a denormal BPO) are
// rejected as field errors, so the result never carries NaN or Inf.
func CalculateMetrics(deal Deal) (CalculatedMetrics, error) {
	if err := deal.Validate(); err != nil {
		return CalculatedMetrics{}, err
	}

	closingCosts := deal.StrikePrice * ClosingCostRate
	// Simple proration: partial years are not compounded.
	holdingCosts := (deal.StrikePrice + deal.RehabCosts) * AnnualHoldingRate * (float64(deal.HoldPeriod) / monthsPerYear)
	totalInvestment := deal.StrikePrice + closingCosts + deal.RehabCosts + holdingCosts
	costBasis := deal.StrikePrice + deal.RehabCosts
	if !finite(closingCosts, holdingCosts, totalInvestment, costBasis) {
		return CalculatedMetrics{}, invalid("strike_price", "strike price and rehab costs are too large to evaluate")
	}

	sellingCosts := deal.SalePrice * SellingCostRate
	netProceeds := deal.SalePrice - sellingCosts
	profit := netProceeds - totalInvestment
	if !finite(sellingCosts, netProceeds, profit) {
		return CalculatedMetrics{}, invalid("sale_price", "sale price is too large to evaluate")
	}

	discount := ((deal.BPOValue - deal.StrikePrice) / deal.BPOValue) * percent
	ltv := (deal.StrikePrice / deal.BPOValue) * percent
	if !finite(discount, ltv) {
		return CalculatedMetrics{}, invalid("bpo_value", "is too small relative to the strike price")
	}

	roi := (profit / totalInvestment) * percent
	if !finite(roi) {
		return CalculatedMetrics{}, invalid("sale_price", "return overflows for this sale price and investment")
	}

	irr, err := annualizedReturn(netProceeds, totalInvestment, deal.HoldPeriod)
	if err != nil {
		return CalculatedMetrics{}, err
	}

	return CalculatedMetrics{
		Discount:        discount,
		ClosingCosts:    closingCosts,
		HoldingCosts:    holdingCosts,
		TotalInvestment: totalInvestment,
		SellingCosts:    sellingCosts,
		NetProceeds:     netProceeds,
		Profit:          profit,
		ROI:             roi,
		IRR:             irr,
		LTV:             ltv,
		CostBasis:       costBasis,
	}, nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return false
		}
	}
	return true
}

// annualizedReturn computes (multiple^(12/months) - 1) * 100.
//
//	multiple = netProceeds / totalInvestment
//
// A negative multiple has no real fractional power, and a large multiple
// over a short hold can overflow float64; both are input errors.
func annualizedReturn(netProceeds, totalInvestment float64, holdMonths int) (float64, error) {
	multiple := netProceeds / totalInvestment
	if multiple < 0 || math.IsNaN(multiple) {
		return 0, invalid("sale_price", "net proceeds must not be negative")
	}
	r := (math.Pow(multiple, monthsPerYear/float64(holdMonths)) - 1) * percent
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return 0, invalid("sale_price", "annualized return overflows for this sale price and hold period")
	}
	return r, nil
}
