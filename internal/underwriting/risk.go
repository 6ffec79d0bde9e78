package underwriting

import "math"

// RiskLevel is the display tier of a risk factor.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Risk factor names, in the order CalculateRiskFactors returns them.
const (
	MarketRisk    = "Market Risk"
	ExecutionRisk = "Execution Risk"
	LiquidityRisk = "Liquidity Risk"
)

// RiskFactor is one qualitative risk band. Percentage is an intensity
// score in [0,100], not a probability.
type RiskFactor struct {
	Name        string    `json:"name"`
	Level       RiskLevel `json:"level"`
	Percentage  int       `json:"percentage"`
	Description string    `json:"description"`
}

// riskBand applies when the driving value is strictly above `above`.
// Level and percentage live together so the level is never re-derived.
type riskBand struct {
	above       float64
	percentage  int
	level       RiskLevel
	description string
}

// riskRule is evaluated top-down; the last band must have above = -Inf.
type riskRule struct {
	name  string
	bands []riskBand
}

func (r riskRule) classify(value float64) RiskFactor {
	for _, b := range r.bands {
		if value > b.above {
			return RiskFactor{
				Name:        r.name,
				Level:       b.level,
				Percentage:  b.percentage,
				Description: b.description,
			}
		}
	}
	// Only NaN reaches here; report it as the most conservative band.
	top := r.bands[0]
	return RiskFactor{Name: r.name, Level: top.level, Percentage: top.percentage, Description: top.description}
}

var (
	// Driven by LTV (percent).
	marketRule = riskRule{
		name: MarketRisk,
		bands: []riskBand{
			{above: 70, percentage: 50, level: RiskHigh, description: "High LTV increases exposure to market corrections"},
			{above: 50, percentage: 30, level: RiskMedium, description: "Discount provides buffer against market volatility"},
			{above: math.Inf(-1), percentage: 15, level: RiskLow, description: "Discount provides buffer against market volatility"},
		},
	}

	// Driven by rehab costs / strike price.
	executionRule = riskRule{
		name: ExecutionRisk,
		bands: []riskBand{
			{above: 0.4, percentage: 45, level: RiskHigh, description: "Significant rehab scope increases timeline and budget risk"},
			{above: 0.2, percentage: 25, level: RiskMedium, description: "Manageable rehab scope with controlled execution risk"},
			{above: math.Inf(-1), percentage: 15, level: RiskLow, description: "Manageable rehab scope with controlled execution risk"},
		},
	}

	// Driven by hold period (months).
	liquidityRule = riskRule{
		name: LiquidityRisk,
		bands: []riskBand{
			{above: 24, percentage: 40, level: RiskHigh, description: "Extended hold period increases capital lock-up risk"},
			{above: 12, percentage: 30, level: RiskMedium, description: "Reasonable timeline for exit execution"},
			{above: math.Inf(-1), percentage: 20, level: RiskLow, description: "Reasonable timeline for exit execution"},
		},
	}
)

// CalculateRiskFactors returns exactly three factors, always ordered
// Market, Execution, Liquidity.
func CalculateRiskFactors(deal Deal, metrics CalculatedMetrics) [3]RiskFactor {
	return [3]RiskFactor{
		marketRule.classify(metrics.LTV),
		executionRule.classify(rehabRatio(deal)),
		liquidityRule.classify(float64(deal.HoldPeriod)),
	}
}

// rehabRatio is rehab / strike. Without a strike price any rehab spend is
// unbounded relative to it, and no rehab is no execution exposure.
func rehabRatio(deal Deal) float64 {
	if deal.StrikePrice <= 0 {
		if deal.RehabCosts > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return deal.RehabCosts / deal.StrikePrice
}
