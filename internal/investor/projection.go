package investor

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// LPTier is a limited-partner share class: a preferred annual return paid
// first, then a share of appreciation above the preferred return.
type LPTier struct {
	Key           string          `json:"key"`
	Name          string          `json:"name"`
	PrefReturn    decimal.Decimal `json:"pref_return"`
	ProfitShare   decimal.Decimal `json:"profit_share"`
	MinInvestment decimal.Decimal `json:"min_investment"`
}

// Tiers are the LP share classes offered to investors, keyed by Key.
var Tiers = map[string]LPTier{
	"entry": {
		Key:           "entry",
		Name:          "Entry LP",
		PrefReturn:    decimal.RequireFromString("0.06"),
		ProfitShare:   decimal.RequireFromString("0.50"),
		MinInvestment: decimal.NewFromInt(50_000),
	},
	"standard": {
		Key:           "standard",
		Name:          "Standard LP",
		PrefReturn:    decimal.RequireFromString("0.08"),
		ProfitShare:   decimal.RequireFromString("0.60"),
		MinInvestment: decimal.NewFromInt(100_000),
	},
	"vip": {
		Key:           "vip",
		Name:          TierVIP,
		PrefReturn:    decimal.RequireFromString("0.10"),
		ProfitShare:   decimal.RequireFromString("0.70"),
		MinInvestment: decimal.NewFromInt(250_000),
	},
}

// Projection bounds.
const (
	MinHoldMonths = 1
	MaxHoldMonths = 360
)

var (
	ErrUnknownTier       = errors.New("unknown LP tier")
	ErrInvalidProjection = errors.New("invalid projection input")

	maxAppreciationPct = decimal.NewFromInt(1000)
	hundred            = decimal.NewFromInt(100)
	monthsPerYear      = decimal.NewFromInt(12)
)

// Projection is the projected outcome of an LP investment. Dollar amounts
// are rounded to cents, percentages to four places.
type Projection struct {
	Tier                LPTier          `json:"tier"`
	Amount              decimal.Decimal `json:"amount"`
	HoldMonths          int             `json:"hold_months"`
	AppreciationPct     decimal.Decimal `json:"appreciation_pct"`
	AnnualPref          decimal.Decimal `json:"annual_pref"`
	TotalPref           decimal.Decimal `json:"total_pref"`
	AppreciationGain    decimal.Decimal `json:"appreciation_gain"`
	ProfitAbovePref     decimal.Decimal `json:"profit_above_pref"`
	InvestorProfitShare decimal.Decimal `json:"investor_profit_share"`
	TotalReturn         decimal.Decimal `json:"total_return"`
	TotalProfit         decimal.Decimal `json:"total_profit"`
	ROI                 decimal.Decimal `json:"roi"`
	AnnualizedROI       decimal.Decimal `json:"annualized_roi"`
	IRR                 decimal.Decimal `json:"irr"`
	MeetsMinimum        bool            `json:"meets_minimum"`
}

// TierKeys returns the known tier keys in sorted order.
func TierKeys() []string {
	keys := make([]string, 0, len(Tiers))
	for k := range Tiers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Project computes the return on amount held for holdMonths in the named
// tier, assuming simple annual appreciation of appreciationPct percent.
// Appreciation below the accrued preferred return adds nothing.
func Project(amount decimal.Decimal, holdMonths int, tier string, appreciationPct decimal.Decimal) (Projection, error) {
	t, ok := Tiers[strings.ToLower(strings.TrimSpace(tier))]
	if !ok {
		return Projection{}, fmt.Errorf("%w: %q", ErrUnknownTier, tier)
	}
	if !amount.IsPositive() {
		return Projection{}, fmt.Errorf("%w: amount must be positive", ErrInvalidProjection)
	}
	if holdMonths < MinHoldMonths || holdMonths > MaxHoldMonths {
		return Projection{}, fmt.Errorf("%w: hold_months must be between %d and %d", ErrInvalidProjection, MinHoldMonths, MaxHoldMonths)
	}
	if appreciationPct.Abs().GreaterThan(maxAppreciationPct) {
		return Projection{}, fmt.Errorf("%w: appreciation_pct must be between -%s and %s", ErrInvalidProjection, maxAppreciationPct, maxAppreciationPct)
	}

	years := decimal.NewFromInt(int64(holdMonths)).Div(monthsPerYear)
	annualPref := amount.Mul(t.PrefReturn)
	totalPref := annualPref.Mul(years)
	gain := amount.Mul(appreciationPct).Div(hundred).Mul(years)
	above := decimal.Max(decimal.Zero, gain.Sub(totalPref))
	share := above.Mul(t.ProfitShare)
	totalReturn := amount.Add(totalPref).Add(share)
	totalProfit := totalReturn.Sub(amount)
	roi := totalProfit.Div(amount).Mul(hundred)

	growth := totalReturn.Div(amount).InexactFloat64()
	irr := (math.Pow(growth, 1/years.InexactFloat64()) - 1) * 100

	return Projection{
		Tier:                t,
		Amount:              amount,
		HoldMonths:          holdMonths,
		AppreciationPct:     appreciationPct,
		AnnualPref:          annualPref.Round(2),
		TotalPref:           totalPref.Round(2),
		AppreciationGain:    gain.Round(2),
		ProfitAbovePref:     above.Round(2),
		InvestorProfitShare: share.Round(2),
		TotalReturn:         totalReturn.Round(2),
		TotalProfit:         totalProfit.Round(2),
		ROI:                 roi.Round(4),
		AnnualizedROI:       roi.Div(years).Round(4),
		IRR:                 decimal.NewFromFloat(irr).Round(4),
		MeetsMinimum:        amount.GreaterThanOrEqual(t.MinInvestment),
	}, nil
}
