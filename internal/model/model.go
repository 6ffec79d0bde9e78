// Package model defines the persisted domain types of the deal engine.
// Money at rest uses shopspring/decimal; optional numeric columns are
// pointers or decimal.NullDecimal so that "unknown" survives a round trip.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SavedDeal is a user's snapshot of an analyzed deal. Metrics are
// recomputed server-side at save time, never taken from the client.
type SavedDeal struct {
	ID           string          `json:"id" db:"id"`
	UserID       string          `json:"user_id" db:"user_id"`
	Address      string          `json:"address" db:"address"`
	PropertyType string          `json:"property_type" db:"property_type"`
	Units        int             `json:"units" db:"units"`
	BPOValue     decimal.Decimal `json:"bpo_value" db:"bpo_value"`
	StrikePrice  decimal.Decimal `json:"strike_price" db:"strike_price"`
	RehabCosts   decimal.Decimal `json:"rehab_costs" db:"rehab_costs"`
	HoldPeriod   int             `json:"hold_period" db:"hold_period"` // months
	ExitStrategy string          `json:"exit_strategy" db:"exit_strategy"`
	SalePrice    decimal.Decimal `json:"sale_price" db:"sale_price"`
	Latitude     *float64        `json:"latitude" db:"latitude"`
	Longitude    *float64        `json:"longitude" db:"longitude"`
	ROI          decimal.Decimal `json:"roi" db:"roi"`
	IRR          decimal.Decimal `json:"irr" db:"irr"`
	Profit       decimal.Decimal `json:"profit" db:"profit"`
	Verdict      string          `json:"verdict" db:"verdict"`
	AIInsights   string          `json:"ai_insights" db:"ai_insights"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// Property is a portfolio / marketplace record. PropertyID is the
// business key used for upserts; ID is the surrogate key.
type Property struct {
	ID                  string              `json:"id" db:"id"`
	PropertyID          string              `json:"property_id" db:"property_id"`
	Source              string              `json:"source" db:"source"`
	SourceLoanNumber    string              `json:"source_loan_number,omitempty" db:"source_loan_number"`
	DealStage           string              `json:"deal_stage" db:"deal_stage"`
	Address             string              `json:"address" db:"address"`
	City                string              `json:"city" db:"city"`
	State               string              `json:"state" db:"state"`
	ZipCode             string              `json:"zip_code" db:"zip_code"`
	County              string              `json:"county,omitempty" db:"county"`
	PropertyType        string              `json:"property_type,omitempty" db:"property_type"`
	NumUnits            *int                `json:"num_units" db:"num_units"`
	Bedrooms            *int                `json:"bedrooms" db:"bedrooms"`
	Bathrooms           decimal.NullDecimal `json:"bathrooms" db:"bathrooms"`
	SquareFeet          *int                `json:"square_feet" db:"square_feet"`
	YearBuilt           *int                `json:"year_built" db:"year_built"`
	OccupancyStatus     string              `json:"occupancy_status,omitempty" db:"occupancy_status"`
	OwnerOccupied       bool                `json:"owner_occupied" db:"owner_occupied"`
	BPO                 decimal.NullDecimal `json:"bpo" db:"bpo"`
	ARV                 decimal.NullDecimal `json:"arv" db:"arv"`
	UPB                 decimal.NullDecimal `json:"upb" db:"upb"`
	StrikePrice         decimal.NullDecimal `json:"strike_price" db:"strike_price"`
	LTVRatio            decimal.NullDecimal `json:"ltv_ratio" db:"ltv_ratio"` // fraction, 0.57 = 57%
	CurrentInterestRate decimal.NullDecimal `json:"current_interest_rate" db:"current_interest_rate"`
	DelinquentStatus    string              `json:"delinquent_status,omitempty" db:"delinquent_status"`
	ForeclosureFlag     bool                `json:"foreclosure_flag" db:"foreclosure_flag"`
	BankruptcyFlag      bool                `json:"bankruptcy_flag" db:"bankruptcy_flag"`
	EstimatedROI        decimal.NullDecimal `json:"estimated_roi" db:"estimated_roi"`
	EstimatedIRR        decimal.NullDecimal `json:"estimated_irr" db:"estimated_irr"`
	HoldPeriodMonths    *int                `json:"projected_hold_period_months" db:"projected_hold_period_months"`
	RiskScore           *int                `json:"risk_score" db:"risk_score"`
	Notes               string              `json:"notes,omitempty" db:"notes"`
	IsActive            bool                `json:"is_active" db:"is_active"`
	CreatedBy           string              `json:"created_by,omitempty" db:"created_by"`
	CreatedAt           time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at" db:"updated_at"`
}

// InvestorLead is a submission from the investor qualification funnel.
type InvestorLead struct {
	ID               string    `json:"id" db:"id"`
	Name             string    `json:"name" db:"name"`
	Email            string    `json:"email" db:"email"`
	Phone            string    `json:"phone,omitempty" db:"phone"`
	AccreditedStatus string    `json:"accredited_status" db:"accredited_status"`
	InvestmentAmount int64     `json:"investment_amount" db:"investment_amount"`
	InvestmentTier   string    `json:"investment_tier" db:"investment_tier"`
	Experience       string    `json:"experience,omitempty" db:"experience"`
	Timeline         string    `json:"timeline,omitempty" db:"timeline"`
	Qualified        bool      `json:"qualified" db:"qualified"`
	Source           string    `json:"source" db:"source"`
	Status           string    `json:"status" db:"status"`

	DepositSubmitted bool                `json:"deposit_submitted" db:"deposit_submitted"`
	DepositAmount    decimal.NullDecimal `json:"deposit_amount" db:"deposit_amount"`
	DepositDate      *time.Time          `json:"deposit_date" db:"deposit_date"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// PortfolioSummary aggregates the property book.
type PortfolioSummary struct {
	TotalProperties  int             `json:"total_properties"`
	ActiveProperties int             `json:"active_properties"`
	Foreclosures     int             `json:"foreclosures"`
	Bankruptcies     int             `json:"bankruptcies"`
	TotalUPB         decimal.Decimal `json:"total_upb"`
	TotalBPO         decimal.Decimal `json:"total_bpo"`
	TotalStrikePrice decimal.Decimal `json:"total_strike_price"`
	AvgInterestRate  decimal.Decimal `json:"avg_interest_rate"`
}

// PipelineStage aggregates properties sharing one deal stage.
type PipelineStage struct {
	Stage        string          `json:"status"`
	DealCount    int             `json:"deal_count"`
	TotalCapital decimal.Decimal `json:"total_capital"`
	AvgROI       decimal.Decimal `json:"avg_roi"`
	AvgIRR       decimal.Decimal `json:"avg_irr"`
}

// CountyExposure is the geographic distribution row for one county.
type CountyExposure struct {
	County     string          `json:"county"`
	Count      int             `json:"count"`
	TotalValue decimal.Decimal `json:"total_value"` // Σ BPO
}
