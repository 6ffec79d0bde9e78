// Package investor qualifies limited-partner leads from the investor portal.
package investor

import (
	"strings"

	"github.com/dealdesk/deal-engine/internal/model"
)

// Qualification thresholds in whole dollars.
const (
	MinInvestment = 50_000
	VIPInvestment = 500_000
)

const (
	TierVIP      = "VIP LP"
	TierStandard = "Standard"

	// LeadSource tags leads captured by the portal form.
	LeadSource = "portal"
	// LeadStatusNew is the pipeline status of a fresh lead.
	LeadStatusNew = "new"
)

// Application is the qualification form as submitted.
type Application struct {
	Name             string `json:"name" validate:"required,max=200"`
	Email            string `json:"email" validate:"required,email"`
	Phone            string `json:"phone" validate:"omitempty,max=40"`
	AccreditedStatus string `json:"accredited_status" validate:"required,oneof=yes no unsure"`
	InvestmentAmount int64  `json:"investment_amount" validate:"gte=0"`
	InvestmentTier   string `json:"investment_tier" validate:"omitempty,max=60"`
	Experience       string `json:"experience" validate:"omitempty,oneof=beginner intermediate experienced professional"`
	Timeline         string `json:"timeline" validate:"omitempty,max=60"`
}

// Accredited reports whether the applicant declared accredited status.
func (a Application) Accredited() bool {
	return strings.EqualFold(strings.TrimSpace(a.AccreditedStatus), "yes")
}

// Result is the outcome of a qualification.
type Result struct {
	Qualified bool   `json:"qualified"`
	VIP       bool   `json:"vip"`
	Tier      string `json:"tier"`
}

// Qualify: accredited with at least MinInvestment qualifies; a qualified
// applicant at VIPInvestment or more is VIP. Everyone else keeps the
// requested tier, or Standard when none was requested.
func Qualify(accredited bool, amount int64, requestedTier string) Result {
	qualified := accredited && amount >= MinInvestment
	vip := qualified && amount >= VIPInvestment

	tier := strings.TrimSpace(requestedTier)
	switch {
	case vip:
		tier = TierVIP
	case tier == "":
		tier = TierStandard
	}
	return Result{Qualified: qualified, VIP: vip, Tier: tier}
}

// NewLead qualifies an application and builds the lead to persist.
// The email is trimmed and lower-cased so uniqueness is case-insensitive.
func NewLead(app Application) (*model.InvestorLead, Result) {
	res := Qualify(app.Accredited(), app.InvestmentAmount, app.InvestmentTier)
	return &model.InvestorLead{
		Name:             strings.TrimSpace(app.Name),
		Email:            strings.ToLower(strings.TrimSpace(app.Email)),
		Phone:            strings.TrimSpace(app.Phone),
		AccreditedStatus: app.AccreditedStatus,
		InvestmentAmount: app.InvestmentAmount,
		InvestmentTier:   res.Tier,
		Experience:       app.Experience,
		Timeline:         app.Timeline,
		Qualified:        res.Qualified,
		Source:           LeadSource,
		Status:           LeadStatusNew,
	}, res
}
