package investor

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultDepositAmount is recorded when a payment event carries no usable
// amount.
var DefaultDepositAmount = decimal.NewFromInt(5000)

// Payment event types that count as a completed deposit.
const (
	EventCaptureCompleted = "PAYMENT.CAPTURE.COMPLETED"
	EventOrderApproved    = "CHECKOUT.ORDER.APPROVED"
	EventSaleCompleted    = "PAYMENT.SALE.COMPLETED"
)

var (
	ErrIgnoredEvent = errors.New("payment event type not handled")
	ErrNoPayerEmail = errors.New("no payer email in payment event")
)

// PaymentEvent is the subset of a PayPal webhook body used to record
// deposits.
type PaymentEvent struct {
	EventType string          `json:"event_type"`
	Resource  paymentResource `json:"resource"`
	Payer     *paymentParty   `json:"payer"`
}

type paymentResource struct {
	Payer         *paymentParty  `json:"payer"`
	Payee         *paymentParty  `json:"payee"`
	Amount        *paymentAmount `json:"amount"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
}

type paymentParty struct {
	EmailAddress string `json:"email_address"`
}

type paymentAmount struct {
	Value        string `json:"value"`
	CurrencyCode string `json:"currency_code"`
}

type purchaseUnit struct {
	Amount *paymentAmount `json:"amount"`
}

// Deposit is a payment attributed to a lead's email.
type Deposit struct {
	Email  string          `json:"email"`
	Amount decimal.Decimal `json:"amount"`
}

// Deposit extracts the payer email and amount. The email is taken from
// the resource payer, then the resource payee, then the top-level payer.
// A missing, unparseable, or non-positive amount becomes
// DefaultDepositAmount.
func (e PaymentEvent) Deposit() (Deposit, error) {
	switch e.EventType {
	case EventCaptureCompleted, EventOrderApproved, EventSaleCompleted:
	default:
		return Deposit{}, ErrIgnoredEvent
	}

	email := firstEmail(e.Resource.Payer, e.Resource.Payee, e.Payer)
	if email == "" {
		return Deposit{}, ErrNoPayerEmail
	}
	return Deposit{Email: email, Amount: e.amount()}, nil
}

func (e PaymentEvent) amount() decimal.Decimal {
	raw := ""
	if e.Resource.Amount != nil {
		raw = e.Resource.Amount.Value
	}
	if raw == "" && len(e.Resource.PurchaseUnits) > 0 && e.Resource.PurchaseUnits[0].Amount != nil {
		raw = e.Resource.PurchaseUnits[0].Amount.Value
	}
	v, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !v.IsPositive() {
		return DefaultDepositAmount
	}
	return v
}

func firstEmail(parties ...*paymentParty) string {
	for _, p := range parties {
		if p == nil {
			continue
		}
		if email := strings.ToLower(strings.TrimSpace(p.EmailAddress)); email != "" {
			return email
		}
	}
	return ""
}
