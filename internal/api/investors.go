package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/dealdesk/deal-engine/internal/investor"
	"github.com/dealdesk/deal-engine/internal/metrics"
	"github.com/dealdesk/deal-engine/internal/model"
	"github.com/dealdesk/deal-engine/internal/store"
	"github.com/dealdesk/deal-engine/internal/streetview"
)

// QualifyResponse is the response body for POST /investors/qualify.
type QualifyResponse struct {
	Lead   *model.InvestorLead `json:"lead"`
	Result investor.Result     `json:"result"`
}

// QualifyInvestor handles POST /api/v1/investors/qualify
func (s *Service) QualifyInvestor(w http.ResponseWriter, r *http.Request) {
	var app investor.Application
	if err := decodeJSON(w, r, &app); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if fields := s.structErrors(app); len(fields) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":  "invalid application",
			"fields": fields,
		})
		return
	}

	lead, res := investor.NewLead(app)
	if err := s.store.CreateInvestorLead(r.Context(), lead); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			metrics.InvestorLeadsTotal.WithLabelValues("duplicate").Inc()
			writeError(w, "an application with this email already exists", http.StatusConflict)
			return
		}
		slog.Error("record investor lead failed", "err", err)
		writeError(w, "failed to record application", http.StatusInternalServerError)
		return
	}
	metrics.InvestorLeadsTotal.WithLabelValues(leadOutcome(res)).Inc()

	slog.Info("investor lead recorded",
		"id", lead.ID,
		"qualified", res.Qualified,
		"tier", res.Tier,
	)

	s.wsHub.Broadcast(Event{
		Type: EventInvestorLead,
		Payload: map[string]interface{}{
			"id":        lead.ID,
			"qualified": res.Qualified,
			"tier":      res.Tier,
		},
	})
	writeJSON(w, http.StatusCreated, QualifyResponse{Lead: lead, Result: res})
}

func leadOutcome(res investor.Result) string {
	switch {
	case res.VIP:
		return "vip"
	case res.Qualified:
		return "qualified"
	default:
		return "unqualified"
	}
}

// ProjectionRequest is the JSON body for POST /investors/projection.
type ProjectionRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	HoldMonths      int             `json:"hold_months"`
	Tier            string          `json:"tier"`
	AppreciationPct decimal.Decimal `json:"appreciation_pct"`
}

// ProjectInvestment handles POST /api/v1/investors/projection
func (s *Service) ProjectInvestment(w http.ResponseWriter, r *http.Request) {
	var req ProjectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	p, err := investor.Project(req.Amount, req.HoldMonths, req.Tier, req.AppreciationPct)
	if err != nil {
		writeError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// RecordDeposit handles POST /api/v1/investors/deposits, the payment
// provider's webhook. Events that cannot be attributed to a lead are
// acknowledged with 200 so the provider does not redeliver them.
func (s *Service) RecordDeposit(w http.ResponseWriter, r *http.Request) {
	var ev investor.PaymentEvent
	if err := decodeJSON(w, r, &ev); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	dep, err := ev.Deposit()
	switch {
	case errors.Is(err, investor.ErrIgnoredEvent):
		metrics.InvestorDepositsTotal.WithLabelValues("ignored").Inc()
		writeJSON(w, http.StatusOK, map[string]string{
			"message":    "event type not handled",
			"event_type": ev.EventType,
		})
		return
	case errors.Is(err, investor.ErrNoPayerEmail):
		metrics.InvestorDepositsTotal.WithLabelValues("no_email").Inc()
		writeError(w, "no payer email found", http.StatusBadRequest)
		return
	}

	lead, err := s.store.RecordDeposit(r.Context(), dep.Email, dep.Amount)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.InvestorDepositsTotal.WithLabelValues("unmatched").Inc()
			slog.Warn("deposit for unknown lead", "email", dep.Email, "event_type", ev.EventType)
			writeJSON(w, http.StatusOK, map[string]string{
				"message": "no matching lead found",
				"email":   dep.Email,
			})
			return
		}
		slog.Error("record deposit failed", "email", dep.Email, "err", err)
		writeError(w, "failed to record deposit", http.StatusInternalServerError)
		return
	}
	metrics.InvestorDepositsTotal.WithLabelValues("recorded").Inc()

	slog.Info("deposit recorded",
		"lead_id", lead.ID,
		"amount", dep.Amount.String(),
		"event_type", ev.EventType,
	)

	s.wsHub.Broadcast(Event{
		Type: EventInvestorDeposit,
		Payload: map[string]interface{}{
			"lead_id": lead.ID,
			"amount":  dep.Amount,
		},
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "deposit recorded",
		"lead_id": lead.ID,
		"email":   dep.Email,
		"amount":  dep.Amount,
	})
}

// StreetView handles GET /api/v1/streetview?address=&width=&height=
func (s *Service) StreetView(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	width, err := optionalInt(q.Get("width"))
	if err != nil {
		writeError(w, "width must be an integer", http.StatusBadRequest)
		return
	}
	height, err := optionalInt(q.Get("height"))
	if err != nil {
		writeError(w, "height must be an integer", http.StatusBadRequest)
		return
	}

	img, err := s.streetView.Lookup(r.Context(), q.Get("address"), width, height)
	if err != nil {
		if errors.Is(err, streetview.ErrAddressRequired) {
			writeError(w, "address is required", http.StatusBadRequest)
			return
		}
		slog.Warn("street view lookup failed", "err", err)
		writeError(w, "street view lookup failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, img)
}

func optionalInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
