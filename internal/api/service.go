// Package api provides the HTTP handlers for deal analysis, saved deals,
// the property book, investor qualification, and street-level imagery.
//
// Analysis runs on float64 through the underwriting package; anything
// persisted is converted to shopspring/decimal at this boundary.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/dealdesk/deal-engine/internal/auth"
	"github.com/dealdesk/deal-engine/internal/importer"
	"github.com/dealdesk/deal-engine/internal/metrics"
	"github.com/dealdesk/deal-engine/internal/model"
	"github.com/dealdesk/deal-engine/internal/store"
	"github.com/dealdesk/deal-engine/internal/streetview"
	"github.com/dealdesk/deal-engine/internal/underwriting"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// Service wires the HTTP surface to the store and the domain packages.
type Service struct {
	store      store.Store
	importer   *importer.Importer
	streetView *streetview.Client
	validate   *validator.Validate
	wsHub      *WSHub // optional WebSocket hub for real-time broadcasts
}

// NewService creates the API service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(st store.Store, imp *importer.Importer, sv *streetview.Client, hub *WSHub) *Service {
	return &Service{
		store:      st,
		importer:   imp,
		streetView: sv,
		validate:   newValidator(),
		wsHub:      hub,
	}
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// --- Request/Response types ---

// SaveDealRequest is the JSON body for POST /deals: the analyzed deal
// plus optional narrative notes.
type SaveDealRequest struct {
	underwriting.Deal
	AIInsights string `json:"ai_insights" validate:"max=20000"`
}

// --- HTTP Handlers ---

// Analyze handles POST /api/v1/analyze
func (s *Service) Analyze(w http.ResponseWriter, r *http.Request) {
	var deal underwriting.Deal
	if err := decodeJSON(w, r, &deal); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	analysis, err := underwriting.Evaluate(deal)
	if err != nil {
		writeDealError(w, err, nil)
		return
	}
	metrics.AnalysesTotal.WithLabelValues(string(analysis.Verdict)).Inc()

	writeJSON(w, http.StatusOK, analysis)
}

// ListDeals handles GET /api/v1/deals
func (s *Service) ListDeals(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	deals, err := s.store.ListSavedDeals(r.Context(), userID)
	if err != nil {
		slog.Error("list saved deals failed", "user_id", userID, "err", err)
		writeError(w, "failed to list deals", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, deals)
}

// SaveDeal handles POST /api/v1/deals. Metrics and verdict are recomputed
// here; whatever the client computed is ignored.
func (s *Service) SaveDeal(w http.ResponseWriter, r *http.Request) {
	var req SaveDealRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	fields := s.structErrors(req)
	req.Address = strings.TrimSpace(req.Address)
	if req.Address == "" {
		fields["address"] = "is required"
	}

	analysis, err := underwriting.Evaluate(req.Deal)
	if err != nil || len(fields) > 0 {
		writeDealError(w, err, fields)
		return
	}

	userID, _ := auth.UserID(r.Context())
	deal := newSavedDeal(userID, req, analysis)
	if err := s.store.CreateSavedDeal(r.Context(), deal); err != nil {
		slog.Error("save deal failed", "user_id", userID, "err", err)
		writeError(w, "failed to save deal", http.StatusInternalServerError)
		return
	}
	metrics.SavedDealsTotal.Inc()

	slog.Info("deal saved",
		"id", deal.ID,
		"user_id", userID,
		"verdict", deal.Verdict,
		"roi", deal.ROI.String(),
	)

	s.wsHub.Broadcast(Event{Type: EventDealSaved, UserID: userID, Payload: deal})
	writeJSON(w, http.StatusCreated, deal)
}

// GetDeal handles GET /api/v1/deals/{dealID}. Deals of other users are
// reported as not found.
func (s *Service) GetDeal(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	id := chi.URLParam(r, "dealID")

	deal, err := s.store.GetSavedDeal(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, "deal not found", http.StatusNotFound)
			return
		}
		slog.Error("get deal failed", "id", id, "user_id", userID, "err", err)
		writeError(w, "failed to load deal", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, deal)
}

// DeleteDeal handles DELETE /api/v1/deals/{dealID}
func (s *Service) DeleteDeal(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	id := chi.URLParam(r, "dealID")

	if err := s.store.DeleteSavedDeal(r.Context(), userID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, "deal not found", http.StatusNotFound)
			return
		}
		slog.Error("delete deal failed", "id", id, "user_id", userID, "err", err)
		writeError(w, "failed to delete deal", http.StatusInternalServerError)
		return
	}

	slog.Info("deal deleted", "id", id, "user_id", userID)
	s.wsHub.Broadcast(Event{Type: EventDealDeleted, UserID: userID, Payload: map[string]string{"id": id}})
	w.WriteHeader(http.StatusNoContent)
}

func newSavedDeal(userID string, req SaveDealRequest, a *underwriting.Analysis) *model.SavedDeal {
	d := req.Deal
	deal := &model.SavedDeal{
		UserID:       userID,
		Address:      d.Address,
		PropertyType: string(d.PropertyType),
		Units:        d.Units,
		BPOValue:     decimal.NewFromFloat(d.BPOValue),
		StrikePrice:  decimal.NewFromFloat(d.StrikePrice),
		RehabCosts:   decimal.NewFromFloat(d.RehabCosts),
		HoldPeriod:   d.HoldPeriod,
		ExitStrategy: string(d.ExitStrategy),
		SalePrice:    decimal.NewFromFloat(d.SalePrice),
		ROI:          decimal.NewFromFloat(a.Metrics.ROI).Round(4),
		IRR:          decimal.NewFromFloat(a.Metrics.IRR).Round(4),
		Profit:       decimal.NewFromFloat(a.Metrics.Profit).Round(2),
		Verdict:      string(a.Verdict),
		AIInsights:   strings.TrimSpace(req.AIInsights),
	}
	// (0, 0) is the zero value, not a real coordinate for this market.
	if d.Latitude != 0 || d.Longitude != 0 {
		lat, lng := d.Latitude, d.Longitude
		deal.Latitude, deal.Longitude = &lat, &lng
	}
	return deal
}

// --- helpers ---

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

// structErrors runs tag validation and flattens the result to
// field -> failed rule. The map is never nil.
func (s *Service) structErrors(v interface{}) map[string]string {
	fields := make(map[string]string)
	err := s.validate.Struct(v)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields[fe.Field()] = validationMessage(fe)
		}
	}
	return fields
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "gte":
		return "must be at least " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

// writeDealError renders invalid input as 422 with per-field reasons.
// extra holds request-level field errors to merge in.
func writeDealError(w http.ResponseWriter, err error, extra map[string]string) {
	if err != nil && !errors.Is(err, underwriting.ErrInvalidInput) {
		slog.Error("deal evaluation failed", "err", err)
		writeError(w, "failed to evaluate deal", http.StatusInternalServerError)
		return
	}
	fields := underwriting.FieldErrors(err)
	for k, v := range extra {
		if _, ok := fields[k]; !ok {
			fields[k] = v
		}
	}
	metrics.AnalysisRejections.Inc()
	writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
		"error":  "invalid deal",
		"fields": fields,
	})
}

// writeJSON encodes before writing the status so an unencodable value
// becomes a 500 rather than an empty success.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("encode response failed", "err", err)
		writeError(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(data, '\n'))
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
