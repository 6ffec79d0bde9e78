package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/dealdesk/deal-engine/internal/api"
	"github.com/dealdesk/deal-engine/internal/auth"
	"github.com/dealdesk/deal-engine/internal/importer"
	"github.com/dealdesk/deal-engine/internal/investor"
	"github.com/dealdesk/deal-engine/internal/model"
	"github.com/dealdesk/deal-engine/internal/store"
	"github.com/dealdesk/deal-engine/internal/streetview"
	"github.com/dealdesk/deal-engine/internal/underwriting"
)

const testSecret = "test-secret"

// newTestEnv creates a Service with an in-memory store mounted on a chi router.
func newTestEnv(t *testing.T, hub *api.WSHub) (*store.MemoryStore, chi.Router) {
	t.Helper()
	ms := store.NewMemoryStore()
	svc := api.NewService(ms, importer.New(ms, 0), streetview.NewClient("", ""), hub)

	r := chi.NewRouter()
	svc.Mount(r, auth.New(testSecret).Middleware)
	return ms, r
}

func token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := auth.New(testSecret).Issue(userID, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func do(t *testing.T, router http.Handler, method, path, tok string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, w.Body.String())
	}
}

// sampleDeal: total investment 426,500 and profit 90,500, a "consider".
func sampleDeal() map[string]interface{} {
	return map[string]interface{}{
		"address":       "12 Elm St, Buffalo, NY",
		"property_type": "Single Family",
		"units":         1,
		"bpo_value":     500000,
		"strike_price":  350000,
		"rehab_costs":   50000,
		"hold_period":   6,
		"exit_strategy": "Fix & Flip",
		"sale_price":    550000,
	}
}

func seedProperties(t *testing.T, ms *store.MemoryStore) {
	t.Helper()
	price := func(v int64) decimal.NullDecimal { return decimal.NewNullDecimal(decimal.NewFromInt(v)) }
	_, err := ms.UpsertProperties(context.Background(), []model.Property{
		{PropertyID: "P-1", Address: "1 Main St", City: "Buffalo", ZipCode: "14201", County: "Erie",
			DealStage: "Active", StrikePrice: price(100000), BPO: price(150000), IsActive: true},
		{PropertyID: "P-2", Address: "9 Lake Ave", City: "Rochester", ZipCode: "14608", County: "Monroe",
			DealStage: "Closed", StrikePrice: price(300000), BPO: price(400000), ForeclosureFlag: true, IsActive: true},
	})
	if err != nil {
		t.Fatalf("seed properties: %v", err)
	}
}

// --- Analysis ---

func TestAnalyze(t *testing.T) {
	_, router := newTestEnv(t, nil)

	w := do(t, router, "POST", "/api/v1/analyze", "", sampleDeal())
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var a underwriting.Analysis
	decode(t, w, &a)
	if math.Abs(a.Metrics.TotalInvestment-426500) > 1e-6 {
		t.Errorf("expected total investment 426500, got %f", a.Metrics.TotalInvestment)
	}
	if math.Abs(a.Metrics.Profit-90500) > 1e-6 {
		t.Errorf("expected profit 90500, got %f", a.Metrics.Profit)
	}
	if a.Verdict != underwriting.VerdictConsider || a.VerdictText != "Consider" {
		t.Errorf("expected consider verdict, got %s (%q)", a.Verdict, a.VerdictText)
	}
	if a.RiskFactors[0].Name == "" {
		t.Error("expected risk factors in response")
	}
}

func TestAnalyze_InvalidDeal(t *testing.T) {
	_, router := newTestEnv(t, nil)

	deal := sampleDeal()
	deal["units"] = 0
	deal["bpo_value"] = 0

	w := do(t, router, "POST", "/api/v1/analyze", "", deal)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	var resp struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	decode(t, w, &resp)
	for _, f := range []string{"units", "bpo_value"} {
		if resp.Fields[f] == "" {
			t.Errorf("expected field error for %s, got %v", f, resp.Fields)
		}
	}
}

func TestAnalyze_NonFiniteMetricsRejected(t *testing.T) {
	_, router := newTestEnv(t, nil)

	tests := []struct {
		name  string
		field string
		edit  func(map[string]interface{})
	}{
		{"denormal bpo", "bpo_value", func(d map[string]interface{}) { d["bpo_value"] = 1e-320 }},
		{"investment overflow", "strike_price", func(d map[string]interface{}) {
			d["strike_price"] = 1e308
			d["rehab_costs"] = 1e308
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			deal := sampleDeal()
			tc.edit(deal)
			w := do(t, router, "POST", "/api/v1/analyze", "", deal)
			if w.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d: %q", w.Code, w.Body.String())
			}
			var resp struct {
				Fields map[string]string `json:"fields"`
			}
			decode(t, w, &resp)
			if resp.Fields[tc.field] == "" {
				t.Errorf("expected field error for %s, got %v", tc.field, resp.Fields)
			}
		})
	}
}

func TestAnalyze_MalformedBody(t *testing.T) {
	_, router := newTestEnv(t, nil)
	w := do(t, router, "POST", "/api/v1/analyze", "", "{not json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

// --- Saved deals ---

func TestDeals_RequireAuth(t *testing.T) {
	_, router := newTestEnv(t, nil)

	for _, tc := range []struct{ method, path string }{
		{"GET", "/api/v1/deals"},
		{"POST", "/api/v1/deals"},
		{"GET", "/api/v1/deals/abc"},
		{"DELETE", "/api/v1/deals/abc"},
		{"GET", "/api/v1/properties/export"},
	} {
		w := do(t, router, tc.method, tc.path, "", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", tc.method, tc.path, w.Code)
		}
	}
}

func TestSaveDeal_Lifecycle(t *testing.T) {
	_, router := newTestEnv(t, nil)
	alice, bob := token(t, "alice"), token(t, "bob")

	body := sampleDeal()
	body["roi"] = 999 // client-side metrics are ignored
	body["ai_insights"] = "  Strong comps on the block.  "

	w := do(t, router, "POST", "/api/v1/deals", alice, body)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var saved model.SavedDeal
	decode(t, w, &saved)

	if saved.ID == "" || saved.UserID != "alice" {
		t.Errorf("unexpected identity: id=%q user=%q", saved.ID, saved.UserID)
	}
	if !saved.ROI.Equal(decimal.RequireFromString("21.2192")) {
		t.Errorf("expected recomputed ROI 21.2192, got %s", saved.ROI)
	}
	if !saved.Profit.Equal(decimal.NewFromInt(90500)) {
		t.Errorf("expected profit 90500, got %s", saved.Profit)
	}
	if saved.Verdict != "consider" || saved.AIInsights != "Strong comps on the block." {
		t.Errorf("unexpected verdict/insights: %q %q", saved.Verdict, saved.AIInsights)
	}
	if saved.Latitude != nil {
		t.Error("expected no coordinates when none were sent")
	}

	var list []model.SavedDeal
	w = do(t, router, "GET", "/api/v1/deals", alice, nil)
	decode(t, w, &list)
	if len(list) != 1 || list[0].ID != saved.ID {
		t.Fatalf("expected alice's saved deal, got %+v", list)
	}

	w = do(t, router, "GET", "/api/v1/deals", bob, nil)
	decode(t, w, &list)
	if len(list) != 0 {
		t.Errorf("bob should see no deals, got %d", len(list))
	}

	w = do(t, router, "GET", "/api/v1/deals/"+saved.ID, alice, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get by owner: expected 200, got %d", w.Code)
	}
	var loaded model.SavedDeal
	decode(t, w, &loaded)
	if loaded.ID != saved.ID || !loaded.ROI.Equal(saved.ROI) {
		t.Errorf("loaded deal differs from saved: %+v", loaded)
	}
	if w := do(t, router, "GET", "/api/v1/deals/"+saved.ID, bob, nil); w.Code != http.StatusNotFound {
		t.Errorf("get by non-owner: expected 404, got %d", w.Code)
	}

	if w := do(t, router, "DELETE", "/api/v1/deals/"+saved.ID, bob, nil); w.Code != http.StatusNotFound {
		t.Errorf("delete by non-owner: expected 404, got %d", w.Code)
	}
	if w := do(t, router, "DELETE", "/api/v1/deals/"+saved.ID, alice, nil); w.Code != http.StatusNoContent {
		t.Errorf("delete by owner: expected 204, got %d", w.Code)
	}
	if w := do(t, router, "DELETE", "/api/v1/deals/"+saved.ID, alice, nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete: expected 404, got %d", w.Code)
	}
}

func TestSaveDeal_Validation(t *testing.T) {
	_, router := newTestEnv(t, nil)

	body := sampleDeal()
	body["address"] = "   "
	body["hold_period"] = 0

	w := do(t, router, "POST", "/api/v1/deals", token(t, "alice"), body)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	decode(t, w, &resp)
	if resp.Fields["address"] == "" || resp.Fields["hold_period"] == "" {
		t.Errorf("expected address and hold_period errors, got %v", resp.Fields)
	}
}

// --- Properties ---

func TestListProperties_Filters(t *testing.T) {
	ms, router := newTestEnv(t, nil)
	seedProperties(t, ms)

	var list api.PropertyList
	w := do(t, router, "GET", "/api/v1/properties", "", nil)
	decode(t, w, &list)
	if list.Count != 2 || list.ActiveFilters != 0 {
		t.Errorf("unfiltered: expected 2 properties and no filters, got %d / %d", list.Count, list.ActiveFilters)
	}

	w = do(t, router, "GET", "/api/v1/properties?city=buffalo&max_price=200000", "", nil)
	decode(t, w, &list)
	if list.Count != 1 || list.Properties[0].PropertyID != "P-1" {
		t.Errorf("expected only P-1, got %+v", list.Properties)
	}
	if list.ActiveFilters != 2 {
		t.Errorf("expected 2 active filters, got %d", list.ActiveFilters)
	}

	if w := do(t, router, "GET", "/api/v1/properties?min_price=cheap", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad number: expected 400, got %d", w.Code)
	}
	if w := do(t, router, "GET", "/api/v1/properties?min_price=5&max_price=1", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("inverted range: expected 400, got %d", w.Code)
	}
}

func TestGetProperty(t *testing.T) {
	ms, router := newTestEnv(t, nil)
	seedProperties(t, ms)

	w := do(t, router, "GET", "/api/v1/properties/P-2", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var p model.Property
	decode(t, w, &p)
	if p.City != "Rochester" {
		t.Errorf("expected Rochester, got %s", p.City)
	}

	if w := do(t, router, "GET", "/api/v1/properties/NOPE", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func upload(t *testing.T, router http.Handler, tok, filename, content string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(content))
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("POST", "/api/v1/properties/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

const tapeCSV = "Address,City,Zip,BPO\n" +
	"1 Main St,Buffalo,14201,\"$120,000\"\n" +
	",Buffalo,14202,1\n"

func TestImportProperties(t *testing.T) {
	ms, router := newTestEnv(t, nil)

	w := upload(t, router, token(t, "alice"), "tape.csv", tapeCSV, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp api.ImportResponse
	decode(t, w, &resp)
	if resp.Success != 1 || resp.Failed != 1 {
		t.Errorf("expected 1 success and 1 failure, got %d / %d", resp.Success, resp.Failed)
	}
	if len(resp.Errors) != 1 || !strings.HasPrefix(resp.Errors[0], "Row 2: Missing required fields") {
		t.Errorf("unexpected errors: %v", resp.Errors)
	}
	if resp.Mapping["Zip"] != "zip_code" {
		t.Errorf("expected Zip auto-mapped to zip_code, got %v", resp.Mapping)
	}

	props, err := ms.ListProperties(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(props) != 1 {
		t.Fatalf("expected 1 stored property, got %d", len(props))
	}
	p := props[0]
	if p.CreatedBy != "alice" || p.State != importer.DefaultState {
		t.Errorf("unexpected defaults: created_by=%q state=%q", p.CreatedBy, p.State)
	}
	if !p.BPO.Valid || !p.BPO.Decimal.Equal(decimal.NewFromInt(120000)) {
		t.Errorf("expected BPO 120000, got %v", p.BPO)
	}
}

func TestImportProperties_BadRequests(t *testing.T) {
	_, router := newTestEnv(t, nil)
	tok := token(t, "alice")

	tests := []struct {
		name     string
		filename string
		content  string
		fields   map[string]string
	}{
		{"unsupported extension", "tape.pdf", tapeCSV, nil},
		{"header only", "tape.csv", "Address,City,Zip\n", nil},
		{"unknown mapping target", "tape.csv", tapeCSV, map[string]string{"mapping": `{"Address":"street"}`}},
		{"malformed mapping", "tape.csv", tapeCSV, map[string]string{"mapping": `[1,2]`}},
		{"nothing mappable", "tape.csv", "Foo,Bar\n1,2\n", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := upload(t, router, tok, tc.filename, tc.content, tc.fields)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}

	if w := upload(t, router, "", "tape.csv", tapeCSV, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("without token: expected 401, got %d", w.Code)
	}
}

func TestExportProperties(t *testing.T) {
	ms, router := newTestEnv(t, nil)
	seedProperties(t, ms)
	tok := token(t, "alice")

	w := do(t, router, "GET", "/api/v1/properties/export?city=Rochester", tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("expected text/csv, got %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, ".csv") {
		t.Errorf("expected csv attachment, got %q", cd)
	}
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], importer.ExportHeaders()[0]) || !strings.Contains(lines[1], "Rochester") {
		t.Errorf("unexpected export:\n%s", w.Body.String())
	}

	w = do(t, router, "GET", "/api/v1/properties/export?format=xlsx", tok, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Header().Get("Content-Type"), "spreadsheetml") {
		t.Errorf("xlsx export: got %d %q", w.Code, w.Header().Get("Content-Type"))
	}

	if w := do(t, router, "GET", "/api/v1/properties/export?format=pdf", tok, nil); w.Code != http.StatusBadRequest {
		t.Errorf("unsupported format: expected 400, got %d", w.Code)
	}
}

func TestPortfolioSummary(t *testing.T) {
	ms, router := newTestEnv(t, nil)
	seedProperties(t, ms)

	w := do(t, router, "GET", "/api/v1/portfolio/summary", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp api.PortfolioResponse
	decode(t, w, &resp)

	if resp.Summary.TotalProperties != 2 || resp.Summary.Foreclosures != 1 {
		t.Errorf("unexpected summary: %+v", resp.Summary)
	}
	if !resp.Summary.TotalStrikePrice.Equal(decimal.NewFromInt(400000)) {
		t.Errorf("expected total strike 400000, got %s", resp.Summary.TotalStrikePrice)
	}
	if len(resp.Pipeline) != 2 || resp.Pipeline[0].Stage != "Active" {
		t.Errorf("unexpected pipeline: %+v", resp.Pipeline)
	}
	if len(resp.Counties) != 2 || resp.Counties[0].County != "Monroe" {
		t.Errorf("expected Monroe first by BPO, got %+v", resp.Counties)
	}
}

// --- Investor funnel ---

func TestQualifyInvestor(t *testing.T) {
	_, router := newTestEnv(t, nil)

	app := map[string]interface{}{
		"name":              "Dana Reyes",
		"email":             "Dana@Example.com",
		"accredited_status": "yes",
		"investment_amount": 750000,
	}
	w := do(t, router, "POST", "/api/v1/investors/qualify", "", app)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp api.QualifyResponse
	decode(t, w, &resp)
	if !resp.Result.Qualified || !resp.Result.VIP || resp.Lead.InvestmentTier != "VIP LP" {
		t.Errorf("expected VIP qualification, got %+v", resp.Result)
	}
	if resp.Lead.Email != "dana@example.com" || resp.Lead.Source != "portal" {
		t.Errorf("unexpected lead: %+v", resp.Lead)
	}

	app["email"] = "DANA@example.com"
	if w := do(t, router, "POST", "/api/v1/investors/qualify", "", app); w.Code != http.StatusConflict {
		t.Errorf("duplicate email: expected 409, got %d", w.Code)
	}
}

func TestQualifyInvestor_Validation(t *testing.T) {
	_, router := newTestEnv(t, nil)

	w := do(t, router, "POST", "/api/v1/investors/qualify", "", map[string]interface{}{
		"name":              "Dana Reyes",
		"email":             "not-an-email",
		"accredited_status": "maybe",
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	decode(t, w, &resp)
	if resp.Fields["email"] == "" || resp.Fields["accredited_status"] == "" {
		t.Errorf("expected email and accredited_status errors, got %v", resp.Fields)
	}
}

func TestProjectInvestment(t *testing.T) {
	_, router := newTestEnv(t, nil)

	w := do(t, router, "POST", "/api/v1/investors/projection", "", map[string]interface{}{
		"amount":           100000,
		"hold_months":      24,
		"tier":             "standard",
		"appreciation_pct": 15,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var p investor.Projection
	decode(t, w, &p)
	if !p.TotalReturn.Equal(decimal.NewFromInt(124400)) || !p.ROI.Equal(decimal.RequireFromString("24.4")) {
		t.Errorf("expected total 124400 and roi 24.4, got %s / %s", p.TotalReturn, p.ROI)
	}
	if p.Tier.Name != "Standard LP" || !p.MeetsMinimum {
		t.Errorf("unexpected tier: %+v (meets minimum %v)", p.Tier, p.MeetsMinimum)
	}

	// Appreciation below the preferred return contributes nothing.
	w = do(t, router, "POST", "/api/v1/investors/projection", "", map[string]interface{}{
		"amount":           100000,
		"hold_months":      12,
		"tier":             "entry",
		"appreciation_pct": 5,
	})
	decode(t, w, &p)
	if !p.ProfitAbovePref.IsZero() || !p.TotalReturn.Equal(decimal.NewFromInt(106000)) {
		t.Errorf("expected clamped share, got above=%s total=%s", p.ProfitAbovePref, p.TotalReturn)
	}
}

func TestProjectInvestment_Invalid(t *testing.T) {
	_, router := newTestEnv(t, nil)

	tests := []struct {
		name string
		body interface{}
		want int
	}{
		{"malformed", "{", http.StatusBadRequest},
		{"unknown tier", map[string]interface{}{"amount": 100000, "hold_months": 12, "tier": "gold", "appreciation_pct": 10}, http.StatusUnprocessableEntity},
		{"zero hold", map[string]interface{}{"amount": 100000, "hold_months": 0, "tier": "vip", "appreciation_pct": 10}, http.StatusUnprocessableEntity},
		{"missing amount", map[string]interface{}{"hold_months": 12, "tier": "vip", "appreciation_pct": 10}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := do(t, router, "POST", "/api/v1/investors/projection", "", tt.body); w.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestRecordDeposit(t *testing.T) {
	ms, router := newTestEnv(t, nil)

	lead := &model.InvestorLead{Name: "Dana Reyes", Email: "dana@example.com", InvestmentAmount: 100000}
	if err := ms.CreateInvestorLead(context.Background(), lead); err != nil {
		t.Fatalf("create lead: %v", err)
	}

	w := do(t, router, "POST", "/api/v1/investors/deposits", "", `{
		"event_type": "PAYMENT.CAPTURE.COMPLETED",
		"resource": {"payer": {"email_address": "Dana@Example.com"}, "amount": {"value": "7500.00"}}
	}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Success bool            `json:"success"`
		LeadID  string          `json:"lead_id"`
		Email   string          `json:"email"`
		Amount  decimal.Decimal `json:"amount"`
	}
	decode(t, w, &resp)
	if !resp.Success || resp.LeadID != lead.ID || resp.Email != "dana@example.com" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if !resp.Amount.Equal(decimal.NewFromInt(7500)) {
		t.Errorf("expected amount 7500, got %s", resp.Amount)
	}

	got, err := ms.RecordDeposit(context.Background(), "dana@example.com", decimal.NewFromInt(7500))
	if err != nil || !got.DepositSubmitted {
		t.Errorf("expected lead to carry the deposit, got %+v (%v)", got, err)
	}
}

func TestRecordDeposit_Unattributed(t *testing.T) {
	_, router := newTestEnv(t, nil)

	tests := []struct {
		name    string
		body    string
		want    int
		message string
	}{
		{
			name:    "unhandled event",
			body:    `{"event_type": "PAYMENT.CAPTURE.REFUNDED", "resource": {}}`,
			want:    http.StatusOK,
			message: "event type not handled",
		},
		{
			name:    "unknown lead",
			body:    `{"event_type": "PAYMENT.SALE.COMPLETED", "resource": {"payer": {"email_address": "nobody@example.com"}}}`,
			want:    http.StatusOK,
			message: "no matching lead found",
		},
		{
			name: "no payer email",
			body: `{"event_type": "PAYMENT.SALE.COMPLETED", "resource": {}}`,
			want: http.StatusBadRequest,
		},
		{
			name: "malformed",
			body: `{"event_type":`,
			want: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, "POST", "/api/v1/investors/deposits", "", tt.body)
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
			if tt.message == "" {
				return
			}
			var resp map[string]string
			decode(t, w, &resp)
			if resp["message"] != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, resp["message"])
			}
		})
	}
}

// --- Street view ---

func TestStreetView(t *testing.T) {
	_, router := newTestEnv(t, nil)

	w := do(t, router, "GET", "/api/v1/streetview?address=1+Main+St", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var img streetview.Image
	decode(t, w, &img)
	if !img.Fallback || img.Available {
		t.Errorf("expected fallback without an API key, got %+v", img)
	}

	if w := do(t, router, "GET", "/api/v1/streetview", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing address: expected 400, got %d", w.Code)
	}
	if w := do(t, router, "GET", "/api/v1/streetview?address=x&width=wide", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad width: expected 400, got %d", w.Code)
	}
}

// --- WebSocket ---

func TestWebSocket_DealSavedEvent(t *testing.T) {
	hub := api.NewWSHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	_, router := newTestEnv(t, hub)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/v1/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if w := do(t, router, "POST", "/api/v1/deals", token(t, "alice"), sampleDeal()); w.Code != http.StatusCreated {
		t.Fatalf("save deal: expected 201, got %d", w.Code)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev struct {
		Type    string          `json:"type"`
		UserID  string          `json:"user_id"`
		Payload model.SavedDeal `json:"payload"`
	}
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.Type != api.EventDealSaved || ev.UserID != "alice" || ev.Payload.Address != "12 Elm St, Buffalo, NY" {
		t.Errorf("unexpected event: %+v", ev)
	}
}
