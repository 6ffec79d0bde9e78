// Package metrics provides Prometheus instrumentation for the deal engine.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// AnalysesTotal counts deal evaluations, partitioned by verdict.
	AnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dealdesk_analyses_total",
		Help: "Total number of deal analyses by verdict",
	}, []string{"verdict"})

	// AnalysisRejections counts analyses rejected for invalid input.
	AnalysisRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dealdesk_analysis_rejections_total",
		Help: "Deal analyses rejected for invalid input",
	})

	// SavedDealsTotal counts deals saved by users.
	SavedDealsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dealdesk_saved_deals_total",
		Help: "Total number of deals saved",
	})

	// ImportRowsTotal counts imported spreadsheet rows by outcome.
	ImportRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dealdesk_import_rows_total",
		Help: "Imported property rows by outcome",
	}, []string{"outcome"})

	// ImportDuration tracks how long a whole import takes.
	ImportDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dealdesk_import_duration_seconds",
		Help:    "Property import duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	// InvestorLeadsTotal counts qualification submissions by outcome.
	InvestorLeadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dealdesk_investor_leads_total",
		Help: "Investor leads recorded by qualification outcome",
	}, []string{"outcome"})

	// InvestorDepositsTotal counts payment webhook deliveries by outcome.
	InvestorDepositsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dealdesk_investor_deposits_total",
		Help: "Payment webhook events by outcome",
	}, []string{"outcome"})

	// PortfolioProperties tracks the number of properties in the book.
	PortfolioProperties = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dealdesk_portfolio_properties",
		Help: "Number of active properties in the portfolio",
	})

	// PortfolioValue tracks book totals by measure (upb, bpo, strike_price).
	PortfolioValue = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dealdesk_portfolio_value_dollars",
		Help: "Portfolio totals in dollars by measure",
	}, []string{"measure"})

	// PortfolioDistressed tracks foreclosure and bankruptcy counts.
	PortfolioDistressed = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dealdesk_portfolio_distressed",
		Help: "Properties flagged as distressed by kind",
	}, []string{"kind"})

	// PortfolioRefreshErrors counts failed scheduled refreshes.
	PortfolioRefreshErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dealdesk_portfolio_refresh_errors_total",
		Help: "Scheduled portfolio refreshes that failed",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dealdesk_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dealdesk_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dealdesk_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the route pattern for path label to avoid high cardinality.
		path := routePattern(r)
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack passes through to the underlying writer for websocket upgrades.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	return h.Hijack()
}
