// Package jobs runs scheduled background work for the deal engine.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dealdesk/deal-engine/internal/metrics"
	"github.com/dealdesk/deal-engine/internal/model"
	"github.com/dealdesk/deal-engine/internal/portfolio"
)

// refreshTimeout bounds a single refresh run.
const refreshTimeout = 30 * time.Second

// PropertyLister is the store view the refresher needs.
type PropertyLister interface {
	ListProperties(ctx context.Context) ([]model.Property, error)
}

// Refresher periodically summarizes the property book into Prometheus gauges.
type Refresher struct {
	store PropertyLister
	cron  *cron.Cron
}

// NewRefresher creates a refresher. Overlapping runs are skipped.
func NewRefresher(store PropertyLister) *Refresher {
	return &Refresher{
		store: store,
		cron:  cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
	}
}

// Start schedules refreshes (standard cron spec or descriptor such as
// "@every 1m") and runs one immediately.
func (r *Refresher) Start(schedule string) error {
	if _, err := r.cron.AddFunc(schedule, r.run); err != nil {
		return fmt.Errorf("schedule portfolio refresh %q: %w", schedule, err)
	}
	r.cron.Start()
	slog.Info("portfolio refresher started", "schedule", schedule)

	go r.run()
	return nil
}

// Stop halts scheduling and waits for a running refresh to finish.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
	slog.Info("portfolio refresher stopped")
}

func (r *Refresher) run() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	if _, err := r.RunOnce(ctx); err != nil {
		metrics.PortfolioRefreshErrors.Inc()
		slog.Error("portfolio refresh failed", "err", err)
	}
}

// RunOnce summarizes the current book and publishes it to the gauges.
func (r *Refresher) RunOnce(ctx context.Context) (model.PortfolioSummary, error) {
	props, err := r.store.ListProperties(ctx)
	if err != nil {
		return model.PortfolioSummary{}, fmt.Errorf("list properties: %w", err)
	}

	s := portfolio.Summarize(props)
	metrics.PortfolioProperties.Set(float64(s.ActiveProperties))
	metrics.PortfolioValue.WithLabelValues("upb").Set(s.TotalUPB.InexactFloat64())
	metrics.PortfolioValue.WithLabelValues("bpo").Set(s.TotalBPO.InexactFloat64())
	metrics.PortfolioValue.WithLabelValues("strike_price").Set(s.TotalStrikePrice.InexactFloat64())
	metrics.PortfolioDistressed.WithLabelValues("foreclosure").Set(float64(s.Foreclosures))
	metrics.PortfolioDistressed.WithLabelValues("bankruptcy").Set(float64(s.Bankruptcies))

	slog.Debug("portfolio refreshed", "properties", s.TotalProperties, "total_bpo", s.TotalBPO.String())
	return s, nil
}
