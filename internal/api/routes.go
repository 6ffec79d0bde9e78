package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Mount registers the /api/v1 routes on r. requireAuth guards the
// per-user endpoints (saved deals, import, export).
func (s *Service) Mount(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for real-time deal and import events.
		if s.wsHub != nil {
			r.Get("/ws", s.wsHub.HandleWS)
		}

		// Underwriting.
		r.Post("/analyze", s.Analyze)

		// Property book.
		r.Get("/properties", s.ListProperties)
		r.Get("/properties/{propertyID}", s.GetProperty)
		r.Get("/portfolio/summary", s.PortfolioSummary)
		r.Get("/streetview", s.StreetView)

		// Investor funnel.
		r.Post("/investors/qualify", s.QualifyInvestor)
		r.Post("/investors/projection", s.ProjectInvestment)
		r.Post("/investors/deposits", s.RecordDeposit)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/deals", s.ListDeals)
			r.Post("/deals", s.SaveDeal)
			r.Get("/deals/{dealID}", s.GetDeal)
			r.Delete("/deals/{dealID}", s.DeleteDeal)

			r.Post("/properties/import", s.ImportProperties)
			r.Get("/properties/export", s.ExportProperties)
		})
	})
}
