package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dealdesk/deal-engine/internal/auth"
	"github.com/dealdesk/deal-engine/internal/filter"
	"github.com/dealdesk/deal-engine/internal/importer"
	"github.com/dealdesk/deal-engine/internal/metrics"
	"github.com/dealdesk/deal-engine/internal/model"
	"github.com/dealdesk/deal-engine/internal/portfolio"
	"github.com/dealdesk/deal-engine/internal/store"
)

// maxUploadBytes caps spreadsheet uploads.
const maxUploadBytes = 32 << 20

var contentTypes = map[importer.Format]string{
	importer.FormatCSV:  "text/csv",
	importer.FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// PropertyList is the response body for GET /properties.
type PropertyList struct {
	Properties    []model.Property `json:"properties"`
	Count         int              `json:"count"`
	ActiveFilters int              `json:"active_filters"`
}

// ImportResponse is the response body for POST /properties/import.
type ImportResponse struct {
	importer.Result
	Mapping importer.Mapping `json:"mapping"`
}

// PortfolioResponse is the response body for GET /portfolio/summary.
type PortfolioResponse struct {
	Summary  model.PortfolioSummary `json:"summary"`
	Pipeline []model.PipelineStage  `json:"pipeline"`
	Counties []model.CountyExposure `json:"counties"`
}

// ListProperties handles GET /api/v1/properties
func (s *Service) ListProperties(w http.ResponseWriter, r *http.Request) {
	props, f, ok := s.filteredProperties(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, PropertyList{
		Properties:    props,
		Count:         len(props),
		ActiveFilters: f.ActiveCount(),
	})
}

// GetProperty handles GET /api/v1/properties/{propertyID}
func (s *Service) GetProperty(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "propertyID")
	p, err := s.store.GetProperty(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, "property not found", http.StatusNotFound)
			return
		}
		slog.Error("get property failed", "property_id", id, "err", err)
		writeError(w, "failed to load property", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ImportProperties handles POST /api/v1/properties/import. The upload is
// the multipart field "file"; an optional "mapping" field carries a JSON
// object of header -> column that replaces automatic mapping.
func (s *Service) ImportProperties(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, "invalid multipart upload", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	format, err := uploadFormat(r.FormValue("format"), header.Filename)
	if err != nil {
		writeError(w, "file must be .csv or .xlsx", http.StatusBadRequest)
		return
	}

	sheet, err := importer.Read(file, format)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	mapping := importer.AutoMap(sheet.Headers)
	if raw := r.FormValue("mapping"); raw != "" {
		mapping = importer.Mapping{}
		if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
			writeError(w, "mapping must be a JSON object of header to column", http.StatusBadRequest)
			return
		}
	}
	if len(mapping) == 0 {
		writeError(w, "no columns could be mapped", http.StatusBadRequest)
		return
	}

	userID, _ := auth.UserID(r.Context())
	res, err := s.importer.Import(r.Context(), sheet, mapping, userID)
	if err != nil {
		if errors.Is(err, importer.ErrUnknownColumn) {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("import failed", "file", header.Filename, "user_id", userID, "err", err)
		writeError(w, "import failed", http.StatusInternalServerError)
		return
	}

	metrics.ImportRowsTotal.WithLabelValues("success").Add(float64(res.Success))
	metrics.ImportRowsTotal.WithLabelValues("failed").Add(float64(res.Failed))
	metrics.ImportDuration.Observe(time.Since(start).Seconds())

	slog.Info("properties imported",
		"file", header.Filename,
		"user_id", userID,
		"rows", len(sheet.Rows),
		"success", res.Success,
		"failed", res.Failed,
	)

	if res.Success > 0 {
		s.wsHub.Broadcast(Event{
			Type:   EventPropertiesImported,
			UserID: userID,
			Payload: map[string]int{
				"success": res.Success,
				"failed":  res.Failed,
			},
		})
	}
	writeJSON(w, http.StatusOK, ImportResponse{Result: res, Mapping: mapping})
}

// ExportProperties handles GET /api/v1/properties/export?format=csv|xlsx.
// The listing filters apply to the export as well.
func (s *Service) ExportProperties(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("format")
	if raw == "" {
		raw = string(importer.FormatCSV)
	}
	format, err := importer.ParseFormat(raw)
	if err != nil {
		writeError(w, "format must be csv or xlsx", http.StatusBadRequest)
		return
	}

	props, _, ok := s.filteredProperties(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := importer.Export(&buf, props, format); err != nil {
		slog.Error("export failed", "format", format, "err", err)
		writeError(w, "failed to export properties", http.StatusInternalServerError)
		return
	}

	name := fmt.Sprintf("properties-%s.%s", time.Now().UTC().Format("2006-01-02"), format)
	w.Header().Set("Content-Type", contentTypes[format])
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// PortfolioSummary handles GET /api/v1/portfolio/summary
func (s *Service) PortfolioSummary(w http.ResponseWriter, r *http.Request) {
	props, err := s.store.ListProperties(r.Context())
	if err != nil {
		slog.Error("list properties failed", "err", err)
		writeError(w, "failed to load portfolio", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, PortfolioResponse{
		Summary:  portfolio.Summarize(props),
		Pipeline: portfolio.Pipeline(props),
		Counties: portfolio.ByCounty(props),
	})
}

// filteredProperties loads the active book and applies the query filters,
// writing the error response itself when it returns ok == false.
func (s *Service) filteredProperties(w http.ResponseWriter, r *http.Request) ([]model.Property, filter.PropertyFilter, bool) {
	f, err := filter.ParseQuery(r.URL.Query())
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return nil, f, false
	}
	props, err := s.store.ListProperties(r.Context())
	if err != nil {
		slog.Error("list properties failed", "err", err)
		writeError(w, "failed to list properties", http.StatusInternalServerError)
		return nil, f, false
	}
	return f.Apply(props), f, true
}

func uploadFormat(explicit, filename string) (importer.Format, error) {
	if explicit != "" {
		return importer.ParseFormat(explicit)
	}
	return importer.FormatFromFilename(filename)
}
