package importer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dealdesk/deal-engine/internal/model"
)

// DefaultBatchSize is the number of rows sent per upsert.
const DefaultBatchSize = 50

// Row defaults for columns the sheet leaves blank.
const (
	DefaultSource    = "Data Import"
	DefaultState     = "NY"
	DefaultDealStage = "Active"
)

// Upserter persists a batch of properties keyed by property_id and returns
// the number of rows written.
type Upserter interface {
	UpsertProperties(ctx context.Context, batch []model.Property) (int, error)
}

// Result summarizes an import. Row numbers in Errors are 1-based over the
// non-blank data rows.
type Result struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

// Importer maps sheet rows onto properties and upserts them in batches.
type Importer struct {
	store     Upserter
	batchSize int
	now       func() time.Time
}

// New creates an importer. A non-positive batchSize uses DefaultBatchSize.
func New(store Upserter, batchSize int) *Importer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Importer{store: store, batchSize: batchSize, now: time.Now}
}

// Import writes every valid row of sheet. Rows missing address, city or
// zip code are rejected individually; a failing batch marks all of its
// remaining rows failed and the import continues with the next batch.
// The returned error is non-nil only for an invalid mapping or a
// cancelled context.
func (im *Importer) Import(ctx context.Context, sheet *Sheet, mapping Mapping, userID string) (Result, error) {
	if err := mapping.Validate(); err != nil {
		return Result{}, err
	}

	res := Result{Errors: make([]string, 0)}
	stamp := im.now().UnixMilli()

	for start := 0; start < len(sheet.Rows); start += im.batchSize {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		end := min(start+im.batchSize, len(sheet.Rows))

		batch := make([]model.Property, 0, end-start)
		for i := start; i < end; i++ {
			p := im.mapRow(sheet.Record(i), mapping, userID, stamp, i)
			if p.Address == "" || p.City == "" || p.ZipCode == "" {
				res.Failed++
				res.Errors = append(res.Errors,
					fmt.Sprintf("Row %d: Missing required fields (address, city, or zip_code)", i+1))
				continue
			}
			batch = append(batch, p)
		}
		if len(batch) == 0 {
			continue
		}

		n, err := im.store.UpsertProperties(ctx, batch)
		if err != nil {
			slog.Warn("import batch failed", "start_row", start+1, "rows", len(batch), "error", err)
			res.Failed += len(batch)
			res.Errors = append(res.Errors, fmt.Sprintf("Batch starting at row %d: %v", start+1, err))
			continue
		}
		res.Success += n
	}
	return res, nil
}

func (im *Importer) mapRow(rec map[string]string, mapping Mapping, userID string, stamp int64, index int) model.Property {
	p := model.Property{
		DealStage: DefaultDealStage,
		IsActive:  true,
		CreatedBy: userID,
	}
	for source, target := range mapping {
		raw, ok := rec[source]
		if !ok {
			continue
		}
		c := columnIndex[target]
		if v := ParseValue(raw, c.kind); v != nil {
			c.set(&p, v)
		}
	}

	if p.PropertyID == "" {
		p.PropertyID = fmt.Sprintf("IMPORT-%d-%d", stamp, index)
	}
	if p.Source == "" {
		p.Source = DefaultSource
	}
	if p.State == "" {
		p.State = DefaultState
	}
	if p.DealStage == "" {
		p.DealStage = DefaultDealStage
	}
	return p
}
