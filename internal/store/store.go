// Package store defines the persistence interface for the deal engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/dealdesk/deal-engine/internal/model"
)

var (
	// ErrNotFound is returned when the requested record does not exist
	// or is not visible to the caller.
	ErrNotFound = errors.New("store: not found")

	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("store: duplicate")
)

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer.
type Store interface {
	// --- Saved deals ---

	// CreateSavedDeal persists a user's analyzed deal.
	CreateSavedDeal(ctx context.Context, deal *model.SavedDeal) error

	// ListSavedDeals returns a user's deals, newest first.
	ListSavedDeals(ctx context.Context, userID string) ([]model.SavedDeal, error)

	// GetSavedDeal retrieves a deal owned by userID. Deals of other users
	// are reported as ErrNotFound.
	GetSavedDeal(ctx context.Context, userID, id string) (*model.SavedDeal, error)

	// DeleteSavedDeal removes a deal owned by userID.
	DeleteSavedDeal(ctx context.Context, userID, id string) error

	// --- Properties ---

	// UpsertProperties inserts or updates a batch keyed by PropertyID and
	// returns the number of rows written.
	UpsertProperties(ctx context.Context, batch []model.Property) (int, error)

	// ListProperties returns active properties, newest first.
	ListProperties(ctx context.Context) ([]model.Property, error)

	// GetProperty retrieves a property by its business key.
	GetProperty(ctx context.Context, propertyID string) (*model.Property, error)

	// --- Investor funnel ---

	// CreateInvestorLead records a lead. Emails are unique.
	CreateInvestorLead(ctx context.Context, lead *model.InvestorLead) error

	// RecordDeposit marks the lead with the given email (case-insensitive)
	// as having paid its deposit. ErrNotFound when no lead matches.
	RecordDeposit(ctx context.Context, email string, amount decimal.Decimal) (*model.InvestorLead, error)
}
