package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/dealdesk/deal-engine/internal/model"
)

// activePropertiesKey holds the serialized active property listing.
const activePropertiesKey = "properties:active"

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and invalidate the cache; reads
// check Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) CreateSavedDeal(ctx context.Context, d *model.SavedDeal) error {
	if err := s.primary.CreateSavedDeal(ctx, d); err != nil {
		return err
	}
	s.rdb.Del(ctx, savedDealsKey(d.UserID))
	return nil
}

func (s *CachedStore) DeleteSavedDeal(ctx context.Context, userID, id string) error {
	if err := s.primary.DeleteSavedDeal(ctx, userID, id); err != nil {
		return err
	}
	s.rdb.Del(ctx, savedDealsKey(userID))
	return nil
}

func (s *CachedStore) UpsertProperties(ctx context.Context, batch []model.Property) (int, error) {
	n, err := s.primary.UpsertProperties(ctx, batch)
	if err != nil {
		return n, err
	}
	// Invalidate the listing and every touched record; next read re-populates.
	keys := make([]string, 0, len(batch)+1)
	keys = append(keys, activePropertiesKey)
	for _, p := range batch {
		keys = append(keys, propertyKey(p.PropertyID))
	}
	s.rdb.Del(ctx, keys...)
	return n, nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) ListSavedDeals(ctx context.Context, userID string) ([]model.SavedDeal, error) {
	data, err := s.rdb.Get(ctx, savedDealsKey(userID)).Bytes()
	if err == nil {
		var deals []model.SavedDeal
		if json.Unmarshal(data, &deals) == nil {
			return deals, nil
		}
	}

	// Cache miss.
	deals, err := s.primary.ListSavedDeals(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.set(ctx, savedDealsKey(userID), deals)
	return deals, nil
}

func (s *CachedStore) ListProperties(ctx context.Context) ([]model.Property, error) {
	data, err := s.rdb.Get(ctx, activePropertiesKey).Bytes()
	if err == nil {
		var props []model.Property
		if json.Unmarshal(data, &props) == nil {
			return props, nil
		}
	}

	props, err := s.primary.ListProperties(ctx)
	if err != nil {
		return nil, err
	}
	s.set(ctx, activePropertiesKey, props)
	return props, nil
}

func (s *CachedStore) GetProperty(ctx context.Context, propertyID string) (*model.Property, error) {
	data, err := s.rdb.Get(ctx, propertyKey(propertyID)).Bytes()
	if err == nil {
		var p model.Property
		if json.Unmarshal(data, &p) == nil {
			return &p, nil
		}
	}

	p, err := s.primary.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	s.set(ctx, propertyKey(propertyID), p)
	return p, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) GetSavedDeal(ctx context.Context, userID, id string) (*model.SavedDeal, error) {
	return s.primary.GetSavedDeal(ctx, userID, id)
}

func (s *CachedStore) CreateInvestorLead(ctx context.Context, lead *model.InvestorLead) error {
	return s.primary.CreateInvestorLead(ctx, lead)
}

func (s *CachedStore) RecordDeposit(ctx context.Context, email string, amount decimal.Decimal) (*model.InvestorLead, error) {
	return s.primary.RecordDeposit(ctx, email, amount)
}

// --- Cache helpers ---

func (s *CachedStore) set(ctx context.Context, key string, v interface{}) {
	if data, err := json.Marshal(v); err == nil {
		s.rdb.Set(ctx, key, data, s.ttl)
	}
}

func savedDealsKey(uid string) string { return fmt.Sprintf("saved_deals:%s", uid) }
func propertyKey(id string) string    { return fmt.Sprintf("property:%s", id) }
