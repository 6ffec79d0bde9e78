package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dealdesk/deal-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu         sync.RWMutex
	deals      map[string]*model.SavedDeal
	properties map[string]*model.Property // keyed by PropertyID
	leads      map[string]*model.InvestorLead
	seq        int64 // insertion order tiebreak for equal timestamps
	order      map[string]int64
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		deals:      make(map[string]*model.SavedDeal),
		properties: make(map[string]*model.Property),
		leads:      make(map[string]*model.InvestorLead),
		order:      make(map[string]int64),
	}
}

func (s *MemoryStore) next(key string) {
	s.seq++
	s.order[key] = s.seq
}

func (s *MemoryStore) CreateSavedDeal(_ context.Context, d *model.SavedDeal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if _, exists := s.deals[d.ID]; exists {
		return fmt.Errorf("saved deal %s: %w", d.ID, ErrDuplicate)
	}
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	// Store a copy to avoid external mutation.
	copy := *d
	s.deals[d.ID] = &copy
	s.next("deal:" + d.ID)
	return nil
}

func (s *MemoryStore) ListSavedDeals(_ context.Context, userID string) ([]model.SavedDeal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	deals := make([]model.SavedDeal, 0)
	for _, d := range s.deals {
		if d.UserID == userID {
			deals = append(deals, *d)
		}
	}
	sort.Slice(deals, func(i, j int) bool {
		if !deals[i].CreatedAt.Equal(deals[j].CreatedAt) {
			return deals[i].CreatedAt.After(deals[j].CreatedAt)
		}
		return s.order["deal:"+deals[i].ID] > s.order["deal:"+deals[j].ID]
	})
	return deals, nil
}

func (s *MemoryStore) GetSavedDeal(_ context.Context, userID, id string) (*model.SavedDeal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.deals[id]
	if !ok || d.UserID != userID {
		return nil, fmt.Errorf("saved deal %s: %w", id, ErrNotFound)
	}
	copy := *d
	return &copy, nil
}

func (s *MemoryStore) DeleteSavedDeal(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.deals[id]
	if !ok || d.UserID != userID {
		return fmt.Errorf("saved deal %s: %w", id, ErrNotFound)
	}
	delete(s.deals, id)
	delete(s.order, "deal:"+id)
	return nil
}

func (s *MemoryStore) UpsertProperties(_ context.Context, batch []model.Property) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A rejected batch writes nothing.
	for i := range batch {
		if batch[i].PropertyID == "" {
			return 0, fmt.Errorf("upsert property at index %d: property_id is required", i)
		}
	}

	now := time.Now().UTC()
	for i := range batch {
		p := batch[i]
		if existing, ok := s.properties[p.PropertyID]; ok {
			p.ID = existing.ID
			p.CreatedAt = existing.CreatedAt
		} else {
			if p.ID == "" {
				p.ID = uuid.New().String()
			}
			if p.CreatedAt.IsZero() {
				p.CreatedAt = now
			}
			s.next("property:" + p.PropertyID)
		}
		p.UpdatedAt = now
		s.properties[p.PropertyID] = &p
	}
	return len(batch), nil
}

func (s *MemoryStore) ListProperties(_ context.Context) ([]model.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	props := make([]model.Property, 0, len(s.properties))
	for _, p := range s.properties {
		if p.IsActive {
			props = append(props, *p)
		}
	}
	sort.Slice(props, func(i, j int) bool {
		if !props[i].CreatedAt.Equal(props[j].CreatedAt) {
			return props[i].CreatedAt.After(props[j].CreatedAt)
		}
		return s.order["property:"+props[i].PropertyID] > s.order["property:"+props[j].PropertyID]
	})
	return props, nil
}

func (s *MemoryStore) GetProperty(_ context.Context, propertyID string) (*model.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.properties[propertyID]
	if !ok {
		return nil, fmt.Errorf("property %s: %w", propertyID, ErrNotFound)
	}
	copy := *p
	return &copy, nil
}

func (s *MemoryStore) RecordDeposit(_ context.Context, email string, amount decimal.Decimal) (*model.InvestorLead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lead, ok := s.leads[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, fmt.Errorf("investor lead %s: %w", email, ErrNotFound)
	}
	now := time.Now().UTC()
	lead.DepositSubmitted = true
	lead.DepositAmount = decimal.NewNullDecimal(amount)
	lead.DepositDate = &now

	copy := *lead
	return &copy, nil
}

func (s *MemoryStore) CreateInvestorLead(_ context.Context, lead *model.InvestorLead) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(lead.Email))
	if _, exists := s.leads[key]; exists {
		return fmt.Errorf("investor lead %s: %w", lead.Email, ErrDuplicate)
	}
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now().UTC()
	}
	copy := *lead
	s.leads[key] = &copy
	return nil
}
