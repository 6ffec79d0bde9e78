package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dealdesk/deal-engine/internal/model"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func newDeal(userID, address string) *model.SavedDeal {
	return &model.SavedDeal{
		UserID:       userID,
		Address:      address,
		PropertyType: "2-Family",
		Units:        2,
		BPOValue:     d(438220),
		StrikePrice:  d(250000),
		RehabCosts:   d(75000),
		HoldPeriod:   18,
		ExitStrategy: "Retail Sale",
		SalePrice:    d(425000),
	}
}

// --- Saved deals ---

func TestMemory_SavedDealLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	deal := newDeal("user-1", "12 Main St")
	if err := s.CreateSavedDeal(ctx, deal); err != nil {
		t.Fatalf("create: %v", err)
	}
	if deal.ID == "" {
		t.Fatal("expected ID to be assigned")
	}
	if deal.CreatedAt.IsZero() || deal.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}

	got, err := s.GetSavedDeal(ctx, "user-1", deal.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Address != "12 Main St" || !got.StrikePrice.Equal(d(250000)) {
		t.Errorf("unexpected deal: %+v", got)
	}

	if err := s.DeleteSavedDeal(ctx, "user-1", deal.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetSavedDeal(ctx, "user-1", deal.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemory_ListSavedDeals_NewestFirstPerUser(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	first := newDeal("user-1", "first")
	second := newDeal("user-1", "second")
	other := newDeal("user-2", "other")
	for _, deal := range []*model.SavedDeal{first, second, other} {
		if err := s.CreateSavedDeal(ctx, deal); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	deals, err := s.ListSavedDeals(ctx, "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(deals) != 2 {
		t.Fatalf("expected 2 deals for user-1, got %d", len(deals))
	}
	if deals[0].Address != "second" || deals[1].Address != "first" {
		t.Errorf("expected newest first, got %s, %s", deals[0].Address, deals[1].Address)
	}

	empty, err := s.ListSavedDeals(ctx, "nobody")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", empty)
	}
}

func TestMemory_DeleteSavedDeal_OwnerScoped(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	deal := newDeal("owner", "1 Elm St")
	if err := s.CreateSavedDeal(ctx, deal); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := s.DeleteSavedDeal(ctx, "intruder", deal.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for non-owner, got %v", err)
	}
	if _, err := s.GetSavedDeal(ctx, "owner", deal.ID); err != nil {
		t.Errorf("deal should survive a non-owner delete: %v", err)
	}
}

func TestMemory_GetSavedDeal_OwnerScoped(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	deal := newDeal("owner", "1 Elm St")
	if err := s.CreateSavedDeal(ctx, deal); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.GetSavedDeal(ctx, "intruder", deal.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for non-owner, got %v", err)
	}
}

func TestMemory_CreateSavedDeal_CopiesInput(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	deal := newDeal("user-1", "original")
	if err := s.CreateSavedDeal(ctx, deal); err != nil {
		t.Fatalf("create: %v", err)
	}
	deal.Address = "mutated"

	got, _ := s.GetSavedDeal(ctx, "user-1", deal.ID)
	if got.Address != "original" {
		t.Errorf("store should hold a copy, got %s", got.Address)
	}
}

// --- Properties ---

func newProperty(id, city string) model.Property {
	return model.Property{
		PropertyID: id,
		Source:     "Data Import",
		DealStage:  "Active",
		Address:    "1 " + city + " Rd",
		City:       city,
		State:      "NY",
		ZipCode:    "12601",
		IsActive:   true,
		BPO:        decimal.NewNullDecimal(d(200000)),
	}
}

func TestMemory_UpsertProperties_InsertThenUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	n, err := s.UpsertProperties(ctx, []model.Property{
		newProperty("P-1", "Poughkeepsie"),
		newProperty("P-2", "Beacon"),
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 rows written, got %d", n)
	}

	before, err := s.GetProperty(ctx, "P-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	time.Sleep(time.Millisecond)
	updated := newProperty("P-1", "Newburgh")
	if _, err := s.UpsertProperties(ctx, []model.Property{updated}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	after, err := s.GetProperty(ctx, "P-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if after.City != "Newburgh" {
		t.Errorf("expected city to be updated, got %s", after.City)
	}
	if after.ID != before.ID {
		t.Errorf("expected surrogate ID to be kept: %s != %s", after.ID, before.ID)
	}
	if !after.CreatedAt.Equal(before.CreatedAt) {
		t.Error("expected created_at to be kept on update")
	}

	props, _ := s.ListProperties(ctx)
	if len(props) != 2 {
		t.Errorf("update must not duplicate rows, got %d", len(props))
	}
}

func TestMemory_UpsertProperties_RequiresPropertyID(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.UpsertProperties(context.Background(), []model.Property{{City: "Beacon"}})
	if err == nil {
		t.Error("expected error for missing property_id")
	}
}

func TestMemory_UpsertProperties_RejectedBatchWritesNothing(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	batch := []model.Property{newProperty("P-1", "Beacon"), {City: "Newburgh"}}
	if _, err := s.UpsertProperties(ctx, batch); err == nil {
		t.Fatal("expected error for missing property_id")
	}
	if _, err := s.GetProperty(ctx, "P-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("earlier rows must not be written, got %v", err)
	}
}

func TestMemory_ListProperties_ActiveOnly(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	inactive := newProperty("P-2", "Beacon")
	inactive.IsActive = false
	if _, err := s.UpsertProperties(ctx, []model.Property{newProperty("P-1", "Kingston"), inactive}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	props, err := s.ListProperties(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(props) != 1 || props[0].PropertyID != "P-1" {
		t.Errorf("expected only P-1, got %+v", props)
	}
}

func TestMemory_GetProperty_NotFound(t *testing.T) {
	_, err := NewMemoryStore().GetProperty(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// --- Investor funnel ---

func TestMemory_CreateInvestorLead_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	lead := &model.InvestorLead{Name: "A", Email: "lp@example.com", InvestmentAmount: 100000}
	if err := s.CreateInvestorLead(ctx, lead); err != nil {
		t.Fatalf("create: %v", err)
	}
	if lead.ID == "" {
		t.Error("expected ID to be assigned")
	}

	dup := &model.InvestorLead{Name: "B", Email: " LP@Example.com ", InvestmentAmount: 50000}
	if err := s.CreateInvestorLead(ctx, dup); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestMemory_RecordDeposit(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	lead := &model.InvestorLead{Name: "A", Email: "lp@example.com", InvestmentAmount: 100000}
	if err := s.CreateInvestorLead(ctx, lead); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.RecordDeposit(ctx, " LP@Example.COM", decimal.NewFromInt(5000))
	if err != nil {
		t.Fatalf("record deposit: %v", err)
	}
	if got.ID != lead.ID {
		t.Errorf("expected lead %s, got %s", lead.ID, got.ID)
	}
	if !got.DepositSubmitted {
		t.Error("expected deposit_submitted to be set")
	}
	if !got.DepositAmount.Valid || !got.DepositAmount.Decimal.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("expected deposit amount 5000, got %v", got.DepositAmount)
	}
	if got.DepositDate == nil {
		t.Error("expected deposit date")
	}

	if _, err := s.RecordDeposit(ctx, "nobody@example.com", decimal.NewFromInt(5000)); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
