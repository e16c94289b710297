package repository

import (
	"context"
	"testing"
	"time"

	"pantry/internal/domain"
)

func TestMemoryStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T, now func() time.Time) ItemRepository {
		return NewMemoryStore(WithMemoryClock(now))
	})
}

func TestMemoryStore_ItemCRUD(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	it, err := store.Create(ctx, "u1", domain.CategoryNonVeg, domain.SubFish, domain.NewItem{Name: "Salmon", Quantity: 2, Status: domain.StatusInStock})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if it.ID == "" {
		t.Fatalf("no id")
	}

	got, err := store.Get(ctx, "u1", it.ID)
	if err != nil || got.ID != it.ID {
		t.Fatalf("get: %v", err)
	}

	name := "Trout"
	if _, err := store.Update(ctx, "u1", it.ID, domain.ItemPatch{Name: &name}); err != nil {
		t.Fatalf("update: %v", err)
	}

	if _, err := store.Delete(ctx, "u1", it.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "u1", it.ID); err == nil {
		t.Fatalf("expected not found")
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	d := domain.Date{Year: 2026, Month: time.May, Day: 1}
	it, err := store.Create(ctx, "u1", domain.CategoryVeg, domain.SubFruits, domain.NewItem{Name: "Mango", Quantity: 3, Status: domain.StatusInStock, ExpiryDate: &d})
	if err != nil {
		t.Fatal(err)
	}

	// mutate what the caller got back
	it.Quantity = 100
	it.ExpiryDate.Day = 30
	d.Day = 15

	got, _ := store.Get(ctx, "u1", it.ID)
	if got.Quantity != 3 {
		t.Fatalf("quantity leaked: %v", got.Quantity)
	}
	if got.ExpiryDate.Day != 1 {
		t.Fatalf("expiry leaked: %v", got.ExpiryDate)
	}
}
