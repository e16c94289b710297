package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantry/internal/domain"
)

// stalledClock returns the same instant until advanced
type stalledClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStalledClock() *stalledClock {
	return &stalledClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *stalledClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *stalledClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type storeFactory func(t *testing.T, now func() time.Time) ItemRepository

func ptr[T any](v T) *T { return &v }

func tomatoes() domain.NewItem {
	d := domain.Date{Year: 2026, Month: time.April, Day: 2}
	return domain.NewItem{Name: "Tomatoes", Quantity: 5, Status: domain.StatusInStock, ExpiryDate: &d}
}

func runStoreContract(t *testing.T, newStore storeFactory) {
	t.Run("create then list by group", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, time.Now)

		created, err := s.Create(ctx, "alice", domain.CategoryVeg, domain.SubVegetables, tomatoes())
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)
		assert.Equal(t, created.CreatedAt, created.UpdatedAt)

		_, err = s.Create(ctx, "alice", domain.CategoryVeg, domain.SubFruits, domain.NewItem{Name: "Apples", Quantity: 2, Status: domain.StatusInStock})
		require.NoError(t, err)
		_, err = s.Create(ctx, "bob", domain.CategoryVeg, domain.SubVegetables, domain.NewItem{Name: "Onion", Quantity: 1, Status: domain.StatusInStock})
		require.NoError(t, err)

		list, err := s.ListBy(ctx, "alice", domain.CategoryVeg, domain.SubVegetables)
		require.NoError(t, err)
		require.Len(t, list, 1)
		got := list[0]
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, "alice", got.OwnerID)
		assert.Equal(t, "Tomatoes", got.Name)
		assert.Equal(t, int64(5), got.Quantity)
		assert.Equal(t, domain.StatusInStock, got.Status)
		require.NotNil(t, got.ExpiryDate)
		assert.Equal(t, "2026-04-02", got.ExpiryDate.String())
		assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("empty group is not an error", func(t *testing.T) {
		s := newStore(t, time.Now)
		list, err := s.ListBy(context.Background(), "alice", domain.CategoryNonVeg, domain.SubFish)
		require.NoError(t, err)
		assert.NotNil(t, list)
		assert.Empty(t, list)
	})

	t.Run("ids are unique across owners", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, time.Now)
		seen := map[string]bool{}
		for _, owner := range []string{"alice", "bob", "alice", "carol"} {
			it, err := s.Create(ctx, owner, domain.CategoryNonVeg, domain.SubEggs, domain.NewItem{Name: "Eggs", Quantity: 12, Status: domain.StatusInStock})
			require.NoError(t, err)
			assert.False(t, seen[it.ID], "duplicate id %s", it.ID)
			seen[it.ID] = true
		}
	})

	t.Run("update bumps updated_at even with a stalled clock", func(t *testing.T) {
		ctx := context.Background()
		clock := newStalledClock()
		s := newStore(t, clock.Now)
		created, err := s.Create(ctx, "alice", domain.CategoryVeg, domain.SubVegetables, tomatoes())
		require.NoError(t, err)

		up, err := s.Update(ctx, "alice", created.ID, domain.ItemPatch{Quantity: ptr(int64(9))})
		require.NoError(t, err)
		assert.Equal(t, int64(9), up.Quantity)
		assert.True(t, up.UpdatedAt.After(created.UpdatedAt))
		assert.True(t, up.CreatedAt.Equal(created.CreatedAt))
		assert.Equal(t, domain.CategoryVeg, up.Category)
		assert.Equal(t, domain.SubVegetables, up.Subcategory)

		clock.Advance(time.Minute)
		up2, err := s.Update(ctx, "alice", created.ID, domain.ItemPatch{Status: ptr(domain.StatusOutOfStock), ClearExpiry: true})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusOutOfStock, up2.Status)
		assert.Nil(t, up2.ExpiryDate)
		assert.True(t, up2.UpdatedAt.After(up.UpdatedAt))

		got, err := s.Get(ctx, "alice", created.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(9), got.Quantity)
		assert.Equal(t, domain.StatusOutOfStock, got.Status)
		assert.Nil(t, got.ExpiryDate)
		assert.True(t, got.UpdatedAt.Equal(up2.UpdatedAt))
	})

	t.Run("immutable fields are rejected", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, time.Now)
		created, err := s.Create(ctx, "alice", domain.CategoryVeg, domain.SubVegetables, tomatoes())
		require.NoError(t, err)

		patches := []domain.ItemPatch{
			{Category: ptr(domain.CategoryNonVeg)},
			{Subcategory: ptr(domain.SubFruits), Quantity: ptr(int64(1))},
			{OwnerID: ptr("bob")},
			{ID: ptr("other")},
		}
		for _, p := range patches {
			_, err := s.Update(ctx, "alice", created.ID, p)
			assert.ErrorIs(t, err, ErrInvalidField)
		}
		got, err := s.Get(ctx, "alice", created.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(5), got.Quantity)
		assert.True(t, got.UpdatedAt.Equal(created.UpdatedAt))
	})

	t.Run("foreign owner cannot read or write", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, time.Now)
		created, err := s.Create(ctx, "alice", domain.CategoryVeg, domain.SubVegetables, tomatoes())
		require.NoError(t, err)

		_, err = s.Get(ctx, "mallory", created.ID)
		assert.ErrorIs(t, err, ErrForbidden)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = s.Update(ctx, "mallory", created.ID, domain.ItemPatch{Quantity: ptr(int64(0))})
		assert.ErrorIs(t, err, ErrNotFound)

		removed, err := s.Delete(ctx, "mallory", created.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, removed)

		got, err := s.Get(ctx, "alice", created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.Name, got.Name)
		assert.Equal(t, created.Quantity, got.Quantity)
		assert.Equal(t, created.Status, got.Status)
		assert.True(t, created.UpdatedAt.Equal(got.UpdatedAt))
	})

	t.Run("delete is not idempotent", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, time.Now)
		created, err := s.Create(ctx, "alice", domain.CategoryVeg, domain.SubSpices, domain.NewItem{Name: "Turmeric", Quantity: 1, Status: domain.StatusInStock})
		require.NoError(t, err)

		removed, err := s.Delete(ctx, "alice", created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, removed.ID)
		assert.Equal(t, "Turmeric", removed.Name)
		assert.Equal(t, domain.CategoryVeg, removed.Category)
		assert.Equal(t, domain.SubSpices, removed.Subcategory)

		_, err = s.Delete(ctx, "alice", created.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.False(t, errors.Is(err, ErrForbidden))

		_, err = s.Get(ctx, "alice", created.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.Update(ctx, "alice", created.ID, domain.ItemPatch{Quantity: ptr(int64(3))})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("cancelled context fails without writing", func(t *testing.T) {
		s := newStore(t, time.Now)
		created, err := s.Create(context.Background(), "alice", domain.CategoryVeg, domain.SubVegetables, tomatoes())
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err = s.Update(ctx, "alice", created.ID, domain.ItemPatch{Quantity: ptr(int64(1))})
		assert.ErrorIs(t, err, ErrPersistence)
		assert.ErrorIs(t, err, context.Canceled)

		_, err = s.Create(ctx, "alice", domain.CategoryVeg, domain.SubVegetables, tomatoes())
		assert.ErrorIs(t, err, ErrPersistence)

		got, err := s.Get(context.Background(), "alice", created.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(5), got.Quantity)

		list, err := s.ListBy(context.Background(), "alice", domain.CategoryVeg, domain.SubVegetables)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("concurrent updates to different items", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, time.Now)
		ids := make([]string, 8)
		for i := range ids {
			it, err := s.Create(ctx, "alice", domain.CategoryNonVeg, domain.SubChicken, domain.NewItem{Name: "Chicken", Quantity: 1, Status: domain.StatusInStock})
			require.NoError(t, err)
			ids[i] = it.ID
		}
		var wg sync.WaitGroup
		for i, id := range ids {
			wg.Add(1)
			go func(q int64, id string) {
				defer wg.Done()
				_, err := s.Update(ctx, "alice", id, domain.ItemPatch{Quantity: ptr(q)})
				assert.NoError(t, err)
			}(int64(i), id)
		}
		wg.Wait()
		for i, id := range ids {
			got, err := s.Get(ctx, "alice", id)
			require.NoError(t, err)
			assert.Equal(t, int64(i), got.Quantity)
		}
	})
}
