package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"pantry/internal/domain"
)

// MemoryStore in-memory хранилище позиций всех пользователей
type MemoryStore struct {
	mu      sync.RWMutex
	now     func() time.Time
	itemsBy map[string]domain.Item
}

// MemoryOption настройка MemoryStore
type MemoryOption func(*MemoryStore)

// WithMemoryClock подменяет часы, используется в тестах
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) { m.now = now }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		now:     time.Now,
		itemsBy: make(map[string]domain.Item),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Ensure interfaces
var _ ItemRepository = (*MemoryStore)(nil)

func (m *MemoryStore) Create(ctx context.Context, ownerID string, category domain.Category, sub domain.Subcategory, it domain.NewItem) (*domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, persistenceErr("create", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	item := domain.Item{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Category:    category,
		Subcategory: sub,
		Name:        it.Name,
		Quantity:    it.Quantity,
		Status:      it.Status,
		Barcode:     it.Barcode,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if it.ExpiryDate != nil {
		d := *it.ExpiryDate
		item.ExpiryDate = &d
	}
	m.itemsBy[item.ID] = item
	return copyItem(item), nil
}

func (m *MemoryStore) ListBy(ctx context.Context, ownerID string, category domain.Category, sub domain.Subcategory) ([]domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, persistenceErr("list", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Item, 0)
	for _, it := range m.itemsBy {
		if it.OwnerID != ownerID || it.Category != category || it.Subcategory != sub {
			continue
		}
		out = append(out, *copyItem(it))
	}
	return out, nil
}

func (m *MemoryStore) Get(ctx context.Context, ownerID, itemID string) (*domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, persistenceErr("get", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, err := m.owned(ownerID, itemID)
	if err != nil {
		return nil, err
	}
	return copyItem(it), nil
}

func (m *MemoryStore) Update(ctx context.Context, ownerID, itemID string, patch domain.ItemPatch) (*domain.Item, error) {
	if patch.TouchesImmutable() {
		return nil, ErrInvalidField
	}
	if err := ctx.Err(); err != nil {
		return nil, persistenceErr("update", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	it, err := m.owned(ownerID, itemID)
	if err != nil {
		return nil, err
	}
	updated := patch.Apply(it)
	updated.UpdatedAt = nextUpdatedAt(m.now().UTC(), it.UpdatedAt)
	m.itemsBy[itemID] = updated
	return copyItem(updated), nil
}

func (m *MemoryStore) Delete(ctx context.Context, ownerID, itemID string) (*domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, persistenceErr("delete", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	it, err := m.owned(ownerID, itemID)
	if err != nil {
		return nil, err
	}
	delete(m.itemsBy, itemID)
	return copyItem(it), nil
}

// owned must be called with the lock held
func (m *MemoryStore) owned(ownerID, itemID string) (domain.Item, error) {
	it, ok := m.itemsBy[itemID]
	if !ok {
		return domain.Item{}, ErrNotFound
	}
	if it.OwnerID != ownerID {
		return domain.Item{}, ErrForbidden
	}
	return it, nil
}

// return copy, expiry pointer included
func copyItem(it domain.Item) *domain.Item {
	cp := it
	if it.ExpiryDate != nil {
		d := *it.ExpiryDate
		cp.ExpiryDate = &d
	}
	return &cp
}
