package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pantry/internal/domain"
)

var (
	// ErrNotFound возвращается, когда позиция не найдена
	ErrNotFound = errors.New("not found")
	// ErrForbidden позиция существует, но принадлежит другому пользователю.
	// Оборачивает ErrNotFound, чтобы снаружи их нельзя было различить.
	ErrForbidden = fmt.Errorf("%w: owned by another user", ErrNotFound)
	// ErrInvalidField попытка изменить id, владельца, категорию или подкатегорию
	ErrInvalidField = errors.New("field is immutable")
	// ErrPersistence хранилище недоступно или отклонило операцию
	ErrPersistence = errors.New("persistence failure")
)

// ItemRepository интерфейс хранилища позиций, разделённого по владельцам
type ItemRepository interface {
	Create(ctx context.Context, ownerID string, category domain.Category, sub domain.Subcategory, it domain.NewItem) (*domain.Item, error)
	ListBy(ctx context.Context, ownerID string, category domain.Category, sub domain.Subcategory) ([]domain.Item, error)
	Get(ctx context.Context, ownerID, itemID string) (*domain.Item, error)
	Update(ctx context.Context, ownerID, itemID string, patch domain.ItemPatch) (*domain.Item, error)
	// Delete удаляет позицию и возвращает её последнее состояние
	Delete(ctx context.Context, ownerID, itemID string) (*domain.Item, error)
}

func persistenceErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

// nextUpdatedAt keeps UpdatedAt strictly increasing even if the clock stalls or goes back
func nextUpdatedAt(now, prev time.Time) time.Time {
	if !now.After(prev) {
		return prev.Add(time.Nanosecond)
	}
	return now
}
