package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"pantry/internal/domain"
)

// Cached запоминает ответы другого резолвера, и найденные, и ненайденные.
// Размер ограничен, старые записи вытесняются, каждая живёт не дольше ttl.
// Ошибки инфраструктуры не кешируются.
type Cached struct {
	inner   Resolver
	entries *expirable.LRU[string, cacheEntry]
}

type cacheEntry struct {
	entry domain.CatalogEntry
	found bool
}

var _ Resolver = (*Cached)(nil)

// NewCached оборачивает резолвер кешем на size записей; size 0 снимает ограничение
func NewCached(inner Resolver, size int, ttl time.Duration) *Cached {
	return &Cached{
		inner:   inner,
		entries: expirable.NewLRU[string, cacheEntry](size, nil, ttl),
	}
}

func (c *Cached) Resolve(ctx context.Context, barcode string) (domain.CatalogEntry, error) {
	code := strings.TrimSpace(barcode)
	if ce, ok := c.entries.Get(code); ok {
		if !ce.found {
			return domain.CatalogEntry{}, ErrNotFound
		}
		return ce.entry, nil
	}

	e, err := c.inner.Resolve(ctx, code)
	switch {
	case err == nil:
		c.entries.Add(code, cacheEntry{entry: e, found: true})
		return e, nil
	case errors.Is(err, ErrNotFound):
		c.entries.Add(code, cacheEntry{})
		return domain.CatalogEntry{}, ErrNotFound
	default:
		return domain.CatalogEntry{}, err
	}
}

// Len число записей, ещё не вытесненных и не истёкших
func (c *Cached) Len() int { return c.entries.Len() }
