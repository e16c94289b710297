// Package catalog сопоставляет отсканированные штрихкоды с данными для новой позиции.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"pantry/internal/domain"
)

// ErrNotFound обычный исход для штрихкода, которого нет в каталоге
var ErrNotFound = errors.New("barcode not in catalog")

// Resolver находит запись каталога по содержимому скана
type Resolver interface {
	Resolve(ctx context.Context, barcode string) (domain.CatalogEntry, error)
}

// Static неизменяемый каталог в памяти, безопасен для конкурентного чтения
type Static struct {
	entries map[string]domain.CatalogEntry
}

var _ Resolver = (*Static)(nil)

// NewStatic собирает каталог и отвергает записи вне таксономии
func NewStatic(entries []domain.CatalogEntry) (*Static, error) {
	s := &Static{entries: make(map[string]domain.CatalogEntry, len(entries))}
	for i, e := range entries {
		code := strings.TrimSpace(e.Barcode)
		if code == "" {
			return nil, fmt.Errorf("catalog entry %d: empty barcode", i)
		}
		if strings.TrimSpace(e.Name) == "" {
			return nil, fmt.Errorf("catalog entry %s: empty name", code)
		}
		if !domain.ValidPair(e.Category, e.Subcategory) {
			return nil, fmt.Errorf("catalog entry %s: unknown group %s/%s", code, e.Category, e.Subcategory)
		}
		if _, dup := s.entries[code]; dup {
			return nil, fmt.Errorf("catalog entry %s: duplicate barcode", code)
		}
		e.Barcode = code
		s.entries[code] = e
	}
	return s, nil
}

// Default встроенный каталог приложения
func Default() *Static {
	s, err := NewStatic(seed)
	if err != nil {
		panic(err)
	}
	return s
}

var seed = []domain.CatalogEntry{
	{Barcode: "9780201379624", Name: "Tomatoes", Category: domain.CategoryVeg, Subcategory: domain.SubVegetables},
	{Barcode: "9780201379625", Name: "Apples", Category: domain.CategoryVeg, Subcategory: domain.SubFruits},
	{Barcode: "9780201379626", Name: "Chicken Breast", Category: domain.CategoryNonVeg, Subcategory: domain.SubChicken},
	{Barcode: "9780201379627", Name: "Eggs", Category: domain.CategoryNonVeg, Subcategory: domain.SubEggs},
	{Barcode: "9780201379628", Name: "Turmeric", Category: domain.CategoryVeg, Subcategory: domain.SubSpices},
}

func (s *Static) Resolve(ctx context.Context, barcode string) (domain.CatalogEntry, error) {
	e, ok := s.entries[strings.TrimSpace(barcode)]
	if !ok {
		return domain.CatalogEntry{}, ErrNotFound
	}
	return e, nil
}

// Len число записей
func (s *Static) Len() int { return len(s.entries) }

type fileFormat struct {
	Entries []domain.CatalogEntry `yaml:"entries"`
}

// LoadFile читает каталог из YAML:
//
//	entries:
//	  - barcode: "9780201379624"
//	    name: Tomatoes
//	    category: Veg
//	    subcategory: Vegetables
func LoadFile(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: reading %s: %w", path, err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("catalog: parsing %s: %w", path, err)
	}
	s, err := NewStatic(f.Entries)
	if err != nil {
		return nil, fmt.Errorf("catalog: %s: %w", path, err)
	}
	return s, nil
}
