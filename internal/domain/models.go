package domain

import "time"

// ItemStatus статус наличия продукта
type ItemStatus string

const (
	StatusInStock    ItemStatus = "In Stock"
	StatusOutOfStock ItemStatus = "Out of Stock"
)

// Valid сообщает, является ли статус одним из двух допустимых значений
func (s ItemStatus) Valid() bool {
	return s == StatusInStock || s == StatusOutOfStock
}

// Toggled возвращает противоположный статус
func (s ItemStatus) Toggled() ItemStatus {
	if s == StatusInStock {
		return StatusOutOfStock
	}
	return StatusInStock
}

// Item позиция кухонного запаса пользователя
type Item struct {
	ID          string      `json:"id"`
	OwnerID     string      `json:"owner_id"`
	Category    Category    `json:"category"`
	Subcategory Subcategory `json:"subcategory"`
	Name        string      `json:"name"`
	Quantity    int64       `json:"quantity"`
	Status      ItemStatus  `json:"status"`
	ExpiryDate  *Date       `json:"expiry_date"`
	Barcode     string      `json:"barcode,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// NewItem уже провалидированные поля новой позиции; id и отметки времени назначает хранилище
type NewItem struct {
	Name       string
	Quantity   int64
	Status     ItemStatus
	ExpiryDate *Date
	Barcode    string
}

// ItemPatch частичное обновление. Изменяемы только Name, Quantity, Status и ExpiryDate;
// остальные поля нужны, чтобы обнаружить и отклонить попытку их изменить.
type ItemPatch struct {
	Name        *string
	Quantity    *int64
	Status      *ItemStatus
	ExpiryDate  *Date
	ClearExpiry bool

	ID          *string
	OwnerID     *string
	Category    *Category
	Subcategory *Subcategory
}

// TouchesImmutable сообщает, пытается ли патч изменить неизменяемые поля
func (p ItemPatch) TouchesImmutable() bool {
	return p.ID != nil || p.OwnerID != nil || p.Category != nil || p.Subcategory != nil
}

// Empty сообщает, что патч ничего не меняет
func (p ItemPatch) Empty() bool {
	return p.Name == nil && p.Quantity == nil && p.Status == nil && p.ExpiryDate == nil && !p.ClearExpiry
}

// Apply переносит изменяемые поля патча на копию позиции
func (p ItemPatch) Apply(it Item) Item {
	if p.Name != nil {
		it.Name = *p.Name
	}
	if p.Quantity != nil {
		it.Quantity = *p.Quantity
	}
	if p.Status != nil {
		it.Status = *p.Status
	}
	if p.ClearExpiry {
		it.ExpiryDate = nil
	}
	if p.ExpiryDate != nil {
		d := *p.ExpiryDate
		it.ExpiryDate = &d
	}
	return it
}

// Draft непроверенный черновик позиции в том виде, в каком его ввёл пользователь
type Draft struct {
	Name       string     `json:"name"`
	Quantity   string     `json:"quantity"`
	Status     ItemStatus `json:"status"`
	ExpiryDate string     `json:"expiry_date"`
	Barcode    string     `json:"barcode,omitempty"`
}

// CatalogEntry справочная запись, найденная по штрихкоду
type CatalogEntry struct {
	Barcode     string      `json:"barcode" yaml:"barcode"`
	Name        string      `json:"name" yaml:"name"`
	Category    Category    `json:"category" yaml:"category"`
	Subcategory Subcategory `json:"subcategory" yaml:"subcategory"`
}
