package service

import (
	"strconv"
	"strings"
	"time"

	"pantry/internal/domain"
)

func validateOwner(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return invalid("owner_id", "must be set")
	}
	return nil
}

func validateGroup(c domain.Category, s domain.Subcategory) error {
	if !domain.ValidPair(c, s) {
		return invalid("subcategory", string(s)+" is not a subcategory of "+string(c))
	}
	return nil
}

func validateName(name string) (string, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		return "", invalid("name", "must not be empty")
	}
	return n, nil
}

// ParseQuantity accepts the raw text of the quantity field
func ParseQuantity(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, invalid("quantity", "must not be empty")
	}
	q, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, invalid("quantity", "must be a whole number")
	}
	return validateQuantity(q)
}

func validateQuantity(q int64) (int64, error) {
	if q < 0 {
		return 0, invalid("quantity", "must not be negative")
	}
	return q, nil
}

func validateStatus(st domain.ItemStatus) (domain.ItemStatus, error) {
	if st == "" {
		return domain.StatusInStock, nil
	}
	if !st.Valid() {
		return "", invalid("status", "must be \"In Stock\" or \"Out of Stock\"")
	}
	return st, nil
}

func (s *InventoryService) parseExpiry(raw string) (*domain.Date, error) {
	r := strings.TrimSpace(raw)
	if r == "" {
		return nil, nil
	}
	d, err := domain.ParseDate(r)
	if err != nil {
		return nil, invalid("expiry_date", "must be a calendar date YYYY-MM-DD")
	}
	if err := s.checkExpiry(d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *InventoryService) checkExpiry(d domain.Date) error {
	if s.futureOnly && d.Before(domain.DateOf(s.now())) {
		return invalid("expiry_date", "must not be in the past")
	}
	return nil
}

// validateDraft checks a draft in a fixed order, first failure wins
func (s *InventoryService) validateDraft(d domain.Draft) (domain.NewItem, error) {
	name, err := validateName(d.Name)
	if err != nil {
		return domain.NewItem{}, err
	}
	q, err := ParseQuantity(d.Quantity)
	if err != nil {
		return domain.NewItem{}, err
	}
	exp, err := s.parseExpiry(d.ExpiryDate)
	if err != nil {
		return domain.NewItem{}, err
	}
	st, err := validateStatus(d.Status)
	if err != nil {
		return domain.NewItem{}, err
	}
	return domain.NewItem{
		Name:       name,
		Quantity:   q,
		Status:     st,
		ExpiryDate: exp,
		Barcode:    strings.TrimSpace(d.Barcode),
	}, nil
}

func (s *InventoryService) validatePatch(p domain.ItemPatch) (domain.ItemPatch, error) {
	if p.TouchesImmutable() {
		return p, invalid("patch", "id, owner, category and subcategory cannot be changed")
	}
	if p.Empty() {
		return p, invalid("patch", "nothing to update")
	}
	if p.Name != nil {
		n, err := validateName(*p.Name)
		if err != nil {
			return p, err
		}
		p.Name = &n
	}
	if p.Quantity != nil {
		if _, err := validateQuantity(*p.Quantity); err != nil {
			return p, err
		}
	}
	if p.Status != nil && !p.Status.Valid() {
		return p, invalid("status", "must be \"In Stock\" or \"Out of Stock\"")
	}
	if p.ExpiryDate != nil {
		if err := s.checkExpiry(*p.ExpiryDate); err != nil {
			return p, err
		}
	}
	return p, nil
}

func systemNow() time.Time { return time.Now() }
