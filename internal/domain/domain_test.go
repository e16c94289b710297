package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2030-01-15")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if d != (Date{Year: 2030, Month: time.January, Day: 15}) {
		t.Fatalf("unexpected date %+v", d)
	}
	if d.String() != "2030-01-15" {
		t.Fatalf("round trip gave %q", d.String())
	}

	for _, bad := range []string{"", "2030-1-15", "15/01/2030", "2030-02-30", "2030-13-01"} {
		if _, err := ParseDate(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestDateBefore(t *testing.T) {
	a := Date{Year: 2026, Month: time.May, Day: 9}
	b := Date{Year: 2026, Month: time.May, Day: 10}
	if !a.Before(b) || b.Before(a) || a.Before(a) {
		t.Fatalf("ordering broken for %v and %v", a, b)
	}
	if !(Date{Year: 2025, Month: time.December, Day: 31}).Before(Date{Year: 2026, Month: time.January, Day: 1}) {
		t.Fatalf("year boundary")
	}
}

func TestDateOf_UsesLocation(t *testing.T) {
	late := time.Date(2026, 5, 10, 23, 30, 0, 0, time.UTC)
	if got := DateOf(late).String(); got != "2026-05-10" {
		t.Fatalf("utc date %s", got)
	}
	if got := DateOf(late.In(time.FixedZone("UTC+3", 3*3600))).String(); got != "2026-05-11" {
		t.Fatalf("zoned date %s", got)
	}
}

func TestDateJSON(t *testing.T) {
	it := Item{ID: "1", ExpiryDate: &Date{Year: 2030, Month: time.March, Day: 2}}
	b, err := json.Marshal(it)
	if err != nil {
		t.Fatal(err)
	}
	var back Item
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if back.ExpiryDate == nil || *back.ExpiryDate != *it.ExpiryDate {
		t.Fatalf("expiry lost: %s", b)
	}
	if !strings.Contains(string(b), `"expiry_date":"2030-03-02"`) {
		t.Fatalf("expiry not written as a calendar date: %s", b)
	}

	var d Date
	if err := json.Unmarshal([]byte(`"03/02/2030"`), &d); err == nil {
		t.Fatalf("expected error for non ISO date")
	}
}

func TestTaxonomy(t *testing.T) {
	if !ValidPair(CategoryVeg, SubSpices) || !ValidPair(CategoryNonVeg, SubFish) {
		t.Fatalf("expected valid pairs")
	}
	if ValidPair(CategoryVeg, SubEggs) || ValidPair("Dairy", SubFruits) {
		t.Fatalf("expected invalid pairs")
	}

	groups := Taxonomy()
	groups[0].Subcategories[0] = "Mushrooms"
	if Taxonomy()[0].Subcategories[0] != SubVegetables {
		t.Fatalf("taxonomy must not be mutable through the returned copy")
	}
}

func TestStatusToggle(t *testing.T) {
	if StatusInStock.Toggled() != StatusOutOfStock || StatusOutOfStock.Toggled() != StatusInStock {
		t.Fatalf("toggle broken")
	}
	if ItemStatus("Low").Valid() || ItemStatus("").Valid() {
		t.Fatalf("unexpected valid status")
	}
}

func TestItemPatch(t *testing.T) {
	exp := Date{Year: 2030, Month: time.June, Day: 1}
	it := Item{ID: "x", Name: "Eggs", Quantity: 6, Status: StatusInStock, ExpiryDate: &exp}

	name := "Duck Eggs"
	q := int64(0)
	got := ItemPatch{Name: &name, Quantity: &q}.Apply(it)
	if got.Name != name || got.Quantity != 0 || got.Status != StatusInStock || got.ExpiryDate == nil {
		t.Fatalf("unexpected result %+v", got)
	}
	if it.Name != "Eggs" {
		t.Fatalf("apply mutated the original")
	}

	cleared := ItemPatch{ClearExpiry: true}.Apply(it)
	if cleared.ExpiryDate != nil {
		t.Fatalf("expiry not cleared")
	}

	if !(ItemPatch{}).Empty() || (ItemPatch{ClearExpiry: true}).Empty() {
		t.Fatalf("Empty broken")
	}
	cat := CategoryNonVeg
	if !(ItemPatch{Category: &cat}).TouchesImmutable() || (ItemPatch{Name: &name}).TouchesImmutable() {
		t.Fatalf("TouchesImmutable broken")
	}
}
