package domain

// Category верхний уровень группировки
type Category string

// Subcategory группа внутри категории
type Subcategory string

const (
	CategoryVeg    Category = "Veg"
	CategoryNonVeg Category = "Non-Veg"

	SubVegetables Subcategory = "Vegetables"
	SubFruits     Subcategory = "Fruits"
	SubSpices     Subcategory = "Spices"
	SubChicken    Subcategory = "Chicken"
	SubFish       Subcategory = "Fish"
	SubEggs       Subcategory = "Eggs"
)

// Group категория вместе с её подкатегориями, в порядке показа
type Group struct {
	Category      Category      `json:"category"`
	Subcategories []Subcategory `json:"subcategories"`
}

var taxonomy = []Group{
	{Category: CategoryVeg, Subcategories: []Subcategory{SubVegetables, SubFruits, SubSpices}},
	{Category: CategoryNonVeg, Subcategories: []Subcategory{SubChicken, SubFish, SubEggs}},
}

// Taxonomy возвращает копию закрытого набора категорий
func Taxonomy() []Group {
	out := make([]Group, 0, len(taxonomy))
	for _, g := range taxonomy {
		subs := make([]Subcategory, len(g.Subcategories))
		copy(subs, g.Subcategories)
		out = append(out, Group{Category: g.Category, Subcategories: subs})
	}
	return out
}

// ValidPair сообщает, принадлежит ли подкатегория категории
func ValidPair(c Category, s Subcategory) bool {
	for _, g := range taxonomy {
		if g.Category != c {
			continue
		}
		for _, sub := range g.Subcategories {
			if sub == s {
				return true
			}
		}
	}
	return false
}
