package tracker

import (
	"sort"
	"strings"
)

// Food is a catalog entry with its energy density.
type Food struct {
	Name        string  `json:"name"`
	KcalPer100g float64 `json:"kcalPer100g"`
}

// foodCatalog is the fixed list the desktop app offered in its food
// picker. Names are kept as displayed.
var foodCatalog = map[string]float64{
	"Яблоко":         52,
	"Банан":          89,
	"Куриная грудка": 165,
	"Рис":            130,
	"Хлеб":           265,
	"Молоко":         42,
	"Гречка":         123,
	"Овсянка":        68,
	"Яйцо":           68,
	"Картофель":      77,
	"Морковь":        41,
	"Огурец":         16,
	"Томаты":         18,
	"Лосось":         208,
	"Авокадо":        160,
}

// Foods returns the catalog sorted by name.
func Foods() []Food {
	out := make([]Food, 0, len(foodCatalog))
	for name, kcal := range foodCatalog {
		out = append(out, Food{Name: name, KcalPer100g: kcal})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LookupFood finds a food by name, ignoring case and surrounding spaces.
func LookupFood(name string) (Food, bool) {
	name = strings.TrimSpace(name)
	for n, kcal := range foodCatalog {
		if strings.EqualFold(n, name) {
			return Food{Name: n, KcalPer100g: kcal}, true
		}
	}
	return Food{}, false
}
