package catalog

import (
	"fmt"
	"strings"
)

// PromptBlock renders one "name, price_per_100g, energy_kj" line per ingredient.
//
//	Brown Rice, 0.50, 1500
//	Chicken Breast, 1.20, 1100
func PromptBlock(ingredients []Ingredient) string {
	lines := make([]string, 0, len(ingredients))
	for _, ing := range ingredients {
		lines = append(lines, fmt.Sprintf(
			"%s, %s, %s",
			ing.Name,
			ing.PricePer100g.RoundBank(2).StringFixed(2),
			ing.EnergyKJ.RoundBank(0).StringFixed(0),
		))
	}
	return strings.Join(lines, "\n")
}
