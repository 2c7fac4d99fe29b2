package menu

import (
	"sort"

	"kaimenu/internal/catalog"
	"kaimenu/internal/nutrition"
)

// MealSummary is a stored meal with everything derived from the catalog.
type MealSummary struct {
	ID          int64              `json:"id"`
	Name        string             `json:"meal_name"`
	Description string             `json:"description"`
	Dietary     string             `json:"dietary"`
	Ingredients []string           `json:"ingredient_names"`
	Items       []nutrition.Item   `json:"items"`
	Allergens   []catalog.Allergen `json:"allergens"`
	Totals      nutrition.Totals   `json:"totals"`
}

// Summarize recomputes totals and allergens from the current catalog.
// Allergens are distinct codes in sorted order, never nil.
func Summarize(lookup nutrition.Lookup, meal Meal) (MealSummary, error) {
	totals, err := nutrition.Aggregate(lookup, meal.Items)
	if err != nil {
		return MealSummary{}, err
	}

	names := make([]string, 0, len(meal.Items))
	allergens := []catalog.Allergen{}
	seen := map[catalog.Allergen]bool{}

	for _, it := range meal.Items {
		ing, _ := lookup.Lookup(it.Name)
		names = append(names, ing.Name)

		if ing.Allergen == catalog.AllergenNone || seen[ing.Allergen] {
			continue
		}
		seen[ing.Allergen] = true
		allergens = append(allergens, ing.Allergen)
	}
	sort.Slice(allergens, func(a, b int) bool { return allergens[a] < allergens[b] })

	items := make([]nutrition.Item, len(meal.Items))
	copy(items, meal.Items)

	return MealSummary{
		ID:          meal.ID,
		Name:        meal.Name,
		Description: meal.Description,
		Dietary:     meal.Dietary,
		Ingredients: names,
		Items:       items,
		Allergens:   allergens,
		Totals:      totals,
	}, nil
}
