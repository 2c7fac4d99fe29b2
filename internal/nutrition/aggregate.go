package nutrition

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"kaimenu/internal/catalog"
)

// OutputPlaces is the rounding applied to totals at the output boundary.
const OutputPlaces = 2

var ErrIngredientNotFound = errors.New("ingredient not found")

// IngredientNotFoundError means a line item names something outside the catalog.
type IngredientNotFoundError struct {
	Name string
}

func (e *IngredientNotFoundError) Error() string {
	return fmt.Sprintf("Ingredient not found: %s", e.Name)
}

func (e *IngredientNotFoundError) Is(target error) bool {
	return target == ErrIngredientNotFound
}

// Lookup resolves an ingredient by case-insensitive exact name.
type Lookup interface {
	Lookup(name string) (catalog.Ingredient, bool)
}

// Item is one (ingredient, grams) pair.
type Item struct {
	Name      string          `json:"name"`
	QuantityG decimal.Decimal `json:"quantity_g"`
}

// Totals are the per-menu sums, rounded half-even to 2 places.
type Totals struct {
	Weight   decimal.Decimal `json:"total_g"`
	EnergyKJ decimal.Decimal `json:"total_energy_kj"`
	Protein  decimal.Decimal `json:"total_protein"`
	Fat      decimal.Decimal `json:"total_fat"`
	Carbs    decimal.Decimal `json:"total_carbs"`
	Fiber    decimal.Decimal `json:"total_fiber"`
	Cost     decimal.Decimal `json:"total_cost"`
}

// MarshalJSON emits every total as a number with exactly two decimals.
func (t Totals) MarshalJSON() ([]byte, error) {
	fixed := func(d decimal.Decimal) json.Number {
		return json.Number(d.StringFixedBank(OutputPlaces))
	}
	return json.Marshal(struct {
		Weight   json.Number `json:"total_g"`
		EnergyKJ json.Number `json:"total_energy_kj"`
		Protein  json.Number `json:"total_protein"`
		Fat      json.Number `json:"total_fat"`
		Carbs    json.Number `json:"total_carbs"`
		Fiber    json.Number `json:"total_fiber"`
		Cost     json.Number `json:"total_cost"`
	}{
		Weight:   fixed(t.Weight),
		EnergyKJ: fixed(t.EnergyKJ),
		Protein:  fixed(t.Protein),
		Fat:      fixed(t.Fat),
		Carbs:    fixed(t.Carbs),
		Fiber:    fixed(t.Fiber),
		Cost:     fixed(t.Cost),
	})
}

// Get returns the total for f.
func (t Totals) Get(f Field) decimal.Decimal {
	switch f {
	case Energy:
		return t.EnergyKJ
	case Protein:
		return t.Protein
	case Fat:
		return t.Fat
	case Carbs:
		return t.Carbs
	case Fiber:
		return t.Fiber
	case Price:
		return t.Cost
	default:
		return decimal.Zero
	}
}

func (t *Totals) set(f Field, v decimal.Decimal) {
	switch f {
	case Energy:
		t.EnergyKJ = v
	case Protein:
		t.Protein = v
	case Fat:
		t.Fat = v
	case Carbs:
		t.Carbs = v
	case Fiber:
		t.Fiber = v
	case Price:
		t.Cost = v
	}
}

// TotalWeight sums line-item quantities. It needs no catalog.
func TotalWeight(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.QuantityG)
	}
	return total
}

// Aggregate converts line items into menu totals.
// An unresolvable name fails the whole menu with *IngredientNotFoundError.
func Aggregate(lookup Lookup, items []Item) (Totals, error) {
	sums := make([]decimal.Decimal, len(Fields))
	for i := range sums {
		sums[i] = decimal.Zero
	}

	for _, it := range items {
		ing, ok := lookup.Lookup(it.Name)
		if !ok {
			return Totals{}, &IngredientNotFoundError{Name: it.Name}
		}
		for i, f := range Fields {
			// per-100g facts: shift by two places instead of dividing
			sums[i] = sums[i].Add(f.Per100g(ing).Mul(it.QuantityG).Shift(-2))
		}
	}

	totals := Totals{Weight: TotalWeight(items)}
	for i, f := range Fields {
		totals.set(f, sums[i].RoundBank(OutputPlaces))
	}
	return totals, nil
}
