package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// StandardDietary is the sentinel tag meaning "no filtering".
const StandardDietary = "Standard"

// IsStandard reports whether tag is absent or the Standard sentinel.
func IsStandard(tag string) bool {
	tag = strings.TrimSpace(tag)
	return tag == "" || strings.EqualFold(tag, StandardDietary)
}

// Allergen is one of the fixed allergen codes, or AllergenNone.
type Allergen string

const (
	AllergenNone      Allergen = ""
	AllergenPeanut    Allergen = "peanut"
	AllergenSoy       Allergen = "soy"
	AllergenMilk      Allergen = "milk"
	AllergenEgg       Allergen = "egg"
	AllergenWheat     Allergen = "wheat"
	AllergenGluten    Allergen = "gluten"
	AllergenTreeNut   Allergen = "tree-nut"
	AllergenAlmond    Allergen = "almond"
	AllergenCashew    Allergen = "cashew"
	AllergenPistachio Allergen = "pistachio"
	AllergenWalnut    Allergen = "walnut"
	AllergenSesame    Allergen = "sesame"
	AllergenFish      Allergen = "fish"
	AllergenShellfish Allergen = "shellfish"
)

var KnownAllergens = []Allergen{
	AllergenPeanut,
	AllergenSoy,
	AllergenMilk,
	AllergenEgg,
	AllergenWheat,
	AllergenGluten,
	AllergenTreeNut,
	AllergenAlmond,
	AllergenCashew,
	AllergenPistachio,
	AllergenWalnut,
	AllergenSesame,
	AllergenFish,
	AllergenShellfish,
}

var ErrUnknownAllergen = errors.New("unknown allergen")

// ParseAllergen normalises a stored allergen code. Empty means none.
func ParseAllergen(code string) (Allergen, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return AllergenNone, nil
	}
	for _, a := range KnownAllergens {
		if string(a) == code {
			return a, nil
		}
	}
	return AllergenNone, fmt.Errorf("%w: %q", ErrUnknownAllergen, code)
}

// Dietary is a named dietary restriction category.
type Dietary struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Ingredient holds per-100g price and nutrition facts.
type Ingredient struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	PricePer100g decimal.Decimal `json:"price_per_100g"`
	Allergen     Allergen        `json:"allergen"`
	EnergyKJ     decimal.Decimal `json:"energy_kj"`
	Protein      decimal.Decimal `json:"protein"`
	Fat          decimal.Decimal `json:"fat"`
	Carbs        decimal.Decimal `json:"carbs"`
	Fiber        decimal.Decimal `json:"fiber"`
	Dietaries    []string        `json:"dietaries"`
}

// MarshalJSON writes price and nutrition facts as numbers with two decimals.
func (i Ingredient) MarshalJSON() ([]byte, error) {
	fixed := func(d decimal.Decimal) json.Number {
		return json.Number(d.StringFixed(2))
	}
	return json.Marshal(struct {
		ID           int64       `json:"id"`
		Name         string      `json:"name"`
		PricePer100g json.Number `json:"price_per_100g"`
		Allergen     Allergen    `json:"allergen"`
		EnergyKJ     json.Number `json:"energy_kj"`
		Protein      json.Number `json:"protein"`
		Fat          json.Number `json:"fat"`
		Carbs        json.Number `json:"carbs"`
		Fiber        json.Number `json:"fiber"`
		Dietaries    []string    `json:"dietaries"`
	}{
		ID:           i.ID,
		Name:         i.Name,
		PricePer100g: fixed(i.PricePer100g),
		Allergen:     i.Allergen,
		EnergyKJ:     fixed(i.EnergyKJ),
		Protein:      fixed(i.Protein),
		Fat:          fixed(i.Fat),
		Carbs:        fixed(i.Carbs),
		Fiber:        fixed(i.Fiber),
		Dietaries:    i.Dietaries,
	})
}

// HasDietary reports whether the ingredient carries tag (case-insensitive).
func (i Ingredient) HasDietary(tag string) bool {
	for _, d := range i.Dietaries {
		if strings.EqualFold(d, tag) {
			return true
		}
	}
	return false
}

var ErrInvalidIngredient = errors.New("invalid ingredient")

// Validate checks the catalog invariants for a single entry.
func (i Ingredient) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidIngredient)
	}
	if i.PricePer100g.IsNegative() {
		return fmt.Errorf("%w: %s price_per_100g is negative", ErrInvalidIngredient, i.Name)
	}
	if !i.PricePer100g.Equal(i.PricePer100g.Truncate(2)) {
		return fmt.Errorf("%w: %s price_per_100g has more than 2 decimal places", ErrInvalidIngredient, i.Name)
	}
	facts := map[string]decimal.Decimal{
		"energy_kj": i.EnergyKJ,
		"protein":   i.Protein,
		"fat":       i.Fat,
		"carbs":     i.Carbs,
		"fiber":     i.Fiber,
	}
	for name, v := range facts {
		if v.IsNegative() {
			return fmt.Errorf("%w: %s %s is negative", ErrInvalidIngredient, i.Name, name)
		}
	}
	if _, err := ParseAllergen(string(i.Allergen)); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidIngredient, i.Name, err)
	}
	return nil
}
