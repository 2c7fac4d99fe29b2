package catalog

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// fixtureFile is the YAML shape of a catalog fixture:
//
//	ingredients:
//	  - name: Rice
//	    price_per_100g: "0.50"
//	    energy_kj: "1500"
//	    dietaries: [Vegan, Vegetarian]
type fixtureFile struct {
	Ingredients []fixtureIngredient `yaml:"ingredients"`
}

type fixtureIngredient struct {
	Name         string   `yaml:"name"`
	PricePer100g string   `yaml:"price_per_100g"`
	Allergen     string   `yaml:"allergen"`
	EnergyKJ     string   `yaml:"energy_kj"`
	Protein      string   `yaml:"protein"`
	Fat          string   `yaml:"fat"`
	Carbs        string   `yaml:"carbs"`
	Fiber        string   `yaml:"fiber"`
	Dietaries    []string `yaml:"dietaries"`
}

// LoadFixture reads a YAML catalog into an in-memory repository.
func LoadFixture(path string) (*InMemoryRepository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ParseFixture(data)
}

func ParseFixture(data []byte) (*InMemoryRepository, error) {
	var f fixtureFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unmarshal catalog: %w", err)
	}

	seen := map[string]bool{}
	ingredients := make([]Ingredient, 0, len(f.Ingredients))
	for i, raw := range f.Ingredients {
		ing := Ingredient{
			ID:        int64(i + 1),
			Name:      raw.Name,
			Dietaries: raw.Dietaries,
		}
		if ing.Dietaries == nil {
			ing.Dietaries = []string{}
		}
		if err := parseFacts(
			&ing,
			raw.Allergen,
			orZero(raw.PricePer100g),
			orZero(raw.EnergyKJ),
			orZero(raw.Protein),
			orZero(raw.Fat),
			orZero(raw.Carbs),
			orZero(raw.Fiber),
		); err != nil {
			return nil, err
		}
		if err := ing.Validate(); err != nil {
			return nil, err
		}

		key := normalizeName(ing.Name)
		if seen[key] {
			return nil, fmt.Errorf("%w: duplicate name %q", ErrInvalidIngredient, ing.Name)
		}
		seen[key] = true
		ingredients = append(ingredients, ing)
	}

	return NewInMemoryRepository(ingredients...), nil
}

func orZero(s string) string {
	if s == "" {
		return decimal.Zero.String()
	}
	return s
}
