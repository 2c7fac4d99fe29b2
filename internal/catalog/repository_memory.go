package catalog

import (
	"context"
	"sort"
	"strings"
)

// InMemoryRepository is a fixture catalog with zero external state.
type InMemoryRepository struct {
	ingredients []Ingredient
	dietaries   []Dietary
	err         error
}

func NewInMemoryRepository(ingredients ...Ingredient) *InMemoryRepository {
	r := &InMemoryRepository{ingredients: ingredients}
	r.deriveDietaries()
	return r
}

func (r *InMemoryRepository) deriveDietaries() {
	r.dietaries = nil

	seen := map[string]bool{}
	for _, ing := range r.ingredients {
		for _, d := range ing.Dietaries {
			key := strings.ToLower(d)
			if seen[key] {
				continue
			}
			seen[key] = true
			r.dietaries = append(r.dietaries, Dietary{
				ID:   int64(len(r.dietaries) + 1),
				Name: d,
			})
		}
	}
	sort.Slice(r.dietaries, func(a, b int) bool {
		return strings.ToLower(r.dietaries[a].Name) < strings.ToLower(r.dietaries[b].Name)
	})
}

// FailWith makes every read return err, to simulate an unreachable store.
func (r *InMemoryRepository) FailWith(err error) *InMemoryRepository {
	r.err = err
	return r
}

func (r *InMemoryRepository) ListIngredients(ctx context.Context) ([]Ingredient, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make([]Ingredient, len(r.ingredients))
	copy(out, r.ingredients)
	return out, nil
}

func (r *InMemoryRepository) ListIngredientsByDietary(
	ctx context.Context,
	dietary string,
) ([]Ingredient, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []Ingredient
	for _, ing := range r.ingredients {
		if ing.HasDietary(dietary) {
			out = append(out, ing)
		}
	}
	return out, nil
}

func (r *InMemoryRepository) ListDietaries(ctx context.Context) ([]Dietary, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make([]Dietary, len(r.dietaries))
	copy(out, r.dietaries)
	return out, nil
}

// SaveIngredient is not safe for use alongside concurrent reads.
func (r *InMemoryRepository) SaveIngredient(ctx context.Context, ing Ingredient) error {
	if r.err != nil {
		return r.err
	}
	defer r.deriveDietaries()

	key := normalizeName(ing.Name)
	for i, existing := range r.ingredients {
		if normalizeName(existing.Name) == key {
			r.ingredients[i] = ing
			return nil
		}
	}
	r.ingredients = append(r.ingredients, ing)
	return nil
}
