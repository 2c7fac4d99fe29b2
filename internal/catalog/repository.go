package catalog

import "context"

// Repository is the read-only view over the ingredient store.
// The engine never writes through it.
type Repository interface {
	ListIngredients(ctx context.Context) ([]Ingredient, error)

	// Ingredients carrying dietary (case-insensitive), deduplicated.
	ListIngredientsByDietary(ctx context.Context, dietary string) ([]Ingredient, error)

	ListDietaries(ctx context.Context) ([]Dietary, error)
}

// Writer seeds or updates a store. Used by the import command, never by
// the engine.
type Writer interface {
	SaveIngredient(ctx context.Context, ing Ingredient) error
}
