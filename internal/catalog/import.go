package catalog

import (
	"context"
	"fmt"
)

// Import copies every ingredient of src into dst and returns the count.
// Entries are validated first; one bad entry aborts before any write.
func Import(ctx context.Context, dst Writer, src Repository) (int, error) {
	ingredients, err := src.ListIngredients(ctx)
	if err != nil {
		return 0, fmt.Errorf("read source catalog: %w", err)
	}
	for _, ing := range ingredients {
		if err := ing.Validate(); err != nil {
			return 0, err
		}
	}

	for _, ing := range ingredients {
		if err := dst.SaveIngredient(ctx, ing); err != nil {
			return 0, fmt.Errorf("save %s: %w", ing.Name, err)
		}
	}
	return len(ingredients), nil
}
