package catalog

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Service is the catalog accessor used by the renderer and the validator.
// Reads fail soft: an unreachable store yields an empty result, never an error.
// Callers must treat empty as "no usable catalog".
type Service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}
}

// IngredientsFor returns the ingredients usable for dietary, ordered by name.
// Standard (or empty) returns the whole catalog.
func (s *Service) IngredientsFor(ctx context.Context, dietary string) []Ingredient {
	var (
		ingredients []Ingredient
		err         error
	)

	if IsStandard(dietary) {
		ingredients, err = s.repo.ListIngredients(ctx)
	} else {
		ingredients, err = s.repo.ListIngredientsByDietary(ctx, strings.TrimSpace(dietary))
	}
	if err != nil {
		s.logger.Warn("[CATALOG] store unreachable, returning empty catalog",
			zap.String("dietary", dietary),
			zap.Error(err),
		)
		return []Ingredient{}
	}

	out := dedupe(ingredients)
	if !IsStandard(dietary) {
		filtered := out[:0]
		for _, ing := range out {
			if ing.HasDietary(dietary) {
				filtered = append(filtered, ing)
			}
		}
		out = filtered
	}
	SortByName(out)
	return out
}

// Snapshot indexes the whole catalog for one validation cycle.
func (s *Service) Snapshot(ctx context.Context) Snapshot {
	return NewSnapshot(s.IngredientsFor(ctx, StandardDietary))
}

func (s *Service) Dietaries(ctx context.Context) ([]Dietary, error) {
	return s.repo.ListDietaries(ctx)
}

func dedupe(ingredients []Ingredient) []Ingredient {
	seen := make(map[string]bool, len(ingredients))
	out := make([]Ingredient, 0, len(ingredients))
	for _, ing := range ingredients {
		key := normalizeName(ing.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ing)
	}
	return out
}
