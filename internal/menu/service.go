package menu

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"kaimenu/internal/catalog"
	"kaimenu/internal/nutrition"
)

// Service validates menus and manages saved meals against the live catalog.
type Service struct {
	repo    Repository
	catalog *catalog.Service
	logger  *zap.Logger
}

func NewService(repo Repository, cat *catalog.Service, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, catalog: cat, logger: logger}
}

// --------------------------------------------------
// Validate one menu (single-menu entry point)
// --------------------------------------------------
func (s *Service) ValidateMenu(
	ctx context.Context,
	items []nutrition.Item,
	limits EntryLimits,
) EntryResult {
	return ValidateMenu(s.catalog.Snapshot(ctx), items, limits)
}

// --------------------------------------------------
// Save meal
// --------------------------------------------------

// SaveMeal stores a candidate. Names are canonicalised to the catalog's
// spelling; an unknown ingredient or bad line item is rejected up front.
func (s *Service) SaveMeal(ctx context.Context, c Candidate) (*MealSummary, error) {
	snap := s.catalog.Snapshot(ctx)
	meal, err := prepareMeal(snap, c)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, &meal); err != nil {
		return nil, err
	}

	s.logger.Info("[MENU] meal saved",
		zap.Int64("meal_id", meal.ID),
		zap.String("name", meal.Name),
		zap.Int("items", len(meal.Items)),
	)

	summary, err := Summarize(snap, meal)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// --------------------------------------------------
// Update meal
// --------------------------------------------------

// UpdateMeal replaces a saved meal with c under the same rules as SaveMeal.
func (s *Service) UpdateMeal(ctx context.Context, id int64, c Candidate) (*MealSummary, error) {
	snap := s.catalog.Snapshot(ctx)
	meal, err := prepareMeal(snap, c)
	if err != nil {
		return nil, err
	}
	meal.ID = id

	if err := s.repo.Update(ctx, &meal); err != nil {
		return nil, err
	}

	s.logger.Info("[MENU] meal updated",
		zap.Int64("meal_id", meal.ID),
		zap.String("name", meal.Name),
		zap.Int("items", len(meal.Items)),
	)

	summary, err := Summarize(snap, meal)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// PatchMeal merges p onto the stored meal and saves it through UpdateMeal.
func (s *Service) PatchMeal(ctx context.Context, id int64, p MealPatch) (*MealSummary, error) {
	meal, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	current := Candidate{
		Name:        meal.Name,
		Description: meal.Description,
		Dietary:     meal.Dietary,
		Items:       meal.Items,
	}
	return s.UpdateMeal(ctx, id, p.Apply(current))
}

func prepareMeal(snap nutrition.Lookup, c Candidate) (Meal, error) {
	if strings.TrimSpace(c.Name) == "" {
		return Meal{}, fmt.Errorf("%w: meal name is required", ErrInvalidMeal)
	}
	if len(c.Items) == 0 {
		return Meal{}, fmt.Errorf("%w: a meal needs at least one ingredient", ErrInvalidMeal)
	}

	ev := &evaluation{candidate: c, lookup: snap}
	if err := checkLineItems(ev); err != nil {
		return Meal{}, err
	}

	meal := MealFromCandidate(c)
	meal.Name = strings.TrimSpace(meal.Name)
	if strings.TrimSpace(meal.Dietary) == "" {
		meal.Dietary = catalog.StandardDietary
	}
	for i, it := range meal.Items {
		ing, ok := snap.Lookup(it.Name)
		if !ok {
			return Meal{}, &nutrition.IngredientNotFoundError{Name: it.Name}
		}
		meal.Items[i].Name = ing.Name
	}
	return meal, nil
}

// --------------------------------------------------
// Read meals
// --------------------------------------------------
func (s *Service) GetMeal(ctx context.Context, id int64) (*MealSummary, error) {
	meal, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	summary, err := Summarize(s.catalog.Snapshot(ctx), *meal)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// ListMeals skips meals whose ingredients left the catalog and logs them.
func (s *Service) ListMeals(ctx context.Context) ([]MealSummary, error) {
	meals, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	snap := s.catalog.Snapshot(ctx)
	out := make([]MealSummary, 0, len(meals))
	for _, m := range meals {
		summary, err := Summarize(snap, m)
		if err != nil {
			s.logger.Warn("[MENU] cannot summarise meal",
				zap.Int64("meal_id", m.ID),
				zap.Error(err),
			)
			continue
		}
		out = append(out, summary)
	}
	return out, nil
}

func (s *Service) DeleteMeal(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
