package menu

import (
	"context"
	"errors"
)

var (
	ErrMealNotFound = errors.New("meal not found")
	ErrMealExists   = errors.New("meal name already taken")
	ErrInvalidMeal  = errors.New("invalid meal")
)

// Repository stores saved meals. Line items keep their order.
type Repository interface {
	Create(ctx context.Context, meal *Meal) error
	Get(ctx context.Context, id int64) (*Meal, error)
	List(ctx context.Context) ([]Meal, error)
	// Update replaces name, description, dietary and line items of
	// meal.ID. CreatedAt is kept and written back into meal.
	Update(ctx context.Context, meal *Meal) error
	Delete(ctx context.Context, id int64) error
}
