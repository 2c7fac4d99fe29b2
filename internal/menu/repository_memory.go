package menu

import (
	"context"
	"strings"
	"sync"
	"time"

	"kaimenu/internal/nutrition"
)

type InMemoryRepository struct {
	mu     sync.RWMutex
	meals  map[int64]Meal
	nextID int64
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		meals:  make(map[int64]Meal),
		nextID: 1,
	}
}

func (r *InMemoryRepository) Create(ctx context.Context, meal *Meal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.meals {
		if strings.EqualFold(m.Name, meal.Name) {
			return ErrMealExists
		}
	}

	meal.ID = r.nextID
	meal.CreatedAt = time.Now().UTC()
	r.nextID++

	r.meals[meal.ID] = cloneMeal(*meal)
	return nil
}

func (r *InMemoryRepository) Get(ctx context.Context, id int64) (*Meal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.meals[id]
	if !ok {
		return nil, ErrMealNotFound
	}
	out := cloneMeal(m)
	return &out, nil
}

func (r *InMemoryRepository) List(ctx context.Context) ([]Meal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Meal, 0, len(r.meals))
	for id := int64(1); id < r.nextID; id++ {
		if m, ok := r.meals[id]; ok {
			out = append(out, cloneMeal(m))
		}
	}
	return out, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, meal *Meal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.meals[meal.ID]
	if !ok {
		return ErrMealNotFound
	}
	for id, m := range r.meals {
		if id != meal.ID && strings.EqualFold(m.Name, meal.Name) {
			return ErrMealExists
		}
	}

	meal.CreatedAt = prev.CreatedAt
	r.meals[meal.ID] = cloneMeal(*meal)
	return nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.meals[id]; !ok {
		return ErrMealNotFound
	}
	delete(r.meals, id)
	return nil
}

func cloneMeal(m Meal) Meal {
	items := make([]nutrition.Item, len(m.Items))
	copy(items, m.Items)
	m.Items = items
	return m
}
