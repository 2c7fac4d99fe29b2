package menu

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"kaimenu/internal/nutrition"
)

// SQLiteRepository stores meals in the local SQLite file.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, meal *Meal) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	createdAt := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO meals (name, description, dietary, created_at)
		VALUES (?, ?, ?, ?)
	`, meal.Name, meal.Description, meal.Dietary, createdAt.Format(time.RFC3339Nano))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrMealExists
		}
		return fmt.Errorf("insert meal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}

	if err := insertSQLiteItems(ctx, tx, id, meal.Items); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	meal.ID = id
	meal.CreatedAt = createdAt
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, meal *Meal) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE meals
		SET name = ?, description = ?, dietary = ?
		WHERE id = ?
	`, meal.Name, meal.Description, meal.Dietary, meal.ID)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrMealExists
		}
		return fmt.Errorf("update meal %d: %w", meal.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMealNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM recipe_ingredients WHERE meal_id = ?`, meal.ID); err != nil {
		return fmt.Errorf("clear line items of meal %d: %w", meal.ID, err)
	}
	if err := insertSQLiteItems(ctx, tx, meal.ID, meal.Items); err != nil {
		return err
	}

	var createdAt string
	if err := tx.QueryRowContext(ctx, `SELECT created_at FROM meals WHERE id = ?`, meal.ID).Scan(&createdAt); err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return fmt.Errorf("meal %d created_at %q: %w", meal.ID, createdAt, err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	meal.CreatedAt = t
	return nil
}

func insertSQLiteItems(ctx context.Context, tx *sql.Tx, mealID int64, items []nutrition.Item) error {
	for pos, it := range items {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO recipe_ingredients (meal_id, ingredient_id, quantity_g, position)
			SELECT ?, i.id, ?, ?
			FROM ingredients i
			WHERE i.name = ? COLLATE NOCASE
		`, mealID, it.QuantityG.String(), pos, it.Name)
		if err != nil {
			return fmt.Errorf("insert line item %s: %w", it.Name, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &nutrition.IngredientNotFoundError{Name: it.Name}
		}
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id int64) (*Meal, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, dietary, created_at
		FROM meals
		WHERE id = ?
	`, id)

	m, err := scanSQLiteMeal(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMealNotFound
		}
		return nil, err
	}

	items, err := r.items(ctx, `WHERE ri.meal_id = ?`, id)
	if err != nil {
		return nil, err
	}
	m.Items = items[id]
	return &m, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]Meal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, dietary, created_at
		FROM meals
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query meals: %w", err)
	}
	defer rows.Close()

	var meals []Meal
	for rows.Next() {
		m, err := scanSQLiteMeal(rows)
		if err != nil {
			return nil, err
		}
		meals = append(meals, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	items, err := r.items(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range meals {
		meals[i].Items = items[meals[i].ID]
	}
	return meals, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM meals WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMealNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteMeal(row rowScanner) (Meal, error) {
	var (
		m         Meal
		createdAt string
	)
	if err := row.Scan(&m.ID, &m.Name, &m.Description, &m.Dietary, &createdAt); err != nil {
		return Meal{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Meal{}, fmt.Errorf("meal %d created_at %q: %w", m.ID, createdAt, err)
	}
	m.CreatedAt = t
	return m, nil
}

// items loads line items grouped by meal, optionally narrowed by where.
func (r *SQLiteRepository) items(
	ctx context.Context,
	where string,
	args ...any,
) (map[int64][]nutrition.Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ri.meal_id, i.name, CAST(ri.quantity_g AS TEXT)
		FROM recipe_ingredients ri
		JOIN ingredients i ON i.id = ri.ingredient_id
		`+where+`
		ORDER BY ri.meal_id, ri.position
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query line items: %w", err)
	}
	defer rows.Close()

	out := map[int64][]nutrition.Item{}
	for rows.Next() {
		var (
			mealID int64
			name   string
			qty    string
		)
		if err := rows.Scan(&mealID, &name, &qty); err != nil {
			return nil, err
		}
		q, err := decimal.NewFromString(qty)
		if err != nil {
			return nil, fmt.Errorf("line item %s quantity %q: %w", name, qty, err)
		}
		out[mealID] = append(out[mealID], nutrition.Item{Name: name, QuantityG: q})
	}
	return out, rows.Err()
}
