package menu

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"kaimenu/internal/nutrition"
)

const pgUniqueViolation = "23505"

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// --------------------------------------------------
// CREATE (meal + line items, ATOMIC)
// --------------------------------------------------
func (r *PostgresRepository) Create(ctx context.Context, meal *Meal) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO meals (name, description, dietary)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, meal.Name, meal.Description, meal.Dietary).Scan(&meal.ID, &meal.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrMealExists
		}
		return fmt.Errorf("insert meal: %w", err)
	}

	if err := insertPgItems(ctx, tx, meal); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// --------------------------------------------------
// UPDATE (meal row + replace line items, ATOMIC)
// --------------------------------------------------
func (r *PostgresRepository) Update(ctx context.Context, meal *Meal) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		UPDATE meals
		SET name = $2, description = $3, dietary = $4
		WHERE id = $1
		RETURNING created_at
	`, meal.ID, meal.Name, meal.Description, meal.Dietary).Scan(&meal.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrMealNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrMealExists
		}
		return fmt.Errorf("update meal %d: %w", meal.ID, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM recipe_ingredients WHERE meal_id = $1`, meal.ID); err != nil {
		return fmt.Errorf("clear line items of meal %d: %w", meal.ID, err)
	}
	if err := insertPgItems(ctx, tx, meal); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// insertPgItems writes line items in order, resolving names case-insensitively.
func insertPgItems(ctx context.Context, tx pgx.Tx, meal *Meal) error {
	for pos, it := range meal.Items {
		cmd, err := tx.Exec(ctx, `
			INSERT INTO recipe_ingredients (meal_id, ingredient_id, quantity_g, position)
			SELECT $1, i.id, $3::numeric, $4
			FROM ingredients i
			WHERE lower(i.name) = lower($2)
		`, meal.ID, it.Name, it.QuantityG.String(), pos)
		if err != nil {
			return fmt.Errorf("insert line item %s: %w", it.Name, err)
		}
		if cmd.RowsAffected() == 0 {
			return &nutrition.IngredientNotFoundError{Name: it.Name}
		}
	}
	return nil
}

// --------------------------------------------------
// GET
// --------------------------------------------------
func (r *PostgresRepository) Get(ctx context.Context, id int64) (*Meal, error) {
	var m Meal

	err := r.db.QueryRow(ctx, `
		SELECT id, name, description, dietary, created_at
		FROM meals
		WHERE id = $1
	`, id).Scan(&m.ID, &m.Name, &m.Description, &m.Dietary, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMealNotFound
		}
		return nil, err
	}

	items, err := r.items(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	m.Items = items[id]

	return &m, nil
}

// --------------------------------------------------
// LIST
// --------------------------------------------------
func (r *PostgresRepository) List(ctx context.Context) ([]Meal, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, description, dietary, created_at
		FROM meals
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query meals: %w", err)
	}
	defer rows.Close()

	var (
		meals []Meal
		ids   []int64
	)
	for rows.Next() {
		var m Meal
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.Dietary, &m.CreatedAt); err != nil {
			return nil, err
		}
		meals = append(meals, m)
		ids = append(ids, m.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	items, err := r.items(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range meals {
		meals[i].Items = items[meals[i].ID]
	}

	return meals, nil
}

// --------------------------------------------------
// DELETE (line items cascade)
// --------------------------------------------------
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM meals WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrMealNotFound
	}
	return nil
}

func (r *PostgresRepository) items(ctx context.Context, mealIDs []int64) (map[int64][]nutrition.Item, error) {
	out := make(map[int64][]nutrition.Item, len(mealIDs))
	if len(mealIDs) == 0 {
		return out, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT ri.meal_id, i.name, ri.quantity_g::text
		FROM recipe_ingredients ri
		JOIN ingredients i ON i.id = ri.ingredient_id
		WHERE ri.meal_id = ANY($1)
		ORDER BY ri.meal_id, ri.position
	`, mealIDs)
	if err != nil {
		return nil, fmt.Errorf("query line items: %w", err)
	}
	defer rows.Close()

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
