package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// numerics are read as text so no precision is lost on the way to decimal
const selectIngredients = `
	SELECT
		i.id,
		i.name,
		i.price_per_100g::text,
		i.allergen,
		i.energy_kj::text,
		i.protein::text,
		i.fat::text,
		i.carbs::text,
		i.fiber::text,
		COALESCE(
			array_agg(d.name ORDER BY d.name) FILTER (WHERE d.name IS NOT NULL),
			'{}'
		)
	FROM ingredients i
	LEFT JOIN ingredient_dietaries idt ON idt.ingredient_id = i.id
	LEFT JOIN dietaries d ON d.id = idt.dietary_id
`

// --------------------------------------------------
// LIST ALL
// --------------------------------------------------
func (r *PostgresRepository) ListIngredients(ctx context.Context) ([]Ingredient, error) {
	rows, err := r.db.Query(ctx, selectIngredients+`
		GROUP BY i.id
		ORDER BY i.name
	`)
	if err != nil {
		return nil, fmt.Errorf("query ingredients: %w", err)
	}
	return scanIngredients(rows)
}

// --------------------------------------------------
// LIST BY DIETARY (iexact, distinct)
// --------------------------------------------------
func (r *PostgresRepository) ListIngredientsByDietary(
	ctx context.Context,
	dietary string,
) ([]Ingredient, error) {

	rows, err := r.db.Query(ctx, selectIngredients+`
		WHERE EXISTS (
			SELECT 1
			FROM ingredient_dietaries x
			JOIN dietaries y ON y.id = x.dietary_id
			WHERE x.ingredient_id = i.id
			  AND lower(y.name) = lower($1)
		)
		GROUP BY i.id
		ORDER BY i.name
	`, dietary)
	if err != nil {
		return nil, fmt.Errorf("query ingredients for %q: %w", dietary, err)
	}
	return scanIngredients(rows)
}

func (r *PostgresRepository) ListDietaries(ctx context.Context) ([]Dietary, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, description
		FROM dietaries
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("query dietaries: %w", err)
	}
	defer rows.Close()

	var out []Dietary
	for rows.Next() {
		var d Dietary
		if err := rows.Scan(&d.ID, &d.Name, &d.Description); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanIngredients(rows pgx.Rows) ([]Ingredient, error) {
	defer rows.Close()

	var out []Ingredient
	for rows.Next() {
		var (
			ing      Ingredient
			allergen string
			price    string
			energy   string
			protein  string
			fat      string
			carbs    string
			fiber    string
		)
		if err := rows.Scan(
			&ing.ID,
			&ing.Name,
			&price,
			&allergen,
			&energy,
			&protein,
			&fat,
			&carbs,
			&fiber,
			&ing.Dietaries,
		); err != nil {
			return nil, err
		}

		if err := parseFacts(&ing, allergen, price, energy, protein, fat, carbs, fiber); err != nil {
			return nil, err
		}
		out = append(out, ing)
	}

	return out, rows.Err()
}

// parseFacts fills the decimal columns shared by the SQL repositories.
func parseFacts(ing *Ingredient, allergen string, values ...string) error {
	targets := []*decimal.Decimal{
		&ing.PricePer100g,
		&ing.EnergyKJ,
		&ing.Protein,
		&ing.Fat,
		&ing.Carbs,
		&ing.Fiber,
	}
	for i, raw := range values {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("ingredient %q: bad numeric %q: %w", ing.Name, raw, err)
		}
		*targets[i] = d
	}

	a, err := ParseAllergen(allergen)
	if err != nil {
		return fmt.Errorf("ingredient %q: %w", ing.Name, err)
	}
	ing.Allergen = a
	return nil
}

// --------------------------------------------------
// UPSERT (import only)
// --------------------------------------------------
func (r *PostgresRepository) SaveIngredient(ctx context.Context, ing Ingredient) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO ingredients (name, price_per_100g, allergen, energy_kj, protein, fat, carbs, fiber)
		VALUES ($1, $2::numeric, $3, $4::numeric, $5::numeric, $6::numeric, $7::numeric, $8::numeric)
		ON CONFLICT ((lower(name))) DO UPDATE SET
			price_per_100g = EXCLUDED.price_per_100g,
			allergen       = EXCLUDED.allergen,
			energy_kj      = EXCLUDED.energy_kj,
			protein        = EXCLUDED.protein,
			fat            = EXCLUDED.fat,
			carbs          = EXCLUDED.carbs,
			fiber          = EXCLUDED.fiber
		RETURNING id
	`,
		ing.Name,
		ing.PricePer100g.String(),
		string(ing.Allergen),
		ing.EnergyKJ.String(),
		ing.Protein.String(),
		ing.Fat.String(),
		ing.Carbs.String(),
		ing.Fiber.String(),
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("upsert ingredient: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM ingredient_dietaries WHERE ingredient_id = $1`, id); err != nil {
		return err
	}

	for _, tag := range ing.Dietaries {
		var dietaryID int64
		err := tx.QueryRow(ctx, `
			INSERT INTO dietaries (name) VALUES ($1)
			ON CONFLICT ((lower(name))) DO UPDATE SET name = dietaries.name
			RETURNING id
		`, tag).Scan(&dietaryID)
		if err != nil {
			return fmt.Errorf("upsert dietary %q: %w", tag, err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO ingredient_dietaries (ingredient_id, dietary_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, id, dietaryID); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
