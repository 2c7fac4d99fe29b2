package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// dietary names are joined with the ASCII unit separator
const sqliteTagSep = "\x1f"

// SQLiteRepository reads the catalog from a local SQLite file (modernc driver).
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const sqliteSelectIngredients = `
	SELECT
		i.id,
		i.name,
		CAST(i.price_per_100g AS TEXT),
		i.allergen,
		CAST(i.energy_kj AS TEXT),
		CAST(i.protein AS TEXT),
		CAST(i.fat AS TEXT),
		CAST(i.carbs AS TEXT),
		CAST(i.fiber AS TEXT),
		COALESCE(group_concat(d.name, char(31)), '')
	FROM ingredients i
	LEFT JOIN ingredient_dietaries idt ON idt.ingredient_id = i.id
	LEFT JOIN dietaries d ON d.id = idt.dietary_id
`

func (r *SQLiteRepository) ListIngredients(ctx context.Context) ([]Ingredient, error) {
	rows, err := r.db.QueryContext(ctx, sqliteSelectIngredients+`
		GROUP BY i.id
		ORDER BY i.name COLLATE NOCASE
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query ingredients: %w", err)
	}
	return scanSQLiteIngredients(rows)
}

func (r *SQLiteRepository) ListIngredientsByDietary(
	ctx context.Context,
	dietary string,
) ([]Ingredient, error) {
	rows, err := r.db.QueryContext(ctx, sqliteSelectIngredients+`
		WHERE EXISTS (
			SELECT 1
			FROM ingredient_dietaries x
			JOIN dietaries y ON y.id = x.dietary_id
			WHERE x.ingredient_id = i.id
			  AND lower(y.name) = lower(?)
		)
		GROUP BY i.id
		ORDER BY i.name COLLATE NOCASE
	`, dietary)
	if err != nil {
		return nil, fmt.Errorf("failed to query ingredients for %q: %w", dietary, err)
	}
	return scanSQLiteIngredients(rows)
}

func (r *SQLiteRepository) ListDietaries(ctx context.Context) ([]Dietary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description
		FROM dietaries
		ORDER BY name COLLATE NOCASE
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query dietaries: %w", err)
	}
	defer rows.Close()

	var out []Dietary
	for rows.Next() {
		var d Dietary
		if err := rows.Scan(&d.ID, &d.Name, &d.Description); err != nil {
			return nil, fmt.Errorf("failed to scan dietary: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanSQLiteIngredients(rows *sql.Rows) ([]Ingredient, error) {
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
			tags     string
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
			&tags,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ingredient: %w", err)
		}

		if err := parseFacts(&ing, allergen, price, energy, protein, fat, carbs, fiber); err != nil {
			return nil, err
		}
		ing.Dietaries = []string{}
		if tags != "" {
			ing.Dietaries = strings.Split(tags, sqliteTagSep)
		}
		out = append(out, ing)
	}

	return out, rows.Err()
}

// SaveIngredient upserts by case-insensitive name and replaces its dietary tags.
func (r *SQLiteRepository) SaveIngredient(ctx context.Context, ing Ingredient) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO ingredients (name, price_per_100g, allergen, energy_kj, protein, fat, carbs, fiber)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			price_per_100g = excluded.price_per_100g,
			allergen       = excluded.allergen,
			energy_kj      = excluded.energy_kj,
			protein        = excluded.protein,
			fat            = excluded.fat,
			carbs          = excluded.carbs,
			fiber          = excluded.fiber
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
		return fmt.Errorf("failed to upsert ingredient: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM ingredient_dietaries WHERE ingredient_id = ?`, id); err != nil {
		return err
	}

	for _, tag := range ing.Dietaries {
		var dietaryID int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO dietaries (name) VALUES (?)
			ON CONFLICT (name) DO UPDATE SET name = dietaries.name
			RETURNING id
		`, tag).Scan(&dietaryID)
		if err != nil {
			return fmt.Errorf("failed to upsert dietary %q: %w", tag, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO ingredient_dietaries (ingredient_id, dietary_id)
			VALUES (?, ?)
		`, id, dietaryID); err != nil {
			return err
		}
	}

	return tx.Commit()
}
