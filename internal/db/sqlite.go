package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens (creating if needed) the local database file with
// foreign keys enforced and the schema in place.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// decimals are stored as TEXT and parsed exactly on read
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS dietaries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE COLLATE NOCASE,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS ingredients (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE COLLATE NOCASE,
	price_per_100g TEXT NOT NULL,
	allergen TEXT NOT NULL DEFAULT '',
	energy_kj TEXT NOT NULL,
	protein TEXT NOT NULL DEFAULT '0',
	fat TEXT NOT NULL DEFAULT '0',
	carbs TEXT NOT NULL DEFAULT '0',
	fiber TEXT NOT NULL DEFAULT '0'
);

CREATE TABLE IF NOT EXISTS ingredient_dietaries (
	ingredient_id INTEGER NOT NULL REFERENCES ingredients(id) ON DELETE CASCADE,
	dietary_id INTEGER NOT NULL REFERENCES dietaries(id) ON DELETE CASCADE,
	PRIMARY KEY (ingredient_id, dietary_id)
);

CREATE TABLE IF NOT EXISTS meals (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE COLLATE NOCASE,
	description TEXT NOT NULL DEFAULT '',
	dietary TEXT NOT NULL DEFAULT 'Standard',
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS recipe_ingredients (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	meal_id INTEGER NOT NULL REFERENCES meals(id) ON DELETE CASCADE,
	ingredient_id INTEGER NOT NULL REFERENCES ingredients(id) ON DELETE RESTRICT,
	quantity_g TEXT NOT NULL,
	position INTEGER NOT NULL,
	UNIQUE (meal_id, ingredient_id)
);

CREATE INDEX IF NOT EXISTS idx_recipe_ingredients_meal_id ON recipe_ingredients(meal_id);
`
