package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ConnectPostgres opens a pool, pings it and ensures the schema exists.
func ConnectPostgres(ctx context.Context, dsn string, logger *zap.Logger) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, errors.New("DATABASE_URL not set")
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres connection failed: %w", err)
	}

	logger.Info("[DB] connected to postgres")

	if err := initPostgresSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	logger.Info("[DB] schema initialized")
	return pool, nil
}

// initPostgresSchema creates the catalog and meal tables.
// Numeric facts are NUMERIC so no precision is lost.
func initPostgresSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range postgresSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

var postgresSchema = []string{
	// -------------------------------
	// DIETARIES
	// -------------------------------
	`CREATE TABLE IF NOT EXISTS dietaries (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		description TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS dietaries_name_lower ON dietaries (lower(name))`,

	// -------------------------------
	// INGREDIENTS
	// -------------------------------
	`CREATE TABLE IF NOT EXISTS ingredients (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		price_per_100g NUMERIC(10,2) NOT NULL CHECK (price_per_100g >= 0),
		allergen VARCHAR(20) NOT NULL DEFAULT '',
		energy_kj NUMERIC(10,2) NOT NULL CHECK (energy_kj >= 0),
		protein NUMERIC(10,2) NOT NULL DEFAULT 0 CHECK (protein >= 0),
		fat NUMERIC(10,2) NOT NULL DEFAULT 0 CHECK (fat >= 0),
		carbs NUMERIC(10,2) NOT NULL DEFAULT 0 CHECK (carbs >= 0),
		fiber NUMERIC(10,2) NOT NULL DEFAULT 0 CHECK (fiber >= 0)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ingredients_name_lower ON ingredients (lower(name))`,

	`CREATE TABLE IF NOT EXISTS ingredient_dietaries (
		ingredient_id BIGINT NOT NULL REFERENCES ingredients(id) ON DELETE CASCADE,
		dietary_id BIGINT NOT NULL REFERENCES dietaries(id) ON DELETE CASCADE,
		PRIMARY KEY (ingredient_id, dietary_id)
	)`,

	// -------------------------------
	// MEALS
	// -------------------------------
	`CREATE TABLE IF NOT EXISTS meals (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		dietary VARCHAR(100) NOT NULL DEFAULT 'Standard',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS meals_name_lower ON meals (lower(name))`,

	`CREATE TABLE IF NOT EXISTS recipe_ingredients (
		id BIGSERIAL PRIMARY KEY,
		meal_id BIGINT NOT NULL REFERENCES meals(id) ON DELETE CASCADE,
		ingredient_id BIGINT NOT NULL REFERENCES ingredients(id) ON DELETE RESTRICT,
		quantity_g NUMERIC(8,2) NOT NULL CHECK (quantity_g > 0),
		position INT NOT NULL,
		UNIQUE (meal_id, ingredient_id)
	)`,
}
