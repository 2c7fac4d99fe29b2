// Package app wires configuration into the stores, collaborator and
// archive shared by the API server and the CLI.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"kaimenu/internal/catalog"
	"kaimenu/internal/config"
	"kaimenu/internal/db"
	"kaimenu/internal/generation"
	"kaimenu/internal/llm"
	"kaimenu/internal/menu"
	"kaimenu/internal/storage"
)

// Stores is the catalog and meal persistence for one process.
type Stores struct {
	Catalog       catalog.Repository
	CatalogWriter catalog.Writer
	Meals         menu.Repository
	Backend       string

	close func()
}

func (s *Stores) Close() {
	if s.close != nil {
		s.close()
	}
}

// OpenStores connects to Postgres when DATABASE_URL is set, SQLite otherwise.
func OpenStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Stores, error) {
	if cfg.UsePostgres() {
		pool, err := db.ConnectPostgres(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		repo := catalog.NewPostgresRepository(pool)
		return &Stores{
			Catalog:       repo,
			CatalogWriter: repo,
			Meals:         menu.NewPostgresRepository(pool),
			Backend:       "postgres",
			close:         pool.Close,
		}, nil
	}

	sqlDB, err := db.OpenSQLite(ctx, cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	logger.Info("[DB] using sqlite", zap.String("path", cfg.SQLitePath))

	repo := catalog.NewSQLiteRepository(sqlDB)
	return &Stores{
		Catalog:       repo,
		CatalogWriter: repo,
		Meals:         menu.NewSQLiteRepository(sqlDB),
		Backend:       "sqlite",
		close:         func() { _ = sqlDB.Close() },
	}, nil
}

// NewLLMClient builds the collaborator named by LLM_PROVIDER.
func NewLLMClient(ctx context.Context, cfg config.Config) (llm.Client, error) {
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		client, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.ProviderOpenAI:
		client, err := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

// GenerationOptions enables the R2 transcript archive when it is configured.
// A bucket that cannot be reached is logged and skipped.
func GenerationOptions(ctx context.Context, cfg config.Config, logger *zap.Logger) []generation.Option {
	if !cfg.R2.Enabled() {
		logger.Info("[STORAGE] R2 archive disabled")
		return nil
	}

	archive, err := storage.NewR2Archive(ctx, cfg.R2)
	if err != nil {
		logger.Warn("[STORAGE] R2 archive unavailable", zap.Error(err))
		return nil
	}
	logger.Info("[STORAGE] R2 archive enabled", zap.String("bucket", cfg.R2.Bucket))
	return []generation.Option{generation.WithArchive(archive)}
}
