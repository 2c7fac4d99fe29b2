package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"kaimenu/internal/app"
	"kaimenu/internal/catalog"
	"kaimenu/internal/config"
	"kaimenu/internal/generation"
	"kaimenu/internal/logging"
	"kaimenu/internal/menu"
	"kaimenu/internal/router"
)

func main() {

	// ───────────────────────── ENV ─────────────────────────
	cfg := config.Load()
	if err := cfg.Validate(true); err != nil {
		log.Fatalf("❌ %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("❌ logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	constraints, err := cfg.Constraints()
	if err != nil {
		logger.Fatal("❌ constraints invalid", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ───────────────────────── DB ─────────────────────────
	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("❌ database init failed", zap.Error(err))
	}
	defer stores.Close()

	// ───────────────────────── LLM ─────────────────────────
	llmClient, err := app.NewLLMClient(ctx, cfg)
	if err != nil {
		logger.Fatal("❌ LLM client init failed", zap.Error(err))
	}

	// ───────────────────────── SERVICES ─────────────────────────
	catalogService := catalog.NewService(stores.Catalog, logger)
	menuService := menu.NewService(stores.Meals, catalogService, logger)
	generationService := generation.NewService(
		catalogService,
		llmClient,
		logger,
		app.GenerationOptions(ctx, cfg, logger)...,
	)

	// ───────────────────────── ROUTER ─────────────────────────
	r := router.New(router.Deps{
		Logger:         logger,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Catalog:        catalog.NewHandler(catalogService),
		Menu:           menu.NewHandler(menuService),
		Generation:     generation.NewHandler(generationService, constraints),
	})

	// ───────────────────────── START ─────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("🚀 API running",
			zap.String("addr", "http://localhost:"+cfg.Port),
			zap.String("store", stores.Backend),
			zap.String("llm", cfg.LLMProvider),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("❌ server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
