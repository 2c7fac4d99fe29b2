package router

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"kaimenu/internal/catalog"
	"kaimenu/internal/generation"
	"kaimenu/internal/menu"
	"kaimenu/internal/middleware"
)

type stubClient struct{}

func (stubClient) Generate(ctx context.Context, prompt string) (string, error) {
	return `{"menus":[]}`, nil
}

func setupRouter(t *testing.T, origins ...string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zaptest.NewLogger(t)

	cat := catalog.NewService(catalog.NewInMemoryRepository(
		catalog.Ingredient{
			Name:         "Rice",
			PricePer100g: decimal.RequireFromString("0.50"),
			EnergyKJ:     decimal.RequireFromString("1500"),
			Dietaries:    []string{"Vegan"},
		},
	), logger)

	return New(Deps{
		Logger:         logger,
		AllowedOrigins: origins,
		Catalog:        catalog.NewHandler(cat),
		Menu:           menu.NewHandler(menu.NewService(menu.NewInMemoryRepository(), cat, logger)),
		Generation: generation.NewHandler(
			generation.NewService(cat, stubClient{}, logger),
			menu.DefaultConstraints(),
		),
	})
}

func TestHealthCheck(t *testing.T) {
	r := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestRoutesMounted(t *testing.T) {
	r := setupRouter(t)

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/ingredients?dietary=Vegan", "", http.StatusOK},
		{http.MethodGet, "/dietaries", "", http.StatusOK},
		{http.MethodPost, "/validate-menu", `{"items":[{"name":"Rice","quantity_g":250}]}`, http.StatusOK},
		{http.MethodGet, "/meals", "", http.StatusOK},
		{http.MethodGet, "/meals/42", "", http.StatusNotFound},
		{http.MethodDelete, "/meals/42", "", http.StatusNotFound},
		{http.MethodPut, "/meals/42", `{"meal_name":"Rice Bowl","items":[{"name":"Rice","quantity_g":250}]}`, http.StatusNotFound},
		{http.MethodPatch, "/meals/42", `{"description":"x"}`, http.StatusNotFound},
		{http.MethodPost, "/meals", `{}`, http.StatusUnprocessableEntity},
		{http.MethodPost, "/meals", `{"items":"rice"}`, http.StatusBadRequest},
		{http.MethodPost, "/generate-menus", `{}`, http.StatusOK},
		{http.MethodGet, "/nope", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestCORS(t *testing.T) {
	r := setupRouter(t, "http://localhost:3000")

	req := httptest.NewRequest(http.MethodOptions, "/validate-menu", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/meals/1", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PUT")
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")

	req = httptest.NewRequest(http.MethodOptions, "/validate-menu", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
