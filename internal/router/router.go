package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"kaimenu/internal/catalog"
	"kaimenu/internal/generation"
	"kaimenu/internal/menu"
	"kaimenu/internal/middleware"
)

// Deps carries the handlers the router mounts. A nil Generation
// leaves /generate-menus unmounted.
type Deps struct {
	Logger         *zap.Logger
	AllowedOrigins []string
	Catalog        *catalog.Handler
	Menu           *menu.Handler
	Generation     *generation.Handler
}

func New(deps Deps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(cors.New(corsConfig(deps.AllowedOrigins)))

	// Health check route
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if deps.Catalog != nil {
		r.GET("/ingredients", deps.Catalog.ListIngredients)
		r.GET("/dietaries", deps.Catalog.ListDietaries)
	}

	if deps.Menu != nil {
		r.POST("/validate-menu", deps.Menu.ValidateMenu)

		meals := r.Group("/meals")
		{
			meals.GET("", deps.Menu.ListMeals)
			meals.POST("", deps.Menu.CreateMeal)
			meals.GET("/:id", deps.Menu.GetMeal)
			meals.PUT("/:id", deps.Menu.UpdateMeal)
			meals.PATCH("/:id", deps.Menu.PatchMeal)
			meals.DELETE("/:id", deps.Menu.DeleteMeal)
		}
	}

	if deps.Generation != nil {
		r.POST("/generate-menus", deps.Generation.Generate)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	config := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}

	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		config.AllowAllOrigins = true
		return config
	}

	config.AllowOrigins = origins
	config.AllowCredentials = true
	return config
}
