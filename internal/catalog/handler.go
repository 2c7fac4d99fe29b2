package catalog

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// --------------------------------------------------
// GET /ingredients?dietary=Vegan
// --------------------------------------------------
func (h *Handler) ListIngredients(c *gin.Context) {
	dietary := c.DefaultQuery("dietary", StandardDietary)

	ingredients := h.service.IngredientsFor(c.Request.Context(), dietary)
	c.JSON(http.StatusOK, gin.H{
		"dietary":     dietary,
		"ingredients": ingredients,
	})
}

// --------------------------------------------------
// GET /dietaries
// --------------------------------------------------
func (h *Handler) ListDietaries(c *gin.Context) {
	dietaries, err := h.service.Dietaries(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load dietaries"})
		return
	}
	if dietaries == nil {
		dietaries = []Dietary{}
	}
	c.JSON(http.StatusOK, gin.H{"dietaries": dietaries})
}
