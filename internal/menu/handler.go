package menu

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"kaimenu/internal/nutrition"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type validateMenuRequest struct {
	Items   []nutrition.Item `json:"items" binding:"required"`
	MinKJ   *decimal.Decimal `json:"min_kj"`
	MaxCost *decimal.Decimal `json:"max_cost"`
	MinG    *decimal.Decimal `json:"min_g"`
	MaxG    *decimal.Decimal `json:"max_g"`
}

func (r validateMenuRequest) limits() EntryLimits {
	l := DefaultEntryLimits()
	if r.MinKJ != nil {
		l.MinKJ = *r.MinKJ
	}
	if r.MaxCost != nil {
		l.MaxCost = *r.MaxCost
	}
	if r.MinG != nil {
		l.MinG = *r.MinG
	}
	if r.MaxG != nil {
		l.MaxG = *r.MaxG
	}
	return l
}

// --------------------------------------------------
// POST /validate-menu
// --------------------------------------------------
func (h *Handler) ValidateMenu(c *gin.Context) {
	var req validateMenuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// an invalid menu is a normal answer, not a request error
	result := h.service.ValidateMenu(c.Request.Context(), req.Items, req.limits())
	c.JSON(http.StatusOK, result)
}

// --------------------------------------------------
// POST /meals
// --------------------------------------------------
func (h *Handler) CreateMeal(c *gin.Context) {
	var req Candidate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := h.service.SaveMeal(c.Request.Context(), req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, summary)
}

// --------------------------------------------------
// GET /meals
// --------------------------------------------------
func (h *Handler) ListMeals(c *gin.Context) {
	meals, err := h.service.ListMeals(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"meals": meals})
}

// --------------------------------------------------
// GET /meals/:id
// --------------------------------------------------
func (h *Handler) GetMeal(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid meal id"})
		return
	}

	summary, err := h.service.GetMeal(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// --------------------------------------------------
// PUT /meals/:id
// --------------------------------------------------
func (h *Handler) UpdateMeal(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid meal id"})
		return
	}

	var req Candidate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := h.service.UpdateMeal(c.Request.Context(), id, req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// --------------------------------------------------
// PATCH /meals/:id
// --------------------------------------------------
func (h *Handler) PatchMeal(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid meal id"})
		return
	}

	var req MealPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := h.service.PatchMeal(c.Request.Context(), id, req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// --------------------------------------------------
// DELETE /meals/:id
// --------------------------------------------------
func (h *Handler) DeleteMeal(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid meal id"})
		return
	}

	if err := h.service.DeleteMeal(c.Request.Context(), id); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrMealNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrMealExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidMeal),
		errors.Is(err, ErrConstraintViolation),
		errors.Is(err, nutrition.ErrIngredientNotFound):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
