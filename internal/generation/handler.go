package generation

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"kaimenu/internal/menu"
)

type Handler struct {
	service *Service
	base    menu.Constraints
}

// NewHandler serves generation requests; base holds the configured defaults
// that request fields override.
func NewHandler(service *Service, base menu.Constraints) *Handler {
	return &Handler{service: service, base: base}
}

type generateRequest struct {
	menu.Overrides
	FeedbackPass bool `json:"feedback_pass"`
}

// --------------------------------------------------
// POST /generate-menus
// --------------------------------------------------
func (h *Handler) Generate(c *gin.Context) {
	var req generateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	cons, err := req.Overrides.Apply(h.base)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	cycle, err := h.service.Run(ctx, cons)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "cycle": cycle.Summary()})
		return
	}

	cycles := []Summary{cycle.Summary()}

	if req.FeedbackPass && len(cycle.Rejected) > 0 {
		refined, err := h.service.Refine(ctx, cycle)
		if err != nil {
			if refined != nil {
				cycles = append(cycles, refined.Summary())
			}
			c.JSON(statusFor(err), gin.H{"error": err.Error(), "cycles": cycles})
			return
		}
		cycles = append(cycles, refined.Summary())
	}

	c.JSON(http.StatusOK, gin.H{"cycles": cycles})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, menu.ErrInvalidConstraints):
		return http.StatusBadRequest
	case errors.Is(err, ErrCollaboratorUnavailable),
		errors.Is(err, ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
