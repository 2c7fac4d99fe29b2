package menu

import (
	"time"

	"kaimenu/internal/nutrition"
)

// Candidate is a proposed menu, either from the generator or a client.
// Its keys match MealSummary so a read meal can be posted back as is.
type Candidate struct {
	Name        string           `json:"meal_name"`
	Description string           `json:"description"`
	Dietary     string           `json:"dietary"`
	Items       []nutrition.Item `json:"items"`
}

// MealPatch carries the fields of a partial update; nil means keep.
type MealPatch struct {
	Name        *string          `json:"meal_name"`
	Description *string          `json:"description"`
	Dietary     *string          `json:"dietary"`
	Items       []nutrition.Item `json:"items"`
}

// Apply merges the patch onto c. Items are replaced only when present.
func (p MealPatch) Apply(c Candidate) Candidate {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Dietary != nil {
		c.Dietary = *p.Dietary
	}
	if p.Items != nil {
		c.Items = p.Items
	}
	return c
}

// Meal is a candidate that was saved.
type Meal struct {
	ID          int64            `json:"id"`
	Name        string           `json:"meal_name"`
	Description string           `json:"description"`
	Dietary     string           `json:"dietary"`
	Items       []nutrition.Item `json:"items"`
	CreatedAt   time.Time        `json:"created_at"`
}

// MealFromCandidate keeps the candidate's line items in order.
func MealFromCandidate(c Candidate) Meal {
	items := make([]nutrition.Item, len(c.Items))
	copy(items, c.Items)
	return Meal{
		Name:        c.Name,
		Description: c.Description,
		Dietary:     c.Dietary,
		Items:       items,
	}
}

// Verdict is the validator's answer for one candidate.
// Totals are set whenever aggregation ran, valid or not.
type Verdict struct {
	Valid     bool                 `json:"valid"`
	Totals    *nutrition.Totals    `json:"totals,omitempty"`
	Reason    string               `json:"reason,omitempty"`
	Violation *ConstraintViolation `json:"violation,omitempty"`
	Err       error                `json:"-"`
}
