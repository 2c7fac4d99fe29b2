package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"kaimenu/internal/menu"
	"kaimenu/internal/nutrition"
)

// Response is the JSON document the collaborator must return.
type Response struct {
	Menus []ResponseMenu `json:"menus" validate:"required,dive"`
}

// Description and Dietary must be present but may be empty.
type ResponseMenu struct {
	MealName    string         `json:"meal_name" validate:"required"`
	Description *string        `json:"description" validate:"required"`
	Dietary     *string        `json:"dietary" validate:"required"`
	Items       []ResponseItem `json:"items" validate:"required,dive"`
}

// QuantityG is whole grams; floats and quoted numbers fail to decode.
type ResponseItem struct {
	Name      string `json:"name" validate:"required"`
	QuantityG *int64 `json:"quantity_g" validate:"required"`
}

var responseValidator = validator.New()

// ParseResponse turns raw collaborator output into candidates, in order.
// Prose or code fences around the outermost JSON object are ignored.
func ParseResponse(raw string) ([]menu.Candidate, error) {
	jsonText := extractJSON(raw)
	if jsonText == "" {
		return nil, fmt.Errorf("%w: no JSON object in output", ErrMalformedResponse)
	}

	var resp Response
	if err := json.Unmarshal([]byte(jsonText), &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := responseValidator.Struct(resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	candidates := make([]menu.Candidate, 0, len(resp.Menus))
	for _, m := range resp.Menus {
		items := make([]nutrition.Item, 0, len(m.Items))
		for _, it := range m.Items {
			items = append(items, nutrition.Item{
				Name:      strings.TrimSpace(it.Name),
				QuantityG: decimal.NewFromInt(*it.QuantityG),
			})
		}
		candidates = append(candidates, menu.Candidate{
			Name:        strings.TrimSpace(m.MealName),
			Description: strings.TrimSpace(*m.Description),
			Dietary:     strings.TrimSpace(*m.Dietary),
			Items:       items,
		})
	}
	return candidates, nil
}

func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")

	if start == -1 || end == -1 || end <= start {
		return ""
	}

	return text[start : end+1]
}
