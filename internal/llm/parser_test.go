package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoMenus = `{
  "menus": [
    {
      "meal_name": "Teriyaki Chicken Bowl",
      "description": "Sticky chicken, fluffy rice, crunchy greens.",
      "dietary": "Standard",
      "items": [
        {"name": "Rice", "quantity_g": 180},
        {"name": "Chicken Breast", "quantity_g": 120}
      ]
    },
    {
      "meal_name": "Miso Tofu Box",
      "description": "Miso glaze, crispy tofu.",
      "dietary": "Vegan",
      "items": [
        {"name": "Tofu", "quantity_g": 160}
      ]
    }
  ]
}`

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"bare", twoMenus},
		{"code fence", "```json\n" + twoMenus + "\n```"},
		{"prose around", "Here are your menus:\n" + twoMenus + "\nEnjoy!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResponse(tt.raw)
			require.NoError(t, err)
			require.Len(t, got, 2)

			assert.Equal(t, "Teriyaki Chicken Bowl", got[0].Name)
			assert.Equal(t, "Standard", got[0].Dietary)
			require.Len(t, got[0].Items, 2)
			assert.Equal(t, "Chicken Breast", got[0].Items[1].Name)
			assert.Equal(t, "120", got[0].Items[1].QuantityG.String())

			assert.Equal(t, "Miso Tofu Box", got[1].Name)
			assert.Equal(t, "Vegan", got[1].Dietary)
		})
	}
}

func TestParseResponse_EmptyFieldsPresent(t *testing.T) {
	got, err := ParseResponse(`{"menus": [{"meal_name": "X", "description": "", "dietary": "", "items": [{"name": "Rice", "quantity_g": 0}]}]}`)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "", got[0].Dietary)
	assert.True(t, got[0].Items[0].QuantityG.IsZero())
}

func TestParseResponse_EmptyBatch(t *testing.T) {
	got, err := ParseResponse(`{"menus": []}`)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseResponse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "sorry, I cannot help with that"},
		{"broken json", `{"menus": [ {"meal_name": "X", }`},
		{"missing menus", `{"meals": []}`},
		{"missing meal name", `{"menus": [{"items": [{"name": "Rice", "quantity_g": 200}]}]}`},
		{"missing items", `{"menus": [{"meal_name": "X"}]}`},
		{"item without name", `{"menus": [{"meal_name": "X", "items": [{"quantity_g": 200}]}]}`},
		{"item without quantity", `{"menus": [{"meal_name": "X", "items": [{"name": "Rice"}]}]}`},
		{"quantity as word", `{"menus": [{"meal_name": "X", "description": "", "dietary": "Standard", "items": [{"name": "Rice", "quantity_g": "lots"}]}]}`},
		{"fractional quantity", `{"menus": [{"meal_name": "X", "description": "", "dietary": "Standard", "items": [{"name": "Rice", "quantity_g": 150.5}]}]}`},
		{"quoted quantity", `{"menus": [{"meal_name": "X", "description": "", "dietary": "Standard", "items": [{"name": "Rice", "quantity_g": "150"}]}]}`},
		{"missing description", `{"menus": [{"meal_name": "X", "dietary": "Standard", "items": [{"name": "Rice", "quantity_g": 150}]}]}`},
		{"missing dietary", `{"menus": [{"meal_name": "X", "description": "Rice.", "items": [{"name": "Rice", "quantity_g": 150}]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseResponse(tt.raw)
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSON(`noise {"a":1} noise`))
	assert.Equal(t, "", extractJSON("no braces"))
	assert.Equal(t, "", extractJSON("} backwards {"))
}
