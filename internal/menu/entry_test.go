package menu

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kaimenu/internal/nutrition"
)

func TestValidateMenu_RiceAndChicken(t *testing.T) {
	result := ValidateMenu(fixtureSnapshot(), []nutrition.Item{
		item("Rice", "200"),
		item("Chicken Breast", "150"),
	}, DefaultEntryLimits())

	require.True(t, result.Valid, result.Reason)
	assert.True(t, result.TotalKJ.Equal(d("4650")))
	assert.True(t, result.TotalCost.Equal(d("2.80")))

	body, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{"valid":true,"total_kj":4650.00,"total_cost":2.80}`, string(body))
}

func TestValidateMenu_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		items  []nutrition.Item
		reason string
	}{
		{"under weight", []nutrition.Item{item("Rice", "100"), item("Kale", "50")}, "total_g=150 not in [200,350]"},
		{"unknown ingredient", []nutrition.Item{item("Kale", "100"), item("Rice", "150")}, "Ingredient not found: Kale"},
		{"low energy", []nutrition.Item{item("Broccoli", "200"), item("Rice", "100")}, "energy_kj=1782.00 < 2500 (short by 718.00)"},
		{"over budget", []nutrition.Item{item("Chicken Breast", "260")}, "cost=3.12 > 3.00 (over by 0.12)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateMenu(fixtureSnapshot(), tt.items, DefaultEntryLimits())

			assert.False(t, result.Valid)
			assert.Equal(t, tt.reason, result.Reason)

			body, err := json.Marshal(result)
			require.NoError(t, err)
			assert.JSONEq(t, `{"valid":false,"reason":`+string(mustJSON(t, tt.reason))+`}`, string(body))
		})
	}
}

func TestValidateMenu_NoCostFloorOrItemCount(t *testing.T) {
	// one item and a cost well under the generation floor
	result := ValidateMenu(fixtureSnapshot(), []nutrition.Item{item("Rice", "200")}, DefaultEntryLimits())

	require.True(t, result.Valid, result.Reason)
	assert.True(t, result.TotalCost.Equal(d("1.00")))
}

func TestValidateMenu_CostCeilingInclusive(t *testing.T) {
	result := ValidateMenu(fixtureSnapshot(), []nutrition.Item{item("Chicken Breast", "250")}, DefaultEntryLimits())

	require.True(t, result.Valid, result.Reason)
	assert.True(t, result.TotalCost.Equal(d("3")))
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
