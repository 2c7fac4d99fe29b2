package nutrition

import (
	"github.com/shopspring/decimal"

	"kaimenu/internal/catalog"
)

// Field is one of the per-100g facts summed by the aggregator.
type Field int

const (
	Energy Field = iota
	Protein
	Fat
	Carbs
	Fiber
	Price
)

// Fields lists every aggregated fact in output order.
var Fields = []Field{Energy, Protein, Fat, Carbs, Fiber, Price}

func (f Field) String() string {
	switch f {
	case Energy:
		return "energy_kj"
	case Protein:
		return "protein"
	case Fat:
		return "fat"
	case Carbs:
		return "carbs"
	case Fiber:
		return "fiber"
	case Price:
		return "cost"
	default:
		return "unknown"
	}
}

// Per100g returns the ingredient's value for f.
func (f Field) Per100g(ing catalog.Ingredient) decimal.Decimal {
	switch f {
	case Energy:
		return ing.EnergyKJ
	case Protein:
		return ing.Protein
	case Fat:
		return ing.Fat
	case Carbs:
		return ing.Carbs
	case Fiber:
		return ing.Fiber
	case Price:
		return ing.PricePer100g
	default:
		return decimal.Zero
	}
}
