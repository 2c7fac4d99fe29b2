package menu

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"kaimenu/internal/catalog"
)

// Constraints is the immutable rule configuration shared by the renderer and
// the validator. Cost bounds are (PriceMin, PriceMax]; weight and item-count
// bounds are inclusive on both ends.
type Constraints struct {
	BatchSize int             `json:"batch_size" yaml:"batch_size" validate:"gte=1,lte=50"`
	Dietary   string          `json:"dietary" yaml:"dietary" validate:"required"`
	EnergyMin decimal.Decimal `json:"energy_min" yaml:"energy_min"`
	PriceMin  decimal.Decimal `json:"price_min" yaml:"price_min"`
	PriceMax  decimal.Decimal `json:"price_max" yaml:"price_max"`
	WeightMin decimal.Decimal `json:"weight_min" yaml:"weight_min"`
	WeightMax decimal.Decimal `json:"weight_max" yaml:"weight_max"`
	ItemsMin  int             `json:"items_min" yaml:"items_min" validate:"gte=1"`
	ItemsMax  int             `json:"items_max" yaml:"items_max" validate:"gtefield=ItemsMin"`
}

// DefaultConstraints are the generation defaults; there are no others.
func DefaultConstraints() Constraints {
	return Constraints{
		BatchSize: 10,
		Dietary:   catalog.StandardDietary,
		EnergyMin: decimal.NewFromInt(2200),
		PriceMin:  decimal.RequireFromString("2.50"),
		PriceMax:  decimal.RequireFromString("3.00"),
		WeightMin: decimal.NewFromInt(200),
		WeightMax: decimal.NewFromInt(350),
		ItemsMin:  5,
		ItemsMax:  6,
	}
}

var ErrInvalidConstraints = errors.New("invalid constraints")

var validate = validator.New()

// Validate checks ranges and that money bounds carry at most two decimals,
// which keeps the rendered request lossless.
func (c Constraints) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConstraints, err)
	}

	for name, v := range map[string]decimal.Decimal{
		"energy_min": c.EnergyMin,
		"price_min":  c.PriceMin,
		"price_max":  c.PriceMax,
		"weight_min": c.WeightMin,
		"weight_max": c.WeightMax,
	} {
		if v.IsNegative() {
			return fmt.Errorf("%w: %s is negative", ErrInvalidConstraints, name)
		}
	}
	if !c.PriceMin.Equal(c.PriceMin.Truncate(2)) || !c.PriceMax.Equal(c.PriceMax.Truncate(2)) {
		return fmt.Errorf("%w: prices take at most 2 decimal places", ErrInvalidConstraints)
	}
	if c.PriceMax.LessThanOrEqual(c.PriceMin) {
		return fmt.Errorf("%w: price_max %s must exceed price_min %s",
			ErrInvalidConstraints, c.PriceMax.StringFixed(2), c.PriceMin.StringFixed(2))
	}
	if c.WeightMax.LessThan(c.WeightMin) {
		return fmt.Errorf("%w: weight_max %s below weight_min %s",
			ErrInvalidConstraints, c.WeightMax, c.WeightMin)
	}
	return nil
}

// IsStandard reports whether no dietary filtering applies.
func (c Constraints) IsStandard() bool {
	return catalog.IsStandard(c.Dietary)
}

// Overrides is a partial Constraints; nil fields keep the base value.
// Used by the HTTP layer, the CLI and the YAML overrides file.
type Overrides struct {
	BatchSize *int             `json:"batch_size,omitempty" yaml:"batch_size"`
	Dietary   *string          `json:"dietary,omitempty" yaml:"dietary"`
	EnergyMin *decimal.Decimal `json:"energy_min,omitempty" yaml:"energy_min"`
	PriceMin  *decimal.Decimal `json:"price_min,omitempty" yaml:"price_min"`
	PriceMax  *decimal.Decimal `json:"price_max,omitempty" yaml:"price_max"`
	WeightMin *decimal.Decimal `json:"weight_min,omitempty" yaml:"weight_min"`
	WeightMax *decimal.Decimal `json:"weight_max,omitempty" yaml:"weight_max"`
	ItemsMin  *int             `json:"items_min,omitempty" yaml:"items_min"`
	ItemsMax  *int             `json:"items_max,omitempty" yaml:"items_max"`
}

// Apply layers o over base and validates the result.
func (o Overrides) Apply(base Constraints) (Constraints, error) {
	c := base
	if o.BatchSize != nil {
		c.BatchSize = *o.BatchSize
	}
	if o.Dietary != nil {
		c.Dietary = strings.TrimSpace(*o.Dietary)
		if c.Dietary == "" {
			c.Dietary = catalog.StandardDietary
		}
	}
	if o.EnergyMin != nil {
		c.EnergyMin = *o.EnergyMin
	}
	if o.PriceMin != nil {
		c.PriceMin = *o.PriceMin
	}
	if o.PriceMax != nil {
		c.PriceMax = *o.PriceMax
	}
	if o.WeightMin != nil {
		c.WeightMin = *o.WeightMin
	}
	if o.WeightMax != nil {
		c.WeightMax = *o.WeightMax
	}
	if o.ItemsMin != nil {
		c.ItemsMin = *o.ItemsMin
	}
	if o.ItemsMax != nil {
		c.ItemsMax = *o.ItemsMax
	}

	if err := c.Validate(); err != nil {
		return Constraints{}, err
	}
	return c, nil
}
