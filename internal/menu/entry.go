package menu

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"kaimenu/internal/nutrition"
)

// EntryLimits are the bounds of the single-menu validation entry point.
// There is no cost floor and no item-count or dietary rule here.
type EntryLimits struct {
	MinKJ   decimal.Decimal `json:"min_kj"`
	MaxCost decimal.Decimal `json:"max_cost"`
	MinG    decimal.Decimal `json:"min_g"`
	MaxG    decimal.Decimal `json:"max_g"`
}

func DefaultEntryLimits() EntryLimits {
	return EntryLimits{
		MinKJ:   decimal.NewFromInt(2500),
		MaxCost: decimal.NewFromInt(3),
		MinG:    decimal.NewFromInt(200),
		MaxG:    decimal.NewFromInt(350),
	}
}

// EntryResult is either valid with the two headline totals, or a reason.
type EntryResult struct {
	Valid     bool
	TotalKJ   decimal.Decimal
	TotalCost decimal.Decimal
	Reason    string
	Err       error
}

func (r EntryResult) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return json.Marshal(struct {
			Valid  bool   `json:"valid"`
			Reason string `json:"reason"`
		}{false, r.Reason})
	}
	return json.Marshal(struct {
		Valid     bool        `json:"valid"`
		TotalKJ   json.Number `json:"total_kj"`
		TotalCost json.Number `json:"total_cost"`
	}{true, json.Number(fixed(r.TotalKJ)), json.Number(fixed(r.TotalCost))})
}

var entryRules = []rule{
	ruleLineItems,
	ruleWeight,
	ruleAggregate,
	ruleEnergy,
	{KindCost, func(ev *evaluation) error {
		totals, err := ev.aggregate()
		if err != nil {
			return err
		}
		return costWithin(totals.Cost, nil, ev.constraints.PriceMax)
	}},
}

// ValidateMenu checks one list of line items: weight first without touching
// the catalog, then energy and the cost ceiling on the aggregated totals.
func ValidateMenu(lookup nutrition.Lookup, items []nutrition.Item, limits EntryLimits) EntryResult {
	v := &Validator{lookup: lookup, rules: entryRules}

	verdict := v.Validate(Candidate{Items: items}, Constraints{
		EnergyMin: limits.MinKJ,
		PriceMax:  limits.MaxCost,
		WeightMin: limits.MinG,
		WeightMax: limits.MaxG,
	})
	if !verdict.Valid {
		return EntryResult{Reason: verdict.Reason, Err: verdict.Err}
	}
	return EntryResult{
		Valid:     true,
		TotalKJ:   verdict.Totals.EnergyKJ,
		TotalCost: verdict.Totals.Cost,
	}
}
