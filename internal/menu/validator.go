package menu

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"kaimenu/internal/nutrition"
)

// ErrUnknownRule is returned by Check for a kind with no rule.
var ErrUnknownRule = errors.New("unknown rule")

// evaluation carries one candidate through the rules. Totals are computed
// at most once and only when a rule asks for them.
type evaluation struct {
	candidate   Candidate
	constraints Constraints
	lookup      nutrition.Lookup

	totals    *nutrition.Totals
	totalsErr error
}

func (e *evaluation) aggregate() (*nutrition.Totals, error) {
	if e.totals == nil && e.totalsErr == nil {
		t, err := nutrition.Aggregate(e.lookup, e.candidate.Items)
		if err != nil {
			e.totalsErr = err
		} else {
			e.totals = &t
		}
	}
	return e.totals, e.totalsErr
}

type rule struct {
	kind  ViolationKind
	check func(*evaluation) error
}

// kindAggregate is the catalog resolution step. It has no violation of its
// own; a failure surfaces as *nutrition.IngredientNotFoundError.
const kindAggregate ViolationKind = "aggregate"

var (
	ruleLineItems = rule{KindInvalidLineItem, checkLineItems}
	ruleWeight    = rule{KindWeight, checkWeight}
	ruleAggregate = rule{kindAggregate, checkAggregate}
	ruleEnergy    = rule{KindEnergy, checkEnergy}
	ruleCost      = rule{KindCost, checkCost}
	ruleItemCount = rule{KindItemCount, checkItemCount}
	ruleDietary   = rule{KindDietary, checkDietary}
)

// Order matters: the first failure is the reported reason.
var defaultRules = []rule{
	ruleLineItems,
	ruleWeight,
	ruleAggregate,
	ruleEnergy,
	ruleCost,
	ruleItemCount,
	ruleDietary,
}

// Validator checks candidates against constraints using one catalog view.
// It holds no mutable state and is safe for concurrent use.
type Validator struct {
	lookup nutrition.Lookup
	rules  []rule
}

func NewValidator(lookup nutrition.Lookup) *Validator {
	return &Validator{lookup: lookup, rules: defaultRules}
}

// Validate runs the rules in order and stops at the first failure.
// Validation never mutates the candidate.
func (v *Validator) Validate(c Candidate, cons Constraints) Verdict {
	ev := &evaluation{candidate: c, constraints: cons, lookup: v.lookup}

	for _, r := range v.rules {
		if err := r.check(ev); err != nil {
			return failed(ev, err)
		}
	}

	totals, err := ev.aggregate()
	if err != nil {
		return failed(ev, err)
	}
	return Verdict{Valid: true, Totals: totals}
}

func failed(ev *evaluation, err error) Verdict {
	verdict := Verdict{Valid: false, Totals: ev.totals, Reason: err.Error(), Err: err}
	var cv *ConstraintViolation
	if errors.As(err, &cv) {
		verdict.Violation = cv
	}
	return verdict
}

// Check runs a single rule. Rules that need totals aggregate on their own,
// so an unknown ingredient can surface from any of them.
func (v *Validator) Check(kind ViolationKind, c Candidate, cons Constraints) error {
	ev := &evaluation{candidate: c, constraints: cons, lookup: v.lookup}
	for _, r := range defaultRules {
		if r.kind == kind {
			return r.check(ev)
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownRule, kind)
}

// AllViolations runs every rule without short-circuiting. A catalog miss is
// reported once and the rules that resolve names are skipped.
func (v *Validator) AllViolations(c Candidate, cons Constraints) []error {
	ev := &evaluation{candidate: c, constraints: cons, lookup: v.lookup}

	var errs []error
	for _, r := range v.rules {
		if ev.totalsErr != nil && resolvesCatalog(r.kind) {
			continue
		}
		if err := r.check(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func resolvesCatalog(kind ViolationKind) bool {
	return kind == KindEnergy || kind == KindCost || kind == KindDietary
}

// ValidateBatch validates candidates in parallel. Verdicts come back in
// input order; the only error is context cancellation.
func (v *Validator) ValidateBatch(
	ctx context.Context,
	candidates []Candidate,
	cons Constraints,
) ([]Verdict, error) {

	verdicts := make([]Verdict, len(candidates))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i := range candidates {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			verdicts[i] = v.Validate(candidates[i], cons)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return verdicts, nil
}

// --------------------------------------------------
// RULES
// --------------------------------------------------

func checkLineItems(ev *evaluation) error {
	seen := make(map[string]struct{}, len(ev.candidate.Items))

	for i, it := range ev.candidate.Items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			return &ConstraintViolation{
				Kind:   KindInvalidLineItem,
				Actual: "",
				Bound:  "name",
				Reason: fmt.Sprintf("item %d has no ingredient name", i+1),
			}
		}
		if !it.QuantityG.IsPositive() {
			return &ConstraintViolation{
				Kind:   KindInvalidLineItem,
				Actual: it.QuantityG.String(),
				Bound:  "> 0",
				Reason: fmt.Sprintf("quantity_g=%s for %s must be > 0", it.QuantityG, name),
			}
		}

		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return &ConstraintViolation{
				Kind:   KindInvalidLineItem,
				Actual: name,
				Bound:  "unique",
				Reason: fmt.Sprintf("duplicate ingredient %s", name),
			}
		}
		seen[key] = struct{}{}
	}
	return nil
}

func checkWeight(ev *evaluation) error {
	cons := ev.constraints
	total := nutrition.TotalWeight(ev.candidate.Items)

	if total.GreaterThanOrEqual(cons.WeightMin) && total.LessThanOrEqual(cons.WeightMax) {
		return nil
	}
	return &ConstraintViolation{
		Kind:   KindWeight,
		Actual: total.String(),
		Bound:  fmt.Sprintf("[%s,%s]", cons.WeightMin, cons.WeightMax),
		Reason: fmt.Sprintf("total_g=%s not in [%s,%s]", total, cons.WeightMin, cons.WeightMax),
	}
}

func checkAggregate(ev *evaluation) error {
	_, err := ev.aggregate()
	return err
}

func checkEnergy(ev *evaluation) error {
	totals, err := ev.aggregate()
	if err != nil {
		return err
	}

	floor := ev.constraints.EnergyMin
	if totals.EnergyKJ.GreaterThanOrEqual(floor) {
		return nil
	}
	return &ConstraintViolation{
		Kind:   KindEnergy,
		Actual: fixed(totals.EnergyKJ),
		Bound:  floor.String(),
		Reason: fmt.Sprintf("energy_kj=%s < %s (short by %s)",
			fixed(totals.EnergyKJ), floor, fixed(floor.Sub(totals.EnergyKJ))),
	}
}

func checkCost(ev *evaluation) error {
	totals, err := ev.aggregate()
	if err != nil {
		return err
	}
	return costWithin(totals.Cost, &ev.constraints.PriceMin, ev.constraints.PriceMax)
}

// costWithin enforces (floor, ceiling]. A nil floor checks the ceiling only.
func costWithin(cost decimal.Decimal, floor *decimal.Decimal, ceiling decimal.Decimal) error {
	if floor != nil && cost.LessThanOrEqual(*floor) {
		return &ConstraintViolation{
			Kind:   KindCost,
			Actual: fixed(cost),
			Bound:  "> " + fixed(*floor),
			Reason: fmt.Sprintf("cost=%s not > %s", fixed(cost), fixed(*floor)),
		}
	}
	if cost.GreaterThan(ceiling) {
		return &ConstraintViolation{
			Kind:   KindCost,
			Actual: fixed(cost),
			Bound:  "<= " + fixed(ceiling),
			Reason: fmt.Sprintf("cost=%s > %s (over by %s)",
				fixed(cost), fixed(ceiling), fixed(cost.Sub(ceiling))),
		}
	}
	return nil
}

func checkItemCount(ev *evaluation) error {
	cons := ev.constraints
	n := len(ev.candidate.Items)

	var margin string
	switch {
	case n < cons.ItemsMin:
		margin = fmt.Sprintf("short by %d", cons.ItemsMin-n)
	case n > cons.ItemsMax:
		margin = fmt.Sprintf("over by %d", n-cons.ItemsMax)
	default:
		return nil
	}
	return &ConstraintViolation{
		Kind:   KindItemCount,
		Actual: fmt.Sprint(n),
		Bound:  fmt.Sprintf("[%d,%d]", cons.ItemsMin, cons.ItemsMax),
		Reason: fmt.Sprintf("items=%d not in [%d,%d] (%s)", n, cons.ItemsMin, cons.ItemsMax, margin),
	}
}

func checkDietary(ev *evaluation) error {
	cons := ev.constraints
	if cons.IsStandard() {
		return nil
	}

	// an untagged menu is judged on its ingredients alone
	tag := strings.TrimSpace(ev.candidate.Dietary)
	if tag != "" && !strings.EqualFold(tag, cons.Dietary) {
		return &ConstraintViolation{
			Kind:   KindDietary,
			Actual: tag,
			Bound:  cons.Dietary,
			Reason: fmt.Sprintf("dietary=%s: menu is tagged %q", cons.Dietary, tag),
		}
	}

	for _, it := range ev.candidate.Items {
		ing, ok := ev.lookup.Lookup(it.Name)
		if !ok {
			return &nutrition.IngredientNotFoundError{Name: it.Name}
		}
		if !ing.HasDietary(cons.Dietary) {
			return &ConstraintViolation{
				Kind:   KindDietary,
				Actual: ing.Name,
				Bound:  cons.Dietary,
				Reason: fmt.Sprintf("dietary=%s: %s is not %s", cons.Dietary, ing.Name, cons.Dietary),
			}
		}
	}
	return nil
}

func fixed(d decimal.Decimal) string {
	return d.StringFixedBank(nutrition.OutputPlaces)
}
