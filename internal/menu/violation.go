package menu

import (
	"errors"
)

// ViolationKind names the rule a menu broke.
type ViolationKind string

const (
	KindInvalidLineItem ViolationKind = "invalid-line-item"
	KindWeight          ViolationKind = "weight-out-of-range"
	KindEnergy          ViolationKind = "energy-too-low"
	KindCost            ViolationKind = "cost-out-of-range"
	KindItemCount       ViolationKind = "item-count-out-of-range"
	KindDietary         ViolationKind = "dietary-noncompliant"
)

var ErrConstraintViolation = errors.New("constraint violation")

// ConstraintViolation is an expected, non-fatal rejection. Reason carries the
// actual value, the bound and the margin so it can be shown as is.
type ConstraintViolation struct {
	Kind   ViolationKind `json:"kind"`
	Actual string        `json:"actual"`
	Bound  string        `json:"bound"`
	Reason string        `json:"reason"`
}

func (v *ConstraintViolation) Error() string { return v.Reason }

func (v *ConstraintViolation) Is(target error) bool {
	return target == ErrConstraintViolation
}
