// Package engine holds the progression and periodization rules. Every
// function is a pure computation over its arguments.
package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPhase is returned for a phase label other than HYP or STR.
	ErrInvalidPhase = errors.New("invalid phase")
	// ErrInvalidRule is returned when a Rule breaks its numeric invariants.
	ErrInvalidRule = errors.New("invalid rule")
)

// Phase is the training block a lift is in.
type Phase string

const (
	PhaseHypertrophy Phase = "HYP"
	PhaseStrength    Phase = "STR"
)

// ParsePhase accepts exactly "HYP" or "STR".
func ParsePhase(s string) (Phase, error) {
	switch Phase(s) {
	case PhaseHypertrophy:
		return PhaseHypertrophy, nil
	case PhaseStrength:
		return PhaseStrength, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPhase, s)
}

// Valid reports whether p is one of the two defined phases.
func (p Phase) Valid() bool {
	return p == PhaseHypertrophy || p == PhaseStrength
}

// RIRCeiling is the highest average RIR that still counts as on-target.
func (p Phase) RIRCeiling() float64 {
	if p == PhaseHypertrophy {
		return 2.0
	}
	return 1.0
}

// SetLog is one completed set. A nil Weight means bodyweight, a nil RIR
// means the lifter did not record one.
type SetLog struct {
	Weight *float64 `json:"weight,omitempty"`
	Reps   int      `json:"reps"`
	RIR    *float64 `json:"rir,omitempty"`
}

// Target is the prescription for an exercise's next exposure.
type Target struct {
	Weight *float64 `json:"weight,omitempty"`
	RepMin int      `json:"rep_min"`
	RepMax int      `json:"rep_max"`
	Sets   int      `json:"sets"`
	Phase  Phase    `json:"phase"`
}

// Rule carries the per-exercise progression parameters.
type Rule struct {
	Equipment  string  `json:"equipment"`
	BarbellInc float64 `json:"barbell_inc"`
	DBInc      float64 `json:"db_inc"`
	DeloadPct  float64 `json:"deload_pct"`
	MissLimit  int     `json:"miss_limit"`
}

// EquipmentBarbell selects BarbellInc; every other equipment uses DBInc.
const EquipmentBarbell = "barbell"

// Increment returns the load step for the rule's equipment.
func (r Rule) Increment() float64 {
	if r.Equipment == EquipmentBarbell {
		return r.BarbellInc
	}
	return r.DBInc
}

// Validate checks increments > 0, 0 < DeloadPct < 1 and MissLimit >= 1.
func (r Rule) Validate() error {
	switch {
	case r.BarbellInc <= 0:
		return fmt.Errorf("%w: barbell increment %v must be positive", ErrInvalidRule, r.BarbellInc)
	case r.DBInc <= 0:
		return fmt.Errorf("%w: dumbbell increment %v must be positive", ErrInvalidRule, r.DBInc)
	case r.DeloadPct <= 0 || r.DeloadPct >= 1:
		return fmt.Errorf("%w: deload pct %v must be in (0,1)", ErrInvalidRule, r.DeloadPct)
	case r.MissLimit < 1:
		return fmt.Errorf("%w: miss limit %d must be at least 1", ErrInvalidRule, r.MissLimit)
	}
	return nil
}

// Float returns a pointer to v, for optional weight and RIR fields.
func Float(v float64) *float64 {
	return &v
}
