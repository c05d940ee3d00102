package engine

import (
	"fmt"
	"math"
)

// missRIR is the average RIR above which an exposure counts as a miss
// even when every set reached RepMin.
const missRIR = 4.0

// tightenRIR is the average RIR above which the rep window shrinks.
const tightenRIR = 3.0

// Action names the branch ComputeNextTargets took.
type Action string

const (
	ActionProgress Action = "progress"
	ActionDeload   Action = "deload"
	ActionTighten  Action = "tighten"
	ActionHold     Action = "hold"
)

// Assessment summarises one exposure's logs against its target.
type Assessment struct {
	AvgRIR          float64 `json:"avg_rir"`
	AllAtTop        bool    `json:"all_at_top"`
	AllAtOrBelowRIR bool    `json:"all_at_or_below_rir"`
	AnyMiss         bool    `json:"any_miss"`
}

// Step is the full outcome of one progression decision.
type Step struct {
	Target     Target     `json:"target"`
	Action     Action     `json:"action"`
	Assessment Assessment `json:"assessment"`
}

// Assess evaluates logs against the target that was prescribed for them.
// Empty logs satisfy both "all" predicates.
func Assess(lastLogs []SetLog, lastTarget Target, phase Phase) Assessment {
	ceiling := phase.RIRCeiling()
	avg, ok := averageRIR(lastLogs)
	if !ok {
		avg = ceiling
	}

	a := Assessment{AvgRIR: avg, AllAtTop: true, AllAtOrBelowRIR: true}
	for _, l := range lastLogs {
		if l.Reps < lastTarget.RepMax {
			a.AllAtTop = false
		}
		rir := ceiling
		if l.RIR != nil {
			rir = *l.RIR
		}
		if rir > ceiling {
			a.AllAtOrBelowRIR = false
		}
		if l.Reps < lastTarget.RepMin {
			a.AnyMiss = true
		}
	}
	if avg > missRIR {
		a.AnyMiss = true
	}
	return a
}

// Advance applies double progression to one completed exposure. The rule
// and phase are validated first; the inputs are never modified.
func Advance(lastLogs []SetLog, lastTarget Target, rule Rule, phase Phase, consecutiveMisses int) (Step, error) {
	if !phase.Valid() {
		return Step{}, fmt.Errorf("%w: %q", ErrInvalidPhase, phase)
	}
	if err := rule.Validate(); err != nil {
		return Step{}, err
	}

	a := Assess(lastLogs, lastTarget, phase)
	inc := rule.Increment()

	next := Target{
		Weight: copyFloat(lastTarget.Weight),
		RepMin: lastTarget.RepMin,
		RepMax: lastTarget.RepMax,
		Sets:   lastTarget.Sets,
		Phase:  phase,
	}

	missed := 0
	if a.AnyMiss {
		missed = 1
	}

	var action Action
	switch {
	case a.AllAtTop && a.AllAtOrBelowRIR:
		action = ActionProgress
		w := inc
		if lastTarget.Weight != nil {
			w = *lastTarget.Weight + inc
		}
		next.Weight = Float(RoundToIncrement(w, inc))
	case consecutiveMisses+missed >= rule.MissLimit:
		action = ActionDeload
		if lastTarget.Weight != nil {
			next.Weight = Float(RoundToIncrement(*lastTarget.Weight*(1.0-rule.DeloadPct), inc))
		}
	case a.AvgRIR > tightenRIR:
		action = ActionTighten
		next.RepMax = max(lastTarget.RepMin, lastTarget.RepMax-1)
		next.RepMin = min(next.RepMax, max(1, lastTarget.RepMin-1))
	default:
		action = ActionHold
	}

	return Step{Target: next, Action: action, Assessment: a}, nil
}

// ComputeNextTargets returns the prescription for the next exposure. See
// Advance for the branch that was taken.
func ComputeNextTargets(lastLogs []SetLog, lastTarget Target, rule Rule, phase Phase, consecutiveMisses int) (Target, error) {
	step, err := Advance(lastLogs, lastTarget, rule, phase, consecutiveMisses)
	if err != nil {
		return Target{}, err
	}
	return step.Target, nil
}

// RoundToIncrement rounds v to the nearest multiple of inc, ties away from
// zero, and then to two decimal places. A non-positive inc returns v.
func RoundToIncrement(v, inc float64) float64 {
	if inc <= 0 {
		return v
	}
	steps := math.Round(v / inc)
	return roundPlaces(steps*inc, 2)
}

func roundPlaces(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// averageRIR returns the mean of recorded RIR values and false when none
// were recorded.
func averageRIR(logs []SetLog) (float64, bool) {
	var sum float64
	var n int
	for _, l := range logs {
		if l.RIR == nil {
			continue
		}
		sum += *l.RIR
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	return Float(*p)
}
