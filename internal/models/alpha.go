package models

import (
	"time"

	"github.com/meltforce/ultimatecoach/internal/engine"
)

// AlphaSession represents a parsed Alpha Progression workout session.
type AlphaSession struct {
	Name      string
	Date      time.Time
	Duration  string
	Exercises []AlphaExercise
}

// AlphaExercise represents a single exercise within a session.
type AlphaExercise struct {
	Number     int
	Name       string
	Equipment  string
	TargetReps int
	Sets       []AlphaSet
}

// AlphaSet represents a single set (working or warmup).
type AlphaSet struct {
	Number           int
	WeightKg         float64
	IsBodyweightPlus bool
	Reps             int
	RIR              float64
	IsWarmup         bool
}

// alphaUntrackedRIR is the value Alpha Progression writes when no RIR was entered.
const alphaUntrackedRIR = -1

// SetLog converts the set into an engine log. Untracked RIR becomes nil and
// a bodyweight set with no added load ("+0") has a nil weight.
func (s AlphaSet) SetLog() engine.SetLog {
	l := engine.SetLog{Reps: s.Reps}
	if !(s.IsBodyweightPlus && s.WeightKg == 0) {
		l.Weight = engine.Float(s.WeightKg)
	}
	if s.RIR != alphaUntrackedRIR {
		l.RIR = engine.Float(s.RIR)
	}
	return l
}

// WorkingSets returns the non-warmup sets in order.
func (e AlphaExercise) WorkingSets() []AlphaSet {
	var out []AlphaSet
	for _, s := range e.Sets {
		if !s.IsWarmup {
			out = append(out, s)
		}
	}
	return out
}
