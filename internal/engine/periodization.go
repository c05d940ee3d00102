package engine

import "fmt"

const (
	// strengthGain is the relative load gain over the block needed to
	// leave hypertrophy.
	strengthGain = 0.05
	// strengthMaxRIR is the highest average RIR that allows HYP -> STR.
	strengthMaxRIR = 1.0
	// hypertrophyMinRIR is the average RIR above which STR falls back to HYP.
	hypertrophyMinRIR = 2.0
)

// ShouldSwitchPhase decides the phase for the next block from recent
// history. Unlike Assess, an absent RIR average counts as 0 here.
func ShouldSwitchPhase(history []SetLog, currentPhase Phase, blockStartLoad, currentLoad *float64) (Phase, error) {
	avg, _ := averageRIR(history)

	switch currentPhase {
	case PhaseHypertrophy:
		if blockStartLoad != nil && currentLoad != nil && *blockStartLoad > 0 {
			gained := (*currentLoad - *blockStartLoad) / *blockStartLoad
			if avg <= strengthMaxRIR && gained >= strengthGain {
				return PhaseStrength, nil
			}
		}
		return PhaseHypertrophy, nil
	case PhaseStrength:
		if avg > hypertrophyMinRIR {
			return PhaseHypertrophy, nil
		}
		return PhaseStrength, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPhase, currentPhase)
}
