package engine

const (
	pullupAddReps    = 32
	pullupRemoveReps = 20
	pullupStep       = 2.5
)

// PullupVolume is the aggregate of one pulling exposure.
type PullupVolume struct {
	TotalReps            int     `json:"total_reps"`
	SuggestedWeightDelta float64 `json:"suggested_weight_delta"`
}

// AggregatePullupVolume sums reps across logs and suggests a change to the
// added external load.
func AggregatePullupVolume(logs []SetLog) PullupVolume {
	var total int
	var weighted bool
	for _, l := range logs {
		total += l.Reps
		if l.Weight != nil && *l.Weight > 0 {
			weighted = true
		}
	}

	v := PullupVolume{TotalReps: total}
	switch {
	case total >= pullupAddReps:
		v.SuggestedWeightDelta = pullupStep
	case weighted && total < pullupRemoveReps:
		v.SuggestedWeightDelta = -pullupStep
	}
	return v
}
