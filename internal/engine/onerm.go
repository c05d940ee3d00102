package engine

// Estimate1RM is the lenient Epley estimate: non-positive reps pass the
// weight straight through.
func Estimate1RM(weight float64, reps int) float64 {
	if reps <= 0 {
		return weight
	}
	return weight * (1.0 + float64(reps)/30.0)
}

// Epley1RM is the strict Epley estimate used for progress reporting. It
// returns 0 unless weight > 0 and reps >= 1.
func Epley1RM(weight float64, reps int) float64 {
	if weight <= 0 || reps < 1 {
		return 0
	}
	return weight * (1.0 + float64(reps)/30.0)
}
