package storage

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
)

// StrengthVolumeSummary holds aggregated strength training stats for a period.
type StrengthVolumeSummary struct {
	WorkingSets       int     `json:"working_sets"`
	TotalReps         int     `json:"total_reps"`
	TonnageKg         float64 `json:"tonnage_kg"`
	Sessions          int     `json:"sessions"`
	AvgSetsPerSession float64 `json:"avg_sets_per_session"`
}

// ConditioningSummary counts scheduled and completed conditioning in a period.
type ConditioningSummary struct {
	Scheduled  int `json:"scheduled"`
	Completed  int `json:"completed"`
	Successful int `json:"successful"`
}

// TrainingSummaryPeriod holds strength and conditioning data for one time period.
type TrainingSummaryPeriod struct {
	Period       string                 `json:"period"`
	Strength     *StrengthVolumeSummary `json:"strength,omitempty"`
	Conditioning *ConditioningSummary   `json:"conditioning,omitempty"`
}

// GetTrainingSummary returns strength volume and conditioning completion per period.
func (db *DB) GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, userID int) ([]TrainingSummaryPeriod, error) {
	periodMap := make(map[string]*TrainingSummaryPeriod)
	var periodOrder []string
	period := func(t time.Time) *TrainingSummaryPeriod {
		key := t.Format("2006-01-02")
		if _, ok := periodMap[key]; !ok {
			periodMap[key] = &TrainingSummaryPeriod{Period: key}
			periodOrder = append(periodOrder, key)
		}
		return periodMap[key]
	}

	strengthRows, err := db.Pool.Query(ctx,
		`SELECT date_trunc($1, d.date)::date AS period,
		        COUNT(*)::int AS working_sets,
		        COALESCE(SUM(l.reps), 0)::int AS total_reps,
		        COALESCE(SUM(l.weight * l.reps), 0) AS tonnage,
		        COUNT(DISTINCT d.id)::int AS sessions
		 FROM exercise_logs l
		 JOIN day_exercises de ON de.id = l.day_exercise_id
		 JOIN day_plans d ON d.id = de.day_id
		 WHERE d.date >= $2 AND d.date < $3 AND l.user_id = $4
		 GROUP BY period
		 ORDER BY period DESC`,
		truncInterval(bucket), start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying strength summary: %w", err)
	}
	defer strengthRows.Close()

	for strengthRows.Next() {
		var periodTime time.Time
		var sv StrengthVolumeSummary
		if err := strengthRows.Scan(&periodTime, &sv.WorkingSets, &sv.TotalReps, &sv.TonnageKg, &sv.Sessions); err != nil {
			return nil, fmt.Errorf("scanning strength summary: %w", err)
		}
		if sv.Sessions > 0 {
			sv.AvgSetsPerSession = float64(sv.WorkingSets) / float64(sv.Sessions)
		}
		period(periodTime).Strength = &sv
	}
	if err := strengthRows.Err(); err != nil {
		return nil, err
	}

	condRows, err := db.Pool.Query(ctx,
		`SELECT date_trunc($1, d.date)::date AS period,
		        COUNT(*)::int,
		        COUNT(c.completed_at)::int,
		        COUNT(*) FILTER (WHERE c.success)::int
		 FROM conditioning c
		 JOIN day_plans d ON d.id = c.day_id
		 JOIN programs p ON p.id = d.program_id
		 WHERE d.date >= $2 AND d.date < $3 AND p.user_id = $4
		 GROUP BY period
		 ORDER BY period DESC`,
		truncInterval(bucket), start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying conditioning summary: %w", err)
	}
	defer condRows.Close()

	for condRows.Next() {
		var periodTime time.Time
		var cs ConditioningSummary
		if err := condRows.Scan(&periodTime, &cs.Scheduled, &cs.Completed, &cs.Successful); err != nil {
			return nil, fmt.Errorf("scanning conditioning summary: %w", err)
		}
		period(periodTime).Conditioning = &cs
	}
	if err := condRows.Err(); err != nil {
		return nil, err
	}

	result := make([]TrainingSummaryPeriod, 0, len(periodOrder))
	for _, key := range periodOrder {
		result = append(result, *periodMap[key])
	}
	slices.SortFunc(result, func(a, b TrainingSummaryPeriod) int {
		return strings.Compare(b.Period, a.Period)
	})
	return result, nil
}

// truncInterval converts bucket strings like "1 month" to the interval name
// that date_trunc expects (e.g. "month", "week").
func truncInterval(bucket string) string {
	switch bucket {
	case "1 week", "week":
		return "week"
	case "1 month", "month":
		return "month"
	default:
		return "week"
	}
}
