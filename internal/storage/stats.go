package storage

import (
	"context"
	"fmt"
	"time"
)

// DataStats holds aggregate statistics about a user's logged training.
type DataStats struct {
	ScheduledDays         int64             `json:"scheduled_days"`
	TotalSets             int64             `json:"total_sets"`
	LoggedExposures       int64             `json:"logged_exposures"`
	CompletedConditioning int64             `json:"completed_conditioning"`
	EarliestLog           *time.Time        `json:"earliest_log"`
	LatestLog             *time.Time        `json:"latest_log"`
	SetsByExercise        []ExerciseSetStat `json:"sets_by_exercise"`
	SetsBySource          map[string]int64  `json:"sets_by_source"`
}

// ExerciseSetStat holds the logged volume of a single exercise.
type ExerciseSetStat struct {
	Name      string  `json:"name"`
	Sets      int64   `json:"sets"`
	TotalReps int64   `json:"total_reps"`
	TonnageKg float64 `json:"tonnage_kg"`
}

// GetDataStats returns aggregate statistics for a user's stored data.
func (db *DB) GetDataStats(ctx context.Context, userID int) (*DataStats, error) {
	stats := &DataStats{SetsBySource: map[string]int64{}}

	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM day_plans d JOIN programs p ON p.id = d.program_id WHERE p.user_id = $1`, userID,
	).Scan(&stats.ScheduledDays)
	if err != nil {
		return nil, fmt.Errorf("counting days: %w", err)
	}

	err = db.Pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT day_exercise_id), MIN(logged_at), MAX(logged_at)
		 FROM exercise_logs WHERE user_id = $1`, userID,
	).Scan(&stats.TotalSets, &stats.LoggedExposures, &stats.EarliestLog, &stats.LatestLog)
	if err != nil {
		return nil, fmt.Errorf("counting sets: %w", err)
	}

	err = db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM conditioning c
		 JOIN day_plans d ON d.id = c.day_id
		 JOIN programs p ON p.id = d.program_id
		 WHERE p.user_id = $1 AND c.completed_at IS NOT NULL`, userID,
	).Scan(&stats.CompletedConditioning)
	if err != nil {
		return nil, fmt.Errorf("counting conditioning: %w", err)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT t.name, COUNT(*), COALESCE(SUM(l.reps), 0), COALESCE(SUM(l.weight * l.reps), 0)
		 FROM exercise_logs l
		 JOIN day_exercises de ON de.id = l.day_exercise_id
		 JOIN exercise_templates t ON t.id = de.template_id
		 WHERE l.user_id = $1
		 GROUP BY t.name
		 ORDER BY COUNT(*) DESC, t.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying sets by exercise: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s ExerciseSetStat
		if err := rows.Scan(&s.Name, &s.Sets, &s.TotalReps, &s.TonnageKg); err != nil {
			return nil, fmt.Errorf("scanning exercise stat: %w", err)
		}
		stats.SetsByExercise = append(stats.SetsByExercise, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	srcRows, err := db.Pool.Query(ctx,
		`SELECT source, COUNT(*) FROM exercise_logs WHERE user_id = $1 GROUP BY source`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying sets by source: %w", err)
	}
	defer srcRows.Close()

	for srcRows.Next() {
		var source string
		var n int64
		if err := srcRows.Scan(&source, &n); err != nil {
			return nil, fmt.Errorf("scanning source stat: %w", err)
		}
		stats.SetsBySource[source] = n
	}
	if err := srcRows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
