package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/meltforce/ultimatecoach/internal/models"
)

// InsertExerciseLogs batch-inserts logged sets. Sets already stored for the
// same exercise and index are skipped. Returns count inserted.
func (db *DB) InsertExerciseLogs(ctx context.Context, rows []models.ExerciseLogRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query := `INSERT INTO exercise_logs (day_exercise_id, user_id, set_idx, weight, reps, rir, logged_at, source) VALUES `
	args := make([]any, 0, len(rows)*8)
	valueStrings := make([]string, 0, len(rows))

	for i, r := range rows {
		base := i * 8
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8,
		))
		loggedAt := r.LoggedAt
		if loggedAt.IsZero() {
			loggedAt = time.Now()
		}
		source := r.Source
		if source == "" {
			source = "manual"
		}
		args = append(args, r.DayExerciseID, r.UserID, r.SetIdx, r.Weight, r.Reps, r.RIR, loggedAt, source)
	}

	query += strings.Join(valueStrings, ",") + " ON CONFLICT (day_exercise_id, set_idx) DO NOTHING"

	tag, err := db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting exercise logs: %w", err)
	}
	return tag.RowsAffected(), nil
}

const exerciseLogColumns = `l.id, l.day_exercise_id, l.user_id, l.set_idx, l.weight, l.reps, l.rir, l.logged_at, l.source`

func scanExerciseLog(s scanner) (models.ExerciseLogRow, error) {
	var r models.ExerciseLogRow
	err := s.Scan(&r.ID, &r.DayExerciseID, &r.UserID, &r.SetIdx, &r.Weight, &r.Reps, &r.RIR, &r.LoggedAt, &r.Source)
	return r, err
}

func (db *DB) queryExerciseLogs(ctx context.Context, query string, args ...any) ([]models.ExerciseLogRow, error) {
	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying exercise logs: %w", err)
	}
	defer rows.Close()

	var result []models.ExerciseLogRow
	for rows.Next() {
		r, err := scanExerciseLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning exercise log: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// QueryExerciseLogs returns the sets logged for one scheduled exercise.
func (db *DB) QueryExerciseLogs(ctx context.Context, userID int, dayExerciseID int64) ([]models.ExerciseLogRow, error) {
	return db.queryExerciseLogs(ctx,
		`SELECT `+exerciseLogColumns+` FROM exercise_logs l
		 WHERE l.user_id = $1 AND l.day_exercise_id = $2
		 ORDER BY l.set_idx`,
		userID, dayExerciseID)
}

// RecentTemplateLogs returns the sets of the last n logged exposures of a
// template, oldest first.
func (db *DB) RecentTemplateLogs(ctx context.Context, userID int, templateID int64, n int) ([]models.ExerciseLogRow, error) {
	return db.queryExerciseLogs(ctx,
		`SELECT `+exerciseLogColumns+` FROM exercise_logs l
		 JOIN day_exercises de ON de.id = l.day_exercise_id
		 JOIN day_plans d ON d.id = de.day_id
		 WHERE l.user_id = $1 AND l.day_exercise_id IN (
			SELECT de2.id FROM day_exercises de2
			JOIN day_plans d2 ON d2.id = de2.day_id
			WHERE de2.template_id = $2
			  AND EXISTS (SELECT 1 FROM exercise_logs x WHERE x.day_exercise_id = de2.id)
			ORDER BY d2.date DESC, de2.id DESC
			LIMIT $3)
		 ORDER BY d.date, l.day_exercise_id, l.set_idx`,
		userID, templateID, n)
}

// ListUserExerciseLogs returns every set the user has logged.
func (db *DB) ListUserExerciseLogs(ctx context.Context, userID int) ([]models.ExerciseLogRow, error) {
	return db.queryExerciseLogs(ctx,
		`SELECT `+exerciseLogColumns+` FROM exercise_logs l
		 WHERE l.user_id = $1
		 ORDER BY l.day_exercise_id, l.set_idx`,
		userID)
}

// LoggedSet is a logged set with its exercise name and day.
type LoggedSet struct {
	Date     string   `json:"date"`
	Exercise string   `json:"exercise"`
	WeekIdx  int      `json:"week_idx"`
	DayIdx   int      `json:"day_idx"`
	Phase    string   `json:"phase"`
	SetIdx   int      `json:"set_idx"`
	Weight   *float64 `json:"weight,omitempty"`
	Reps     int      `json:"reps"`
	RIR      *float64 `json:"rir,omitempty"`
	Source   string   `json:"source"`
}

// QueryLoggedSets returns logged sets on days in [start, end), optionally
// filtered by a case-insensitive exercise name fragment.
func (db *DB) QueryLoggedSets(ctx context.Context, userID int, start, end time.Time, exercise string) ([]LoggedSet, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT d.date, t.name, d.week_idx, d.day_idx, de.phase, l.set_idx, l.weight, l.reps, l.rir, l.source
		 FROM exercise_logs l
		 JOIN day_exercises de ON de.id = l.day_exercise_id
		 JOIN day_plans d ON d.id = de.day_id
		 JOIN exercise_templates t ON t.id = de.template_id
		 WHERE l.user_id = $1 AND d.date >= $2 AND d.date < $3
		   AND ($4 = '' OR t.name ILIKE '%' || $4 || '%')
		 ORDER BY d.date DESC, de.order_idx, l.set_idx`,
		userID, start, end, exercise)
	if err != nil {
		return nil, fmt.Errorf("querying logged sets: %w", err)
	}
	defer rows.Close()

	var result []LoggedSet
	for rows.Next() {
		var s LoggedSet
		var d time.Time
		if err := rows.Scan(&d, &s.Exercise, &s.WeekIdx, &s.DayIdx, &s.Phase, &s.SetIdx,
			&s.Weight, &s.Reps, &s.RIR, &s.Source); err != nil {
			return nil, fmt.Errorf("scanning logged set: %w", err)
		}
		s.Date = d.Format("2006-01-02")
		result = append(result, s)
	}
	return result, rows.Err()
}
