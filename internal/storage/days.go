package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/meltforce/ultimatecoach/internal/engine"
	"github.com/meltforce/ultimatecoach/internal/models"
)

type scanner interface {
	Scan(dest ...any) error
}

const dayExerciseSelect = `SELECT de.id, de.day_id, de.template_id, t.name, t.equipment, t.progression, t.rest_sec,
	d.week_idx, d.day_idx, d.date, de.target_weight, de.rep_min, de.rep_max, de.sets, de.order_idx, de.phase
	FROM day_exercises de
	JOIN day_plans d ON d.id = de.day_id
	JOIN programs p ON p.id = d.program_id
	JOIN exercise_templates t ON t.id = de.template_id`

func scanDayExercise(s scanner) (models.DayExerciseRow, error) {
	var r models.DayExerciseRow
	err := s.Scan(&r.ID, &r.DayID, &r.TemplateID, &r.TemplateName, &r.Equipment, &r.Progression, &r.RestSec,
		&r.WeekIdx, &r.DayIdx, &r.Date, &r.TargetWeight, &r.RepMin, &r.RepMax, &r.Sets, &r.OrderIdx, &r.Phase)
	return r, err
}

const conditioningSelect = `SELECT c.id, c.day_id, d.week_idx, d.day_idx, d.date, c.type, c.protocol_text,
	c.target_zone, c.target_pace, c.duration_min, c.completed_at, c.success
	FROM conditioning c
	JOIN day_plans d ON d.id = c.day_id
	JOIN programs p ON p.id = d.program_id`

func scanConditioning(s scanner) (models.ConditioningRow, error) {
	var c models.ConditioningRow
	err := s.Scan(&c.ID, &c.DayID, &c.WeekIdx, &c.DayIdx, &c.Date, &c.Type, &c.ProtocolText,
		&c.TargetZone, &c.TargetPace, &c.DurationMin, &c.CompletedAt, &c.Success)
	return c, err
}

// ListDayDetails returns the user's days dated in [start, end) with their
// exercises and conditioning, ordered by date.
func (db *DB) ListDayDetails(ctx context.Context, userID int, start, end time.Time) ([]models.DayDetail, error) {
	return db.listDayDetails(ctx, userID, &start, &end)
}

// ListProgramDays returns every day of the user's program.
func (db *DB) ListProgramDays(ctx context.Context, userID int) ([]models.DayDetail, error) {
	return db.listDayDetails(ctx, userID, nil, nil)
}

// GetDayByDate returns the scheduled day for date or ErrNotFound.
func (db *DB) GetDayByDate(ctx context.Context, userID int, date time.Time) (*models.DayDetail, error) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	days, err := db.ListDayDetails(ctx, userID, start, start.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("day %s: %w", start.Format("2006-01-02"), ErrNotFound)
	}
	return &days[0], nil
}

func (db *DB) listDayDetails(ctx context.Context, userID int, start, end *time.Time) ([]models.DayDetail, error) {
	const rangeFilter = ` WHERE p.user_id = $1
		AND ($2::date IS NULL OR d.date >= $2)
		AND ($3::date IS NULL OR d.date < $3)`

	dayRows, err := db.Pool.Query(ctx,
		`SELECT d.id, d.program_id, d.week_idx, d.day_idx, d.date
		 FROM day_plans d JOIN programs p ON p.id = d.program_id`+rangeFilter+
			` ORDER BY d.date, d.week_idx, d.day_idx`,
		userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying days: %w", err)
	}
	defer dayRows.Close()

	var result []models.DayDetail
	index := make(map[int64]int)
	for dayRows.Next() {
		var d models.DayDetail
		if err := dayRows.Scan(&d.ID, &d.ProgramID, &d.WeekIdx, &d.DayIdx, &d.Date); err != nil {
			return nil, fmt.Errorf("scanning day: %w", err)
		}
		d.Exercises = []models.DayExerciseRow{}
		index[d.ID] = len(result)
		result = append(result, d)
	}
	if err := dayRows.Err(); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return result, nil
	}

	exRows, err := db.Pool.Query(ctx, dayExerciseSelect+rangeFilter+` ORDER BY d.date, de.order_idx`,
		userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying day exercises: %w", err)
	}
	defer exRows.Close()
	for exRows.Next() {
		r, err := scanDayExercise(exRows)
		if err != nil {
			return nil, fmt.Errorf("scanning day exercise: %w", err)
		}
		if i, ok := index[r.DayID]; ok {
			result[i].Exercises = append(result[i].Exercises, r)
		}
	}
	if err := exRows.Err(); err != nil {
		return nil, err
	}

	condRows, err := db.Pool.Query(ctx, conditioningSelect+rangeFilter, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying conditioning: %w", err)
	}
	defer condRows.Close()
	for condRows.Next() {
		c, err := scanConditioning(condRows)
		if err != nil {
			return nil, fmt.Errorf("scanning conditioning: %w", err)
		}
		if i, ok := index[c.DayID]; ok {
			result[i].Conditioning = &c
		}
	}
	return result, condRows.Err()
}

// GetDayExercise returns one scheduled exercise owned by the user.
func (db *DB) GetDayExercise(ctx context.Context, userID int, id int64) (*models.DayExerciseRow, error) {
	r, err := scanDayExercise(db.Pool.QueryRow(ctx,
		dayExerciseSelect+` WHERE p.user_id = $1 AND de.id = $2`, userID, id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("day exercise %d", id))
	}
	return &r, nil
}

// NextWeekDayExercise finds the same template scheduled in the following
// week, preferring the same day index.
func (db *DB) NextWeekDayExercise(ctx context.Context, userID int, templateID int64, weekIdx, dayIdx int) (*models.DayExerciseRow, error) {
	r, err := scanDayExercise(db.Pool.QueryRow(ctx,
		dayExerciseSelect+` WHERE p.user_id = $1 AND de.template_id = $2 AND d.week_idx = $3
		 ORDER BY (d.day_idx = $4) DESC, d.day_idx, de.order_idx
		 LIMIT 1`,
		userID, templateID, weekIdx+1, dayIdx))
	if err != nil {
		return nil, notFound(err, "next week exercise")
	}
	return &r, nil
}

// FindDayExerciseByName finds the exercise scheduled on date whose template
// name matches case-insensitively.
func (db *DB) FindDayExerciseByName(ctx context.Context, userID int, date time.Time, name string) (*models.DayExerciseRow, error) {
	r, err := scanDayExercise(db.Pool.QueryRow(ctx,
		dayExerciseSelect+` WHERE p.user_id = $1 AND d.date = $2 AND lower(t.name) = lower($3)
		 ORDER BY de.order_idx LIMIT 1`,
		userID, date, name))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("exercise %q", name))
	}
	return &r, nil
}

// UpdateDayExerciseTarget overwrites the prescription of a scheduled exercise.
func (db *DB) UpdateDayExerciseTarget(ctx context.Context, id int64, t engine.Target) error {
	_, err := db.Pool.Exec(ctx,
		`UPDATE day_exercises SET target_weight = $2, rep_min = $3, rep_max = $4, sets = $5, phase = $6
		 WHERE id = $1`,
		id, t.Weight, t.RepMin, t.RepMax, t.Sets, string(t.Phase))
	if err != nil {
		return fmt.Errorf("updating target for day exercise %d: %w", id, err)
	}
	return nil
}
