package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meltforce/ultimatecoach/internal/models"
)

// GetProgram returns the user's program or ErrNotFound.
func (db *DB) GetProgram(ctx context.Context, userID int) (*models.ProgramRow, error) {
	var p models.ProgramRow
	err := db.Pool.QueryRow(ctx,
		`SELECT id, user_id, name, start_date, total_weeks, created_at
		 FROM programs WHERE user_id = $1`, userID,
	).Scan(&p.ID, &p.UserID, &p.Name, &p.StartDate, &p.TotalWeeks, &p.CreatedAt)
	if err != nil {
		return nil, notFound(err, "program")
	}
	return &p, nil
}

// ReplaceProgram deletes the user's program, templates and phase states and
// writes p in a single transaction. Returns the new program ID.
func (db *DB) ReplaceProgram(ctx context.Context, userID int, p models.NewProgram) (uuid.UUID, error) {
	id := uuid.New()
	err := pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM programs WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("deleting program: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM exercise_templates WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("deleting templates: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO programs (id, user_id, name, start_date, total_weeks) VALUES ($1,$2,$3,$4,$5)`,
			id, userID, p.Name, p.StartDate, p.TotalWeeks); err != nil {
			return fmt.Errorf("inserting program: %w", err)
		}

		templates := make(map[string]int64)
		for _, d := range p.Days {
			var dayID int64
			if err := tx.QueryRow(ctx,
				`INSERT INTO day_plans (program_id, week_idx, day_idx, date) VALUES ($1,$2,$3,$4) RETURNING id`,
				id, d.WeekIdx, d.DayIdx, d.Date,
			).Scan(&dayID); err != nil {
				return fmt.Errorf("inserting day %d/%d: %w", d.WeekIdx, d.DayIdx, err)
			}

			for i, ex := range d.Exercises {
				tplID, ok := templates[ex.Template.Name]
				if !ok {
					var err error
					if tplID, err = insertTemplate(ctx, tx, userID, ex.Template); err != nil {
						return err
					}
					templates[ex.Template.Name] = tplID
				}

				var dayExID int64
				if err := tx.QueryRow(ctx,
					`INSERT INTO day_exercises (day_id, template_id, target_weight, rep_min, rep_max, sets, order_idx, phase)
					 VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
					dayID, tplID, ex.TargetWeight, ex.RepMin, ex.RepMax, ex.Sets, i, ex.Phase,
				).Scan(&dayExID); err != nil {
					return fmt.Errorf("inserting %s on day %d/%d: %w", ex.Template.Name, d.WeekIdx, d.DayIdx, err)
				}

				for _, l := range ex.Logs {
					source := l.Source
					if source == "" {
						source = "import"
					}
					if _, err := tx.Exec(ctx,
						`INSERT INTO exercise_logs (day_exercise_id, user_id, set_idx, weight, reps, rir, logged_at, source)
						 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
						dayExID, userID, l.SetIdx, l.Weight, l.Reps, l.RIR, l.LoggedAt, source); err != nil {
						return fmt.Errorf("inserting log: %w", err)
					}
				}
			}

			if c := d.Conditioning; c != nil {
				if _, err := tx.Exec(ctx,
					`INSERT INTO conditioning (day_id, type, protocol_text, target_zone, target_pace, duration_min, completed_at, success)
					 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
					dayID, c.Type, c.ProtocolText, c.TargetZone, c.TargetPace, c.DurationMin, c.CompletedAt, c.Success); err != nil {
					return fmt.Errorf("inserting conditioning: %w", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("replacing program: %w", err)
	}
	return id, nil
}

func insertTemplate(ctx context.Context, tx pgx.Tx, userID int, t models.ExerciseTemplateRow) (int64, error) {
	phaseMode := t.PhaseMode
	if phaseMode == "" {
		phaseMode = "AUTO"
	}
	progression := t.Progression
	if progression == "" {
		progression = models.ProgressionDouble
	}
	var id int64
	err := tx.QueryRow(ctx,
		`INSERT INTO exercise_templates (user_id, name, muscle_group, equipment, default_sets,
		 rep_min, rep_max, rest_sec, tempo, phase_mode, progression)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING id`,
		userID, t.Name, t.MuscleGroup, t.Equipment, t.DefaultSets,
		t.RepMin, t.RepMax, t.RestSec, t.Tempo, phaseMode, progression,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting template %s: %w", t.Name, err)
	}
	return id, nil
}

// ListTemplates returns the user's exercise templates ordered by name.
func (db *DB) ListTemplates(ctx context.Context, userID int) ([]models.ExerciseTemplateRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, name, muscle_group, equipment, default_sets,
		 rep_min, rep_max, rest_sec, tempo, phase_mode, progression
		 FROM exercise_templates WHERE user_id = $1 ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying templates: %w", err)
	}
	defer rows.Close()

	var result []models.ExerciseTemplateRow
	for rows.Next() {
		var t models.ExerciseTemplateRow
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.MuscleGroup, &t.Equipment, &t.DefaultSets,
			&t.RepMin, &t.RepMax, &t.RestSec, &t.Tempo, &t.PhaseMode, &t.Progression); err != nil {
			return nil, fmt.Errorf("scanning template: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// ListDays returns every day of a program ordered by week and day.
func (db *DB) ListDays(ctx context.Context, programID uuid.UUID) ([]models.DayPlanRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, program_id, week_idx, day_idx, date FROM day_plans
		 WHERE program_id = $1 ORDER BY week_idx, day_idx`, programID)
	if err != nil {
		return nil, fmt.Errorf("querying days: %w", err)
	}
	defer rows.Close()

	var result []models.DayPlanRow
	for rows.Next() {
		var d models.DayPlanRow
		if err := rows.Scan(&d.ID, &d.ProgramID, &d.WeekIdx, &d.DayIdx, &d.Date); err != nil {
			return nil, fmt.Errorf("scanning day: %w", err)
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// RescheduleProgram sets a new start date and writes each day's Date.
func (db *DB) RescheduleProgram(ctx context.Context, programID uuid.UUID, start time.Time, days []models.DayPlanRow) error {
	batch := &pgx.Batch{}
	batch.Queue(`UPDATE programs SET start_date = $2 WHERE id = $1`, programID, start)
	for _, d := range days {
		batch.Queue(`UPDATE day_plans SET date = $2 WHERE id = $1 AND program_id = $3`, d.ID, d.Date, programID)
	}

	br := db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("rescheduling program: %w", err)
		}
	}
	return nil
}
