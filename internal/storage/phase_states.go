package storage

import (
	"context"
	"fmt"

	"github.com/meltforce/ultimatecoach/internal/models"
)

// GetPhaseState returns the periodization state of a template or ErrNotFound.
func (db *DB) GetPhaseState(ctx context.Context, userID int, templateID int64) (*models.PhaseStateRow, error) {
	var s models.PhaseStateRow
	err := db.Pool.QueryRow(ctx,
		`SELECT user_id, template_id, current_phase, block_start_load, consecutive_misses, last_switch_at,
			last_day_exercise_id, prior_misses, prior_block_start_load
		 FROM phase_states WHERE user_id = $1 AND template_id = $2`,
		userID, templateID,
	).Scan(&s.UserID, &s.TemplateID, &s.CurrentPhase, &s.BlockStartLoad, &s.ConsecutiveMisses, &s.LastSwitchAt,
		&s.LastDayExerciseID, &s.PriorMisses, &s.PriorBlockStartLoad)
	if err != nil {
		return nil, notFound(err, "phase state")
	}
	return &s, nil
}

// UpsertPhaseState writes the periodization state of a template.
func (db *DB) UpsertPhaseState(ctx context.Context, s models.PhaseStateRow) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO phase_states (user_id, template_id, current_phase, block_start_load, consecutive_misses, last_switch_at,
			last_day_exercise_id, prior_misses, prior_block_start_load)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 ON CONFLICT (user_id, template_id) DO UPDATE SET
			current_phase = EXCLUDED.current_phase,
			block_start_load = EXCLUDED.block_start_load,
			consecutive_misses = EXCLUDED.consecutive_misses,
			last_switch_at = EXCLUDED.last_switch_at,
			last_day_exercise_id = EXCLUDED.last_day_exercise_id,
			prior_misses = EXCLUDED.prior_misses,
			prior_block_start_load = EXCLUDED.prior_block_start_load`,
		s.UserID, s.TemplateID, s.CurrentPhase, s.BlockStartLoad, s.ConsecutiveMisses, s.LastSwitchAt,
		s.LastDayExerciseID, s.PriorMisses, s.PriorBlockStartLoad)
	if err != nil {
		return fmt.Errorf("upserting phase state: %w", err)
	}
	return nil
}
