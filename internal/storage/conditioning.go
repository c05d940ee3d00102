package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/meltforce/ultimatecoach/internal/models"
)

// GetConditioning returns one conditioning session owned by the user.
func (db *DB) GetConditioning(ctx context.Context, userID int, id int64) (*models.ConditioningRow, error) {
	c, err := scanConditioning(db.Pool.QueryRow(ctx,
		conditioningSelect+` WHERE p.user_id = $1 AND c.id = $2`, userID, id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("conditioning %d", id))
	}
	return &c, nil
}

// NextWeekConditioning returns the conditioning on the same day index of
// the following week.
func (db *DB) NextWeekConditioning(ctx context.Context, userID, weekIdx, dayIdx int) (*models.ConditioningRow, error) {
	c, err := scanConditioning(db.Pool.QueryRow(ctx,
		conditioningSelect+` WHERE p.user_id = $1 AND d.week_idx = $2 AND d.day_idx = $3`,
		userID, weekIdx+1, dayIdx))
	if err != nil {
		return nil, notFound(err, "next week conditioning")
	}
	return &c, nil
}

// CompleteConditioning records the outcome of a session.
func (db *DB) CompleteConditioning(ctx context.Context, id int64, success bool, at time.Time) error {
	_, err := db.Pool.Exec(ctx,
		`UPDATE conditioning SET completed_at = $2, success = $3 WHERE id = $1`,
		id, at, success)
	if err != nil {
		return fmt.Errorf("completing conditioning %d: %w", id, err)
	}
	return nil
}

// UpdateConditioningProtocol replaces the protocol text of a session.
func (db *DB) UpdateConditioningProtocol(ctx context.Context, id int64, protocol string) error {
	_, err := db.Pool.Exec(ctx,
		`UPDATE conditioning SET protocol_text = $2 WHERE id = $1`, id, protocol)
	if err != nil {
		return fmt.Errorf("updating conditioning %d: %w", id, err)
	}
	return nil
}
