package coach

import (
	"context"
	"errors"

	"github.com/meltforce/ultimatecoach/internal/engine"
	"github.com/meltforce/ultimatecoach/internal/storage"
)

// ConditioningResult is the outcome of completing a conditioning session.
type ConditioningResult struct {
	ConditioningID     int64  `json:"conditioning_id"`
	Success            bool   `json:"success"`
	Protocol           string `json:"protocol"`
	NextProtocol       string `json:"next_protocol"`
	NextConditioningID *int64 `json:"next_conditioning_id,omitempty"`
}

// CompleteConditioning records the session outcome and writes the advanced
// protocol into the same day of the following week.
func (s *Service) CompleteConditioning(ctx context.Context, userID int, id int64, success bool) (*ConditioningResult, error) {
	c, err := s.store.GetConditioning(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.CompleteConditioning(ctx, id, success, s.now()); err != nil {
		return nil, err
	}

	result := &ConditioningResult{
		ConditioningID: id,
		Success:        success,
		Protocol:       c.ProtocolText,
		NextProtocol:   engine.NextRowingPrescription(c.ProtocolText, success),
	}

	next, err := s.store.NextWeekConditioning(ctx, userID, c.WeekIdx, c.DayIdx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		if err := s.store.UpdateConditioningProtocol(ctx, next.ID, result.NextProtocol); err != nil {
			return nil, err
		}
		result.NextConditioningID = &next.ID
	}

	s.logger.Info("conditioning completed",
		"user_id", userID,
		"week", c.WeekIdx,
		"day", c.DayIdx,
		"success", success,
		"protocol", c.ProtocolText,
		"next", result.NextProtocol,
	)
	return result, nil
}
