package alpha

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/meltforce/ultimatecoach/internal/coach"
	"github.com/meltforce/ultimatecoach/internal/ingest"
	"github.com/meltforce/ultimatecoach/internal/models"
	"github.com/meltforce/ultimatecoach/internal/storage"
)

// Source is the exercise log source recorded for imported sets.
const Source = "alpha"

// Store is the persistence the provider needs.
type Store interface {
	FindDayExerciseByName(ctx context.Context, userID int, date time.Time, name string) (*models.DayExerciseRow, error)
	InsertExerciseLogs(ctx context.Context, rows []models.ExerciseLogRow) (int64, error)
}

// Completer closes an exposure once its sets are stored.
type Completer interface {
	CompleteExposure(ctx context.Context, userID int, dayExerciseID int64) (*coach.ExposureResult, error)
}

// Provider processes Alpha Progression CSV exports.
type Provider struct {
	store     Store
	completer Completer
	log       *slog.Logger
}

// NewProvider creates a new Alpha Progression ingest provider. completer
// may be nil, in which case imported exposures stay open.
func NewProvider(store Store, completer Completer, log *slog.Logger) *Provider {
	return &Provider{store: store, completer: completer, log: log}
}

// Ingest parses a CSV export and stores each exercise's working sets on the
// exercise scheduled the same day under the same name. Sets already stored
// are skipped, so re-importing an export is harmless.
func (p *Provider) Ingest(ctx context.Context, r io.Reader, userID int) (*ingest.Result, error) {
	sessions, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}

	result := &ingest.Result{SessionsReceived: len(sessions)}
	for _, s := range sessions {
		day := time.Date(s.Date.Year(), s.Date.Month(), s.Date.Day(), 0, 0, 0, 0, time.UTC)
		for _, ex := range s.Exercises {
			working := ex.WorkingSets()
			if len(working) == 0 {
				continue
			}
			result.SetsReceived += len(working)

			target, err := p.store.FindDayExerciseByName(ctx, userID, day, ex.Name)
			if errors.Is(err, storage.ErrNotFound) {
				result.SetsUnmatched += len(working)
				result.Unmatched = append(result.Unmatched, day.Format("2006-01-02")+" "+ex.Name)
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("matching %s: %w", ex.Name, err)
			}
			result.ExercisesMatched++

			inserted, err := p.store.InsertExerciseLogs(ctx, logRows(target.ID, userID, s.Date, working))
			if err != nil {
				return nil, fmt.Errorf("inserting sets for %s: %w", ex.Name, err)
			}
			result.SetsInserted += inserted
			result.SetsSkipped += int64(len(working)) - inserted

			if inserted > 0 && p.completer != nil {
				if _, err := p.completer.CompleteExposure(ctx, userID, target.ID); err != nil {
					p.log.Warn("completing imported exposure", "exercise", ex.Name, "error", err)
					continue
				}
				result.ExposuresCompleted++
			}
		}
	}

	p.log.Info("alpha import processed",
		"user_id", userID,
		"sessions", result.SessionsReceived,
		"sets", result.SetsReceived,
		"inserted", result.SetsInserted,
		"unmatched", result.SetsUnmatched,
	)
	return result, nil
}

func logRows(dayExerciseID int64, userID int, at time.Time, sets []models.AlphaSet) []models.ExerciseLogRow {
	rows := make([]models.ExerciseLogRow, 0, len(sets))
	for i, set := range sets {
		// A set without reps was never performed.
		if set.Reps < 1 {
			continue
		}
		l := set.SetLog()
		idx := set.Number
		if idx <= 0 {
			idx = i + 1
		}
		rows = append(rows, models.ExerciseLogRow{
			DayExerciseID: dayExerciseID,
			UserID:        userID,
			SetIdx:        idx,
			Weight:        l.Weight,
			Reps:          l.Reps,
			RIR:           l.RIR,
			LoggedAt:      at,
			Source:        Source,
		})
	}
	return rows
}
