package program

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/ultimatecoach/internal/models"
	"github.com/meltforce/ultimatecoach/internal/storage"
)

// Store is the persistence the seeder needs.
type Store interface {
	GetProgram(ctx context.Context, userID int) (*models.ProgramRow, error)
	ReplaceProgram(ctx context.Context, userID int, p models.NewProgram) (uuid.UUID, error)
	ListDays(ctx context.Context, programID uuid.UUID) ([]models.DayPlanRow, error)
	RescheduleProgram(ctx context.Context, programID uuid.UUID, start time.Time, days []models.DayPlanRow) error
}

// Seeder creates a user's program from a template.
type Seeder struct {
	store    Store
	template Template
	logger   *slog.Logger
}

func NewSeeder(store Store, template Template, logger *slog.Logger) *Seeder {
	return &Seeder{store: store, template: template, logger: logger}
}

// SeedIfNeeded writes the template as the user's program unless one already
// exists. A zero start uses the template's start date. Reports whether a
// program was created.
func (s *Seeder) SeedIfNeeded(ctx context.Context, userID int, start time.Time) (bool, error) {
	existing, err := s.store.GetProgram(ctx, userID)
	if err == nil {
		s.logger.Debug("seed skipped", "user_id", userID, "program", existing.Name)
		return false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return false, fmt.Errorf("checking program: %w", err)
	}

	if start.IsZero() {
		if start, err = s.template.Start(); err != nil {
			return false, err
		}
	}
	plan := Build(s.template, start)
	id, err := s.store.ReplaceProgram(ctx, userID, plan)
	if err != nil {
		return false, fmt.Errorf("seeding program: %w", err)
	}
	s.logger.Info("program seeded",
		"user_id", userID,
		"program_id", id,
		"program", plan.Name,
		"weeks", plan.TotalWeeks,
		"days", len(plan.Days),
		"start", plan.StartDate.Format("2006-01-02"),
	)
	return true, nil
}

// SoftRestart moves the user's program to a new start date, recomputing
// every day's date and keeping logs and targets.
func (s *Seeder) SoftRestart(ctx context.Context, userID int, start time.Time) error {
	p, err := s.store.GetProgram(ctx, userID)
	if err != nil {
		return fmt.Errorf("loading program: %w", err)
	}
	days, err := s.store.ListDays(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("loading days: %w", err)
	}

	start = StartOfDay(start)
	for i := range days {
		days[i].Date = ComputeDate(start, days[i].WeekIdx, days[i].DayIdx)
	}
	if err := s.store.RescheduleProgram(ctx, p.ID, start, days); err != nil {
		return err
	}
	s.logger.Info("program restarted", "user_id", userID, "start", start.Format("2006-01-02"), "days", len(days))
	return nil
}
