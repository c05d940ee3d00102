package program

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/ultimatecoach/internal/models"
	"github.com/meltforce/ultimatecoach/internal/storage"
)

type fakeStore struct {
	program     *models.ProgramRow
	plan        *models.NewProgram
	days        []models.DayPlanRow
	rescheduled time.Time
}

func (f *fakeStore) GetProgram(_ context.Context, _ int) (*models.ProgramRow, error) {
	if f.program == nil {
		return nil, storage.ErrNotFound
	}
	return f.program, nil
}

func (f *fakeStore) ReplaceProgram(_ context.Context, userID int, p models.NewProgram) (uuid.UUID, error) {
	f.plan = &p
	f.program = &models.ProgramRow{ID: uuid.New(), UserID: userID, Name: p.Name, StartDate: p.StartDate, TotalWeeks: p.TotalWeeks}
	f.days = nil
	for i, d := range p.Days {
		f.days = append(f.days, models.DayPlanRow{ID: int64(i + 1), ProgramID: f.program.ID, WeekIdx: d.WeekIdx, DayIdx: d.DayIdx, Date: d.Date})
	}
	return f.program.ID, nil
}

func (f *fakeStore) ListDays(_ context.Context, _ uuid.UUID) ([]models.DayPlanRow, error) {
	return append([]models.DayPlanRow(nil), f.days...), nil
}

func (f *fakeStore) RescheduleProgram(_ context.Context, _ uuid.UUID, start time.Time, days []models.DayPlanRow) error {
	f.rescheduled = start
	f.days = days
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestSeedIfNeededCreatesProgram verifies the first call writes the template.
func TestSeedIfNeededCreatesProgram(t *testing.T) {
	tpl, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	store := &fakeStore{}
	seeded, err := NewSeeder(store, tpl, testLogger()).SeedIfNeeded(context.Background(), 1, date(2025, 9, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !seeded {
		t.Error("seeded = false, want true")
	}
	if store.plan == nil || len(store.plan.Days) != 48 {
		t.Fatalf("plan not written: %+v", store.plan)
	}
	if !store.plan.StartDate.Equal(date(2025, 9, 1)) {
		t.Errorf("start = %v", store.plan.StartDate)
	}
}

// TestSeedIfNeededUsesTemplateStart verifies a zero start falls back to the template date.
func TestSeedIfNeededUsesTemplateStart(t *testing.T) {
	tpl, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	store := &fakeStore{}
	if _, err := NewSeeder(store, tpl, testLogger()).SeedIfNeeded(context.Background(), 1, time.Time{}); err != nil {
		t.Fatal(err)
	}
	if !store.plan.StartDate.Equal(date(2025, 1, 6)) {
		t.Errorf("start = %v, want 2025-01-06", store.plan.StartDate)
	}
}

// TestSeedIfNeededSkipsExisting verifies an existing program is left alone.
func TestSeedIfNeededSkipsExisting(t *testing.T) {
	tpl, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	store := &fakeStore{program: &models.ProgramRow{Name: "mine"}}
	seeded, err := NewSeeder(store, tpl, testLogger()).SeedIfNeeded(context.Background(), 1, date(2025, 9, 1))
	if err != nil {
		t.Fatal(err)
	}
	if seeded || store.plan != nil {
		t.Error("existing program was overwritten")
	}
}

// TestSoftRestart verifies every day is redated from the new start.
func TestSoftRestart(t *testing.T) {
	tpl, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	store := &fakeStore{}
	s := NewSeeder(store, tpl, testLogger())
	if _, err := s.SeedIfNeeded(context.Background(), 1, date(2025, 1, 6)); err != nil {
		t.Fatal(err)
	}
	if err := s.SoftRestart(context.Background(), 1, time.Date(2025, 10, 6, 15, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("SoftRestart: %v", err)
	}
	if !store.rescheduled.Equal(date(2025, 10, 6)) {
		t.Errorf("start = %v, want 2025-10-06", store.rescheduled)
	}
	for _, d := range store.days {
		if want := ComputeDate(date(2025, 10, 6), d.WeekIdx, d.DayIdx); !d.Date.Equal(want) {
			t.Errorf("week %d day %d = %v, want %v", d.WeekIdx, d.DayIdx, d.Date, want)
		}
	}
}

// TestSoftRestartWithoutProgram verifies restarting before seeding reports not found.
func TestSoftRestartWithoutProgram(t *testing.T) {
	err := NewSeeder(&fakeStore{}, Template{TotalWeeks: 1}, testLogger()).SoftRestart(context.Background(), 1, date(2025, 1, 1))
	if err == nil {
		t.Fatal("expected error")
	}
}
