package alpha

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/meltforce/ultimatecoach/internal/coach"
	"github.com/meltforce/ultimatecoach/internal/models"
	"github.com/meltforce/ultimatecoach/internal/storage"
)

type fakeStore struct {
	scheduled map[string]int64
	logs      map[int64][]models.ExerciseLogRow
}

func (f *fakeStore) FindDayExerciseByName(_ context.Context, _ int, date time.Time, name string) (*models.DayExerciseRow, error) {
	id, ok := f.scheduled[date.Format("2006-01-02")+"/"+strings.ToLower(name)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &models.DayExerciseRow{ID: id, TemplateName: name, Date: date}, nil
}

func (f *fakeStore) InsertExerciseLogs(_ context.Context, rows []models.ExerciseLogRow) (int64, error) {
	var n int64
	for _, r := range rows {
		dup := false
		for _, l := range f.logs[r.DayExerciseID] {
			if l.SetIdx == r.SetIdx {
				dup = true
			}
		}
		if !dup {
			f.logs[r.DayExerciseID] = append(f.logs[r.DayExerciseID], r)
			n++
		}
	}
	return n, nil
}

type fakeCompleter struct {
	completed []int64
}

func (f *fakeCompleter) CompleteExposure(_ context.Context, _ int, id int64) (*coach.ExposureResult, error) {
	f.completed = append(f.completed, id)
	return &coach.ExposureResult{DayExerciseID: id}, nil
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		scheduled: map[string]int64{
			"2026-02-17/bench press":        10,
			"2026-02-19/hack squats":        20,
			"2026-02-19/hanging leg raises": 21,
		},
		logs: map[int64][]models.ExerciseLogRow{},
	}
}

// TestIngestMatchesScheduledExercises verifies working sets land on the
// exercise scheduled that day and everything else is counted as unmatched.
func TestIngestMatchesScheduledExercises(t *testing.T) {
	store := newFakeStore()
	completer := &fakeCompleter{}
	p := NewProvider(store, completer, slog.New(slog.NewTextHandler(io.Discard, nil)))

	res, err := p.Ingest(context.Background(), strings.NewReader(sampleCSV), 1)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.SessionsReceived != 2 {
		t.Errorf("sessions = %d, want 2", res.SessionsReceived)
	}
	// 3+2+3+3+3+3 working sets on legs day, 3 on push day
	if res.SetsReceived != 20 {
		t.Errorf("sets received = %d, want 20", res.SetsReceived)
	}
	if res.ExercisesMatched != 3 {
		t.Errorf("matched = %d, want 3", res.ExercisesMatched)
	}
	if res.SetsInserted != 9 {
		t.Errorf("inserted = %d, want 9", res.SetsInserted)
	}
	if res.SetsUnmatched != 11 {
		t.Errorf("unmatched = %d, want 11", res.SetsUnmatched)
	}
	if len(res.Unmatched) != 4 {
		t.Errorf("unmatched names = %v", res.Unmatched)
	}
	if res.ExposuresCompleted != 3 || len(completer.completed) != 3 {
		t.Errorf("completed = %d, want 3", res.ExposuresCompleted)
	}

	bench := store.logs[10]
	if len(bench) != 3 {
		t.Fatalf("bench logs = %d, want 3", len(bench))
	}
	if *bench[0].Weight != 102.5 || bench[0].Reps != 6 || *bench[0].RIR != 0 {
		t.Errorf("bench set 1 = %+v", bench[0])
	}
	if bench[0].Source != Source {
		t.Errorf("source = %q, want alpha", bench[0].Source)
	}
	if bench[2].SetIdx != 3 {
		t.Errorf("set idx = %d, want 3", bench[2].SetIdx)
	}
	if store.logs[21][0].Weight != nil {
		t.Errorf("leg raise +0 weight = %v, want nil", *store.logs[21][0].Weight)
	}
}

// TestIngestTwiceSkipsExisting verifies a re-import inserts nothing new and
// does not close exposures again.
func TestIngestTwiceSkipsExisting(t *testing.T) {
	store := newFakeStore()
	completer := &fakeCompleter{}
	p := NewProvider(store, completer, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if _, err := p.Ingest(context.Background(), strings.NewReader(sampleCSV), 1); err != nil {
		t.Fatal(err)
	}
	res, err := p.Ingest(context.Background(), strings.NewReader(sampleCSV), 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.SetsInserted != 0 || res.SetsSkipped != 9 {
		t.Errorf("inserted = %d skipped = %d, want 0 and 9", res.SetsInserted, res.SetsSkipped)
	}
	if len(completer.completed) != 3 {
		t.Errorf("completions = %d, want 3", len(completer.completed))
	}
}

// TestIngestWithoutCompleter verifies imports work when exposures are left open.
func TestIngestWithoutCompleter(t *testing.T) {
	p := NewProvider(newFakeStore(), nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	res, err := p.Ingest(context.Background(), strings.NewReader(sampleCSV), 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.ExposuresCompleted != 0 {
		t.Errorf("completed = %d, want 0", res.ExposuresCompleted)
	}
}

// TestIngestBadCSV verifies parse failures are reported.
func TestIngestBadCSV(t *testing.T) {
	p := NewProvider(newFakeStore(), nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := p.Ingest(context.Background(), strings.NewReader("\"Push\";\"2026-02-17 5:04 h\";\"1:12 hr\"\n1;1;1;1\n"), 1)
	if err == nil {
		t.Fatal("expected error")
	}
}

// TestLogRowsSkipsSetsWithoutReps verifies an unperformed set is not stored
// and numbering falls back to the position when Alpha gives none.
func TestLogRowsSkipsSetsWithoutReps(t *testing.T) {
	at := time.Date(2026, 2, 17, 17, 4, 0, 0, time.UTC)
	rows := logRows(10, 1, at, []models.AlphaSet{
		{Number: 1, WeightKg: 100, Reps: 5, RIR: 1},
		{Number: 2, WeightKg: 100, Reps: 0, RIR: -1},
		{WeightKg: 100, Reps: 4, RIR: 0},
	})
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].SetIdx != 1 || rows[1].SetIdx != 3 {
		t.Errorf("set idx = %d, %d, want 1, 3", rows[0].SetIdx, rows[1].SetIdx)
	}
	if rows[1].Reps != 4 || rows[1].Source != Source {
		t.Errorf("row = %+v", rows[1])
	}
}
