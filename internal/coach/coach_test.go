package coach

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/meltforce/ultimatecoach/internal/config"
	"github.com/meltforce/ultimatecoach/internal/engine"
	"github.com/meltforce/ultimatecoach/internal/models"
	"github.com/meltforce/ultimatecoach/internal/storage"
)

type fakeStore struct {
	exercises    map[int64]*models.DayExerciseRow
	logs         map[int64][]models.ExerciseLogRow
	states       map[int64]models.PhaseStateRow
	conditioning map[int64]*models.ConditioningRow
	best         []storage.TemplateBestSet
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		exercises:    map[int64]*models.DayExerciseRow{},
		logs:         map[int64][]models.ExerciseLogRow{},
		states:       map[int64]models.PhaseStateRow{},
		conditioning: map[int64]*models.ConditioningRow{},
	}
}

func (f *fakeStore) GetDayExercise(_ context.Context, _ int, id int64) (*models.DayExerciseRow, error) {
	ex, ok := f.exercises[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *ex
	return &cp, nil
}

func (f *fakeStore) QueryExerciseLogs(_ context.Context, _ int, id int64) ([]models.ExerciseLogRow, error) {
	return slices.Clone(f.logs[id]), nil
}

func (f *fakeStore) InsertExerciseLogs(_ context.Context, rows []models.ExerciseLogRow) (int64, error) {
	var n int64
	for _, r := range rows {
		if slices.ContainsFunc(f.logs[r.DayExerciseID], func(l models.ExerciseLogRow) bool { return l.SetIdx == r.SetIdx }) {
			continue
		}
		f.logs[r.DayExerciseID] = append(f.logs[r.DayExerciseID], r)
		n++
	}
	return n, nil
}

func (f *fakeStore) RecentTemplateLogs(_ context.Context, _ int, templateID int64, n int) ([]models.ExerciseLogRow, error) {
	var exs []*models.DayExerciseRow
	for _, ex := range f.exercises {
		if ex.TemplateID == templateID && len(f.logs[ex.ID]) > 0 {
			exs = append(exs, ex)
		}
	}
	slices.SortFunc(exs, func(a, b *models.DayExerciseRow) int { return b.Date.Compare(a.Date) })
	if len(exs) > n {
		exs = exs[:n]
	}
	slices.Reverse(exs)
	var out []models.ExerciseLogRow
	for _, ex := range exs {
		out = append(out, f.logs[ex.ID]...)
	}
	return out, nil
}

func (f *fakeStore) GetPhaseState(_ context.Context, _ int, templateID int64) (*models.PhaseStateRow, error) {
	s, ok := f.states[templateID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &s, nil
}

func (f *fakeStore) UpsertPhaseState(_ context.Context, s models.PhaseStateRow) error {
	f.states[s.TemplateID] = s
	return nil
}

func (f *fakeStore) NextWeekDayExercise(_ context.Context, _ int, templateID int64, weekIdx, dayIdx int) (*models.DayExerciseRow, error) {
	var found *models.DayExerciseRow
	for _, ex := range f.exercises {
		if ex.TemplateID != templateID || ex.WeekIdx != weekIdx+1 {
			continue
		}
		if found == nil || ex.DayIdx == dayIdx {
			found = ex
		}
	}
	if found == nil {
		return nil, storage.ErrNotFound
	}
	return found, nil
}

func (f *fakeStore) UpdateDayExerciseTarget(_ context.Context, id int64, t engine.Target) error {
	ex := f.exercises[id]
	ex.TargetWeight, ex.RepMin, ex.RepMax, ex.Sets, ex.Phase = t.Weight, t.RepMin, t.RepMax, t.Sets, string(t.Phase)
	return nil
}

func (f *fakeStore) GetConditioning(_ context.Context, _ int, id int64) (*models.ConditioningRow, error) {
	c, ok := f.conditioning[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) CompleteConditioning(_ context.Context, id int64, success bool, at time.Time) error {
	f.conditioning[id].CompletedAt = &at
	f.conditioning[id].Success = &success
	return nil
}

func (f *fakeStore) NextWeekConditioning(_ context.Context, _ int, weekIdx, dayIdx int) (*models.ConditioningRow, error) {
	for _, c := range f.conditioning {
		if c.WeekIdx == weekIdx+1 && c.DayIdx == dayIdx {
			return c, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStore) UpdateConditioningProtocol(_ context.Context, id int64, protocol string) error {
	f.conditioning[id].ProtocolText = protocol
	return nil
}

func (f *fakeStore) LatestBestSets(_ context.Context, _ int) ([]storage.TemplateBestSet, error) {
	return f.best, nil
}

const userID = 7

var week1 = time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

// addExercise schedules template tplID in weeks 1 and 2 and returns the
// week-1 and week-2 IDs.
func (f *fakeStore) addExercise(tplID int64, name, equipment, progression string, weight *float64, repMin, repMax, sets int) (int64, int64) {
	base := tplID * 100
	for w := 1; w <= 2; w++ {
		id := base + int64(w)
		f.exercises[id] = &models.DayExerciseRow{
			ID:           id,
			DayID:        int64(w),
			TemplateID:   tplID,
			TemplateName: name,
			Equipment:    equipment,
			Progression:  progression,
			WeekIdx:      w,
			DayIdx:       1,
			Date:         week1.AddDate(0, 0, 7*(w-1)),
			TargetWeight: weight,
			RepMin:       repMin,
			RepMax:       repMax,
			Sets:         sets,
			Phase:        "HYP",
		}
	}
	return base + 1, base + 2
}

func newTestService(store Store, cfg config.ProgressionConfig) *Service {
	s := New(store, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return time.Date(2025, 9, 1, 18, 0, 0, 0, time.UTC) }
	return s
}

func logSets(t *testing.T, s *Service, id int64, sets ...SetInput) *RecordResult {
	t.Helper()
	var last *RecordResult
	for _, in := range sets {
		r, err := s.RecordSet(context.Background(), userID, id, in)
		if err != nil {
			t.Fatalf("RecordSet: %v", err)
		}
		last = r
	}
	return last
}

func set(w float64, reps int, rir float64) SetInput {
	return SetInput{Weight: engine.Float(w), Reps: reps, RIR: engine.Float(rir)}
}

// TestRecordSetClosesExposureOnLastSet verifies the exposure closes only
// when the prescribed set count is reached and the progressed target lands
// on next week's exercise.
func TestRecordSetClosesExposureOnLastSet(t *testing.T) {
	store := newFakeStore()
	cur, next := store.addExercise(1, "Bench Press", "barbell", "", engine.Float(60), 8, 12, 3)
	s := newTestService(store, config.DefaultProgression())

	r := logSets(t, s, cur, set(60, 12, 2), set(60, 12, 2))
	if r.Exposure != nil || r.SetsLogged != 2 {
		t.Fatalf("exposure closed early: %+v", r)
	}
	r = logSets(t, s, cur, set(60, 12, 2))
	if r.Exposure == nil {
		t.Fatal("exposure not closed after last set")
	}
	if r.Exposure.Action != engine.ActionProgress {
		t.Errorf("action = %q, want progress", r.Exposure.Action)
	}
	if got := store.exercises[next].TargetWeight; got == nil || *got != 62.5 {
		t.Errorf("next week weight = %v, want 62.5", got)
	}
	if r.Exposure.NextDayExerciseID == nil || *r.Exposure.NextDayExerciseID != next {
		t.Errorf("next day exercise = %v, want %d", r.Exposure.NextDayExerciseID, next)
	}
	st := store.states[1]
	if st.CurrentPhase != "HYP" || st.ConsecutiveMisses != 0 {
		t.Errorf("state = %+v", st)
	}
	if st.BlockStartLoad == nil || *st.BlockStartLoad != 60 {
		t.Errorf("block start = %v, want 60", st.BlockStartLoad)
	}
	if got := store.logs[cur][2].SetIdx; got != 3 {
		t.Errorf("third set idx = %d, want 3", got)
	}
}

// TestMissIncrementsCounter verifies a missed exposure holds and counts.
func TestMissIncrementsCounter(t *testing.T) {
	store := newFakeStore()
	cur, next := store.addExercise(1, "Bench Press", "barbell", "", engine.Float(60), 8, 12, 3)
	s := newTestService(store, config.DefaultProgression())

	r := logSets(t, s, cur, set(60, 6, 2), set(60, 6, 2), set(60, 6, 2))
	if r.Exposure.Action != engine.ActionHold {
		t.Errorf("action = %q, want hold", r.Exposure.Action)
	}
	if r.Exposure.ConsecutiveMisses != 1 {
		t.Errorf("misses = %d, want 1", r.Exposure.ConsecutiveMisses)
	}
	if got := store.exercises[next].TargetWeight; *got != 60 {
		t.Errorf("next weight = %v, want 60", *got)
	}
}

// TestRecompletingExposureCountsOnce verifies completing a closed exposure
// again recomputes the same result instead of counting the miss again.
func TestRecompletingExposureCountsOnce(t *testing.T) {
	store := newFakeStore()
	cur, next := store.addExercise(1, "Bench Press", "barbell", "", engine.Float(100), 8, 12, 3)
	s := newTestService(store, config.DefaultProgression())

	r := logSets(t, s, cur, set(100, 6, 2), set(100, 6, 2), set(100, 6, 2))
	if r.Exposure == nil || r.Exposure.ConsecutiveMisses != 1 {
		t.Fatalf("first completion = %+v, want one miss", r.Exposure)
	}

	for i := range 2 {
		res, err := s.CompleteExposure(context.Background(), userID, cur)
		if err != nil {
			t.Fatalf("CompleteExposure #%d: %v", i+2, err)
		}
		if res.Action != engine.ActionHold || res.ConsecutiveMisses != 1 || !res.Repeated {
			t.Errorf("completion #%d = %s misses=%d repeated=%v, want hold misses=1 repeated", i+2, res.Action, res.ConsecutiveMisses, res.Repeated)
		}
	}
	if got := store.exercises[next].TargetWeight; got == nil || *got != 100 {
		t.Errorf("next weight = %v, want 100", got)
	}
	if st := store.states[1]; st.ConsecutiveMisses != 1 || st.PriorMisses != 0 {
		t.Errorf("state = %+v, want misses 1 from 0", st)
	}

	// The following week's miss still counts.
	r = logSets(t, s, next, set(100, 6, 2), set(100, 6, 2), set(100, 6, 2))
	if r.Exposure.ConsecutiveMisses != 2 || r.Exposure.Repeated {
		t.Errorf("next exposure misses = %d repeated=%v, want 2", r.Exposure.ConsecutiveMisses, r.Exposure.Repeated)
	}
}

// TestRecompletingPicksUpLateSets verifies a recompute sees sets added after
// the first completion and clears the miss it counted.
func TestRecompletingPicksUpLateSets(t *testing.T) {
	store := newFakeStore()
	cur, next := store.addExercise(1, "Bench Press", "barbell", "", engine.Float(60), 8, 12, 1)
	store.states[1] = models.PhaseStateRow{UserID: userID, TemplateID: 1, CurrentPhase: "HYP", ConsecutiveMisses: 1}
	s := newTestService(store, config.DefaultProgression())

	r := logSets(t, s, cur, set(60, 6, 2))
	if r.Exposure.ConsecutiveMisses != 2 {
		t.Fatalf("misses = %d, want 2", r.Exposure.ConsecutiveMisses)
	}

	// A late import corrects the logged set.
	store.logs[cur][0].Reps = 12
	res, err := s.CompleteExposure(context.Background(), userID, cur)
	if err != nil {
		t.Fatal(err)
	}
	if res.Action != engine.ActionProgress || res.ConsecutiveMisses != 0 {
		t.Errorf("recompute = %s misses=%d, want progress misses=0", res.Action, res.ConsecutiveMisses)
	}
	if got := store.exercises[next].TargetWeight; *got != 62.5 {
		t.Errorf("next weight = %v, want 62.5", *got)
	}
	if st := store.states[1]; st.PriorMisses != 1 {
		t.Errorf("prior misses = %d, want 1", st.PriorMisses)
	}
}

// TestThirdMissDeloads verifies the tracked counter triggers the deload
// and resets afterwards.
func TestThirdMissDeloads(t *testing.T) {
	store := newFakeStore()
	cur, next := store.addExercise(1, "Bench Press", "barbell", "", engine.Float(60), 8, 12, 3)
	store.states[1] = models.PhaseStateRow{UserID: userID, TemplateID: 1, CurrentPhase: "HYP", ConsecutiveMisses: 2}
	s := newTestService(store, config.DefaultProgression())

	r := logSets(t, s, cur, set(60, 6, 2), set(60, 6, 2), set(60, 6, 2))
	if r.Exposure.Action != engine.ActionDeload {
		t.Errorf("action = %q, want deload", r.Exposure.Action)
	}
	if got := store.exercises[next].TargetWeight; *got != 55 {
		t.Errorf("next weight = %v, want 55", *got)
	}
	if store.states[1].ConsecutiveMisses != 0 {
		t.Errorf("misses = %d, want reset to 0", store.states[1].ConsecutiveMisses)
	}
}

// TestPhaseSwitchResetsBlock verifies a 5% block gain at low RIR moves the
// next exposure to STR and restarts the block at the new load.
func TestPhaseSwitchResetsBlock(t *testing.T) {
	store := newFakeStore()
	cur, next := store.addExercise(1, "Bench Press", "barbell", "", engine.Float(62.5), 8, 12, 3)
	store.states[1] = models.PhaseStateRow{UserID: userID, TemplateID: 1, CurrentPhase: "HYP", BlockStartLoad: engine.Float(60)}
	s := newTestService(store, config.DefaultProgression())

	r := logSets(t, s, cur, set(62.5, 12, 1), set(62.5, 12, 1), set(62.5, 12, 1))
	if !r.Exposure.PhaseSwitched || r.Exposure.Next.Phase != engine.PhaseStrength {
		t.Fatalf("exposure = %+v, want switch to STR", r.Exposure)
	}
	if got := store.exercises[next].Phase; got != "STR" {
		t.Errorf("next phase = %q, want STR", got)
	}
	st := store.states[1]
	if st.CurrentPhase != "STR" || st.BlockStartLoad == nil || *st.BlockStartLoad != 65 || st.LastSwitchAt == nil {
		t.Errorf("state = %+v", st)
	}
}

// TestAutoPeriodizationOff verifies the phase is never changed when disabled.
func TestAutoPeriodizationOff(t *testing.T) {
	store := newFakeStore()
	cur, next := store.addExercise(1, "Bench Press", "barbell", "", engine.Float(62.5), 8, 12, 3)
	store.states[1] = models.PhaseStateRow{UserID: userID, TemplateID: 1, CurrentPhase: "HYP", BlockStartLoad: engine.Float(60)}
	off := false
	cfg := config.DefaultProgression()
	cfg.AutoPeriodization = &off
	s := newTestService(store, cfg)

	logSets(t, s, cur, set(62.5, 12, 1), set(62.5, 12, 1), set(62.5, 12, 1))
	if got := store.exercises[next].Phase; got != "HYP" {
		t.Errorf("next phase = %q, want HYP", got)
	}
}

// TestRIRDisabledDropsRIR verifies RIR is not stored when switched off.
func TestRIRDisabledDropsRIR(t *testing.T) {
	store := newFakeStore()
	cur, _ := store.addExercise(1, "Bench Press", "barbell", "", engine.Float(60), 8, 12, 3)
	off := false
	cfg := config.DefaultProgression()
	cfg.EnableRIR = &off
	s := newTestService(store, cfg)

	logSets(t, s, cur, set(60, 10, 1))
	if store.logs[cur][0].RIR != nil {
		t.Errorf("rir = %v, want nil", *store.logs[cur][0].RIR)
	}
}

// TestRecordSetRejectsInvalid verifies negative values and sets without reps
// are refused before storage.
func TestRecordSetRejectsInvalid(t *testing.T) {
	store := newFakeStore()
	cur, _ := store.addExercise(1, "Bench Press", "barbell", "", engine.Float(60), 8, 12, 3)
	s := newTestService(store, config.DefaultProgression())

	for _, in := range []SetInput{
		{Reps: -1},
		{Weight: engine.Float(60), Reps: 0},
		{Weight: engine.Float(-5), Reps: 5},
		{Reps: 5, RIR: engine.Float(-1)},
	} {
		if _, err := s.RecordSet(context.Background(), userID, cur, in); !errors.Is(err, ErrInvalidSet) {
			t.Errorf("RecordSet(%+v) err = %v, want ErrInvalidSet", in, err)
		}
	}
	if len(store.logs[cur]) != 0 {
		t.Errorf("invalid sets stored: %d", len(store.logs[cur]))
	}
}

// TestRecordSetUnknownExercise verifies missing exercises surface as not found.
func TestRecordSetUnknownExercise(t *testing.T) {
	s := newTestService(newFakeStore(), config.DefaultProgression())
	if _, err := s.RecordSet(context.Background(), userID, 999, SetInput{Reps: 5}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// TestCompleteExposureWithoutLogs verifies an empty exposure is rejected.
func TestCompleteExposureWithoutLogs(t *testing.T) {
	store := newFakeStore()
	cur, _ := store.addExercise(1, "Bench Press", "barbell", "", engine.Float(60), 8, 12, 3)
	s := newTestService(store, config.DefaultProgression())
	if _, err := s.CompleteExposure(context.Background(), userID, cur); !errors.Is(err, ErrNoLogs) {
		t.Errorf("err = %v, want ErrNoLogs", err)
	}
}

// TestFinalWeekHasNoNextExercise verifies the last exposure completes without a follow-up.
func TestFinalWeekHasNoNextExercise(t *testing.T) {
	store := newFakeStore()
	_, last := store.addExercise(1, "Bench Press", "barbell", "", engine.Float(60), 8, 12, 1)
	s := newTestService(store, config.DefaultProgression())

	r := logSets(t, s, last, set(60, 12, 2))
	if r.Exposure == nil || r.Exposure.NextDayExerciseID != nil {
		t.Errorf("exposure = %+v, want no next exercise", r.Exposure)
	}
}

// TestPullupVolumeProgression covers adding, removing and dropping added load.
func TestPullupVolumeProgression(t *testing.T) {
	tests := []struct {
		name       string
		weight     *float64
		sets       []SetInput
		wantWeight *float64
		wantAction engine.Action
	}{
		{"bodyweight high volume", nil, []SetInput{{Reps: 10}, {Reps: 8}, {Reps: 8}, {Reps: 8}}, engine.Float(2.5), engine.ActionProgress},
		{"weighted low volume", engine.Float(5), []SetInput{set(5, 5, 3), set(5, 5, 3), set(5, 5, 3), set(5, 4, 3)}, engine.Float(2.5), engine.ActionDeload},
		{"drops to bodyweight", engine.Float(2.5), []SetInput{set(2.5, 5, 3), set(2.5, 5, 3), set(2.5, 5, 3), set(2.5, 4, 3)}, nil, engine.ActionDeload},
		{"mid volume holds", nil, []SetInput{{Reps: 7}, {Reps: 6}, {Reps: 6}, {Reps: 6}}, nil, engine.ActionHold},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			cur, next := store.addExercise(3, "Pull-Ups", "bodyweight", models.ProgressionPullup, tt.weight, 6, 10, 4)
			s := newTestService(store, config.DefaultProgression())

			r := logSets(t, s, cur, tt.sets...)
			if r.Exposure.Action != tt.wantAction {
				t.Errorf("action = %q, want %q", r.Exposure.Action, tt.wantAction)
			}
			if r.Exposure.Pullups == nil {
				t.Fatal("pullup volume missing")
			}
			got := store.exercises[next].TargetWeight
			switch {
			case tt.wantWeight == nil && got != nil:
				t.Errorf("next weight = %v, want bodyweight", *got)
			case tt.wantWeight != nil && (got == nil || *got != *tt.wantWeight):
				t.Errorf("next weight = %v, want %v", got, *tt.wantWeight)
			}
		})
	}
}

// TestCompleteConditioningAdvancesNextWeek verifies the advanced protocol is
// written to next week's session on the same day.
func TestCompleteConditioningAdvancesNextWeek(t *testing.T) {
	tests := []struct {
		protocol string
		success  bool
		want     string
	}{
		{"6x500m/90s", true, "7x500m/90s"},
		{"6x500m/90s", false, "6x500m/90s"},
		{"Zone2 25-30m", false, "Zone2 27-30m"},
		{"Tabata 8x20/10", true, "Tabata 8x20/10"},
	}
	for _, tt := range tests {
		store := newFakeStore()
		store.conditioning[1] = &models.ConditioningRow{ID: 1, WeekIdx: 1, DayIdx: 2, ProtocolText: tt.protocol}
		store.conditioning[2] = &models.ConditioningRow{ID: 2, WeekIdx: 2, DayIdx: 2, ProtocolText: tt.protocol}
		s := newTestService(store, config.DefaultProgression())

		r, err := s.CompleteConditioning(context.Background(), userID, 1, tt.success)
		if err != nil {
			t.Fatalf("CompleteConditioning: %v", err)
		}
		if r.NextProtocol != tt.want || store.conditioning[2].ProtocolText != tt.want {
			t.Errorf("%q success=%v: next = %q stored %q, want %q",
				tt.protocol, tt.success, r.NextProtocol, store.conditioning[2].ProtocolText, tt.want)
		}
		if store.conditioning[1].CompletedAt == nil || *store.conditioning[1].Success != tt.success {
			t.Errorf("session not marked complete: %+v", store.conditioning[1])
		}
	}
}

// TestCompleteConditioningLastWeek verifies the final session completes without a follow-up.
func TestCompleteConditioningLastWeek(t *testing.T) {
	store := newFakeStore()
	store.conditioning[1] = &models.ConditioningRow{ID: 1, WeekIdx: 12, DayIdx: 1, ProtocolText: "6x500m/90s"}
	s := newTestService(store, config.DefaultProgression())

	r, err := s.CompleteConditioning(context.Background(), userID, 1, true)
	if err != nil {
		t.Fatal(err)
	}
	if r.NextConditioningID != nil {
		t.Errorf("next conditioning = %d, want none", *r.NextConditioningID)
	}
}

// TestProgress verifies estimates use the strict Epley formula and are
// sorted by exercise name.
func TestProgress(t *testing.T) {
	store := newFakeStore()
	store.best = []storage.TemplateBestSet{
		{TemplateID: 2, Name: "Pull-Ups", Equipment: "bodyweight", Date: week1, Phase: "HYP", Reps: 10},
		{TemplateID: 1, Name: "Bench Press", Equipment: "barbell", Date: week1, Phase: "HYP", Weight: engine.Float(100), Reps: 5},
	}
	s := newTestService(store, config.DefaultProgression())

	got, err := s.Progress(context.Background(), userID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Exercise != "Bench Press" {
		t.Fatalf("progress = %+v", got)
	}
	if got[0].Estimated1RM != 116.7 {
		t.Errorf("bench 1RM = %v, want 116.7", got[0].Estimated1RM)
	}
	if got[1].Estimated1RM != 0 {
		t.Errorf("pull-up 1RM = %v, want 0", got[1].Estimated1RM)
	}
}
