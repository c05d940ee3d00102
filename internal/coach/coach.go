// Package coach applies the progression engine to stored training data:
// logging sets, closing exposures, advancing conditioning and periodization.
package coach

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/meltforce/ultimatecoach/internal/config"
	"github.com/meltforce/ultimatecoach/internal/engine"
	"github.com/meltforce/ultimatecoach/internal/models"
	"github.com/meltforce/ultimatecoach/internal/storage"
)

var (
	// ErrInvalidSet is returned for a set with negative reps, weight or RIR.
	ErrInvalidSet = errors.New("invalid set")
	// ErrNoLogs is returned when closing an exposure that has no logged sets.
	ErrNoLogs = errors.New("no sets logged")
)

// Store is the persistence the coaching service needs.
type Store interface {
	GetDayExercise(ctx context.Context, userID int, id int64) (*models.DayExerciseRow, error)
	QueryExerciseLogs(ctx context.Context, userID int, dayExerciseID int64) ([]models.ExerciseLogRow, error)
	InsertExerciseLogs(ctx context.Context, rows []models.ExerciseLogRow) (int64, error)
	RecentTemplateLogs(ctx context.Context, userID int, templateID int64, n int) ([]models.ExerciseLogRow, error)
	GetPhaseState(ctx context.Context, userID int, templateID int64) (*models.PhaseStateRow, error)
	UpsertPhaseState(ctx context.Context, s models.PhaseStateRow) error
	NextWeekDayExercise(ctx context.Context, userID int, templateID int64, weekIdx, dayIdx int) (*models.DayExerciseRow, error)
	UpdateDayExerciseTarget(ctx context.Context, id int64, t engine.Target) error
	GetConditioning(ctx context.Context, userID int, id int64) (*models.ConditioningRow, error)
	CompleteConditioning(ctx context.Context, id int64, success bool, at time.Time) error
	NextWeekConditioning(ctx context.Context, userID, weekIdx, dayIdx int) (*models.ConditioningRow, error)
	UpdateConditioningProtocol(ctx context.Context, id int64, protocol string) error
	LatestBestSets(ctx context.Context, userID int) ([]storage.TemplateBestSet, error)
}

// Service runs the coaching workflow for one deployment's settings.
type Service struct {
	store  Store
	cfg    config.ProgressionConfig
	logger *slog.Logger
	now    func() time.Time
}

func New(store Store, cfg config.ProgressionConfig, logger *slog.Logger) *Service {
	return &Service{store: store, cfg: cfg, logger: logger, now: time.Now}
}

// SetInput is one set as entered by the lifter.
type SetInput struct {
	Weight *float64 `json:"weight"`
	Reps   int      `json:"reps"`
	RIR    *float64 `json:"rir"`
}

func (in SetInput) validate() error {
	switch {
	case in.Reps < 1:
		return fmt.Errorf("%w: reps %d must be at least 1", ErrInvalidSet, in.Reps)
	case in.Weight != nil && *in.Weight < 0:
		return fmt.Errorf("%w: weight %v is negative", ErrInvalidSet, *in.Weight)
	case in.RIR != nil && *in.RIR < 0:
		return fmt.Errorf("%w: rir %v is negative", ErrInvalidSet, *in.RIR)
	}
	return nil
}

// RecordResult is the outcome of logging a set. Exposure is set when the
// set completed the prescribed set count.
type RecordResult struct {
	Log        models.ExerciseLogRow `json:"log"`
	SetsLogged int                   `json:"sets_logged"`
	Exposure   *ExposureResult       `json:"exposure,omitempty"`
}

// RecordSet stores the next set of a scheduled exercise. Logging the last
// prescribed set closes the exposure.
func (s *Service) RecordSet(ctx context.Context, userID int, dayExerciseID int64, in SetInput) (*RecordResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	ex, err := s.store.GetDayExercise(ctx, userID, dayExerciseID)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.QueryExerciseLogs(ctx, userID, dayExerciseID)
	if err != nil {
		return nil, err
	}

	row := models.ExerciseLogRow{
		DayExerciseID: dayExerciseID,
		UserID:        userID,
		SetIdx:        len(existing) + 1,
		Weight:        in.Weight,
		Reps:          in.Reps,
		RIR:           in.RIR,
		LoggedAt:      s.now(),
		Source:        "manual",
	}
	if !s.cfg.RIREnabled() {
		row.RIR = nil
	}
	n, err := s.store.InsertExerciseLogs(ctx, []models.ExerciseLogRow{row})
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("set %d of day exercise %d already logged", row.SetIdx, dayExerciseID)
	}

	result := &RecordResult{Log: row, SetsLogged: row.SetIdx}
	if row.SetIdx == ex.Sets {
		if result.Exposure, err = s.CompleteExposure(ctx, userID, dayExerciseID); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// ExposureResult describes how a completed exposure moved the next target.
type ExposureResult struct {
	DayExerciseID     int64                `json:"day_exercise_id"`
	Exercise          string               `json:"exercise"`
	Action            engine.Action        `json:"action"`
	Assessment        *engine.Assessment   `json:"assessment,omitempty"`
	Pullups           *engine.PullupVolume `json:"pullups,omitempty"`
	Next              engine.Target        `json:"next"`
	NextDayExerciseID *int64               `json:"next_day_exercise_id,omitempty"`
	PhaseSwitched     bool                 `json:"phase_switched"`
	ConsecutiveMisses int                  `json:"consecutive_misses"`
	Repeated          bool                 `json:"repeated,omitempty"`
}

// CompleteExposure computes the next target from the logged sets, updates
// the template's phase state and writes the target to the same exercise in
// the following week. Volume-progressed pulling exercises do not count misses.
// Completing the same exposure again recomputes it from the state it started
// with, so late sets are picked up without counting a miss twice.
func (s *Service) CompleteExposure(ctx context.Context, userID int, dayExerciseID int64) (*ExposureResult, error) {
	ex, err := s.store.GetDayExercise(ctx, userID, dayExerciseID)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.QueryExerciseLogs(ctx, userID, dayExerciseID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("day exercise %d: %w", dayExerciseID, ErrNoLogs)
	}
	phase, err := engine.ParsePhase(ex.Phase)
	if err != nil {
		return nil, err
	}
	state, err := s.phaseState(ctx, userID, ex.TemplateID, phase)
	if err != nil {
		return nil, err
	}
	repeated := state.LastDayExerciseID != nil && *state.LastDayExerciseID == ex.ID
	if repeated {
		// Recompute from the state this exposure started with so the
		// counter and block move once per exposure.
		state.ConsecutiveMisses = state.PriorMisses
		state.BlockStartLoad = state.PriorBlockStartLoad
	} else {
		id := ex.ID
		state.LastDayExerciseID = &id
		state.PriorMisses = state.ConsecutiveMisses
		state.PriorBlockStartLoad = state.BlockStartLoad
	}

	logs := models.SetLogs(rows)
	target := ex.Target()
	target.Phase = phase
	result := &ExposureResult{DayExerciseID: ex.ID, Exercise: ex.TemplateName, Repeated: repeated}

	if ex.Progression == models.ProgressionPullup {
		vol := engine.AggregatePullupVolume(logs)
		result.Pullups = &vol
		result.Next, result.Action = nextPullupTarget(target, vol)
	} else {
		step, err := engine.Advance(logs, target, s.cfg.Rule(ex.Equipment), phase, state.ConsecutiveMisses)
		if err != nil {
			return nil, err
		}
		result.Next, result.Action = step.Target, step.Action
		result.Assessment = &step.Assessment
		if step.Assessment.AnyMiss && step.Action != engine.ActionDeload {
			state.ConsecutiveMisses++
		} else {
			state.ConsecutiveMisses = 0
		}
	}

	if s.cfg.AutoPeriodizationEnabled() {
		if err := s.periodize(ctx, userID, ex, target, result, state); err != nil {
			return nil, err
		}
	}
	state.CurrentPhase = string(result.Next.Phase)
	result.ConsecutiveMisses = state.ConsecutiveMisses
	if err := s.store.UpsertPhaseState(ctx, *state); err != nil {
		return nil, err
	}

	next, err := s.store.NextWeekDayExercise(ctx, userID, ex.TemplateID, ex.WeekIdx, ex.DayIdx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.logger.Info("final exposure completed", "exercise", ex.TemplateName, "week", ex.WeekIdx)
	case err != nil:
		return nil, err
	default:
		if err := s.store.UpdateDayExerciseTarget(ctx, next.ID, result.Next); err != nil {
			return nil, err
		}
		result.NextDayExerciseID = &next.ID
	}

	s.logger.Info("exposure completed",
		"user_id", userID,
		"exercise", ex.TemplateName,
		"week", ex.WeekIdx,
		"action", result.Action,
		"phase", result.Next.Phase,
		"misses", state.ConsecutiveMisses,
		"repeated", repeated,
	)
	return result, nil
}

// phaseState loads the template's state, starting a fresh block in the
// exercise's phase when none is stored.
func (s *Service) phaseState(ctx context.Context, userID int, templateID int64, phase engine.Phase) (*models.PhaseStateRow, error) {
	state, err := s.store.GetPhaseState(ctx, userID, templateID)
	if errors.Is(err, storage.ErrNotFound) {
		return &models.PhaseStateRow{UserID: userID, TemplateID: templateID, CurrentPhase: string(phase)}, nil
	}
	if err != nil {
		return nil, err
	}
	return state, nil
}

// periodize checks the recent history for a phase change. The block start
// load is the first load seen in the block and resets on every switch.
func (s *Service) periodize(ctx context.Context, userID int, ex *models.DayExerciseRow, target engine.Target, result *ExposureResult, state *models.PhaseStateRow) error {
	history, err := s.store.RecentTemplateLogs(ctx, userID, ex.TemplateID, s.cfg.PhaseHistoryExposures)
	if err != nil {
		return err
	}
	if state.BlockStartLoad == nil && target.Weight != nil {
		state.BlockStartLoad = engine.Float(*target.Weight)
	}

	next, err := engine.ShouldSwitchPhase(models.SetLogs(history), target.Phase, state.BlockStartLoad, result.Next.Weight)
	if err != nil {
		return err
	}
	if next == target.Phase {
		return nil
	}

	now := s.now()
	result.Next.Phase = next
	result.PhaseSwitched = true
	state.LastSwitchAt = &now
	state.BlockStartLoad = nil
	if result.Next.Weight != nil {
		state.BlockStartLoad = engine.Float(*result.Next.Weight)
	}
	s.logger.Info("phase switched", "exercise", ex.TemplateName, "from", target.Phase, "to", next)
	return nil
}

// nextPullupTarget applies the volume rule to the added load. A load that
// would drop to zero or below means bodyweight only.
func nextPullupTarget(target engine.Target, vol engine.PullupVolume) (engine.Target, engine.Action) {
	next := target
	next.Weight = nil
	var added float64
	if target.Weight != nil {
		added = *target.Weight
	}
	if w := added + vol.SuggestedWeightDelta; w > 0 {
		next.Weight = engine.Float(w)
	}

	switch {
	case vol.SuggestedWeightDelta > 0:
		return next, engine.ActionProgress
	case vol.SuggestedWeightDelta < 0:
		return next, engine.ActionDeload
	}
	return next, engine.ActionHold
}
