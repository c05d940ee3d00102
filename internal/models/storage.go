package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/ultimatecoach/internal/engine"
)

// Progression kinds stored on exercise templates.
const (
	ProgressionDouble = "double_progression"
	ProgressionPullup = "pullup_volume"
)

// ProgramRow is a row of the programs table.
type ProgramRow struct {
	ID         uuid.UUID `json:"id"`
	UserID     int       `json:"user_id"`
	Name       string    `json:"name"`
	StartDate  time.Time `json:"start_date"`
	TotalWeeks int       `json:"total_weeks"`
	CreatedAt  time.Time `json:"created_at"`
}

// ExerciseTemplateRow is a row of the exercise_templates table.
type ExerciseTemplateRow struct {
	ID          int64   `json:"id"`
	UserID      int     `json:"user_id"`
	Name        string  `json:"name"`
	MuscleGroup string  `json:"muscle_group"`
	Equipment   string  `json:"equipment"`
	DefaultSets int     `json:"default_sets"`
	RepMin      int     `json:"rep_min"`
	RepMax      int     `json:"rep_max"`
	RestSec     int     `json:"rest_sec"`
	Tempo       *string `json:"tempo,omitempty"`
	PhaseMode   string  `json:"phase_mode"`
	Progression string  `json:"progression"`
}

// DayPlanRow is a row of the day_plans table.
type DayPlanRow struct {
	ID        int64     `json:"id"`
	ProgramID uuid.UUID `json:"program_id"`
	WeekIdx   int       `json:"week_idx"`
	DayIdx    int       `json:"day_idx"`
	Date      time.Time `json:"date"`
}

// DayExerciseRow is a scheduled exercise joined with its template and day.
type DayExerciseRow struct {
	ID           int64     `json:"id"`
	DayID        int64     `json:"day_id"`
	TemplateID   int64     `json:"template_id"`
	TemplateName string    `json:"name"`
	Equipment    string    `json:"equipment"`
	Progression  string    `json:"progression"`
	RestSec      int       `json:"rest_sec"`
	WeekIdx      int       `json:"week_idx"`
	DayIdx       int       `json:"day_idx"`
	Date         time.Time `json:"date"`
	TargetWeight *float64  `json:"target_weight,omitempty"`
	RepMin       int       `json:"rep_min"`
	RepMax       int       `json:"rep_max"`
	Sets         int       `json:"sets"`
	OrderIdx     int       `json:"order_idx"`
	Phase        string    `json:"phase"`
}

// Target returns the engine prescription stored on the row. An unknown
// phase label is passed through and rejected by the engine.
func (r DayExerciseRow) Target() engine.Target {
	return engine.Target{
		Weight: r.TargetWeight,
		RepMin: r.RepMin,
		RepMax: r.RepMax,
		Sets:   r.Sets,
		Phase:  engine.Phase(r.Phase),
	}
}

// ExerciseLogRow is a row of the exercise_logs table.
type ExerciseLogRow struct {
	ID            int64     `json:"id"`
	DayExerciseID int64     `json:"day_exercise_id"`
	UserID        int       `json:"user_id"`
	SetIdx        int       `json:"set_idx"`
	Weight        *float64  `json:"weight,omitempty"`
	Reps          int       `json:"reps"`
	RIR           *float64  `json:"rir,omitempty"`
	LoggedAt      time.Time `json:"logged_at"`
	Source        string    `json:"source"`
}

// SetLog converts the row to an engine log.
func (r ExerciseLogRow) SetLog() engine.SetLog {
	return engine.SetLog{Weight: r.Weight, Reps: r.Reps, RIR: r.RIR}
}

// SetLogs converts rows to engine logs, preserving order.
func SetLogs(rows []ExerciseLogRow) []engine.SetLog {
	out := make([]engine.SetLog, len(rows))
	for i, r := range rows {
		out[i] = r.SetLog()
	}
	return out
}

// PhaseStateRow is the per-template periodization state.
type PhaseStateRow struct {
	UserID            int        `json:"user_id"`
	TemplateID        int64      `json:"template_id"`
	CurrentPhase      string     `json:"current_phase"`
	BlockStartLoad    *float64   `json:"block_start_load,omitempty"`
	ConsecutiveMisses int        `json:"consecutive_misses"`
	LastSwitchAt      *time.Time `json:"last_switch_at,omitempty"`

	// State as it was before LastDayExerciseID was completed.
	LastDayExerciseID   *int64   `json:"last_day_exercise_id,omitempty"`
	PriorMisses         int      `json:"prior_misses"`
	PriorBlockStartLoad *float64 `json:"prior_block_start_load,omitempty"`
}

// ConditioningRow is a conditioning session joined with its day.
type ConditioningRow struct {
	ID           int64      `json:"id"`
	DayID        int64      `json:"day_id"`
	WeekIdx      int        `json:"week_idx"`
	DayIdx       int        `json:"day_idx"`
	Date         time.Time  `json:"date"`
	Type         string     `json:"type"`
	ProtocolText string     `json:"protocol_text"`
	TargetZone   *string    `json:"target_zone,omitempty"`
	TargetPace   *string    `json:"target_pace,omitempty"`
	DurationMin  *int       `json:"duration_min,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Success      *bool      `json:"success,omitempty"`
}

// DayDetail is a day plan with its scheduled work.
type DayDetail struct {
	DayPlanRow
	Exercises    []DayExerciseRow `json:"exercises"`
	Conditioning *ConditioningRow `json:"conditioning,omitempty"`
}

// NewProgram is a complete program written in one transaction. Exercise
// templates are shared by name; the first occurrence defines the template.
type NewProgram struct {
	Name       string
	StartDate  time.Time
	TotalWeeks int
	Days       []NewDay
}

type NewDay struct {
	WeekIdx      int
	DayIdx       int
	Date         time.Time
	Exercises    []NewDayExercise
	Conditioning *NewConditioning
}

type NewDayExercise struct {
	Template     ExerciseTemplateRow
	TargetWeight *float64
	RepMin       int
	RepMax       int
	Sets         int
	Phase        string
	Logs         []ExerciseLogRow
}

type NewConditioning struct {
	Type         string
	ProtocolText string
	TargetZone   *string
	TargetPace   *string
	DurationMin  *int
	CompletedAt  *time.Time
	Success      *bool
}
