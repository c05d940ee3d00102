// Package program loads training program templates and expands them into
// dated day plans.
package program

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/meltforce/ultimatecoach/internal/engine"
	"github.com/meltforce/ultimatecoach/internal/models"
)

//go:embed default_program.json
var defaultTemplate []byte

// Template is a program definition: a list of day templates repeated for
// TotalWeeks weeks.
type Template struct {
	ProgramName  string        `json:"programName"`
	TotalWeeks   int           `json:"totalWeeks"`
	StartDate    string        `json:"startDateISO8601"`
	DayTemplates []DayTemplate `json:"dayTemplates"`
}

type DayTemplate struct {
	DayIdx       int               `json:"dayIdx"`
	Exercises    []ExerciseSpec    `json:"exercises"`
	Conditioning *ConditioningSpec `json:"conditioning"`
}

type ExerciseSpec struct {
	Name         string   `json:"name"`
	MuscleGroup  string   `json:"muscleGroup"`
	Equipment    string   `json:"equipment"`
	Sets         int      `json:"sets"`
	RepMin       int      `json:"repMin"`
	RepMax       int      `json:"repMax"`
	RestSec      int      `json:"restSec"`
	Tempo        *string  `json:"tempo"`
	TargetWeight *float64 `json:"targetWeight"`
	Progression  string   `json:"progression,omitempty"`
}

type ConditioningSpec struct {
	Type         string  `json:"type"`
	ProtocolText string  `json:"protocolText"`
	TargetZone   *string `json:"targetZone"`
	TargetPace   *string `json:"targetPace"`
	DurationMin  *int    `json:"durationMin"`
}

// Default returns the embedded 12-week template.
func Default() (Template, error) {
	return parseTemplate(defaultTemplate)
}

// LoadTemplate reads a JSON template from path, or the embedded default
// when path is empty.
func LoadTemplate(path string) (Template, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Template{}, fmt.Errorf("reading template: %w", err)
	}
	return parseTemplate(data)
}

func parseTemplate(data []byte) (Template, error) {
	var t Template
	if err := json.Unmarshal(data, &t); err != nil {
		return Template{}, fmt.Errorf("parsing template: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Template{}, err
	}
	return t, nil
}

// Validate checks the week count, day indexes and exercise prescriptions.
// An empty day list is valid and seeds the single-exercise fallback.
func (t Template) Validate() error {
	if t.TotalWeeks < 1 {
		return fmt.Errorf("template %q: totalWeeks must be at least 1", t.ProgramName)
	}
	if _, err := t.Start(); err != nil {
		return err
	}
	seen := make(map[int]bool)
	for _, d := range t.DayTemplates {
		if d.DayIdx < 1 {
			return fmt.Errorf("day template %d: dayIdx must be at least 1", d.DayIdx)
		}
		if seen[d.DayIdx] {
			return fmt.Errorf("day template %d: duplicate dayIdx", d.DayIdx)
		}
		seen[d.DayIdx] = true
		for _, ex := range d.Exercises {
			switch {
			case ex.Name == "":
				return fmt.Errorf("day %d: exercise without name", d.DayIdx)
			case ex.Sets < 1:
				return fmt.Errorf("day %d %s: sets must be at least 1", d.DayIdx, ex.Name)
			case ex.RepMin < 1 || ex.RepMax < ex.RepMin:
				return fmt.Errorf("day %d %s: invalid rep range %d-%d", d.DayIdx, ex.Name, ex.RepMin, ex.RepMax)
			case ex.Progression != "" && ex.Progression != models.ProgressionDouble && ex.Progression != models.ProgressionPullup:
				return fmt.Errorf("day %d %s: unknown progression %q", d.DayIdx, ex.Name, ex.Progression)
			}
		}
	}
	return nil
}

// Start returns the template's start day. Templates without a start date
// start today.
func (t Template) Start() (time.Time, error) {
	if t.StartDate == "" {
		return StartOfDay(time.Now()), nil
	}
	st, err := time.Parse(time.RFC3339, t.StartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("template start date: %w", err)
	}
	return StartOfDay(st), nil
}

// StartOfDay truncates t to midnight UTC of its calendar day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ComputeDate places a day plan relative to the program start: weeks are
// seven days apart and dayIdx 1 is the start day itself.
func ComputeDate(start time.Time, weekIdx, dayIdx int) time.Time {
	return StartOfDay(start).AddDate(0, 0, (weekIdx-1)*7+max(0, dayIdx-1))
}

// Build expands t into a dated program starting at start. Every exercise
// starts in the hypertrophy phase.
func Build(t Template, start time.Time) models.NewProgram {
	start = StartOfDay(start)
	p := models.NewProgram{
		Name:       t.ProgramName,
		StartDate:  start,
		TotalWeeks: t.TotalWeeks,
	}

	days := slices.Clone(t.DayTemplates)
	slices.SortFunc(days, func(a, b DayTemplate) int { return a.DayIdx - b.DayIdx })

	for week := 1; week <= t.TotalWeeks; week++ {
		for _, dt := range days {
			day := models.NewDay{
				WeekIdx: week,
				DayIdx:  dt.DayIdx,
				Date:    ComputeDate(start, week, dt.DayIdx),
			}
			for _, ex := range dt.Exercises {
				day.Exercises = append(day.Exercises, newDayExercise(ex))
			}
			if c := dt.Conditioning; c != nil {
				day.Conditioning = &models.NewConditioning{
					Type:         c.Type,
					ProtocolText: c.ProtocolText,
					TargetZone:   c.TargetZone,
					TargetPace:   c.TargetPace,
					DurationMin:  c.DurationMin,
				}
			}
			p.Days = append(p.Days, day)
		}
	}

	if len(p.Days) == 0 {
		p.Days = []models.NewDay{fallbackDay(start)}
	}
	return p
}

func newDayExercise(ex ExerciseSpec) models.NewDayExercise {
	equipment, _ := models.NormalizeEquipment(ex.Equipment)
	restSec := ex.RestSec
	if restSec == 0 {
		restSec = 120
	}
	return models.NewDayExercise{
		Template: models.ExerciseTemplateRow{
			Name:        ex.Name,
			MuscleGroup: ex.MuscleGroup,
			Equipment:   equipment,
			DefaultSets: ex.Sets,
			RepMin:      ex.RepMin,
			RepMax:      ex.RepMax,
			RestSec:     restSec,
			Tempo:       ex.Tempo,
			PhaseMode:   "AUTO",
			Progression: ex.Progression,
		},
		TargetWeight: ex.TargetWeight,
		RepMin:       ex.RepMin,
		RepMax:       ex.RepMax,
		Sets:         ex.Sets,
		Phase:        string(engine.PhaseHypertrophy),
	}
}

// fallbackDay is the single Bench Press day seeded when a template has no days.
func fallbackDay(start time.Time) models.NewDay {
	return models.NewDay{
		WeekIdx: 1,
		DayIdx:  1,
		Date:    ComputeDate(start, 1, 1),
		Exercises: []models.NewDayExercise{newDayExercise(ExerciseSpec{
			Name:         "Bench Press",
			MuscleGroup:  "chest",
			Equipment:    models.EquipmentBarbell,
			Sets:         3,
			RepMin:       8,
			RepMax:       12,
			RestSec:      120,
			TargetWeight: engine.Float(60),
		})},
	}
}
