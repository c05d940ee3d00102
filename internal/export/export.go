// Package export converts a user's program to and from a portable JSON
// document.
package export

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/ultimatecoach/internal/engine"
	"github.com/meltforce/ultimatecoach/internal/models"
)

// Document is the exported program. Keys match the mobile app's export
// format so files can move between the two.
type Document struct {
	Name       string    `json:"name"`
	StartDate  time.Time `json:"startDate"`
	TotalWeeks int       `json:"totalWeeks"`
	Days       []Day     `json:"days"`
}

type Day struct {
	WeekIdx      int           `json:"weekIdx"`
	DayIdx       int           `json:"dayIdx"`
	Date         *time.Time    `json:"date,omitempty"`
	Exercises    []Exercise    `json:"exercises"`
	Conditioning *Conditioning `json:"conditioning,omitempty"`
}

type Exercise struct {
	TemplateName  string   `json:"templateName"`
	Equipment     string   `json:"equipment"`
	MuscleGroup   string   `json:"muscleGroup,omitempty"`
	Progression   string   `json:"progression,omitempty"`
	RestSec       int      `json:"restSec,omitempty"`
	Sets          int      `json:"sets"`
	TargetWeight  *float64 `json:"targetWeight,omitempty"`
	TargetRepsMin int      `json:"targetRepsMin"`
	TargetRepsMax int      `json:"targetRepsMax"`
	Phase         string   `json:"phase"`
	Logs          []Log    `json:"logs"`
}

type Log struct {
	SetIdx       int       `json:"setIdx"`
	ActualWeight *float64  `json:"actualWeight,omitempty"`
	Reps         int       `json:"reps"`
	RIR          *float64  `json:"rir,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	Source       string    `json:"source,omitempty"`
}

type Conditioning struct {
	Type         string     `json:"type"`
	ProtocolText string     `json:"protocolText"`
	TargetZone   *string    `json:"targetZone,omitempty"`
	TargetPace   *string    `json:"targetPace,omitempty"`
	DurationMin  *int       `json:"durationMin,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	Success      *bool      `json:"success,omitempty"`
}

// Store is the persistence export and import need.
type Store interface {
	GetProgram(ctx context.Context, userID int) (*models.ProgramRow, error)
	ListProgramDays(ctx context.Context, userID int) ([]models.DayDetail, error)
	ListTemplates(ctx context.Context, userID int) ([]models.ExerciseTemplateRow, error)
	ListUserExerciseLogs(ctx context.Context, userID int) ([]models.ExerciseLogRow, error)
	ReplaceProgram(ctx context.Context, userID int, p models.NewProgram) (uuid.UUID, error)
}

// Export builds the document for the user's program. Returns
// storage.ErrNotFound when the user has no program.
func Export(ctx context.Context, store Store, userID int) (*Document, error) {
	p, err := store.GetProgram(ctx, userID)
	if err != nil {
		return nil, err
	}
	days, err := store.ListProgramDays(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing days: %w", err)
	}
	templates, err := store.ListTemplates(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing templates: %w", err)
	}
	logs, err := store.ListUserExerciseLogs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing logs: %w", err)
	}

	muscle := make(map[int64]string, len(templates))
	for _, t := range templates {
		muscle[t.ID] = t.MuscleGroup
	}
	byExercise := make(map[int64][]models.ExerciseLogRow)
	for _, l := range logs {
		byExercise[l.DayExerciseID] = append(byExercise[l.DayExerciseID], l)
	}

	doc := &Document{Name: p.Name, StartDate: p.StartDate, TotalWeeks: p.TotalWeeks, Days: make([]Day, 0, len(days))}
	for _, d := range days {
		day := Day{WeekIdx: d.WeekIdx, DayIdx: d.DayIdx, Exercises: make([]Exercise, 0, len(d.Exercises))}
		if !d.Date.IsZero() {
			date := d.Date
			day.Date = &date
		}
		exercises := slices.Clone(d.Exercises)
		slices.SortStableFunc(exercises, func(a, b models.DayExerciseRow) int { return cmp.Compare(a.OrderIdx, b.OrderIdx) })
		for _, ex := range exercises {
			e := Exercise{
				TemplateName:  ex.TemplateName,
				Equipment:     ex.Equipment,
				MuscleGroup:   muscle[ex.TemplateID],
				Progression:   ex.Progression,
				RestSec:       ex.RestSec,
				Sets:          ex.Sets,
				TargetWeight:  ex.TargetWeight,
				TargetRepsMin: ex.RepMin,
				TargetRepsMax: ex.RepMax,
				Phase:         ex.Phase,
				Logs:          []Log{},
			}
			exLogs := byExercise[ex.ID]
			slices.SortFunc(exLogs, func(a, b models.ExerciseLogRow) int { return cmp.Compare(a.SetIdx, b.SetIdx) })
			for _, l := range exLogs {
				e.Logs = append(e.Logs, Log{
					SetIdx:       l.SetIdx,
					ActualWeight: l.Weight,
					Reps:         l.Reps,
					RIR:          l.RIR,
					Timestamp:    l.LoggedAt,
					Source:       l.Source,
				})
			}
			day.Exercises = append(day.Exercises, e)
		}
		if c := d.Conditioning; c != nil {
			day.Conditioning = &Conditioning{
				Type:         c.Type,
				ProtocolText: c.ProtocolText,
				TargetZone:   c.TargetZone,
				TargetPace:   c.TargetPace,
				DurationMin:  c.DurationMin,
				CompletedAt:  c.CompletedAt,
				Success:      c.Success,
			}
		}
		doc.Days = append(doc.Days, day)
	}
	slices.SortFunc(doc.Days, func(a, b Day) int {
		return cmp.Or(cmp.Compare(a.WeekIdx, b.WeekIdx), cmp.Compare(a.DayIdx, b.DayIdx))
	})
	return doc, nil
}

// Write encodes doc as indented JSON.
func Write(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Read decodes and validates a document.
func Read(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding export: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate rejects documents the engine could not work with.
func (d *Document) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("export: program name is required")
	}
	for _, day := range d.Days {
		if day.WeekIdx < 1 || day.DayIdx < 1 {
			return fmt.Errorf("export: day %d/%d: indexes start at 1", day.WeekIdx, day.DayIdx)
		}
		for _, ex := range day.Exercises {
			if ex.TemplateName == "" {
				return fmt.Errorf("export: day %d/%d: exercise without name", day.WeekIdx, day.DayIdx)
			}
			if _, err := engine.ParsePhase(ex.Phase); err != nil {
				return fmt.Errorf("export: %s: %w", ex.TemplateName, err)
			}
			if ex.TargetRepsMin > ex.TargetRepsMax {
				return fmt.Errorf("export: %s: rep range %d-%d", ex.TemplateName, ex.TargetRepsMin, ex.TargetRepsMax)
			}
			for _, l := range ex.Logs {
				if l.Reps < 1 {
					return fmt.Errorf("export: %s set %d: reps %d", ex.TemplateName, l.SetIdx, l.Reps)
				}
			}
		}
	}
	return nil
}

// Import replaces the user's program with doc. Templates are shared by
// name; the first occurrence defines the template.
func Import(ctx context.Context, store Store, userID int, doc *Document) (uuid.UUID, error) {
	if err := doc.Validate(); err != nil {
		return uuid.Nil, err
	}
	return store.ReplaceProgram(ctx, userID, doc.NewProgram(userID))
}

// NewProgram converts the document into the storage shape.
func (d *Document) NewProgram(userID int) models.NewProgram {
	p := models.NewProgram{Name: d.Name, StartDate: d.StartDate, TotalWeeks: d.TotalWeeks}
	for _, day := range d.Days {
		nd := models.NewDay{WeekIdx: day.WeekIdx, DayIdx: day.DayIdx}
		if day.Date != nil {
			nd.Date = *day.Date
		}
		for _, ex := range day.Exercises {
			restSec := ex.RestSec
			if restSec == 0 {
				restSec = 120
			}
			equipment, _ := models.NormalizeEquipment(ex.Equipment)
			nex := models.NewDayExercise{
				Template: models.ExerciseTemplateRow{
					Name:        ex.TemplateName,
					MuscleGroup: ex.MuscleGroup,
					Equipment:   equipment,
					DefaultSets: ex.Sets,
					RepMin:      ex.TargetRepsMin,
					RepMax:      ex.TargetRepsMax,
					RestSec:     restSec,
					Progression: ex.Progression,
				},
				TargetWeight: ex.TargetWeight,
				RepMin:       ex.TargetRepsMin,
				RepMax:       ex.TargetRepsMax,
				Sets:         ex.Sets,
				Phase:        ex.Phase,
			}
			for _, l := range ex.Logs {
				nex.Logs = append(nex.Logs, models.ExerciseLogRow{
					UserID:   userID,
					SetIdx:   l.SetIdx,
					Weight:   l.ActualWeight,
					Reps:     l.Reps,
					RIR:      l.RIR,
					LoggedAt: l.Timestamp,
					Source:   l.Source,
				})
			}
			nd.Exercises = append(nd.Exercises, nex)
		}
		if c := day.Conditioning; c != nil {
			nd.Conditioning = &models.NewConditioning{
				Type:         c.Type,
				ProtocolText: c.ProtocolText,
				TargetZone:   c.TargetZone,
				TargetPace:   c.TargetPace,
				DurationMin:  c.DurationMin,
				CompletedAt:  c.CompletedAt,
				Success:      c.Success,
			}
		}
		p.Days = append(p.Days, nd)
	}
	return p
}
