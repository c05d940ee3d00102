package export

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/ultimatecoach/internal/engine"
	"github.com/meltforce/ultimatecoach/internal/models"
	"github.com/meltforce/ultimatecoach/internal/storage"
)

type fakeStore struct {
	program   *models.ProgramRow
	days      []models.DayDetail
	templates []models.ExerciseTemplateRow
	logs      []models.ExerciseLogRow
	replaced  *models.NewProgram
}

func (f *fakeStore) GetProgram(context.Context, int) (*models.ProgramRow, error) {
	if f.program == nil {
		return nil, storage.ErrNotFound
	}
	return f.program, nil
}

func (f *fakeStore) ListProgramDays(context.Context, int) ([]models.DayDetail, error) {
	return f.days, nil
}

func (f *fakeStore) ListTemplates(context.Context, int) ([]models.ExerciseTemplateRow, error) {
	return f.templates, nil
}

func (f *fakeStore) ListUserExerciseLogs(context.Context, int) ([]models.ExerciseLogRow, error) {
	return f.logs, nil
}

func (f *fakeStore) ReplaceProgram(_ context.Context, _ int, p models.NewProgram) (uuid.UUID, error) {
	f.replaced = &p
	return uuid.New(), nil
}

var start = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

func sampleStore() *fakeStore {
	zone := "Z2"
	success := true
	done := start.Add(26 * time.Hour)
	return &fakeStore{
		program: &models.ProgramRow{ID: uuid.New(), Name: "Ultimate Coach 12wk", StartDate: start, TotalWeeks: 12},
		templates: []models.ExerciseTemplateRow{
			{ID: 1, Name: "Bench Press", MuscleGroup: "chest"},
			{ID: 2, Name: "Pull-Ups", MuscleGroup: "back"},
		},
		// Out of order on purpose.
		days: []models.DayDetail{
			{
				DayPlanRow: models.DayPlanRow{ID: 11, WeekIdx: 2, DayIdx: 1, Date: start.AddDate(0, 0, 7)},
				Exercises: []models.DayExerciseRow{
					{ID: 110, TemplateID: 1, TemplateName: "Bench Press", Equipment: "barbell", RepMin: 8, RepMax: 12, Sets: 3, Phase: "HYP", TargetWeight: engine.Float(62.5)},
				},
			},
			{
				DayPlanRow: models.DayPlanRow{ID: 10, WeekIdx: 1, DayIdx: 1, Date: start},
				Exercises: []models.DayExerciseRow{
					{ID: 101, TemplateID: 2, TemplateName: "Pull-Ups", Equipment: "bodyweight", Progression: models.ProgressionPullup, RepMin: 6, RepMax: 10, Sets: 4, OrderIdx: 1, Phase: "HYP"},
					{ID: 100, TemplateID: 1, TemplateName: "Bench Press", Equipment: "barbell", RestSec: 180, RepMin: 8, RepMax: 12, Sets: 3, OrderIdx: 0, Phase: "HYP", TargetWeight: engine.Float(60)},
				},
				Conditioning: &models.ConditioningRow{Type: "row", ProtocolText: "Zone2 26-30m", TargetZone: &zone, CompletedAt: &done, Success: &success},
			},
		},
		logs: []models.ExerciseLogRow{
			{DayExerciseID: 100, SetIdx: 2, Weight: engine.Float(60), Reps: 11, RIR: engine.Float(1), LoggedAt: start, Source: "manual"},
			{DayExerciseID: 100, SetIdx: 1, Weight: engine.Float(60), Reps: 12, RIR: engine.Float(2), LoggedAt: start, Source: "manual"},
		},
	}
}

// TestExportOrdersDaysExercisesAndLogs verifies the document is sorted by
// week and day, exercises by order and logs by set index.
func TestExportOrdersDaysExercisesAndLogs(t *testing.T) {
	doc, err := Export(context.Background(), sampleStore(), 1)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(doc.Days) != 2 {
		t.Fatalf("days = %d, want 2", len(doc.Days))
	}
	d1 := doc.Days[0]
	if d1.WeekIdx != 1 || d1.DayIdx != 1 {
		t.Errorf("first day = %d/%d, want 1/1", d1.WeekIdx, d1.DayIdx)
	}
	if d1.Exercises[0].TemplateName != "Bench Press" {
		t.Errorf("first exercise = %q, want Bench Press", d1.Exercises[0].TemplateName)
	}
	if d1.Exercises[0].MuscleGroup != "chest" {
		t.Errorf("muscle group = %q, want chest", d1.Exercises[0].MuscleGroup)
	}
	logs := d1.Exercises[0].Logs
	if len(logs) != 2 || logs[0].SetIdx != 1 || logs[0].Reps != 12 {
		t.Errorf("logs = %+v", logs)
	}
	if d1.Exercises[1].Logs == nil {
		t.Error("exercise without logs should export an empty list")
	}
	if d1.Conditioning == nil || d1.Conditioning.ProtocolText != "Zone2 26-30m" {
		t.Errorf("conditioning = %+v", d1.Conditioning)
	}
}

// TestExportWithoutProgram verifies the not-found error passes through.
func TestExportWithoutProgram(t *testing.T) {
	_, err := Export(context.Background(), &fakeStore{}, 1)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// TestWriteUsesAppKeys verifies the JSON keys match the app export format.
func TestWriteUsesAppKeys(t *testing.T) {
	doc, err := Export(context.Background(), sampleStore(), 1)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := Write(&buf, doc); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"startDate"`, `"totalWeeks"`, `"weekIdx"`, `"templateName"`, `"targetRepsMin"`, `"actualWeight"`, `"protocolText"`} {
		if !strings.Contains(buf.String(), key) {
			t.Errorf("output missing %s", key)
		}
	}
}

// TestRoundTrip verifies an exported document imports into the same
// program shape, with logs and conditioning results kept.
func TestRoundTrip(t *testing.T) {
	doc, err := Export(context.Background(), sampleStore(), 1)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := Write(&buf, doc); err != nil {
		t.Fatal(err)
	}
	read, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	target := &fakeStore{}
	if _, err := Import(context.Background(), target, 7, read); err != nil {
		t.Fatalf("Import: %v", err)
	}
	p := target.replaced
	if p.Name != "Ultimate Coach 12wk" || p.TotalWeeks != 12 || !p.StartDate.Equal(start) {
		t.Errorf("program = %q %d %v", p.Name, p.TotalWeeks, p.StartDate)
	}
	if len(p.Days) != 2 {
		t.Fatalf("days = %d, want 2", len(p.Days))
	}
	bench := p.Days[0].Exercises[0]
	if bench.Template.Name != "Bench Press" || bench.Template.RestSec != 180 {
		t.Errorf("bench template = %+v", bench.Template)
	}
	if bench.TargetWeight == nil || *bench.TargetWeight != 60 {
		t.Errorf("bench target = %v, want 60", bench.TargetWeight)
	}
	if len(bench.Logs) != 2 || bench.Logs[0].UserID != 7 || bench.Logs[1].Reps != 11 {
		t.Errorf("bench logs = %+v", bench.Logs)
	}
	pullups := p.Days[0].Exercises[1]
	if pullups.Template.Progression != models.ProgressionPullup {
		t.Errorf("pull-up progression = %q", pullups.Template.Progression)
	}
	if pullups.Template.RestSec != 120 {
		t.Errorf("default rest = %d, want 120", pullups.Template.RestSec)
	}
	c := p.Days[0].Conditioning
	if c == nil || c.Success == nil || !*c.Success || c.TargetZone == nil || *c.TargetZone != "Z2" {
		t.Errorf("conditioning = %+v", c)
	}
}

// TestReadRejectsInvalid covers the validation rules.
func TestReadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"no name", `{"name":"","days":[]}`},
		{"zero week", `{"name":"p","days":[{"weekIdx":0,"dayIdx":1,"exercises":[]}]}`},
		{"bad phase", `{"name":"p","days":[{"weekIdx":1,"dayIdx":1,"exercises":[{"templateName":"Squat","phase":"POWER","targetRepsMin":3,"targetRepsMax":5}]}]}`},
		{"inverted reps", `{"name":"p","days":[{"weekIdx":1,"dayIdx":1,"exercises":[{"templateName":"Squat","phase":"STR","targetRepsMin":6,"targetRepsMax":3}]}]}`},
		{"lowercase phase", `{"name":"p","days":[{"weekIdx":1,"dayIdx":1,"exercises":[{"templateName":"Squat","phase":"str","targetRepsMin":3,"targetRepsMax":5}]}]}`},
		{"zero reps", `{"name":"p","days":[{"weekIdx":1,"dayIdx":1,"exercises":[{"templateName":"Squat","phase":"STR","targetRepsMin":3,"targetRepsMax":5,"logs":[{"setIdx":1,"reps":0,"timestamp":"2025-09-01T18:00:00Z"}]}]}]}`},
		{"not json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Read(strings.NewReader(tt.json)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
