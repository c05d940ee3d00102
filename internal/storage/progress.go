package storage

import (
	"context"
	"fmt"
	"time"
)

// TemplateBestSet is the heaviest estimated set of a template's most
// recently logged exposure.
type TemplateBestSet struct {
	TemplateID int64     `json:"template_id"`
	Name       string    `json:"name"`
	Equipment  string    `json:"equipment"`
	Date       time.Time `json:"date"`
	Phase      string    `json:"phase"`
	Weight     *float64  `json:"weight,omitempty"`
	Reps       int       `json:"reps"`
}

// LatestBestSets returns one row per template with at least one logged set.
func (db *DB) LatestBestSets(ctx context.Context, userID int) ([]TemplateBestSet, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT DISTINCT ON (t.id) t.id, t.name, t.equipment, d.date, de.phase, l.weight, l.reps
		 FROM exercise_logs l
		 JOIN day_exercises de ON de.id = l.day_exercise_id
		 JOIN day_plans d ON d.id = de.day_id
		 JOIN exercise_templates t ON t.id = de.template_id
		 WHERE l.user_id = $1
		 ORDER BY t.id, d.date DESC, COALESCE(l.weight, 0) * (1 + l.reps / 30.0) DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying best sets: %w", err)
	}
	defer rows.Close()

	var result []TemplateBestSet
	for rows.Next() {
		var s TemplateBestSet
		if err := rows.Scan(&s.TemplateID, &s.Name, &s.Equipment, &s.Date, &s.Phase, &s.Weight, &s.Reps); err != nil {
			return nil, fmt.Errorf("scanning best set: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}
