package coach

import (
	"context"
	"slices"
	"strings"

	"github.com/meltforce/ultimatecoach/internal/engine"
	"github.com/meltforce/ultimatecoach/internal/storage"
)

// ProgressEntry is the latest strength estimate of one exercise.
type ProgressEntry struct {
	Exercise     string   `json:"exercise"`
	Equipment    string   `json:"equipment"`
	Date         string   `json:"date"`
	Phase        string   `json:"phase"`
	Weight       *float64 `json:"weight,omitempty"`
	Reps         int      `json:"reps"`
	Estimated1RM float64  `json:"estimated_1rm"`
}

// Progress returns the Epley estimate of each exercise's best set from its
// most recent logged exposure. Bodyweight sets estimate to 0.
func (s *Service) Progress(ctx context.Context, userID int) ([]ProgressEntry, error) {
	best, err := s.store.LatestBestSets(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ProgressFromBestSets(best), nil
}

// ProgressFromBestSets converts best sets to progress entries sorted by
// exercise name.
func ProgressFromBestSets(best []storage.TemplateBestSet) []ProgressEntry {
	out := make([]ProgressEntry, 0, len(best))
	for _, b := range best {
		var w float64
		if b.Weight != nil {
			w = *b.Weight
		}
		out = append(out, ProgressEntry{
			Exercise:     b.Name,
			Equipment:    b.Equipment,
			Date:         b.Date.Format("2006-01-02"),
			Phase:        b.Phase,
			Weight:       b.Weight,
			Reps:         b.Reps,
			Estimated1RM: engine.RoundToIncrement(engine.Epley1RM(w, b.Reps), 0.1),
		})
	}
	slices.SortFunc(out, func(a, b ProgressEntry) int { return strings.Compare(a.Exercise, b.Exercise) })
	return out
}
