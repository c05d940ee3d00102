// Package ingest holds what every import source reports back.
package ingest

// Result holds the outcome of an ingest operation.
type Result struct {
	SessionsReceived   int      `json:"sessions_received"`
	SetsReceived       int      `json:"sets_received"`
	SetsInserted       int64    `json:"sets_inserted"`
	SetsSkipped        int64    `json:"sets_skipped"`
	SetsUnmatched      int      `json:"sets_unmatched"`
	ExercisesMatched   int      `json:"exercises_matched"`
	ExposuresCompleted int      `json:"exposures_completed"`
	Unmatched          []string `json:"unmatched,omitempty"`

	Message string `json:"message,omitempty"`
}
