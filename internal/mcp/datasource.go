package mcp

import (
	"context"
	"time"

	"github.com/meltforce/ultimatecoach/internal/models"
	"github.com/meltforce/ultimatecoach/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. Both *storage.DB (local)
// and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	GetDayByDate(ctx context.Context, userID int, date time.Time) (*models.DayDetail, error)
	QueryLoggedSets(ctx context.Context, userID int, start, end time.Time, exercise string) ([]storage.LoggedSet, error)
	LatestBestSets(ctx context.Context, userID int) ([]storage.TemplateBestSet, error)
	GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, userID int) ([]storage.TrainingSummaryPeriod, error)
	GetTrainingIntensity(ctx context.Context, start, end time.Time, userID int, exerciseFilter string) (*storage.TrainingIntensityResult, error)
	GetDataStats(ctx context.Context, userID int) (*storage.DataStats, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)
