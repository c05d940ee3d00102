package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/meltforce/ultimatecoach/internal/models"
	"github.com/meltforce/ultimatecoach/internal/storage"
)

// HTTPClient implements DataSource by calling the coach REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL. The API
// key is optional; it is sent as a bearer token when set.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, v any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("httpclient: %s: %w", path, storage.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func timeParams(start, end time.Time) url.Values {
	v := url.Values{}
	v.Set("start", start.Format(time.RFC3339))
	v.Set("end", end.Format(time.RFC3339))
	return v
}

func (c *HTTPClient) GetDayByDate(ctx context.Context, _ int, date time.Time) (*models.DayDetail, error) {
	params := url.Values{}
	params.Set("date", date.Format("2006-01-02"))

	var day models.DayDetail
	if err := c.get(ctx, "/api/v1/today", params, &day); err != nil {
		return nil, err
	}
	return &day, nil
}

func (c *HTTPClient) QueryLoggedSets(ctx context.Context, _ int, start, end time.Time, exercise string) ([]storage.LoggedSet, error) {
	params := timeParams(start, end)
	if exercise != "" {
		params.Set("exercise", exercise)
	}

	var sets []storage.LoggedSet
	if err := c.get(ctx, "/api/v1/logs", params, &sets); err != nil {
		return nil, err
	}
	return sets, nil
}

func (c *HTTPClient) LatestBestSets(ctx context.Context, _ int) ([]storage.TemplateBestSet, error) {
	var best []storage.TemplateBestSet
	if err := c.get(ctx, "/api/v1/progress/best-sets", nil, &best); err != nil {
		return nil, err
	}
	return best, nil
}

func (c *HTTPClient) GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, _ int) ([]storage.TrainingSummaryPeriod, error) {
	params := timeParams(start, end)
	if bucket == "1 month" {
		params.Set("bucket", "month")
	}

	var summary []storage.TrainingSummaryPeriod
	if err := c.get(ctx, "/api/v1/training/summary", params, &summary); err != nil {
		return nil, err
	}
	return summary, nil
}

func (c *HTTPClient) GetTrainingIntensity(ctx context.Context, start, end time.Time, _ int, exerciseFilter string) (*storage.TrainingIntensityResult, error) {
	params := timeParams(start, end)
	if exerciseFilter != "" {
		params.Set("exercise", exerciseFilter)
	}

	var result storage.TrainingIntensityResult
	if err := c.get(ctx, "/api/v1/training/intensity", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) GetDataStats(ctx context.Context, _ int) (*storage.DataStats, error) {
	var stats storage.DataStats
	if err := c.get(ctx, "/api/v1/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
