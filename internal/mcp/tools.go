package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/meltforce/ultimatecoach/internal/coach"
	"github.com/meltforce/ultimatecoach/internal/engine"
	"github.com/meltforce/ultimatecoach/internal/storage"
)

// defaultTimeRange returns start/end defaulting to the last 7 days.
func defaultTimeRange(startStr, endStr string) (time.Time, time.Time, error) {
	return timeRange(startStr, endStr, 7)
}

// timeRange parses optional start/end bounds; a missing start is days
// before end.
func timeRange(startStr, endStr string, days int) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -days)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// setLogSchema describes one engine.SetLog in tool input schemas.
var setLogSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"weight": map[string]any{"type": "number", "description": "Load in kg. Omit for bodyweight."},
		"reps":   map[string]any{"type": "integer"},
		"rir":    map[string]any{"type": "number", "description": "Reps in reserve. Omit if not tracked."},
	},
	"required": []string{"reps"},
}

// --- Tool definitions ---

var toolGetToday = mcp.NewTool("get_today",
	mcp.WithDescription("Get the training day scheduled for a date: each exercise with target weight, rep range, set count, phase and sets logged so far, plus the conditioning protocol."),
	mcp.WithString("date", mcp.Description("Date (YYYY-MM-DD). Defaults to today.")),
)

var toolGetExerciseLogs = mcp.NewTool("get_exercise_logs",
	mcp.WithDescription("Query logged strength sets with weight, reps, RIR, phase and source (app or Alpha Progression import)."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 7 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
	mcp.WithString("exercise", mcp.Description("Filter by exercise name (partial match, e.g. 'bench')")),
)

var toolGetProgress = mcp.NewTool("get_progress",
	mcp.WithDescription("Estimated one-rep max (Epley) of every exercise's latest best set."),
)

var toolGetTrainingSummary = mcp.NewTool("get_training_summary",
	mcp.WithDescription("Weekly/monthly strength volume (sets, reps, tonnage) and conditioning completion per period."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 6 months ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
	mcp.WithString("bucket", mcp.Description("Aggregation period. Defaults to '1 week'."), mcp.Enum("1 week", "1 month")),
)

var toolGetTrainingIntensity = mcp.NewTool("get_training_intensity",
	mcp.WithDescription("RIR distribution, failure rate, per-exercise stats, and optional exercise progression. Returns intensity analysis for strength training."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 90 days ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
	mcp.WithString("exercise", mcp.Description("Filter by exercise name (partial match). When set, includes session-by-session progression.")),
)

var toolGetStats = mcp.NewTool("get_stats",
	mcp.WithDescription("Counts of scheduled days, logged sets and completed conditioning sessions, sets per exercise and per source."),
)

var toolComputeNextTargets = mcp.NewTool("compute_next_targets",
	mcp.WithDescription("Run double progression on one exposure: returns the next target, the branch taken (progress, deload, tighten, hold) and the assessment of the logged sets."),
	mcp.WithArray("last_logs", mcp.Required(), mcp.Description("Sets logged in the exposure"), mcp.Items(setLogSchema)),
	mcp.WithNumber("weight", mcp.Description("Prescribed weight of the exposure. Omit for bodyweight.")),
	mcp.WithNumber("rep_min", mcp.Required(), mcp.Description("Bottom of the prescribed rep range")),
	mcp.WithNumber("rep_max", mcp.Required(), mcp.Description("Top of the prescribed rep range")),
	mcp.WithNumber("sets", mcp.Description("Prescribed set count. Defaults to the number of logs.")),
	mcp.WithString("phase", mcp.Required(), mcp.Description("Training phase"), mcp.Enum("HYP", "STR")),
	mcp.WithString("equipment", mcp.Description("Equipment; barbell uses the barbell increment, everything else the dumbbell increment. Defaults to barbell.")),
	mcp.WithNumber("consecutive_misses", mcp.Description("Misses before this exposure. Defaults to 0.")),
)

var toolShouldSwitchPhase = mcp.NewTool("should_switch_phase",
	mcp.WithDescription("Decide the phase for the next block: HYP moves to STR on a 5% load gain with average RIR at or below 1; STR returns to HYP when average RIR exceeds 2."),
	mcp.WithArray("history", mcp.Required(), mcp.Description("Recent sets of the exercise"), mcp.Items(setLogSchema)),
	mcp.WithString("current_phase", mcp.Required(), mcp.Enum("HYP", "STR")),
	mcp.WithNumber("block_start_load", mcp.Description("Working load at the start of the block")),
	mcp.WithNumber("current_load", mcp.Description("Current working load")),
)

var toolAggregatePullupVolume = mcp.NewTool("aggregate_pullup_volume",
	mcp.WithDescription("Total pull-up reps of a session and the suggested added-weight change."),
	mcp.WithArray("logs", mcp.Required(), mcp.Description("Pull-up sets; weight is added load"), mcp.Items(setLogSchema)),
)

var toolNextRowingPrescription = mcp.NewTool("next_rowing_prescription",
	mcp.WithDescription("Advance a rowing protocol: intervals like 6x500m/90s gain one repeat on success, zone work like Zone2 26-30m gains two minutes up to 30. Other text is returned unchanged."),
	mcp.WithString("previous", mcp.Required(), mcp.Description("Protocol text of the last session")),
	mcp.WithBoolean("success", mcp.Required(), mcp.Description("Whether the last session was completed")),
)

var toolEstimate1RM = mcp.NewTool("estimate_1rm",
	mcp.WithDescription("Estimate a one-rep max with the Epley formula. 'epley' is 0 for non-positive inputs; 'estimate' passes the weight through when reps is not positive."),
	mcp.WithNumber("weight", mcp.Required(), mcp.Description("Load lifted")),
	mcp.WithNumber("reps", mcp.Required(), mcp.Description("Reps completed")),
)

// --- Tool handlers ---

func (h *handlers) getToday(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date := time.Now().UTC()
	if d := req.GetString("date", ""); d != "" {
		var err error
		if date, err = time.Parse("2006-01-02", d); err != nil {
			return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
		}
	}

	day, err := h.ds.GetDayByDate(ctx, UserIDFromContext(ctx), date)
	if errors.Is(err, storage.ErrNotFound) {
		return mcp.NewToolResultText("No training scheduled on " + date.Format("2006-01-02") + "."), nil
	}
	if err != nil {
		h.log.Error("mcp get_today", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(day)
}

func (h *handlers) getExerciseLogs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	sets, err := h.ds.QueryLoggedSets(ctx, UserIDFromContext(ctx), start, end, req.GetString("exercise", ""))
	if err != nil {
		h.log.Error("mcp get_exercise_logs", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(sets)
}

func (h *handlers) getProgress(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	best, err := h.ds.LatestBestSets(ctx, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp get_progress", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(coach.ProgressFromBestSets(best))
}

func (h *handlers) getTrainingSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := timeRange(req.GetString("start", ""), req.GetString("end", ""), 182)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	bucket := req.GetString("bucket", "1 week")
	summary, err := h.ds.GetTrainingSummary(ctx, start, end, bucket, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp get_training_summary", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(summary)
}

func (h *handlers) getTrainingIntensity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := timeRange(req.GetString("start", ""), req.GetString("end", ""), 90)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	result, err := h.ds.GetTrainingIntensity(ctx, start, end, UserIDFromContext(ctx), req.GetString("exercise", ""))
	if err != nil {
		h.log.Error("mcp get_training_intensity", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(result)
}

func (h *handlers) getStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := h.ds.GetDataStats(ctx, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp get_stats", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(stats)
}

func (h *handlers) computeNextTargets(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		LastLogs          []engine.SetLog `json:"last_logs"`
		Weight            *float64        `json:"weight"`
		RepMin            int             `json:"rep_min"`
		RepMax            int             `json:"rep_max"`
		Sets              int             `json:"sets"`
		Phase             string          `json:"phase"`
		Equipment         string          `json:"equipment"`
		ConsecutiveMisses int             `json:"consecutive_misses"`
	}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError("invalid arguments: " + err.Error()), nil
	}
	phase, err := engine.ParsePhase(args.Phase)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if args.Sets == 0 {
		args.Sets = len(args.LastLogs)
	}
	if args.Equipment == "" {
		args.Equipment = engine.EquipmentBarbell
	}

	target := engine.Target{Weight: args.Weight, RepMin: args.RepMin, RepMax: args.RepMax, Sets: args.Sets, Phase: phase}
	step, err := engine.Advance(args.LastLogs, target, h.progression.Rule(args.Equipment), phase, args.ConsecutiveMisses)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(step)
}

func (h *handlers) shouldSwitchPhase(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		History        []engine.SetLog `json:"history"`
		CurrentPhase   string          `json:"current_phase"`
		BlockStartLoad *float64        `json:"block_start_load"`
		CurrentLoad    *float64        `json:"current_load"`
	}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError("invalid arguments: " + err.Error()), nil
	}
	current, err := engine.ParsePhase(args.CurrentPhase)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	next, err := engine.ShouldSwitchPhase(args.History, current, args.BlockStartLoad, args.CurrentLoad)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"phase": next, "switched": next != current})
}

func (h *handlers) aggregatePullupVolume(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Logs []engine.SetLog `json:"logs"`
	}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError("invalid arguments: " + err.Error()), nil
	}
	return jsonResult(engine.AggregatePullupVolume(args.Logs))
}

func (h *handlers) nextRowingPrescription(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	previous, err := req.RequireString("previous")
	if err != nil {
		return mcp.NewToolResultError("previous parameter is required"), nil
	}
	success := req.GetBool("success", false)
	return mcp.NewToolResultText(engine.NextRowingPrescription(previous, success)), nil
}

func (h *handlers) estimate1RM(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	weight := req.GetFloat("weight", 0)
	reps := req.GetInt("reps", 0)
	return jsonResult(map[string]float64{
		"estimate": engine.Estimate1RM(weight, reps),
		"epley":    engine.Epley1RM(weight, reps),
	})
}

// --- Resource handlers ---

func (h *handlers) todayResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	today := time.Now().UTC()
	day, err := h.ds.GetDayByDate(ctx, UserIDFromContext(ctx), today)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	summary := map[string]any{
		"date":      today.Format("2006-01-02"),
		"scheduled": day != nil,
		"day":       day,
	}
	return jsonContents(req.Params.URI, summary)
}

func (h *handlers) progressResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	best, err := h.ds.LatestBestSets(ctx, UserIDFromContext(ctx))
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, coach.ProgressFromBestSets(best))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
