package mcp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/meltforce/ultimatecoach/internal/config"
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the user ID injected by the transport layer.
func UserIDFromContext(ctx context.Context) int {
	if id, ok := ctx.Value(userIDKey).(int); ok {
		return id
	}
	return 1
}

// WithUserID returns a context with the given user ID.
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// New creates an MCP server with all tools and resources registered. The
// progression settings supply the default rule for compute_next_targets.
func New(ds DataSource, progression config.ProgressionConfig, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("UltimateCoach", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("Strength and conditioning coach. Read the scheduled training day, logged sets and estimated 1RMs, and run the progression engine to explain or preview the next prescription. All data is scoped to the authenticated user."),
	)

	h := &handlers{ds: ds, progression: progression, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetToday, Handler: h.getToday},
		server.ServerTool{Tool: toolGetExerciseLogs, Handler: h.getExerciseLogs},
		server.ServerTool{Tool: toolGetProgress, Handler: h.getProgress},
		server.ServerTool{Tool: toolGetTrainingSummary, Handler: h.getTrainingSummary},
		server.ServerTool{Tool: toolGetTrainingIntensity, Handler: h.getTrainingIntensity},
		server.ServerTool{Tool: toolGetStats, Handler: h.getStats},
		server.ServerTool{Tool: toolComputeNextTargets, Handler: h.computeNextTargets},
		server.ServerTool{Tool: toolShouldSwitchPhase, Handler: h.shouldSwitchPhase},
		server.ServerTool{Tool: toolAggregatePullupVolume, Handler: h.aggregatePullupVolume},
		server.ServerTool{Tool: toolNextRowingPrescription, Handler: h.nextRowingPrescription},
		server.ServerTool{Tool: toolEstimate1RM, Handler: h.estimate1RM},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resToday, Handler: h.todayResource},
		server.ServerResource{Resource: resProgress, Handler: h.progressResource},
	)

	return s
}

// NewHTTPHandler serves s over streamable HTTP. The user ID already on the
// request context (see WithUserID) is what tools see.
func NewHTTPHandler(s *server.MCPServer) http.Handler {
	return server.NewStreamableHTTPServer(s,
		server.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			return WithUserID(ctx, UserIDFromContext(r.Context()))
		}),
	)
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds          DataSource
	progression config.ProgressionConfig
	log         *slog.Logger
}

// --- Resource definitions ---

var resToday = mcp.NewResource(
	"coach://today",
	"Today's Training",
	mcp.WithResourceDescription("The training day scheduled for today: exercises with target weight, rep range, sets and phase, plus conditioning"),
	mcp.WithMIMEType("application/json"),
)

var resProgress = mcp.NewResource(
	"coach://progress",
	"Estimated 1RMs",
	mcp.WithResourceDescription("Epley estimate of the latest best set of every exercise"),
	mcp.WithMIMEType("application/json"),
)
