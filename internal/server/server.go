package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/meltforce/ultimatecoach/internal/coach"
	"github.com/meltforce/ultimatecoach/internal/config"
	"github.com/meltforce/ultimatecoach/internal/export"
	"github.com/meltforce/ultimatecoach/internal/ingest"
	"github.com/meltforce/ultimatecoach/internal/mcp"
	"github.com/meltforce/ultimatecoach/internal/models"
	"github.com/meltforce/ultimatecoach/internal/storage"
	"tailscale.com/client/tailscale/apitype"
)

// Store is the storage the handlers read from. *storage.DB satisfies it.
type Store interface {
	export.Store
	GetOrCreateUser(ctx context.Context, login, displayName string) (int, error)
	ListDayDetails(ctx context.Context, userID int, start, end time.Time) ([]models.DayDetail, error)
	GetDayByDate(ctx context.Context, userID int, date time.Time) (*models.DayDetail, error)
	QueryLoggedSets(ctx context.Context, userID int, start, end time.Time, exercise string) ([]storage.LoggedSet, error)
	LatestBestSets(ctx context.Context, userID int) ([]storage.TemplateBestSet, error)
	GetTrainingIntensity(ctx context.Context, start, end time.Time, userID int, exerciseFilter string) (*storage.TrainingIntensityResult, error)
	GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, userID int) ([]storage.TrainingSummaryPeriod, error)
	GetDataStats(ctx context.Context, userID int) (*storage.DataStats, error)
	InsertImportLog(ctx context.Context, log storage.ImportLog) (int64, error)
	QueryImportLogs(ctx context.Context, userID, limit int) ([]storage.ImportLog, error)
}

var _ Store = (*storage.DB)(nil)

// Coach runs the logging workflow. *coach.Service satisfies it.
type Coach interface {
	RecordSet(ctx context.Context, userID int, dayExerciseID int64, in coach.SetInput) (*coach.RecordResult, error)
	CompleteExposure(ctx context.Context, userID int, dayExerciseID int64) (*coach.ExposureResult, error)
	CompleteConditioning(ctx context.Context, userID int, id int64, success bool) (*coach.ConditioningResult, error)
	Progress(ctx context.Context, userID int) ([]coach.ProgressEntry, error)
}

// Seeder creates and reschedules programs. *program.Seeder satisfies it.
type Seeder interface {
	SeedIfNeeded(ctx context.Context, userID int, start time.Time) (bool, error)
	SoftRestart(ctx context.Context, userID int, start time.Time) error
}

// Ingester stores an Alpha Progression CSV export.
type Ingester interface {
	Ingest(ctx context.Context, r io.Reader, userID int) (*ingest.Result, error)
}

// WhoIser resolves a tailnet peer. *local.Client satisfies it.
type WhoIser interface {
	WhoIs(ctx context.Context, remoteAddr string) (*apitype.WhoIsResponse, error)
}

// Options carries the settings handlers need.
type Options struct {
	APIKey      string
	Progression config.ProgressionConfig
	// ProgramStart is the start date for newly seeded programs; zero uses
	// the template's.
	ProgramStart time.Time
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	db     Store
	coach  Coach
	seeder Seeder
	alpha  Ingester
	opts   Options
	log    *slog.Logger
	router chi.Router

	ts     WhoIser
	seeded sync.Map // user ID -> struct{}
}

// New creates a new Server with all routes configured.
func New(db Store, c Coach, seeder Seeder, alpha Ingester, opts Options, log *slog.Logger) *Server {
	s := &Server{
		db:     db,
		coach:  c,
		seeder: seeder,
		alpha:  alpha,
		opts:   opts,
		log:    log,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetTailscale switches identity from the local dev user to the tailnet
// user making each request.
func (s *Server) SetTailscale(lc WhoIser) {
	s.ts = lc
}

// SetMCP mounts an MCP streamable HTTP handler at /mcp. Tool calls run as
// the identified user.
func (s *Server) SetMCP(h http.Handler) {
	s.router.Group(func(r chi.Router) {
		r.Use(s.identity, s.ensureProgram)
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctx := mcp.WithUserID(r.Context(), userIDFromContext(r))
				next.ServeHTTP(w, r.WithContext(ctx))
			})
		})
		r.Handle("/mcp", h)
		r.Handle("/mcp/*", h)
	})
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	// Pure engine endpoints need no identity.
	s.router.Route("/api/v1/engine", func(r chi.Router) {
		r.Post("/next-targets", s.handleNextTargets)
		r.Post("/phase", s.handleShouldSwitchPhase)
		r.Post("/pullups", s.handlePullupVolume)
		r.Post("/rowing", s.handleRowing)
		r.Post("/1rm", s.handleEstimate1RM)
	})

	s.router.Group(func(r chi.Router) {
		r.Use(s.identity, s.ensureProgram)

		r.Get("/api/v1/me", s.handleMe)
		r.Get("/api/v1/today", s.handleToday)
		r.Get("/api/v1/days", s.handleDays)
		r.Post("/api/v1/exercises/{id}/sets", s.handleRecordSet)
		r.Post("/api/v1/exercises/{id}/complete", s.handleCompleteExposure)
		r.Post("/api/v1/conditioning/{id}/complete", s.handleCompleteConditioning)
		r.Get("/api/v1/logs", s.handleLoggedSets)
		r.Get("/api/v1/progress", s.handleProgress)
		r.Get("/api/v1/progress/best-sets", s.handleBestSets)
		r.Get("/api/v1/training/intensity", s.handleTrainingIntensity)
		r.Get("/api/v1/training/summary", s.handleTrainingSummary)
		r.Get("/api/v1/stats", s.handleStats)
		r.Get("/api/v1/imports", s.handleImportLogs)
		r.Post("/api/v1/program/restart", s.handleRestart)
		r.Get("/api/v1/export", s.handleExport)

		// Writes from scripts and the uploader (API key required)
		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(s.opts.APIKey))
			r.Post("/api/v1/import", s.handleImport)
			r.Post("/api/v1/ingest/alpha", s.handleAlphaIngest)
		})
	})
}

// identity resolves the request's user through Tailscale when configured
// and falls back to the local dev user otherwise.
func (s *Server) identity(next http.Handler) http.Handler {
	dev := DevIdentity(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.ts == nil {
			dev.ServeHTTP(w, r)
			return
		}
		TailscaleIdentity(s.ts, s.db, s.log)(next).ServeHTTP(w, r)
	})
}

// ensureProgram seeds the default program the first time a user is seen.
func (s *Server) ensureProgram(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := userIDFromContext(r)
		if _, ok := s.seeded.Load(uid); !ok && s.seeder != nil {
			created, err := s.seeder.SeedIfNeeded(r.Context(), uid, s.opts.ProgramStart)
			if err != nil {
				s.log.Error("seeding program", "user_id", uid, "error", err)
				writeError(w, http.StatusInternalServerError, "seeding program failed")
				return
			}
			if created {
				s.log.Info("seeded program for new user", "user_id", uid)
			}
			s.seeded.Store(uid, struct{}{})
		}
		next.ServeHTTP(w, r)
	})
}

// forgetProgram makes the next request re-check the user's program.
func (s *Server) forgetProgram(uid int) {
	s.seeded.Delete(uid)
}
