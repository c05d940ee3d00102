package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/meltforce/ultimatecoach/internal/coach"
	"github.com/meltforce/ultimatecoach/internal/config"
	"github.com/meltforce/ultimatecoach/internal/importer"
	"github.com/meltforce/ultimatecoach/internal/ingest/alpha"
	"github.com/meltforce/ultimatecoach/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	path := flag.String("path", "", "Alpha Progression CSV, directory of CSVs, or program export JSON (required)")
	login := flag.String("user", "local", "login of the user to import for")
	dryRun := flag.Bool("dry-run", false, "report counts without inserting into database")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *path == "" {
		fmt.Fprintf(os.Stderr, "Usage: coach-import -config config.yaml -path export.csv|dir|program.json [-user login] [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if _, err := os.Stat(*path); err != nil {
		log.Error("import path does not exist", "path", *path)
		os.Exit(1)
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	dsn := cfg.Database.DSN()

	// Run migrations
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	ctx := context.Background()

	if *dryRun {
		log.Info("DRY RUN mode: no data will be written to the database")
	}

	// Connect database
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	uid, err := db.GetOrCreateUser(ctx, *login, *login)
	if err != nil {
		log.Error("failed to resolve user", "login", *login, "error", err)
		os.Exit(1)
	}

	// Run import
	svc := coach.New(db, cfg.Progression, log)
	imp := importer.New(alpha.NewProvider(db, svc, log), db, log, *dryRun)
	stats, err := imp.Import(ctx, *path, uid)
	if err != nil {
		log.Error("import failed", "error", err)
		printStats(log, stats)
		os.Exit(1)
	}

	printStats(log, stats)
	log.Info("import complete")
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	if stats == nil {
		return
	}
	log.Info("import stats",
		"files_processed", stats.FilesProcessed,
		"files_errored", stats.FilesErrored,
		"sessions_parsed", stats.SessionsParsed,
		"sets_parsed", stats.SetsParsed,
		"sets_inserted", stats.SetsInserted,
		"sets_skipped", stats.SetsSkipped,
		"sets_unmatched", stats.SetsUnmatched,
		"exposures_completed", stats.ExposuresCompleted,
		"programs_imported", stats.ProgramsImported,
	)
	if len(stats.Unmatched) > 0 {
		log.Info("exercises not in the program", "exercises", stats.Unmatched)
	}
}
