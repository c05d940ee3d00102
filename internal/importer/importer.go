// Package importer loads Alpha Progression CSV exports and program JSON
// exports from disk straight into the database.
package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/meltforce/ultimatecoach/internal/export"
	"github.com/meltforce/ultimatecoach/internal/ingest"
	"github.com/meltforce/ultimatecoach/internal/ingest/alpha"
)

// Stats tracks import progress.
type Stats struct {
	FilesProcessed int
	FilesErrored   int

	SessionsParsed     int
	SetsParsed         int
	SetsInserted       int64
	SetsSkipped        int64
	SetsUnmatched      int
	ExposuresCompleted int
	ProgramsImported   int

	Unmatched []string
}

// Ingester stores one CSV export.
type Ingester interface {
	Ingest(ctx context.Context, r io.Reader, userID int) (*ingest.Result, error)
}

// Importer reads exports from a file or directory.
type Importer struct {
	ingester Ingester
	programs export.Store
	log      *slog.Logger
	dryRun   bool
	stats    Stats
}

// New creates a new Importer. In dry-run mode files are parsed and
// validated but nothing is written.
func New(ingester Ingester, programs export.Store, log *slog.Logger, dryRun bool) *Importer {
	return &Importer{ingester: ingester, programs: programs, log: log, dryRun: dryRun}
}

// Import processes path. A directory is scanned (non-recursively) for
// *.csv files in name order; a .json file replaces the user's program.
func (imp *Importer) Import(ctx context.Context, path string, userID int) (*Stats, error) {
	info, err := os.Stat(path)
	if err != nil {
		return &imp.stats, fmt.Errorf("reading %s: %w", path, err)
	}

	if !info.IsDir() {
		if strings.EqualFold(filepath.Ext(path), ".json") {
			if err := imp.importProgram(ctx, path, userID); err != nil {
				return &imp.stats, err
			}
			return &imp.stats, nil
		}
		if err := imp.importCSV(ctx, path, userID); err != nil {
			return &imp.stats, err
		}
		return &imp.stats, nil
	}

	files, err := filepath.Glob(filepath.Join(path, "*.csv"))
	if err != nil {
		return &imp.stats, err
	}
	sort.Strings(files)
	for _, f := range files {
		if err := imp.importCSV(ctx, f, userID); err != nil {
			imp.log.Warn("import failed", "file", f, "error", err)
			imp.stats.FilesErrored++
		}
	}
	return &imp.stats, nil
}

func (imp *Importer) importCSV(ctx context.Context, path string, userID int) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if imp.dryRun {
		sessions, err := alpha.Parse(f)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
		}
		imp.stats.FilesProcessed++
		imp.stats.SessionsParsed += len(sessions)
		for _, s := range sessions {
			for _, ex := range s.Exercises {
				imp.stats.SetsParsed += len(ex.WorkingSets())
			}
		}
		imp.log.Info("dry-run: parsed export", "file", filepath.Base(path), "sessions", len(sessions))
		return nil
	}

	res, err := imp.ingester.Ingest(ctx, f, userID)
	if err != nil {
		return fmt.Errorf("importing %s: %w", filepath.Base(path), err)
	}
	imp.stats.FilesProcessed++
	imp.stats.SessionsParsed += res.SessionsReceived
	imp.stats.SetsParsed += res.SetsReceived
	imp.stats.SetsInserted += res.SetsInserted
	imp.stats.SetsSkipped += res.SetsSkipped
	imp.stats.SetsUnmatched += res.SetsUnmatched
	imp.stats.ExposuresCompleted += res.ExposuresCompleted
	imp.stats.Unmatched = append(imp.stats.Unmatched, res.Unmatched...)
	imp.log.Info("imported export",
		"file", filepath.Base(path),
		"inserted", res.SetsInserted,
		"unmatched", res.SetsUnmatched,
	)
	return nil
}

func (imp *Importer) importProgram(ctx context.Context, path string, userID int) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	doc, err := export.Read(f)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	imp.stats.FilesProcessed++
	if imp.dryRun {
		imp.log.Info("dry-run: would replace program", "name", doc.Name, "days", len(doc.Days))
		return nil
	}

	id, err := export.Import(ctx, imp.programs, userID, doc)
	if err != nil {
		return fmt.Errorf("importing program: %w", err)
	}
	imp.stats.ProgramsImported++
	imp.log.Info("program replaced", "program_id", id, "name", doc.Name, "days", len(doc.Days))
	return nil
}
