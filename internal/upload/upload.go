// Package upload sends a folder of Alpha Progression CSV exports to a
// coach server, remembering what was already sent.
package upload

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/meltforce/ultimatecoach/internal/ingest"
)

// Stats tracks upload progress.
type Stats struct {
	FilesTotal    int
	FilesUploaded int
	FilesSkipped  int
	FilesErrored  int

	SetsInserted  int64
	SetsUnmatched int
	Unmatched     []string
}

// Sender delivers one export.
type Sender interface {
	SendExport(ctx context.Context, data []byte) (*ingest.Result, error)
}

// Uploader walks an export directory and POSTs new or changed CSV files.
type Uploader struct {
	sender Sender
	state  *StateDB
	dir    string
	dryRun bool
	log    *slog.Logger
	stats  Stats
}

// New creates a new Uploader. sender may be nil in dry-run mode.
func New(sender Sender, state *StateDB, dir string, dryRun bool, log *slog.Logger) *Uploader {
	return &Uploader{sender: sender, state: state, dir: dir, dryRun: dryRun, log: log}
}

// Run uploads every *.csv under the directory. A failed file is counted
// and the walk continues; an aborted context stops it.
func (u *Uploader) Run(ctx context.Context) (*Stats, error) {
	var files []string
	err := filepath.WalkDir(u.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".csv") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return &u.stats, fmt.Errorf("walking %s: %w", u.dir, err)
	}
	sort.Strings(files)

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return &u.stats, err
		}
		u.stats.FilesTotal++
		if err := u.uploadFile(ctx, f); err != nil {
			u.log.Warn("upload failed", "file", f, "error", err)
			u.stats.FilesErrored++
		}
	}
	return &u.stats, nil
}

func (u *Uploader) uploadFile(ctx context.Context, path string) error {
	relPath, err := filepath.Rel(u.dir, path)
	if err != nil {
		relPath = path
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	hash, err := HashFile(path)
	if err != nil {
		return fmt.Errorf("hashing: %w", err)
	}

	uploaded, err := u.state.IsUploaded(relPath, info.Size(), hash)
	if err != nil {
		return err
	}
	if uploaded {
		u.stats.FilesSkipped++
		return nil
	}

	if u.dryRun {
		u.log.Info("dry-run: would send", "file", relPath, "bytes", info.Size())
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	res, err := u.sender.SendExport(ctx, data)
	if err != nil {
		return err
	}

	u.stats.FilesUploaded++
	u.stats.SetsInserted += res.SetsInserted
	u.stats.SetsUnmatched += res.SetsUnmatched
	u.stats.Unmatched = append(u.stats.Unmatched, res.Unmatched...)

	if err := u.state.MarkUploaded(relPath, info.Size(), hash, res.SetsInserted); err != nil {
		u.log.Warn("failed to mark uploaded", "file", relPath, "error", err)
	}
	u.log.Info("uploaded export", "file", relPath, "inserted", res.SetsInserted, "unmatched", res.SetsUnmatched)
	return nil
}
