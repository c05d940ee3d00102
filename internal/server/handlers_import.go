package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/meltforce/ultimatecoach/internal/export"
	"github.com/meltforce/ultimatecoach/internal/ingest"
	"github.com/meltforce/ultimatecoach/internal/ingest/alpha"
	"github.com/meltforce/ultimatecoach/internal/storage"
)

func (s *Server) handleAlphaIngest(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromContext(r)
	start := time.Now()
	result, err := s.alpha.Ingest(r.Context(), r.Body, uid)
	s.logImport(uid, alpha.Source, result, err, int(time.Since(start).Milliseconds()))
	if err != nil {
		s.log.Error("alpha ingest error", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	doc, err := export.Export(r.Context(), s.db, userIDFromContext(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="coach-%s.json"`, time.Now().UTC().Format("2006-01-02")))
	if err := export.Write(w, doc); err != nil {
		s.log.Error("writing export", "error", err)
	}
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromContext(r)
	doc, err := export.Read(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := export.Import(r.Context(), s.db, uid, doc)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.forgetProgram(uid)

	sets := 0
	for _, d := range doc.Days {
		for _, ex := range d.Exercises {
			sets += len(ex.Logs)
		}
	}
	meta, _ := json.Marshal(map[string]any{"program_id": id, "program": doc.Name, "days": len(doc.Days)})
	raw := json.RawMessage(meta)
	s.recordImport(storage.ImportLog{
		UserID:       uid,
		Source:       "export",
		Status:       "success",
		SetsReceived: sets,
		SetsInserted: int64(sets),
		Metadata:     &raw,
	})
	writeJSON(w, http.StatusOK, map[string]any{"program_id": id, "days": len(doc.Days), "sets": sets})
}

func (s *Server) handleImportLogs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	logs, err := s.db.QueryImportLogs(r.Context(), userIDFromContext(r), limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// logImport records an ingest's result to the import_logs table.
func (s *Server) logImport(uid int, source string, result *ingest.Result, importErr error, durationMs int) {
	entry := storage.ImportLog{
		UserID:     uid,
		Source:     source,
		Status:     "success",
		DurationMs: &durationMs,
	}
	if importErr != nil {
		entry.Status = "error"
		msg := importErr.Error()
		entry.ErrorMessage = &msg
	}
	if result != nil {
		entry.SetsReceived = result.SetsReceived
		entry.SetsInserted = result.SetsInserted
		entry.SetsUnmatched = result.SetsUnmatched
		if len(result.Unmatched) > 0 {
			meta, _ := json.Marshal(map[string]any{"unmatched": result.Unmatched})
			raw := json.RawMessage(meta)
			entry.Metadata = &raw
		}
	}
	s.recordImport(entry)
}

func (s *Server) recordImport(entry storage.ImportLog) {
	ctx, cancel := contextWithTimeout()
	defer cancel()

	if _, err := s.db.InsertImportLog(ctx, entry); err != nil {
		s.log.Error("failed to log import", "source", entry.Source, "error", err)
	}
}

// contextWithTimeout returns a background context with a 5-second timeout,
// so the log survives a cancelled request.
func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second) //nolint:mnd
}
