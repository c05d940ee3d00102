package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/meltforce/ultimatecoach/internal/coach"
	"github.com/meltforce/ultimatecoach/internal/engine"
	"github.com/meltforce/ultimatecoach/internal/storage"
)

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	date := time.Now().UTC()
	if d := r.URL.Query().Get("date"); d != "" {
		var err error
		if date, err = time.Parse("2006-01-02", d); err != nil {
			writeError(w, http.StatusBadRequest, "invalid date: "+err.Error())
			return
		}
	}
	day, err := s.db.GetDayByDate(r.Context(), userIDFromContext(r), date)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

func (s *Server) handleDays(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromContext(r)
	if r.URL.Query().Get("start") == "" {
		days, err := s.db.ListProgramDays(r.Context(), uid)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, days)
		return
	}

	start, end, err := parseTimeRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	days, err := s.db.ListDayDetails(r.Context(), uid, start, end)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

func (s *Server) handleRecordSet(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in coach.SetInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	result, err := s.coach.RecordSet(r.Context(), userIDFromContext(r), id, in)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleCompleteExposure closes an exposure logged with fewer sets than
// prescribed.
func (s *Server) handleCompleteExposure(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	result, err := s.coach.CompleteExposure(r.Context(), userIDFromContext(r), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCompleteConditioning(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var body struct {
		Success *bool `json:"success"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if body.Success == nil {
		writeError(w, http.StatusBadRequest, "success is required")
		return
	}
	result, err := s.coach.CompleteConditioning(r.Context(), userIDFromContext(r), id, *body.Success)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleLoggedSets(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sets, err := s.db.QueryLoggedSets(r.Context(), userIDFromContext(r), start, end, r.URL.Query().Get("exercise"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sets)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	entries, err := s.coach.Progress(r.Context(), userIDFromContext(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleBestSets(w http.ResponseWriter, r *http.Request) {
	best, err := s.db.LatestBestSets(r.Context(), userIDFromContext(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, best)
}

func (s *Server) handleTrainingIntensity(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRangeDefault(r, 90)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.db.GetTrainingIntensity(r.Context(), start, end, userIDFromContext(r), r.URL.Query().Get("exercise"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTrainingSummary(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRangeDefault(r, 182)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	bucket := "1 week"
	if r.URL.Query().Get("bucket") == "month" || r.URL.Query().Get("bucket") == "1 month" {
		bucket = "1 month"
	}
	summary, err := s.db.GetTrainingSummary(r.Context(), start, end, bucket, userIDFromContext(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetDataStats(r.Context(), userIDFromContext(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		StartDate string `json:"start_date"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
	}
	start := time.Now().UTC()
	if body.StartDate != "" {
		var err error
		if start, err = time.Parse("2006-01-02", body.StartDate); err != nil {
			writeError(w, http.StatusBadRequest, "invalid start_date: "+err.Error())
			return
		}
	}
	if err := s.seeder.SoftRestart(r.Context(), userIDFromContext(r), start); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"start_date": start.Format("2006-01-02")})
}

// fail maps an error to its status: bad input is 400, missing rows 404,
// anything else 500.
func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, coach.ErrInvalidSet),
		errors.Is(err, coach.ErrNoLogs),
		errors.Is(err, engine.ErrInvalidPhase),
		errors.Is(err, engine.ErrInvalidRule),
		errors.Is(err, engine.ErrUnrecognizedPrescription):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseTimeRange(r *http.Request) (start, end time.Time, err error) {
	return parseTimeRangeDefault(r, 7)
}

// parseTimeRangeDefault reads start and end query params. A missing start
// defaults to defaultDays before end; a date-only end includes that day.
func parseTimeRangeDefault(r *http.Request, defaultDays int) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if endStr == "" {
		end = time.Now()
	} else {
		end, err = time.Parse(time.RFC3339, endStr)
		if err != nil {
			end, err = time.Parse("2006-01-02", endStr)
			if err != nil {
				return time.Time{}, time.Time{}, err
			}
			// End of day for date-only
			end = end.Add(24 * time.Hour)
		}
	}

	if startStr == "" {
		start = end.AddDate(0, 0, -defaultDays)
		return
	}
	start, err = time.Parse(time.RFC3339, startStr)
	if err != nil {
		start, err = time.Parse("2006-01-02", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	return
}
