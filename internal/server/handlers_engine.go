package server

import (
	"encoding/json"
	"net/http"

	"github.com/meltforce/ultimatecoach/internal/engine"
)

type nextTargetsRequest struct {
	LastLogs          []engine.SetLog `json:"last_logs"`
	LastTarget        engine.Target   `json:"last_target"`
	Equipment         string          `json:"equipment"`
	Rule              *engine.Rule    `json:"rule,omitempty"`
	Phase             string          `json:"phase"`
	ConsecutiveMisses int             `json:"consecutive_misses"`
}

// handleNextTargets runs one progression step. Without an explicit rule the
// configured increments for the given equipment apply.
func (s *Server) handleNextTargets(w http.ResponseWriter, r *http.Request) {
	var req nextTargetsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	phase, err := engine.ParsePhase(req.Phase)
	if err != nil {
		s.fail(w, err)
		return
	}
	rule := s.opts.Progression.Rule(req.Equipment)
	if req.Rule != nil {
		rule = *req.Rule
	}
	step, err := engine.Advance(req.LastLogs, req.LastTarget, rule, phase, req.ConsecutiveMisses)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, step)
}

type phaseRequest struct {
	History        []engine.SetLog `json:"history"`
	CurrentPhase   string          `json:"current_phase"`
	BlockStartLoad *float64        `json:"block_start_load"`
	CurrentLoad    *float64        `json:"current_load"`
}

func (s *Server) handleShouldSwitchPhase(w http.ResponseWriter, r *http.Request) {
	var req phaseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	current, err := engine.ParsePhase(req.CurrentPhase)
	if err != nil {
		s.fail(w, err)
		return
	}
	next, err := engine.ShouldSwitchPhase(req.History, current, req.BlockStartLoad, req.CurrentLoad)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"phase": next, "switched": next != current})
}

func (s *Server) handlePullupVolume(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Logs []engine.SetLog `json:"logs"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, engine.AggregatePullupVolume(req.Logs))
}

// handleRowing advances a conditioning prescription. Canonical texts also
// come back parsed.
func (s *Server) handleRowing(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Previous string `json:"previous"`
		Success  bool   `json:"success"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	resp := map[string]any{"next": engine.NextRowingPrescription(req.Previous, req.Success)}
	if p, err := engine.ParsePrescription(req.Previous); err == nil {
		next := p.Advance(req.Success)
		resp["kind"] = next.Kind()
		resp["prescription"] = next
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEstimate1RM(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Weight float64 `json:"weight"`
		Reps   int     `json:"reps"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{
		"estimate": engine.Estimate1RM(req.Weight, req.Reps),
		"epley":    engine.Epley1RM(req.Weight, req.Reps),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}
