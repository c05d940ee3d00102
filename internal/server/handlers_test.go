package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/meltforce/ultimatecoach/internal/coach"
	"github.com/meltforce/ultimatecoach/internal/engine"
	"github.com/meltforce/ultimatecoach/internal/storage"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q, want application/json", ct)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	return body["error"]
}

// TestHandleMe returns whichever identity the middleware stored, falling
// back to the local user.
func TestHandleMe(t *testing.T) {
	tests := []struct {
		name string
		info *UserInfo
		want UserInfo
	}{
		{"no identity", nil, devUser},
		{"tailnet user", &UserInfo{Login: "alice@example.com", DisplayName: "Alice"}, UserInfo{Login: "alice@example.com", DisplayName: "Alice"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
			if tt.info != nil {
				req = req.WithContext(context.WithValue(req.Context(), userInfoKey, *tt.info))
			}
			rec := httptest.NewRecorder()
			(&Server{}).handleMe(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			var got UserInfo
			if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("me = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// TestWriteError verifies errors are sent as {"error": msg} with the status.
func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, http.StatusTeapot, "no coffee")

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "no coffee" {
		t.Errorf("error = %q, want %q", msg, "no coffee")
	}
}

// TestFailStatusMapping verifies domain errors map to 404 and 400 and
// anything else to 500, each with the wrapped message in the body.
func TestFailStatusMapping(t *testing.T) {
	s := &Server{log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("day exercise 9: %w", storage.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: reps 0 must be at least 1", coach.ErrInvalidSet), http.StatusBadRequest},
		{coach.ErrNoLogs, http.StatusBadRequest},
		{fmt.Errorf("%w: %q", engine.ErrInvalidPhase, "hyp"), http.StatusBadRequest},
		{engine.ErrInvalidRule, http.StatusBadRequest},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		s.fail(rec, tt.err)
		if rec.Code != tt.want {
			t.Errorf("fail(%v) status = %d, want %d", tt.err, rec.Code, tt.want)
		}
		if msg := decodeError(t, rec); msg != tt.err.Error() {
			t.Errorf("fail(%v) body = %q", tt.err, msg)
		}
	}
}

// TestIDParamRejectsNonPositive verifies bad path IDs get a JSON 400.
func TestIDParamRejectsNonPositive(t *testing.T) {
	env := newTestEnv()
	for _, path := range []string{"/api/v1/exercises/0/complete", "/api/v1/exercises/abc/complete"} {
		rec := env.do(http.MethodPost, path, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s status = %d, want 400", path, rec.Code)
		}
		if msg := decodeError(t, rec); msg != "invalid id" {
			t.Errorf("%s error = %q", path, msg)
		}
	}
}
