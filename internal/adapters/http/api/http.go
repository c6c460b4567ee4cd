// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/simclinic/woundsim/internal/app"
	"github.com/simclinic/woundsim/internal/domain/model"
)

// Aliases for the orchestration types the handlers pass through.
type (
	SubmitRequest = app.SubmitRequest
	SubmitResult  = app.SubmitResult
)

// Dependencies required by HTTP handlers. An interface bundle keeps the
// handler layer loosely coupled to the service implementation.
type Dependencies interface {
	// Submission idempotency.
	SeenAndRecord(ctx context.Context, id string) bool
	Unrecord(ctx context.Context, id string)

	// Session operations.
	StartSession(ctx context.Context, scenarioID, studentID string) (model.Session, error)
	GetSession(ctx context.Context, sessionID string) (model.Session, bool)
	SubmitStage(ctx context.Context, req SubmitRequest) (SubmitResult, error)

	// Scenario reads.
	GetScenario(ctx context.Context, scenarioID string) (model.Scenario, error)
	ListScenarios(ctx context.Context) []string
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	sessionsHandler  *SessionsHandler
	scenariosHandler *ScenariosHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		sessionsHandler:  NewSessionsHandler(deps),
		scenariosHandler: NewScenariosHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/sessions", MetricsMiddleware(s.sessionsHandler.HandleSessions, "sessions"))
	mux.HandleFunc("/sessions/", MetricsMiddleware(s.sessionsHandler.HandleSession, "session"))
	mux.HandleFunc("/scenarios", MetricsMiddleware(s.scenariosHandler.HandleList, "scenarios"))
	mux.HandleFunc("/scenarios/", MetricsMiddleware(s.scenariosHandler.HandleGet, "scenario"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// pathParam extracts the single path parameter after prefix, e.g. the id in
// /sessions/{id}. ok is false when the remainder is empty or nested.
func pathParam(path, prefix string) (string, bool) {
	p := strings.TrimPrefix(path, prefix)
	if p == "" || strings.Contains(p, "/") {
		return "", false
	}
	return p, true
}

// writeServiceError translates orchestration errors to HTTP responses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case app.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	case errors.Is(err, app.ErrActionNotAllowed):
		writeError(w, http.StatusUnprocessableEntity, "action_not_allowed", Wrap(op, err))
	case app.IsSchemaViolation(err):
		writeError(w, http.StatusUnprocessableEntity, "schema_violation", Wrap(op, err))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "cancelled", Wrap(op, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
