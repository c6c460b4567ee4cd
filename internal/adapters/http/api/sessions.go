// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/simclinic/woundsim/internal/domain/model"
	"github.com/simclinic/woundsim/internal/domain/procedure"
)

// SessionsHandler handles session creation, lookup and stage submissions.
type SessionsHandler struct {
	deps Dependencies
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps Dependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

// startSessionRequest mirrors the OpenAPI schema for POST /sessions.
type startSessionRequest struct {
	ScenarioID string `json:"scenario_id"`
	StudentID  string `json:"student_id"`
}

func (r startSessionRequest) validate() error {
	switch {
	case strings.TrimSpace(r.ScenarioID) == "":
		return errors.New("missing scenario_id")
	case strings.TrimSpace(r.StudentID) == "":
		return errors.New("missing student_id")
	}
	return nil
}

// startSessionResponse mirrors the OpenAPI schema for the 201 response.
type startSessionResponse struct {
	SessionID    string          `json:"session_id"`
	ScenarioID   string          `json:"scenario_id"`
	StudentID    string          `json:"student_id"`
	CurrentStage procedure.Stage `json:"current_stage"`
}

// stageRequest mirrors the OpenAPI schema for POST /sessions/{id}/stage.
type stageRequest struct {
	SubmissionID string          `json:"submission_id,omitempty"`
	Action       string          `json:"action,omitempty"`
	Transcript   string          `json:"transcript,omitempty"`
	Verdicts     []model.Verdict `json:"verdicts"`
}

// stageResponse mirrors the OpenAPI schema for the 200 response.
type stageResponse struct {
	SessionID  string                `json:"session_id"`
	Stage      procedure.Stage       `json:"stage"`
	Evaluation model.AggregateResult `json:"evaluation"`
	NextStage  *procedure.Stage      `json:"next_stage,omitempty"`
	Context    []model.ContextChunk  `json:"context"`
	Duplicate  bool                  `json:"duplicate"`
}

type duplicateResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// HandleSessions handles POST /sessions requests.
func (h *SessionsHandler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	const op = "api.start_session"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	sess, err := h.deps.StartSession(r.Context(), req.ScenarioID, req.StudentID)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, startSessionResponse{
		SessionID:    sess.ID,
		ScenarioID:   sess.ScenarioID,
		StudentID:    sess.StudentID,
		CurrentStage: sess.Stage,
	})
}

// HandleSession dispatches GET /sessions/{id} and POST /sessions/{id}/stage.
func (h *SessionsHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/sessions/")
	switch {
	case r.Method == http.MethodGet && !strings.Contains(rest, "/"):
		h.handleGet(w, r, rest)
	case r.Method == http.MethodPost && strings.HasSuffix(rest, "/stage"):
		h.handleStage(w, r, strings.TrimSuffix(rest, "/stage"))
	default:
		http.NotFound(w, r)
	}
}

func (h *SessionsHandler) handleGet(w http.ResponseWriter, r *http.Request, sessionID string) {
	const op = "api.get_session"
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	sess, ok := h.deps.GetSession(r.Context(), sessionID)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *SessionsHandler) handleStage(w http.ResponseWriter, r *http.Request, sessionID string) {
	const op = "api.submit_stage"
	if sessionID == "" || strings.Contains(sessionID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	var req stageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	// Idempotency: a retried submission id is acknowledged, not reprocessed.
	if req.SubmissionID != "" {
		if h.deps.SeenAndRecord(r.Context(), req.SubmissionID) {
			writeJSON(w, http.StatusOK, duplicateResponse{Status: "duplicate", Duplicate: true})
			return
		}
	}

	res, err := h.deps.SubmitStage(r.Context(), SubmitRequest{
		SessionID:  sessionID,
		Action:     req.Action,
		Transcript: req.Transcript,
		Verdicts:   req.Verdicts,
	})
	if err != nil {
		// Roll back the seen mark so the client may retry the same id.
		if req.SubmissionID != "" {
			h.deps.Unrecord(r.Context(), req.SubmissionID)
		}
		writeServiceError(w, op, err)
		return
	}

	writeJSON(w, http.StatusOK, stageResponse{
		SessionID:  res.SessionID,
		Stage:      res.Stage,
		Evaluation: res.Evaluation,
		NextStage:  res.NextStage,
		Context:    res.Context,
	})
}
