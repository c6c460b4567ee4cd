// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
)

// ScenariosHandler handles scenario catalog reads.
type ScenariosHandler struct {
	deps Dependencies
}

// NewScenariosHandler creates a new scenarios handler.
func NewScenariosHandler(deps Dependencies) *ScenariosHandler {
	return &ScenariosHandler{deps: deps}
}

type scenarioListResponse struct {
	ScenarioIDs []string `json:"scenario_ids"`
}

// HandleList handles GET /scenarios requests.
func (h *ScenariosHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, scenarioListResponse{
		ScenarioIDs: h.deps.ListScenarios(r.Context()),
	})
}

// HandleGet handles GET /scenarios/{id} requests.
func (h *ScenariosHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_scenario"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	id, ok := pathParam(r.URL.Path, "/scenarios/")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	sc, err := h.deps.GetScenario(r.Context(), id)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}
