package api

import (
	"net/http"
	"strings"
)

// RunsHandler handles queued runs.
type RunsHandler struct {
	deps RunDependencies
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(deps RunDependencies) *RunsHandler {
	return &RunsHandler{deps: deps}
}

type submitResponse struct {
	RunID  string `json:"runId"`
	Status string `json:"status"`
}

// HandleSubmit handles POST /runs requests.
func (h *RunsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var body runRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeDomainError(w, err)
		return
	}
	req, err := body.toModel()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	id, err := h.deps.Submit(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, submitResponse{RunID: id, Status: "accepted"})
}

// HandleGetRun handles GET /runs/{id} requests.
func (h *RunsHandler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/runs/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	res, err := h.deps.GetRun(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
