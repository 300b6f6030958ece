package api

import (
	"net/http"
)

// AnalyzeHandler handles synchronous analysis requests.
type AnalyzeHandler struct {
	deps RunDependencies
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(deps RunDependencies) *AnalyzeHandler {
	return &AnalyzeHandler{deps: deps}
}

// HandleAnalyze handles POST /analyze requests.
func (h *AnalyzeHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
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
	res, err := h.deps.Analyze(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
