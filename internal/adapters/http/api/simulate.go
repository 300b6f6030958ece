package api

import (
	"fmt"
	"net/http"

	"github.com/okian/cadis/internal/domain/model"
)

// SimulateHandler handles counterfactual simulation requests.
type SimulateHandler struct {
	deps RunDependencies
}

// NewSimulateHandler creates a new simulate handler.
func NewSimulateHandler(deps RunDependencies) *SimulateHandler {
	return &SimulateHandler{deps: deps}
}

// HandleSimulate handles POST /simulate requests. The body is one raw
// record; its fields must carry baselineEfficiency and challenges.
func (h *SimulateHandler) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var rec model.RawRecord
	if err := decodeJSON(w, r, &rec); err != nil {
		writeDomainError(w, err)
		return
	}
	if rec.Fields == nil {
		writeDomainError(w, fmt.Errorf("%w: fields required", ErrBadRequest))
		return
	}
	res, err := h.deps.Simulate(r.Context(), rec)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
