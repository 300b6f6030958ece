package api

import (
	"net/http"

	"github.com/okian/cadis/internal/domain/classify"
	"github.com/okian/cadis/internal/domain/model"
	"github.com/okian/cadis/internal/domain/signals"
	"github.com/okian/cadis/internal/domain/simulate"
)

// CatalogHandler serves classification and the engine's tables.
type CatalogHandler struct {
	deps CatalogDependencies
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(deps CatalogDependencies) *CatalogHandler {
	return &CatalogHandler{deps: deps}
}

type catalogResponse struct {
	Scenarios  []model.Scenario     `json:"scenarios"`
	Rules      []classify.Rule      `json:"rules"`
	Categories []signals.Category   `json:"categories"`
	Heuristics []simulate.Heuristic `json:"heuristics"`
	Templates  []string             `json:"templates"`
}

// HandleClassify handles POST /classify requests. The body is a feature
// vector; the response is the selected scenario.
func (h *CatalogHandler) HandleClassify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var fv model.FeatureVector
	if err := decodeJSON(w, r, &fv); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Classify(fv))
}

// HandleScenarios handles GET /scenarios requests.
func (h *CatalogHandler) HandleScenarios(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, catalogResponse{
		Scenarios:  h.deps.Scenarios(),
		Rules:      h.deps.Rules(),
		Categories: h.deps.Categories(),
		Heuristics: h.deps.Heuristics(),
		Templates:  h.deps.TemplateIDs(),
	})
}
