// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/okian/cadis/internal/domain/classify"
	"github.com/okian/cadis/internal/domain/model"
	"github.com/okian/cadis/internal/domain/signals"
	"github.com/okian/cadis/internal/domain/simulate"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 8 << 20

// RunDependencies runs, queues and reads analysis runs.
type RunDependencies interface {
	Analyze(ctx context.Context, req model.RunRequest) (*model.RunResult, error)
	Submit(ctx context.Context, req model.RunRequest) (string, error)
	GetRun(ctx context.Context, runID string) (model.RunResult, error)
	Simulate(ctx context.Context, rec model.RawRecord) (model.SimulationResult, error)
}

// CatalogDependencies exposes the engine's classifier and tables.
type CatalogDependencies interface {
	Classify(fv model.FeatureVector) model.Scenario
	Scenarios() []model.Scenario
	Rules() []classify.Rule
	Categories() []signals.Category
	Heuristics() []simulate.Heuristic
	TemplateIDs() []string
}

// Server wires HTTP routes for the engine API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	analyzeHandler  *AnalyzeHandler
	runsHandler     *RunsHandler
	simulateHandler *SimulateHandler
	catalogHandler  *CatalogHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(runs RunDependencies, catalog CatalogDependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		analyzeHandler:  NewAnalyzeHandler(runs),
		runsHandler:     NewRunsHandler(runs),
		simulateHandler: NewSimulateHandler(runs),
		catalogHandler:  NewCatalogHandler(catalog),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/analyze", MetricsMiddleware(s.analyzeHandler.HandleAnalyze, "analyze"))
	mux.HandleFunc("/simulate", MetricsMiddleware(s.simulateHandler.HandleSimulate, "simulate"))
	mux.HandleFunc("/classify", MetricsMiddleware(s.catalogHandler.HandleClassify, "classify"))
	mux.HandleFunc("/scenarios", MetricsMiddleware(s.catalogHandler.HandleScenarios, "scenarios"))
	mux.HandleFunc("/runs", MetricsMiddleware(s.runsHandler.HandleSubmit, "runs"))
	mux.HandleFunc("/runs/", MetricsMiddleware(s.runsHandler.HandleGetRun, "run"))
}

// runRequest is the body of POST /analyze and POST /runs.
type runRequest struct {
	ID          string            `json:"id"`
	Records     []model.RawRecord `json:"records"`
	Sources     []string          `json:"sources"`
	MaxInsights int               `json:"maxInsights"`
}

func (r runRequest) toModel() (model.RunRequest, error) {
	if len(r.Records) == 0 && len(r.Sources) == 0 {
		return model.RunRequest{}, fmt.Errorf("%w: records or sources required", ErrBadRequest)
	}
	if r.MaxInsights < 0 {
		return model.RunRequest{}, fmt.Errorf("%w: maxInsights must not be negative", ErrBadRequest)
	}
	return model.RunRequest{
		ID:          r.ID,
		Records:     r.Records,
		Sources:     r.Sources,
		MaxInsights: r.MaxInsights,
	}, nil
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// decodeJSON reads a bounded JSON body. Numbers stay json.Number so record
// fields keep their precision until normalization.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
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
