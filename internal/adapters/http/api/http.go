// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/okian/prodplan/internal/adapters/repository"
	service "github.com/okian/prodplan/internal/app"
	"github.com/okian/prodplan/internal/domain/model"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Solve schedules an input synchronously.
	Solve(ctx context.Context, in model.Input) (*model.Output, error)

	// Submit queues an input. The bool reports a repeated request ID.
	Submit(ctx context.Context, requestID string, in model.Input) (repository.Job, bool, error)

	// Job returns a submitted job by ID.
	Job(ctx context.Context, id string) (repository.Job, error)
}

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() service.Stats
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	scheduleHandler *ScheduleHandler
	jobsHandler     *JobsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		scheduleHandler: NewScheduleHandler(deps),
		jobsHandler:     NewJobsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("/metrics", MetricsHandler())
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/v1/schedules", MetricsMiddleware(s.scheduleHandler.HandleSolve, "schedules"))
	mux.HandleFunc("/v1/jobs", MetricsMiddleware(s.jobsHandler.HandleSubmit, "jobs"))
	mux.HandleFunc("/v1/jobs/{id}", MetricsMiddleware(s.jobsHandler.HandleGet, "job"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Product string `json:"product,omitempty"`
	Day     string `json:"day,omitempty"`
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

// writeFailure maps a service or scheduling error to its response.
func writeFailure(w http.ResponseWriter, err error) {
	status, resp := describeError(err)
	writeJSON(w, status, resp)
}

// decodeInput reads a model.Input JSON body. Unknown fields are rejected.
func decodeInput(w http.ResponseWriter, r *http.Request) (model.Input, error) {
	var in model.Input
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return model.Input{}, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return model.Input{}, fmt.Errorf("%w: body must hold a single JSON object", ErrBadRequest)
	}
	return in, nil
}
