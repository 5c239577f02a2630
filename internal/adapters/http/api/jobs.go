package api

import (
	"net/http"
	"strings"

	"github.com/okian/prodplan/internal/adapters/repository"
)

// IdempotencyKeyHeader names the header that makes job submission idempotent.
const IdempotencyKeyHeader = "Idempotency-Key"

const maxIdempotencyKeyLen = 255

// JobsHandler handles asynchronous schedule jobs.
type JobsHandler struct {
	deps Dependencies
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(deps Dependencies) *JobsHandler {
	return &JobsHandler{deps: deps}
}

type jobResponse struct {
	repository.Job
	Duplicate bool `json:"duplicate"`
}

// HandleSubmit handles POST /v1/jobs. A new job is answered with 202; a
// repeated Idempotency-Key returns the existing job with 200.
func (h *JobsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}

	key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if len(key) > maxIdempotencyKeyLen {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	in, err := decodeInput(w, r)
	if err != nil {
		writeFailure(w, err)
		return
	}

	job, duplicate, err := h.deps.Submit(r.Context(), key, in)
	if err != nil {
		writeFailure(w, err)
		return
	}

	status := http.StatusAccepted
	if duplicate {
		status = http.StatusOK
	}
	w.Header().Set("Location", "/v1/jobs/"+job.ID)
	writeJSON(w, status, jobResponse{Job: job, Duplicate: duplicate})
}

// HandleGet handles GET /v1/jobs/{id}.
func (h *JobsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}

	job, err := h.deps.Job(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobResponse{Job: job})
}
