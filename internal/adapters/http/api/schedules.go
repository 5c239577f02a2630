package api

import (
	"net/http"
)

// ScheduleHandler solves schedules synchronously.
type ScheduleHandler struct {
	deps Dependencies
}

// NewScheduleHandler creates a new schedule handler.
func NewScheduleHandler(deps Dependencies) *ScheduleHandler {
	return &ScheduleHandler{deps: deps}
}

// HandleSolve handles POST /v1/schedules. The body is a model.Input; the
// response is the solved model.Output or a mapped scheduling error.
func (h *ScheduleHandler) HandleSolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}

	in, err := decodeInput(w, r)
	if err != nil {
		writeFailure(w, err)
		return
	}

	out, err := h.deps.Solve(r.Context(), in)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
