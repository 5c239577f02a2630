package api

import (
	"errors"
	"net/http"

	service "github.com/okian/prodplan/internal/app"
	"github.com/okian/prodplan/internal/domain/schedule"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

// kindStatus maps scheduling error kinds to HTTP statuses.
var kindStatus = map[schedule.ErrorKind]int{
	schedule.KindConfiguration: http.StatusUnprocessableEntity,
	schedule.KindInfeasible:    http.StatusConflict,
	schedule.KindTimeout:       http.StatusGatewayTimeout,
	schedule.KindSolverFailure: http.StatusBadGateway,
	schedule.KindNotSolved:     http.StatusBadGateway,
}

// describeError returns the status and body for err.
func describeError(err error) (int, errorResponse) {
	var se *schedule.Error
	if errors.As(err, &se) {
		resp := errorResponse{Code: se.Kind.String(), Message: err.Error(), Product: se.Product}
		if se.Day != nil {
			resp.Day = se.Day.String()
		}
		status, ok := kindStatus[se.Kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		return status, resp
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, errorResponse{Code: "too_large", Message: err.Error()}
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, errorResponse{Code: "bad_request", Message: err.Error()}
	case errors.Is(err, service.ErrBackpressure):
		return http.StatusTooManyRequests, errorResponse{Code: "backpressure", Message: err.Error()}
	case errors.Is(err, service.ErrJobNotFound):
		return http.StatusNotFound, errorResponse{Code: "not_found", Message: err.Error()}
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, errorResponse{Code: "unavailable", Message: err.Error()}
	default:
		return http.StatusInternalServerError, errorResponse{Code: "internal", Message: err.Error()}
	}
}
