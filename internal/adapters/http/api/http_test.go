package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/prodplan/internal/adapters/http/api"
	"github.com/okian/prodplan/internal/adapters/repository"
	service "github.com/okian/prodplan/internal/app"
	"github.com/okian/prodplan/internal/domain/model"
	"github.com/okian/prodplan/internal/domain/schedule"
	"github.com/okian/prodplan/internal/domain/week"
	. "github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing
type mockDependencies struct {
	solveErr  error
	submitErr error
	duplicate bool
	jobs      map[string]repository.Job

	solved    []model.Input
	submitted []string
}

func (m *mockDependencies) Solve(_ context.Context, in model.Input) (*model.Output, error) {
	m.solved = append(m.solved, in)
	if m.solveErr != nil {
		return nil, m.solveErr
	}
	return &model.Output{
		TotalCost:    60,
		Status:       "optimal",
		OvertimeUsed: map[week.Day]bool{week.Monday: true},
	}, nil
}

func (m *mockDependencies) Submit(_ context.Context, requestID string, in model.Input) (repository.Job, bool, error) {
	m.submitted = append(m.submitted, requestID)
	if m.submitErr != nil {
		return repository.Job{}, false, m.submitErr
	}
	return repository.Job{ID: "job-1", RequestID: requestID, State: repository.StateQueued, Input: in}, m.duplicate, nil
}

func (m *mockDependencies) Job(_ context.Context, id string) (repository.Job, error) {
	job, ok := m.jobs[id]
	if !ok {
		return repository.Job{}, fmt.Errorf("%w: %s", service.ErrJobNotFound, id)
	}
	return job, nil
}

type mockStatsProvider struct {
	stats service.Stats
}

func (m *mockStatsProvider) GetStats() service.Stats {
	return m.stats
}

const validInput = `{
  "products": [{"name": "Widget", "production_rate": 1, "demand": {"monday": 10},
                "regular_unit_cost": 1, "overtime_unit_cost": 2}],
  "capacity": {"regular_hours": {"monday": 10}, "overtime_hours": {"monday": 0}}
}`

func newMux(deps *mockDependencies, stats *mockStatsProvider) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, stats).Register(context.Background(), mux)
	return mux
}

func serve(mux *http.ServeMux, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
	return body
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps, &mockStatsProvider{stats: service.Stats{Started: true, WorkerCount: 4}})

		Convey("The health endpoint reports ok as JSON", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["status"], ShouldEqual, "ok")
		})

		Convey("The health endpoint serves metrics to Prometheus scrapers", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			req.Header.Set("Accept", "text/plain")
			w := serve(mux, req)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "# HELP")
		})

		Convey("The metrics endpoint is served", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/metrics", nil))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "prodplan_")
		})

		Convey("The stats endpoint returns the provider's stats", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/stats", nil))
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["started"], ShouldEqual, true)
			So(body["worker_count"], ShouldEqual, 4)
		})

		Convey("Unknown paths are not found", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/unknown", nil))
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestScheduleHandler(t *testing.T) {
	Convey("Given the schedules endpoint", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps, &mockStatsProvider{})
		post := func(body string) *httptest.ResponseRecorder {
			return serve(mux, httptest.NewRequest(http.MethodPost, "/v1/schedules", strings.NewReader(body)))
		}

		Convey("A valid input is solved and the output returned", func() {
			w := post(validInput)
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["total_cost"], ShouldEqual, 60)
			So(body["overtime_used"].(map[string]any)["monday"], ShouldEqual, true)

			So(len(deps.solved), ShouldEqual, 1)
			So(deps.solved[0].Products[0].Demand[week.Monday], ShouldEqual, 10)
			So(deps.solved[0].Capacity.RegularHours[week.Monday], ShouldEqual, 10)
		})

		Convey("Malformed JSON is a bad request", func() {
			w := post(`{"products": [`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "bad_request")
			So(len(deps.solved), ShouldEqual, 0)
		})

		Convey("Unknown fields and unknown days are bad requests", func() {
			So(post(`{"product": []}`).Code, ShouldEqual, http.StatusBadRequest)
			So(post(`{"capacity": {"regular_hours": {"funday": 1}}}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Trailing data after the object is a bad request", func() {
			So(post(validInput+` {}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Oversized bodies are rejected", func() {
			w := post(`{"products": [` + strings.Repeat(" ", 2<<20) + `]}`)
			So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
		})

		Convey("Other methods are not allowed", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/v1/schedules", nil))
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("Scheduling errors map to their statuses", func() {
			monday := week.Monday
			cases := []struct {
				err    error
				status int
				code   string
			}{
				{&schedule.Error{Kind: schedule.KindConfiguration, Product: "Widget", Err: errors.New("bad rate")}, http.StatusUnprocessableEntity, "configuration"},
				{&schedule.Error{Kind: schedule.KindInfeasible, Day: &monday}, http.StatusConflict, "infeasible"},
				{&schedule.Error{Kind: schedule.KindTimeout, Err: context.DeadlineExceeded}, http.StatusGatewayTimeout, "timeout"},
				{&schedule.Error{Kind: schedule.KindSolverFailure}, http.StatusBadGateway, "solver_failure"},
				{errors.New("surprise"), http.StatusInternalServerError, "internal"},
			}
			for _, c := range cases {
				deps.solveErr = c.err
				w := post(validInput)
				So(w.Code, ShouldEqual, c.status)
				So(decode(w)["code"], ShouldEqual, c.code)
			}
		})

		Convey("Error bodies name the product and day involved", func() {
			tuesday := week.Tuesday
			deps.solveErr = &schedule.Error{Kind: schedule.KindInfeasible, Product: "Widget", Day: &tuesday}
			body := decode(post(validInput))
			So(body["product"], ShouldEqual, "Widget")
			So(body["day"], ShouldEqual, "tuesday")
		})
	})
}

func TestJobsHandler(t *testing.T) {
	Convey("Given the jobs endpoints", t, func() {
		deps := &mockDependencies{jobs: map[string]repository.Job{
			"job-9": {ID: "job-9", State: repository.StateSucceeded, Output: &model.Output{TotalCost: 42, Status: "optimal"}},
		}}
		mux := newMux(deps, &mockStatsProvider{})
		submit := func(key string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/v1/jobs", strings.NewReader(validInput))
			if key != "" {
				req.Header.Set(api.IdempotencyKeyHeader, key)
			}
			return serve(mux, req)
		}

		Convey("A new job is accepted with its location", func() {
			w := submit("  req-1 ")
			So(w.Code, ShouldEqual, http.StatusAccepted)
			So(w.Header().Get("Location"), ShouldEqual, "/v1/jobs/job-1")
			body := decode(w)
			So(body["id"], ShouldEqual, "job-1")
			So(body["state"], ShouldEqual, "queued")
			So(body["duplicate"], ShouldEqual, false)
			So(deps.submitted, ShouldResemble, []string{"req-1"})
		})

		Convey("A repeated key returns the existing job with 200", func() {
			deps.duplicate = true
			w := submit("req-1")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["duplicate"], ShouldEqual, true)
		})

		Convey("An overlong key is rejected", func() {
			w := submit(strings.Repeat("k", 256))
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(len(deps.submitted), ShouldEqual, 0)
		})

		Convey("A full queue is reported as backpressure", func() {
			deps.submitErr = service.ErrBackpressure
			w := submit("")
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			So(decode(w)["code"], ShouldEqual, "backpressure")
		})

		Convey("A stopped service is unavailable", func() {
			deps.submitErr = service.ErrNotStarted
			So(submit("").Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("A finished job is returned with its output", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/v1/jobs/job-9", nil))
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["state"], ShouldEqual, "succeeded")
			So(body["output"].(map[string]any)["total_cost"], ShouldEqual, 42)
		})

		Convey("An unknown job is not found", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/v1/jobs/nope", nil))
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decode(w)["code"], ShouldEqual, "not_found")
		})
	})
}
