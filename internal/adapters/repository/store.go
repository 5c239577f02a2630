// Package repository defines the job store interface and errors.
package repository

import (
	"context"
	"time"

	"github.com/okian/prodplan/internal/domain/model"
)

// State is the lifecycle position of an asynchronous solve job.
type State string

// Job states. Succeeded and failed are terminal.
const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// States lists every state in lifecycle order.
func States() []State {
	return []State{StateQueued, StateRunning, StateSucceeded, StateFailed}
}

// Terminal reports whether no further transitions happen from s.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Job is one submitted schedule request and, once finished, its result.
type Job struct {
	ID        string        `json:"id"`
	RequestID string        `json:"request_id,omitempty"`
	State     State         `json:"state"`
	Input     model.Input   `json:"-"`
	Output    *model.Output `json:"output,omitempty"`
	Error     string        `json:"error,omitempty"`
	ErrorKind string        `json:"error_kind,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Store provides read/write access to jobs.
type Store interface {
	// Create stores a new job. It returns ErrDuplicate if the ID is taken.
	Create(ctx context.Context, job Job) error

	// Get returns the job with id, or ErrNotFound.
	Get(ctx context.Context, id string) (Job, error)

	// Update applies fn to the stored job and returns the result.
	Update(ctx context.Context, id string, fn func(*Job)) (Job, error)

	// Delete removes a job. Deleting an unknown job is not an error.
	Delete(ctx context.Context, id string)

	// Count returns the number of stored jobs.
	Count(ctx context.Context) int

	// CountByState returns the number of stored jobs per state.
	CountByState(ctx context.Context) map[State]int

	// Prune removes terminal jobs last updated before cutoff and returns them.
	Prune(ctx context.Context, cutoff time.Time) []Job
}
