// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and environment variables over the defaults.
// - Errors are wrapped with this package's sentinels.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/okian/prodplan/internal/domain/schedule"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory job queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of solver workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize caps the number of remembered idempotency keys.
	DedupeSize int `koanf:"dedupe_size"`

	// JobRetention is how long finished jobs are kept.
	JobRetention time.Duration `koanf:"job_retention"`

	// SolveTimeoutMS bounds a single solve, in milliseconds.
	SolveTimeoutMS int `koanf:"solve_timeout_ms"`

	// NodeLimit caps branch-and-bound nodes per solve; 0 means no cap.
	NodeLimit int `koanf:"node_limit"`

	// RegularCapacityPolicy is "exact" (regular hours fully used) or "bounded".
	RegularCapacityPolicy string `koanf:"regular_capacity_policy"`

	// ExcessWeight is an optional objective weight per unit of excess; 0 leaves
	// excess out of the objective.
	ExcessWeight float64 `koanf:"excess_weight"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		QueueSize:             1_000,
		WorkerCount:           runtime.NumCPU(),
		DedupeSize:            10_000,
		JobRetention:          time.Hour,
		SolveTimeoutMS:        30_000,
		NodeLimit:             10_000,
		RegularCapacityPolicy: schedule.ExactRegularHours.String(),
	}
}

// SolveTimeout returns SolveTimeoutMS as a duration.
func (c *Config) SolveTimeout() time.Duration {
	return time.Duration(c.SolveTimeoutMS) * time.Millisecond
}

// CapacityPolicy returns the parsed regular capacity policy.
func (c *Config) CapacityPolicy() (schedule.CapacityPolicy, error) {
	p, err := schedule.ParseCapacityPolicy(c.RegularCapacityPolicy)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return p, nil
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive, got %d", ErrInvalidConfig, c.WorkerCount)
	case c.DedupeSize < 0:
		return fmt.Errorf("%w: dedupe_size must not be negative, got %d", ErrInvalidConfig, c.DedupeSize)
	case c.JobRetention <= 0:
		return fmt.Errorf("%w: job_retention must be positive, got %s", ErrInvalidConfig, c.JobRetention)
	case c.SolveTimeoutMS <= 0:
		return fmt.Errorf("%w: solve_timeout_ms must be positive, got %d", ErrInvalidConfig, c.SolveTimeoutMS)
	case c.NodeLimit < 0:
		return fmt.Errorf("%w: node_limit must not be negative, got %d", ErrInvalidConfig, c.NodeLimit)
	case c.ExcessWeight < 0:
		return fmt.Errorf("%w: excess_weight must not be negative, got %v", ErrInvalidConfig, c.ExcessWeight)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	_, err := c.CapacityPolicy()
	return err
}
