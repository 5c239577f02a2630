package loadgen

import (
	"runtime"
	"time"
)

// Default configuration values.
const (
	DefaultBaseURL      = "http://localhost:9080"
	DefaultJobs         = 200
	DefaultProducts     = 4
	DefaultTimeout      = 30 * time.Second
	DefaultPollInterval = 50 * time.Millisecond
	DefaultJobTimeout   = 2 * time.Minute
	DefaultMaxRetries   = 20
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL        string        // Base URL of the service
	Jobs           int           // Number of weeks to generate and submit
	Products       int           // Products per generated week
	Workers        int           // Number of concurrent clients
	Timeout        time.Duration // HTTP request timeout
	PollInterval   time.Duration // Delay between job polls
	JobTimeout     time.Duration // How long to wait for one job to finish
	DuplicateEvery int           // Resubmit every n-th job with the same key; 0 disables
	MaxRetries     int           // Retries of a submission rejected by backpressure; negative disables
	Seed           uint64        // Generator seed; runs with equal seeds submit equal weeks
	OutputFile     string        // Optional JSON file receiving the generated inputs
}

func (c *Config) withDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Jobs <= 0 {
		c.Jobs = DefaultJobs
	}
	if c.Products <= 0 {
		c.Products = DefaultProducts
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = DefaultJobTimeout
	}
	switch {
	case c.MaxRetries == 0:
		c.MaxRetries = DefaultMaxRetries
	case c.MaxRetries < 0:
		c.MaxRetries = 0
	}
}

// Stats holds run statistics.
type Stats struct {
	Generated  int
	Submitted  int
	Accepted   int
	Duplicates int
	Retried    int
	Rejected   int
	Succeeded  int
	Failed     int
	Verified   int
	Invalid    int
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
}
