package loadgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/prodplan/internal/adapters/repository"
	"github.com/okian/prodplan/internal/domain/model"
	"github.com/okian/prodplan/internal/domain/schedule"
	"github.com/okian/prodplan/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// Run errors.
var (
	ErrDuplicateMismatch = errors.New("repeated idempotency key returned a different job")
	ErrJobsFailed        = errors.New("jobs did not finish successfully")
	ErrVerification      = errors.New("schedules failed verification")
)

type counters struct {
	submitted, accepted, duplicates, retried, rejected atomic.Int64
	succeeded, failed, verified, invalid               atomic.Int64
}

// Run executes a complete load run: health check, generation, concurrent
// submission, polling and verification of every returned schedule.
func Run(ctx context.Context, cfg Config) (Stats, error) {
	cfg.withDefaults()
	log := logger.Get().Named("loadgen")
	stats := Stats{StartTime: time.Now()}
	runID := uuid.NewString()[:8]

	log.Info(ctx, "starting load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("jobs", cfg.Jobs),
		logger.Int("products", cfg.Products),
		logger.Int("workers", cfg.Workers),
		logger.String("run", runID))

	client := NewClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}
	policyName, err := client.CapacityPolicy(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to read service stats: %w", err)
	}
	policy, err := schedule.ParseCapacityPolicy(policyName)
	if err != nil {
		return stats, fmt.Errorf("service reports %w", err)
	}

	inputs := GenerateN(cfg.Seed, cfg.Jobs, cfg.Products)
	stats.Generated = len(inputs)
	if cfg.OutputFile != "" {
		if err := saveInputs(cfg.OutputFile, inputs); err != nil {
			log.Warn(ctx, "failed to save inputs", logger.Error(err))
		}
	}

	var (
		c       counters
		errMu   sync.Mutex
		runErrs []error
	)
	record := func(err error) {
		errMu.Lock()
		runErrs = append(runErrs, err)
		errMu.Unlock()
	}

	work := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				key := fmt.Sprintf("loadgen-%s-%d", runID, i)
				if err := runOne(ctx, client, cfg, &c, key, inputs[i], policy, i); err != nil {
					log.Debug(ctx, "job problem", logger.String("key", key), logger.Error(err))
					record(err)
				}
			}
		}()
	}

feed:
	for i := range inputs {
		select {
		case <-ctx.Done():
			break feed
		case work <- i:
		}
	}
	close(work)
	wg.Wait()

	stats.Submitted = int(c.submitted.Load())
	stats.Accepted = int(c.accepted.Load())
	stats.Duplicates = int(c.duplicates.Load())
	stats.Retried = int(c.retried.Load())
	stats.Rejected = int(c.rejected.Load())
	stats.Succeeded = int(c.succeeded.Load())
	stats.Failed = int(c.failed.Load())
	stats.Verified = int(c.verified.Load())
	stats.Invalid = int(c.invalid.Load())
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	logStats(ctx, log, stats)

	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("load run interrupted: %w", err)
	}
	if len(runErrs) > 0 {
		return stats, errors.Join(runErrs...)
	}
	return stats, nil
}

// runOne submits one week, resubmits it when it is picked for the duplicate check, waits
// for the job and verifies its schedule.
func runOne(ctx context.Context, client *Client, cfg Config, c *counters, key string, in model.Input, policy schedule.CapacityPolicy, i int) error {
	reply, err := submit(ctx, client, cfg, c, key, in)
	if err != nil {
		return err
	}
	c.accepted.Add(1)

	if cfg.DuplicateEvery > 0 && i%cfg.DuplicateEvery == 0 {
		again, err := submit(ctx, client, cfg, c, key, in)
		if err != nil {
			return err
		}
		if !again.Duplicate || again.ID != reply.ID {
			return fmt.Errorf("%w: key %s gave %s then %s", ErrDuplicateMismatch, key, reply.ID, again.ID)
		}
		c.duplicates.Add(1)
	}

	job, err := wait(ctx, client, cfg, reply.ID)
	if err != nil {
		return err
	}
	if job.State != repository.StateSucceeded {
		c.failed.Add(1)
		return fmt.Errorf("%w: job %s %s (%s): %s", ErrJobsFailed, job.ID, job.State, job.ErrorKind, job.Error)
	}
	c.succeeded.Add(1)

	if err := Verify(in, job.Output, policy); err != nil {
		c.invalid.Add(1)
		return fmt.Errorf("%w: job %s: %w", ErrVerification, job.ID, err)
	}
	c.verified.Add(1)
	return nil
}

// submit posts a job, backing off while the service reports a full queue.
func submit(ctx context.Context, client *Client, cfg Config, c *counters, key string, in model.Input) (jobReply, error) {
	backoff := cfg.PollInterval
	for attempt := 0; ; attempt++ {
		c.submitted.Add(1)
		reply, err := client.Submit(ctx, key, in)
		if !errors.Is(err, ErrBackpressure) {
			return reply, err
		}
		if attempt >= cfg.MaxRetries {
			c.rejected.Add(1)
			return reply, err
		}
		c.retried.Add(1)
		select {
		case <-ctx.Done():
			return reply, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(2*backoff, time.Second)
	}
}

// wait polls a job until it is terminal or cfg.JobTimeout passes.
func wait(ctx context.Context, client *Client, cfg Config, id string) (repository.Job, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.JobTimeout)
	defer cancel()

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()
	for {
		job, err := client.Job(ctx, id)
		if err != nil {
			return job, err
		}
		if job.State.Terminal() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, fmt.Errorf("job %s still %s: %w", id, job.State, ctx.Err())
		case <-ticker.C:
		}
	}
}

// saveInputs writes the generated weeks as a JSON array.
func saveInputs(filename string, inputs []model.Input) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(inputs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal inputs: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return nil
}

func logStats(ctx context.Context, log logger.Logger, stats Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.Succeeded) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicates", stats.Duplicates),
		logger.Int("retried", stats.Retried),
		logger.Int("rejected", stats.Rejected),
		logger.Int("succeeded", stats.Succeeded),
		logger.Int("failed", stats.Failed),
		logger.Int("verified", stats.Verified),
		logger.Int("invalid", stats.Invalid),
		logger.Duration("duration", stats.Duration),
		logger.Float64("schedulesPerSecond", perSecond))
}
