package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/prodplan/pkg/metrics"
)

// MemoryStore is a map-backed Store. Jobs live only as long as the process.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]Job
	now  func() time.Time

	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty store and starts its metrics updater,
// which runs until ctx ends or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		jobs:                  make(map[string]Job),
		now:                   time.Now,
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the background metrics updater.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// Create implements Store.Create. Zero timestamps are filled from the clock.
func (s *MemoryStore) Create(_ context.Context, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return ErrDuplicate
	}
	now := s.now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	if job.UpdatedAt.IsZero() {
		job.UpdatedAt = job.CreatedAt
	}
	if job.State == "" {
		job.State = StateQueued
	}
	s.jobs[job.ID] = job
	return nil
}

// Get implements Store.Get.
func (s *MemoryStore) Get(_ context.Context, id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return job, nil
}

// Update implements Store.Update. The ID and creation time cannot change.
func (s *MemoryStore) Update(_ context.Context, id string, fn func(*Job)) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	fn(&job)
	job.ID = id
	job.CreatedAt = s.jobs[id].CreatedAt
	job.UpdatedAt = s.now()
	s.jobs[id] = job
	return job, nil
}

// Delete implements Store.Delete.
func (s *MemoryStore) Delete(_ context.Context, id string) {
	s.mu.Lock()
	delete(s.jobs, id)
	s.mu.Unlock()
}

// Count implements Store.Count.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// CountByState implements Store.CountByState. Every state is present.
func (s *MemoryStore) CountByState(_ context.Context) map[State]int {
	counts := make(map[State]int, len(States()))
	for _, st := range States() {
		counts[st] = 0
	}

	s.mu.RLock()
	for _, job := range s.jobs {
		counts[job.State]++
	}
	s.mu.RUnlock()
	return counts
}

// Prune implements Store.Prune.
func (s *MemoryStore) Prune(_ context.Context, cutoff time.Time) []Job {
	s.mu.Lock()
	var removed []Job
	for id, job := range s.jobs {
		if job.State.Terminal() && job.UpdatedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed = append(removed, job)
		}
	}
	s.mu.Unlock()

	if len(removed) > 0 {
		metrics.RecordJobsPruned(len(removed))
	}
	return removed
}

// startMetricsUpdater starts a background goroutine that publishes job counts.
func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics(ctx)
			}
		}
	}()
}

func (s *MemoryStore) updateMetrics(ctx context.Context) {
	for state, n := range s.CountByState(ctx) {
		metrics.UpdateJobsByState(string(state), n)
	}
}
