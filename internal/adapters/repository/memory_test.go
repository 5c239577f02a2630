package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(t *testing.T) (*MemoryStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)}
	s := NewMemoryStore(context.Background(), WithClock(clock.Now), WithMetricsUpdateInterval(10*time.Millisecond))
	t.Cleanup(func() { _ = s.Close() })
	return s, clock
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t)

	if err := s.Create(ctx, Job{ID: "job1", RequestID: "req1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	job, err := s.Get(ctx, "job1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.State != StateQueued {
		t.Errorf("expected state queued, got %s", job.State)
	}
	if !job.CreatedAt.Equal(clock.Now()) || !job.UpdatedAt.Equal(clock.Now()) {
		t.Errorf("expected timestamps from the clock, got %v / %v", job.CreatedAt, job.UpdatedAt)
	}
	if job.RequestID != "req1" {
		t.Errorf("expected request id req1, got %q", job.RequestID)
	}

	if err := s.Create(ctx, Job{ID: "job1"}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_Update(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t)
	_ = s.Create(ctx, Job{ID: "job1"})
	created := clock.Now()
	clock.Advance(time.Minute)

	job, err := s.Update(ctx, "job1", func(j *Job) {
		j.State = StateFailed
		j.Error = "boom"
		j.ID = "renamed"
		j.CreatedAt = time.Time{}
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.ID != "job1" || !job.CreatedAt.Equal(created) {
		t.Errorf("expected id and creation time to be preserved, got %q %v", job.ID, job.CreatedAt)
	}
	if !job.UpdatedAt.Equal(clock.Now()) {
		t.Errorf("expected UpdatedAt %v, got %v", clock.Now(), job.UpdatedAt)
	}

	stored, _ := s.Get(ctx, "job1")
	if stored.State != StateFailed || stored.Error != "boom" {
		t.Errorf("expected update to be stored, got %+v", stored)
	}

	if _, err := s.Update(ctx, "missing", func(*Job) {}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_CountByState(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	counts := s.CountByState(ctx)
	for _, st := range States() {
		if counts[st] != 0 {
			t.Errorf("expected 0 %s jobs, got %d", st, counts[st])
		}
	}

	_ = s.Create(ctx, Job{ID: "a"})
	_ = s.Create(ctx, Job{ID: "b", State: StateRunning})
	_ = s.Create(ctx, Job{ID: "c", State: StateSucceeded})
	_ = s.Create(ctx, Job{ID: "d", State: StateSucceeded})

	counts = s.CountByState(ctx)
	if counts[StateQueued] != 1 || counts[StateRunning] != 1 || counts[StateSucceeded] != 2 || counts[StateFailed] != 0 {
		t.Errorf("unexpected counts: %v", counts)
	}
	if s.Count(ctx) != 4 {
		t.Errorf("expected count 4, got %d", s.Count(ctx))
	}

	s.Delete(ctx, "a")
	s.Delete(ctx, "a")
	if s.Count(ctx) != 3 {
		t.Errorf("expected count 3 after delete, got %d", s.Count(ctx))
	}
}

func TestMemoryStore_Prune(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t)

	_ = s.Create(ctx, Job{ID: "old-done", State: StateSucceeded})
	_ = s.Create(ctx, Job{ID: "old-failed", State: StateFailed})
	_ = s.Create(ctx, Job{ID: "old-running", State: StateRunning})
	clock.Advance(time.Hour)
	_ = s.Create(ctx, Job{ID: "new-done", State: StateSucceeded})

	removed := s.Prune(ctx, clock.Now().Add(-time.Minute))
	if len(removed) != 2 {
		t.Errorf("expected 2 pruned jobs, got %d", len(removed))
	}
	for _, job := range removed {
		if job.ID != "old-done" && job.ID != "old-failed" {
			t.Errorf("unexpected pruned job %s", job.ID)
		}
	}
	for _, id := range []string{"old-running", "new-done"} {
		if _, err := s.Get(ctx, id); err != nil {
			t.Errorf("expected %s to survive pruning, got %v", id, err)
		}
	}
	if _, err := s.Get(ctx, "old-done"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected old-done to be pruned, got %v", err)
	}
}

func TestMemoryStore_ConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	const jobs = 50
	for i := 0; i < jobs; i++ {
		_ = s.Create(ctx, Job{ID: fmt.Sprintf("job%d", i)})
	}

	var wg sync.WaitGroup
	for i := 0; i < jobs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("job%d", i)
			_, _ = s.Update(ctx, id, func(j *Job) { j.State = StateRunning })
			_, _ = s.Update(ctx, id, func(j *Job) { j.State = StateSucceeded })
		}(i)
	}
	wg.Wait()

	if got := s.CountByState(ctx)[StateSucceeded]; got != jobs {
		t.Errorf("expected %d succeeded jobs, got %d", jobs, got)
	}
}

func TestMemoryStore_Close(t *testing.T) {
	s := NewMemoryStore(context.Background(), WithMetricsUpdateInterval(time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	if err := s.Close(); err != nil {
		t.Errorf("expected close to succeed, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("expected second close to succeed, got %v", err)
	}
}
