// Package dedupe maps idempotency keys to the jobs they created.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

const defaultMaxSize = 10_000

// Index remembers which job each idempotency key produced.
type Index interface {
	// Claim atomically binds key to jobID if key is unbound. It returns the
	// job bound to key and whether this call made the binding.
	Claim(ctx context.Context, key, jobID string) (string, bool)

	// Lookup returns the job bound to key.
	Lookup(ctx context.Context, key string) (string, bool)

	// Release unbinds key so it can be claimed again. Used when the job a key
	// was claimed for could not be accepted, or no longer exists.
	Release(ctx context.Context, key string)

	Size() int64
}

// node is one entry of the insertion-ordered list used for eviction.
type node struct {
	key        string
	jobID      string
	prev, next *node
}

func (n *node) reset() {
	*n = node{}
}

// inMemoryIndex implements Index with a map plus a doubly linked list in
// insertion order. Bounded mode (maxSize > 0) evicts the oldest key when full;
// unbounded mode (maxSize <= 0) never evicts.
type inMemoryIndex struct {
	mu       sync.Mutex
	keys     map[string]*node
	head     *node // newest
	tail     *node // oldest
	maxSize  int
	size     atomic.Int64
	nodePool sync.Pool
}

// NewInMemoryIndex creates a new in-memory index with configuration options.
func NewInMemoryIndex(opts ...Option) Index {
	d := &inMemoryIndex{
		maxSize: defaultMaxSize,
		keys:    make(map[string]*node),
		nodePool: sync.Pool{
			New: func() any { return &node{} },
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Claim implements Index.Claim.
func (d *inMemoryIndex) Claim(_ context.Context, key, jobID string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n, exists := d.keys[key]; exists {
		return n.jobID, false
	}

	if d.maxSize > 0 && len(d.keys) >= d.maxSize {
		d.evictOldest()
	}

	n := d.nodePool.Get().(*node)
	n.key, n.jobID = key, jobID
	d.pushFront(n)
	d.keys[key] = n
	d.size.Add(1)
	return jobID, true
}

// Lookup implements Index.Lookup.
func (d *inMemoryIndex) Lookup(_ context.Context, key string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n, exists := d.keys[key]; exists {
		return n.jobID, true
	}
	return "", false
}

// Release implements Index.Release.
func (d *inMemoryIndex) Release(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n, exists := d.keys[key]; exists {
		d.remove(n)
	}
}

// Size returns the current number of bound keys.
func (d *inMemoryIndex) Size() int64 {
	return d.size.Load()
}

// evictOldest removes the least recently claimed key. d.mu must be held.
func (d *inMemoryIndex) evictOldest() {
	if d.tail != nil {
		d.remove(d.tail)
	}
}

func (d *inMemoryIndex) pushFront(n *node) {
	n.next = d.head
	if d.head != nil {
		d.head.prev = n
	}
	d.head = n
	if d.tail == nil {
		d.tail = n
	}
}

// remove unlinks n, forgets its key and returns it to the pool. d.mu must be held.
func (d *inMemoryIndex) remove(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		d.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		d.tail = n.prev
	}

	delete(d.keys, n.key)
	d.size.Add(-1)
	n.reset()
	d.nodePool.Put(n)
}
