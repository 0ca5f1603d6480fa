// Package dedupe tracks keys that were already seen during a run.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records seen keys so a caller can keep only the first occurrence.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	// Duplicates returns how many SeenAndRecord calls hit an existing key.
	Duplicates() int64
}

// inMemoryDeduper implements Deduper with a mutex guarded set. Keys are never
// evicted; a batch run holds at most one key per team and boss.
type inMemoryDeduper struct {
	mu         sync.Mutex
	seen       map[string]struct{}
	duplicates atomic.Int64
}

// NewInMemoryDeduper creates an empty deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{}
	for _, opt := range opts {
		opt(d)
	}
	if d.seen == nil {
		d.seen = make(map[string]struct{})
	}
	return d
}

// SeenAndRecord atomically checks if key was seen and records it if not.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[key]; exists {
		d.duplicates.Add(1)
		return true
	}
	d.seen[key] = struct{}{}
	return false
}

// Duplicates returns the number of repeated keys observed.
func (d *inMemoryDeduper) Duplicates() int64 {
	return d.duplicates.Load()
}
