// Package gate provides the fixed-capacity admission gate that bounds
// concurrent outbound calls to the GitHub API.
package gate

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Gate is a counting admission pool with fixed capacity. A slot is acquired
// before a protected operation and released unconditionally afterwards; at
// most Capacity operations hold a slot at any instant, process-wide.
type Gate struct {
	sem      *semaphore.Weighted
	capacity int64
	inFlight atomic.Int64
}

// New creates a gate with the given capacity
func New(capacity int) (*Gate, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("gate capacity must be positive, got %d", capacity)
	}
	return &Gate{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: int64(capacity),
	}, nil
}

// Acquire blocks until a slot is free or ctx is done. On success the caller
// owns one slot and must call Release exactly once.
func (g *Gate) Acquire(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("gate acquire aborted: %w", err)
	}
	g.inFlight.Add(1)
	return nil
}

// TryAcquire acquires a slot without blocking, reporting whether it succeeded
func (g *Gate) TryAcquire() bool {
	if !g.sem.TryAcquire(1) {
		return false
	}
	g.inFlight.Add(1)
	return true
}

// Release returns a previously acquired slot
func (g *Gate) Release() {
	g.inFlight.Add(-1)
	g.sem.Release(1)
}

// Capacity returns the fixed slot count
func (g *Gate) Capacity() int {
	return int(g.capacity)
}

// InFlight returns the number of slots currently held
func (g *Gate) InFlight() int {
	return int(g.inFlight.Load())
}
