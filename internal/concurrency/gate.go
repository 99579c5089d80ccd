// Package concurrency provides the bounded gate that limits how many
// pipeline runs may execute at once.
package concurrency

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Gate is a counting, cancellable, FIFO-fair semaphore with capacity
// max_concurrent_downloads. Permits are not tied to items; re-entry by the
// same caller is not supported.
type Gate struct {
	sem    *semaphore.Weighted
	active atomic.Int64
}

// NewGate builds a Gate with the given capacity, validated 1..10.
func NewGate(capacity int) (*Gate, error) {
	if capacity < 1 || capacity > 10 {
		return nil, fmt.Errorf("concurrency: capacity must be between 1 and 10, got %d", capacity)
	}
	return &Gate{sem: semaphore.NewWeighted(int64(capacity))}, nil
}

// Acquire suspends until a permit is free or ctx is cancelled.
func (g *Gate) Acquire(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	g.active.Add(1)
	return nil
}

// Release returns a permit acquired by Acquire. Must be called exactly once
// per successful Acquire, on every exit path.
func (g *Gate) Release() {
	g.active.Add(-1)
	g.sem.Release(1)
}

// ActiveCount reports the number of permits currently held.
func (g *Gate) ActiveCount() int {
	return int(g.active.Load())
}
