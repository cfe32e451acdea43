package core

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// TransformPool bounds the number of image pipelines running at once and the
// number of callers allowed to wait for a slot.
type TransformPool struct {
	slots     *semaphore.Weighted
	maxQueued int64
	queued    atomic.Int64
}

func NewTransformPool(maxConcurrent, maxQueued int) *TransformPool {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if maxQueued < 0 {
		maxQueued = 0
	}
	return &TransformPool{
		slots:     semaphore.NewWeighted(int64(maxConcurrent)),
		maxQueued: int64(maxQueued),
	}
}

// Run executes fn once a slot is free. It returns ErrPoolBusy without waiting
// when the wait queue is full, and the context error when ctx ends first.
func (p *TransformPool) Run(ctx context.Context, fn func() error) error {
	if !p.slots.TryAcquire(1) {
		if p.queued.Add(1) > p.maxQueued {
			p.queued.Add(-1)
			return ErrPoolBusy
		}
		err := p.slots.Acquire(ctx, 1)
		p.queued.Add(-1)
		if err != nil {
			return fmt.Errorf("waiting for transform slot: %w", err)
		}
	}
	defer p.slots.Release(1)
	return fn()
}

// Queued reports how many callers are currently waiting for a slot.
func (p *TransformPool) Queued() int {
	return int(p.queued.Load())
}
