// Package util provides small concurrency helpers shared across the
// dedupe engine and its store implementations.
package util

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Pool bounds how many submitted functions run concurrently, adapted from
// the sync tool's semaphore-gated rate limiter down to a plain
// bounded-concurrency gate with no retry/backoff machinery: local file
// hashing has nothing to back off from.
type Pool struct {
	sem *semaphore.Weighted
	ctx context.Context
	fns []func()
}

// New returns a Pool that runs at most maxConcurrent submitted functions at
// once. maxConcurrent <= 0 is treated as 1.
func New(ctx context.Context, maxConcurrent int) *Pool {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(maxConcurrent)), ctx: ctx}
}

// Submit queues fn. Submit itself does not block and starts nothing;
// queued functions run, each on its own goroutine, when Run is called.
func (p *Pool) Submit(fn func()) {
	p.fns = append(p.fns, fn)
}

// Run executes every submitted function, respecting the concurrency limit,
// and blocks until all of them have returned or the pool's context is
// cancelled. Functions still in flight when the context is cancelled are
// allowed to finish; no new ones are started.
func (p *Pool) Run() {
	done := make(chan struct{}, len(p.fns))
	for _, fn := range p.fns {
		fn := fn
		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			// Context cancelled before a slot freed up; stop launching more.
			break
		}
		go func() {
			defer p.sem.Release(1)
			defer func() { done <- struct{}{} }()
			fn()
		}()
	}
	for range p.fns {
		select {
		case <-done:
		case <-p.ctx.Done():
			return
		}
	}
}
