// Package workerpool bounds how many background jobs (network I/O, image
// decoding) run at once.
package workerpool

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultSize is the pool size used when none is configured.
const DefaultSize = 4

// Pool runs submitted jobs on background goroutines, at most Size at a time.
type Pool struct {
	sem  *semaphore.Weighted
	size int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// New creates a pool running at most size jobs concurrently.
func New(size int) *Pool {
	if size <= 0 {
		size = DefaultSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		sem:    semaphore.NewWeighted(int64(size)),
		size:   int64(size),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Size returns the concurrency limit.
func (p *Pool) Size() int {
	return int(p.size)
}

// Submit schedules job and returns immediately. job receives a context
// derived from ctx that is also cancelled when the pool closes. Jobs still
// waiting for a slot at Close run anyway with that cancelled context, so
// they can report failure. Submit returns false, without running job, once
// the pool is closed.
func (p *Pool) Submit(ctx context.Context, job func(ctx context.Context)) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()

		jobCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(p.ctx, cancel)
		defer stop()

		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			cancel()
			job(jobCtx)
			return
		}
		defer p.sem.Release(1)
		job(jobCtx)
	}()
	return true
}

// Close cancels the pool context and waits for every submitted job.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
}
