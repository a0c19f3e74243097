// Package mainloop provides the single designated execution context that
// completion callbacks are delivered on. The UI layer either runs Loop.Run
// on its main goroutine or pumps the loop with Drain from its own frame loop.
package mainloop

import (
	"context"
	"sync"
)

// Executor runs posted functions on its own execution context, one at a
// time, in posting order. Post must not block.
type Executor interface {
	Post(fn func())
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(fn func())

// Post calls f(fn).
func (f ExecutorFunc) Post(fn func()) { f(fn) }

// Loop is an unbounded FIFO of functions consumed by a single goroutine.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	closed bool
}

// Ensure Loop implements Executor
var _ Executor = (*Loop)(nil)

// New creates an idle loop.
func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post enqueues fn. It never blocks. Functions posted after Close are
// dropped.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run executes posted functions on the calling goroutine until ctx is done
// or Close is called. After Close, already queued functions still run
// before Run returns nil.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.Drain()

		l.mu.Lock()
		closed := l.closed && len(l.queue) == 0
		l.mu.Unlock()
		if closed {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Drain runs every function queued at the time of the call and returns how
// many ran. Functions posted while draining wait for the next Drain.
func (l *Loop) Drain() int {
	l.mu.Lock()
	batch := l.queue
	l.queue = nil
	l.mu.Unlock()

	for _, fn := range batch {
		fn()
	}
	return len(batch)
}

// Pending returns the number of queued functions.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Close stops accepting new functions and wakes Run so it can finish.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}
