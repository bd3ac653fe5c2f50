// Package loop provides the single-goroutine event loop that owns all page state.
// Blocking work runs off the loop; its continuation is posted back and runs on it.
package loop

import (
	"context"
	"errors"
	"sync"
)

// ErrStopped is returned by Call once Run has returned.
var ErrStopped = errors.New("loop: stopped")

// Loop serializes tasks onto one goroutine.
type Loop struct {
	tasks    chan func()
	done     chan struct{}
	stopOnce sync.Once
	pending  sync.WaitGroup
}

// New creates a loop with the given task buffer.
func New(buffer int) *Loop {
	if buffer <= 0 {
		buffer = 128
	}
	return &Loop{tasks: make(chan func(), buffer), done: make(chan struct{})}
}

// Run executes posted tasks until ctx is cancelled. Tasks posted afterwards
// are dropped.
func (l *Loop) Run(ctx context.Context) {
	defer l.stopOnce.Do(func() { close(l.done) })
	for {
		select {
		case task := <-l.tasks:
			task()
		case <-ctx.Done():
			return
		}
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Post enqueues fn to run on the loop.
func (l *Loop) Post(fn func()) { l.post(fn) }

func (l *Loop) post(fn func()) bool {
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Call runs fn on the loop and waits for it to finish.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case l.tasks <- func() { defer close(done); fn() }:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
}

// Go runs work on its own goroutine and posts the continuation it returns
// back onto the loop. A nil continuation is allowed.
func (l *Loop) Go(work func() func()) {
	l.pending.Add(1)
	go func() {
		cont := work()
		posted := l.post(func() {
			defer l.pending.Done()
			if cont != nil {
				cont()
			}
		})
		if !posted {
			l.pending.Done()
		}
	}()
}

// Wait blocks until every continuation started with Go has run or been
// dropped by a stopped loop.
func (l *Loop) Wait() {
	l.pending.Wait()
}
