// Package eventloop provides the single cooperative context on which every
// collaborator-facing callback runs. Callbacks never run concurrently with
// each other and run in the order they were posted.
package eventloop

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrClosed is returned by Run after Close, and by Sync on a stopped loop.
var ErrClosed = errors.New("event loop closed")

// DefaultQueueSize bounds pending callbacks; posters block when it is full.
const DefaultQueueSize = 256

// Loop runs posted funcs one at a time on a single goroutine.
type Loop struct {
	queue     chan func()
	done      chan struct{}
	closeOnce sync.Once
	log       *zap.Logger
}

// New creates a loop. It does nothing until Run is called.
func New(queueSize int, log *zap.Logger) *Loop {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Loop{
		queue: make(chan func(), queueSize),
		done:  make(chan struct{}),
		log:   log,
	}
}

// Run executes callbacks until ctx is done or Close is called.
// Callbacks still queued at that point are dropped.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			l.Close()
			return ctx.Err()
		case <-l.done:
			return ErrClosed
		case fn := <-l.queue:
			l.exec(fn)
		}
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("callback panicked", zap.String("panic", fmt.Sprint(r)))
		}
	}()
	fn()
}

// Post enqueues fn. It blocks while the queue is full and gives up, returning
// false, when ctx is done or the loop has stopped.
func (l *Loop) Post(ctx context.Context, fn func()) bool {
	select {
	case <-l.done:
		return false
	case <-ctx.Done():
		return false
	default:
	}

	select {
	case l.queue <- fn:
		return true
	case <-l.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// Sync runs fn on the loop and waits for it to finish.
func (l *Loop) Sync(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(ctx, func() {
		defer close(finished)
		fn()
	}) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrClosed
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the loop. Safe to call more than once.
func (l *Loop) Close() {
	l.closeOnce.Do(func() { close(l.done) })
}

// Done is closed once the loop has stopped.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
