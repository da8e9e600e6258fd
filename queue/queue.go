// Package queue implements the bounded blocking queues that connect the
// pipeline's stages.
//
// A Queue is a thin wrapper over a buffered channel: Put blocks when the
// channel is full, and Get blocks when it is empty. That blocking is the
// pipeline's only backpressure mechanism. The wrapper exists to expose
// Depth() as an observable gauge.
package queue

import "context"

// Queue is a generic bounded FIFO channel wrapper.
type Queue[T any] struct {
	ch chan T
}

// New returns a Queue with the given capacity.
func New[T any](capacity int) *Queue[T] {
	return &Queue[T]{ch: make(chan T, capacity)}
}

// Put blocks until there is room for v or ctx is cancelled.
func (q *Queue[T]) Put(ctx context.Context, v T) error {
	select {
	case q.ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get blocks until a value is available or ctx is cancelled. On
// cancellation err is ctx.Err() and ok is false; with a nil err, ok is
// false only when the queue was closed and drained.
func (q *Queue[T]) Get(ctx context.Context) (v T, ok bool, err error) {
	select {
	case v, ok = <-q.ch:
		return v, ok, nil
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	}
}

// Depth returns the number of items currently queued.
func (q *Queue[T]) Depth() int {
	return len(q.ch)
}

// Close closes the underlying channel. Callers must ensure no further
// Put calls occur afterward; a drain-then-close lifecycle, not a
// close-while-producing one.
func (q *Queue[T]) Close() {
	close(q.ch)
}
