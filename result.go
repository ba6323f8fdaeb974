package smartcache

import (
	"context"
	"fmt"
)

// Result is a shareable handle to the outcome of one fetch. It settles
// exactly once, with either a value or an error, and every holder observes
// the same outcome. A settled Result is stored in the cache as is, so failed
// fetches are replayed to later callers until they expire.
type Result[V any] struct {
	done chan struct{}
	val  V
	err  error
}

func newResult[V any]() *Result[V] {
	return &Result[V]{done: make(chan struct{})}
}

// settle records the outcome. Only the goroutine running the fetch calls it.
func (r *Result[V]) settle(val V, err error) {
	r.val, r.err = val, err
	close(r.done)
}

// Done returns a channel that is closed once the result has settled.
func (r *Result[V]) Done() <-chan struct{} {
	return r.done
}

// Settled reports whether the fetch has completed.
func (r *Result[V]) Settled() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Peek returns the outcome without blocking. ok is false while the fetch is
// still in flight.
func (r *Result[V]) Peek() (val V, err error, ok bool) {
	if !r.Settled() {
		return val, nil, false
	}
	return r.val, r.err, true
}

// Wait blocks until the result settles or ctx is done. Giving up on the wait
// does not cancel the fetch; its outcome is still cached for other callers.
func (r *Result[V]) Wait(ctx context.Context) (V, error) {
	select {
	case <-r.done:
		return r.val, r.err
	default:
	}

	select {
	case <-r.done:
		return r.val, r.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// PanicError is the failure recorded when a fetch panics.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("smartcache: fetch panicked: %v", e.Value)
}
