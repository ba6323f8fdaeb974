package smartcache

import "errors"

var (
	// ErrBusy is returned by Get when the pending registry is full and the
	// key has no fetch in flight. Callers may retry later.
	ErrBusy = errors.New("smartcache: busy")

	// ErrClosed is returned by Get after Close.
	ErrClosed = errors.New("smartcache: closed")

	// ErrInvalidConfig wraps configuration validation failures.
	ErrInvalidConfig = errors.New("smartcache: invalid config")
)
