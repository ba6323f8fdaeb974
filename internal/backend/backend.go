// Package backend simulates a slow record store for the smartcache command.
package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// ErrUnavailable is returned for keys the backend is configured to fail.
var ErrUnavailable = errors.New("backend unavailable")

// Record is the value served for a key.
type Record struct {
	Name      string    `json:"name"`
	Value     string    `json:"value"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Backend answers every fetch after a fixed latency. Keys starting with
// FailPrefix fail with ErrUnavailable.
type Backend struct {
	Latency    time.Duration
	FailPrefix string

	calls atomic.Int64
}

// Fetch looks up key. It has the shape of smartcache.FetchFunc.
func (b *Backend) Fetch(ctx context.Context, key string) (Record, error) {
	b.calls.Add(1)

	if b.Latency > 0 {
		t := time.NewTimer(b.Latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return Record{}, ctx.Err()
		case <-t.C:
		}
	}

	if b.FailPrefix != "" && strings.HasPrefix(key, b.FailPrefix) {
		return Record{}, fmt.Errorf("fetch %q: %w", key, ErrUnavailable)
	}
	return Record{
		Name:      key,
		Value:     strings.ToUpper(key),
		FetchedAt: time.Now().UTC(),
	}, nil
}

// Calls returns how many fetches have been made.
func (b *Backend) Calls() int64 {
	return b.calls.Load()
}
