package smartcache

import (
	"context"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"
)

// FetchFunc computes the value for key. It runs in its own goroutine and is
// never cancelled by callers abandoning their wait; ctx carries the values of
// the context passed to the Get that started it, without its deadline.
type FetchFunc[K comparable, V any] func(ctx context.Context, key K) (V, error)

// Cache memoizes keyed fetches for a fixed TTL and coalesces concurrent
// requests for the same key into a single fetch. Failed fetches are cached
// like successful ones. A Cache must be created with New and is safe for
// concurrent use.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	settled *settledStore[K, V]
	pending *pendingRegistry[K, V]

	cfg      Config
	observer Observer
	logger   log.Interface
	now      func() time.Time

	// Sweeper state, guarded by mu.
	sweeping  bool
	stopSweep chan struct{}
	wg        sync.WaitGroup
	closed    bool
}

// Stats is a point-in-time view of a cache's occupancy.
type Stats struct {
	Settled  int  `json:"settled"`
	Pending  int  `json:"pending"`
	Sweeping bool `json:"sweeping"`
}

// New returns a Cache configured by opts. Unset values use DefaultTTL,
// DefaultMaxCached and DefaultMaxPending.
func New[K comparable, V any](opts ...Option) (*Cache[K, V], error) {
	s := settings{
		cfg:    Config{}.WithDefaults(),
		logger: &log.Logger{Handler: discard.New(), Level: log.ErrorLevel},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}

	return &Cache[K, V]{
		settled:  newSettledStore[K, V](s.cfg.MaxCached),
		pending:  newPendingRegistry[K, V](s.cfg.MaxPending),
		cfg:      s.cfg,
		observer: s.observer,
		logger:   s.logger,
		now:      s.now,
	}, nil
}

// Config returns the configuration the cache was built with.
func (c *Cache[K, V]) Config() Config {
	return c.cfg
}

// Get returns the result for key. An unexpired settled result is returned
// as is. Otherwise, if a fetch for key is in flight, its result is shared.
// Otherwise fetch is started and its result returned before it settles.
//
// Get fails with ErrBusy when MaxPending distinct keys are already being
// fetched and key is not one of them.
func (c *Cache[K, V]) Get(ctx context.Context, key K, fetch FetchFunc[K, V]) (*Result[V], error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}

	var stale bool
	if ent, ok := c.settled.lookup(key); ok {
		if !ent.expired(c.now()) {
			r := ent.result
			c.mu.Unlock()
			c.emit(EventHit, key, 1)
			return r, nil
		}
		c.settled.remove(key)
		stale = true
	}

	r, fresh, err := c.pending.reserve(key)
	if err != nil {
		inflight := c.pending.len()
		c.mu.Unlock()
		if stale {
			c.emit(EventExpire, key, 1)
		}
		c.emit(EventBusy, key, 1)
		c.logger.WithFields(log.Fields{
			"key":     key,
			"pending": inflight,
		}).Debug("fetch rejected, too many in flight")
		return nil, err
	}
	c.mu.Unlock()

	if !fresh {
		c.emit(EventDedup, key, 1)
		return r, nil
	}

	if stale {
		c.emit(EventExpire, key, 1)
	}
	c.emit(EventMiss, key, 1)

	go c.run(context.WithoutCancel(ctx), key, r, fetch)
	return r, nil
}

// Do is Get followed by Wait on the returned result.
func (c *Cache[K, V]) Do(ctx context.Context, key K, fetch FetchFunc[K, V]) (V, error) {
	r, err := c.Get(ctx, key, fetch)
	if err != nil {
		var zero V
		return zero, err
	}
	return r.Wait(ctx)
}

func (c *Cache[K, V]) run(ctx context.Context, key K, r *Result[V], fetch FetchFunc[K, V]) {
	val, err := callFetch(ctx, key, fetch)
	if pe, ok := err.(*PanicError); ok {
		c.logger.WithField("key", key).WithField("panic", pe.Value).Error("fetch panicked")
	}
	c.settle(key, r, val, err)
}

func callFetch[K comparable, V any](ctx context.Context, key K, fetch FetchFunc[K, V]) (val V, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &PanicError{Value: p}
		}
	}()
	return fetch(ctx, key)
}

// settle moves r from the pending registry into the settled store, then
// publishes the outcome to everyone holding r. Waiters wake only after r is
// in the store, so a Get right after Wait is a hit.
func (c *Cache[K, V]) settle(key K, r *Result[V], val V, err error) {
	c.mu.Lock()
	c.pending.release(key)
	evicted := c.settled.insert(key, r, c.now().Add(c.cfg.TTL))
	size := c.settled.len()
	c.armSweeperLocked()
	c.mu.Unlock()

	if evicted > 0 {
		c.emit(EventEvict, nil, evicted)
		c.logger.WithFields(log.Fields{
			"evicted": evicted,
			"size":    size,
		}).Debug("settled store full, evicted batch")
	}

	r.settle(val, err)
}

// Forget drops the settled result for key, so the next Get fetches again.
// It does not affect a fetch in flight.
func (c *Cache[K, V]) Forget(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settled.remove(key)
}

// Len returns the number of settled entries, expired ones included until
// they are swept.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settled.len()
}

// Stats returns the current occupancy.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Settled:  c.settled.len(),
		Pending:  c.pending.len(),
		Sweeping: c.sweeping,
	}
}

// Close stops the expiry sweeper and rejects further Get calls with
// ErrClosed. Fetches already in flight still settle. Close is safe to call
// multiple times.
func (c *Cache[K, V]) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.disarmSweeperLocked()
	c.mu.Unlock()

	c.wg.Wait()
	return nil
}

func (c *Cache[K, V]) emit(event Event, key any, count int) {
	if c.observer == nil {
		return
	}
	c.observer.On(EventData{
		Event: event,
		Key:   key,
		Count: count,
	})
}
