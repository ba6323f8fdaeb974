package smartcache

import (
	"fmt"
	"time"

	"github.com/apex/log"
)

// Defaults used when a Config field is left zero.
const (
	DefaultTTL        = 60 * time.Second
	DefaultMaxCached  = 10000
	DefaultMaxPending = 100
)

// Config holds the sizing of a cache. It is fixed once New returns.
type Config struct {
	// TTL is how long a settled result is served after it is written.
	TTL time.Duration `yaml:"ttl"`
	// MaxCached bounds the settled store. Reaching it evicts a batch of
	// ceil(MaxCached/16) entries before the next insert.
	MaxCached int `yaml:"max_cached"`
	// MaxPending bounds the number of distinct keys being fetched at once.
	MaxPending int `yaml:"max_pending"`
}

// WithDefaults returns a copy of c with zero fields set to their defaults.
func (c Config) WithDefaults() Config {
	if c.TTL == 0 {
		c.TTL = DefaultTTL
	}
	if c.MaxCached == 0 {
		c.MaxCached = DefaultMaxCached
	}
	if c.MaxPending == 0 {
		c.MaxPending = DefaultMaxPending
	}
	return c
}

// Validate reports the first field that cannot be used.
func (c Config) Validate() error {
	switch {
	case c.TTL <= 0:
		return fmt.Errorf("%w: ttl must be positive, got %s", ErrInvalidConfig, c.TTL)
	case c.MaxCached < 1:
		return fmt.Errorf("%w: max_cached must be at least 1, got %d", ErrInvalidConfig, c.MaxCached)
	case c.MaxPending < 1:
		return fmt.Errorf("%w: max_pending must be at least 1, got %d", ErrInvalidConfig, c.MaxPending)
	}
	return nil
}

type settings struct {
	cfg      Config
	observer Observer
	logger   log.Interface
	now      func() time.Time
}

// Option configures a Cache created by New.
type Option func(*settings)

// WithConfig replaces the whole configuration. Zero fields fall back to
// the defaults.
func WithConfig(cfg Config) Option {
	return func(s *settings) {
		s.cfg = cfg.WithDefaults()
	}
}

// WithTTL sets how long settled results are served.
func WithTTL(ttl time.Duration) Option {
	return func(s *settings) {
		s.cfg.TTL = ttl
	}
}

// WithMaxCached sets the capacity of the settled store.
func WithMaxCached(n int) Option {
	return func(s *settings) {
		s.cfg.MaxCached = n
	}
}

// WithMaxPending sets how many distinct keys may be fetched concurrently.
func WithMaxPending(n int) Option {
	return func(s *settings) {
		s.cfg.MaxPending = n
	}
}

// WithObserver attaches an Observer that receives hit, miss, dedup, busy,
// expire and evict events for the lifetime of the cache.
func WithObserver(o Observer) Option {
	return func(s *settings) {
		s.observer = o
	}
}

// WithLogger sets the logger used for sweeper, eviction and busy
// diagnostics. Without it the cache logs nothing.
func WithLogger(l log.Interface) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// WithClock overrides the time source used for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		s.now = now
	}
}
