// Package smartcache memoizes an expensive keyed fetch behind a time-bounded
// cache that also coalesces concurrent requests for the same key.
//
// It protects a slow or rate-limited backend from redundant simultaneous work
// and bounds memory use. Build one cache per backend and route every lookup
// through [Cache.Get] or [Cache.Do]:
//
//	records, err := smartcache.New[string, *Record](
//		smartcache.WithTTL(time.Minute),
//		smartcache.WithMaxCached(10000),
//		smartcache.WithMaxPending(100),
//	)
//	defer records.Close()
//
//	rec, err := records.Do(ctx, name, resolveRecord)
//
// Concurrent callers for the same key share a single in-flight fetch through
// a [Result] handle. Once the fetch settles, its outcome is served to every
// caller until the TTL elapses. Errors are cached too, so a failing backend
// is not hammered; use [Cache.Forget] to drop an entry early.
//
// At most MaxPending distinct keys are fetched at once. A request for a new
// key beyond that fails immediately with [ErrBusy] instead of queuing.
// When the cache holds MaxCached entries, the oldest ceil(MaxCached/16)
// entries are evicted in one batch before the next insert.
//
// A background sweeper removes expired entries while the cache is non-empty
// and stops by itself once it is empty. [Cache.Close] stops it for good.
package smartcache
