package smartcache

import "context"

type contextKey[K comparable, V any] struct{}

// NewContext returns a child context that carries c. Caches with different
// key or value types do not collide.
func NewContext[K comparable, V any](ctx context.Context, c *Cache[K, V]) context.Context {
	return context.WithValue(ctx, contextKey[K, V]{}, c)
}

// FromContext retrieves the Cache for K and V from ctx, or nil if none is
// present.
func FromContext[K comparable, V any](ctx context.Context) *Cache[K, V] {
	c, _ := ctx.Value(contextKey[K, V]{}).(*Cache[K, V])
	return c
}

// Fetch resolves key through the cache carried by ctx and waits for the
// outcome. If ctx has no cache, fetch is called directly.
func Fetch[K comparable, V any](ctx context.Context, key K, fetch FetchFunc[K, V]) (V, error) {
	c := FromContext[K, V](ctx)
	if c == nil {
		return fetch(ctx, key)
	}
	return c.Do(ctx, key, fetch)
}
