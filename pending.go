package smartcache

import (
	"golang.org/x/sync/semaphore"
)

// pendingRegistry tracks fetches that have not settled yet, at most one per
// key. The semaphore bounds how many distinct keys can be in flight.
// Cache guards it with its mutex.
type pendingRegistry[K comparable, V any] struct {
	slots    *semaphore.Weighted
	inflight map[K]*Result[V]
}

func newPendingRegistry[K comparable, V any](capacity int) *pendingRegistry[K, V] {
	return &pendingRegistry[K, V]{
		slots:    semaphore.NewWeighted(int64(capacity)),
		inflight: make(map[K]*Result[V]),
	}
}

func (p *pendingRegistry[K, V]) len() int {
	return len(p.inflight)
}

// reserve returns the in-flight result for key. If there is none it takes
// a slot and registers a new one, reported by fresh. It fails with ErrBusy
// when key is new and every slot is taken.
func (p *pendingRegistry[K, V]) reserve(key K) (r *Result[V], fresh bool, err error) {
	if r, ok := p.inflight[key]; ok {
		return r, false, nil
	}
	if !p.slots.TryAcquire(1) {
		return nil, false, ErrBusy
	}
	r = newResult[V]()
	p.inflight[key] = r
	return r, true, nil
}

// release frees the slot held by key. It is called once per fetch, when the
// fetch settles.
func (p *pendingRegistry[K, V]) release(key K) {
	if _, ok := p.inflight[key]; !ok {
		return
	}
	delete(p.inflight, key)
	p.slots.Release(1)
}
