package smartcache

import (
	"container/list"
	"time"
)

// entry is a settled result and the time it stops being served.
type entry[K comparable, V any] struct {
	key       K
	expiresAt time.Time
	result    *Result[V]
}

func (e *entry[K, V]) expired(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

// settledStore holds settled results, successes and failures alike.
// The list keeps insertion order: front is oldest, back is newest.
// It is not safe for concurrent use; Cache guards it with its mutex.
type settledStore[K comparable, V any] struct {
	capacity int
	items    map[K]*list.Element
	order    *list.List
}

func newSettledStore[K comparable, V any](capacity int) *settledStore[K, V] {
	return &settledStore[K, V]{
		capacity: capacity,
		items:    make(map[K]*list.Element),
		order:    list.New(),
	}
}

func (s *settledStore[K, V]) len() int {
	return len(s.items)
}

// lookup does not check expiry; callers compare expiresAt themselves.
func (s *settledStore[K, V]) lookup(key K) (*entry[K, V], bool) {
	el, ok := s.items[key]
	if !ok {
		return nil, false
	}
	return el.Value.(*entry[K, V]), true
}

// insert stores result under key and returns how many entries were evicted
// to make room.
func (s *settledStore[K, V]) insert(key K, result *Result[V], expiresAt time.Time) int {
	if el, ok := s.items[key]; ok {
		ent := el.Value.(*entry[K, V])
		ent.result, ent.expiresAt = result, expiresAt
		s.order.MoveToBack(el)
		return 0
	}

	var evicted int
	if len(s.items) >= s.capacity {
		evicted = s.evictBatch()
	}
	s.items[key] = s.order.PushBack(&entry[K, V]{
		key:       key,
		expiresAt: expiresAt,
		result:    result,
	})
	return evicted
}

// batchSize is ceil(capacity/16).
func (s *settledStore[K, V]) batchSize() int {
	return (s.capacity + 15) / 16
}

// evictBatch drops the oldest batchSize entries.
func (s *settledStore[K, V]) evictBatch() int {
	n := s.batchSize()
	var removed int
	for removed < n {
		el := s.order.Front()
		if el == nil {
			break
		}
		s.removeElement(el)
		removed++
	}
	return removed
}

// sweepExpired removes every entry whose expiry has passed.
func (s *settledStore[K, V]) sweepExpired(now time.Time) int {
	var removed int
	for el := s.order.Front(); el != nil; {
		next := el.Next()
		if el.Value.(*entry[K, V]).expired(now) {
			s.removeElement(el)
			removed++
		}
		el = next
	}
	return removed
}

func (s *settledStore[K, V]) remove(key K) bool {
	el, ok := s.items[key]
	if !ok {
		return false
	}
	s.removeElement(el)
	return true
}

func (s *settledStore[K, V]) removeElement(el *list.Element) {
	ent := s.order.Remove(el).(*entry[K, V])
	delete(s.items, ent.key)
}
