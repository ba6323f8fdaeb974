package smartcache

import (
	"fmt"
	"testing"
	"time"
)

func TestSettledStoreBatchEviction(t *testing.T) {
	tests := []struct {
		capacity int
		batch    int
	}{
		{1, 1},
		{2, 1},
		{16, 1},
		{17, 2},
		{32, 2},
		{100, 7},
	}
	exp := time.Now().Add(time.Hour)

	for _, tt := range tests {
		t.Run(fmt.Sprintf("capacity=%d", tt.capacity), func(t *testing.T) {
			s := newSettledStore[int, string](tt.capacity)
			for i := range tt.capacity {
				if n := s.insert(i, newResult[string](), exp); n != 0 {
					t.Fatalf("insert %d evicted %d entries below capacity", i, n)
				}
			}

			n := s.insert(tt.capacity, newResult[string](), exp)
			if n != tt.batch {
				t.Fatalf("evicted %d, want %d", n, tt.batch)
			}
			if got, want := s.len(), tt.capacity-tt.batch+1; got != want {
				t.Fatalf("len = %d, want %d", got, want)
			}

			// The oldest entries go first.
			for i := range tt.batch {
				if _, ok := s.lookup(i); ok {
					t.Fatalf("key %d survived eviction", i)
				}
			}
			if _, ok := s.lookup(tt.capacity); !ok {
				t.Fatal("new entry missing after eviction")
			}
		})
	}
}

func TestSettledStoreOverwrite(t *testing.T) {
	s := newSettledStore[string, int](2)
	now := time.Now()
	first, second := newResult[int](), newResult[int]()

	s.insert("a", first, now)
	s.insert("b", newResult[int](), now)
	if n := s.insert("a", second, now.Add(time.Minute)); n != 0 {
		t.Fatalf("overwrite evicted %d entries", n)
	}
	ent, ok := s.lookup("a")
	if !ok || ent.result != second || !ent.expiresAt.Equal(now.Add(time.Minute)) {
		t.Fatalf("overwrite not applied: %+v", ent)
	}

	// "a" was refreshed, so "b" is now the oldest.
	s.insert("c", newResult[int](), now)
	if _, ok := s.lookup("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if _, ok := s.lookup("a"); !ok {
		t.Fatal("a should have survived")
	}
}

func TestSettledStoreSweepExpired(t *testing.T) {
	s := newSettledStore[string, int](10)
	now := time.Now()

	s.insert("past", newResult[int](), now.Add(-time.Second))
	s.insert("now", newResult[int](), now)
	s.insert("future", newResult[int](), now.Add(time.Second))

	if n := s.sweepExpired(now); n != 2 {
		t.Fatalf("swept %d, want 2", n)
	}
	if _, ok := s.lookup("future"); !ok || s.len() != 1 {
		t.Fatalf("unexpected contents after sweep, len=%d", s.len())
	}
	if s.order.Len() != s.len() {
		t.Fatalf("order list has %d elements, map has %d", s.order.Len(), s.len())
	}
}

func TestSettledStoreRemove(t *testing.T) {
	s := newSettledStore[string, int](4)
	s.insert("a", newResult[int](), time.Now())
	if !s.remove("a") {
		t.Fatal("remove returned false for present key")
	}
	if s.remove("a") {
		t.Fatal("remove returned true for absent key")
	}
	if s.order.Len() != 0 {
		t.Fatalf("order list not emptied, len=%d", s.order.Len())
	}
}
