package prom_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	smartcache "github.com/probablyarth/smartcache-go"
	"github.com/probablyarth/smartcache-go/prom"
)

func TestObserverCountsEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := prom.NewMetrics("test", reg)

	c, err := smartcache.New[string, int](
		smartcache.WithObserver(m.Observer("records")),
		smartcache.WithMaxCached(16),
	)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	boom := errors.New("boom")
	fetch := func(_ context.Context, key string) (int, error) {
		if strings.HasPrefix(key, "bad") {
			return 0, boom
		}
		return len(key), nil
	}

	_, err = c.Do(ctx, "a", fetch)
	require.NoError(t, err)
	_, err = c.Do(ctx, "a", fetch)
	require.NoError(t, err)
	_, err = c.Do(ctx, "bad", fetch)
	assert.ErrorIs(t, err, boom)
	_, err = c.Do(ctx, "bad", fetch)
	assert.ErrorIs(t, err, boom)

	events := m.EventsTotal
	assert.Equal(t, 2.0, testutil.ToFloat64(events.WithLabelValues("records", "miss")))
	assert.Equal(t, 2.0, testutil.ToFloat64(events.WithLabelValues("records", "hit")))
	assert.Equal(t, 0.0, testutil.ToFloat64(events.WithLabelValues("records", "busy")))
}

func TestObserverCountsEvictedEntries(t *testing.T) {
	m := prom.NewMetrics("test", prometheus.NewRegistry())

	c, err := smartcache.New[int, int](
		smartcache.WithObserver(m.Observer("ints")),
		smartcache.WithMaxCached(2),
	)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	identity := func(_ context.Context, k int) (int, error) { return k, nil }
	for i := range 3 {
		_, err := c.Do(ctx, i, identity)
		require.NoError(t, err)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsTotal.WithLabelValues("ints", "evict")))
	assert.Equal(t, 2, c.Len())
}

func TestTrackGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := prom.NewMetrics("test", reg)

	stats := smartcache.Stats{Settled: 7, Pending: 3}
	m.Track("records", func() smartcache.Stats { return stats })

	expected := `
# HELP test_cache_pending_fetches Fetches currently in flight
# TYPE test_cache_pending_fetches gauge
test_cache_pending_fetches{cache="records"} 3
# HELP test_cache_settled_entries Settled entries currently held, expired ones included until swept
# TYPE test_cache_settled_entries gauge
test_cache_settled_entries{cache="records"} 7
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"test_cache_pending_fetches", "test_cache_settled_entries")
	assert.NoError(t, err)
}
