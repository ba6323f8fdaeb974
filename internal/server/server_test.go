package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	smartcache "github.com/probablyarth/smartcache-go"
	"github.com/probablyarth/smartcache-go/internal/backend"
)

func newTestServer(t *testing.T, be *backend.Backend, opts ...smartcache.Option) (*Server, *Records) {
	t.Helper()
	records, err := smartcache.New[string, backend.Record](opts...)
	require.NoError(t, err)
	t.Cleanup(func() { records.Close() })
	return New(records, be.Fetch), records
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestGetValueCached(t *testing.T) {
	be := &backend.Backend{}
	srv, _ := newTestServer(t, be)

	for range 3 {
		rec := do(t, srv, http.MethodGet, "/value/alice")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

		var got backend.Record
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Equal(t, "ALICE", got.Value)
	}
	assert.Equal(t, int64(1), be.Calls())
}

func TestGetValueFailureCached(t *testing.T) {
	be := &backend.Backend{FailPrefix: "bad-"}
	srv, _ := newTestServer(t, be)

	for range 2 {
		rec := do(t, srv, http.MethodGet, "/value/bad-key")
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Contains(t, rec.Body.String(), "backend unavailable")
	}
	assert.Equal(t, int64(1), be.Calls())
}

func TestGetValueBusy(t *testing.T) {
	be := &backend.Backend{Latency: 200 * time.Millisecond}
	srv, records := newTestServer(t, be, smartcache.WithMaxPending(1))

	_, err := records.Get(context.Background(), "slow", be.Fetch)
	require.NoError(t, err)

	rec := do(t, srv, http.MethodGet, "/value/other")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestForgetValue(t *testing.T) {
	be := &backend.Backend{}
	srv, _ := newTestServer(t, be)

	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodDelete, "/value/alice").Code)
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/value/alice").Code)
	assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, "/value/alice").Code)
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/value/alice").Code)
	assert.Equal(t, int64(2), be.Calls())
}

func TestStatsAndOptions(t *testing.T) {
	be := &backend.Backend{}
	srv, _ := newTestServer(t, be)
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/value/alice").Code)

	rec := do(t, srv, http.MethodGet, "/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	var st smartcache.Stats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	assert.Equal(t, 1, st.Settled)
	assert.Equal(t, 0, st.Pending)

	rec = do(t, srv, http.MethodOptions, "/value/alice")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Headers"))
}
