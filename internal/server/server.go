// Package server exposes a smartcache-backed record lookup over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/apex/log"

	smartcache "github.com/probablyarth/smartcache-go"
	"github.com/probablyarth/smartcache-go/internal/backend"
)

// Records is the cache the server reads through.
type Records = smartcache.Cache[string, backend.Record]

// Server routes record requests through a shared cache.
type Server struct {
	records *Records
	fetch   smartcache.FetchFunc[string, backend.Record]
	mux     *http.ServeMux
}

// New returns a Server answering from records, filling misses with fetch.
// Extra handlers such as /metrics can be mounted with Handle.
func New(records *Records, fetch smartcache.FetchFunc[string, backend.Record]) *Server {
	s := &Server{
		records: records,
		fetch:   fetch,
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /value/{key}", s.getValue)
	s.mux.HandleFunc("DELETE /value/{key}", s.forgetValue)
	s.mux.HandleFunc("GET /stats", s.stats)
	return s
}

// Handle mounts h at pattern.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.mux.ServeHTTP(w, r)
}

func (s *Server) getValue(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	rec, err := s.records.Do(r.Context(), key, s.fetch)
	if err != nil {
		status := statusFor(err)
		ctx := log.WithFields(log.Fields{
			"key":    key,
			"status": status,
		}).WithError(err)
		if errors.Is(err, smartcache.ErrBusy) {
			ctx.Debug("lookup rejected")
		} else {
			ctx.Warn("lookup failed")
		}
		writeJSON(w, status, map[string]string{"message": err.Error()})
		return
	}
	log.WithField("key", key).Debug("lookup")
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) forgetValue(w http.ResponseWriter, r *http.Request) {
	if !s.records.Forget(r.PathValue("key")) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "not cached"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.records.Stats())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, smartcache.ErrBusy):
		return http.StatusServiceUnavailable
	case errors.Is(err, smartcache.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, backend.ErrUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("write response")
	}
}
