// Package server exposes the bridge snapshot and Prometheus metrics over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/five82/cardbridge/internal/state"
)

const shutdownTimeout = 5 * time.Second

// Snapshotter supplies the current bridge state. *state.Store implements it.
type Snapshotter interface {
	Snapshot() state.Snapshot
}

// Server is the optional status endpoint.
type Server struct {
	http *http.Server
	log  logrus.FieldLogger
}

// New builds a status server listening on addr.
func New(addr string, store Snapshotter, gatherer prometheus.Gatherer, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           Handler(store, gatherer),
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

// Handler returns the status routes.
func Handler(store Snapshotter, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		snap := store.Snapshot()
		status := http.StatusOK
		body := map[string]any{"status": "ok", "reader_connected": snap.ReaderConnected}
		if snap.ReaderError != "" {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["reader_error"] = snap.ReaderError
		}
		writeJSON(w, status, body)
	})
	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, store.Snapshot())
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.http.Addr).Info("status endpoint listening")
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
