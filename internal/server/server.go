//-------------------------------------------------------------------------
//
// pgEdge Basket Insights
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package server serves the latest analysis results as read-only JSON.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/pgEdge/pgedge-basketinsights/internal/analysis"
	"github.com/pgEdge/pgedge-basketinsights/internal/export"
	"github.com/pgEdge/pgedge-basketinsights/internal/logging"
	"github.com/pgEdge/pgedge-basketinsights/internal/metrics"
)

// ErrNoResults is returned while no run has completed.
var ErrNoResults = errors.New("no results available")

// Server holds the latest results and the HTTP routes over them.
type Server struct {
	mu      sync.RWMutex
	results *analysis.Results
	meta    export.Meta

	metrics *metrics.Metrics
	router  chi.Router
	log     zerolog.Logger
}

// New creates a server. m may be nil, in which case /metrics is not served.
func New(m *metrics.Metrics) *Server {
	s := &Server{
		metrics: m,
		log:     logging.Component("server"),
	}
	s.router = s.routes()
	return s
}

// SetResults publishes a completed run.
func (s *Server) SetResults(res *analysis.Results, meta export.Meta) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = res
	s.meta = meta
}

// Results returns the latest run, or ErrNoResults.
func (s *Server) Results() (*analysis.Results, export.Meta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.results == nil {
		return nil, export.Meta{}, ErrNoResults
	}
	return s.results, s.meta, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.health)
	r.Get("/benchmarks", s.benchmarks)
	r.Get("/products/{measure}", s.metricSet(analysis.ByProduct))
	r.Get("/products/{id}/copurchase", s.productCoPurchase)
	r.Get("/departments/{measure}", s.metricSet(analysis.ByDepartment))
	r.Get("/copurchase", s.coPurchase)
	r.Get("/export", s.document)

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      2 * readTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("Listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		var ev *zerolog.Event
		switch {
		case ww.Status() >= 500:
			ev = s.log.Error()
		case ww.Status() >= 400:
			ev = s.log.Warn()
		default:
			ev = s.log.Debug()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
