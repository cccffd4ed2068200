//-------------------------------------------------------------------------
//
// pgEdge Basket Insights
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pgEdge/pgedge-basketinsights/internal/analysis"
	"github.com/pgEdge/pgedge-basketinsights/internal/export"
)

// HealthResponse reports whether results are loaded.
type HealthResponse struct {
	Status string `json:"status"`
	Ready  bool   `json:"ready"`
	RunID  string `json:"run_id,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	_, meta, err := s.Results()
	resp := HealthResponse{Status: "ok", Ready: err == nil, RunID: meta.RunID}
	writeJSON(w, http.StatusOK, resp)
}

// latest returns the latest results rounded to the run precision, writing a
// 503 if there are none.
func (s *Server) latest(w http.ResponseWriter) (*analysis.Results, export.Meta, bool) {
	res, meta, err := s.Results()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return nil, meta, false
	}
	return res.Rounded(meta.Precision), meta, true
}

func (s *Server) benchmarks(w http.ResponseWriter, _ *http.Request) {
	res, _, ok := s.latest(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, res.Benchmarks())
}

func (s *Server) metricSet(g analysis.Grouping) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := analysis.ParseMeasure(chi.URLParam(r, "measure"))
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		limit, err := parseLimit(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		id, byID, err := parseID(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		res, _, ok := s.latest(w)
		if !ok {
			return
		}
		set, _ := res.Set(g, m)
		if byID {
			result, found := analysis.FindLift(set.Results, id)
			if !found {
				writeError(w, http.StatusNotFound,
					fmt.Errorf("no %s result for %s %d", m, g, id))
				return
			}
			writeJSON(w, http.StatusOK, result)
			return
		}
		set.Results = truncate(set.Results, limit)
		writeJSON(w, http.StatusOK, set)
	}
}

func (s *Server) productCoPurchase(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, errors.New("product id must be a positive integer"))
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, _, ok := s.latest(w)
	if !ok {
		return
	}

	rows := []analysis.AssembledRow{}
	for _, row := range res.Assembled {
		if row.AnchorID == id {
			rows = append(rows, row)
		}
	}
	writeJSON(w, http.StatusOK, truncate(rows, limit))
}

func (s *Server) coPurchase(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, _, ok := s.latest(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, truncate(res.CoPurchase, limit))
}

func (s *Server) document(w http.ResponseWriter, _ *http.Request) {
	res, meta, err := s.Results()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, export.NewDocument(res, meta))
}

// parseLimit reads the optional limit query parameter. Zero means no limit.
func parseLimit(r *http.Request) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid limit %q", v)
	}
	return n, nil
}

// parseID reads the optional id query parameter.
func parseID(r *http.Request) (int64, bool, error) {
	v := r.URL.Query().Get("id")
	if v == "" {
		return 0, false, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, false, fmt.Errorf("invalid id %q", v)
	}
	return id, true, nil
}

func truncate[T any](rows []T, limit int) []T {
	if rows == nil {
		return []T{}
	}
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}
