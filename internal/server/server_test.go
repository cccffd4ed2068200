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
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-basketinsights/internal/analysis"
	"github.com/pgEdge/pgedge-basketinsights/internal/datagen"
	"github.com/pgEdge/pgedge-basketinsights/internal/export"
	"github.com/pgEdge/pgedge-basketinsights/internal/metrics"
)

func loadedServer(t *testing.T) *Server {
	t.Helper()
	b := datagen.NewBuilder().
		Department(1, "produce").
		Aisle(1, "fresh fruits").
		Product(10, "Bananas", 1, 1).
		Product(20, "Strawberries", 1, 1)
	for i := 0; i < 35; i++ {
		b.Orders(3, int64(i+1), nil, 10, 20)
		b.Order(int64(i+1), nil, 10)
	}

	m := metrics.New()
	res, err := analysis.NewEngine(analysis.DefaultOptions()).WithObserver(m).Run(context.Background(), b.Snapshot())
	require.NoError(t, err)
	m.RecordRun(res, time.Now())

	s := New(m)
	s.SetResults(res, export.Meta{RunID: "run-1", Precision: 2})
	return s
}

func get(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, []byte) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec, rec.Body.Bytes()
}

func TestNoResults(t *testing.T) {
	s := New(nil)

	_, _, err := s.Results()
	assert.True(t, errors.Is(err, ErrNoResults))

	rec, body := get(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","ready":false}`, string(body))

	for _, path := range []string{"/benchmarks", "/products/order_size", "/copurchase", "/export"} {
		rec, body := get(t, s, path)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
		assert.Contains(t, string(body), ErrNoResults.Error(), path)
	}

	rec, _ = get(t, s, "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	rec, body := get(t, loadedServer(t), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","ready":true,"run_id":"run-1"}`, string(body))
}

func TestBenchmarks(t *testing.T) {
	rec, body := get(t, loadedServer(t), "/benchmarks")
	require.Equal(t, http.StatusOK, rec.Code)

	var benchmarks []analysis.Benchmark
	require.NoError(t, json.Unmarshal(body, &benchmarks))
	require.Len(t, benchmarks, 2)
	assert.False(t, benchmarks[0].Value.Valid)
	assert.Equal(t, analysis.Valid(1.75), benchmarks[1].Value)
}

func TestProductMetrics(t *testing.T) {
	s := loadedServer(t)

	rec, body := get(t, s, "/products/order_size")
	require.Equal(t, http.StatusOK, rec.Code)
	var set analysis.MetricSet
	require.NoError(t, json.Unmarshal(body, &set))
	assert.Equal(t, analysis.OrderSize, set.Measure)
	require.Len(t, set.Results, 2)
	// Y is in two-item orders only, so it has the higher lift.
	assert.Equal(t, int64(20), set.Results[0].EntityID)

	rec, body = get(t, s, "/products/order_size?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(body, &set))
	assert.Len(t, set.Results, 1)

	rec, body = get(t, s, "/products/repurchase_cycle")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(string(body), `"results":[]`))

	rec, _ = get(t, s, "/products/basket_value")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = get(t, s, "/products/order_size?limit=-3")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProductMetricByID(t *testing.T) {
	s := loadedServer(t)

	rec, body := get(t, s, "/products/order_size?id=10")
	require.Equal(t, http.StatusOK, rec.Code)
	var result analysis.LiftResult
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, int64(10), result.EntityID)
	assert.Equal(t, "Bananas", result.Name)
	assert.Equal(t, 1.75, result.Mean)

	rec, _ = get(t, s, "/products/order_size?id=99")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = get(t, s, "/products/order_size?id=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = get(t, s, "/departments/order_size?id=1")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDepartmentMetrics(t *testing.T) {
	rec, body := get(t, loadedServer(t), "/departments/order_size")
	require.Equal(t, http.StatusOK, rec.Code)

	var set analysis.MetricSet
	require.NoError(t, json.Unmarshal(body, &set))
	assert.Equal(t, analysis.ByDepartment, set.Grouping)
	require.Len(t, set.Results, 1)
	assert.Equal(t, "produce", set.Results[0].Name)
}

func TestProductCoPurchase(t *testing.T) {
	s := loadedServer(t)

	rec, body := get(t, s, "/products/10/copurchase")
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []analysis.AssembledRow
	require.NoError(t, json.Unmarshal(body, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, int64(20), rows[0].CoProductID)
	assert.Equal(t, analysis.Valid(75), rows[0].AnchorPercentage)
	assert.False(t, rows[0].Repurchase.Available)

	rec, body = get(t, s, "/products/99/copurchase")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(body))

	rec, _ = get(t, s, "/products/abc/copurchase")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCoPurchase(t *testing.T) {
	rec, body := get(t, loadedServer(t), "/copurchase?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []analysis.CoPurchaseRow
	require.NoError(t, json.Unmarshal(body, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, int64(20), rows[0].AnchorID)
	assert.Equal(t, "100.00", rows[0].AnchorPercentage.Format(2))
}

func TestExportDocument(t *testing.T) {
	rec, body := get(t, loadedServer(t), "/export")
	require.Equal(t, http.StatusOK, rec.Code)

	var doc struct {
		Meta    export.Meta `json:"meta"`
		Results struct {
			CoPurchase []analysis.CoPurchaseRow `json:"copurchase"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Equal(t, "run-1", doc.Meta.RunID)
	assert.Len(t, doc.Results.CoPurchase, 2)
}

func TestMetricsEndpoint(t *testing.T) {
	rec, body := get(t, loadedServer(t), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(body), `basketinsights_runs_total{outcome="success"} 1`)
}

func TestListenAndServeShutdown(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	s := loadedServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, addr, 5*time.Second) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
