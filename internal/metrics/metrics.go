//-------------------------------------------------------------------------
//
// pgEdge Basket Insights
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package metrics exposes run statistics as Prometheus metrics, either over
// HTTP or as a node_exporter textfile.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pgEdge/pgedge-basketinsights/internal/analysis"
)

const namespace = "basketinsights"

// Metrics holds the collectors for analysis runs on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	stageSeconds *prometheus.GaugeVec
	inputRows    *prometheus.GaugeVec
	resultRows   *prometheus.GaugeVec
	excluded     *prometheus.GaugeVec
	benchmark    *prometheus.GaugeVec
	lastSuccess  prometheus.Gauge
	runs         *prometheus.CounterVec
}

// New creates and registers the run collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		stageSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each pipeline stage in the last run.",
		}, []string{"stage"}),
		inputRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "input_rows",
			Help:      "Rows read per input relation in the last run.",
		}, []string{"relation"}),
		resultRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "result_rows",
			Help:      "Rows per result set in the last run.",
		}, []string{"set"}),
		excluded: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "excluded_entities",
			Help:      "Entities below the minimum sample size in the last run.",
		}, []string{"grouping", "measure"}),
		benchmark: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "benchmark",
			Help:      "Global benchmark per measure. Absent when undefined.",
		}, []string{"measure"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Analysis runs by outcome.",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		m.stageSeconds, m.inputRows, m.resultRows, m.excluded,
		m.benchmark, m.lastSuccess, m.runs,
	)
	return m
}

// RegisterRuntime adds the Go runtime and process collectors, for a
// long-running server.
func (m *Metrics) RegisterRuntime() {
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveStage records a stage duration. It satisfies
// analysis.StageObserver.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.stageSeconds.WithLabelValues(stage).Set(d.Seconds())
}

// RecordRun records the sizes and benchmarks of a successful run.
func (m *Metrics) RecordRun(res *analysis.Results, at time.Time) {
	m.inputRows.WithLabelValues("orders").Set(float64(res.Summary.Orders))
	m.inputRows.WithLabelValues("order_products").Set(float64(res.Summary.Lines))
	m.inputRows.WithLabelValues("products").Set(float64(res.Summary.Products))
	m.inputRows.WithLabelValues("departments").Set(float64(res.Summary.Departments))

	for _, set := range res.Sets() {
		name := string(set.Grouping) + "_" + string(set.Measure)
		m.resultRows.WithLabelValues(name).Set(float64(len(set.Results)))
		m.excluded.WithLabelValues(string(set.Grouping), string(set.Measure)).Set(float64(len(set.Insufficient)))
	}
	m.resultRows.WithLabelValues("copurchase").Set(float64(len(res.CoPurchase)))
	m.resultRows.WithLabelValues("copurchase_pairs").Set(float64(res.Summary.Pairs))

	for _, b := range res.Benchmarks() {
		if b.Value.Valid {
			m.benchmark.WithLabelValues(string(b.Measure)).Set(b.Value.Float64)
		} else {
			m.benchmark.DeleteLabelValues(string(b.Measure))
		}
	}

	m.lastSuccess.Set(float64(at.Unix()))
	m.runs.WithLabelValues("success").Inc()
}

// RecordFailure counts a failed run.
func (m *Metrics) RecordFailure() {
	m.runs.WithLabelValues("failure").Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the registry to path for the node_exporter textfile
// collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
