// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package metrics exposes Prometheus collectors for the memory runtime.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pandora"

// Metrics holds all Prometheus collectors for one runtime instance
type Metrics struct {
	registry *prometheus.Registry

	MemoryLines      prometheus.Gauge
	BreathCycle      prometheus.Gauge
	BufferItems      prometheus.Gauge
	Ingested         *prometheus.CounterVec
	Snapshots        *prometheus.CounterVec
	SnapshotDuration prometheus.Histogram
	CycleFailures    prometheus.Counter
	MirrorFailures   prometheus.Counter
	HTTPRequests     *prometheus.CounterVec
}

// New creates collectors registered on a private registry
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		MemoryLines: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_lines",
			Help:      "Number of retained memory lines",
		}),
		BreathCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breath_cycle",
			Help:      "Current breath cycle counter",
		}),
		BufferItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "collector_buffer_items",
			Help:      "Raw items held by the collector buffer",
		}),
		Ingested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_items_total",
			Help:      "Collector ingest attempts by mode and outcome",
		}, []string{"mode", "outcome"}),
		Snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_total",
			Help:      "Snapshot commits by trigger and outcome",
		}, []string{"trigger", "outcome"}),
		SnapshotDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_duration_seconds",
			Help:      "Time spent committing snapshots",
			Buckets:   prometheus.DefBuckets,
		}),
		CycleFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breath_cycle_failures_total",
			Help:      "Breath cycle ticks that failed",
		}),
		MirrorFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mirror_failures_total",
			Help:      "Memory lines the database mirror failed to save",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
	}

	registry.MustRegister(
		m.MemoryLines,
		m.BreathCycle,
		m.BufferItems,
		m.Ingested,
		m.Snapshots,
		m.SnapshotDuration,
		m.CycleFailures,
		m.MirrorFailures,
		m.HTTPRequests,
	)

	return m
}

// Registry returns the private registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveIngest counts an ingest attempt
func (m *Metrics) ObserveIngest(mode, outcome string) {
	if m == nil {
		return
	}
	m.Ingested.WithLabelValues(mode, outcome).Inc()
}

// ObserveSnapshot counts a snapshot commit and its duration
func (m *Metrics) ObserveSnapshot(trigger, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.Snapshots.WithLabelValues(trigger, outcome).Inc()
	m.SnapshotDuration.Observe(took.Seconds())
}

// SetStoreState records the store gauges
func (m *Metrics) SetStoreState(lines int, cycle int64) {
	if m == nil {
		return
	}
	m.MemoryLines.Set(float64(lines))
	m.BreathCycle.Set(float64(cycle))
}

// SetBufferItems records the collector gauge
func (m *Metrics) SetBufferItems(n int) {
	if m == nil {
		return
	}
	m.BufferItems.Set(float64(n))
}

// IncCycleFailure counts a failed breath cycle tick
func (m *Metrics) IncCycleFailure() {
	if m == nil {
		return
	}
	m.CycleFailures.Inc()
}

// IncMirrorFailure counts a failed mirror write
func (m *Metrics) IncMirrorFailure() {
	if m == nil {
		return
	}
	m.MirrorFailures.Inc()
}

// ObserveHTTP counts a served request
func (m *Metrics) ObserveHTTP(method, route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, http.StatusText(status)).Inc()
}
