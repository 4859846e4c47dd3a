// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics wraps a prometheus.Registry as a luxmetric.Metrics the way
// the teacher's metrics_adapter.go does, and exposes the gauges/counters the
// components update. Each component that reports metrics is handed a *Set
// scoped to its own subsystem name.
package metrics

import (
	luxmetric "github.com/luxfi/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the process-wide metrics sink, backed by a prometheus
// registry and exposed to luxfi-style collaborators as luxmetric.Metrics.
type Registry struct {
	prom *prometheus.Registry
	lux  luxmetric.Metrics
}

// NewRegistry creates a fresh, empty metrics registry.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	return &Registry{
		prom: reg,
		lux:  luxmetric.NewWithRegistry("sequencer", reg),
	}
}

// Prometheus exposes the underlying registry, e.g. for an HTTP /metrics
// handler wired up outside this package.
func (r *Registry) Prometheus() *prometheus.Registry { return r.prom }

// Lux exposes the luxmetric.Metrics adapter for collaborators that expect
// that interface instead of a raw prometheus.Registry.
func (r *Registry) Lux() luxmetric.Metrics { return r.lux }

// Set is a component-scoped bundle of gauges/counters/histograms. The
// daemon creates one each for the Mempool, the L1 Provider, and the
// Batcher; Consensus has none.
type Set struct {
	subsystem string
	reg       prometheus.Registerer

	gauges     map[string]*prometheus.GaugeVec
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

// NewSet creates a metrics set scoped to subsystem (e.g. "mempool").
func (r *Registry) NewSet(subsystem string) *Set {
	return &Set{
		subsystem:  subsystem,
		reg:        r.prom,
		gauges:     make(map[string]*prometheus.GaugeVec),
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

// Gauge lazily registers a gauge with the given name and label
// names, then sets the value for the given label values.
func (s *Set) Gauge(name string, labels []string, value float64, labelValues ...string) {
	g, ok := s.gauges[name]
	if !ok {
		g = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sequencer",
			Subsystem: s.subsystem,
			Name:      name,
		}, labels)
		s.reg.MustRegister(g)
		s.gauges[name] = g
	}
	g.WithLabelValues(labelValues...).Set(value)
}

// Inc lazily registers a counter with the given name and label
// names, then increments it for the given label values.
func (s *Set) Inc(name string, labels []string, labelValues ...string) {
	c, ok := s.counters[name]
	if !ok {
		c = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sequencer",
			Subsystem: s.subsystem,
			Name:      name,
		}, labels)
		s.reg.MustRegister(c)
		s.counters[name] = c
	}
	c.WithLabelValues(labelValues...).Inc()
}

// Observe lazily registers a histogram with the given name and
// label names, then observes value for the given label values.
func (s *Set) Observe(name string, labels []string, value float64, labelValues ...string) {
	h, ok := s.histograms[name]
	if !ok {
		h = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sequencer",
			Subsystem: s.subsystem,
			Name:      name,
			Buckets:   prometheus.DefBuckets,
		}, labels)
		s.reg.MustRegister(h)
		s.histograms[name] = h
	}
	h.WithLabelValues(labelValues...).Observe(value)
}
