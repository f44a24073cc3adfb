// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the application collectors
type Metrics struct {
	requestDuration   *prometheus.HistogramVec
	selectionOutcomes *prometheus.CounterVec
	gatherer          prometheus.Gatherer
}

// New registers the collectors on a fresh registry, together with the Go and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the application collectors on reg and serves them from gatherer
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	m := &Metrics{
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "schoollunch",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests by route pattern and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		selectionOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "schoollunch",
			Name:      "selection_operations_total",
			Help:      "Lunch selection operations by kind and outcome.",
		}, []string{"operation", "outcome"}),
		gatherer: gatherer,
	}
	reg.MustRegister(m.requestDuration, m.selectionOutcomes)
	return m
}

// ObserveRequest records one served request
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// RecordSelection counts a selection operation such as ("update", "locked")
func (m *Metrics) RecordSelection(operation, outcome string) {
	if m == nil {
		return
	}
	m.selectionOutcomes.WithLabelValues(operation, outcome).Inc()
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
