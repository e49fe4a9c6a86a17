// Package metrics exposes the Prometheus collectors shared by the origin
// server and the edge proxy. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch outcomes recorded by the offline controller.
const (
	OutcomeNetwork     = "network"
	OutcomePassthrough = "passthrough"
	OutcomeCache       = "cache"
	OutcomeShell       = "shell"
	OutcomeOffline     = "offline"
)

type Metrics struct {
	gatherer prometheus.Gatherer

	storeMutations   *prometheus.CounterVec
	persistFailures  prometheus.Counter
	transactions     prometheus.Gauge
	fetchOutcomes    *prometheus.CounterVec
	cacheWrites      *prometheus.CounterVec
	precacheFailures prometheus.Counter
	generations      *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     prometheus.Histogram
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the collectors on reg and serves them from g.
func NewWithRegistry(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		gatherer: g,
		storeMutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spendwise_store_mutations_total",
				Help: "Total number of transaction store actions dispatched",
			},
			[]string{"action"},
		),
		persistFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "spendwise_store_persist_failures_total",
				Help: "Total number of failed writes of the transaction collection",
			},
		),
		transactions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "spendwise_store_transactions",
				Help: "Number of transactions currently held by the store",
			},
		),
		fetchOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spendwise_offline_fetch_total",
				Help: "Intercepted fetches by how they were answered",
			},
			[]string{"outcome"},
		),
		cacheWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spendwise_offline_cache_writes_total",
				Help: "Cache writes by generation kind and status",
			},
			[]string{"generation", "status"},
		),
		precacheFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "spendwise_offline_precache_failures_total",
				Help: "App shell assets that could not be precached",
			},
		),
		generations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spendwise_offline_generations_deleted_total",
				Help: "Cache generations deleted by reason",
			},
			[]string{"reason"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spendwise_http_requests_total",
				Help: "HTTP requests by method and status code",
			},
			[]string{"method", "code"},
		),
		httpDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "spendwise_http_request_duration_milliseconds",
				Help:    "HTTP request duration in milliseconds",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
	}
}

func (m *Metrics) RecordMutation(action string, size int) {
	if m == nil {
		return
	}
	m.storeMutations.WithLabelValues(action).Inc()
	m.transactions.Set(float64(size))
}

func (m *Metrics) RecordPersistFailure() {
	if m == nil {
		return
	}
	m.persistFailures.Inc()
}

func (m *Metrics) RecordFetch(outcome string) {
	if m == nil {
		return
	}
	m.fetchOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordCacheWrite(generation string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.cacheWrites.WithLabelValues(generation, status).Inc()
}

func (m *Metrics) RecordPrecacheFailure() {
	if m == nil {
		return
	}
	m.precacheFailures.Inc()
}

func (m *Metrics) RecordGenerationDeleted(reason string) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordHTTP(method string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.httpDuration.Observe(float64(d.Milliseconds()))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
