package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the series service.
type Metrics struct {
	registry       *prometheus.Registry
	requestsTotal  prometheus.Counter
	errorsTotal    prometheus.Counter
	mergedTotal    prometheus.Counter
	conflictsTotal prometheus.Counter
	rejectedTotal  prometheus.Counter
	sortsTotal     prometheus.Counter
	knownPatients  prometheus.Gauge
}

// New creates and registers Prometheus metrics for the series service.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "series_requests_total",
			Help: "Total number of HTTP requests received",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "series_errors_total",
			Help: "Total number of HTTP responses with error status (4xx or 5xx)",
		}),
		mergedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "series_merged_total",
			Help: "Total number of previously unseen series merged into a study",
		}),
		conflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "series_conflicts_total",
			Help: "Total number of incoming series dropped for reusing an id with different content",
		}),
		rejectedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "series_rejected_total",
			Help: "Total number of incoming series rejected as misclassified",
		}),
		sortsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "series_sorts_total",
			Help: "Total number of study series lists ordered",
		}),
		knownPatients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "series_known_patients",
			Help: "Number of patients held by the service",
		}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.errorsTotal,
		m.mergedTotal,
		m.conflictsTotal,
		m.rejectedTotal,
		m.sortsTotal,
		m.knownPatients,
	)
	return m
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// AddMerged adds n to the merged series counter.
func (m *Metrics) AddMerged(n int) {
	m.mergedTotal.Add(float64(n))
}

// AddConflicts adds n to the duplicate id counter.
func (m *Metrics) AddConflicts(n int) {
	m.conflictsTotal.Add(float64(n))
}

// AddRejected adds n to the rejected series counter.
func (m *Metrics) AddRejected(n int) {
	m.rejectedTotal.Add(float64(n))
}

// IncSorts increments the sorts counter.
func (m *Metrics) IncSorts() {
	m.sortsTotal.Inc()
}

// SetKnownPatients sets the known patients gauge.
func (m *Metrics) SetKnownPatients(n int) {
	m.knownPatients.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
