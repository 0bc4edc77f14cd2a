package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for one process. A nil *Metrics is valid and
// records nothing, so components can run without instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	// Operations counts board operations by kind and outcome
	Operations *prometheus.CounterVec
	// PathDuration tracks shortest-path query latency
	PathDuration prometheus.Histogram
	// Vertices and Edges track the size of the active board
	Vertices prometheus.Gauge
	Edges    prometheus.Gauge
	// Requests counts HTTP requests by route pattern and status
	Requests *prometheus.CounterVec
	// RequestDuration tracks HTTP latency by route pattern
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on a fresh registry
// together with the Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dollargraph_operations_total",
				Help: "Total number of board operations",
			},
			[]string{"operation", "result"},
		),
		PathDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dollargraph_shortest_path_seconds",
				Help:    "Time spent computing shortest paths",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
		),
		Vertices: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "dollargraph_board_vertices",
				Help: "Number of vertices on the active board",
			},
		),
		Edges: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "dollargraph_board_edges",
				Help: "Number of edges on the active board",
			},
		),
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dollargraph_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dollargraph_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Operations,
		m.PathDuration,
		m.Vertices,
		m.Edges,
		m.Requests,
		m.RequestDuration,
	)
	return m
}

// Registry returns the registry the collectors are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Operation records one board operation
func (m *Metrics) Operation(name string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Operations.WithLabelValues(name, result).Inc()
}

// ObservePath records the duration of a shortest-path query
func (m *Metrics) ObservePath(d time.Duration) {
	if m == nil {
		return
	}
	m.PathDuration.Observe(d.Seconds())
}

// SetBoardSize updates the board gauges
func (m *Metrics) SetBoardSize(vertices, edges int) {
	if m == nil {
		return
	}
	m.Vertices.Set(float64(vertices))
	m.Edges.Set(float64(edges))
}

// ObserveRequest records one HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
