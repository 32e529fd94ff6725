// Package metrics exposes the Prometheus collectors for the server.
//
// A Collector owns its registry, so tests can build as many as they like
// without duplicate-registration panics. Every method is safe on a nil
// *Collector, which lets services run without metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "clueboard"

// Import outcomes, the result label of Imports.
const (
	ImportOK       = "ok"
	ImportRejected = "rejected"
	ImportFailed   = "failed"
)

// Collector holds all metrics for the application.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	CluesCreated        prometheus.Counter
	CluesDeleted        prometheus.Counter
	ConnectionsCreated  prometheus.Counter
	ConnectionsCascaded prometheus.Counter
	Imports             *prometheus.CounterVec
}

// New creates a Collector with a fresh registry, including the Go runtime
// and process collectors.
func New() *Collector {
	c := &Collector{
		registry:     prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		CluesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clues_created_total",
			Help:      "Total number of clues created",
		}),
		CluesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clues_deleted_total",
			Help:      "Total number of clues deleted",
		}),
		ConnectionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_created_total",
			Help:      "Total number of connections created",
		}),
		ConnectionsCascaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_cascaded_total",
			Help:      "Connections removed because an endpoint clue was deleted",
		}),
		Imports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "imports_total",
				Help:      "Board imports by outcome",
			},
			[]string{"result"},
		),
	}

	c.registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.CluesCreated,
		c.CluesDeleted,
		c.ConnectionsCreated,
		c.ConnectionsCascaded,
		c.Imports,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the exposition format for this collector's registry.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObserveRequest records one served HTTP request.
func (c *Collector) ObserveRequest(method, route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (c *Collector) ClueCreated(n int) {
	if c == nil {
		return
	}
	c.CluesCreated.Add(float64(n))
}

// ClueDeleted records a clue deletion and the connections it took with it.
func (c *Collector) ClueDeleted(cascaded int64) {
	if c == nil {
		return
	}
	c.CluesDeleted.Inc()
	c.ConnectionsCascaded.Add(float64(cascaded))
}

func (c *Collector) ConnectionCreated(n int) {
	if c == nil {
		return
	}
	c.ConnectionsCreated.Add(float64(n))
}

// ImportFinished records an import outcome (ImportOK, ImportRejected or
// ImportFailed).
func (c *Collector) ImportFinished(result string) {
	if c == nil {
		return
	}
	c.Imports.WithLabelValues(result).Inc()
}
