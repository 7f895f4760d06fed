// Package metrics provides Prometheus instrumentation for the job
// service and verification pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Set holds all metrics on a private registry so tests can create
// isolated instances.
type Set struct {
	registry *prometheus.Registry

	JobsTotal   *prometheus.CounterVec
	JobDuration prometheus.Histogram

	Verifications *prometheus.CounterVec
	Retries       prometheus.Counter

	NATSProcessed prometheus.Counter
	NATSFailed    prometheus.Counter

	EventPublish       *prometheus.CounterVec
	EventPublishErrors prometheus.Counter
}

// New creates a metric set on a fresh registry.
func New(namespace string) *Set {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	s := &Set{registry: registry}

	s.JobsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Total number of jobs processed by final status",
		},
		[]string{"status"},
	)

	s.JobDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Job processing duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0, 300.0},
		},
	)

	s.Verifications = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Total number of deliverable verifications by result",
		},
		[]string{"result"},
	)

	s.Retries = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Total number of corrective re-invocations",
		},
	)

	s.NATSProcessed = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nats_messages_processed_total",
			Help:      "Total number of NATS job messages processed",
		},
	)

	s.NATSFailed = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nats_messages_failed_total",
			Help:      "Total number of NATS job messages that failed",
		},
	)

	s.EventPublish = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of events published by type",
		},
		[]string{"event_type"},
	)

	s.EventPublishErrors = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_errors_total",
			Help:      "Total number of event sink publish errors",
		},
	)

	return s
}

// Handler returns an HTTP handler serving this set's registry.
func (s *Set) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
