package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	SourceHTTP = "http"
	SourceOTLP = "otlp"

	ResultAccepted = "accepted"
	ResultRejected = "rejected"
)

// Metrics holds the Prometheus metrics of the profiler server on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Notifications   *prometheus.CounterVec
	Reports         *prometheus.CounterVec
	ExcludedEntries prometheus.Counter
	ReportDuration  prometheus.Histogram
	RequestsTotal   *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,

		Notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profiler_notifications_total",
				Help: "Notifications received, by source and result",
			},
			[]string{"source", "result"},
		),
		Reports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profiler_reports_total",
				Help: "Reports built, by result",
			},
			[]string{"result"},
		),
		ExcludedEntries: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "profiler_report_excluded_entries_total",
				Help: "Malformed trace entries left out of reports",
			},
		),
		ReportDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "profiler_report_duration_seconds",
				Help:    "Time spent fetching and assembling a report",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profiler_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "status"},
		),
	}
}

func (m *Metrics) RecordNotification(source string, err error) {
	result := ResultAccepted
	if err != nil {
		result = ResultRejected
	}
	m.Notifications.WithLabelValues(source, result).Inc()
}

func (m *Metrics) RecordReport(start time.Time, excluded int, err error) {
	m.ReportDuration.Observe(time.Since(start).Seconds())
	m.ExcludedEntries.Add(float64(excluded))
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Reports.WithLabelValues(result).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
