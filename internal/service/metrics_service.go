package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the
// gateway: HTTP traffic, token renewals and export rendering.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	renewalTotal    *prometheus.CounterVec
	exportDuration  *prometheus.HistogramVec
	exportTotal     *prometheus.CounterVec
}

// NewMetricsService registers the gateway's Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	renewalTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "token_renewals_total",
		Help: "Total access token renewal attempts by outcome",
	}, []string{"outcome"})

	exportDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "transcript_export_duration_seconds",
		Help:    "Duration of transcript export rendering in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"format"})

	exportTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "transcript_exports_total",
		Help: "Total transcript exports by format and result",
	}, []string{"format", "result"})

	registry.MustRegister(requestDuration, requestTotal, renewalTotal, exportDuration, exportTotal)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		renewalTotal:    renewalTotal,
		exportDuration:  exportDuration,
		exportTotal:     exportTotal,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one served HTTP request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	s.requestDuration.With(labels).Observe(duration.Seconds())
	s.requestTotal.With(labels).Inc()
}

// ObserveTokenRenewal records one renewal attempt outcome
// (success, failure, connectivity).
func (s *MetricsService) ObserveTokenRenewal(outcome string) {
	s.renewalTotal.WithLabelValues(outcome).Inc()
}

// ObserveExport records one transcript render.
func (s *MetricsService) ObserveExport(format string, duration time.Duration, success bool) {
	s.exportDuration.WithLabelValues(format).Observe(duration.Seconds())
	result := "success"
	if !success {
		result = "failure"
	}
	s.exportTotal.WithLabelValues(format, result).Inc()
}
