package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	reportsSubmitted prometheus.Counter
	reportDecisions  *prometheus.CounterVec
	notifications    prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
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

	reportsSubmitted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reports_submitted_total",
		Help: "Total number of reports submitted",
	})

	reportDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "report_decisions_total",
		Help: "Total number of report status decisions",
	}, []string{"status"})

	notifications := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notifications_dispatched_total",
		Help: "Total number of notifications dispatched",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, reportsSubmitted, reportDecisions, notifications, goroutines)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		reportsSubmitted: reportsSubmitted,
		reportDecisions:  reportDecisions,
		notifications:    notifications,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordReportSubmitted increments the submission counter.
func (m *MetricsService) RecordReportSubmitted() {
	if m == nil {
		return
	}
	m.reportsSubmitted.Inc()
}

// RecordReportDecision increments the decision counter for a status.
func (m *MetricsService) RecordReportDecision(status string) {
	if m == nil {
		return
	}
	m.reportDecisions.WithLabelValues(status).Inc()
}

// RecordNotificationDispatched increments the dispatch counter.
func (m *MetricsService) RecordNotificationDispatched() {
	if m == nil {
		return
	}
	m.notifications.Inc()
}
