package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and
// the custody workflows behind it.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	handoverTotal   *prometheus.CounterVec
	qrLoginTotal    *prometheus.CounterVec
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

	handoverTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "handovers_total",
		Help: "Delivery confirmations, split by identity proof",
	}, []string{"workflow", "verified"})

	qrLoginTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "qr_logins_total",
		Help: "QR badge login attempts by outcome",
	}, []string{"outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, handoverTotal, qrLoginTotal, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		handoverTotal:   handoverTotal,
		qrLoginTotal:    qrLoginTotal,
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

// ObserveHandover counts a confirmed delivery; verified says whether the
// requester's badge was scanned or a manager overrode the check.
func (m *MetricsService) ObserveHandover(workflow string, verified bool) {
	if m == nil {
		return
	}
	m.handoverTotal.WithLabelValues(workflow, fmt.Sprintf("%t", verified)).Inc()
}

// ObserveQRLogin counts a badge login attempt by outcome.
func (m *MetricsService) ObserveQRLogin(outcome string) {
	if m == nil {
		return
	}
	m.qrLoginTotal.WithLabelValues(outcome).Inc()
}
