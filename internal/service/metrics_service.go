package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP layer
// and the circulation core.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	borrowsTotal      prometheus.Counter
	returnsTotal      prometheus.Counter
	reservationsTotal *prometheus.CounterVec
	promotionsTotal   prometheus.Counter
	overdueMarked     prometheus.Counter
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

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	borrowsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "circulation_borrows_total",
		Help: "Total successful borrow operations",
	})

	returnsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "circulation_returns_total",
		Help: "Total successful return operations",
	})

	reservationsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "circulation_reservations_total",
		Help: "Total reservations created by initial status",
	}, []string{"status"})

	promotionsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "circulation_reservation_promotions_total",
		Help: "Total reservations promoted from the held queue",
	})

	overdueMarked := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "circulation_overdue_marked_total",
		Help: "Total loans flipped to overdue by the sweep",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheHits, cacheMisses,
		borrowsTotal, returnsTotal, reservationsTotal, promotionsTotal, overdueMarked, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:          registry,
		handler:           handler,
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
		borrowsTotal:      borrowsTotal,
		returnsTotal:      returnsTotal,
		reservationsTotal: reservationsTotal,
		promotionsTotal:   promotionsTotal,
		overdueMarked:     overdueMarked,
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

// RecordCacheOperation records a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// RecordBorrow counts a successful borrow.
func (m *MetricsService) RecordBorrow() {
	if m == nil {
		return
	}
	m.borrowsTotal.Inc()
}

// RecordReturn counts a successful return.
func (m *MetricsService) RecordReturn() {
	if m == nil {
		return
	}
	m.returnsTotal.Inc()
}

// RecordReservation counts a created reservation by its initial status.
func (m *MetricsService) RecordReservation(status string) {
	if m == nil {
		return
	}
	m.reservationsTotal.WithLabelValues(status).Inc()
}

// RecordPromotion counts a held reservation promoted to awaiting pickup.
func (m *MetricsService) RecordPromotion() {
	if m == nil {
		return
	}
	m.promotionsTotal.Inc()
}

// RecordOverdueMarked counts loans flipped to overdue by the sweep.
func (m *MetricsService) RecordOverdueMarked(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.overdueMarked.Add(float64(n))
}
