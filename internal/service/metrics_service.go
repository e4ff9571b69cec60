package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and
// the billing engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	paymentsTotal   prometheus.Counter
	voidsTotal      prometheus.Counter
	cyclesRolled    prometheus.Counter
	receiptsTotal   *prometheus.CounterVec
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	cacheHitCount  uint64
	cacheMissCount uint64
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

	paymentsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payments_registered_total",
		Help: "Total payments registered",
	})

	voidsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payments_voided_total",
		Help: "Total payments voided",
	})

	cyclesRolled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cycles_rolled_total",
		Help: "Total billing cycles rolled forward by completing payments",
	})

	receiptsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "receipts_rendered_total",
		Help: "Total receipt rendering attempts by outcome",
	}, []string{"outcome"})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, paymentsTotal, voidsTotal, cyclesRolled, receiptsTotal, cacheHitRatio, cacheHits, cacheMisses, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		paymentsTotal:   paymentsTotal,
		voidsTotal:      voidsTotal,
		cyclesRolled:    cyclesRolled,
		receiptsTotal:   receiptsTotal,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
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

// PaymentRegistered counts a successful payment registration.
func (m *MetricsService) PaymentRegistered() {
	if m == nil {
		return
	}
	m.paymentsTotal.Inc()
}

// PaymentVoided counts a successful void.
func (m *MetricsService) PaymentVoided() {
	if m == nil {
		return
	}
	m.voidsTotal.Inc()
}

// CycleRolled counts a billing cycle advanced by a completing payment.
func (m *MetricsService) CycleRolled() {
	if m == nil {
		return
	}
	m.cyclesRolled.Inc()
}

// ReceiptRendered counts a receipt rendering attempt by outcome.
func (m *MetricsService) ReceiptRendered(outcome string) {
	if m == nil {
		return
	}
	m.receiptsTotal.WithLabelValues(outcome).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates the ratio.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}
