// Package metrics exposes Prometheus collectors for the shopfinder service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	storeOpDurationSeconds     *prometheus.HistogramVec
	urlValidationsTotal        *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shopfinder_http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shopfinder_http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		storeOpDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shopfinder_store_op_duration_seconds",
				Help:    "Histogram of shop store operation latencies, labeled by operation.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"op"},
		)

		urlValidationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shopfinder_url_validations_total",
				Help: "Total number of shop submissions validated, labeled by outcome.",
			},
			[]string{"outcome"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveStoreOp records the duration of a store operation. Intended for use
// in a defer with the operation start time.
func ObserveStoreOp(op string, start time.Time) {
	if storeOpDurationSeconds == nil {
		return
	}
	storeOpDurationSeconds.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// ObserveValidation increments the validation outcome counter.
func ObserveValidation(ok bool) {
	if urlValidationsTotal == nil {
		return
	}
	outcome := "rejected"
	if ok {
		outcome = "accepted"
	}
	urlValidationsTotal.WithLabelValues(outcome).Inc()
}
