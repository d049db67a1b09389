// Package metrics exposes Prometheus collectors for the search tooling.
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
	jobsTotal           *prometheus.CounterVec
	pollsTotal          prometheus.Counter
	jobWaitSeconds      prometheus.Histogram
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	monitorUp           prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		jobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "splunkq_jobs_total",
				Help: "Total search job runs, labeled by terminal status.",
			},
			[]string{"status"},
		)

		pollsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "splunkq_polls_total",
				Help: "Total job status checks issued.",
			},
		)

		jobWaitSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "splunkq_job_wait_seconds",
				Help:    "Histogram of time spent waiting for job completion.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "splunkq_http_requests_total",
				Help: "Total HTTP requests to the server, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "splunkq_http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method"},
		)

		monitorUp = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "splunkq_monitor_up",
				Help: "1 when the most recent monitor probe succeeded, else 0.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveJob increments the run counter for the given terminal status.
func ObserveJob(status string) {
	if jobsTotal == nil {
		return
	}
	jobsTotal.WithLabelValues(status).Inc()
}

// ObservePoll counts one job status check.
func ObservePoll() {
	if pollsTotal == nil {
		return
	}
	pollsTotal.Inc()
}

// ObserveJobWait records how long a poll loop waited before terminating.
func ObserveJobWait(d time.Duration) {
	if jobWaitSeconds == nil {
		return
	}
	jobWaitSeconds.Observe(d.Seconds())
}

// ObserveHTTPRequest records one HTTP exchange with the server.
func ObserveHTTPRequest(method string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// SetMonitorUp publishes the latest monitor probe result.
func SetMonitorUp(ok bool) {
	if monitorUp == nil {
		return
	}
	if ok {
		monitorUp.Set(1)
	} else {
		monitorUp.Set(0)
	}
}
