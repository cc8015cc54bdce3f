// Deskmirror - Helpdesk Data Warehouse Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskmirror

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sync Phase Metrics
	SyncPhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deskmirror_sync_phase_duration_seconds",
			Help:    "Duration of sync phases in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"phase"},
	)

	SyncRecordsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskmirror_sync_records_written_total",
			Help: "Total number of records upserted into the warehouse",
		},
		[]string{"phase"},
	)

	SyncPhaseRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskmirror_sync_phase_runs_total",
			Help: "Total number of sync phase runs by outcome",
		},
		[]string{"phase", "result"}, // result: "success", "failure"
	)

	SyncLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "deskmirror_sync_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run of each phase",
		},
		[]string{"phase"},
	)

	SyncInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "deskmirror_sync_in_progress",
			Help: "1 while a sync run is active",
		},
	)

	SyncTicketFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deskmirror_sync_message_ticket_failures_total",
			Help: "Tickets whose messages could not be synced",
		},
	)

	// Upstream API Metrics
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskmirror_upstream_requests_total",
			Help: "Total number of helpdesk API requests",
		},
		[]string{"endpoint", "status"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deskmirror_upstream_request_duration_seconds",
			Help:    "Helpdesk API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	UpstreamRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskmirror_upstream_retries_total",
			Help: "Total number of retried helpdesk API calls",
		},
		[]string{"reason"}, // reason: "throttled", "transient"
	)

	RateLimiterWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "deskmirror_rate_limiter_wait_seconds",
			Help:    "Time spent waiting for a rate limiter token",
			Buckets: []float64{0, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// HTTP API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)
)

// RecordPhase records the outcome of one sync phase.
func RecordPhase(phase string, duration time.Duration, written int, err error) {
	SyncPhaseDuration.WithLabelValues(phase).Observe(duration.Seconds())
	if written > 0 {
		SyncRecordsWritten.WithLabelValues(phase).Add(float64(written))
	}
	if err != nil {
		SyncPhaseRuns.WithLabelValues(phase, "failure").Inc()
		return
	}
	SyncPhaseRuns.WithLabelValues(phase, "success").Inc()
	SyncLastSuccess.WithLabelValues(phase).SetToCurrentTime()
}

// RecordUpstreamRequest records one helpdesk API call. A zero status means
// the request never produced a response.
func RecordUpstreamRequest(endpoint string, status int, duration time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	UpstreamRequests.WithLabelValues(endpoint, label).Inc()
	UpstreamRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordRetry counts a retried upstream call.
func RecordRetry(throttled bool) {
	if throttled {
		UpstreamRetries.WithLabelValues("throttled").Inc()
		return
	}
	UpstreamRetries.WithLabelValues("transient").Inc()
}

// RecordLimiterWait observes how long a caller waited for a token.
func RecordLimiterWait(d time.Duration) {
	RateLimiterWait.Observe(d.Seconds())
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// SetSyncInProgress flips the in-progress gauge.
func SetSyncInProgress(active bool) {
	if active {
		SyncInProgress.Set(1)
		return
	}
	SyncInProgress.Set(0)
}

