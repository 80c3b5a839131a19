// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "eduflow"

var (
	// SessionOperations counts store operations by op and result (ok, not_found, invalid, rejected).
	SessionOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_operations_total",
		Help:      "Session store operations by kind and result.",
	}, []string{"op", "result"})

	ConflictsReported = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "conflicts_reported_total",
		Help:      "Conflicting sessions returned by conflict checks.",
	})

	AttendanceRate = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "attendance_rate_percent",
		Help:      "Attendance rate of saved attendance sheets.",
		Buckets:   prometheus.LinearBuckets(10, 10, 10),
	})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_rate_limited_total",
		Help:      "Requests rejected by the rate limiter.",
	})

	WorkerEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "worker_events_total",
		Help:      "Events handled by the worker by type and result.",
	}, []string{"type", "result"})
)
