// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks total HTTP requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration tracks HTTP request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// BookingsTotal counts booking commit attempts by outcome (error code or "confirmed").
	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookings_total",
			Help: "Booking commit attempts by outcome",
		},
		[]string{"outcome"},
	)

	// SeatsBooked counts seats taken by confirmed bookings.
	SeatsBooked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_seats_total",
			Help: "Seats taken by confirmed bookings",
		},
	)

	// LockWait observes time spent acquiring the per-train lock.
	LockWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "booking_lock_wait_seconds",
			Help:    "Time spent waiting for the per-train inventory lock",
			Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	// PNRCollisions counts reference codes rejected by the unique index.
	PNRCollisions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_pnr_collisions_total",
			Help: "PNR values rejected by the unique constraint and regenerated",
		},
	)

	// SearchLogEvents counts search log sink events by result (enqueued, dropped, written, failed).
	SearchLogEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_log_events_total",
			Help: "Search log sink events by result",
		},
		[]string{"result"},
	)

	// SearchLogQueueDepth reports entries waiting in the sink queue.
	SearchLogQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "search_log_queue_depth",
			Help: "Search log entries waiting to be written",
		},
	)
)

// ObserveLockWait records a lock acquisition that started at start.
func ObserveLockWait(start time.Time) {
	LockWait.Observe(time.Since(start).Seconds())
}

// Middleware records request counts and latencies per matched route.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			RequestsTotal.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).Inc()
			RequestDuration.WithLabelValues(c.Request().Method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
