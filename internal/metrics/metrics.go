// Package metrics exposes Prometheus counters for marketplace activity and
// HTTP traffic.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/iliyamo/ticket-marketplace/internal/model"
)

// Recorder implements platform.Notifier.
type Recorder struct {
	activity    *prometheus.CounterVec
	ticketsSold *prometheus.CounterVec
	ticketsUsed prometheus.Counter
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		activity: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "market",
				Name:      "activity_total",
				Help:      "Committed marketplace operations by kind",
			},
			[]string{"kind"},
		),
		ticketsSold: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "market",
				Subsystem: "tickets",
				Name:      "sold_total",
				Help:      "Tickets sold by payment currency",
			},
			[]string{"currency"},
		),
		ticketsUsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "market",
			Subsystem: "tickets",
			Name:      "used_total",
			Help:      "Tickets redeemed",
		}),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "market",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "market",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency by route",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms ~ 2s
			},
			[]string{"route"},
		),
	}
	reg.MustRegister(r.activity, r.ticketsSold, r.ticketsUsed, r.requests, r.latency)
	return r
}

// Notify implements platform.Notifier.
func (r *Recorder) Notify(_ context.Context, a model.Activity) {
	r.activity.WithLabelValues(string(a.Kind)).Inc()
	switch a.Kind {
	case model.ActivityTicketPurchased:
		r.ticketsSold.WithLabelValues(a.Currency.String()).Add(float64(a.Quantity))
	case model.ActivityTicketUsed:
		r.ticketsUsed.Inc()
	}
}

// Middleware counts and times every request by its route template.
func (r *Recorder) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			r.requests.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).Inc()
			r.latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
