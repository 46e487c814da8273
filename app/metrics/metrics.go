// Package metrics exposes Prometheus counters for auth flow outcomes and
// latency histograms for HTTP requests.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry     *prometheus.Registry
	authOutcomes *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func New(namespace string) *Metrics {
	namespace = strings.ReplaceAll(namespace, "-", "_")
	registry := prometheus.NewRegistry()

	authOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_outcomes_total",
		Help:      "Auth flow results by flow and outcome.",
	}, []string{"flow", "outcome"})

	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method, route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	registry.MustRegister(
		authOutcomes,
		httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		registry:     registry,
		authOutcomes: authOutcomes,
		httpDuration: httpDuration,
	}
}

// RecordOutcome counts one completed auth flow.
func (m *Metrics) RecordOutcome(flow, outcome string) {
	m.authOutcomes.WithLabelValues(flow, outcome).Inc()
}

// Middleware observes the latency of every request. Routes are labelled by
// their registered path so token query strings never become label values.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else if !c.Response().Committed {
					status = http.StatusInternalServerError
				}
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.httpDuration.
				WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())

			return err
		}
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
