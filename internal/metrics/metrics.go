// Package metrics exposes Prometheus collectors for jobs, badges and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sevigo/ci-warden/internal/core"
)

var (
	registerOnce sync.Once

	jobsCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ci_warden",
			Subsystem: "jobs",
			Name:      "completed_total",
			Help:      "Total number of completed jobs grouped by outcome status.",
		},
		[]string{"status"},
	)
	jobDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ci_warden",
			Subsystem: "jobs",
			Name:      "duration_seconds",
			Help:      "Time from enqueue to completion of a job.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
	)
	jobsPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ci_warden",
			Subsystem: "jobs",
			Name:      "pending",
			Help:      "Number of jobs waiting in the queue.",
		},
	)
	badgesServedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ci_warden",
			Subsystem: "badges",
			Name:      "served_total",
			Help:      "Total number of badge payloads served grouped by context and message kind.",
		},
		[]string{"context", "kind"},
	)
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ci_warden",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests grouped by route and code.",
		},
		[]string{"route", "code"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ci_warden",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency grouped by route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

var defaultStatuses = []core.Status{core.StatusSuccess, core.StatusFailure, core.StatusError}

func init() {
	Register()
}

// Register adds the collectors to the default registry. It is safe to call
// more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			jobsCompletedTotal,
			jobDuration,
			jobsPending,
			badgesServedTotal,
			httpRequestsTotal,
			httpRequestDuration,
		)
		for _, s := range defaultStatuses {
			jobsCompletedTotal.WithLabelValues(string(s)).Add(0)
		}
	})
}

// ObserveJob records a completed job. Its signature matches queue listeners.
func ObserveJob(job *core.Job, err error) {
	status := "unresolved"
	if outcome, ok := job.Result(); ok {
		status = string(outcome.Status)
	}
	if err != nil && status == "unresolved" {
		status = string(core.StatusError)
	}
	jobsCompletedTotal.WithLabelValues(status).Inc()
	jobDuration.Observe(time.Since(job.CreatedAt).Seconds())
}

// SetPendingJobs records the current queue depth.
func SetPendingJobs(n int) {
	jobsPending.Set(float64(n))
}

// ObserveBadge records a served badge payload.
func ObserveBadge(badgeContext string, payload *core.BadgePayload) {
	kind := "value"
	switch payload.Message {
	case "pending", "unknown":
		kind = payload.Message
	}
	badgesServedTotal.WithLabelValues(badgeContext, kind).Inc()
}

// Middleware counts requests per chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
