// Package metrics provides Prometheus instrumentation for dorm.
//
// Everything is registered on a dedicated registry so embedding projects
// keep their own default registry clean. The registry is exposed two ways:
//
//	// long-running: mounted by `runserver`
//	r.Handle("/metrics", metrics.Handler())
//
//	// one-shot CLI runs: node_exporter textfile collector
//	metrics.WriteTextfile("/var/lib/node_exporter/dorm.prom")
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ─────────────────────────────────────────────
// Bootstrap and dispatch metrics
// ─────────────────────────────────────────────

var (
	// SetupsTotal counts bootstrap attempts that did real work, by outcome.
	SetupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dorm",
			Subsystem: "bootstrap",
			Name:      "setups_total",
			Help:      "Total bootstrap runs.",
		},
		[]string{"outcome"}, // "success" | "error"
	)

	// SetupDuration tracks how long path resolution, settings loading and
	// engine setup take together.
	SetupDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "dorm",
			Subsystem: "bootstrap",
			Name:      "setup_duration_seconds",
			Help:      "Duration of bootstrap runs in seconds.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
	)

	// CommandsTotal counts dispatched subcommands.
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dorm",
			Subsystem: "dispatch",
			Name:      "commands_total",
			Help:      "Total subcommands dispatched.",
		},
		[]string{"command", "outcome"},
	)

	// MigrationsApplied counts migrations applied per app.
	MigrationsApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dorm",
			Subsystem: "migration",
			Name:      "applied_total",
			Help:      "Total migrations applied.",
		},
		[]string{"app"},
	)

	// RequestTotal counts HTTP requests served by runserver.
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dorm",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDuration tracks runserver request latency.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dorm",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// ─────────────────────────────────────────────
// Registry
// ─────────────────────────────────────────────

// Registry is the Prometheus registry used by dorm.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	Registry.MustRegister(
		SetupsTotal,
		SetupDuration,
		CommandsTotal,
		MigrationsApplied,
		RequestTotal,
		RequestDuration,
	)
}

// MustRegister adds project collectors to the dorm registry.
func MustRegister(c ...prometheus.Collector) {
	Registry.MustRegister(c...)
}

// ─────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────

// Outcome maps an error to the "outcome" label value.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// ObserveSetup records one bootstrap run:
//
//	defer func(start time.Time) { metrics.ObserveSetup(start, err) }(time.Now())
func ObserveSetup(start time.Time, err error) {
	SetupsTotal.WithLabelValues(Outcome(err)).Inc()
	SetupDuration.Observe(time.Since(start).Seconds())
}

// RecordCommand records one dispatched subcommand.
func RecordCommand(name string, err error) {
	CommandsTotal.WithLabelValues(name, Outcome(err)).Inc()
}

// WriteTextfile writes the registry in the text exposition format, for the
// node_exporter textfile collector. The file is replaced atomically.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}

// ─────────────────────────────────────────────
// HTTP
// ─────────────────────────────────────────────

// Handler exposes the registry. Mount it on GET /metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and latency for every request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rr := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rr, r)

		RequestTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rr.status)).Inc()
		RequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}
