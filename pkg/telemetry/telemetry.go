// Package telemetry centralizes the logging, metrics, and tracing setup
// shared by every component: build the logger and registry once at
// startup and inject them everywhere, rather than reaching for a
// package-level singleton.
package telemetry

import (
	"context"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// NewLogger builds a zerolog.Logger for component, human-readable in dev
// and line-delimited JSON when ATC_LOG_JSON is "1".
func NewLogger(component string) zerolog.Logger {
	var w = os.Stdout
	var base zerolog.Logger
	if os.Getenv("ATC_LOG_JSON") == "1" {
		base = zerolog.New(w)
	} else {
		base = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339})
	}
	return base.With().Timestamp().Str("component", component).Logger()
}

// Metrics holds the Prometheus collectors shared by the runner, the
// violation detector, and the orchestrator. A single registry is
// constructed at startup and handed to every component that records
// against it, exactly as BaseAgent did per-agent.
type Metrics struct {
	Registry *prometheus.Registry

	RunnerFailures   *prometheus.CounterVec
	RunnerOverruns   *prometheus.CounterVec
	TickDuration     *prometheus.HistogramVec
	ActiveAircraft   prometheus.Gauge
	UpdatesProcessed prometheus.Counter
	ViolationChecks  prometheus.Counter
	CommandsTotal    *prometheus.CounterVec
	AlertsEmitted    *prometheus.CounterVec
}

// NewMetrics constructs and registers all collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		RunnerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atc_runner_failures_total",
			Help: "Total execute() failures caught by a periodic runner.",
		}, []string{"task"}),
		RunnerOverruns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atc_runner_overruns_total",
			Help: "Total tick overruns observed by a periodic runner.",
		}, []string{"task"}),
		TickDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "atc_runner_tick_seconds",
			Help:    "Execution time of a single periodic tick.",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"task"}),
		ActiveAircraft: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "atc_active_aircraft",
			Help: "Number of aircraft currently owned by the orchestrator.",
		}),
		UpdatesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "atc_updates_processed_total",
			Help: "Total bus messages drained by the orchestrator's outer loop.",
		}),
		ViolationChecks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "atc_violation_checks_total",
			Help: "Total pairwise violation checks performed.",
		}),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atc_commands_total",
			Help: "Total controller commands processed, by verb and outcome.",
		}, []string{"verb", "outcome"}),
		AlertsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atc_alerts_emitted_total",
			Help: "Total alerts emitted onto the bus, by severity.",
		}, []string{"severity"}),
	}

	reg.MustRegister(
		m.RunnerFailures, m.RunnerOverruns, m.TickDuration,
		m.ActiveAircraft, m.UpdatesProcessed, m.ViolationChecks,
		m.CommandsTotal, m.AlertsEmitted,
	)
	return m
}

// tracer is the package-level tracer. Until SetTracerProvider is called
// it comes from an SDK provider with no exporter, so spans are created
// but never leave the process.
var tracer trace.Tracer = sdktrace.NewTracerProvider().Tracer("atc-system")

// SetTracerProvider installs tp as the source of the package tracer.
// InitTracer calls it once at startup if ATC_OTEL_ENDPOINT is set;
// otherwise the exporter-less provider above is used.
func SetTracerProvider(tp trace.TracerProvider) {
	tracer = tp.Tracer("atc-system")
}

// StartSpan starts a span named name and returns the derived context and
// the span so callers can set attributes/status and End() it.
func StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name)
}
