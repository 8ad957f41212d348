// Package metrics exposes Prometheus instrumentation for runs, tool
// executions, transfers and model usage. A nil *Recorder is a valid no-op, so
// callers can thread one through unconditionally.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run outcome label values.
const (
	RunCompleted = "completed"
	RunSuspended = "suspended"
	RunFailed    = "failed"
	RunMaxSteps  = "max_steps"
)

// Tool execution outcome label values.
const (
	OutcomeOK     = "ok"
	OutcomeError  = "error"
	OutcomeDenied = "denied"
)

// Options configures a Recorder.
type Options struct {
	// Registerer receives the collectors. Defaults to the global registerer.
	Registerer prometheus.Registerer
}

// Recorder bundles the collectors the runner reports into.
type Recorder struct {
	runsTotal      *prometheus.CounterVec
	runSteps       *prometheus.HistogramVec
	toolExecutions *prometheus.CounterVec
	transfersTotal *prometheus.CounterVec
	tokensTotal    *prometheus.CounterVec
	modelLatency   *prometheus.HistogramVec
}

// NewRecorder registers the collectors and returns the recorder. Registering
// two recorders on the same registerer panics with a duplicate-collector
// error, as usual for Prometheus; use separate registerers for separate
// recorders.
func NewRecorder(optFns ...func(o *Options)) *Recorder {
	opts := Options{
		Registerer: prometheus.DefaultRegisterer,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	factory := promauto.With(opts.Registerer)

	return &Recorder{
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "liteagent_runs_total",
				Help: "Total number of runs by agent and terminal outcome",
			},
			[]string{"agent", "outcome"},
		),
		runSteps: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "liteagent_run_steps",
				Help:    "Model calls consumed per run",
				Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34},
			},
			[]string{"agent"},
		),
		toolExecutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "liteagent_tool_executions_total",
				Help: "Total number of tool executions by tool and outcome",
			},
			[]string{"tool", "outcome"},
		),
		transfersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "liteagent_transfers_total",
				Help: "Total number of resolved agent transfers",
			},
			[]string{"from", "to"},
		),
		tokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "liteagent_tokens_total",
				Help: "Token usage reported by model backends",
			},
			[]string{"direction"},
		),
		modelLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "liteagent_model_latency_seconds",
				Help:    "Model stream duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model"},
		),
	}
}

// RecordRun records a finished or suspended run with its step count.
func (r *Recorder) RecordRun(agent, outcome string, steps int) {
	if r == nil {
		return
	}
	r.runsTotal.WithLabelValues(agent, outcome).Inc()
	r.runSteps.WithLabelValues(agent).Observe(float64(steps))
}

// RecordToolExecution records one tool execution.
func (r *Recorder) RecordToolExecution(tool, outcome string) {
	if r == nil {
		return
	}
	r.toolExecutions.WithLabelValues(tool, outcome).Inc()
}

// RecordTransfer records a resolved agent transfer.
func (r *Recorder) RecordTransfer(from, to string) {
	if r == nil {
		return
	}
	r.transfersTotal.WithLabelValues(from, to).Inc()
}

// RecordUsage records backend-reported token usage for one turn.
func (r *Recorder) RecordUsage(inputTokens, outputTokens int64) {
	if r == nil {
		return
	}
	r.tokensTotal.WithLabelValues("input").Add(float64(inputTokens))
	r.tokensTotal.WithLabelValues("output").Add(float64(outputTokens))
}

// RecordModelLatency records the duration of one model stream.
func (r *Recorder) RecordModelLatency(model string, seconds float64) {
	if r == nil {
		return
	}
	r.modelLatency.WithLabelValues(model).Observe(seconds)
}
