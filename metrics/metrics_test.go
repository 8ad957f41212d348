package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatherNames(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	sums := make(map[string]float64)
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				sums[family.GetName()] += metric.GetCounter().GetValue()
			case metric.GetHistogram() != nil:
				sums[family.GetName()] += float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}
	return sums
}

func TestRecorder(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	rec := NewRecorder(func(o *Options) {
		o.Registerer = reg
	})

	rec.RecordRun("MainAgent", RunCompleted, 3)
	rec.RecordRun("MainAgent", RunFailed, 1)
	rec.RecordToolExecution("get_weather", OutcomeOK)
	rec.RecordToolExecution("get_weather", OutcomeError)
	rec.RecordTransfer("MainAgent", "WeatherAgent")
	rec.RecordUsage(120, 45)
	rec.RecordModelLatency("gpt-4.1", 0.42)

	sums := gatherNames(t, reg)
	assert.Equal(t, 2.0, sums["liteagent_runs_total"])
	assert.Equal(t, 2.0, sums["liteagent_run_steps"]) // two observations
	assert.Equal(t, 2.0, sums["liteagent_tool_executions_total"])
	assert.Equal(t, 1.0, sums["liteagent_transfers_total"])
	assert.Equal(t, 165.0, sums["liteagent_tokens_total"])
	assert.Equal(t, 1.0, sums["liteagent_model_latency_seconds"])
}

func TestNilRecorderIsNoOp(t *testing.T) {
	var rec *Recorder

	assert.NotPanics(t, func() {
		rec.RecordRun("MainAgent", RunCompleted, 1)
		rec.RecordToolExecution("get_weather", OutcomeOK)
		rec.RecordTransfer("a", "b")
		rec.RecordUsage(1, 2)
		rec.RecordModelLatency("gpt-4.1", 0.1)
	})
}
