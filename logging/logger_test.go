package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLiteAgentLoggerkeyValueArgs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf, Component: "runner"})

	logger.Info("runner.run.start", "run_id", "r1", "max_steps", 20)

	entry := logLine(t, &buf)
	assert.Equal(t, "runner.run.start", entry["msg"])
	assert.Equal(t, "r1", entry["run_id"])
	assert.Equal(t, float64(20), entry["max_steps"])
	assert.Equal(t, "runner", entry["component"])
}

func TestLiteAgentLoggerDanglingArg(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf})

	logger.Info("event", "orphan")

	entry := logLine(t, &buf)
	assert.Equal(t, "orphan", entry["!BADKEY"])
}

func TestLiteAgentLoggerNonStringKey(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf})

	logger.Info("event", 42, "answer", "question")

	entry := logLine(t, &buf)
	assert.Equal(t, float64(42), entry["!BADKEY"])
	assert.Equal(t, "question", entry["answer"])
}

func TestLiteAgentLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LogLevelWarn, Format: "json", Output: &buf})

	logger.Debug("hidden")
	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn("visible")
	assert.NotZero(t, buf.Len())
}

func TestWithRunAttachesIdentifiers(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf})

	logger.WithRun("r7", "Weather").Info("step")

	entry := logLine(t, &buf)
	assert.Equal(t, "r7", entry["run_id"])
	assert.Equal(t, "Weather", entry["agent"])
}

func TestCustomAttrsSeedContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{
		Level:       LogLevelInfo,
		Format:      "json",
		Output:      &buf,
		CustomAttrs: map[string]any{"env": "test"},
	})

	logger.Info("event")

	entry := logLine(t, &buf)
	assert.Equal(t, "test", entry["env"])
}

func TestLogToolCall(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf})

	logger.LogToolCall("get_weather", 5*time.Millisecond, false, errors.New("boom"))

	entry := logLine(t, &buf)
	assert.Equal(t, "tool.call.failed", entry["msg"])
	assert.Equal(t, "get_weather", entry["tool_name"])
	assert.Equal(t, false, entry["success"])
	assert.Equal(t, "boom", entry["error"])
}

func TestErrorWithStackIncludesTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf})

	logger.ErrorWithStack(errors.New("boom"), "tool.call.panic")

	entry := logLine(t, &buf)
	assert.Equal(t, "boom", entry["error"])
	assert.Contains(t, entry["stack_trace"], "goroutine")
}

func TestNoOpLoggerImplementsLogger(t *testing.T) {
	var _ Logger = NoOpLogger{}
	var _ Logger = &LiteAgentLogger{}

	assert.NotPanics(t, func() {
		NoOpLogger{}.Info("ignored", "k", "v")
	})
}
