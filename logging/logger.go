package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"runtime"
	"time"
)

// LogLevel selects the minimum severity a logger emits. It is deliberately
// decoupled from slog.Level so callers configure levels without importing slog.
type LogLevel int

const (
	// LogLevelDebug emits everything.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo emits info and above.
	LogLevelInfo
	// LogLevelWarn emits warnings and errors only.
	LogLevelWarn
	// LogLevelError emits errors only.
	LogLevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

// String returns the upper case name of the level.
func (l LogLevel) String() string {
	if l < LogLevelDebug || l > LogLevelError {
		return "UNKNOWN"
	}
	return levelNames[l]
}

func slogLevel(l LogLevel) slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger is the logging interface accepted throughout the module. Any
// structured logger with leveled key/value methods can satisfy it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

var (
	_ Logger = (*SlogAdapter)(nil)
	_ Logger = (*LiteAgentLogger)(nil)
	_ Logger = NoOpLogger{}
)

// SlogAdapter exposes a *slog.Logger as a Logger. The embedded logger's
// leveled methods already match the interface, so no wrapping is needed.
type SlogAdapter struct {
	*slog.Logger
}

// NewSlogAdapter wraps an existing *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NewDefaultSlogLogger wraps the process wide slog.Default().
func NewDefaultSlogLogger() Logger {
	return NewSlogAdapter(slog.Default())
}

// NoOpLogger drops every message. It is the default wherever no logger was
// configured.
type NoOpLogger struct{}

func (NoOpLogger) Debug(string, ...any) {}
func (NoOpLogger) Info(string, ...any)  {}
func (NoOpLogger) Warn(string, ...any)  {}
func (NoOpLogger) Error(string, ...any) {}

// LiteAgentLogger is a contextual logger built on slog. The With* methods
// return copies, so a shared base logger can be specialized per run or per
// component without synchronization.
type LiteAgentLogger struct {
	logger    *slog.Logger
	level     LogLevel
	context   map[string]any
	component string
	runID     string
	agentName string
}

// LoggerConfig controls how NewLogger assembles a LiteAgentLogger.
type LoggerConfig struct {
	Level       LogLevel
	Format      string // json or text
	Output      io.Writer
	AddSource   bool
	Component   string
	RunID       string
	AgentName   string
	CustomAttrs map[string]any
}

// DefaultLoggerConfig returns the stock configuration: info level JSON on
// stdout with source locations.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		Level:     LogLevelInfo,
		Format:    "json",
		Output:    os.Stdout,
		AddSource: true,
	}
}

// NewLogger builds a LiteAgentLogger from cfg. A nil cfg selects
// DefaultLoggerConfig. CustomAttrs seed the contextual attributes attached to
// every entry.
func NewLogger(cfg *LoggerConfig) *LiteAgentLogger {
	if cfg == nil {
		cfg = DefaultLoggerConfig()
	}

	opts := &slog.HandlerOptions{Level: slogLevel(cfg.Level), AddSource: cfg.AddSource}

	var handler slog.Handler

	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(cfg.Output, opts)
	default:
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}

	ctx := maps.Clone(cfg.CustomAttrs)
	if ctx == nil {
		ctx = map[string]any{}
	}

	return &LiteAgentLogger{
		logger:    slog.New(handler),
		level:     cfg.Level,
		context:   ctx,
		component: cfg.Component,
		runID:     cfg.RunID,
		agentName: cfg.AgentName,
	}
}

// NewSlogLogger is a shorthand for NewLogger with the three settings callers
// change most often. An empty format keeps the JSON default.
func NewSlogLogger(level LogLevel, format string, addSource bool) *LiteAgentLogger {
	cfg := DefaultLoggerConfig()
	cfg.Level = level
	cfg.AddSource = addSource

	if format != "" {
		cfg.Format = format
	}

	return NewLogger(cfg)
}

func (l *LiteAgentLogger) clone() *LiteAgentLogger {
	nl := *l

	nl.context = maps.Clone(l.context)
	if nl.context == nil {
		nl.context = map[string]any{}
	}

	return &nl
}

// WithContext returns a copy that attaches key/value to every entry.
func (l *LiteAgentLogger) WithContext(key string, value any) *LiteAgentLogger {
	nl := l.clone()
	nl.context[key] = value

	return nl
}

// WithComponent returns a copy tagged with a logical component such as
// runner, agent or model.
func (l *LiteAgentLogger) WithComponent(c string) *LiteAgentLogger {
	nl := l.clone()
	nl.component = c

	return nl
}

// WithRun returns a copy tagged with the run and agent identifiers.
func (l *LiteAgentLogger) WithRun(runID, agentName string) *LiteAgentLogger {
	nl := l.clone()
	nl.runID = runID
	nl.agentName = agentName

	return nl
}

func (l *LiteAgentLogger) baseAttrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, len(l.context)+3)

	if l.component != "" {
		attrs = append(attrs, slog.String("component", l.component))
	}

	if l.runID != "" {
		attrs = append(attrs, slog.String("run_id", l.runID))
	}

	if l.agentName != "" {
		attrs = append(attrs, slog.String("agent", l.agentName))
	}

	for k, v := range l.context {
		attrs = append(attrs, slog.Any(k, v))
	}

	return attrs
}

func (l *LiteAgentLogger) log(lvl LogLevel, msg string, args []any) {
	if lvl < l.level {
		return
	}

	attrs := append(l.baseAttrs(), argsToAttrs(args)...)
	l.logger.LogAttrs(context.Background(), slogLevel(lvl), msg, attrs...)
}

// argsToAttrs converts alternating key/value arguments into attributes the
// way slog does. A value without a string key, or a key without a value, is
// kept under !BADKEY rather than silently dropped.
func argsToAttrs(args []any) []slog.Attr {
	attrs := make([]slog.Attr, 0, (len(args)+1)/2)

	for i := 0; i < len(args); {
		key, ok := args[i].(string)

		switch {
		case !ok:
			attrs = append(attrs, slog.Any("!BADKEY", args[i]))
			i++
		case i == len(args)-1:
			attrs = append(attrs, slog.String("!BADKEY", key))
			i++
		default:
			attrs = append(attrs, slog.Any(key, args[i+1]))
			i += 2
		}
	}

	return attrs
}

// Debug logs at debug level.
func (l *LiteAgentLogger) Debug(msg string, args ...any) { l.log(LogLevelDebug, msg, args) }

// Info logs at info level.
func (l *LiteAgentLogger) Info(msg string, args ...any) { l.log(LogLevelInfo, msg, args) }

// Warn logs at warn level.
func (l *LiteAgentLogger) Warn(msg string, args ...any) { l.log(LogLevelWarn, msg, args) }

// Error logs at error level.
func (l *LiteAgentLogger) Error(msg string, args ...any) { l.log(LogLevelError, msg, args) }

// ErrorWithStack logs err together with a snapshot of the current goroutine's
// stack.
func (l *LiteAgentLogger) ErrorWithStack(err error, msg string, args ...any) {
	if LogLevelError < l.level {
		return
	}

	stack := make([]byte, 4096)
	n := runtime.Stack(stack, false)

	attrs := l.baseAttrs()
	attrs = append(attrs,
		slog.String("error", err.Error()),
		slog.String("error_type", fmt.Sprintf("%T", err)),
		slog.String("stack_trace", string(stack[:n])),
	)
	attrs = append(attrs, argsToAttrs(args)...)

	l.logger.LogAttrs(context.Background(), slog.LevelError, msg, attrs...)
}

func outcome(success bool, done, failed string) (slog.Level, string) {
	if success {
		return slog.LevelInfo, done
	}

	return slog.LevelError, failed
}

// LogToolCall records one tool invocation with its duration and result.
func (l *LiteAgentLogger) LogToolCall(tool string, dur time.Duration, success bool, err error) {
	attrs := l.baseAttrs()
	attrs = append(attrs, slog.String("tool_name", tool), slog.Duration("duration", dur), slog.Bool("success", success))

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}

	level, msg := outcome(success, "tool.call.completed", "tool.call.failed")
	l.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// LogModelCall records one model call with latency and token usage.
func (l *LiteAgentLogger) LogModelCall(model string, tokens int, dur time.Duration, success bool, err error) {
	attrs := l.baseAttrs()
	attrs = append(attrs, slog.String("model", model), slog.Int("token_count", tokens), slog.Duration("duration", dur), slog.Bool("success", success))

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}

	level, msg := outcome(success, "model.call.completed", "model.call.failed")
	l.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// LogTransfer records a handoff between two agents. resolved reports whether
// the target was found.
func (l *LiteAgentLogger) LogTransfer(from, to string, resolved bool) {
	attrs := l.baseAttrs()
	attrs = append(attrs, slog.String("from", from), slog.String("to", to), slog.Bool("resolved", resolved))

	msg := "agent.transfer.completed"
	if !resolved {
		msg = "agent.transfer.unresolved"
	}

	l.logger.LogAttrs(context.Background(), slog.LevelInfo, msg, attrs...)
}

// LogRun records the aggregate outcome of a whole run.
func (l *LiteAgentLogger) LogRun(agent string, steps int, dur time.Duration, success bool, err error) {
	attrs := l.baseAttrs()
	attrs = append(attrs, slog.String("agent", agent), slog.Int("step_count", steps), slog.Duration("duration", dur), slog.Bool("success", success))

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}

	level, msg := outcome(success, "run.completed", "run.failed")
	l.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// StartTimer returns a func that logs the elapsed time for op when called,
// typically via defer.
func (l *LiteAgentLogger) StartTimer(op string) func() {
	start := time.Now()

	return func() {
		l.Info("operation.completed", "operation", op, "duration", time.Since(start))
	}
}
