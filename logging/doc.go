// Package logging provides a minimal logging interface and adapters for LiteAgent.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the runner, agents and model backends use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - LiteAgentLogger carrying run, agent and component context plus helpers
//     for tool, model, transfer and run events
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	r := runner.New(root, func(o *runner.Options) { o.Logger = logger })
//
// The design intentionally keeps the interface minimal to avoid vendor lock-in
// while supporting structured logging where available.
package logging
