// Package liteagent provides a high-level façade over the runner, agent and
// model packages enabling rapid construction of tool-using, multi-agent LLM
// applications. Most applications interact with this package by:
//  1. Building an agent tree (agent.New + AddHandoff, or config.Build from YAML)
//  2. Creating a LiteAgent via New() with the tree's root
//  3. Driving runs asynchronously (Run / RunContinue) or synchronously
//     (RunSync / RunContinueSync)
//
// The façade delegates orchestration to runner.Runner while keeping setup and
// usage ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply a structured logger and a
// metrics recorder.
package liteagent

import (
	"context"

	"github.com/hupe1980/liteagent/agent"
	"github.com/hupe1980/liteagent/core"
	"github.com/hupe1980/liteagent/logging"
	"github.com/hupe1980/liteagent/metrics"
	"github.com/hupe1980/liteagent/runner"
)

// Options configures the LiteAgent instance.
type Options struct {
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger

	// Metrics receives run, tool and transfer measurements. Nil disables
	// instrumentation.
	Metrics *metrics.Recorder

	// ChunkBufferSize sets the channel buffer size for streamed chunks.
	// Larger buffers reduce blocking but increase memory usage.
	ChunkBufferSize int
}

// LiteAgent is the high-level façade bundling an agent tree with its runner.
type LiteAgent struct {
	opts Options
	root *agent.Agent
	run  *runner.Runner
}

// New creates a LiteAgent around the given root agent with optional overrides.
func New(root *agent.Agent, optFns ...func(o *Options)) *LiteAgent {
	opts := Options{
		Logger:          logging.NoOpLogger{},
		ChunkBufferSize: 100,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	r := runner.New(root, func(o *runner.Options) {
		o.Logger = opts.Logger
		o.Metrics = opts.Metrics
		o.ChunkBufferSize = opts.ChunkBufferSize
	})

	return &LiteAgent{opts: opts, root: root, run: r}
}

// Root returns the root agent of the tree.
func (l *LiteAgent) Root() *agent.Agent { return l.root }

// Runner exposes the underlying runner for callers that need its full surface.
func (l *LiteAgent) Runner() *runner.Runner { return l.run }

// Run starts an asynchronous run returning chunk & error channels. The input
// is a plain string, one message, or a slice of messages.
func (l *LiteAgent) Run(ctx context.Context, input any, optFns ...func(o *runner.RunOptions)) (<-chan core.Chunk, <-chan error) {
	return l.run.Run(ctx, input, optFns...)
}

// RunContinue resumes a run parked at a confirmation gate, executing the
// parked calls when approved and recording a denial otherwise.
func (l *LiteAgent) RunContinue(ctx context.Context, approve bool, optFns ...func(o *runner.RunOptions)) (<-chan core.Chunk, <-chan error) {
	return l.run.RunContinue(ctx, approve, optFns...)
}

// RunSync is a synchronous helper that drains the async channels, accumulates
// chunks and returns them with the run's terminal error.
func (l *LiteAgent) RunSync(ctx context.Context, input any, optFns ...func(o *runner.RunOptions)) ([]core.Chunk, error) {
	chunks, errs := l.run.Run(ctx, input, optFns...)
	return collect(ctx, chunks, errs)
}

// RunContinueSync is the synchronous counterpart of RunContinue.
func (l *LiteAgent) RunContinueSync(ctx context.Context, approve bool, optFns ...func(o *runner.RunOptions)) ([]core.Chunk, error) {
	chunks, errs := l.run.RunContinue(ctx, approve, optFns...)
	return collect(ctx, chunks, errs)
}

// SetChatHistory replaces the conversation history and recomputes the current
// agent from the recorded transfers. A non-nil root rebinds the runner to that
// tree.
func (l *LiteAgent) SetChatHistory(messages any, root *agent.Agent) error {
	return l.run.SetChatHistory(messages, root)
}

// AppendMessage appends one message to the history without running the loop.
func (l *LiteAgent) AppendMessage(msg any) error { return l.run.AppendMessage(msg) }

// Messages returns a copy of the conversation history.
func (l *LiteAgent) Messages() []core.Message { return l.run.Messages() }

// CurrentAgent returns the agent that serves the next model turn.
func (l *LiteAgent) CurrentAgent() *agent.Agent { return l.run.CurrentAgent() }

// PendingConfirmation returns the calls parked at the confirmation gate, or
// nil when no run is suspended.
func (l *LiteAgent) PendingConfirmation() []core.FunctionCallMessage {
	return l.run.PendingConfirmation()
}

// collect drains a run's channels until completion, accumulating chunks.
func collect(ctx context.Context, chunks <-chan core.Chunk, errs <-chan error) ([]core.Chunk, error) {
	var collected []core.Chunk

	for {
		select {
		case <-ctx.Done():
			// Context cancelled - return chunks collected so far
			return collected, ctx.Err()

		case chunk, ok := <-chunks:
			if !ok {
				// Chunk channel closed - check for terminal error
				if errs == nil {
					return collected, nil
				}
				return collected, <-errs
			}
			collected = append(collected, chunk)

		case err, ok := <-errs:
			if !ok {
				// Error channel closed without error; keep draining chunks.
				errs = nil
				continue
			}
			if err != nil {
				return collected, err
			}
		}
	}
}
