package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/liteagent/agent"
	"github.com/hupe1980/liteagent/core"
	"github.com/hupe1980/liteagent/internal/util"
	"github.com/hupe1980/liteagent/logging"
	"github.com/hupe1980/liteagent/metrics"
	"github.com/hupe1980/liteagent/model"
	"github.com/hupe1980/liteagent/stream"
	"github.com/hupe1980/liteagent/tool"
	"github.com/hupe1980/liteagent/transcript"
)

// DefaultMaxSteps is the model-call budget applied when a run does not set
// its own.
const DefaultMaxSteps = 20

// DeniedOutput is the output recorded for a confirmation-gated call the
// caller rejected.
const DeniedOutput = "Tool call denied by user."

var (
	// ErrNoPendingConfirmation reports a RunContinue with nothing parked.
	ErrNoPendingConfirmation = errors.New("no pending confirmation")
	// ErrRunInProgress reports a second run started while one is in flight.
	ErrRunInProgress = errors.New("run already in progress")
	// ErrConfirmationPending reports a fresh Run started while a parked
	// confirmation awaits its RunContinue decision.
	ErrConfirmationPending = errors.New("confirmation pending")
)

// Options holds dependency overrides passed to New().
type Options struct {
	// Logger receives structured run events. Defaults to a no-op logger.
	Logger logging.Logger
	// Metrics receives run, tool and transfer measurements. Nil disables
	// instrumentation.
	Metrics *metrics.Recorder
	// ChunkBufferSize sets channel buffering for streamed chunks.
	ChunkBufferSize int
}

// RunOptions configure one run.
type RunOptions struct {
	// MaxSteps limits the number of model calls for this run. Zero means no
	// limit; the default is DefaultMaxSteps.
	MaxSteps int
	// Includes filters the chunk stream by type. Nil passes every chunk; an
	// empty non-nil slice passes none. History commits are unaffected.
	Includes []core.ChunkType
	// RecordTo appends every committed message to the transcript file at this
	// path. Empty disables recording.
	RecordTo string
	// Context is the run context map available to instruction templates and
	// carried to tools.
	Context map[string]any
}

// Runner drives the agent step loop: it owns the conversation history,
// requests model turns for the current agent, folds the streamed events into
// chunks, executes the requested tools and performs agent transfers.
//
// A Runner serves one run at a time; starting a second while one is in flight
// fails with ErrRunInProgress. The accessors are safe for concurrent use.
type Runner struct {
	root    *agent.Agent
	logger  logging.Logger
	metrics *metrics.Recorder
	bufSize int

	mu      sync.Mutex
	current *agent.Agent
	history []core.Message
	pending *pendingTurn
	running bool
}

// pendingTurn is a model turn parked at the confirmation gate: none of its
// calls have executed yet. The gated set marks which call ids await the
// caller's decision.
type pendingTurn struct {
	issuer *agent.Agent
	calls  []core.FunctionCallMessage
	gated  map[string]bool
	opts   RunOptions
	steps  int
}

// New constructs a Runner rooted at the given agent.
func New(root *agent.Agent, optFns ...func(o *Options)) *Runner {
	opts := Options{
		Logger:          logging.NoOpLogger{},
		ChunkBufferSize: 100,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Runner{
		root:    root,
		current: root,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		bufSize: opts.ChunkBufferSize,
	}
}

// Run appends the input to history and drives model turns for the current
// agent until a turn completes the run, a confirmation gate suspends it, the
// step budget runs out or the backend fails.
//
// input is a plain string, a single message, or a slice of messages in any
// accepted shape (see core.NormalizeInput). The chunk channel streams the
// run's normalized output; both channels close when the run ends. A
// suspension for confirmation is a clean close without an error: inspect
// PendingConfirmation and resume with RunContinue.
func (r *Runner) Run(ctx context.Context, input any, optFns ...func(o *RunOptions)) (<-chan core.Chunk, <-chan error) {
	chunkCh := make(chan core.Chunk, r.bufSize)
	errCh := make(chan error, 1)

	opts := RunOptions{MaxSteps: DefaultMaxSteps}
	for _, fn := range optFns {
		fn(&opts)
	}

	msgs, err := core.NormalizeInput(input)
	if err != nil {
		return failRun(chunkCh, errCh, fmt.Errorf("normalize input: %w", err))
	}

	r.mu.Lock()
	switch {
	case r.running:
		err = ErrRunInProgress
	case r.pending != nil:
		err = ErrConfirmationPending
	default:
		r.running = true
	}
	r.mu.Unlock()

	if err != nil {
		return failRun(chunkCh, errCh, err)
	}

	go r.run(ctx, opts, msgs, nil, false, chunkCh, errCh)

	return chunkCh, errCh
}

// RunContinue resumes a run parked at the confirmation gate. With approve
// the parked calls execute as requested; without it the gated calls record
// DeniedOutput instead. Either way the loop then returns to the model, so
// the agent sees the decision and reacts to it.
//
// Option overrides apply on top of the suspended run's options; the consumed
// step count carries over. Calling with nothing parked fails with
// ErrNoPendingConfirmation.
func (r *Runner) RunContinue(ctx context.Context, approve bool, optFns ...func(o *RunOptions)) (<-chan core.Chunk, <-chan error) {
	chunkCh := make(chan core.Chunk, r.bufSize)
	errCh := make(chan error, 1)

	var (
		parked *pendingTurn
		err    error
	)

	r.mu.Lock()
	switch {
	case r.running:
		err = ErrRunInProgress
	case r.pending == nil:
		err = ErrNoPendingConfirmation
	default:
		parked = r.pending
		r.pending = nil
		r.running = true
	}
	r.mu.Unlock()

	if err != nil {
		return failRun(chunkCh, errCh, err)
	}

	opts := parked.opts
	for _, fn := range optFns {
		fn(&opts)
	}

	go r.run(ctx, opts, nil, parked, approve, chunkCh, errCh)

	return chunkCh, errCh
}

// failRun reports a run that could not start.
func failRun(chunkCh chan core.Chunk, errCh chan error, err error) (<-chan core.Chunk, <-chan error) {
	errCh <- err
	close(chunkCh)
	close(errCh)

	return chunkCh, errCh
}

// run is the step loop. It executes in its own goroutine and owns both
// output channels.
func (r *Runner) run(
	ctx context.Context,
	opts RunOptions,
	inputs []core.Message,
	parked *pendingTurn,
	approve bool,
	chunkCh chan<- core.Chunk,
	errCh chan<- error,
) {
	// Release the runner before the channels close so a caller reacting to
	// the closed stream can start the next run immediately.
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()

		close(chunkCh)
		close(errCh)
	}()

	runID := core.NewID()
	limiter := newStepLimiter(opts.MaxSteps)
	curr := r.CurrentAgent()

	outcome := metrics.RunFailed
	defer func() { r.metrics.RecordRun(curr.Name(), outcome, limiter.steps()) }()

	var rec *transcript.Recorder
	if opts.RecordTo != "" {
		var err error
		rec, err = transcript.NewRecorder(opts.RecordTo)
		if err != nil {
			errCh <- fmt.Errorf("open transcript: %w", err)
			return
		}
		defer func() {
			if err := rec.Close(); err != nil {
				r.logger.Warn("runner.transcript.close_failed", "run_id", runID, "error", err.Error())
			}
		}()
	}

	var includes map[core.ChunkType]bool
	if opts.Includes != nil {
		includes = make(map[core.ChunkType]bool, len(opts.Includes))
		for _, kind := range opts.Includes {
			includes[kind] = true
		}
	}

	// emit forwards one chunk through the Includes filter. It reports false
	// when the context ended; the error is already on errCh then.
	emit := func(c core.Chunk) bool {
		if includes != nil && !includes[c.Kind()] {
			return true
		}
		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
			return false
		case chunkCh <- c:
			return true
		}
	}

	if parked != nil {
		limiter.count = parked.steps

		denied := map[string]bool{}
		if !approve {
			denied = parked.gated
		}

		r.logger.Info("runner.run.resumed", "run_id", runID, "agent", parked.issuer.Name(), "approved", approve)

		done, ok := r.executeCalls(ctx, runID, parked.issuer, parked.calls, denied, rec, emit)
		if !ok {
			return
		}
		if done {
			outcome = metrics.RunCompleted
			r.logger.Info("runner.run.completed", "run_id", runID, "agent", parked.issuer.Name(), "steps", limiter.steps())
			return
		}

		curr = r.CurrentAgent()
	} else {
		r.logger.Info("runner.run.start", "run_id", runID, "agent", curr.Name(), "max_steps", opts.MaxSteps)

		for _, msg := range inputs {
			r.commit(runID, msg, rec)
		}
	}

	for {
		if err := limiter.increment(); err != nil {
			outcome = metrics.RunMaxSteps
			r.logger.Warn("runner.run.max_steps", "run_id", runID, "agent", curr.Name(), "max_steps", opts.MaxSteps)
			errCh <- err
			return
		}

		r.logger.Debug("runner.step", "run_id", runID, "agent", curr.Name(), "step", limiter.steps(), "remaining", limiter.remaining())

		req, err := curr.BuildRequest(ctx, r.Messages(), opts.Context)
		if err != nil {
			errCh <- fmt.Errorf("build request: %w", err)
			return
		}

		res, ok := r.streamTurn(ctx, runID, curr, req, rec, emit, errCh)
		if !ok {
			return
		}

		if len(res.Calls) == 0 {
			if curr.CompletionCondition() == agent.CompleteOnCall {
				// Completion must be signaled through task_done; give the
				// agent another turn.
				r.logger.Debug("runner.step.await_task_done", "run_id", runID, "agent", curr.Name())
				continue
			}

			outcome = metrics.RunCompleted
			r.logger.Info("runner.run.completed", "run_id", runID, "agent", curr.Name(), "steps", limiter.steps())

			return
		}

		gated := map[string]bool{}
		for _, call := range res.Calls {
			if t, ok := curr.Tool(call.Name); ok && tool.RequiresConfirmation(t) {
				gated[call.CallID] = true
			}
		}

		if len(gated) > 0 {
			// Nothing from this turn executes until the caller decides; park
			// the whole turn and close cleanly.
			for _, call := range res.Calls {
				if !gated[call.CallID] {
					continue
				}
				r.logger.Info("runner.run.suspended", "run_id", runID, "agent", curr.Name(), "tool", call.Name, "fc_id", call.CallID)
				if !emit(core.RequireConfirmChunk{Call: call}) {
					return
				}
			}

			r.mu.Lock()
			r.pending = &pendingTurn{issuer: curr, calls: res.Calls, gated: gated, opts: opts, steps: limiter.steps()}
			r.mu.Unlock()

			outcome = metrics.RunSuspended

			return
		}

		done, ok := r.executeCalls(ctx, runID, curr, res.Calls, nil, rec, emit)
		if !ok {
			return
		}
		if done {
			outcome = metrics.RunCompleted
			r.logger.Info("runner.run.completed", "run_id", runID, "agent", curr.Name(), "steps", limiter.steps())
			return
		}

		curr = r.CurrentAgent()
	}
}

// streamTurn performs one model call: it forwards the folded chunks and
// commits the resulting assistant message and call records. A stream failure
// discards the partially reassembled turn and ends the run with the error on
// errCh; committed history is retained.
func (r *Runner) streamTurn(
	ctx context.Context,
	runID string,
	curr *agent.Agent,
	req model.Request,
	rec *transcript.Recorder,
	emit func(core.Chunk) bool,
	errCh chan<- error,
) (stream.Result, bool) {
	proc := stream.NewProcessor(func(o *stream.Options) { o.Logger = r.logger })

	start := time.Now()
	var firstAt time.Time

	events, errs := curr.Model().Stream(ctx, req)
	for ev := range events {
		if firstAt.IsZero() {
			firstAt = time.Now()
		}
		for _, c := range proc.Feed(ev) {
			if !emit(c) {
				return stream.Result{}, false
			}
		}
	}
	if err := <-errs; err != nil {
		errCh <- fmt.Errorf("model stream: %w", err)
		return stream.Result{}, false
	}

	res := proc.Finalize()

	var latencyMS int64
	if !firstAt.IsZero() {
		latencyMS = firstAt.Sub(start).Milliseconds()
	}
	res.Message.Meta.LatencyMS = latencyMS

	if res.Usage != nil {
		res.Message.Meta.InputTokens = res.Usage.InputTokens
		res.Message.Meta.OutputTokens = res.Usage.OutputTokens
		r.metrics.RecordUsage(res.Usage.InputTokens, res.Usage.OutputTokens)
	}

	r.metrics.RecordModelLatency(curr.Model().Info().Name, time.Since(start).Seconds())
	r.logger.Debug("runner.model.done", "run_id", runID, "agent", curr.Name(), "finish_reason", res.FinishReason, "latency_ms", latencyMS, "calls", len(res.Calls))

	r.commit(runID, res.Message, rec)
	for _, call := range res.Calls {
		r.commit(runID, call, rec)
	}

	return res, true
}

// executeCalls resolves one turn's calls in arrival order: transfer markers
// switch the current agent, denied calls record DeniedOutput without
// executing, everything else runs against the issuing agent's tool set.
// Every call gets exactly one output before the function returns.
//
// done reports that the issuer finishes on an explicit completion call and
// task_done executed this turn; ok is false when the context ended
// mid-emission.
func (r *Runner) executeCalls(
	ctx context.Context,
	runID string,
	issuer *agent.Agent,
	calls []core.FunctionCallMessage,
	denied map[string]bool,
	rec *transcript.Recorder,
	emit func(core.Chunk) bool,
) (done, ok bool) {
	taskDone := false

	for _, call := range calls {
		switch {
		case denied[call.CallID]:
			r.metrics.RecordToolExecution(call.Name, metrics.OutcomeDenied)
			r.logger.Info("runner.tool.denied", "run_id", runID, "tool", call.Name, "fc_id", call.CallID)
			r.commitOutput(runID, call, DeniedOutput, 0, rec)

			if !emit(core.ToolCallResultChunk{CallID: call.CallID, Name: call.Name, Output: DeniedOutput}) {
				return false, false
			}

		case tool.IsTransfer(call.Name):
			start := time.Now()
			output, target := r.resolveTransfer(ctx, issuer, call)
			r.commitOutput(runID, call, output, time.Since(start).Milliseconds(), rec)

			if !emit(core.ToolCallResultChunk{CallID: call.CallID, Name: call.Name, Output: output}) {
				return false, false
			}

			if target == nil {
				r.logger.Info("runner.transfer.unresolved", "run_id", runID, "agent", issuer.Name(), "fc_id", call.CallID)
				continue
			}

			from := r.CurrentAgent().Name()
			r.setCurrent(target)
			r.commit(runID, core.NewTransferMessage(from, target.Name()), rec)
			r.metrics.RecordTransfer(from, target.Name())
			r.logger.Info("runner.transfer", "run_id", runID, "from", from, "to", target.Name())

			if !emit(core.TransferChunk{From: from, To: target.Name()}) {
				return false, false
			}

		default:
			start := time.Now()
			result, err := issuer.ExecuteTool(tool.ContextWithCallID(ctx, call.CallID), call.Name, call.Arguments)

			var output string
			if err != nil {
				output = err.Error()
				r.metrics.RecordToolExecution(call.Name, metrics.OutcomeError)
				r.logger.Warn("runner.tool.failed", "run_id", runID, "tool", call.Name, "fc_id", call.CallID, "error", err.Error())
			} else {
				output = formatOutput(result)
				r.metrics.RecordToolExecution(call.Name, metrics.OutcomeOK)
				if call.Name == tool.TaskDoneName {
					taskDone = true
				}
			}

			r.commitOutput(runID, call, output, time.Since(start).Milliseconds(), rec)

			if !emit(core.ToolCallResultChunk{CallID: call.CallID, Name: call.Name, Output: output}) {
				return false, false
			}
		}
	}

	return taskDone && issuer.CompletionCondition() == agent.CompleteOnCall, true
}

// resolveTransfer produces the transfer acknowledgment or diagnostic through
// the marker tool and resolves the target. The tool body owns the output
// wording; only the runner moves control. An unresolved transfer returns a
// nil target and the current agent stays in place.
func (r *Runner) resolveTransfer(ctx context.Context, issuer *agent.Agent, call core.FunctionCallMessage) (string, *agent.Agent) {
	result, err := issuer.ExecuteTool(tool.ContextWithCallID(ctx, call.CallID), call.Name, call.Arguments)
	if err != nil {
		r.metrics.RecordToolExecution(call.Name, metrics.OutcomeError)
		return err.Error(), nil
	}

	output := formatOutput(result)
	r.metrics.RecordToolExecution(call.Name, metrics.OutcomeOK)

	switch call.Name {
	case tool.TransferToParentName:
		return output, issuer.Parent()
	case tool.TransferToAgentName:
		args, err := util.ParseArguments(call.Arguments)
		if err != nil {
			return output, nil
		}
		name, _ := args["name"].(string)
		for _, child := range issuer.Handoffs() {
			if child.Name() == name {
				return output, child
			}
		}
		return output, nil
	default:
		return output, nil
	}
}

// commit appends one message to history and mirrors it to the transcript.
// Sink failures are logged, never rolled back.
func (r *Runner) commit(runID string, msg core.Message, rec *transcript.Recorder) {
	r.mu.Lock()
	r.history = append(r.history, msg)
	r.mu.Unlock()

	if rec == nil {
		return
	}
	if err := rec.RecordMessage(msg); err != nil {
		r.logger.Warn("runner.transcript.write_failed", "run_id", runID, "error", err.Error())
	}
}

// commitOutput commits the output record resolving a call, stamped with the
// execution time.
func (r *Runner) commitOutput(runID string, call core.FunctionCallMessage, output string, execMS int64, rec *transcript.Recorder) {
	msg := core.NewFunctionCallOutputMessage(call.CallID, output)
	msg.Meta.ExecutionTimeMS = execMS
	r.commit(runID, msg, rec)
}

func (r *Runner) setCurrent(a *agent.Agent) {
	r.mu.Lock()
	r.current = a
	r.mu.Unlock()
}

// SetChatHistory replaces the history wholesale and recomputes the current
// agent with one linear pass from the root: a transfer_to_agent call whose
// name resolves in the scan position's subtree advances there, a
// transfer_to_parent call moves up when a parent exists, and unresolvable
// references are skipped. Any parked confirmation is dropped with the old
// history.
//
// messages accepts the same shapes as Run input; nil means an empty history.
// A non-nil root rebinds the runner to that agent tree; nil keeps the
// current root.
func (r *Runner) SetChatHistory(messages any, root *agent.Agent) error {
	var msgs []core.Message
	if messages != nil {
		var err error
		msgs, err = core.NormalizeInput(messages)
		if err != nil {
			return fmt.Errorf("normalize history: %w", err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return ErrRunInProgress
	}

	if root == nil {
		root = r.root
	}

	current := root
	for _, msg := range msgs {
		call, ok := msg.(core.FunctionCallMessage)
		if !ok {
			continue
		}

		switch call.Name {
		case tool.TransferToAgentName:
			args, err := util.ParseArguments(call.Arguments)
			if err != nil {
				r.logger.Debug("runner.replay.transfer_skipped", "fc_id", call.CallID, "error", err.Error())
				continue
			}
			name, _ := args["name"].(string)
			target := current.FindAgent(name)
			if target == nil {
				r.logger.Debug("runner.replay.transfer_skipped", "fc_id", call.CallID, "target", name)
				continue
			}
			current = target
		case tool.TransferToParentName:
			parent := current.Parent()
			if parent == nil {
				r.logger.Debug("runner.replay.transfer_skipped", "fc_id", call.CallID, "target", "parent")
				continue
			}
			current = parent
		}
	}

	r.root = root
	r.current = current
	r.history = append([]core.Message(nil), msgs...)
	r.pending = nil

	r.logger.Debug("runner.history.replaced", "messages", len(msgs), "agent", current.Name())

	return nil
}

// AppendMessage normalizes and appends the given message to history without
// running the loop. An assistant map carrying tool_calls appends the split
// records in order. Transfer records appended here are informational only;
// the current agent moves through runs and SetChatHistory.
func (r *Runner) AppendMessage(msg any) error {
	msgs, err := core.NormalizeInput(msg)
	if err != nil {
		return fmt.Errorf("normalize message: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return ErrRunInProgress
	}

	r.history = append(r.history, msgs...)

	return nil
}

// Messages returns a copy of the conversation history.
func (r *Runner) Messages() []core.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]core.Message, len(r.history))
	copy(out, r.history)

	return out
}

// CurrentAgent returns the agent that serves the next model turn.
func (r *Runner) CurrentAgent() *agent.Agent {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.current
}

// PendingConfirmation returns the parked calls awaiting a RunContinue
// decision, or nil when the runner is not suspended.
func (r *Runner) PendingConfirmation() []core.FunctionCallMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pending == nil {
		return nil
	}

	out := make([]core.FunctionCallMessage, 0, len(r.pending.gated))
	for _, call := range r.pending.calls {
		if r.pending.gated[call.CallID] {
			out = append(out, call)
		}
	}

	return out
}

// formatOutput serializes a tool result the way the model reads it back:
// strings pass through, everything else renders as JSON.
func formatOutput(v any) string {
	switch out := v.(type) {
	case nil:
		return ""
	case string:
		return out
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
