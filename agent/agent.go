package agent

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/hupe1980/liteagent/core"
	"github.com/hupe1980/liteagent/internal/util"
	"github.com/hupe1980/liteagent/logging"
	"github.com/hupe1980/liteagent/model"
	"github.com/hupe1980/liteagent/tool"
)

// CompletionCondition controls when the runner considers an agent's task done.
type CompletionCondition string

const (
	// CompleteOnStop ends a run on the first assistant turn without tool calls.
	CompleteOnStop CompletionCondition = "stop"
	// CompleteOnCall ends a run only once the agent has called task_done.
	CompleteOnCall CompletionCondition = "call"
)

// taskDoneGuidance is appended to the system prompt when the agent finishes on
// an explicit completion call.
const taskDoneGuidance = "\n\nWhen you have completed your assigned task, call the task_done function to signal completion."

// Options configures an Agent instance.
//
// Use functional options with New to override defaults.
type Options struct {
	// Instruction overrides the static instructions passed to New, e.g. with a
	// dynamic provider via NewInstructionFromFunc.
	Instruction Instruction
	// Tools are registered in order at construction.
	Tools []tool.Tool
	// Handoffs wires child agents; equivalent to calling AddHandoff for each.
	Handoffs []*Agent
	// CompletionCondition defaults to CompleteOnStop.
	CompletionCondition CompletionCondition
	// MessageTransform rewrites the outgoing payload before each model request.
	MessageTransform Transform
	// Logger receives structured agent events. Defaults to a no-op logger.
	Logger logging.Logger
}

// Agent couples a language model with instructions, a tool registry and an
// optional handoff hierarchy.
//
// Agents form a tree: AddHandoff wires a child under a parent and enforces a
// single-parent invariant. The declared control-flow tools (transfer_to_agent,
// transfer_to_parent, task_done) are derived from the current hierarchy and
// completion condition on every request, so a roster change is immediately
// visible to the model.
//
// Hierarchy wiring is expected to happen before runs start; the accessors are
// goroutine-safe for the read-heavy steady state.
type Agent struct {
	name        string
	instruction Instruction
	llm         model.Model
	completion  CompletionCondition
	transform   Transform
	logger      logging.Logger

	mu        sync.Mutex
	tools     []tool.Tool // registration order
	handoffs  []*Agent
	parent    *Agent
}

// New creates an agent with sensible defaults: no tools, no handoffs and the
// CompleteOnStop completion condition.
//
// Parameters:
//   - name: agent name, used in the system prompt and for transfer targeting
//   - instructions: static instruction text; may contain template actions
//     rendered against the run context before each request
//   - llm: language model implementation for text generation
func New(name, instructions string, llm model.Model, optFns ...func(o *Options)) *Agent {
	opts := Options{
		Instruction:         NewInstructionFromText(instructions),
		CompletionCondition: CompleteOnStop,
		Logger:              logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	a := &Agent{
		name:        name,
		instruction: opts.Instruction,
		llm:         llm,
		completion:  opts.CompletionCondition,
		transform:   opts.MessageTransform,
		logger:      opts.Logger,
	}

	a.RegisterTools(opts.Tools...)

	for _, child := range opts.Handoffs {
		if err := a.AddHandoff(child); err != nil {
			a.logger.Warn("agent.handoff.rejected", "agent", name, "error", err.Error())
		}
	}

	return a
}

// Name returns the agent's name.
func (a *Agent) Name() string { return a.name }

// Model returns the language model instance.
func (a *Agent) Model() model.Model { return a.llm }

// CompletionCondition returns the agent's completion condition.
func (a *Agent) CompletionCondition() CompletionCondition { return a.completion }

// RegisterTool adds a tool to the agent's capability set. Registering a tool
// with an already-used name replaces the previous one in place.
//
// Example:
//
//	weatherTool := tool.NewFunctionTool("get_weather", "Get weather for a location", schema, weatherFunc)
//	agent.RegisterTool(weatherTool)
func (a *Agent) RegisterTool(t tool.Tool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, existing := range a.tools {
		if existing.Name() == t.Name() {
			a.tools[i] = t
			return
		}
	}
	a.tools = append(a.tools, t)
}

// RegisterTools adds multiple tools to the agent's capability set.
func (a *Agent) RegisterTools(tools ...tool.Tool) {
	for _, t := range tools {
		a.RegisterTool(t)
	}
}

// HasTool checks whether a tool with the given name is in the effective set,
// including the derived control-flow tools.
func (a *Agent) HasTool(name string) bool {
	_, exists := a.Tool(name)
	return exists
}

// Tool retrieves a tool from the effective set by name.
//
// Returns the tool and true if found, nil and false otherwise.
func (a *Agent) Tool(name string) (tool.Tool, bool) {
	for _, t := range a.Tools() {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// Tools returns the agent's effective tool set: registered tools in
// registration order, followed by the control-flow tools derived from the
// current hierarchy and completion condition.
func (a *Agent) Tools() []tool.Tool {
	a.mu.Lock()
	tools := append([]tool.Tool(nil), a.tools...)
	handoffs := append([]*Agent(nil), a.handoffs...)
	parent := a.parent
	a.mu.Unlock()

	if len(handoffs) > 0 {
		names := make([]string, len(handoffs))
		for i, h := range handoffs {
			names[i] = h.name
		}
		tools = append(tools, tool.NewTransferToAgent(names...))
	}

	if parent != nil {
		tools = append(tools, tool.NewTransferToParent(true))
	}

	if a.completion == CompleteOnCall {
		tools = append(tools, tool.NewTaskDone())
	}

	return tools
}

// Agent Hierarchy Management
//
// The following methods support building multi-agent systems where a parent
// delegates to children via the transfer tools.

// AddHandoff wires child as a transfer target of this agent and records this
// agent as the child's parent.
//
// It rejects nil children, self-handoffs, duplicate names among the current
// handoffs, children already owned by a different parent, and handoffs that
// would close a cycle through the parent chain.
func (a *Agent) AddHandoff(child *Agent) error {
	if child == nil {
		return fmt.Errorf("handoff agent is nil")
	}
	if child == a {
		return fmt.Errorf("agent %q cannot hand off to itself", a.name)
	}

	// A handoff to an ancestor would make the parent chain circular.
	for anc := a; anc != nil; anc = anc.Parent() {
		if anc == child {
			return fmt.Errorf("handoff to %q would create a cycle", child.name)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, existing := range a.handoffs {
		if existing.name == child.name {
			return fmt.Errorf("handoff %q already registered", child.name)
		}
	}

	if p := child.Parent(); p != nil && p != a {
		return fmt.Errorf("agent %q already has parent %q", child.name, p.name)
	}

	child.setParent(a)
	a.handoffs = append(a.handoffs, child)

	return nil
}

// setParent sets the internal parent reference.
func (a *Agent) setParent(p *Agent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.parent = p
}

// Parent returns the parent agent, or nil for a root agent.
func (a *Agent) Parent() *Agent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.parent
}

// Handoffs returns a copy of the current handoff targets for safe iteration.
func (a *Agent) Handoffs() []*Agent {
	a.mu.Lock()
	defer a.mu.Unlock()
	result := make([]*Agent, len(a.handoffs))
	copy(result, a.handoffs)
	return result
}

// FindAgent performs a depth-first search over the subtree rooted at this
// agent (including itself), returning the first agent whose name matches.
// Returns nil if no match is found.
func (a *Agent) FindAgent(name string) *Agent {
	if a.name == name {
		return a
	}

	for _, child := range a.Handoffs() {
		if found := child.FindAgent(name); found != nil {
			return found
		}
	}

	return nil
}

// Root walks the parent chain up to the tree's root agent.
func (a *Agent) Root() *Agent {
	root := a
	for {
		p := root.Parent()
		if p == nil {
			return root
		}
		root = p
	}
}

// BuildRequest renders the model request for one step: the system prompt from
// the agent's instructions, the conversation payload derived from history and
// the effective tool declarations.
//
// data is the run context map used for template rendering; the agent's name is
// always available as {{.name}}. Transfer records are informational and never
// included in the payload. When a message transform is configured it sees the
// payload after that projection.
func (a *Agent) BuildRequest(ctx context.Context, history []core.Message, data map[string]any) (model.Request, error) {
	instructions, err := a.instruction.Resolve(ctx)
	if err != nil {
		return model.Request{}, fmt.Errorf("resolve instructions: %w", err)
	}

	templateData := map[string]any{"name": a.name}
	for k, v := range data {
		templateData[k] = v
	}

	rendered, err := util.RenderTemplate(instructions, templateData)
	if err != nil {
		return model.Request{}, fmt.Errorf("render instructions: %w", err)
	}

	system := fmt.Sprintf("You are %s. %s", a.name, rendered)
	if a.completion == CompleteOnCall {
		system += taskDoneGuidance
	}

	messages := make([]core.Message, 0, len(history))
	for _, msg := range history {
		if _, ok := msg.(core.TransferMessage); ok {
			continue
		}
		messages = append(messages, msg)
	}

	if a.transform != nil {
		messages = a.transform(messages)
	}

	tools := a.Tools()
	defs := make([]model.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}

	return model.Request{
		System:   system,
		Messages: messages,
		Tools:    defs,
	}, nil
}

// ExecuteTool looks up a tool in the effective set, parses the serialized
// argument JSON and invokes the tool. Panics inside the tool are recovered
// into errors so a misbehaving implementation cannot take down the run loop.
func (a *Agent) ExecuteTool(ctx context.Context, name, arguments string) (any, error) {
	impl, ok := a.Tool(name)
	if !ok {
		return nil, fmt.Errorf("tool %s not found", name)
	}

	args, err := util.ParseArguments(arguments)
	if err != nil {
		return nil, &tool.ToolError{
			Tool:    name,
			Message: err.Error(),
			Code:    "VALIDATION_ERROR",
		}
	}

	var result any
	func() { // panic safety
		defer func() {
			if r := recover(); r != nil {
				err = panicError(r)
				a.logger.Error("agent.tool.panic", "agent", a.name, "tool", name, "recover", r)
			}
		}()
		result, err = impl.Call(ctx, args)
	}()

	return result, err
}

// panicError converts a recovered panic value to an error without losing the stack.
func panicError(r any) error { return &panicErr{val: r, stack: debug.Stack()} }

type panicErr struct {
	val   any
	stack []byte
}

func (p *panicErr) Error() string { return fmt.Sprintf("panic recovered: %v", p.val) }
