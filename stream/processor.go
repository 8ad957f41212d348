package stream

import (
	"strings"

	"github.com/hupe1980/liteagent/core"
	"github.com/hupe1980/liteagent/logging"
	"github.com/hupe1980/liteagent/model"
)

// Options configures a Processor.
type Options struct {
	// Logger receives diagnostics about malformed fragments. Defaults to the
	// NoOpLogger.
	Logger logging.Logger
}

// Processor folds the raw event stream of one model call into normalized
// chunks and, at the end, into finalized messages. A Processor serves exactly
// one stream; create a fresh one per model call.
//
// Content deltas are concatenated in arrival order. Tool call argument
// fragments are buffered per call, keyed by the backend's fragment index, and
// never interleave across calls. A call is emitted as a ToolCallChunk once
// the backend moves on to the next call or the stream finishes. Calls whose
// fragments carry no id get a synthesized one so downstream pairing of call
// and output always works.
type Processor struct {
	logger logging.Logger

	content      strings.Builder
	open         *callState
	done         []*callState
	byIndex      map[int]*callState
	usage        *core.Usage
	finishReason string
	finished     bool
}

type callState struct {
	index int
	id    string
	name  string
	args  strings.Builder
}

// NewProcessor creates a Processor for a single model stream.
func NewProcessor(optFns ...func(o *Options)) *Processor {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Processor{
		logger:  opts.Logger,
		byIndex: map[int]*callState{},
	}
}

// Feed folds one raw event and returns the normalized chunks it produced, in
// order. Raw passthrough and usage events never affect control flow.
func (p *Processor) Feed(ev model.Event) []core.Chunk {
	var chunks []core.Chunk

	if len(ev.Raw) > 0 {
		chunks = append(chunks, core.CompletionRawChunk{Raw: ev.Raw})
	}

	if ev.Usage != nil {
		usage := *ev.Usage
		p.usage = &usage
		chunks = append(chunks, core.UsageChunk{Usage: usage})
	}

	if ev.ContentDelta != "" {
		p.content.WriteString(ev.ContentDelta)
		chunks = append(chunks, core.ContentDeltaChunk{Delta: ev.ContentDelta})
	}

	for _, tc := range ev.ToolCalls {
		chunks = append(chunks, p.feedToolCall(tc)...)
	}

	if ev.FinishReason != "" && !p.finished {
		p.finished = true
		p.finishReason = ev.FinishReason
		if closed := p.closeOpenCall(); closed != nil {
			chunks = append(chunks, *closed)
		}
		chunks = append(chunks, core.AssistantMessageChunk{
			Message: core.NewAssistantMessage(p.content.String()),
		})
	}

	return chunks
}

func (p *Processor) feedToolCall(tc model.ToolCallDelta) []core.Chunk {
	var chunks []core.Chunk

	cs, seen := p.byIndex[tc.Index]
	if !seen {
		if closed := p.closeOpenCall(); closed != nil {
			chunks = append(chunks, *closed)
		}

		id := tc.ID
		if id == "" {
			id = core.NewID()
			p.logger.Debug("tool call fragment without id, synthesized one", "index", tc.Index, "call_id", id)
		}
		cs = &callState{index: tc.Index, id: id, name: tc.Name}
		p.byIndex[tc.Index] = cs
		p.open = cs
	} else {
		if p.open == nil || p.open.index != tc.Index {
			p.logger.Warn("tool call fragment for a closed call ignored", "index", tc.Index)
			return chunks
		}
		if tc.ID != "" && tc.ID != cs.id {
			p.logger.Debug("late tool call id ignored", "index", tc.Index, "call_id", cs.id)
		}
		if tc.Name != "" && cs.name == "" {
			cs.name = tc.Name
		}
	}

	if tc.Arguments != "" {
		cs.args.WriteString(tc.Arguments)
		chunks = append(chunks, core.ToolCallDeltaChunk{
			CallID:         cs.id,
			Name:           cs.name,
			ArgumentsDelta: tc.Arguments,
		})
	}

	return chunks
}

// closeOpenCall finishes the in-progress call, if any, and returns its
// completed chunk.
func (p *Processor) closeOpenCall() *core.ToolCallChunk {
	if p.open == nil {
		return nil
	}
	cs := p.open
	p.open = nil
	p.done = append(p.done, cs)

	return &core.ToolCallChunk{CallID: cs.id, Name: cs.name, Arguments: cs.args.String()}
}

// Result is the projection of one completed stream into history entries.
type Result struct {
	// Message is the turn's assistant message. It is present even when the
	// turn produced only tool calls, mirroring how assistant turns are
	// recorded in history.
	Message core.AssistantMessage
	// Calls lists the fully reassembled tool calls in arrival order.
	Calls []core.FunctionCallMessage
	// Usage is the backend-reported token accounting, when any arrived.
	Usage *core.Usage
	// FinishReason is the backend's stated reason for ending the turn.
	FinishReason string
}

// Finalize closes any in-progress call and returns the stream's projection
// into messages. Argument validity is not checked here; execution parses and
// rejects malformed argument strings per call without affecting the others.
func (p *Processor) Finalize() Result {
	p.closeOpenCall()

	calls := make([]core.FunctionCallMessage, 0, len(p.done))
	for _, cs := range p.done {
		calls = append(calls, core.NewFunctionCallMessage(cs.id, cs.name, cs.args.String()))
	}

	return Result{
		Message:      core.NewAssistantMessage(p.content.String()),
		Calls:        calls,
		Usage:        p.usage,
		FinishReason: p.finishReason,
	}
}
