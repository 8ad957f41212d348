package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/liteagent/core"
	"github.com/hupe1980/liteagent/model"
)

// ScriptTurn is one scripted model call: the events to stream, optionally
// followed by a terminal error.
type ScriptTurn struct {
	Events []model.Event
	Err    error
}

// ScriptModel is a model.Model that plays back pre-scripted turns in order,
// one per Stream call. It records every request it receives so tests can
// assert on the payload the runner built.
//
// Example:
//
//	m := NewScriptModel(
//		NewTurn().Call("call_1", "get_weather", `{"city":"Berlin"}`).Finish("tool_calls").Build(),
//		TextTurn("It is sunny."),
//	)
type ScriptModel struct {
	info model.Info

	mu       sync.Mutex
	turns    []ScriptTurn
	requests []model.Request
}

// NewScriptModel creates a scripted model that serves the given turns in order.
func NewScriptModel(turns ...ScriptTurn) *ScriptModel {
	return &ScriptModel{
		info:  model.Info{Name: "script", Provider: "test", SupportsTools: true},
		turns: turns,
	}
}

// Stream implements model.Model by replaying the next scripted turn.
func (m *ScriptModel) Stream(ctx context.Context, req model.Request) (<-chan model.Event, <-chan error) {
	eventCh := make(chan model.Event, 16)
	errCh := make(chan error, 1)

	m.mu.Lock()
	m.requests = append(m.requests, req)
	call := len(m.requests)
	var turn ScriptTurn
	exhausted := len(m.turns) == 0
	if !exhausted {
		turn = m.turns[0]
		m.turns = m.turns[1:]
	}
	m.mu.Unlock()

	go func() {
		defer close(eventCh)
		defer close(errCh)

		if err := ctx.Err(); err != nil {
			errCh <- err
			return
		}

		if exhausted {
			errCh <- fmt.Errorf("script exhausted: no turn for call %d", call)
			return
		}

		for _, ev := range turn.Events {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case eventCh <- ev:
			}
		}

		if turn.Err != nil {
			errCh <- turn.Err
		}
	}()

	return eventCh, errCh
}

// Info implements model.Model.
func (m *ScriptModel) Info() model.Info { return m.info }

// Requests returns a copy of every request received so far.
func (m *ScriptModel) Requests() []model.Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.Request, len(m.requests))
	copy(out, m.requests)

	return out
}

// Calls returns the number of Stream calls served so far.
func (m *ScriptModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.requests)
}

// TurnBuilder assembles the event sequence of one scripted turn with fluent
// chaining. Chain only the parts you need, then call Build.
type TurnBuilder struct {
	events    []model.Event
	err       error
	nextIndex int
}

// NewTurn creates an empty turn builder.
func NewTurn() *TurnBuilder { return &TurnBuilder{} }

// Text appends one content delta event carrying the given fragment (chainable).
func (b *TurnBuilder) Text(delta string) *TurnBuilder {
	b.events = append(b.events, model.Event{ContentDelta: delta})
	return b
}

// Call appends one fully-formed tool call event at the next fragment index
// (chainable).
func (b *TurnBuilder) Call(id, name, args string) *TurnBuilder {
	b.events = append(b.events, model.Event{
		ToolCalls: []model.ToolCallDelta{{Index: b.nextIndex, ID: id, Name: name, Arguments: args}},
	})
	b.nextIndex++

	return b
}

// CallFragment appends one argument fragment for the current call index. The
// first fragment of a call must go through Call; later fragments carry only
// argument text (chainable).
func (b *TurnBuilder) CallFragment(args string) *TurnBuilder {
	if b.nextIndex == 0 {
		return b.Call("", "", args)
	}
	b.events = append(b.events, model.Event{
		ToolCalls: []model.ToolCallDelta{{Index: b.nextIndex - 1, Arguments: args}},
	})

	return b
}

// Usage appends a usage event (chainable).
func (b *TurnBuilder) Usage(input, output int64) *TurnBuilder {
	b.events = append(b.events, model.Event{Usage: &core.Usage{InputTokens: input, OutputTokens: output}})
	return b
}

// Finish appends the terminal event carrying the finish reason (chainable).
func (b *TurnBuilder) Finish(reason string) *TurnBuilder {
	b.events = append(b.events, model.Event{FinishReason: reason})
	return b
}

// Fail ends the turn with a stream error after the queued events (chainable).
func (b *TurnBuilder) Fail(err error) *TurnBuilder {
	b.err = err
	return b
}

// Build returns the assembled turn.
func (b *TurnBuilder) Build() ScriptTurn {
	return ScriptTurn{Events: b.events, Err: b.err}
}

// TextTurn is shorthand for a plain text completion ending with "stop".
func TextTurn(text string) ScriptTurn {
	return NewTurn().Text(text).Finish("stop").Build()
}

// CallTurn is shorthand for a single tool call ending with "tool_calls".
func CallTurn(id, name, args string) ScriptTurn {
	return NewTurn().Call(id, name, args).Finish("tool_calls").Build()
}
