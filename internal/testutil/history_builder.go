package testutil

import (
	"github.com/hupe1980/liteagent/core"
)

// HistoryBuilder helps construct message histories with fluent chaining for
// tests.
// Example:
//
//	msgs := NewHistory().User("hi").Assistant("hello").Build()
type HistoryBuilder struct {
	msgs []core.Message
}

// NewHistory creates a new empty history builder.
// Use chainable methods (User, Assistant, Call, Output, Transfer) then call Build.
func NewHistory() *HistoryBuilder {
	return &HistoryBuilder{}
}

// User appends a user message (chainable).
func (b *HistoryBuilder) User(text string) *HistoryBuilder {
	b.msgs = append(b.msgs, core.NewUserMessage(text))
	return b
}

// Assistant appends an assistant message (chainable).
func (b *HistoryBuilder) Assistant(text string) *HistoryBuilder {
	b.msgs = append(b.msgs, core.NewAssistantMessage(text))
	return b
}

// System appends a system message (chainable).
func (b *HistoryBuilder) System(text string) *HistoryBuilder {
	b.msgs = append(b.msgs, core.NewSystemMessage(text))
	return b
}

// Call appends a function call record (chainable).
func (b *HistoryBuilder) Call(id, name, args string) *HistoryBuilder {
	b.msgs = append(b.msgs, core.NewFunctionCallMessage(id, name, args))
	return b
}

// Output appends the output record resolving a call (chainable).
func (b *HistoryBuilder) Output(id, output string) *HistoryBuilder {
	b.msgs = append(b.msgs, core.NewFunctionCallOutputMessage(id, output))
	return b
}

// Transfer appends a transfer record (chainable).
func (b *HistoryBuilder) Transfer(from, to string) *HistoryBuilder {
	b.msgs = append(b.msgs, core.NewTransferMessage(from, to))
	return b
}

// Build returns the assembled history.
func (b *HistoryBuilder) Build() []core.Message {
	out := make([]core.Message, len(b.msgs))
	copy(out, b.msgs)

	return out
}
