package model

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hupe1980/liteagent/core"
)

// ToolCallDelta is one fragment of a tool call as a backend streams it.
// Index keys fragments of the same call while the id is still unknown; ID and
// Name are set on the first fragment of a call, later fragments carry only
// argument text.
type ToolCallDelta struct {
	Index     int    `json:"index"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// Event is one raw backend event, normalized across vendors so the stream
// handler does not need per-provider branching. Events are JSON-codable so
// recorded streams replay byte-for-byte.
type Event struct {
	ContentDelta string          `json:"content_delta,omitempty"`
	ToolCalls    []ToolCallDelta `json:"tool_calls,omitempty"`
	FinishReason string          `json:"finish_reason,omitempty"`
	Usage        *core.Usage     `json:"usage,omitempty"`
	Raw          json.RawMessage `json:"raw,omitempty"`
}

// ToolDefinition advertises one callable tool in a request, wrapped in the
// function calling envelope the provider APIs share.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition names a tool and carries its argument schema, a minimal
// JSON Schema object.
type FunctionDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// Request captures the normalized model input the runner builds per step.
// Messages hold the conversation history projection (transfer records and
// message meta removed by the backend); System is the rendered per-step
// system prompt.
type Request struct {
	System   string           `json:"system,omitempty"`
	Messages []core.Message   `json:"messages"`
	Tools    []ToolDefinition `json:"tools,omitempty"`
}

// Info identifies a model implementation for logs, metrics and transcripts.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "replay", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface the runner needs to drive generation. A
// fresh stream is required per model call; streams are finite and not
// restartable.
//
// Implementations create both channels per call, close them when the stream
// ends and buffer the error channel with size one so the producing goroutine
// never blocks on failure.
type Model interface {
	Stream(ctx context.Context, req Request) (<-chan Event, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is an in-memory Model for examples and quick experiments. It
// answers the last user message with a canned completion, streamed as
// per-rune content deltas.
type MockModel struct {
	info      Info
	responses map[string]string
}

// NewMockModel returns a MockModel that reports tool support.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      provider,
			SupportsTools: true,
		},
		responses: make(map[string]string),
	}
}

// AddResponse fixes the completion returned for an exact input prompt.
func (m *MockModel) AddResponse(prompt, response string) { m.responses[prompt] = response }

// Stream implements Model; emits streaming per-rune deltas then a final event.
func (m *MockModel) Stream(ctx context.Context, req Request) (<-chan Event, <-chan error) {
	eventCh := make(chan Event, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(eventCh)
		defer close(errCh)
		if len(req.Messages) == 0 {
			errCh <- fmt.Errorf("no messages provided")
			return
		}
		var inputText string
		for _, msg := range req.Messages {
			if u, ok := msg.(core.UserMessage); ok {
				inputText = u.Content
			}
		}
		full := m.responses[inputText]
		if full == "" {
			full = fmt.Sprintf("Mock response to: %s", inputText)
		}
		for _, r := range full {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case eventCh <- Event{ContentDelta: string(r)}:
			}
		}
		eventCh <- Event{FinishReason: "stop"}
	}()
	return eventCh, errCh
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
