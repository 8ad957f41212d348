package core

import (
	"encoding/json"
	"fmt"
)

// ChunkType identifies a chunk variant. The Includes run option filters the
// chunk stream by these values.
type ChunkType string

const (
	// ChunkTypeContentDelta is an incremental piece of assistant text.
	ChunkTypeContentDelta ChunkType = "content_delta"
	// ChunkTypeToolCallDelta is an incremental piece of one tool call's
	// argument string.
	ChunkTypeToolCallDelta ChunkType = "tool_call_delta"
	// ChunkTypeToolCall is a fully reassembled tool call.
	ChunkTypeToolCall ChunkType = "tool_call"
	// ChunkTypeToolCallResult reports the output of an executed tool call.
	ChunkTypeToolCallResult ChunkType = "tool_call_result"
	// ChunkTypeAssistantMessage carries the completed assistant message of
	// the turn.
	ChunkTypeAssistantMessage ChunkType = "assistant_message"
	// ChunkTypeRequireConfirm signals that a confirmation-gated tool call is
	// parked and the run is suspended awaiting an explicit decision.
	ChunkTypeRequireConfirm ChunkType = "require_confirm"
	// ChunkTypeUsage carries token usage reported by the backend.
	ChunkTypeUsage ChunkType = "usage"
	// ChunkTypeCompletionRaw forwards the raw backend event for observability.
	ChunkTypeCompletionRaw ChunkType = "completion_raw"
	// ChunkTypeTransfer reports a resolved agent handoff.
	ChunkTypeTransfer ChunkType = "transfer"
)

// Chunk is one transient unit of streamed run output. Chunks are produced,
// consumed and discarded within a single step; they project into history
// entries but are never persisted directly.
type Chunk interface {
	isChunk()

	// Kind returns the variant discriminator.
	Kind() ChunkType
}

// Usage mirrors the token accounting a backend reports for one turn.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// ContentDeltaChunk carries one fragment of assistant text in arrival order.
type ContentDeltaChunk struct {
	Delta string `json:"delta"`
}

func (ContentDeltaChunk) isChunk() {}

// Kind returns the variant discriminator.
func (ContentDeltaChunk) Kind() ChunkType { return ChunkTypeContentDelta }

// ToolCallDeltaChunk carries one fragment of a tool call's argument string.
// CallID and Name identify the call the fragment belongs to; fragments of
// different calls never interleave within one call's argument text.
type ToolCallDeltaChunk struct {
	CallID         string `json:"call_id"`
	Name           string `json:"name"`
	ArgumentsDelta string `json:"arguments_delta"`
}

func (ToolCallDeltaChunk) isChunk() {}

// Kind returns the variant discriminator.
func (ToolCallDeltaChunk) Kind() ChunkType { return ChunkTypeToolCallDelta }

// ToolCallChunk is emitted once a tool call's arguments are fully
// reassembled.
type ToolCallChunk struct {
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

func (ToolCallChunk) isChunk() {}

// Kind returns the variant discriminator.
func (ToolCallChunk) Kind() ChunkType { return ChunkTypeToolCall }

// ToolCallResultChunk reports the serialized output of an executed call.
type ToolCallResultChunk struct {
	CallID string `json:"call_id"`
	Name   string `json:"name"`
	Output string `json:"output"`
}

func (ToolCallResultChunk) isChunk() {}

// Kind returns the variant discriminator.
func (ToolCallResultChunk) Kind() ChunkType { return ChunkTypeToolCallResult }

// AssistantMessageChunk carries the finalized assistant message of the turn.
type AssistantMessageChunk struct {
	Message AssistantMessage `json:"message"`
}

func (AssistantMessageChunk) isChunk() {}

// Kind returns the variant discriminator.
func (AssistantMessageChunk) Kind() ChunkType { return ChunkTypeAssistantMessage }

// RequireConfirmChunk surfaces the pending call of a confirmation-gated tool.
// The run suspends after emitting it; RunContinue resumes with a decision.
type RequireConfirmChunk struct {
	Call FunctionCallMessage `json:"call"`
}

func (RequireConfirmChunk) isChunk() {}

// Kind returns the variant discriminator.
func (RequireConfirmChunk) Kind() ChunkType { return ChunkTypeRequireConfirm }

// UsageChunk forwards backend token accounting.
type UsageChunk struct {
	Usage Usage `json:"usage"`
}

func (UsageChunk) isChunk() {}

// Kind returns the variant discriminator.
func (UsageChunk) Kind() ChunkType { return ChunkTypeUsage }

// CompletionRawChunk forwards the raw backend event unmodified. It exists for
// observability and recording; it never affects control flow.
type CompletionRawChunk struct {
	Raw json.RawMessage `json:"raw"`
}

func (CompletionRawChunk) isChunk() {}

// Kind returns the variant discriminator.
func (CompletionRawChunk) Kind() ChunkType { return ChunkTypeCompletionRaw }

// TransferChunk reports that conversational control moved between agents.
type TransferChunk struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (TransferChunk) isChunk() {}

// Kind returns the variant discriminator.
func (TransferChunk) Kind() ChunkType { return ChunkTypeTransfer }

// UnmarshalChunk reconstructs a chunk variant from its serialized form. The
// variant structs do not self-describe in JSON, so callers must supply the
// ChunkType they recorded alongside the payload.
func UnmarshalChunk(kind ChunkType, data []byte) (Chunk, error) {
	switch kind {
	case ChunkTypeContentDelta:
		var c ContentDeltaChunk
		return c, json.Unmarshal(data, &c)
	case ChunkTypeToolCallDelta:
		var c ToolCallDeltaChunk
		return c, json.Unmarshal(data, &c)
	case ChunkTypeToolCall:
		var c ToolCallChunk
		return c, json.Unmarshal(data, &c)
	case ChunkTypeToolCallResult:
		var c ToolCallResultChunk
		return c, json.Unmarshal(data, &c)
	case ChunkTypeAssistantMessage:
		var c AssistantMessageChunk
		return c, json.Unmarshal(data, &c)
	case ChunkTypeRequireConfirm:
		var c RequireConfirmChunk
		return c, json.Unmarshal(data, &c)
	case ChunkTypeUsage:
		var c UsageChunk
		return c, json.Unmarshal(data, &c)
	case ChunkTypeCompletionRaw:
		var c CompletionRawChunk
		return c, json.Unmarshal(data, &c)
	case ChunkTypeTransfer:
		var c TransferChunk
		return c, json.Unmarshal(data, &c)
	default:
		return nil, fmt.Errorf("unknown chunk type %q", kind)
	}
}
