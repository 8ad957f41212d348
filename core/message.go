package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role values used by the content message variants.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Type discriminators used by the record message variants.
const (
	TypeFunctionCall       = "function_call"
	TypeFunctionCallOutput = "function_call_output"
	TypeTransfer           = "transfer"
)

// Meta carries bookkeeping attached to a message. It is never part of the
// payload sent to a model; backends drop it when building requests.
type Meta struct {
	// SentAt is the time the message was committed to history.
	SentAt time.Time `json:"sent_at"`
	// LatencyMS is the time from request start to first chunk, for
	// assistant messages produced by a model turn.
	LatencyMS int64 `json:"latency_ms,omitempty"`
	// ExecutionTimeMS is the tool execution time, for function call outputs.
	ExecutionTimeMS int64 `json:"execution_time_ms,omitempty"`
	// InputTokens / OutputTokens mirror the usage the backend reported for
	// the turn that produced this message.
	InputTokens  int64 `json:"input_tokens,omitempty"`
	OutputTokens int64 `json:"output_tokens,omitempty"`
}

// NewMeta returns a Meta stamped with the current time.
func NewMeta() *Meta {
	return &Meta{SentAt: time.Now()}
}

// Message is the closed set of conversation records a Runner stores in its
// history. Variants either carry a Role (user/assistant/system content) or a
// Type (function call records, transfer records).
type Message interface{ isMessage() }

// UserMessage is a message authored by the end user.
type UserMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Meta    *Meta  `json:"meta,omitempty"`
}

func (UserMessage) isMessage() {}

// AssistantMessage is the text portion of a model turn. Tool calls emitted in
// the same turn are recorded as separate FunctionCallMessages.
type AssistantMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Meta    *Meta  `json:"meta,omitempty"`
}

func (AssistantMessage) isMessage() {}

// SystemMessage is an instruction-level message injected by the caller.
// The per-step system prompt built from agent instructions is not stored in
// history; SystemMessages are for callers that want explicit system records.
type SystemMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Meta    *Meta  `json:"meta,omitempty"`
}

func (SystemMessage) isMessage() {}

// FunctionCallMessage records one tool call requested by the model. Arguments
// hold the serialized JSON argument string exactly as the backend produced it.
type FunctionCallMessage struct {
	Type      string `json:"type"`
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
	Content   string `json:"content,omitempty"`
	Meta      *Meta  `json:"meta,omitempty"`
}

func (FunctionCallMessage) isMessage() {}

// FunctionCallOutputMessage resolves a FunctionCallMessage with the same
// CallID. Every executed call gets exactly one output appended before the
// next model turn is requested.
type FunctionCallOutputMessage struct {
	Type   string `json:"type"`
	CallID string `json:"call_id"`
	Output string `json:"output"`
	Meta   *Meta  `json:"meta,omitempty"`
}

func (FunctionCallOutputMessage) isMessage() {}

// TransferMessage is an informational record appended when a handoff
// resolves. It never appears in the payload sent to a model; the model sees
// only the transfer function call and its output.
type TransferMessage struct {
	Type string `json:"type"`
	From string `json:"from"`
	To   string `json:"to"`
	Meta *Meta  `json:"meta,omitempty"`
}

func (TransferMessage) isMessage() {}

// NewUserMessage builds a user message stamped with the current time.
func NewUserMessage(content string) UserMessage {
	return UserMessage{Role: RoleUser, Content: content, Meta: NewMeta()}
}

// NewAssistantMessage builds an assistant message stamped with the current time.
func NewAssistantMessage(content string) AssistantMessage {
	return AssistantMessage{Role: RoleAssistant, Content: content, Meta: NewMeta()}
}

// NewSystemMessage builds a system message stamped with the current time.
func NewSystemMessage(content string) SystemMessage {
	return SystemMessage{Role: RoleSystem, Content: content, Meta: NewMeta()}
}

// NewFunctionCallMessage builds a function call record.
func NewFunctionCallMessage(callID, name, arguments string) FunctionCallMessage {
	return FunctionCallMessage{Type: TypeFunctionCall, CallID: callID, Name: name, Arguments: arguments, Meta: NewMeta()}
}

// NewFunctionCallOutputMessage builds the output record resolving a call.
func NewFunctionCallOutputMessage(callID, output string) FunctionCallOutputMessage {
	return FunctionCallOutputMessage{Type: TypeFunctionCallOutput, CallID: callID, Output: output, Meta: NewMeta()}
}

// NewTransferMessage builds a transfer record.
func NewTransferMessage(from, to string) TransferMessage {
	return TransferMessage{Type: TypeTransfer, From: from, To: to, Meta: NewMeta()}
}

// NewID returns a unique identifier for runs and synthesized call ids.
func NewID() string { return uuid.NewString() }

// MarshalMessage serializes a message to its natural JSON shape. The role or
// type field doubles as the discriminator, so no extra envelope is needed.
func MarshalMessage(m Message) ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalMessage decodes a single message from JSON, dispatching on the
// role or type discriminator.
func UnmarshalMessage(data []byte) (Message, error) {
	var probe struct {
		Role string `json:"role"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}

	switch {
	case probe.Role == RoleUser:
		var m UserMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return m, nil
	case probe.Role == RoleAssistant:
		var m AssistantMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return m, nil
	case probe.Role == RoleSystem:
		var m SystemMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return m, nil
	case probe.Type == TypeFunctionCall:
		var m FunctionCallMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return m, nil
	case probe.Type == TypeFunctionCallOutput:
		var m FunctionCallOutputMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return m, nil
	case probe.Type == TypeTransfer:
		var m TransferMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, ErrUnknownMessage
	}
}

// ErrUnknownMessage reports input that carries neither a known role nor a
// known type discriminator.
var ErrUnknownMessage = errors.New("message must have a 'role' or 'type' field")
