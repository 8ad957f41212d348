package core

import (
	"encoding/json"
	"fmt"
)

// NormalizeInput converts any accepted run input into messages. Accepted
// shapes: a plain string (becomes a user message), a Message, a
// map[string]any, raw JSON, or a slice of any mix of those.
func NormalizeInput(input any) ([]Message, error) {
	switch v := input.(type) {
	case string:
		return []Message{NewUserMessage(v)}, nil
	case []Message:
		out := make([]Message, 0, len(v))
		out = append(out, v...)
		return out, nil
	case []map[string]any:
		out := make([]Message, 0, len(v))
		for _, m := range v {
			msgs, err := normalizeMap(m)
			if err != nil {
				return nil, err
			}
			out = append(out, msgs...)
		}
		return out, nil
	case []any:
		out := make([]Message, 0, len(v))
		for _, item := range v {
			msgs, err := Normalize(item)
			if err != nil {
				return nil, err
			}
			out = append(out, msgs...)
		}
		return out, nil
	default:
		return Normalize(input)
	}
}

// Normalize converts one caller-supplied value into the internal Message
// variants. An assistant map carrying tool_calls splits into an assistant
// message followed by one function call record per entry, preserving order.
func Normalize(v any) ([]Message, error) {
	switch m := v.(type) {
	case UserMessage:
		return []Message{m}, nil
	case *UserMessage:
		return []Message{*m}, nil
	case AssistantMessage:
		return []Message{m}, nil
	case *AssistantMessage:
		return []Message{*m}, nil
	case SystemMessage:
		return []Message{m}, nil
	case *SystemMessage:
		return []Message{*m}, nil
	case FunctionCallMessage:
		return []Message{m}, nil
	case *FunctionCallMessage:
		return []Message{*m}, nil
	case FunctionCallOutputMessage:
		return []Message{m}, nil
	case *FunctionCallOutputMessage:
		return []Message{*m}, nil
	case TransferMessage:
		return []Message{m}, nil
	case *TransferMessage:
		return []Message{*m}, nil
	case Message:
		return []Message{m}, nil
	case map[string]any:
		return normalizeMap(m)
	case json.RawMessage:
		return normalizeJSON(m)
	case []byte:
		return normalizeJSON(m)
	case nil:
		return nil, ErrUnknownMessage
	default:
		return nil, fmt.Errorf("unsupported message value of type %T", v)
	}
}

func normalizeJSON(data []byte) ([]Message, error) {
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	switch g := generic.(type) {
	case map[string]any:
		return normalizeMap(g)
	case []any:
		return NormalizeInput(g)
	default:
		return nil, ErrUnknownMessage
	}
}

func normalizeMap(m map[string]any) ([]Message, error) {
	if role := stringField(m, "role"); role != "" {
		switch role {
		case RoleUser:
			return []Message{NewUserMessage(stringField(m, "content"))}, nil
		case RoleAssistant:
			msgs := []Message{NewAssistantMessage(stringField(m, "content"))}
			calls, ok := m["tool_calls"].([]any)
			if !ok {
				return msgs, nil
			}
			for _, raw := range calls {
				call, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				fn, _ := call["function"].(map[string]any)
				msgs = append(msgs, NewFunctionCallMessage(
					stringField(call, "id"),
					stringField(fn, "name"),
					argumentsField(fn),
				))
			}
			return msgs, nil
		case RoleSystem:
			return []Message{NewSystemMessage(stringField(m, "content"))}, nil
		case "tool":
			// Chat-completions style tool result record.
			return []Message{NewFunctionCallOutputMessage(stringField(m, "tool_call_id"), stringField(m, "content"))}, nil
		default:
			return nil, fmt.Errorf("unsupported message role %q", role)
		}
	}

	if typ := stringField(m, "type"); typ != "" {
		switch typ {
		case TypeFunctionCall:
			callID := stringField(m, "call_id")
			if callID == "" {
				callID = stringField(m, "function_call_id")
			}
			return []Message{NewFunctionCallMessage(callID, stringField(m, "name"), argumentsField(m))}, nil
		case TypeFunctionCallOutput:
			return []Message{NewFunctionCallOutputMessage(stringField(m, "call_id"), stringField(m, "output"))}, nil
		case TypeTransfer:
			return []Message{NewTransferMessage(stringField(m, "from"), stringField(m, "to"))}, nil
		default:
			return nil, fmt.Errorf("unsupported message type %q", typ)
		}
	}

	return nil, ErrUnknownMessage
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

// argumentsField reads the serialized argument string, re-encoding a parsed
// object when a caller supplied one instead of the raw string.
func argumentsField(m map[string]any) string {
	if m == nil {
		return ""
	}
	switch args := m["arguments"].(type) {
	case string:
		return args
	case map[string]any:
		data, err := json.Marshal(args)
		if err != nil {
			return ""
		}
		return string(data)
	default:
		return ""
	}
}
