package agent

import (
	"fmt"
	"strings"

	"github.com/hupe1980/liteagent/core"
)

// Transform rewrites the outgoing message payload before each model request.
// The runner's history is untouched; only what the model sees changes.
type Transform func(messages []core.Message) []core.Message

// ConsolidateHistory folds the entire prior conversation into a single user
// message carrying an XML rendition of the history. Useful for models that
// work better with one self-contained prompt than with long multi-turn
// payloads, or to cap payload growth on long sessions.
func ConsolidateHistory(messages []core.Message) []core.Message {
	if len(messages) == 0 {
		return messages
	}

	lines := []string{"<conversation_history>"}
	for _, msg := range messages {
		switch m := msg.(type) {
		case core.UserMessage:
			lines = append(lines, fmt.Sprintf("  <message role='%s'>%s</message>", m.Role, m.Content))
		case core.AssistantMessage:
			lines = append(lines, fmt.Sprintf("  <message role='%s'>%s</message>", m.Role, m.Content))
		case core.SystemMessage:
			lines = append(lines, fmt.Sprintf("  <message role='%s'>%s</message>", m.Role, m.Content))
		case core.FunctionCallMessage:
			lines = append(lines, fmt.Sprintf("  <function_call name='%s' arguments='%s' />", m.Name, m.Arguments))
		case core.FunctionCallOutputMessage:
			lines = append(lines, fmt.Sprintf("  <function_result call_id='%s'>%s</function_result>", m.CallID, m.Output))
		}
	}
	lines = append(lines, "</conversation_history>")

	content := "The following is the full conversation so far:\n\n" +
		strings.Join(lines, "\n") +
		"\n\nDecide what to do next."

	return []core.Message{core.NewUserMessage(content)}
}
