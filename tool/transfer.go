package tool

import (
	"context"
	"fmt"
	"strings"
)

// Tool names the runner recognizes as control-flow markers. Calls to these are
// intercepted by the runner, which owns the agent tree and performs the actual
// switch; the tool bodies only produce the acknowledgment or diagnostic text.
const (
	TransferToAgentName  = "transfer_to_agent"
	TransferToParentName = "transfer_to_parent"
)

// IsTransfer reports whether name identifies one of the transfer marker tools.
func IsTransfer(name string) bool {
	return name == TransferToAgentName || name == TransferToParentName
}

// transferToAgentTool requests orchestration transfer to a named handoff agent.
//
// Unknown target names do not fail the call: the tool answers with a diagnostic
// listing the available agents so the model can correct itself on the next turn.
// The declared enum narrows the model's choices but is deliberately not enforced.
type transferToAgentTool struct {
	targets []string
}

// NewTransferToAgent constructs the transfer tool for an agent whose handoff
// targets carry the given names. The names appear as an enum in the parameter
// schema so models pick from the actual roster.
func NewTransferToAgent(targets ...string) Tool {
	return &transferToAgentTool{targets: append([]string(nil), targets...)}
}

func (t *transferToAgentTool) Name() string { return TransferToAgentName }

func (t *transferToAgentTool) Description() string {
	return "Transfer control of the conversation to the named agent. Use when another agent is better suited to handle the request."
}

func (t *transferToAgentTool) Parameters() map[string]any {
	nameSchema := map[string]any{
		"type":        "string",
		"description": "The name of the agent to transfer to",
	}
	if len(t.targets) > 0 {
		nameSchema["enum"] = append([]string(nil), t.targets...)
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": nameSchema,
		},
		"required": []string{"name"},
	}
}

func (t *transferToAgentTool) Call(_ context.Context, args map[string]any) (any, error) {
	name, ok := args["name"].(string)
	if !ok || name == "" {
		return nil, NewToolError(TransferToAgentName, "field 'name' must be a non-empty string", "VALIDATION_ERROR")
	}

	if len(t.targets) == 0 {
		return "Cannot transfer: no handoffs configured", nil
	}

	for _, target := range t.targets {
		if target == name {
			return fmt.Sprintf("Transferring to agent: %s", name), nil
		}
	}

	return fmt.Sprintf("Agent '%s' not found. Available agents: %s", name, strings.Join(t.targets, ", ")), nil
}

// transferToParentTool requests that control return to the parent agent.
type transferToParentTool struct {
	hasParent bool
}

// NewTransferToParent constructs the parent transfer tool. hasParent records
// whether the owning agent actually has a parent; without one the tool answers
// with a diagnostic instead of an acknowledgment.
func NewTransferToParent(hasParent bool) Tool {
	return &transferToParentTool{hasParent: hasParent}
}

func (t *transferToParentTool) Name() string { return TransferToParentName }

func (t *transferToParentTool) Description() string {
	return "Return control of the conversation to the parent agent. Use when your part of the task is finished or out of scope."
}

func (t *transferToParentTool) Parameters() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func (t *transferToParentTool) Call(_ context.Context, _ map[string]any) (any, error) {
	if !t.hasParent {
		return "Cannot transfer: no parent agent", nil
	}

	return "Transferring back to parent", nil
}
