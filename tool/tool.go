// Package tool defines the capability abstraction agents expose to models: a
// named operation with a JSON schema for its arguments and a Call hook that
// executes it. The package ships a function adapter, the transfer and task
// completion marker tools, and capability probes for confirmation gating and
// long running work; subpackage mcp bridges tools served over the Model
// Context Protocol.
package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/liteagent/internal/util"
)

// Tool is a capability an agent can offer to its model. The model selects a
// tool by name and supplies JSON arguments matching the declared schema; the
// runner parses and validates them before Call runs.
//
// Implementations must be safe for concurrent use when shared between agents.
// Descriptions are read by the model, so phrase them as guidance about when
// the tool applies.
type Tool interface {
	// Name identifies the tool in function call declarations and routing.
	// snake_case is the convention.
	Name() string

	// Description tells the model what the tool does and when to use it.
	Description() string

	// Parameters declares the accepted arguments as a JSON schema.
	Parameters() map[string]interface{}

	// Call executes the tool with already parsed and validated arguments.
	// The context is the run's context; long operations should honor its
	// cancellation.
	Call(ctx context.Context, args map[string]interface{}) (interface{}, error)
}

// RequiresConfirmation reports whether a tool must pause the step loop until an
// explicit approval arrives. Tools declare this by implementing
// RequiresConfirmation() bool; the runner never executes such a call on its own.
func RequiresConfirmation(t Tool) bool {
	c, ok := t.(interface{ RequiresConfirmation() bool })
	return ok && c.RequiresConfirmation()
}

// IsLongRunning reports whether a tool marked itself as long running. The
// runner still awaits it inline; the flag lets callers and logs distinguish
// quick lookups from slow jobs.
func IsLongRunning(t Tool) bool {
	l, ok := t.(interface{ IsLongRunning() bool })
	return ok && l.IsLongRunning()
}

// ValidationError reports an argument that failed schema validation.
type ValidationError = util.ValidationError

// ToolError is the uniform error type tool executions produce. Code
// categorizes the failure so callers can branch without parsing messages.
type ToolError struct {
	Tool    string      `json:"tool"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError builds a ToolError from its parts.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
