package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/liteagent/internal/util"
	"github.com/hupe1980/liteagent/logging"
)

// Func is the implementation signature wrapped by FunctionTool. Arguments have
// already been parsed from JSON and validated against the tool's schema.
type Func func(ctx context.Context, args map[string]any) (any, error)

// Options configures optional FunctionTool behavior.
type Options struct {
	// Logger receives structured execution events. Defaults to a no-op logger.
	Logger logging.Logger
	// RequireConfirmation marks the tool as gated: the runner pauses the step
	// loop and surfaces the call for approval instead of executing it directly.
	RequireConfirmation bool
	// LongRunning marks the tool as slow. Execution is still awaited inline;
	// the flag only informs callers and logs.
	LongRunning bool
}

// FunctionTool adapts a plain Go function into a Tool. Model supplied
// arguments are validated against the declared schema before the function
// runs, and every failure surfaces as *ToolError with a stable code: schema
// mismatches as VALIDATION_ERROR, other failures as EXECUTION_ERROR. A
// *ToolError returned by the function itself passes through unchanged, so
// implementations can define their own codes.
//
// A FunctionTool holds no mutable state after construction and is safe for
// concurrent use. The schema only needs the subset validation reads: type,
// properties, required and enum. The returned value may be any type the
// caller can serialize; tools that need streaming or richer control should
// implement Tool directly.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	fn          Func

	logger              logging.Logger
	requireConfirmation bool
	longRunning         bool
}

// NewFunctionTool builds a FunctionTool from an explicit schema.
//
//	weather := NewFunctionTool(
//	  "get_weather",
//	  "Look up the current weather for a city",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "city": map[string]any{"type": "string"},
//	    },
//	    "required": []string{"city"},
//	  },
//	  func(ctx context.Context, args map[string]any) (any, error) {
//	    return lookup(ctx, args["city"].(string))
//	  },
//	)
func NewFunctionTool(
	name, description string,
	parameters map[string]any,
	fn Func,
	optFns ...func(o *Options),
) *FunctionTool {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &FunctionTool{
		name:                name,
		description:         description,
		parameters:          parameters,
		fn:                  fn,
		logger:              opts.Logger,
		requireConfirmation: opts.RequireConfirmation,
		longRunning:         opts.LongRunning,
	}
}

// NewFunctionToolFromStruct derives the parameter schema from a struct via
// reflection: json tags name the fields, description and enum tags annotate
// them, and pointer or omitempty fields become optional.
//
//	type WeatherArgs struct {
//	  City string `json:"city" description:"City to look up"`
//	}
//
//	weather := NewFunctionToolFromStruct(
//	  "get_weather",
//	  "Look up the current weather for a city",
//	  WeatherArgs{},
//	  handler,
//	)
func NewFunctionToolFromStruct(
	name, description string,
	structType any,
	fn Func,
	optFns ...func(o *Options),
) *FunctionTool {
	schema := util.CreateSchema(structType)
	return NewFunctionTool(name, description, schema, fn, optFns...)
}

// Name returns the unique tool name used in function call declarations and routing.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the short natural language description exposed to models.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the JSON schema describing expected arguments.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// RequiresConfirmation reports whether calls to this tool must be approved
// before execution.
func (t *FunctionTool) RequiresConfirmation() bool { return t.requireConfirmation }

// IsLongRunning reports whether this tool was marked as long running.
func (t *FunctionTool) IsLongRunning() bool { return t.longRunning }

// Call validates args against the declared schema, then invokes the wrapped
// function with the run's context so slow operations honor cancellation. The
// fc_id logging field correlates the execution with its originating function
// call.
func (t *FunctionTool) Call(ctx context.Context, args map[string]any) (any, error) {
	start := time.Now()

	t.logger.Debug("tool.call.start", "tool", t.name, "fc_id", CallIDFromContext(ctx))

	if err := util.ValidateParameters(args, t.parameters); err != nil {
		t.logger.Warn("tool.call.validation_failed", "tool", t.name, "error", err.Error())

		return nil, &ToolError{
			Tool:    t.name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    "VALIDATION_ERROR",
			Details: err,
		}
	}

	result, err := t.fn(ctx, args)
	if err != nil {
		if toolErr, ok := err.(*ToolError); ok { // custom codes pass through
			t.logger.Error("tool.call.error", "tool", t.name, "error", toolErr.Message)

			return nil, toolErr
		}

		t.logger.Error("tool.call.error", "tool", t.name, "error", err.Error())

		return nil, &ToolError{
			Tool:    t.name,
			Message: err.Error(),
			Code:    "EXECUTION_ERROR",
		}
	}

	t.logger.Info("tool.call.success", "tool", t.name, "duration_ms", time.Since(start).Milliseconds())

	return result, nil
}
