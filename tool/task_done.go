package tool

import "context"

// TaskDoneName identifies the completion signal tool. Agents configured to
// finish on an explicit call register it; the runner ends the run once the
// tool's output lands in history.
const TaskDoneName = "task_done"

// NewTaskDone constructs the completion signal tool. The optional summary
// argument lets the model attach a short wrap-up to the acknowledgment.
func NewTaskDone(optFns ...func(o *Options)) *FunctionTool {
	return NewFunctionTool(
		TaskDoneName,
		"Call this function when you have completed your assigned task",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"summary": map[string]any{
					"type":        "string",
					"description": "Optional summary of the completed work",
				},
			},
		},
		func(_ context.Context, args map[string]any) (any, error) {
			if summary, ok := args["summary"].(string); ok && summary != "" {
				return "Task completed. Summary: " + summary, nil
			}

			return "Task completed.", nil
		},
		optFns...,
	)
}
