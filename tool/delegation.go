package tool

import (
	"context"
	"fmt"
)

// Delegation tools are declared here so their schemas reach the model, but
// delegate_task, delegate_background and check_background_task are never
// executed directly: the session processor intercepts those calls and routes
// them to the delegation and background managers.

// DelegateTaskName and friends are the reserved tool names the session
// processor intercepts.
const (
	DelegateTaskName        = "delegate_task"
	DelegateBackgroundName  = "delegate_background"
	CheckBackgroundTaskName = "check_background_task"
	ReportResultName        = "report_result"
)

// DelegationTools returns instances of all four delegation tools.
func DelegationTools() []Tool {
	return []Tool{
		NewDelegateTaskTool(),
		NewDelegateBackgroundTool(),
		NewCheckBackgroundTaskTool(),
		NewReportResultTool(),
	}
}

// IsDelegationTool reports whether name is one of the intercepted tools.
func IsDelegationTool(name string) bool {
	switch name {
	case DelegateTaskName, DelegateBackgroundName, CheckBackgroundTaskName, ReportResultName:
		return true
	}
	return false
}

func agentTaskSchema(taskDescription string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"agent_role": map[string]any{
				"type":        "string",
				"description": "The role of the agent to delegate to (e.g., 'coder', 'explorer')",
			},
			"description": map[string]any{
				"type":        "string",
				"description": taskDescription,
			},
		},
		"required":             []string{"agent_role", "description"},
		"additionalProperties": false,
	}
}

// NewDelegateTaskTool declares the blocking delegation tool.
func NewDelegateTaskTool() Tool {
	return NewFunctionTool(
		DelegateTaskName,
		"Delegate a task to a specialist agent. The agent will execute the task and "+
			"return the result. This is a blocking call - you will receive the result.\n\n"+
			`Example: { "agent_role": "coder", "description": "Add error handling to the login function" }`,
		agentTaskSchema("Clear description of the task for the agent to accomplish"),
		func(ctx context.Context, params map[string]any, tc *Context) Result {
			return Failure("delegate_task must be handled by the session processor, not executed directly.")
		},
		WithSkipApproval(),
	)
}

// NewDelegateBackgroundTool declares the fire-and-forget delegation tool.
func NewDelegateBackgroundTool() Tool {
	return NewFunctionTool(
		DelegateBackgroundName,
		"Delegate a task to run in the background. Returns immediately with a task_id. "+
			"Use check_background_task to check on its status later.\n\n"+
			`Example: { "agent_role": "reviewer", "description": "Review the auth module for security issues" }`,
		agentTaskSchema("Clear description of the background task"),
		func(ctx context.Context, params map[string]any, tc *Context) Result {
			return Failure("delegate_background must be handled by the session processor, not executed directly.")
		},
		WithSkipApproval(),
	)
}

// NewCheckBackgroundTaskTool declares the background status polling tool.
func NewCheckBackgroundTaskTool() Tool {
	return NewFunctionTool(
		CheckBackgroundTaskName,
		"Check the status of a background task by its task_id.\n\n"+
			`Example: { "task_id": "abc-123" }`,
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"task_id": map[string]any{
					"type":        "string",
					"description": "The ID of the background task to check",
				},
			},
			"required":             []string{"task_id"},
			"additionalProperties": false,
		},
		func(ctx context.Context, params map[string]any, tc *Context) Result {
			return Failure("check_background_task must be handled by the session processor, not executed directly.")
		},
		WithSkipApproval(),
	)
}

// NewReportResultTool declares the completion signal tool. Unlike the other
// delegation tools it executes normally; the session processor additionally
// uses a successful call as the signal to end the agent loop.
func NewReportResultTool() Tool {
	return NewFunctionTool(
		ReportResultName,
		"Report the result of your task. Use this when you have completed the work "+
			"assigned to you. The result will be returned to the agent that delegated to you.\n\n"+
			`Example: { "result": "Successfully added error handling to login.py" }`,
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"result": map[string]any{
					"type":        "string",
					"description": "The result or summary of the completed task",
				},
			},
			"required":             []string{"result"},
			"additionalProperties": false,
		},
		func(ctx context.Context, params map[string]any, tc *Context) Result {
			result, _ := params["result"].(string)
			return Success(fmt.Sprintf("Result reported: %s", result))
		},
		WithSkipApproval(),
		WithAlwaysAvailable(),
	)
}
