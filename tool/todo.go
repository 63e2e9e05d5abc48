package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/agentcore/core"
)

// TodoWriteName and TodoReadName are handled inline by the session
// processor, which persists the list and injects it into context.
const (
	TodoWriteName = "todo_write"
	TodoReadName  = "todo_read"
)

const todoWriteDescription = `Use this tool to create and manage a structured task list for your current session. This helps you track progress, organize complex tasks, and demonstrate thoroughness to the user.

## When to Use This Tool

1. Complex multistep tasks - when a task requires 3 or more distinct steps
2. Non-trivial tasks that require careful planning or multiple operations
3. The user explicitly requests a todo list
4. The user provides multiple tasks (numbered or comma-separated)
5. After receiving new instructions - capture requirements as todos
6. After completing a task - mark it complete and add follow-ups
7. When you start working on a task, mark it in_progress. Only have one todo in_progress at a time.

## When NOT to Use This Tool

Skip it when there is only a single straightforward task, the task is trivial, or the request is purely conversational.

## Task States and Management

1. Task states: pending, in_progress (limit to ONE at a time), completed, cancelled
2. Update status in real-time as you work; mark tasks complete immediately after finishing
3. Priority levels: high (blocking other work), medium (default), low (can be deferred)
4. Create specific, actionable items and break complex tasks into smaller steps

When in doubt, use this tool.`

// TodoTools returns the todo_write and todo_read declarations.
func TodoTools() []Tool {
	return []Tool{NewTodoWriteTool(), NewTodoReadTool()}
}

// IsTodoTool reports whether name is one of the inline-handled todo tools.
func IsTodoTool(name string) bool {
	return name == TodoWriteName || name == TodoReadName
}

// NewTodoWriteTool declares the tool that replaces the session todo list.
func NewTodoWriteTool() Tool {
	return NewFunctionTool(
		TodoWriteName,
		todoWriteDescription,
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"todos": map[string]any{
					"type":        "array",
					"description": "The complete todo list to replace the current one. Each item should have id, content, status, and priority.",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"id": map[string]any{
								"type":        "string",
								"description": "Unique identifier for the todo item. Use existing IDs for updates, new UUID for new items.",
							},
							"content": map[string]any{
								"type":        "string",
								"description": "Brief description of the task",
							},
							"status": map[string]any{
								"type":        "string",
								"enum":        []string{"pending", "in_progress", "completed", "cancelled"},
								"description": "Current status of the task",
							},
							"priority": map[string]any{
								"type":        "string",
								"enum":        []string{"high", "medium", "low"},
								"description": "Priority level of the task",
							},
						},
						"required": []string{"id", "content", "status", "priority"},
					},
				},
			},
			"required": []string{"todos"},
		},
		func(ctx context.Context, params map[string]any, tc *Context) Result {
			todos := ParseTodoParams(tc.SessionID, params)
			return Success(FormatTodoList(todos))
		},
		WithSkipApproval(),
		WithAlwaysAvailable(),
	)
}

// NewTodoReadTool declares the tool that reads the session todo list. The
// session processor answers it from the store.
func NewTodoReadTool() Tool {
	return NewFunctionTool(
		TodoReadName,
		"Read the current todo list for this session. "+
			"Use this tool proactively to check what tasks are pending or in progress. "+
			"Call this at the beginning of conversations, before starting new tasks, "+
			"and after completing work to stay aligned with the overall plan.",
		map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		func(ctx context.Context, params map[string]any, tc *Context) Result {
			return Success("Reading current todo list...")
		},
		WithSkipApproval(),
		WithAlwaysAvailable(),
	)
}

// ParseTodoParams converts the todo_write argument payload into todo items
// bound to the session. Unknown or missing fields default rather than fail,
// matching the tolerant handling models need.
func ParseTodoParams(sessionID string, params map[string]any) []core.TodoItem {
	raw, _ := params["todos"].([]any)
	todos := make([]core.TodoItem, 0, len(raw))
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		item := core.TodoItem{
			SessionID: sessionID,
			Status:    "pending",
			Priority:  "medium",
		}
		if v, ok := m["id"].(string); ok {
			item.ID = v
		}
		if v, ok := m["content"].(string); ok {
			item.Content = v
		}
		if v, ok := m["status"].(string); ok && v != "" {
			item.Status = v
		}
		if v, ok := m["priority"].(string); ok && v != "" {
			item.Priority = v
		}
		todos = append(todos, item)
	}
	return todos
}

// TodoSummary renders the count summary, e.g.
// "Todo list updated (1 completed, 2 pending)".
func TodoSummary(todos []core.TodoItem) string {
	var pending, inProgress, completed, cancelled int
	for _, todo := range todos {
		switch todo.Status {
		case "pending":
			pending++
		case "in_progress":
			inProgress++
		case "completed":
			completed++
		case "cancelled":
			cancelled++
		}
	}

	var parts []string
	if completed > 0 {
		parts = append(parts, fmt.Sprintf("%d completed", completed))
	}
	if inProgress > 0 {
		parts = append(parts, fmt.Sprintf("%d in progress", inProgress))
	}
	if pending > 0 {
		parts = append(parts, fmt.Sprintf("%d pending", pending))
	}
	if cancelled > 0 {
		parts = append(parts, fmt.Sprintf("%d cancelled", cancelled))
	}

	summary := "empty"
	if len(parts) > 0 {
		summary = strings.Join(parts, ", ")
	}
	return fmt.Sprintf("Todo list updated (%s)", summary)
}

// TodoLines renders the list body with status symbols and priority markers.
func TodoLines(todos []core.TodoItem) string {
	if len(todos) == 0 {
		return "(empty todo list)"
	}

	lines := make([]string, 0, len(todos))
	for _, todo := range todos {
		var symbol string
		switch todo.Status {
		case "pending":
			symbol = "[ ]"
		case "in_progress":
			symbol = "[→]"
		case "completed":
			symbol = "[✓]"
		case "cancelled":
			symbol = "[✗]"
		default:
			symbol = "[?]"
		}

		var priority string
		switch todo.Priority {
		case "high":
			priority = " (!)"
		case "low":
			priority = " (↓)"
		}
		lines = append(lines, fmt.Sprintf("  %s %s%s", symbol, todo.Content, priority))
	}
	return strings.Join(lines, "\n")
}

// FormatTodoList combines summary and body for display.
func FormatTodoList(todos []core.TodoItem) string {
	return fmt.Sprintf("%s:\n%s", TodoSummary(todos), TodoLines(todos))
}
