package tool

import (
	"context"
	"testing"

	"github.com/hupe1980/agentcore/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTool() *FunctionTool {
	return NewFunctionTool(
		"echo",
		"Echo the input back",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
			"required": []string{"text"},
		},
		func(ctx context.Context, params map[string]any, tc *Context) Result {
			return Success(params["text"].(string))
		},
	)
}

func TestFunctionTool_Execute(t *testing.T) {
	tl := echoTool()

	res := tl.Execute(context.Background(), map[string]any{"text": "hello"}, &Context{})
	assert.False(t, res.IsError)
	assert.Equal(t, "hello", res.Output)
	assert.Equal(t, "hello", res.Content())
}

func TestFunctionTool_ValidationFailure(t *testing.T) {
	tl := echoTool()

	res := tl.Execute(context.Background(), map[string]any{}, &Context{})
	assert.True(t, res.IsError)
	assert.Contains(t, res.Error, "parameter validation failed")
	assert.Equal(t, res.Error, res.Content())
}

func TestRegistry_ToolsForAgent(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool())
	for _, dt := range DelegationTools() {
		r.Register(dt)
	}

	all := r.ToolsForAgent(nil, nil)
	assert.Len(t, all, 5)

	allowed := r.ToolsForAgent([]string{"echo", "report_result"}, nil)
	require.Len(t, allowed, 2)
	assert.Equal(t, "echo", allowed[0].Name())

	denied := r.ToolsForAgent(nil, []string{"delegate_task", "delegate_background"})
	assert.Len(t, denied, 3)
}

func TestRegistry_AlwaysAvailableBypassesAllowList(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool())
	for _, tt := range TodoTools() {
		r.Register(tt)
	}

	names := func(tools []Tool) []string {
		out := make([]string, len(tools))
		for i, tl := range tools {
			out[i] = tl.Name()
		}
		return out
	}

	// The todo tools ride along even when the allow-list excludes them.
	assert.ElementsMatch(t, []string{"echo", TodoWriteName, TodoReadName},
		names(r.ToolsForAgent([]string{"echo"}, nil)))

	// An explicit denial still removes them.
	assert.ElementsMatch(t, []string{"echo"},
		names(r.ToolsForAgent([]string{"echo"}, []string{TodoWriteName, TodoReadName})))
}

func TestRegistry_SessionApprovals(t *testing.T) {
	r := NewRegistry()

	_, ok := r.SessionApproval("echo")
	assert.False(t, ok)

	r.SetSessionApproval("echo", true)
	approved, ok := r.SessionApproval("echo")
	assert.True(t, ok)
	assert.True(t, approved)

	r.ClearSessionApprovals()
	_, ok = r.SessionApproval("echo")
	assert.False(t, ok)
}

func TestDelegationTools_PlaceholdersFail(t *testing.T) {
	ctx := context.Background()
	tc := &Context{SessionID: "s1"}

	for _, name := range []string{DelegateTaskName, DelegateBackgroundName} {
		var tl Tool
		for _, dt := range DelegationTools() {
			if dt.Name() == name {
				tl = dt
			}
		}
		require.NotNil(t, tl)
		assert.True(t, tl.SkipApproval())

		res := tl.Execute(ctx, map[string]any{"agent_role": "coder", "description": "do it"}, tc)
		assert.True(t, res.IsError)
		assert.Contains(t, res.Error, "must be handled by the session processor")
	}
}

func TestReportResultTool(t *testing.T) {
	tl := NewReportResultTool()

	res := tl.Execute(context.Background(), map[string]any{"result": "all done"}, &Context{})
	require.False(t, res.IsError)
	assert.Equal(t, "Result reported: all done", res.Output)
}

func TestIsDelegationTool(t *testing.T) {
	assert.True(t, IsDelegationTool("delegate_task"))
	assert.True(t, IsDelegationTool("report_result"))
	assert.False(t, IsDelegationTool("read_file"))
}

func TestParseTodoParams(t *testing.T) {
	params := map[string]any{
		"todos": []any{
			map[string]any{"id": "1", "content": "write tests", "status": "in_progress", "priority": "high"},
			map[string]any{"id": "2", "content": "ship it"},
		},
	}

	todos := ParseTodoParams("s1", params)
	require.Len(t, todos, 2)
	assert.Equal(t, "s1", todos[0].SessionID)
	assert.Equal(t, "in_progress", todos[0].Status)
	assert.Equal(t, "pending", todos[1].Status)
	assert.Equal(t, "medium", todos[1].Priority)
}

func TestFormatTodoList(t *testing.T) {
	out := FormatTodoList([]core.TodoItem{
		{Content: "write tests", Status: "completed", Priority: "medium"},
		{Content: "ship it", Status: "pending", Priority: "high"},
	})

	assert.Contains(t, out, "Todo list updated (1 completed, 1 pending):")
	assert.Contains(t, out, "[✓] write tests")
	assert.Contains(t, out, "[ ] ship it (!)")

	assert.Contains(t, FormatTodoList(nil), "(empty todo list)")
}

func TestDefinitions(t *testing.T) {
	defs := Definitions([]Tool{echoTool()})
	require.Len(t, defs, 1)
	assert.Equal(t, "echo", defs[0].Name)
	assert.NotEmpty(t, defs[0].Description)
	assert.Equal(t, "object", defs[0].Parameters["type"])
}
