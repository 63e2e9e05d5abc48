package memory

import (
	"context"
	"testing"
	"time"

	"github.com/hupe1980/agentcore/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	sess := core.NewSession("fix the build", "/work")
	require.NoError(t, s.CreateSession(ctx, sess))

	got, err := s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, core.SessionActive, got.Status)

	got.Status = core.SessionCompleted
	got.TokenUsage.Add(core.TokenUsage{InputTokens: 10, OutputTokens: 5})
	require.NoError(t, s.UpdateSession(ctx, got))

	got, err = s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, core.SessionCompleted, got.Status)
	assert.Equal(t, 15, got.TokenUsage.Total())
}

func TestStore_GetUnknownReturnsNil(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	sess, err := s.GetSession(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, sess)

	run, err := s.GetAgentRun(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestStore_AgentRunChain(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	root := core.NewAgentRun("s1", "orchestrator", "do everything")
	require.NoError(t, s.CreateAgentRun(ctx, root))

	child := core.NewChildRun(root, "coder", "do one thing")
	require.NoError(t, s.CreateAgentRun(ctx, child))

	got, err := s.GetAgentRun(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, root.ID, got.ParentRunID)
	assert.Equal(t, "s1", got.SessionID)

	got.Complete(core.RunCompleted, "done")
	require.NoError(t, s.UpdateAgentRun(ctx, got))

	got, err = s.GetAgentRun(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, core.RunCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)
}

func TestStore_MessagesAndToolCalls(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	require.NoError(t, s.AddMessage(ctx, core.NewMessage("run1", core.RoleUser, "hi")))
	require.NoError(t, s.AddMessage(ctx, core.NewMessage("run1", core.RoleAssistant, "hello")))
	require.NoError(t, s.AddToolCall(ctx, core.NewToolCallRecord(
		"run1", "read_file", `{"path":"a.txt"}`, "contents", core.ToolCallSuccess, 5*time.Millisecond,
	)))

	msgs := s.Messages("run1")
	require.Len(t, msgs, 2)
	assert.Equal(t, core.RoleUser, msgs[0].Role)

	calls := s.ToolCalls("run1")
	require.Len(t, calls, 1)
	assert.Equal(t, core.ToolCallSuccess, calls[0].Status)
}

func TestStore_ReplaceTodos(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	require.NoError(t, s.ReplaceTodos(ctx, "s1", []core.TodoItem{
		{ID: "1", SessionID: "s1", Content: "first", Status: "pending", Priority: "medium"},
	}))
	require.NoError(t, s.ReplaceTodos(ctx, "s1", []core.TodoItem{
		{ID: "2", SessionID: "s1", Content: "second", Status: "in_progress", Priority: "high"},
	}))

	todos, err := s.GetTodos(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.Equal(t, "second", todos[0].Content)
}
