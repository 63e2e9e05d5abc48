package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentcore/agent"
	"github.com/hupe1980/agentcore/bus"
	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/hook"
	"github.com/hupe1980/agentcore/permission"
	"github.com/hupe1980/agentcore/provider"
	"github.com/hupe1980/agentcore/store/memory"
	"github.com/hupe1980/agentcore/tool"
)

func echoTool() tool.Tool {
	return tool.NewFunctionTool(
		"echo",
		"Echoes the text parameter back.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
			"required": []string{"text"},
		},
		func(_ context.Context, params map[string]any, _ *tool.Context) tool.Result {
			text, _ := params["text"].(string)
			return tool.Success(text)
		},
	)
}

func panicTool() tool.Tool {
	return tool.NewFunctionTool(
		"boom",
		"Panics on execution.",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ context.Context, _ map[string]any, _ *tool.Context) tool.Result {
			panic("boom")
		},
	)
}

type procFixture struct {
	processor *SessionProcessor
	store     *memory.Store
	bus       *bus.Bus
	mock      *provider.MockProvider
	run       *core.AgentRun
}

func newProcFixture(t *testing.T, mutate func(cfg *ProcessorConfig)) *procFixture {
	t.Helper()

	mock := provider.NewMockProvider()
	st := memory.NewStore()
	b := bus.New()

	tools := tool.NewRegistry()
	tools.Register(echoTool())
	tools.Register(panicTool())
	for _, tl := range tool.DelegationTools() {
		tools.Register(tl)
	}
	for _, tl := range tool.TodoTools() {
		tools.Register(tl)
	}

	cfg := ProcessorConfig{
		Agent:            agent.NewDefinition(agent.Config{Role: "assistant", MaxIterations: 10}),
		Provider:         mock,
		Tools:            tools,
		Permissions:      permission.NewChecker(nil),
		Hooks:            hook.NewRegistry(),
		Bus:              b,
		Store:            st,
		WorkingDirectory: t.TempDir(),
	}
	if mutate != nil {
		mutate(&cfg)
	}

	run := core.NewAgentRun("session-1", cfg.Agent.Role(), "test task")
	require.NoError(t, st.CreateAgentRun(context.Background(), run))

	return &procFixture{
		processor: NewSessionProcessor(cfg),
		store:     st,
		bus:       b,
		mock:      mock,
		run:       run,
	}
}

func TestProcessorTextResponse(t *testing.T) {
	f := newProcFixture(t, nil)
	f.mock.AddTextTurn("Hello there.")

	result, err := f.processor.Process(context.Background(), f.run, "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello there.", result)

	assert.Equal(t, core.RunCompleted, f.run.Status)
	assert.Equal(t, "Hello there.", f.run.Result)
	assert.Equal(t, 10, f.run.TokenUsage.InputTokens)
	assert.Equal(t, 5, f.run.TokenUsage.OutputTokens)

	messages := f.store.Messages(f.run.ID)
	require.Len(t, messages, 2)
	assert.Equal(t, core.RoleUser, messages[0].Role)
	assert.Equal(t, core.RoleAssistant, messages[1].Role)
}

func TestProcessorToolCallLoop(t *testing.T) {
	f := newProcFixture(t, nil)
	f.mock.AddToolCallTurn("call-1", "echo", `{"text":"hi"}`)
	f.mock.AddTextTurn("done")

	result, err := f.processor.Process(context.Background(), f.run, "say hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "done", result)

	records := f.store.ToolCalls(f.run.ID)
	require.Len(t, records, 1)
	assert.Equal(t, "echo", records[0].ToolName)
	assert.Equal(t, core.ToolCallSuccess, records[0].Status)
	assert.Equal(t, "hi", records[0].Result)

	// The assistant turn with no text falls back to a tool call marker.
	messages := f.store.Messages(f.run.ID)
	require.Len(t, messages, 3)
	assert.Equal(t, "[Tool calls: echo]", messages[1].Content)

	requests := f.mock.Requests()
	require.Len(t, requests, 2)
	second := requests[1].Messages
	last := second[len(second)-1]
	assert.Equal(t, "tool", last.Role)
	assert.Equal(t, "call-1", last.ToolCallID)
	assert.Equal(t, "hi", last.Content)
}

func TestProcessorBatchContinuesAfterError(t *testing.T) {
	f := newProcFixture(t, nil)
	f.mock.AddTurn(
		provider.StreamEvent{Type: provider.ToolCallStart, ToolCallID: "call-1", ToolName: "missing_tool"},
		provider.StreamEvent{Type: provider.ToolCallEnd, ToolCallID: "call-1", ToolName: "missing_tool", ToolArgs: "{}"},
		provider.StreamEvent{Type: provider.ToolCallStart, ToolCallID: "call-2", ToolName: "echo"},
		provider.StreamEvent{Type: provider.ToolCallEnd, ToolCallID: "call-2", ToolName: "echo", ToolArgs: `{"text":"ok"}`},
	)
	f.mock.AddTextTurn("after")

	result, err := f.processor.Process(context.Background(), f.run, "go", nil)
	require.NoError(t, err)
	assert.Equal(t, "after", result)

	records := f.store.ToolCalls(f.run.ID)
	require.Len(t, records, 2)
	assert.Equal(t, core.ToolCallError, records[0].Status)
	assert.Equal(t, core.ToolCallSuccess, records[1].Status)

	requests := f.mock.Requests()
	require.Len(t, requests, 2)
	second := requests[1].Messages
	assert.Equal(t, "Error: Unknown tool: missing_tool", second[len(second)-2].Content)
	assert.Equal(t, "ok", second[len(second)-1].Content)
}

func TestProcessorReportResultStopsLoop(t *testing.T) {
	f := newProcFixture(t, nil)
	f.mock.AddTurn(
		provider.StreamEvent{Type: provider.ToolCallStart, ToolCallID: "call-1", ToolName: tool.ReportResultName},
		provider.StreamEvent{Type: provider.ToolCallEnd, ToolCallID: "call-1", ToolName: tool.ReportResultName, ToolArgs: `{"result":"answer"}`},
		provider.StreamEvent{Type: provider.ToolCallStart, ToolCallID: "call-2", ToolName: "echo"},
		provider.StreamEvent{Type: provider.ToolCallEnd, ToolCallID: "call-2", ToolName: "echo", ToolArgs: `{"text":"skipped"}`},
	)

	result, err := f.processor.Process(context.Background(), f.run, "go", nil)
	require.NoError(t, err)
	assert.Equal(t, "answer", result)

	assert.Equal(t, core.RunCompleted, f.run.Status)
	assert.Equal(t, "answer", f.run.Result)

	// The echo call queued after report_result is never executed.
	assert.Empty(t, f.store.ToolCalls(f.run.ID))
	assert.Len(t, f.mock.Requests(), 1)
}

func TestProcessorMaxIterations(t *testing.T) {
	f := newProcFixture(t, func(cfg *ProcessorConfig) {
		cfg.Agent = agent.NewDefinition(agent.Config{Role: "assistant", MaxIterations: 2})
	})
	f.mock.AddToolCallTurn("call-1", "echo", `{"text":"one"}`)
	f.mock.AddToolCallTurn("call-2", "echo", `{"text":"two"}`)

	result, err := f.processor.Process(context.Background(), f.run, "loop forever", nil)
	require.NoError(t, err)
	assert.Equal(t, "Reached maximum iterations (2) without completing. The task may be incomplete.", result)
	assert.Equal(t, core.RunCompleted, f.run.Status)
	assert.Len(t, f.mock.Requests(), 2)
}

func TestProcessorBeforeLLMCallHookCancels(t *testing.T) {
	f := newProcFixture(t, nil)
	f.processor.cfg.Hooks.Register(&hook.FuncHook{
		HookName:  "budget",
		HookPoint: hook.BeforeLLMCall,
		Fn: func(_ context.Context, _ *hook.Context) (hook.Result, error) {
			return hook.Result{Cancelled: true, Reason: "budget exhausted"}, nil
		},
	})

	result, err := f.processor.Process(context.Background(), f.run, "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "LLM call cancelled by hook: budget exhausted", result)
	assert.Empty(t, f.mock.Requests())
}

func TestProcessorBeforeToolCallHookCancels(t *testing.T) {
	f := newProcFixture(t, nil)
	f.processor.cfg.Hooks.Register(&hook.FuncHook{
		HookName:  "guard",
		HookPoint: hook.BeforeToolCall,
		Fn: func(_ context.Context, _ *hook.Context) (hook.Result, error) {
			return hook.Result{Cancelled: true, Reason: "blocked"}, nil
		},
	})
	f.mock.AddToolCallTurn("call-1", "echo", `{"text":"hi"}`)
	f.mock.AddTextTurn("done")

	_, err := f.processor.Process(context.Background(), f.run, "go", nil)
	require.NoError(t, err)

	records := f.store.ToolCalls(f.run.ID)
	require.Len(t, records, 1)
	assert.Equal(t, core.ToolCallDenied, records[0].Status)

	requests := f.mock.Requests()
	second := requests[1].Messages
	assert.Equal(t, "Error: Tool call cancelled by hook: blocked", second[len(second)-1].Content)
}

func TestProcessorPermissionDenied(t *testing.T) {
	f := newProcFixture(t, func(cfg *ProcessorConfig) {
		cfg.Permissions = permission.NewChecker([]permission.Rule{
			{Agent: "*", Tool: "echo", Policy: permission.PolicyDeny},
		})
	})
	f.mock.AddToolCallTurn("call-1", "echo", `{"text":"hi"}`)
	f.mock.AddTextTurn("understood")

	_, err := f.processor.Process(context.Background(), f.run, "go", nil)
	require.NoError(t, err)

	records := f.store.ToolCalls(f.run.ID)
	require.Len(t, records, 1)
	assert.Equal(t, core.ToolCallDenied, records[0].Status)

	requests := f.mock.Requests()
	second := requests[1].Messages
	assert.Equal(t, "Error: Tool 'echo' denied by permission rules for agent 'assistant'.", second[len(second)-1].Content)
}

func TestProcessorApprovalDenied(t *testing.T) {
	prompts := 0
	f := newProcFixture(t, func(cfg *ProcessorConfig) {
		cfg.Callbacks = &Callbacks{
			OnToolApprovalRequest: func(_ context.Context, _, _ string, _ map[string]any) (string, error) {
				prompts++
				return "n", nil
			},
		}
	})
	f.mock.AddToolCallTurn("call-1", "echo", `{"text":"hi"}`)
	f.mock.AddTextTurn("ok")

	_, err := f.processor.Process(context.Background(), f.run, "go", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, prompts)
	records := f.store.ToolCalls(f.run.ID)
	require.Len(t, records, 1)
	assert.Equal(t, core.ToolCallDenied, records[0].Status)

	requests := f.mock.Requests()
	second := requests[1].Messages
	assert.Equal(t, "Error: Tool 'echo' denied by user.", second[len(second)-1].Content)
}

func TestProcessorApprovalAlwaysSkipsFurtherPrompts(t *testing.T) {
	prompts := 0
	f := newProcFixture(t, func(cfg *ProcessorConfig) {
		cfg.Callbacks = &Callbacks{
			OnToolApprovalRequest: func(_ context.Context, _, _ string, _ map[string]any) (string, error) {
				prompts++
				return "always", nil
			},
		}
	})
	f.mock.AddToolCallTurn("call-1", "echo", `{"text":"one"}`)
	f.mock.AddToolCallTurn("call-2", "echo", `{"text":"two"}`)
	f.mock.AddTextTurn("done")

	result, err := f.processor.Process(context.Background(), f.run, "go", nil)
	require.NoError(t, err)
	assert.Equal(t, "done", result)

	assert.Equal(t, 1, prompts)
	records := f.store.ToolCalls(f.run.ID)
	require.Len(t, records, 2)
	assert.Equal(t, core.ToolCallSuccess, records[0].Status)
	assert.Equal(t, core.ToolCallSuccess, records[1].Status)
}

func TestProcessorTodoWriteAndRead(t *testing.T) {
	f := newProcFixture(t, nil)
	events := f.bus.Stream(bus.TodoUpdated)

	f.mock.AddToolCallTurn("call-1", tool.TodoWriteName,
		`{"todos":[{"id":"1","content":"write tests","status":"in_progress","priority":"high"}]}`)
	f.mock.AddToolCallTurn("call-2", tool.TodoReadName, `{}`)
	f.mock.AddTextTurn("done")

	result, err := f.processor.Process(context.Background(), f.run, "plan", nil)
	require.NoError(t, err)
	assert.Equal(t, "done", result)

	todos, err := f.store.GetTodos(context.Background(), f.run.SessionID)
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.Equal(t, "write tests", todos[0].Content)
	assert.Equal(t, "in_progress", todos[0].Status)

	requests := f.mock.Requests()
	require.Len(t, requests, 3)
	second := requests[1].Messages
	assert.Equal(t, "Todo list updated (1 in progress)", second[len(second)-1].Content)
	third := requests[2].Messages
	assert.Equal(t, "Current todo list:\n  [→] write tests (!)", third[len(third)-1].Content)

	require.Positive(t, events.Len())
	payload, err := events.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, bus.TodoUpdated, payload.Kind)
}

func TestProcessorDelegationHandler(t *testing.T) {
	var gotRole, gotDescription string
	f := newProcFixture(t, func(cfg *ProcessorConfig) {
		cfg.Agent = agent.NewDefinition(agent.Config{
			Role:          "assistant",
			CanDelegateTo: []string{"explorer"},
		})
		cfg.DelegationHandler = func(_ context.Context, _ *core.AgentRun, targetRole, description string) (string, error) {
			gotRole = targetRole
			gotDescription = description
			return "found it", nil
		}
	})
	f.mock.AddToolCallTurn("call-1", tool.DelegateTaskName,
		`{"agent_role":"explorer","description":"look around"}`)
	f.mock.AddTextTurn("summary")

	result, err := f.processor.Process(context.Background(), f.run, "go", nil)
	require.NoError(t, err)
	assert.Equal(t, "summary", result)
	assert.Equal(t, "explorer", gotRole)
	assert.Equal(t, "look around", gotDescription)

	requests := f.mock.Requests()
	second := requests[1].Messages
	assert.Equal(t, "Delegation result from explorer:\nfound it", second[len(second)-1].Content)
}

func TestProcessorDelegationNotAllowed(t *testing.T) {
	f := newProcFixture(t, func(cfg *ProcessorConfig) {
		cfg.Agent = agent.NewDefinition(agent.Config{
			Role:          "assistant",
			CanDelegateTo: []string{"explorer"},
		})
		cfg.DelegationHandler = func(_ context.Context, _ *core.AgentRun, _, _ string) (string, error) {
			t.Fatal("handler must not run for a disallowed target")
			return "", nil
		}
	})
	f.mock.AddToolCallTurn("call-1", tool.DelegateTaskName,
		`{"agent_role":"oracle","description":"consult"}`)
	f.mock.AddTextTurn("ok")

	_, err := f.processor.Process(context.Background(), f.run, "go", nil)
	require.NoError(t, err)

	requests := f.mock.Requests()
	second := requests[1].Messages
	assert.Equal(t, "Error: Agent 'assistant' cannot delegate to 'oracle'. Allowed: [explorer]", second[len(second)-1].Content)
}

func TestProcessorDelegationFailureBecomesToolResult(t *testing.T) {
	f := newProcFixture(t, func(cfg *ProcessorConfig) {
		cfg.Agent = agent.NewDefinition(agent.Config{
			Role:          "assistant",
			CanDelegateTo: []string{"explorer"},
		})
		cfg.DelegationHandler = func(_ context.Context, _ *core.AgentRun, _, _ string) (string, error) {
			return "", fmt.Errorf("%w (2), cannot delegate further", ErrMaxDepthExceeded)
		}
	})
	f.mock.AddToolCallTurn("call-1", tool.DelegateTaskName,
		`{"agent_role":"explorer","description":"dig deeper"}`)
	f.mock.AddTextTurn("giving up")

	result, err := f.processor.Process(context.Background(), f.run, "go", nil)
	require.NoError(t, err)
	assert.Equal(t, "giving up", result)

	requests := f.mock.Requests()
	second := requests[1].Messages
	assert.Equal(t,
		"Delegation result from explorer:\nDelegation failed: maximum delegation depth reached (2), cannot delegate further",
		second[len(second)-1].Content)
}

func TestProcessorBackgroundHandlers(t *testing.T) {
	f := newProcFixture(t, func(cfg *ProcessorConfig) {
		cfg.Agent = agent.NewDefinition(agent.Config{
			Role:          "assistant",
			CanDelegateTo: []string{"explorer"},
		})
		cfg.BackgroundHandler = func(_ context.Context, _ *core.AgentRun, _, _ string) (string, error) {
			return "task-123", nil
		}
		cfg.BackgroundStatusHandler = func(_ context.Context, taskID string) string {
			return fmt.Sprintf("Background task %s (explorer): still running", taskID)
		}
	})
	f.mock.AddToolCallTurn("call-1", tool.DelegateBackgroundName,
		`{"agent_role":"explorer","description":"index the repo"}`)
	f.mock.AddToolCallTurn("call-2", tool.CheckBackgroundTaskName, `{"task_id":"task-123"}`)
	f.mock.AddTextTurn("queued")

	_, err := f.processor.Process(context.Background(), f.run, "go", nil)
	require.NoError(t, err)

	requests := f.mock.Requests()
	require.Len(t, requests, 3)
	second := requests[1].Messages
	assert.Equal(t,
		"Background task submitted. task_id: task-123. Use check_background_task to check status.",
		second[len(second)-1].Content)
	third := requests[2].Messages
	assert.Equal(t, "Background task task-123 (explorer): still running", third[len(third)-1].Content)
}

func TestProcessorToolPanicRecovered(t *testing.T) {
	f := newProcFixture(t, nil)
	f.mock.AddToolCallTurn("call-1", "boom", `{}`)
	f.mock.AddTextTurn("survived")

	result, err := f.processor.Process(context.Background(), f.run, "go", nil)
	require.NoError(t, err)
	assert.Equal(t, "survived", result)

	records := f.store.ToolCalls(f.run.ID)
	require.Len(t, records, 1)
	assert.Equal(t, core.ToolCallError, records[0].Status)

	requests := f.mock.Requests()
	second := requests[1].Messages
	assert.Equal(t, "Error: Tool execution error: boom", second[len(second)-1].Content)
}

func TestProcessorStreamsTokensToCallbacksAndBus(t *testing.T) {
	var streamed string
	f := newProcFixture(t, func(cfg *ProcessorConfig) {
		cfg.Callbacks = &Callbacks{
			OnTextDelta: func(_ context.Context, text string) { streamed += text },
		}
	})
	tokens := f.bus.Stream(bus.TokenStream)

	f.mock.AddTurn(
		provider.StreamEvent{Type: provider.TextDelta, Text: "Hello "},
		provider.StreamEvent{Type: provider.TextDelta, Text: "world."},
	)

	result, err := f.processor.Process(context.Background(), f.run, "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello world.", result)
	assert.Equal(t, "Hello world.", streamed)

	require.Equal(t, 2, tokens.Len())
	first, err := tokens.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Hello ", first.Data["token"])
}

func TestProcessorForwardsToolCallDeltas(t *testing.T) {
	var deltas string
	f := newProcFixture(t, func(cfg *ProcessorConfig) {
		cfg.Callbacks = &Callbacks{
			OnToolCallDelta: func(_ context.Context, _, _, partialArgs string) { deltas += partialArgs },
		}
	})
	f.mock.AddTurn(
		provider.StreamEvent{Type: provider.ToolCallStart, ToolCallID: "call-1", ToolName: "echo"},
		provider.StreamEvent{Type: provider.ToolCallDelta, ToolCallID: "call-1", ToolName: "echo", ToolArgs: `{"text":`},
		provider.StreamEvent{Type: provider.ToolCallDelta, ToolCallID: "call-1", ToolName: "echo", ToolArgs: `"hi"}`},
		provider.StreamEvent{Type: provider.ToolCallEnd, ToolCallID: "call-1", ToolName: "echo", ToolArgs: `{"text":"hi"}`},
	)
	f.mock.AddTextTurn("done")

	result, err := f.processor.Process(context.Background(), f.run, "go", nil)
	require.NoError(t, err)
	assert.Equal(t, "done", result)
	assert.Equal(t, `{"text":"hi"}`, deltas)
}

type failingProvider struct{ err error }

func (p *failingProvider) CreateMessage(_ context.Context, _ provider.Request) (<-chan provider.StreamEvent, <-chan error) {
	events := make(chan provider.StreamEvent)
	errs := make(chan error, 1)
	errs <- p.err
	close(events)
	close(errs)
	return events, errs
}

func (p *failingProvider) Info() provider.ModelInfo {
	return provider.ModelInfo{Provider: "test", ModelID: "failing"}
}

func TestProcessorProviderErrorSurfaces(t *testing.T) {
	f := newProcFixture(t, func(cfg *ProcessorConfig) {
		cfg.Provider = &failingProvider{err: fmt.Errorf("rate limited")}
	})

	_, err := f.processor.Process(context.Background(), f.run, "hi", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model call failed")
	assert.Contains(t, err.Error(), "rate limited")
	// Terminal state is the caller's responsibility on provider failure.
	assert.Equal(t, core.RunRunning, f.run.Status)
}
