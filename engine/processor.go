// Package engine runs the agent loop: it drives a model provider against a
// tool registry for one agent run, and wires delegation, background tasks
// and the surrounding lifecycle into a single application object.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/agentcore/agent"
	"github.com/hupe1980/agentcore/bus"
	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/hook"
	"github.com/hupe1980/agentcore/logging"
	"github.com/hupe1980/agentcore/permission"
	"github.com/hupe1980/agentcore/provider"
	"github.com/hupe1980/agentcore/tool"
)

// DelegationHandler runs a blocking child delegation and returns its result.
type DelegationHandler func(ctx context.Context, fromRun *core.AgentRun, targetRole, description string) (string, error)

// BackgroundHandler submits a fire-and-forget delegation and returns a task id.
type BackgroundHandler func(ctx context.Context, fromRun *core.AgentRun, targetRole, description string) (string, error)

// BackgroundStatusHandler returns human-readable status text for a task id.
type BackgroundStatusHandler func(ctx context.Context, taskID string) string

// ProcessorConfig carries the dependencies of a SessionProcessor.
type ProcessorConfig struct {
	Agent            *agent.Definition
	Provider         provider.Provider
	Tools            *tool.Registry
	Permissions      *permission.Checker
	Hooks            *hook.Registry
	Bus              *bus.Bus
	Store            core.Store
	WorkingDirectory string
	Callbacks        *Callbacks
	Logger           logging.Logger

	DelegationHandler       DelegationHandler
	BackgroundHandler       BackgroundHandler
	BackgroundStatusHandler BackgroundStatusHandler
}

// SessionProcessor runs the model→tool loop for a single agent run.
//
// Delegation tool calls are intercepted and routed to the configured
// handlers instead of the tool registry; report_result ends the loop and
// becomes the run result.
type SessionProcessor struct {
	cfg ProcessorConfig
}

// NewSessionProcessor creates a processor. Logger defaults to NoOpLogger.
func NewSessionProcessor(cfg ProcessorConfig) *SessionProcessor {
	if cfg.Logger == nil {
		cfg.Logger = logging.NoOpLogger{}
	}
	return &SessionProcessor{cfg: cfg}
}

// pendingCall is one complete tool call collected from the response stream.
type pendingCall struct {
	id, name, args string
}

// Process runs the loop until the agent produces a final answer, calls
// report_result, a hook cancels, or the iteration bound is hit. It returns
// the final result text; an error return means the model call itself failed
// and the run's terminal state is the caller's responsibility.
func (p *SessionProcessor) Process(ctx context.Context, run *core.AgentRun, userMessage string, conversation []provider.ChatMessage) (string, error) {
	cfg := p.cfg
	systemPrompt := cfg.Agent.SystemPrompt(cfg.WorkingDirectory)

	allowed, denied := cfg.Agent.ToolFilter()
	availableTools := cfg.Tools.ToolsForAgent(allowed, denied)
	toolDefs := tool.Definitions(availableTools)

	conversation = append(conversation, provider.ChatMessage{Role: "user", Content: userMessage})
	if err := cfg.Store.AddMessage(ctx, core.NewMessage(run.ID, core.RoleUser, userMessage)); err != nil {
		return "", fmt.Errorf("persist user message: %w", err)
	}

	cfg.Bus.Publish(ctx, bus.AgentStart, run.SessionID, cfg.Agent.Role(), map[string]any{
		"run_id":      run.ID,
		"description": run.Description,
	})

	maxIterations := cfg.Agent.Config.MaxIterations
	finalText := ""
	completed := false

	for iteration := 0; iteration < maxIterations; iteration++ {
		hookResult := cfg.Hooks.Run(ctx, hook.BeforeLLMCall, &hook.Context{
			SessionID: run.SessionID,
			AgentRole: cfg.Agent.Role(),
			Data:      map[string]any{"iteration": iteration},
		})
		if hookResult.Cancelled {
			finalText = fmt.Sprintf("LLM call cancelled by hook: %s", hookResult.Reason)
			completed = true
			break
		}

		req := provider.Request{
			SystemPrompt: systemPrompt,
			Messages:     conversation,
			MaxTokens:    cfg.Agent.Config.MaxTokens,
			Temperature:  cfg.Agent.Config.Temperature,
		}
		if len(availableTools) > 0 {
			req.Tools = toolDefs
		}

		textResponse, pending, usage, err := p.drainStream(ctx, run, req)
		if err != nil {
			return "", err
		}
		run.TokenUsage.Add(usage)

		// No tool calls means the agent is done talking.
		if len(pending) == 0 {
			cfg.Callbacks.messageEnd(ctx, usage)
			if textResponse != "" {
				finalText = textResponse
				if err := cfg.Store.AddMessage(ctx, core.NewMessage(run.ID, core.RoleAssistant, textResponse)); err != nil {
					return "", fmt.Errorf("persist assistant message: %w", err)
				}
				conversation = append(conversation, provider.ChatMessage{Role: "assistant", Content: textResponse})
			}
			completed = true
			break
		}

		refs := make([]provider.ToolCallRef, len(pending))
		names := make([]string, len(pending))
		for i, tc := range pending {
			refs[i] = provider.ToolCallRef{ID: tc.id, Name: tc.name, Arguments: tc.args}
			names[i] = tc.name
		}
		conversation = append(conversation, provider.ChatMessage{
			Role:      "assistant",
			Content:   textResponse,
			ToolCalls: refs,
		})

		assistantContent := textResponse
		if assistantContent == "" {
			assistantContent = fmt.Sprintf("[Tool calls: %s]", strings.Join(names, ", "))
		}
		if err := cfg.Store.AddMessage(ctx, core.NewMessage(run.ID, core.RoleAssistant, assistantContent)); err != nil {
			return "", fmt.Errorf("persist assistant message: %w", err)
		}

		shouldBreak := false
		for _, tc := range pending {
			var params map[string]any
			if tc.args != "" {
				if err := json.Unmarshal([]byte(tc.args), &params); err != nil {
					params = map[string]any{}
				}
			}
			if params == nil {
				params = map[string]any{}
			}

			var result tool.Result
			switch {
			case tc.name == tool.DelegateTaskName && cfg.DelegationHandler != nil:
				result = p.handleDelegation(ctx, run, params)
			case tc.name == tool.DelegateBackgroundName && cfg.BackgroundHandler != nil:
				result = p.handleBackground(ctx, run, params)
			case tc.name == tool.CheckBackgroundTaskName && cfg.BackgroundStatusHandler != nil:
				taskID, _ := params["task_id"].(string)
				result = tool.Success(cfg.BackgroundStatusHandler(ctx, taskID))
			case tc.name == tool.ReportResultName:
				resultText, _ := params["result"].(string)
				run.Complete(core.RunCompleted, resultText)
				finalText = resultText
				result = tool.Success(fmt.Sprintf("Result reported: %s", resultText))
				conversation = append(conversation, provider.ChatMessage{
					Role:       "tool",
					ToolCallID: tc.id,
					Content:    result.Output,
				})
				shouldBreak = true
			case tc.name == tool.TodoWriteName:
				result = p.handleTodoWrite(ctx, run, params)
			case tc.name == tool.TodoReadName:
				result = p.handleTodoRead(ctx, run)
			default:
				result = p.executeTool(ctx, run, tc, params)
			}
			if shouldBreak {
				break
			}

			toolContent := result.Output
			if result.IsError {
				toolContent = fmt.Sprintf("Error: %s", result.Error)
			}
			conversation = append(conversation, provider.ChatMessage{
				Role:       "tool",
				ToolCallID: tc.id,
				Content:    toolContent,
			})
		}

		cfg.Callbacks.messageEnd(ctx, usage)

		if shouldBreak {
			completed = true
			break
		}
	}

	if !completed {
		finalText = fmt.Sprintf(
			"Reached maximum iterations (%d) without completing. The task may be incomplete.",
			maxIterations,
		)
	}

	if run.Status == core.RunRunning {
		result := run.Result
		if result == "" {
			result = finalText
		}
		run.Complete(core.RunCompleted, result)
	}
	if err := cfg.Store.UpdateAgentRun(ctx, run); err != nil {
		return "", fmt.Errorf("persist agent run: %w", err)
	}

	cfg.Bus.Publish(ctx, bus.AgentEnd, run.SessionID, cfg.Agent.Role(), map[string]any{
		"run_id": run.ID,
		"result": finalText,
	})

	return finalText, nil
}

// drainStream consumes one provider response, forwarding text to callbacks
// and the bus, and collecting complete tool calls.
func (p *SessionProcessor) drainStream(ctx context.Context, run *core.AgentRun, req provider.Request) (string, []pendingCall, core.TokenUsage, error) {
	cfg := p.cfg

	events, errs := cfg.Provider.CreateMessage(ctx, req)

	var text strings.Builder
	var pending []pendingCall
	var usage core.TokenUsage

	for event := range events {
		switch event.Type {
		case provider.TextDelta:
			text.WriteString(event.Text)
			cfg.Callbacks.textDelta(ctx, event.Text)
			cfg.Bus.Publish(ctx, bus.TokenStream, run.SessionID, cfg.Agent.Role(), map[string]any{
				"token":  event.Text,
				"run_id": run.ID,
			})

		case provider.ToolCallStart:
			cfg.Callbacks.toolCallStart(ctx, event.ToolCallID, event.ToolName)

		case provider.ToolCallDelta:
			cfg.Callbacks.toolCallDelta(ctx, event.ToolCallID, event.ToolName, event.ToolArgs)

		case provider.ToolCallEnd:
			pending = append(pending, pendingCall{
				id:   event.ToolCallID,
				name: event.ToolName,
				args: event.ToolArgs,
			})

		case provider.MessageEnd:
			usage.InputTokens = event.InputTokens
			usage.OutputTokens = event.OutputTokens
			cfg.Bus.Publish(ctx, bus.ResponseComplete, run.SessionID, cfg.Agent.Role(), map[string]any{
				"run_id":        run.ID,
				"input_tokens":  event.InputTokens,
				"output_tokens": event.OutputTokens,
			})
		}
	}
	if err := <-errs; err != nil {
		return "", nil, usage, fmt.Errorf("model call failed: %w", err)
	}

	return text.String(), pending, usage, nil
}

// handleDelegation routes a delegate_task call to the delegation handler.
// Handler failures become tool results so the agent can react.
func (p *SessionProcessor) handleDelegation(ctx context.Context, run *core.AgentRun, params map[string]any) tool.Result {
	cfg := p.cfg
	targetRole, _ := params["agent_role"].(string)
	description, _ := params["description"].(string)

	if !cfg.Agent.CanDelegate(targetRole) {
		return tool.Failure("Agent '%s' cannot delegate to '%s'. Allowed: %v",
			cfg.Agent.Role(), targetRole, cfg.Agent.Config.CanDelegateTo)
	}

	cfg.Bus.Publish(ctx, bus.DelegationStart, run.SessionID, cfg.Agent.Role(), map[string]any{
		"target_role": targetRole,
		"description": description,
	})

	resultText, err := cfg.DelegationHandler(ctx, run, targetRole, description)
	if err != nil {
		resultText = fmt.Sprintf("Delegation failed: %v", err)
	}

	cfg.Bus.Publish(ctx, bus.DelegationEnd, run.SessionID, cfg.Agent.Role(), map[string]any{
		"target_role": targetRole,
		"result":      truncate(resultText, 200),
	})

	return tool.Success(fmt.Sprintf("Delegation result from %s:\n%s", targetRole, resultText))
}

// handleBackground routes a delegate_background call to the background
// handler and returns the task id reference.
func (p *SessionProcessor) handleBackground(ctx context.Context, run *core.AgentRun, params map[string]any) tool.Result {
	cfg := p.cfg
	targetRole, _ := params["agent_role"].(string)
	description, _ := params["description"].(string)

	if !cfg.Agent.CanDelegate(targetRole) {
		return tool.Failure("Agent '%s' cannot delegate to '%s'.", cfg.Agent.Role(), targetRole)
	}

	taskID, err := cfg.BackgroundHandler(ctx, run, targetRole, description)
	if err != nil {
		return tool.Failure("Background delegation failed: %v", err)
	}

	return tool.Success(fmt.Sprintf(
		"Background task submitted. task_id: %s. Use check_background_task to check status.", taskID))
}

// executeTool runs a regular tool call with permission, hook and approval
// gates, records the audit trail and publishes lifecycle events.
func (p *SessionProcessor) executeTool(ctx context.Context, run *core.AgentRun, tc pendingCall, params map[string]any) tool.Result {
	cfg := p.cfg

	tl := cfg.Tools.Get(tc.name)
	if tl == nil {
		result := tool.Failure("Unknown tool: %s", tc.name)
		p.recordToolCall(ctx, run.ID, tc, result, 0, "")
		return result
	}

	filePath, _ := params["path"].(string)

	if cfg.Permissions.IsDenied(cfg.Agent.Role(), tc.name, filePath) {
		result := tool.Failure("Tool '%s' denied by permission rules for agent '%s'.", tc.name, cfg.Agent.Role())
		p.recordToolCall(ctx, run.ID, tc, result, 0, core.ToolCallDenied)
		return result
	}

	hookResult := cfg.Hooks.Run(ctx, hook.BeforeToolCall, &hook.Context{
		SessionID: run.SessionID,
		AgentRole: cfg.Agent.Role(),
		Data:      map[string]any{"tool_name": tc.name, "params": params},
	})
	if hookResult.Cancelled {
		result := tool.Failure("Tool call cancelled by hook: %s", hookResult.Reason)
		p.recordToolCall(ctx, run.ID, tc, result, 0, core.ToolCallDenied)
		return result
	}

	if !tl.SkipApproval() {
		if result, denied := p.checkApproval(ctx, run, tc, params, filePath); denied {
			return result
		}
	}

	cfg.Bus.Publish(ctx, bus.ToolCallStart, run.SessionID, cfg.Agent.Role(), map[string]any{
		"tool_name":    tc.name,
		"tool_call_id": tc.id,
	})

	toolCtx := &tool.Context{
		SessionID:        run.SessionID,
		AgentRunID:       run.ID,
		AgentRole:        cfg.Agent.Role(),
		WorkingDirectory: cfg.WorkingDirectory,
		RequestUserInput: cfg.Callbacks.userInput(),
	}

	start := time.Now()
	result := p.safeExecute(ctx, tl, params, toolCtx)
	duration := time.Since(start)

	p.recordToolCall(ctx, run.ID, tc, result, duration, "")

	cfg.Bus.Publish(ctx, bus.ToolCallEnd, run.SessionID, cfg.Agent.Role(), map[string]any{
		"tool_name":    tc.name,
		"tool_call_id": tc.id,
		"is_error":     result.IsError,
		"duration_ms":  duration.Milliseconds(),
	})

	cfg.Callbacks.toolCallEnd(ctx, tc.id, tc.name, result)

	cfg.Hooks.Run(ctx, hook.AfterToolCall, &hook.Context{
		SessionID: run.SessionID,
		AgentRole: cfg.Agent.Role(),
		Data:      map[string]any{"tool_name": tc.name, "result": truncate(result.Output, 500)},
	})

	return result
}

// checkApproval runs the ask-policy approval flow. The returned bool is
// true when the call was denied and result should be used as-is.
func (p *SessionProcessor) checkApproval(ctx context.Context, run *core.AgentRun, tc pendingCall, params map[string]any, filePath string) (tool.Result, bool) {
	cfg := p.cfg

	policy := cfg.Permissions.Check(cfg.Agent.Role(), tc.name, filePath)
	if policy != permission.PolicyAsk {
		return tool.Result{}, false
	}

	// An "always" answer earlier in the session settles the question.
	if approved, ok := cfg.Tools.SessionApproval(tc.name); ok {
		if approved {
			return tool.Result{}, false
		}
		result := tool.Failure("Tool '%s' denied by user.", tc.name)
		p.recordToolCall(ctx, run.ID, tc, result, 0, core.ToolCallDenied)
		cfg.Callbacks.toolCallEnd(ctx, tc.id, tc.name, result)
		return result, true
	}

	if !cfg.Callbacks.canRequestApproval() {
		return tool.Result{}, false
	}

	cfg.Bus.Publish(ctx, bus.ToolApprovalRequired, run.SessionID, cfg.Agent.Role(), map[string]any{
		"tool_name": tc.name,
		"params":    params,
	})

	response, err := cfg.Callbacks.OnToolApprovalRequest(ctx, tc.name, tc.id, params)
	if err != nil {
		response = ""
	}
	switch response {
	case "always":
		cfg.Tools.SetSessionApproval(tc.name, true)
	case "y":
	default:
		result := tool.Failure("Tool '%s' denied by user.", tc.name)
		p.recordToolCall(ctx, run.ID, tc, result, 0, core.ToolCallDenied)
		cfg.Callbacks.toolCallEnd(ctx, tc.id, tc.name, result)
		return result, true
	}
	return tool.Result{}, false
}

// safeExecute isolates tool panics into error results.
func (p *SessionProcessor) safeExecute(ctx context.Context, tl tool.Tool, params map[string]any, toolCtx *tool.Context) (result tool.Result) {
	defer func() {
		if r := recover(); r != nil {
			p.cfg.Logger.Error("tool.panic", "tool", tl.Name(), "recover", r)
			result = tool.Failure("Tool execution error: %v", r)
		}
	}()
	return tl.Execute(ctx, params, toolCtx)
}

func (p *SessionProcessor) recordToolCall(ctx context.Context, runID string, tc pendingCall, result tool.Result, duration time.Duration, status string) {
	if status == "" {
		status = core.ToolCallSuccess
		if result.IsError {
			status = core.ToolCallError
		}
	}
	record := core.NewToolCallRecord(runID, tc.name, tc.args, result.Content(), status, duration)
	if err := p.cfg.Store.AddToolCall(ctx, record); err != nil {
		p.cfg.Logger.Error("tool.record.failed", "tool", tc.name, "error", err.Error())
	}
}

// handleTodoWrite persists the replacement list and publishes the update.
func (p *SessionProcessor) handleTodoWrite(ctx context.Context, run *core.AgentRun, params map[string]any) tool.Result {
	cfg := p.cfg
	todos := tool.ParseTodoParams(run.SessionID, params)

	if err := cfg.Store.ReplaceTodos(ctx, run.SessionID, todos); err != nil {
		return tool.Failure("Failed to update todos: %v", err)
	}

	cfg.Bus.Publish(ctx, bus.TodoUpdated, run.SessionID, cfg.Agent.Role(), map[string]any{
		"todos": todos,
	})

	return tool.Success(tool.TodoSummary(todos))
}

// handleTodoRead answers from the store.
func (p *SessionProcessor) handleTodoRead(ctx context.Context, run *core.AgentRun) tool.Result {
	todos, err := p.cfg.Store.GetTodos(ctx, run.SessionID)
	if err != nil {
		return tool.Failure("Failed to read todos: %v", err)
	}
	if len(todos) == 0 {
		return tool.Success("No todos for this session.")
	}
	return tool.Success(fmt.Sprintf("Current todo list:\n%s", tool.TodoLines(todos)))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
