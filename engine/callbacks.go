package engine

import (
	"context"

	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/tool"
)

// Callbacks surfaces session processing events to an interactive frontend.
// Every field is optional; a nil callback is skipped.
type Callbacks struct {
	// OnTextDelta receives streamed response text fragments.
	OnTextDelta func(ctx context.Context, text string)

	// OnToolCallStart fires when the model announces a tool call, before
	// its arguments are complete.
	OnToolCallStart func(ctx context.Context, toolCallID, toolName string)

	// OnToolCallDelta receives partial argument fragments for a tool call.
	// UI feedback only; execution uses the complete arguments.
	OnToolCallDelta func(ctx context.Context, toolCallID, toolName, partialArgs string)

	// OnToolCallEnd fires after a tool call finished, was denied or failed.
	OnToolCallEnd func(ctx context.Context, toolCallID, toolName string, result tool.Result)

	// OnToolApprovalRequest asks the user to approve a tool call. Return
	// "y" to approve once, "always" to approve for the rest of the
	// session; anything else denies. An error denies the call.
	OnToolApprovalRequest func(ctx context.Context, toolName, toolCallID string, params map[string]any) (string, error)

	// RequestUserInput lets interactive tools ask the user a question.
	RequestUserInput func(ctx context.Context, prompt string, options []string) (string, error)

	// OnMessageEnd fires after each model turn with its token usage.
	OnMessageEnd func(ctx context.Context, usage core.TokenUsage)
}

func (c *Callbacks) textDelta(ctx context.Context, text string) {
	if c != nil && c.OnTextDelta != nil {
		c.OnTextDelta(ctx, text)
	}
}

func (c *Callbacks) toolCallStart(ctx context.Context, toolCallID, toolName string) {
	if c != nil && c.OnToolCallStart != nil {
		c.OnToolCallStart(ctx, toolCallID, toolName)
	}
}

func (c *Callbacks) toolCallDelta(ctx context.Context, toolCallID, toolName, partialArgs string) {
	if c != nil && c.OnToolCallDelta != nil {
		c.OnToolCallDelta(ctx, toolCallID, toolName, partialArgs)
	}
}

func (c *Callbacks) toolCallEnd(ctx context.Context, toolCallID, toolName string, result tool.Result) {
	if c != nil && c.OnToolCallEnd != nil {
		c.OnToolCallEnd(ctx, toolCallID, toolName, result)
	}
}

func (c *Callbacks) messageEnd(ctx context.Context, usage core.TokenUsage) {
	if c != nil && c.OnMessageEnd != nil {
		c.OnMessageEnd(ctx, usage)
	}
}

func (c *Callbacks) canRequestApproval() bool {
	return c != nil && c.OnToolApprovalRequest != nil
}

func (c *Callbacks) userInput() func(ctx context.Context, prompt string, options []string) (string, error) {
	if c == nil {
		return nil
	}
	return c.RequestUserInput
}
