// Package provider defines the streaming contract between the orchestration
// core and text-generation backends. A backend accepts a system prompt,
// conversation history and named tool schemas, and returns a lazy, finite,
// non-restartable event stream: text deltas, tool-call fragments and a
// terminal usage event.
package provider

import "context"

// StreamEventType enumerates the events a backend stream may emit.
type StreamEventType string

const (
	// TextDelta carries an incremental text fragment.
	TextDelta StreamEventType = "text_delta"
	// ToolCallStart announces a tool call id/name before its arguments arrive.
	ToolCallStart StreamEventType = "tool_call_start"
	// ToolCallDelta carries a partial argument fragment. UI feedback only;
	// execution keys off ToolCallEnd.
	ToolCallDelta StreamEventType = "tool_call_delta"
	// ToolCallEnd carries the complete argument payload and triggers execution.
	ToolCallEnd StreamEventType = "tool_call_end"
	// MessageEnd terminates the stream with token usage counts.
	MessageEnd StreamEventType = "message_end"
)

// StreamEvent is one element of a backend response stream. Which fields are
// populated depends on Type.
type StreamEvent struct {
	Type         StreamEventType
	Text         string
	ToolCallID   string
	ToolName     string
	ToolArgs     string
	InputTokens  int
	OutputTokens int
}

// ToolDefinition declaratively exposes a callable tool to the model.
// Parameters is a JSON Schema object (minimal subset).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolCallRef references one tool call inside an assistant turn.
type ToolCallRef struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ChatMessage is one entry of the conversation history handed to a backend.
// Assistant turns may carry ToolCalls; tool turns echo the call they answer
// via ToolCallID.
type ChatMessage struct {
	Role       string        `json:"role"` // user | assistant | tool
	Content    string        `json:"content"`
	ToolCalls  []ToolCallRef `json:"tool_calls,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
}

// Request captures the normalized backend input produced by the processor.
type Request struct {
	SystemPrompt string
	Messages     []ChatMessage
	Tools        []ToolDefinition
	MaxTokens    int
	Temperature  float64
}

// ModelInfo describes a backend model implementation.
type ModelInfo struct {
	Provider      string `json:"provider"`
	ModelID       string `json:"model_id"`
	MaxContext    int    `json:"max_context"`
	MaxOutput     int    `json:"max_output"`
	SupportsTools bool   `json:"supports_tools"`
}

// Provider is the minimal interface the session processor needs to drive
// generation. CreateMessage returns immediately; events arrive on the first
// channel in stream order and a terminal failure, if any, on the second.
// Both channels are closed when the stream ends.
type Provider interface {
	CreateMessage(ctx context.Context, req Request) (<-chan StreamEvent, <-chan error)

	// Info returns metadata about the underlying model.
	Info() ModelInfo
}
