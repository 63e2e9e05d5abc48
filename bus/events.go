package bus

import (
	"time"
)

// Kind enumerates every event type published on the bus. The set is closed:
// dispatch is by typed constant, never by free-form string.
type Kind string

const (
	// Session lifecycle
	SessionStart Kind = "session.start"
	SessionEnd   Kind = "session.end"

	// Agent lifecycle
	AgentStart Kind = "agent.start"
	AgentEnd   Kind = "agent.end"

	// Model streaming
	TokenStream      Kind = "token.stream"
	ResponseComplete Kind = "response.complete"

	// Tool lifecycle
	ToolCallStart        Kind = "tool_call.start"
	ToolCallEnd          Kind = "tool_call.end"
	ToolApprovalRequired Kind = "tool_call.approval_required"

	// Delegation
	DelegationStart Kind = "delegation.start"
	DelegationEnd   Kind = "delegation.end"

	// Background tasks
	BackgroundQueued   Kind = "background.queued"
	BackgroundComplete Kind = "background.complete"
	BackgroundFailed   Kind = "background.failed"

	// Todo list
	TodoUpdated Kind = "todo.updated"

	// Errors
	Error Kind = "error"
)

// Payload is attached to every published event.
type Payload struct {
	Kind            Kind           `json:"kind"`
	SessionID       string         `json:"session_id"`
	AgentRole       string         `json:"agent_role"`
	Data            map[string]any `json:"data"`
	Timestamp       time.Time      `json:"timestamp"`
	ParentSessionID string         `json:"parent_session_id,omitempty"`
}
