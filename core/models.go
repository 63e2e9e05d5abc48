package core

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus tracks the lifecycle of a top-level user session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// RunStatus tracks the lifecycle of a single agent run. A run is created
// RUNNING and transitions exactly once to one of the terminal states.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// MessageRole identifies the author of a conversation message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// Tool call record statuses. "denied" is kept distinct from "error" so that
// permission and approval refusals stay auditable.
const (
	ToolCallSuccess = "success"
	ToolCallError   = "error"
	ToolCallDenied  = "denied"
)

// NewID generates a unique identifier for entities and background tasks.
func NewID() string { return uuid.NewString() }

func utcNow() time.Time { return time.Now().UTC() }

// TokenUsage accumulates input/output token counts across model calls.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add merges another usage sample into the receiver.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// Total returns the combined token count.
func (u TokenUsage) Total() int { return u.InputTokens + u.OutputTokens }

// Session is the top-level container for one user interaction. It owns
// exactly one root AgentRun chain; child runs inherit its id.
type Session struct {
	ID               string        `json:"id"`
	Status           SessionStatus `json:"status"`
	Title            string        `json:"title"`
	WorkingDirectory string        `json:"working_directory"`
	TokenUsage       TokenUsage    `json:"token_usage"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// NewSession creates an active session rooted at the given working directory.
func NewSession(title, workingDirectory string) *Session {
	now := utcNow()
	return &Session{
		ID:               NewID(),
		Status:           SessionActive,
		Title:            title,
		WorkingDirectory: workingDirectory,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// AgentRun is one execution of one agent against one task description,
// possibly nested under a parent run via delegation. ParentRunID is empty for
// the root run of a session; delegation depth is derived by walking
// ParentRunID pointers through the store, never cached here.
type AgentRun struct {
	ID           string     `json:"id"`
	SessionID    string     `json:"session_id"`
	ParentRunID  string     `json:"parent_run_id,omitempty"`
	AgentRole    string     `json:"agent_role"`
	Status       RunStatus  `json:"status"`
	Description  string     `json:"description"`
	Result       string     `json:"result,omitempty"`
	IsBackground bool       `json:"is_background"`
	TokenUsage   TokenUsage `json:"token_usage"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// NewAgentRun creates a root run in RUNNING state.
func NewAgentRun(sessionID, agentRole, description string) *AgentRun {
	return &AgentRun{
		ID:          NewID(),
		SessionID:   sessionID,
		AgentRole:   agentRole,
		Status:      RunRunning,
		Description: description,
		CreatedAt:   utcNow(),
	}
}

// NewChildRun creates a run nested under parent. The child inherits the
// parent's session id.
func NewChildRun(parent *AgentRun, agentRole, description string) *AgentRun {
	run := NewAgentRun(parent.SessionID, agentRole, description)
	run.ParentRunID = parent.ID
	return run
}

// Complete marks the run terminal with the given status and result text.
// No-op refinement is the caller's responsibility; Complete always overwrites.
func (r *AgentRun) Complete(status RunStatus, result string) {
	now := utcNow()
	r.Status = status
	r.Result = result
	r.CompletedAt = &now
}

// Message is one conversation entry owned by an agent run.
type Message struct {
	ID         string      `json:"id"`
	AgentRunID string      `json:"agent_run_id"`
	Role       MessageRole `json:"role"`
	Content    string      `json:"content"`
	CreatedAt  time.Time   `json:"created_at"`
}

// NewMessage creates a message bound to a run.
func NewMessage(agentRunID string, role MessageRole, content string) *Message {
	return &Message{
		ID:         NewID(),
		AgentRunID: agentRunID,
		Role:       role,
		Content:    content,
		CreatedAt:  utcNow(),
	}
}

// ToolCallRecord is the audit record of a single tool invocation, persisted
// regardless of outcome. Parameters and Result hold serialized JSON/text.
type ToolCallRecord struct {
	ID         string        `json:"id"`
	AgentRunID string        `json:"agent_run_id"`
	ToolName   string        `json:"tool_name"`
	Parameters string        `json:"parameters"`
	Result     string        `json:"result"`
	Status     string        `json:"status"` // success | error | denied
	Duration   time.Duration `json:"duration"`
	CreatedAt  time.Time     `json:"created_at"`
}

// NewToolCallRecord creates an audit record for a finished tool call.
func NewToolCallRecord(agentRunID, toolName, parameters, result, status string, duration time.Duration) *ToolCallRecord {
	return &ToolCallRecord{
		ID:         NewID(),
		AgentRunID: agentRunID,
		ToolName:   toolName,
		Parameters: parameters,
		Result:     result,
		Status:     status,
		Duration:   duration,
		CreatedAt:  utcNow(),
	}
}

// TodoItem is a session-scoped checklist entry maintained by the todo tools.
type TodoItem struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
	Status    string `json:"status"`   // pending | in_progress | completed | cancelled
	Priority  string `json:"priority"` // high | medium | low
}
