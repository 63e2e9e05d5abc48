package core

import "context"

// Store is the persistence contract consumed by the orchestration core.
// Implementations must be safe for concurrent use; the engine walks
// parent-run chains with repeated GetAgentRun calls and persists messages
// and tool call records append-only.
//
// Get methods return (nil, nil) for unknown ids so callers can distinguish
// "absent" from infrastructure failure.
type Store interface {
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	UpdateSession(ctx context.Context, s *Session) error

	CreateAgentRun(ctx context.Context, run *AgentRun) error
	GetAgentRun(ctx context.Context, id string) (*AgentRun, error)
	UpdateAgentRun(ctx context.Context, run *AgentRun) error

	AddMessage(ctx context.Context, m *Message) error
	AddToolCall(ctx context.Context, tc *ToolCallRecord) error

	// ReplaceTodos swaps the full todo list for a session (full-sync write).
	ReplaceTodos(ctx context.Context, sessionID string, todos []TodoItem) error
	GetTodos(ctx context.Context, sessionID string) ([]TodoItem, error)

	Close() error
}
