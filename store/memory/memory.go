// Package memory provides the default in-process Store used by tests and
// short-lived sessions. All data is lost when the process exits.
package memory

import (
	"context"
	"sync"

	"github.com/hupe1980/agentcore/core"
)

// Store keeps all entities in maps guarded by one mutex. Values are copied
// on write and read so callers never share mutable state with the store.
type Store struct {
	mu        sync.RWMutex
	sessions  map[string]core.Session
	runs      map[string]core.AgentRun
	messages  map[string][]core.Message        // keyed by agent run id
	toolCalls map[string][]core.ToolCallRecord // keyed by agent run id
	todos     map[string][]core.TodoItem       // keyed by session id
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		sessions:  make(map[string]core.Session),
		runs:      make(map[string]core.AgentRun),
		messages:  make(map[string][]core.Message),
		toolCalls: make(map[string][]core.ToolCallRecord),
		todos:     make(map[string][]core.TodoItem),
	}
}

func (s *Store) CreateSession(_ context.Context, sess *core.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = *sess
	return nil
}

func (s *Store) GetSession(_ context.Context, id string) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	return &sess, nil
}

func (s *Store) UpdateSession(_ context.Context, sess *core.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = *sess
	return nil
}

func (s *Store) CreateAgentRun(_ context.Context, run *core.AgentRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = *run
	return nil
}

func (s *Store) GetAgentRun(_ context.Context, id string) (*core.AgentRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, nil
	}
	return &run, nil
}

func (s *Store) UpdateAgentRun(_ context.Context, run *core.AgentRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = *run
	return nil
}

func (s *Store) AddMessage(_ context.Context, m *core.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[m.AgentRunID] = append(s.messages[m.AgentRunID], *m)
	return nil
}

func (s *Store) AddToolCall(_ context.Context, tc *core.ToolCallRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toolCalls[tc.AgentRunID] = append(s.toolCalls[tc.AgentRunID], *tc)
	return nil
}

func (s *Store) ReplaceTodos(_ context.Context, sessionID string, todos []core.TodoItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.todos[sessionID] = append([]core.TodoItem(nil), todos...)
	return nil
}

func (s *Store) GetTodos(_ context.Context, sessionID string) ([]core.TodoItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.TodoItem(nil), s.todos[sessionID]...), nil
}

// Messages returns the recorded messages for a run, in insertion order.
// Not part of core.Store; used by tests and inspection tooling.
func (s *Store) Messages(agentRunID string) []core.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Message(nil), s.messages[agentRunID]...)
}

// AgentRuns returns every stored run in unspecified order.
func (s *Store) AgentRuns() []core.AgentRun {
	s.mu.RLock()
	defer s.mu.RUnlock()
	runs := make([]core.AgentRun, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	return runs
}

// ToolCalls returns the recorded tool calls for a run, in insertion order.
func (s *Store) ToolCalls(agentRunID string) []core.ToolCallRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.ToolCallRecord(nil), s.toolCalls[agentRunID]...)
}

func (s *Store) Close() error { return nil }

var _ core.Store = (*Store)(nil)
