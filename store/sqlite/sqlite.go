// Package sqlite provides a durable Store backed by a SQLite database via
// the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hupe1980/agentcore/core"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	title TEXT NOT NULL,
	working_directory TEXT NOT NULL,
	input_tokens INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS agent_runs (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	parent_run_id TEXT NOT NULL DEFAULT '',
	agent_role TEXT NOT NULL,
	status TEXT NOT NULL,
	description TEXT NOT NULL,
	result TEXT NOT NULL DEFAULT '',
	is_background INTEGER NOT NULL DEFAULT 0,
	input_tokens INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	completed_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_agent_runs_session ON agent_runs(session_id);
CREATE INDEX IF NOT EXISTS idx_agent_runs_parent ON agent_runs(parent_run_id);

CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	agent_run_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_run ON messages(agent_run_id);

CREATE TABLE IF NOT EXISTS tool_calls (
	id TEXT PRIMARY KEY,
	agent_run_id TEXT NOT NULL,
	tool_name TEXT NOT NULL,
	parameters TEXT NOT NULL,
	result TEXT NOT NULL,
	status TEXT NOT NULL,
	duration_ns INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tool_calls_run ON tool_calls(agent_run_id);

CREATE TABLE IF NOT EXISTS todos (
	id TEXT NOT NULL,
	session_id TEXT NOT NULL,
	content TEXT NOT NULL,
	status TEXT NOT NULL,
	priority TEXT NOT NULL,
	position INTEGER NOT NULL,
	PRIMARY KEY (session_id, position)
);
`

// Store persists sessions, runs, messages, tool calls and todos in SQLite.
// The driver serializes access; a single *sql.DB is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database at path and applies the schema.
// Use ":memory:" for an ephemeral database.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// modernc sqlite handles one writer at a time; cap the pool so
	// concurrent engine goroutines queue instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func (s *Store) CreateSession(ctx context.Context, sess *core.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, status, title, working_directory, input_tokens, output_tokens, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Status, sess.Title, sess.WorkingDirectory,
		sess.TokenUsage.InputTokens, sess.TokenUsage.OutputTokens,
		formatTime(sess.CreatedAt), formatTime(sess.UpdatedAt),
	)
	return err
}

func (s *Store) GetSession(ctx context.Context, id string) (*core.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, title, working_directory, input_tokens, output_tokens, created_at, updated_at
		 FROM sessions WHERE id = ?`, id)

	var sess core.Session
	var createdAt, updatedAt string
	err := row.Scan(&sess.ID, &sess.Status, &sess.Title, &sess.WorkingDirectory,
		&sess.TokenUsage.InputTokens, &sess.TokenUsage.OutputTokens, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sess.CreatedAt = parseTime(createdAt)
	sess.UpdatedAt = parseTime(updatedAt)
	return &sess, nil
}

func (s *Store) UpdateSession(ctx context.Context, sess *core.Session) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, title = ?, working_directory = ?, input_tokens = ?, output_tokens = ?, updated_at = ?
		 WHERE id = ?`,
		sess.Status, sess.Title, sess.WorkingDirectory,
		sess.TokenUsage.InputTokens, sess.TokenUsage.OutputTokens,
		formatTime(sess.UpdatedAt), sess.ID,
	)
	return err
}

func (s *Store) CreateAgentRun(ctx context.Context, run *core.AgentRun) error {
	var completedAt any
	if run.CompletedAt != nil {
		completedAt = formatTime(*run.CompletedAt)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO agent_runs (id, session_id, parent_run_id, agent_role, status, description, result, is_background, input_tokens, output_tokens, created_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.SessionID, run.ParentRunID, run.AgentRole, run.Status, run.Description,
		run.Result, run.IsBackground, run.TokenUsage.InputTokens, run.TokenUsage.OutputTokens,
		formatTime(run.CreatedAt), completedAt,
	)
	return err
}

func (s *Store) GetAgentRun(ctx context.Context, id string) (*core.AgentRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, parent_run_id, agent_role, status, description, result, is_background, input_tokens, output_tokens, created_at, completed_at
		 FROM agent_runs WHERE id = ?`, id)

	var run core.AgentRun
	var createdAt string
	var completedAt sql.NullString
	err := row.Scan(&run.ID, &run.SessionID, &run.ParentRunID, &run.AgentRole, &run.Status,
		&run.Description, &run.Result, &run.IsBackground,
		&run.TokenUsage.InputTokens, &run.TokenUsage.OutputTokens, &createdAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	run.CreatedAt = parseTime(createdAt)
	if completedAt.Valid {
		t := parseTime(completedAt.String)
		run.CompletedAt = &t
	}
	return &run, nil
}

func (s *Store) UpdateAgentRun(ctx context.Context, run *core.AgentRun) error {
	var completedAt any
	if run.CompletedAt != nil {
		completedAt = formatTime(*run.CompletedAt)
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE agent_runs SET status = ?, description = ?, result = ?, input_tokens = ?, output_tokens = ?, completed_at = ?
		 WHERE id = ?`,
		run.Status, run.Description, run.Result,
		run.TokenUsage.InputTokens, run.TokenUsage.OutputTokens, completedAt, run.ID,
	)
	return err
}

func (s *Store) AddMessage(ctx context.Context, m *core.Message) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, agent_run_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.AgentRunID, m.Role, m.Content, formatTime(m.CreatedAt),
	)
	return err
}

func (s *Store) AddToolCall(ctx context.Context, tc *core.ToolCallRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tool_calls (id, agent_run_id, tool_name, parameters, result, status, duration_ns, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tc.ID, tc.AgentRunID, tc.ToolName, tc.Parameters, tc.Result, tc.Status,
		int64(tc.Duration), formatTime(tc.CreatedAt),
	)
	return err
}

func (s *Store) ReplaceTodos(ctx context.Context, sessionID string, todos []core.TodoItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM todos WHERE session_id = ?`, sessionID); err != nil {
		return err
	}
	for i, todo := range todos {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO todos (id, session_id, content, status, priority, position) VALUES (?, ?, ?, ?, ?, ?)`,
			todo.ID, sessionID, todo.Content, todo.Status, todo.Priority, i,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) GetTodos(ctx context.Context, sessionID string) ([]core.TodoItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, content, status, priority FROM todos WHERE session_id = ? ORDER BY position`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var todos []core.TodoItem
	for rows.Next() {
		var todo core.TodoItem
		if err := rows.Scan(&todo.ID, &todo.SessionID, &todo.Content, &todo.Status, &todo.Priority); err != nil {
			return nil, err
		}
		todos = append(todos, todo)
	}
	return todos, rows.Err()
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

var _ core.Store = (*Store)(nil)
