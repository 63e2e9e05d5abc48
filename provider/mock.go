package provider

import (
	"context"
	"sync"
	"time"
)

// MockProvider is a scripted in-memory Provider for tests and examples.
// Each call to CreateMessage consumes the next scripted turn; when the
// script is exhausted it falls back to a plain-text turn.
type MockProvider struct {
	mu       sync.Mutex
	turns    [][]StreamEvent
	next     int
	delay    time.Duration
	requests []Request
}

// NewMockProvider constructs an empty mock. Queue turns with AddTurn /
// AddTextTurn / AddToolCallTurn.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// SetDelay inserts an artificial pause before each stream completes,
// useful for timing-sensitive concurrency tests.
func (m *MockProvider) SetDelay(d time.Duration) { m.delay = d }

// AddTurn queues a raw event sequence as one response turn. A MessageEnd is
// appended automatically if the script does not include one.
func (m *MockProvider) AddTurn(events ...StreamEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(events) == 0 || events[len(events)-1].Type != MessageEnd {
		events = append(events, StreamEvent{Type: MessageEnd, InputTokens: 10, OutputTokens: 5})
	}
	m.turns = append(m.turns, events)
}

// AddTextTurn queues a turn that streams text only (no tool calls).
func (m *MockProvider) AddTextTurn(text string) {
	m.AddTurn(StreamEvent{Type: TextDelta, Text: text})
}

// AddToolCallTurn queues a turn emitting a single complete tool call.
func (m *MockProvider) AddToolCallTurn(callID, name, args string) {
	m.AddTurn(
		StreamEvent{Type: ToolCallStart, ToolCallID: callID, ToolName: name},
		StreamEvent{Type: ToolCallEnd, ToolCallID: callID, ToolName: name, ToolArgs: args},
	)
}

// Requests returns a copy of every request seen, in call order.
func (m *MockProvider) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

// CreateMessage implements Provider.
func (m *MockProvider) CreateMessage(ctx context.Context, req Request) (<-chan StreamEvent, <-chan error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	var events []StreamEvent
	if m.next < len(m.turns) {
		events = m.turns[m.next]
		m.next++
	} else {
		events = []StreamEvent{
			{Type: TextDelta, Text: "Mock response."},
			{Type: MessageEnd, InputTokens: 10, OutputTokens: 5},
		}
	}
	delay := m.delay
	m.mu.Unlock()

	out := make(chan StreamEvent, len(events))
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)
		if delay > 0 {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case <-time.After(delay):
			}
		}
		for _, ev := range events {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case out <- ev:
			}
		}
	}()

	return out, errCh
}

// Info implements Provider.
func (m *MockProvider) Info() ModelInfo {
	return ModelInfo{Provider: "mock", ModelID: "mock-model", SupportsTools: true}
}
