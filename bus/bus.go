// Package bus implements the typed pub/sub event bus that fans internal
// lifecycle events (agent start/end, token stream, tool calls, delegation,
// background tasks) out to registered handlers and to queue-based streams
// suitable for streaming transports.
package bus

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/agentcore/logging"
)

// Handler consumes a published payload. Handlers run sequentially inside
// Publish; a returned error (or panic) is logged and never blocks delivery to
// the remaining handlers or queues.
type Handler func(ctx context.Context, p Payload) error

type subscription struct {
	handler Handler
}

// Options configures a Bus.
type Options struct {
	// Logger records handler failures. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Bus is the event bus. The zero value is not usable; construct with New.
// All methods are safe for concurrent use.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Kind][]*subscription
	wildcard []*subscription
	streams  map[Kind][]*Queue
	allQueue []*Queue
	logger   logging.Logger
}

// New creates an empty bus.
func New(optFns ...func(o *Options)) *Bus {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Bus{
		handlers: make(map[Kind][]*subscription),
		streams:  make(map[Kind][]*Queue),
		logger:   opts.Logger,
	}
}

// Subscribe registers a handler for one event kind and returns an idempotent
// unsubscribe function.
func (b *Bus) Subscribe(kind Kind, handler Handler) func() {
	sub := &subscription{handler: handler}
	b.mu.Lock()
	b.handlers[kind] = append(b.handlers[kind], sub)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		b.handlers[kind] = removeSub(b.handlers[kind], sub)
		b.mu.Unlock()
	}
}

// SubscribeAll registers a wildcard handler receiving every event.
func (b *Bus) SubscribeAll(handler Handler) func() {
	sub := &subscription{handler: handler}
	b.mu.Lock()
	b.wildcard = append(b.wildcard, sub)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		b.wildcard = removeSub(b.wildcard, sub)
		b.mu.Unlock()
	}
}

// Stream returns a queue receiving every payload of the given kind published
// after this call.
func (b *Bus) Stream(kind Kind) *Queue {
	q := newQueue()
	b.mu.Lock()
	b.streams[kind] = append(b.streams[kind], q)
	b.mu.Unlock()
	return q
}

// StreamAll returns a queue receiving every published payload.
func (b *Bus) StreamAll() *Queue {
	q := newQueue()
	b.mu.Lock()
	b.allQueue = append(b.allQueue, q)
	b.mu.Unlock()
	return q
}

// Unstream detaches a queue previously returned by Stream or StreamAll.
// Removing an unknown queue is a no-op.
func (b *Bus) Unstream(q *Queue) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for kind, queues := range b.streams {
		b.streams[kind] = removeQueue(queues, q)
	}
	b.allQueue = removeQueue(b.allQueue, q)
}

// PublishOptions carries the optional fields of a publish call.
type PublishOptions struct {
	ParentSessionID string
}

// Publish delivers an event to, in order: kind-specific handlers, wildcard
// handlers (both sequentially, in subscription order, within this call), then
// kind-specific queues, then wildcard queues. Handler failures are isolated.
func (b *Bus) Publish(ctx context.Context, kind Kind, sessionID, agentRole string, data map[string]any, optFns ...func(o *PublishOptions)) {
	opts := PublishOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if data == nil {
		data = map[string]any{}
	}

	payload := Payload{
		Kind:            kind,
		SessionID:       sessionID,
		AgentRole:       agentRole,
		Data:            data,
		Timestamp:       time.Now().UTC(),
		ParentSessionID: opts.ParentSessionID,
	}

	b.mu.RLock()
	subs := append([]*subscription(nil), b.handlers[kind]...)
	subs = append(subs, b.wildcard...)
	queues := append([]*Queue(nil), b.streams[kind]...)
	queues = append(queues, b.allQueue...)
	b.mu.RUnlock()

	for _, sub := range subs {
		b.runHandler(ctx, sub.handler, payload)
	}
	for _, q := range queues {
		q.put(payload)
	}
}

// runHandler isolates one handler invocation: errors and panics are logged
// and swallowed so delivery continues.
func (b *Bus) runHandler(ctx context.Context, h Handler, p Payload) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("bus.handler.panic", "kind", string(p.Kind), "recover", r)
		}
	}()
	if err := h(ctx, p); err != nil {
		b.logger.Error("bus.handler.error", "kind", string(p.Kind), "error", err.Error())
	}
}

// Clear drops all handlers and queues. Used at shutdown.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[Kind][]*subscription)
	b.wildcard = nil
	b.streams = make(map[Kind][]*Queue)
	b.allQueue = nil
}

func removeSub(subs []*subscription, target *subscription) []*subscription {
	out := subs[:0]
	for _, s := range subs {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}

func removeQueue(queues []*Queue, target *Queue) []*Queue {
	out := queues[:0]
	for _, q := range queues {
		if q != target {
			out = append(out, q)
		}
	}
	return out
}
