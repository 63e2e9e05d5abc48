package bus

import (
	"context"
	"sync"
)

// Queue is an unbounded FIFO delivering event payloads to a single consumer.
// Producers never block; Get blocks until an item arrives or the context is
// cancelled. Payloads are delivered exactly once, in publish order.
type Queue struct {
	mu     sync.Mutex
	items  []Payload
	notify chan struct{}
}

func newQueue() *Queue {
	return &Queue{notify: make(chan struct{}, 1)}
}

func (q *Queue) put(p Payload) {
	q.mu.Lock()
	q.items = append(q.items, p)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Get returns the next payload, blocking until one is available.
func (q *Queue) Get(ctx context.Context) (Payload, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			p := q.items[0]
			q.items = q.items[1:]
			if len(q.items) > 0 {
				// Re-arm for remaining items so a waiting Get never stalls.
				select {
				case q.notify <- struct{}{}:
				default:
				}
			}
			q.mu.Unlock()
			return p, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return Payload{}, ctx.Err()
		case <-q.notify:
		}
	}
}

// Len reports the number of buffered payloads.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
