package keyboard

import (
	"context"
	"sync"
)

// Bridge hands serialized commands from the hook callback to the emitter.
// Send never blocks and the queue is unbounded. There is one producer
// (the active session) and one consumer (the emitter).
type Bridge struct {
	mu     sync.Mutex
	queue  []string
	closed bool
	notify chan struct{}
}

// NewBridge creates an empty open bridge
func NewBridge() *Bridge {
	return &Bridge{
		notify: make(chan struct{}, 1),
	}
}

// Send queues the wire form of cmd. It fails with ErrConsumerGone once the
// bridge has been closed.
func (b *Bridge) Send(cmd Command) error {
	payload := cmd.Wire()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrConsumerGone
	}
	b.queue = append(b.queue, payload)
	b.mu.Unlock()

	b.wake()
	return nil
}

// Receive blocks until a payload is queued. Queued payloads are still
// handed out after Close; ErrBridgeClosed is returned once drained.
func (b *Bridge) Receive(ctx context.Context) (string, error) {
	for {
		b.mu.Lock()
		if len(b.queue) > 0 {
			payload := b.queue[0]
			b.queue[0] = ""
			b.queue = b.queue[1:]
			if len(b.queue) == 0 {
				b.queue = nil
			}
			b.mu.Unlock()
			return payload, nil
		}
		closed := b.closed
		b.mu.Unlock()

		if closed {
			return "", ErrBridgeClosed
		}

		select {
		case <-b.notify:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// Close marks the consumer as gone. Further sends fail.
func (b *Bridge) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	b.wake()
}

// Closed reports whether Close has been called
func (b *Bridge) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Len returns the number of payloads waiting for the consumer
func (b *Bridge) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

func (b *Bridge) wake() {
	select {
	case b.notify <- struct{}{}:
	default:
	}
}
