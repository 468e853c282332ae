// Package mailbox provides a single-slot, overwrite-latest channel between
// one producer and one consumer. Publishing never blocks and never queues:
// an unread value is replaced by the newer one. Receiving blocks until a
// value is present.
package mailbox

import (
	"context"
	"sync"
)

// Stats is a point-in-time copy of the mailbox counters.
type Stats struct {
	Published   uint64 `json:"published"`
	Consumed    uint64 `json:"consumed"`
	Overwritten uint64 `json:"overwritten"`
}

// Mailbox holds at most one pending value of T.
type Mailbox[T any] struct {
	mu    sync.Mutex
	val   T
	full  bool
	wake  chan struct{}
	stats Stats
}

func New[T any]() *Mailbox[T] {
	return &Mailbox[T]{wake: make(chan struct{}, 1)}
}

// Publish stores v, replacing any value the consumer has not taken yet.
func (m *Mailbox[T]) Publish(v T) {
	m.mu.Lock()
	if m.full {
		m.stats.Overwritten++
	}
	m.val = v
	m.full = true
	m.stats.Published++
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Receive takes the pending value, waiting for one if the slot is empty.
func (m *Mailbox[T]) Receive(ctx context.Context) (T, error) {
	for {
		if v, ok := m.TryReceive(); ok {
			return v, nil
		}
		select {
		case <-m.wake:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// TryReceive takes the pending value without waiting.
func (m *Mailbox[T]) TryReceive() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var zero T
	if !m.full {
		return zero, false
	}
	v := m.val
	m.val = zero
	m.full = false
	m.stats.Consumed++
	return v, true
}

// Pending reports whether a value is waiting to be received.
func (m *Mailbox[T]) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.full
}

func (m *Mailbox[T]) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}
