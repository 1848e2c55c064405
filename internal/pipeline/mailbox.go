package pipeline

import "sync"

// Mailbox is a single-slot, latest-wins hand-off between one producer and one
// consumer. Putting into a full mailbox replaces the unconsumed item.
type Mailbox[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	item   T
	full   bool
	closed bool
}

// NewMailbox returns an empty mailbox.
func NewMailbox[T any]() *Mailbox[T] {
	m := &Mailbox[T]{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Put stores v, replacing any unconsumed item. It reports whether an item
// was dropped. Put on a closed mailbox is a no-op.
func (m *Mailbox[T]) Put(v T) (dropped bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}
	dropped = m.full
	m.item = v
	m.full = true
	m.cond.Signal()
	return dropped
}

// Take blocks until an item is available and removes it. After Close, Take
// returns any pending item and then false.
func (m *Mailbox[T]) Take() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for !m.full && !m.closed {
		m.cond.Wait()
	}

	var zero T
	if !m.full {
		return zero, false
	}
	v := m.item
	m.item = zero
	m.full = false
	return v, true
}

// Close wakes a blocked Take and rejects further puts. It is idempotent.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.cond.Broadcast()
}

