// Package mailbox holds the per-user inbound queues drained by the session gateway.
package mailbox

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"fmt"
	"iter"
	"sync"
	"time"
)

var _ contract.IMailbox = (*Mailbox)(nil)

// Mailbox is a FIFO queue of pending entries for one user.
//
// Enqueue is serialized per mailbox, so entries coming from concurrent fanouts
// keep the order in which their enqueue completed. A capacity of 0 means
// unbounded. When bounded and full, Enqueue waits for room up to the enqueue
// timeout and then gives up with ErrMailboxFull.
type Mailbox struct {
	owner    domain.UserID
	capacity int
	timeout  time.Duration

	mu      sync.Mutex
	entries []domain.Entry
	closed  bool
	// room is closed and replaced every time an entry leaves the queue
	room   chan struct{}
	notify chan struct{}
}

func New(owner domain.UserID, capacity int, timeout time.Duration) *Mailbox {
	return &Mailbox{
		owner:    owner,
		capacity: capacity,
		timeout:  timeout,
		room:     make(chan struct{}),
		notify:   make(chan struct{}, 1),
	}
}

// Enqueue appends the entry at the tail of the mailbox.
// It never blocks on an unbounded mailbox.
func (m *Mailbox) Enqueue(ctx context.Context, entry domain.Entry) error {
	var deadline <-chan time.Time
	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return &errors.DeliveryError{Reason: fmt.Sprintf("mailbox of %s", m.owner), Err: errors.ErrMailboxClosed}
		}
		if m.capacity <= 0 || len(m.entries) < m.capacity {
			m.entries = append(m.entries, entry)
			m.mu.Unlock()
			m.signal()
			return nil
		}
		room := m.room
		m.mu.Unlock()

		if deadline == nil {
			timer := time.NewTimer(m.timeout)
			defer timer.Stop()
			deadline = timer.C
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("%w: %s holds %d entries", errors.ErrMailboxFull, m.owner, m.capacity)
		case <-room:
		}
	}
}

// Drain yields the queued entries oldest first, removing each one as it is yielded.
// Stopping early leaves the rest queued for the next Drain.
func (m *Mailbox) Drain() iter.Seq[domain.Entry] {
	return func(yield func(domain.Entry) bool) {
		for {
			entry, ok := m.pop()
			if !ok {
				return
			}
			if !yield(entry) {
				return
			}
		}
	}
}

func (m *Mailbox) pop() (domain.Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == 0 {
		return domain.Entry{}, false
	}
	entry := m.entries[0]
	m.entries[0] = domain.Entry{}
	m.entries = m.entries[1:]
	close(m.room)
	m.room = make(chan struct{})
	return entry, true
}

func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Notify is signalled after each successful enqueue.
// Signals coalesce: one pending signal may stand for several entries.
func (m *Mailbox) Notify() <-chan struct{} {
	return m.notify
}

// Close rejects further enqueues and wakes up blocked senders.
// Entries already queued can still be drained.
func (m *Mailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.room)
	m.room = make(chan struct{})
}

func (m *Mailbox) signal() {
	select {
	case m.notify <- struct{}{}:
	default:
	}
}
