package actor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

// NoTimeout makes Dequeue block until a message arrives.
const NoTimeout time.Duration = -1

var errDequeueTimeout = errors.New("dequeue timed out")

// Mailbox is a multi-producer priority queue with four FIFO tiers.
//
// A consumer that finds every admitted tier empty parks on a private one-shot
// channel. Producers check for parked consumers and append to a tier under the
// same lock, so a message is never buffered while a consumer that would accept
// it is parked.
type Mailbox struct {
	name string

	mu     sync.Mutex
	tiers  [NumPriorities]fifo
	parked []*waiter
	closed bool
}

// waiter is a parked Dequeue call. ch has capacity 1 and receives at most one
// message; maxPri is the lowest priority the waiter accepts.
type waiter struct {
	ch     chan Message
	maxPri Priority
}

// NewMailbox creates an empty mailbox. name is only used for diagnostics.
func NewMailbox(name string) *Mailbox {
	return &Mailbox{name: name}
}

func (m *Mailbox) Name() string { return m.name }

// Enqueue adds msg at priority p. If a consumer is parked the message is
// handed to it directly instead of being buffered.
func (m *Mailbox) Enqueue(msg Message, p Priority) error {
	if msg == nil {
		return ErrNilMessage
	}
	if !p.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidPriority, int(p))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrMailboxClosed
	}

	for i, w := range m.parked {
		if p <= w.maxPri {
			m.parked = slices.Delete(m.parked, i, i+1)
			w.ch <- msg
			return nil
		}
	}

	m.tiers[p].push(msg)
	return nil
}

// Dequeue returns the next message in priority order. A negative timeout
// blocks until a message arrives, zero only polls the buffers. ok is false
// when no message was obtained.
func (m *Mailbox) Dequeue(timeout time.Duration) (msg Message, ok bool) {
	msg, err := m.dequeue(context.Background(), Low, timeout)
	return msg, err == nil
}

// DequeueContext blocks until a message arrives or ctx is done.
func (m *Mailbox) DequeueContext(ctx context.Context) (Message, error) {
	return m.dequeue(ctx, Low, NoTimeout)
}

func (m *Mailbox) dequeue(ctx context.Context, maxPri Priority, timeout time.Duration) (Message, error) {
	m.mu.Lock()
	if msg, ok := m.popLocked(maxPri); ok {
		m.mu.Unlock()
		return msg, nil
	}
	if m.closed {
		m.mu.Unlock()
		return nil, ErrMailboxClosed
	}
	if timeout == 0 {
		m.mu.Unlock()
		return nil, errDequeueTimeout
	}
	w := &waiter{ch: make(chan Message, 1), maxPri: maxPri}
	m.parked = append(m.parked, w)
	m.mu.Unlock()

	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}

	var cause error
	select {
	case msg, ok := <-w.ch:
		if !ok {
			return nil, ErrMailboxClosed
		}
		return msg, nil
	case <-expired:
		cause = errDequeueTimeout
	case <-ctx.Done():
		cause = ctx.Err()
	}

	m.mu.Lock()
	stillParked := m.unparkLocked(w)
	m.mu.Unlock()

	if !stillParked {
		// a producer handed off between the wake-up and the relock
		msg, ok := <-w.ch
		if !ok {
			return nil, ErrMailboxClosed
		}
		return msg, nil
	}
	return nil, cause
}

// Flush removes every buffered message and returns them in tier, then FIFO,
// order. Messages already handed to a parked consumer are not included.
func (m *Mailbox) Flush() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Message
	for i := range m.tiers {
		out = m.tiers[i].drain(out)
	}
	return out
}

// Len returns the number of buffered messages across all tiers.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for i := range m.tiers {
		n += m.tiers[i].len()
	}
	return n
}

// Parked returns the number of consumers currently blocked in Dequeue.
func (m *Mailbox) Parked() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.parked)
}

// Close rejects further enqueues and releases parked consumers. Buffered
// messages stay available to Flush.
func (m *Mailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	for _, w := range m.parked {
		close(w.ch)
	}
	m.parked = nil
}

func (m *Mailbox) popLocked(maxPri Priority) (Message, bool) {
	for p := Critical; p <= maxPri; p++ {
		if msg, ok := m.tiers[p].pop(); ok {
			return msg, true
		}
	}
	return nil, false
}

func (m *Mailbox) unparkLocked(w *waiter) bool {
	i := slices.Index(m.parked, w)
	if i < 0 {
		return false
	}
	m.parked = slices.Delete(m.parked, i, i+1)
	return true
}

// fifo is a slice backed queue that reuses its backing array once drained.
type fifo struct {
	items []Message
	head  int
}

func (q *fifo) len() int { return len(q.items) - q.head }

func (q *fifo) push(msg Message) { q.items = append(q.items, msg) }

func (q *fifo) pop() (Message, bool) {
	if q.head == len(q.items) {
		return nil, false
	}
	msg := q.items[q.head]
	q.items[q.head] = nil
	q.head++

	switch {
	case q.head == len(q.items):
		q.items = q.items[:0]
		q.head = 0
	case q.head >= 64 && q.head*2 >= len(q.items):
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return msg, true
}

func (q *fifo) drain(dst []Message) []Message {
	dst = append(dst, q.items[q.head:]...)
	clear(q.items)
	q.items = q.items[:0]
	q.head = 0
	return dst
}
