package session

import "sync"

// mailbox is an unbounded FIFO feeding a session's processing loop.
// Pushing never blocks, so completions from background work can always be
// delivered without stalling the goroutine that produced them.
type mailbox struct {
	mu       sync.Mutex
	items    []any
	inFlight int
	closed   bool
	signal   chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{signal: make(chan struct{}, 1)}
}

// push appends msg. It returns false once the mailbox is closed.
func (m *mailbox) push(msg any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}
	m.items = append(m.items, msg)
	select {
	case m.signal <- struct{}{}:
	default:
	}
	return true
}

// take removes and returns everything queued. The batch counts as in flight
// until settle is called.
func (m *mailbox) take() []any {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := m.items
	m.items = nil
	m.inFlight = len(items)
	return items
}

// settle marks the last batch as fully processed.
func (m *mailbox) settle() {
	m.mu.Lock()
	m.inFlight = 0
	m.mu.Unlock()
}

// close refuses further pushes and returns whatever was still queued.
func (m *mailbox) close() []any {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	close(m.signal)
	items := m.items
	m.items = nil
	return items
}

// closeIfQuiet closes the mailbox when nothing is queued or being processed
// and ok agrees. It reports whether the mailbox was closed.
func (m *mailbox) closeIfQuiet(ok func() bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || len(m.items) > 0 || m.inFlight > 0 || !ok() {
		return false
	}
	m.closed = true
	close(m.signal)
	return true
}
