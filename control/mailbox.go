// Package control accepts remote override commands over a plain TCP
// channel and hands them to the scheduler as one-shot jump requests.
package control

import "sync"

// Mailbox is a single-slot pending-jump holder. A new request overwrites
// an unconsumed one; the scheduler takes and clears it once per frame.
// It has its own lock so interrupt handling never queues up behind a
// library refresh.
type Mailbox struct {
	mu      sync.Mutex
	ruleID  int
	pending bool
}

func NewMailbox() *Mailbox {
	return &Mailbox{}
}

// Set records a jump request, replacing any unconsumed one.
func (m *Mailbox) Set(ruleID int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ruleID = ruleID
	m.pending = true
}

// Take returns the pending rule id, if any, and clears the slot.
func (m *Mailbox) Take() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.pending {
		return 0, false
	}
	m.pending = false
	return m.ruleID, true
}
