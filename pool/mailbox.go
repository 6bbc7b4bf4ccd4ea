package pool

import "sync"

// Completion reports that the sound started on a slot ended by itself.
// Generation is the slot generation at start; a mismatch marks it stale.
type Completion struct {
	Slot       int
	Generation uint64
}

// mailbox collects completions from sink goroutines until the pool applies
// them. Push never blocks on the pool lock.
type mailbox struct {
	mu      sync.Mutex
	pending []Completion
	spare   []Completion
}

// Push appends a completion; safe for concurrent producers
func (mb *mailbox) Push(c Completion) {
	mb.mu.Lock()
	mb.pending = append(mb.pending, c)
	mb.mu.Unlock()
}

// Consume returns pending completions in arrival order. The returned slice
// is valid until the next Consume.
func (mb *mailbox) Consume() []Completion {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if len(mb.pending) == 0 {
		return nil
	}
	out := mb.pending
	mb.pending = mb.spare[:0]
	mb.spare = out
	return out
}

// Len returns the number of unapplied completions
func (mb *mailbox) Len() int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return len(mb.pending)
}
