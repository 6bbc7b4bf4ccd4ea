package pool

import (
	"github.com/lixenwraith/soundpool/audio"
	"github.com/lixenwraith/soundpool/sound"
)

// Slot is one pooled playback resource. State is guarded by the owning
// pool's mutex; accessors take it.
type Slot struct {
	pool  *Pool
	voice audio.Voice
	index int

	active bool
	gen    uint64
	seq    uint64
	desc   sound.Descriptor
	bus    audio.Bus
}

// Configure binds d and bus to an acquired slot and starts playback. The
// slot counts as active from this call even while a delay is pending. If
// the sink refuses the sound the slot is released and the error returned.
// Configuring the no-op slot does nothing.
func (s *Slot) Configure(d sound.Descriptor, bus audio.Bus) error {
	if s.IsNop() {
		return nil
	}
	p := s.pool
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.drainLocked()
	return p.configureLocked(s, d, bus)
}

// Matches reports whether the slot is active and playing id
func (s *Slot) Matches(id sound.ID) bool {
	if s.IsNop() {
		return false
	}
	s.pool.mu.Lock()
	defer s.pool.mu.Unlock()
	return s.active && s.desc.ID == id
}

// ForceStop halts playback and releases the slot
func (s *Slot) ForceStop() {
	if s.IsNop() {
		return
	}
	s.pool.Release(s)
}

// IsNop reports whether this is the sentinel handed out on exhaustion
func (s *Slot) IsNop() bool {
	return s == nil || s.index < 0
}

// Index is the slot's position in construction order, -1 for the no-op slot
func (s *Slot) Index() int {
	return s.index
}

func (s *Slot) Active() bool {
	if s.IsNop() {
		return false
	}
	s.pool.mu.Lock()
	defer s.pool.mu.Unlock()
	return s.active
}

// Descriptor returns the bound sound; zero when idle
func (s *Slot) Descriptor() sound.Descriptor {
	if s.IsNop() {
		return sound.Descriptor{}
	}
	s.pool.mu.Lock()
	defer s.pool.mu.Unlock()
	return s.desc
}

func (s *Slot) Bus() audio.Bus {
	if s.IsNop() {
		return audio.BusMaster
	}
	s.pool.mu.Lock()
	defer s.pool.mu.Unlock()
	return s.bus
}

// Generation changes every time the slot starts a sound or is released
func (s *Slot) Generation() uint64 {
	if s.IsNop() {
		return 0
	}
	s.pool.mu.Lock()
	defer s.pool.mu.Unlock()
	return s.gen
}

// Current reports whether the slot is active on generation gen
func (s *Slot) Current(gen uint64) bool {
	if s.IsNop() {
		return false
	}
	s.pool.mu.Lock()
	defer s.pool.mu.Unlock()
	return s.active && s.gen == gen
}

// Sequence is the acquisition order stamp of the current activation
func (s *Slot) Sequence() uint64 {
	if s.IsNop() {
		return 0
	}
	s.pool.mu.Lock()
	defer s.pool.mu.Unlock()
	return s.seq
}
