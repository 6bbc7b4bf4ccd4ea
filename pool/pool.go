// Package pool hands out reusable playback slots. Each slot owns one engine
// voice; a slot is either idle or active, and sounds that end by themselves
// return their slot through a completion mailbox that the next pool
// operation drains.
//
// Lock order is pool, then sink, then mailbox. Sink callbacks only ever
// touch the mailbox.
package pool

import (
	"fmt"
	"sync"

	"github.com/lixenwraith/soundpool/audio"
	"github.com/lixenwraith/soundpool/log"
	"github.com/lixenwraith/soundpool/sound"
)

// Factory builds the voice behind a new slot
type Factory func() (audio.Voice, error)

// Stats counts pool traffic since construction
type Stats struct {
	Acquired  uint64
	Dropped   uint64
	Stolen    uint64
	Grown     uint64
	Completed uint64 // slots freed by natural completion
	Released  uint64 // slots freed by Release or ForceStop
	Stale     uint64 // completions ignored after the slot moved on
}

// Pool is a set of playback slots. All state transitions are serialized on
// one mutex.
type Pool struct {
	mu      sync.Mutex
	cfg     Config
	factory Factory

	slots  []*Slot // every slot ever built, by index
	idle   []*Slot // stack, top is next handed out
	active []*Slot // acquisition order
	nop    *Slot

	seq    uint64
	stats  Stats
	closed bool

	inbox mailbox
}

// New builds cfg.Capacity idle slots through factory. A factory failure
// tears down the voices already built and returns the error.
func New(cfg Config, factory Factory) (*Pool, error) {
	if factory == nil {
		return nil, ErrNoFactory
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pool{
		cfg:     cfg,
		factory: factory,
		slots:   make([]*Slot, 0, cfg.Capacity),
		idle:    make([]*Slot, 0, cfg.Capacity),
		active:  make([]*Slot, 0, cfg.Capacity),
	}
	p.nop = &Slot{pool: p, index: -1}

	for i := 0; i < cfg.Capacity; i++ {
		s, err := p.newSlotLocked()
		if err != nil {
			for _, built := range p.slots {
				built.voice.Halt()
			}
			return nil, fmt.Errorf("build slot %d of %d: %w", i, cfg.Capacity, err)
		}
		p.idle = append(p.idle, s)
	}
	// Lowest index on top so slots are handed out in build order
	for i, j := 0, len(p.idle)-1; i < j; i, j = i+1, j-1 {
		p.idle[i], p.idle[j] = p.idle[j], p.idle[i]
	}

	log.Info(log.CatPool, "Pool ready", "capacity", cfg.Capacity, "overflow", cfg.Overflow, "max", cfg.MaxSize)
	return p, nil
}

// Config returns the configuration the pool was built with
func (p *Pool) Config() Config {
	return p.cfg
}

// Acquire hands out an idle slot. When none is left the overflow policy
// decides; a dropped request gets the no-op slot and ErrPoolExhausted.
func (p *Pool) Acquire() (*Slot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return p.nop, ErrPoolClosed
	}
	p.drainLocked()
	return p.acquireLocked()
}

// Lease is a started sound: the slot and the generation it started on.
// It stays valid after the slot moves on; Stop then does nothing.
type Lease struct {
	*Slot
	Gen uint64
}

// Stop halts the sound if the slot is still playing it
func (l Lease) Stop() bool {
	if l.Slot.IsNop() {
		return false
	}
	return l.Slot.pool.StopGeneration(l.Slot, l.Gen)
}

// Playing reports whether the slot is still on this lease's sound
func (l Lease) Playing() bool {
	return l.Slot.Current(l.Gen)
}

// Play acquires a slot and starts d on it in one step. On failure the
// lease holds the no-op slot.
func (p *Pool) Play(d sound.Descriptor, bus audio.Bus) (Lease, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return Lease{Slot: p.nop}, ErrPoolClosed
	}
	p.drainLocked()

	s, err := p.acquireLocked()
	if err != nil {
		return Lease{Slot: s}, err
	}
	if err := p.configureLocked(s, d, bus); err != nil {
		return Lease{Slot: p.nop}, err
	}
	return Lease{Slot: s, Gen: s.gen}, nil
}

// Release stops s and returns it to the idle set. Nil, no-op, foreign and
// idle slots are ignored.
func (p *Pool) Release(s *Slot) {
	if s == nil || s.pool != p || s.IsNop() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drainLocked()
	if !s.active {
		return
	}
	p.releaseLocked(s, true)
	p.stats.Released++
}

// StopGeneration releases s only if it is still on generation gen.
// Returns true if a sound was stopped.
func (p *Pool) StopGeneration(s *Slot, gen uint64) bool {
	if s == nil || s.pool != p || s.IsNop() {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drainLocked()
	if !s.active || s.gen != gen {
		return false
	}
	p.releaseLocked(s, true)
	p.stats.Released++
	return true
}

// ActiveSlots returns a snapshot of active slots in acquisition order
func (p *Pool) ActiveSlots() []*Slot {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drainLocked()
	out := make([]*Slot, len(p.active))
	copy(out, p.active)
	return out
}

// Find returns the earliest acquired active slot playing id
func (p *Pool) Find(id sound.ID) (*Slot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drainLocked()
	for _, s := range p.active {
		if s.desc.ID == id {
			return s, true
		}
	}
	return nil, false
}

// StopFirst releases the earliest acquired slot playing id. Returns false
// when nothing matches.
func (p *Pool) StopFirst(id sound.ID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drainLocked()
	for _, s := range p.active {
		if s.desc.ID == id {
			p.releaseLocked(s, true)
			p.stats.Released++
			return true
		}
	}
	return false
}

// StopAll releases every active slot and returns how many were stopped
func (p *Pool) StopAll() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drainLocked()
	n := len(p.active)
	for len(p.active) > 0 {
		p.releaseLocked(p.active[0], true)
		p.stats.Released++
	}
	return n
}

// Size returns the number of slots constructed
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots)
}

// Active returns the number of acquired slots
func (p *Pool) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drainLocked()
	return len(p.active)
}

// Idle returns the number of free slots
func (p *Pool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drainLocked()
	return len(p.idle)
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drainLocked()
	return p.stats
}

// Post queues a completion. Safe from any goroutine, including sink
// callbacks running under the sink's lock.
func (p *Pool) Post(c Completion) {
	p.inbox.Push(c)
}

// Update applies queued completions and returns how many slots were freed
func (p *Pool) Update() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.drainLocked()
}

// Close halts every voice and drops all slots. Further Acquire calls fail
// with ErrPoolClosed. Safe to call more than once.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	for _, s := range p.slots {
		s.voice.Halt()
		s.active = false
		s.gen++
		s.desc = sound.Descriptor{}
	}
	p.inbox.Consume()

	log.Info(log.CatPool, "Pool closed", "slots", len(p.slots), "acquired", p.stats.Acquired, "dropped", p.stats.Dropped)
	p.slots, p.idle, p.active = nil, nil, nil
	return nil
}

func (p *Pool) newSlotLocked() (*Slot, error) {
	v, err := p.factory()
	if err != nil {
		return nil, err
	}
	s := &Slot{pool: p, voice: v, index: len(p.slots)}
	p.slots = append(p.slots, s)
	return s, nil
}

func (p *Pool) acquireLocked() (*Slot, error) {
	if n := len(p.idle); n > 0 {
		s := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.activateLocked(s)
		return s, nil
	}

	switch p.cfg.Overflow {
	case OverflowGrow:
		if p.cfg.MaxSize == 0 || len(p.slots) < p.cfg.MaxSize {
			s, err := p.newSlotLocked()
			if err != nil {
				p.stats.Dropped++
				log.ErrorErr(log.CatPool, "Slot growth failed", err, "size", len(p.slots))
				return p.nop, fmt.Errorf("%w: grow: %v", ErrPoolExhausted, err)
			}
			p.stats.Grown++
			log.Debug(log.CatPool, "Pool grew", "size", len(p.slots))
			p.activateLocked(s)
			return s, nil
		}
	case OverflowSteal:
		if len(p.active) > 0 {
			victim := p.active[0]
			log.Debug(log.CatPool, "Stealing oldest slot", "index", victim.index, "sound", victim.desc.ID)
			p.deactivateLocked(victim, true)
			p.stats.Stolen++
			p.activateLocked(victim)
			return victim, nil
		}
	}

	p.stats.Dropped++
	log.Debug(log.CatPool, "Pool exhausted", "active", len(p.active), "size", len(p.slots))
	return p.nop, fmt.Errorf("%w: %d of %d slots active", ErrPoolExhausted, len(p.active), len(p.slots))
}

func (p *Pool) activateLocked(s *Slot) {
	p.seq++
	s.seq = p.seq
	s.active = true
	p.active = append(p.active, s)
	p.stats.Acquired++
}

func (p *Pool) configureLocked(s *Slot, d sound.Descriptor, bus audio.Bus) error {
	if !s.active {
		return ErrSlotIdle
	}
	if err := d.Validate(); err != nil {
		p.releaseLocked(s, true)
		return err
	}

	s.gen++
	s.desc = d
	s.bus = bus

	c := Completion{Slot: s.index, Generation: s.gen}
	if err := s.voice.Play(d, bus, func() { p.Post(c) }); err != nil {
		p.releaseLocked(s, false)
		log.ErrorErr(log.CatPool, "Voice failed to start", err, "sound", d.ID, "slot", s.index)
		return fmt.Errorf("play %s: %w", d.ID, err)
	}
	return nil
}

// releaseLocked moves an active slot back to the idle stack
func (p *Pool) releaseLocked(s *Slot, halt bool) {
	p.deactivateLocked(s, halt)
	p.idle = append(p.idle, s)
}

// deactivateLocked clears s and drops it from the active list without
// returning it to the idle stack
func (p *Pool) deactivateLocked(s *Slot, halt bool) {
	if halt {
		s.voice.Halt()
	}
	for i, a := range p.active {
		if a == s {
			p.active = append(p.active[:i], p.active[i+1:]...)
			break
		}
	}
	s.active = false
	s.gen++
	s.desc = sound.Descriptor{}
}

// drainLocked applies queued completions. Returns slots freed.
func (p *Pool) drainLocked() int {
	freed := 0
	for _, c := range p.inbox.Consume() {
		if c.Slot < 0 || c.Slot >= len(p.slots) {
			p.stats.Stale++
			continue
		}
		s := p.slots[c.Slot]
		if !s.active || s.gen != c.Generation {
			p.stats.Stale++
			continue
		}
		p.releaseLocked(s, false)
		p.stats.Completed++
		freed++
	}
	return freed
}
