package pool

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/lixenwraith/soundpool/audio"
	"github.com/lixenwraith/soundpool/audio/audiotest"
	"github.com/lixenwraith/soundpool/sound"
)

// poolMachine drives random operation sequences and checks that every slot
// is in exactly one of idle or active after each step
type poolMachine struct {
	p    *Pool
	sink *audiotest.Sink
	cfg  Config
	clip *sound.Clip
	next int
}

func (m *poolMachine) Play(t *rapid.T) {
	m.next++
	id := sound.ID(fmt.Sprintf("s%d", m.next))
	s, err := m.p.Play(sound.New(id, m.clip), audio.BusSFX)
	if err != nil {
		if !s.IsNop() {
			t.Fatalf("failed play returned a real slot")
		}
		return
	}
	if !s.Matches(id) {
		t.Fatalf("slot %d does not match %s after play", s.Index(), id)
	}
}

func (m *poolMachine) Finish(t *rapid.T) {
	playing := m.sink.Playing()
	if len(playing) == 0 {
		t.Skip("nothing playing")
	}
	v := rapid.SampledFrom(playing).Draw(t, "voice")
	v.Finish()
}

func (m *poolMachine) Stop(t *rapid.T) {
	active := m.p.ActiveSlots()
	if len(active) == 0 {
		t.Skip("nothing active")
	}
	s := rapid.SampledFrom(active).Draw(t, "slot")
	s.ForceStop()
	s.ForceStop()
	if s.Active() {
		t.Fatalf("slot %d still active after stop", s.Index())
	}
}

func (m *poolMachine) Update(t *rapid.T) {
	m.p.Update()
}

func (m *poolMachine) Check(t *rapid.T) {
	m.p.mu.Lock()
	defer m.p.mu.Unlock()

	if len(m.p.idle)+len(m.p.active) != len(m.p.slots) {
		t.Fatalf("idle %d + active %d != size %d", len(m.p.idle), len(m.p.active), len(m.p.slots))
	}
	seen := make(map[*Slot]bool, len(m.p.slots))
	for _, s := range m.p.idle {
		if s.active || seen[s] {
			t.Fatalf("slot %d misplaced in idle set", s.index)
		}
		seen[s] = true
	}
	var last uint64
	for _, s := range m.p.active {
		if !s.active || seen[s] {
			t.Fatalf("slot %d misplaced in active set", s.index)
		}
		if s.seq <= last {
			t.Fatalf("active list out of acquisition order")
		}
		last = s.seq
		seen[s] = true
	}
	if m.cfg.Overflow != OverflowGrow && len(m.p.active) > m.cfg.Capacity {
		t.Fatalf("active %d exceeds capacity %d", len(m.p.active), m.cfg.Capacity)
	}
	if m.cfg.Overflow == OverflowGrow && m.cfg.MaxSize > 0 && len(m.p.slots) > m.cfg.MaxSize {
		t.Fatalf("size %d exceeds max %d", len(m.p.slots), m.cfg.MaxSize)
	}
}

func TestPoolInvariantsProperty(t *testing.T) {
	clip := testClip(t)
	rapid.Check(t, func(t *rapid.T) {
		cfg := Config{
			Capacity: rapid.IntRange(0, 6).Draw(t, "capacity"),
			Overflow: Overflow(rapid.IntRange(0, 2).Draw(t, "overflow")),
		}
		if cfg.Overflow == OverflowGrow {
			cfg.MaxSize = rapid.IntRange(cfg.Capacity, cfg.Capacity+4).Draw(t, "max")
		}

		sink := audiotest.NewSink()
		p, err := New(cfg, sink.NewVoice)
		if err != nil {
			t.Fatalf("new pool: %v", err)
		}
		defer p.Close()

		m := &poolMachine{p: p, sink: sink, cfg: cfg, clip: clip}
		t.Repeat(rapid.StateMachineActions(m))
	})
}
