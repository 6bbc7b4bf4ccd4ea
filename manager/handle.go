package manager

import (
	"github.com/google/uuid"

	"github.com/lixenwraith/soundpool/audio"
	"github.com/lixenwraith/soundpool/pool"
	"github.com/lixenwraith/soundpool/sound"
)

// Handle refers to one Play call. A dropped play yields a handle whose
// methods do nothing.
type Handle struct {
	ID      uuid.UUID // zero when dropped
	Sound   sound.ID
	Bus     audio.Bus
	Dropped bool

	lease pool.Lease
}

// Stop halts this play if it is still running. A handle never stops a
// later sound that reused its slot.
func (h Handle) Stop() bool {
	if h.Dropped || h.lease.Slot == nil {
		return false
	}
	return h.lease.Stop()
}

// Playing reports whether this play is still running
func (h Handle) Playing() bool {
	if h.Dropped || h.lease.Slot == nil {
		return false
	}
	return h.lease.Playing()
}

// Slot returns the slot index, -1 when dropped
func (h Handle) Slot() int {
	if h.Dropped || h.lease.Slot == nil {
		return -1
	}
	return h.lease.Index()
}
