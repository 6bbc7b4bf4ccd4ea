// Package sound describes playable sounds: decoded clips, the immutable
// descriptors handed to the playback pool, and sound banks that group clip
// variants under one identity.
package sound

import (
	"fmt"
	"math"
	"time"
)

// ID identifies a sound for stop-by-identity lookups
type ID string

// Descriptor is an immutable description of one playable unit.
// Owned by the caller; the pool only reads it.
type Descriptor struct {
	ID     ID
	Clip   *Clip
	Volume float64       // 0.0-1.0 linear gain
	Pitch  float64       // playback rate multiplier, 1 = unchanged
	Pan    float64       // -1 left, 0 center, 1 right
	Delay  time.Duration // silence before playback starts
	Loop   bool
}

// New returns a descriptor at unity volume and pitch
func New(id ID, clip *Clip) Descriptor {
	return Descriptor{
		ID:     id,
		Clip:   clip,
		Volume: 1,
		Pitch:  1,
	}
}

// WithVolume returns a copy with volume set
func (d Descriptor) WithVolume(v float64) Descriptor {
	d.Volume = v
	return d
}

// WithPitch returns a copy with pitch set
func (d Descriptor) WithPitch(p float64) Descriptor {
	d.Pitch = p
	return d
}

// WithPan returns a copy with pan set
func (d Descriptor) WithPan(p float64) Descriptor {
	d.Pan = p
	return d
}

// WithDelay returns a copy with start delay set
func (d Descriptor) WithDelay(delay time.Duration) Descriptor {
	d.Delay = delay
	return d
}

// WithLoop returns a copy with looping set
func (d Descriptor) WithLoop(loop bool) Descriptor {
	d.Loop = loop
	return d
}

// Validate checks field ranges
func (d Descriptor) Validate() error {
	switch {
	case d.ID == "":
		return fmt.Errorf("%w: empty id", ErrInvalidDescriptor)
	case math.IsNaN(d.Volume) || d.Volume < 0 || d.Volume > 1:
		return fmt.Errorf("%w: volume %g outside [0,1]", ErrInvalidDescriptor, d.Volume)
	case math.IsNaN(d.Pitch) || d.Pitch <= 0:
		return fmt.Errorf("%w: pitch %g must be positive", ErrInvalidDescriptor, d.Pitch)
	case math.IsNaN(d.Pan) || d.Pan < -1 || d.Pan > 1:
		return fmt.Errorf("%w: pan %g outside [-1,1]", ErrInvalidDescriptor, d.Pan)
	case d.Delay < 0:
		return fmt.Errorf("%w: negative delay %v", ErrInvalidDescriptor, d.Delay)
	}
	return nil
}
