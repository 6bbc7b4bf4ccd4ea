// Package audio is the engine side of playback: buses, the Sink and Voice
// contracts the playback pool drives, and a beep-backed Mixer implementing
// them with optional speaker output.
package audio

import (
	"errors"

	"github.com/lixenwraith/soundpool/sound"
)

// Voice is one reusable playback resource owned by a pool slot
type Voice interface {
	// Play starts d on bus. done is invoked once, from the sink's own
	// goroutine, when playback ends naturally. Halted playback never
	// invokes done. Starting a voice that is still playing replaces the
	// previous sound.
	Play(d sound.Descriptor, bus Bus, done func()) error

	// Halt stops playback immediately. Safe on an idle voice.
	Halt()
}

// Sink is the mixing engine: it hands out voices and holds bus parameters
type Sink interface {
	NewVoice() (Voice, error)
	SetBusParameter(name string, value float64) error
	GetBusParameter(name string) (float64, bool)
}

// Sentinel errors
var (
	ErrNoClip           = errors.New("descriptor has no clip")
	ErrUnknownBus       = errors.New("unknown bus")
	ErrUnknownParameter = errors.New("unknown bus parameter")
	ErrNoDevice         = errors.New("no audio output device")
	ErrDeviceOpen       = errors.New("audio output already open")
)
