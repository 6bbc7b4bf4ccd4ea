// Package audiotest provides an in-memory Sink for driving the playback pool
// without an audio graph. Voices never finish on their own; tests call
// Voice.Finish to simulate a sound reaching its natural end.
package audiotest

import (
	"errors"
	"sync"

	"github.com/lixenwraith/soundpool/audio"
	"github.com/lixenwraith/soundpool/sound"
)

// ErrInjected is returned by operations configured to fail
var ErrInjected = errors.New("audiotest: injected failure")

// Sink records bus parameters and every voice it created
type Sink struct {
	mu     sync.Mutex
	params map[string]float64
	voices []*Voice

	// FailVoice makes NewVoice fail once this many voices exist (0 = never)
	FailVoice int
	// FailPlay makes every Voice.Play fail
	FailPlay bool
	// FailParam makes SetBusParameter fail
	FailParam bool
}

// NewSink creates an empty sink
func NewSink() *Sink {
	return &Sink{params: make(map[string]float64)}
}

func (s *Sink) NewVoice() (audio.Voice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailVoice > 0 && len(s.voices) >= s.FailVoice {
		return nil, ErrInjected
	}
	v := &Voice{sink: s, index: len(s.voices)}
	s.voices = append(s.voices, v)
	return v, nil
}

func (s *Sink) SetBusParameter(name string, value float64) error {
	if _, ok := audio.BusForParam(name); !ok {
		return audio.ErrUnknownParameter
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailParam {
		return ErrInjected
	}
	s.params[name] = value
	return nil
}

func (s *Sink) GetBusParameter(name string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.params[name]
	return v, ok
}

// ClearParameter forgets a bus parameter, as if the engine never had it
func (s *Sink) ClearParameter(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.params, name)
}

// Voices returns every voice created so far, in creation order
func (s *Sink) Voices() []*Voice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Voice, len(s.voices))
	copy(out, s.voices)
	return out
}

// Playing returns voices currently playing
func (s *Sink) Playing() []*Voice {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Voice
	for _, v := range s.voices {
		if v.playing {
			out = append(out, v)
		}
	}
	return out
}

// Voice is a fake playback resource. State is guarded by the owning sink.
type Voice struct {
	sink  *Sink
	index int

	playing bool
	desc    sound.Descriptor
	bus     audio.Bus
	done    func()
	plays   int
	halts   int
}

func (v *Voice) Play(d sound.Descriptor, bus audio.Bus, done func()) error {
	if d.Clip == nil {
		return audio.ErrNoClip
	}
	v.sink.mu.Lock()
	defer v.sink.mu.Unlock()
	if v.sink.FailPlay {
		return ErrInjected
	}
	v.playing = true
	v.desc = d
	v.bus = bus
	v.done = done
	v.plays++
	return nil
}

func (v *Voice) Halt() {
	v.sink.mu.Lock()
	defer v.sink.mu.Unlock()
	if v.playing {
		v.halts++
	}
	v.playing = false
	v.done = nil
}

// Finish ends the current sound naturally and fires its completion
// callback. Returns false if the voice was not playing.
func (v *Voice) Finish() bool {
	v.sink.mu.Lock()
	if !v.playing {
		v.sink.mu.Unlock()
		return false
	}
	done := v.done
	v.playing = false
	v.done = nil
	v.sink.mu.Unlock()

	if done != nil {
		done()
	}
	return true
}

// Index is the creation order of the voice within its sink
func (v *Voice) Index() int {
	return v.index
}

func (v *Voice) Playing() bool {
	v.sink.mu.Lock()
	defer v.sink.mu.Unlock()
	return v.playing
}

// Descriptor returns the last descriptor played
func (v *Voice) Descriptor() sound.Descriptor {
	v.sink.mu.Lock()
	defer v.sink.mu.Unlock()
	return v.desc
}

// Bus returns the last bus played on
func (v *Voice) Bus() audio.Bus {
	v.sink.mu.Lock()
	defer v.sink.mu.Unlock()
	return v.bus
}

// Plays counts successful Play calls
func (v *Voice) Plays() int {
	v.sink.mu.Lock()
	defer v.sink.mu.Unlock()
	return v.plays
}

// Halts counts Halt calls that stopped a playing sound
func (v *Voice) Halts() int {
	v.sink.mu.Lock()
	defer v.sink.mu.Unlock()
	return v.halts
}
