package audio

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"

	"github.com/lixenwraith/soundpool/log"
	"github.com/lixenwraith/soundpool/sound"
)

const (
	DefaultSampleRate = beep.SampleRate(44100)
	DefaultBuffer     = 100 * time.Millisecond

	// SilenceFloor is the bus level in dB at or below which a bus is muted
	SilenceFloor = -80.0

	resampleQuality = 4
)

// busChain is a bus mixer behind its gain stage
type busChain struct {
	mixer *beep.Mixer
	gain  *effects.Volume
}

// MixerStats counts voice lifecycle events
type MixerStats struct {
	Live     int
	Started  uint64
	Finished uint64
	Halted   uint64
}

// Mixer is a beep graph acting as the engine sink. Music and SFX buses feed
// the master bus; every bus has a decibel gain stage driven by its
// parameter. The Mixer is itself a beep.Streamer: it renders offline through
// Stream or to the speaker after Open.
type Mixer struct {
	mu     sync.Mutex
	format beep.Format
	buses  [busCount]*busChain
	out    *effects.Volume
	params map[string]float64
	muted  bool

	stats MixerStats

	device atomic.Bool
}

// NewMixer creates a mixer rendering stereo at sr
func NewMixer(sr beep.SampleRate) *Mixer {
	if sr <= 0 {
		sr = DefaultSampleRate
	}
	m := &Mixer{
		format: beep.Format{SampleRate: sr, NumChannels: 2, Precision: 2},
		params: make(map[string]float64),
	}

	for _, b := range Buses() {
		mix := &beep.Mixer{}
		m.buses[b] = &busChain{
			mixer: mix,
			gain:  &effects.Volume{Streamer: mix, Base: 10},
		}
	}
	master := m.buses[BusMaster].mixer
	master.Add(m.buses[BusMusic].gain, m.buses[BusSFX].gain)
	m.out = m.buses[BusMaster].gain

	return m
}

// Format returns the output format
func (m *Mixer) Format() beep.Format {
	return m.format
}

// Stream renders the mix. It never ends; silence is produced when idle.
func (m *Mixer) Stream(samples [][2]float64) (n int, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, _ = m.out.Stream(samples)
	for i := n; i < len(samples); i++ {
		samples[i] = [2]float64{}
	}
	return len(samples), true
}

// Err implements beep.Streamer
func (m *Mixer) Err() error {
	return nil
}

// NewVoice implements Sink
func (m *Mixer) NewVoice() (Voice, error) {
	return &beepVoice{m: m}, nil
}

// SetBusParameter sets a bus level in decibels
func (m *Mixer) SetBusParameter(name string, value float64) error {
	b, ok := BusForParam(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownParameter, name)
	}
	if math.IsNaN(value) {
		return fmt.Errorf("%s: level is NaN", name)
	}

	m.mu.Lock()
	m.params[name] = value
	m.applyGainLocked(b)
	m.mu.Unlock()

	log.Debug(log.CatAudio, "Bus level set", "bus", b, "db", value)
	return nil
}

// GetBusParameter returns a bus level; false if it was never set
func (m *Mixer) GetBusParameter(name string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.params[name]
	return v, ok
}

// ToggleMute flips master mute, returns true if audio is now audible
func (m *Mixer) ToggleMute() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.muted = !m.muted
	m.applyGainLocked(BusMaster)
	return !m.muted
}

// IsMuted returns current mute state
func (m *Mixer) IsMuted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.muted
}

// Stats returns voice counters
func (m *Mixer) Stats() MixerStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Open starts speaker output with the given device buffer.
// The speaker package allows a single output per process.
func (m *Mixer) Open(buffer time.Duration) error {
	if !m.device.CompareAndSwap(false, true) {
		return ErrDeviceOpen
	}
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	if err := speaker.Init(m.format.SampleRate, m.format.SampleRate.N(buffer)); err != nil {
		m.device.Store(false)
		return fmt.Errorf("%w: %v", ErrNoDevice, err)
	}
	speaker.Play(m)

	log.Info(log.CatAudio, "Audio output opened", "rate", int(m.format.SampleRate), "buffer", buffer)
	return nil
}

// Close stops speaker output. Voices stay attached to the graph.
func (m *Mixer) Close() {
	if !m.device.CompareAndSwap(true, false) {
		return
	}
	speaker.Clear()
	speaker.Close()
	log.Info(log.CatAudio, "Audio output closed")
}

func (m *Mixer) applyGainLocked(b Bus) {
	gain := m.buses[b].gain
	level, ok := m.params[b.Param()]
	if !ok {
		level = 0
	}
	gain.Volume = level / 20
	gain.Silent = level <= SilenceFloor || (b == BusMaster && m.muted)
}

// build assembles the per-sound chain:
// clip [loop] -> resample(rate, pitch) -> gain -> pan -> [delay] -> completion
func (m *Mixer) build(d sound.Descriptor, onEnd func()) beep.Streamer {
	var s beep.Streamer
	if d.Loop {
		s = beep.Loop(-1, d.Clip.Streamer())
	} else {
		s = d.Clip.Streamer()
	}

	pitch := d.Pitch
	if pitch <= 0 {
		pitch = 1
	}
	ratio := float64(d.Clip.Format().SampleRate) / float64(m.format.SampleRate) * pitch
	if ratio != 1 {
		s = beep.ResampleRatio(resampleQuality, ratio, s)
	}

	if d.Volume != 1 {
		s = &effects.Volume{
			Streamer: s,
			Base:     2,
			Volume:   math.Log2(math.Max(d.Volume, 1e-6)),
			Silent:   d.Volume <= 0,
		}
	}

	if d.Pan != 0 {
		s = &balance{Streamer: s, pan: math.Max(-1, math.Min(1, d.Pan))}
	}

	if d.Delay > 0 {
		s = beep.Seq(beep.Silence(m.format.SampleRate.N(d.Delay)), s)
	}

	return beep.Seq(s, beep.Callback(onEnd))
}

// balance attenuates the channel opposite to pan and leaves the near
// channel untouched; -1 is left only, 1 is right only
type balance struct {
	beep.Streamer
	pan float64
}

func (b *balance) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = b.Streamer.Stream(samples)
	left, right := math.Min(1, 1-b.pan), math.Min(1, 1+b.pan)
	for i := range samples[:n] {
		samples[i][0] *= left
		samples[i][1] *= right
	}
	return n, ok
}

// beepVoice owns at most one Ctrl in the graph. ctrl is guarded by m.mu.
type beepVoice struct {
	m    *Mixer
	ctrl *beep.Ctrl
}

func (v *beepVoice) Play(d sound.Descriptor, bus Bus, done func()) error {
	if d.Clip == nil {
		return ErrNoClip
	}
	if !bus.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownBus, int(bus))
	}

	m := v.m
	ctrl := &beep.Ctrl{}
	// Runs inside Mixer.Stream with m.mu held
	onEnd := func() {
		if v.ctrl != ctrl {
			return
		}
		v.ctrl = nil
		m.stats.Live--
		m.stats.Finished++
		if done != nil {
			done()
		}
	}
	ctrl.Streamer = m.build(d, onEnd)

	m.mu.Lock()
	defer m.mu.Unlock()

	v.detachLocked()
	v.ctrl = ctrl
	m.buses[bus].mixer.Add(ctrl)
	m.stats.Live++
	m.stats.Started++
	return nil
}

func (v *beepVoice) Halt() {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	v.detachLocked()
}

// detachLocked drops the current chain; the bus mixer discards a Ctrl whose
// Streamer is nil on its next pass
func (v *beepVoice) detachLocked() {
	if v.ctrl == nil {
		return
	}
	v.ctrl.Streamer = nil
	v.ctrl = nil
	v.m.stats.Live--
	v.m.stats.Halted++
}
