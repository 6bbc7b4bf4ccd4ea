package sound

import (
	"fmt"
	"math"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
)

// SynthKind names a built-in synthesized clip
type SynthKind string

const (
	SynthBlip  SynthKind = "blip"  // short 880Hz tone
	SynthBuzz  SynthKind = "buzz"  // low harmonic error buzz
	SynthSweep SynthKind = "sweep" // rising 'whroom' sweep
	SynthDecay SynthKind = "decay" // noisy crackle with exponential tail
)

// SynthKinds lists every built-in clip
var SynthKinds = []SynthKind{SynthBlip, SynthBuzz, SynthSweep, SynthDecay}

// Synth renders a built-in clip at sample rate sr
func Synth(kind SynthKind, sr beep.SampleRate) (*Clip, error) {
	format := beep.Format{SampleRate: sr, NumChannels: 2, Precision: 2}

	var (
		s   beep.Streamer
		err error
	)
	switch kind {
	case SynthBlip:
		var sine beep.Streamer
		sine, err = generators.SineTone(sr, 880)
		if err == nil {
			s = &envelope{Streamer: sine, attack: sr.N(5 * time.Millisecond), total: sr.N(120 * time.Millisecond), gain: 0.3}
		}
	case SynthBuzz:
		s = beep.Take(sr.N(150*time.Millisecond), &buzzGen{sr: sr, freq: 120})
	case SynthSweep:
		s = beep.Take(sr.N(time.Second), &sweepGen{sr: sr, samples: sr.N(time.Second)})
	case SynthDecay:
		s = beep.Take(sr.N(300*time.Millisecond), &decayGen{sr: sr, seed: 1})
	default:
		return nil, fmt.Errorf("%q: %w", kind, ErrUnknownSynth)
	}
	if err != nil {
		return nil, fmt.Errorf("synth %s: %w", kind, err)
	}

	return NewClip("synth:"+string(kind), format, s)
}

// envelope applies a linear attack and release over total frames, then ends
type envelope struct {
	beep.Streamer
	attack int
	total  int
	gain   float64
	pos    int
}

func (e *envelope) Stream(samples [][2]float64) (n int, ok bool) {
	if e.pos >= e.total {
		return 0, false
	}
	if remaining := e.total - e.pos; len(samples) > remaining {
		samples = samples[:remaining]
	}
	n, ok = e.Streamer.Stream(samples)
	for i := 0; i < n; i++ {
		level := 1.0
		if e.pos < e.attack {
			level = float64(e.pos) / float64(e.attack)
		} else if tail := e.total - e.pos; tail < e.attack*4 {
			level = float64(tail) / float64(e.attack*4)
		}
		samples[i][0] *= level * e.gain
		samples[i][1] *= level * e.gain
		e.pos++
	}
	return n, ok
}

// buzzGen is a square-ish wave built from three harmonics
type buzzGen struct {
	sr   beep.SampleRate
	freq float64
	pos  int
}

func (g *buzzGen) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		t := float64(g.pos) / float64(g.sr)

		sample := 0.3*math.Sin(2*math.Pi*g.freq*t) +
			0.15*math.Sin(2*math.Pi*g.freq*2*t) +
			0.075*math.Sin(2*math.Pi*g.freq*3*t)

		// 20ms fade in
		sample *= math.Min(t/0.02, 1.0) * 0.2

		samples[i][0] = sample
		samples[i][1] = sample
		g.pos++
	}
	return len(samples), true
}

func (g *buzzGen) Err() error { return nil }

// sweepGen sweeps 80Hz -> 200Hz -> 80Hz once per cycle
type sweepGen struct {
	sr      beep.SampleRate
	pos     int
	samples int
}

func (g *sweepGen) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		t := float64(g.pos) / float64(g.sr)
		cycle := float64(g.pos%g.samples) / float64(g.samples)
		freq := 80 + 120*math.Sin(cycle*math.Pi)

		amplitude := 0.15 * (0.5 + 0.5*math.Sin(cycle*math.Pi*2))
		sample := amplitude * math.Sin(2*math.Pi*freq*t)

		samples[i][0] = sample
		samples[i][1] = sample
		g.pos++
	}
	return len(samples), true
}

func (g *sweepGen) Err() error { return nil }

// decayGen mixes LCG noise with a low rumble under an exponential decay
type decayGen struct {
	sr   beep.SampleRate
	pos  int
	seed int64
}

func (g *decayGen) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		t := float64(g.pos) / float64(g.sr)
		env := math.Exp(-t * 8)

		g.seed = (g.seed*1103515245 + 12345) & 0x7fffffff
		noise := float64(g.seed)/float64(0x7fffffff)*2 - 1
		rumble := 0.3 * math.Sin(2*math.Pi*80*t)

		sample := env * (0.25*noise + rumble)
		samples[i][0] = sample
		samples[i][1] = sample
		g.pos++
	}
	return len(samples), true
}

func (g *decayGen) Err() error { return nil }
