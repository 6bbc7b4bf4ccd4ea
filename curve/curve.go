// Package curve maps normalized control values onto output ranges.
//
// A Mapper bends a [0,1] slider value through a Curve and interpolates the
// result between a minimum and maximum output, the way a volume slider is
// mapped onto a mixer's decibel range. The inverse path recovers the slider
// position from a stored output value.
package curve

import (
	"fmt"
	"math"
	"sort"
)

// Curve bends a normalized value. Evaluate clamps its input to [0,1].
// Inverse reports false when no unique input produces y.
type Curve interface {
	Evaluate(x float64) float64
	Inverse(y float64) (float64, bool)
}

// Linear is the identity curve
type Linear struct{}

func (Linear) Evaluate(x float64) float64 {
	return clamp01(x)
}

func (Linear) Inverse(y float64) (float64, bool) {
	if !inUnit(y) {
		return 0, false
	}
	return clamp01(y), true
}

// Power raises the input to Exponent. Exponents above 1 give finer control
// at the quiet end of a slider.
type Power struct {
	Exponent float64
}

func (p Power) Evaluate(x float64) float64 {
	return math.Pow(clamp01(x), p.exponent())
}

func (p Power) Inverse(y float64) (float64, bool) {
	if !inUnit(y) {
		return 0, false
	}
	return math.Pow(clamp01(y), 1/p.exponent()), true
}

func (p Power) exponent() float64 {
	if p.Exponent <= 0 {
		return 1
	}
	return p.Exponent
}

// DefaultDecades spans 80 dB when paired with a [-80, 0] mapper
const DefaultDecades = 4

// Log follows perceived loudness: Evaluate(x) = 1 + log10(x)/Decades,
// clamped to [0,1]. Inputs below 10^-Decades evaluate to 0.
type Log struct {
	Decades float64
}

func (l Log) Evaluate(x float64) float64 {
	x = clamp01(x)
	if x == 0 {
		return 0
	}
	return clamp01(1 + math.Log10(x)/l.decades())
}

func (l Log) Inverse(y float64) (float64, bool) {
	if !inUnit(y) {
		return 0, false
	}
	y = clamp01(y)
	if y == 0 {
		return 0, true
	}
	return math.Pow(10, (y-1)*l.decades()), true
}

func (l Log) decades() float64 {
	if l.Decades <= 0 {
		return DefaultDecades
	}
	return l.Decades
}

// Key is a single keyframe of a Keyed curve
type Key struct {
	In  float64
	Out float64
}

// Keyed interpolates linearly between keyframes. Inputs outside the first
// and last key evaluate to the nearest key's output.
type Keyed struct {
	keys []Key
	// +1 strictly increasing, -1 strictly decreasing, 0 not invertible
	direction int
}

// NewKeyed builds a keyed curve. Keys are sorted by In; at least two keys
// with distinct In values are required. Every In and Out must lie in [0,1]
// and the keys must start at In 0 and end at In 1, so no input range is
// flattened and no output is clamped by a Mapper.
func NewKeyed(keys ...Key) (*Keyed, error) {
	if len(keys) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 keys, got %d", ErrInvalidCurve, len(keys))
	}

	sorted := make([]Key, len(keys))
	copy(sorted, keys)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].In < sorted[j].In })

	for i, k := range sorted {
		if !unit(k.In) || !unit(k.Out) {
			return nil, fmt.Errorf("%w: key (%g, %g) outside [0,1]", ErrInvalidCurve, k.In, k.Out)
		}
		if i > 0 && k.In == sorted[i-1].In {
			return nil, fmt.Errorf("%w: duplicate key at %g", ErrInvalidCurve, k.In)
		}
	}
	if first, last := sorted[0].In, sorted[len(sorted)-1].In; first != 0 || last != 1 {
		return nil, fmt.Errorf("%w: keys span [%g, %g], want [0, 1]", ErrInvalidCurve, first, last)
	}

	return &Keyed{keys: sorted, direction: monotonic(sorted)}, nil
}

// Keys returns a copy of the keyframes in input order
func (k *Keyed) Keys() []Key {
	out := make([]Key, len(k.keys))
	copy(out, k.keys)
	return out
}

// Invertible reports whether the keyframe outputs are strictly monotonic
func (k *Keyed) Invertible() bool {
	return k.direction != 0
}

func (k *Keyed) Evaluate(x float64) float64 {
	x = clamp01(x)
	first, last := k.keys[0], k.keys[len(k.keys)-1]
	if x <= first.In {
		return first.Out
	}
	if x >= last.In {
		return last.Out
	}

	i := sort.Search(len(k.keys), func(i int) bool { return k.keys[i].In >= x })
	a, b := k.keys[i-1], k.keys[i]
	t := (x - a.In) / (b.In - a.In)
	return a.Out + (b.Out-a.Out)*t
}

func (k *Keyed) Inverse(y float64) (float64, bool) {
	if k.direction == 0 {
		return 0, false
	}

	lo, hi := k.keys[0].Out, k.keys[len(k.keys)-1].Out
	if lo > hi {
		lo, hi = hi, lo
	}
	if y < lo-epsilon || y > hi+epsilon {
		return 0, false
	}
	y = math.Max(lo, math.Min(hi, y))

	for i := 1; i < len(k.keys); i++ {
		a, b := k.keys[i-1], k.keys[i]
		segLo, segHi := a.Out, b.Out
		if segLo > segHi {
			segLo, segHi = segHi, segLo
		}
		if y < segLo || y > segHi {
			continue
		}
		t := (y - a.Out) / (b.Out - a.Out)
		return clamp01(a.In + (b.In-a.In)*t), true
	}
	return 0, false
}

func monotonic(keys []Key) int {
	dir := 0
	for i := 1; i < len(keys); i++ {
		d := keys[i].Out - keys[i-1].Out
		switch {
		case d > 0 && dir >= 0:
			dir = 1
		case d < 0 && dir <= 0:
			dir = -1
		default:
			return 0
		}
	}
	return dir
}

const epsilon = 1e-9

func inUnit(v float64) bool {
	return !math.IsNaN(v) && v >= -epsilon && v <= 1+epsilon
}

// unit reports whether v lies in [0,1] exactly
func unit(v float64) bool {
	return v >= 0 && v <= 1
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
