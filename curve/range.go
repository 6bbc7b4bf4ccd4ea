package curve

import "math/rand/v2"

// Range is an inclusive [Min, Max] span of floats, used for randomized
// pitch and volume variation
type Range struct {
	Min float64 `toml:"min"`
	Max float64 `toml:"max"`
}

// Fixed returns a range containing only v
func Fixed(v float64) Range {
	return Range{Min: v, Max: v}
}

// Lerp interpolates between Min and Max with t clamped to [0,1]
func (r Range) Lerp(t float64) float64 {
	return lerp(r.Min, r.Max, t)
}

// Middle returns the midpoint of the range
func (r Range) Middle() float64 {
	return r.Min + (r.Max-r.Min)*0.5
}

// Contains reports whether v lies within the inclusive bounds
func (r Range) Contains(v float64) bool {
	return !(v > r.Max || v < r.Min)
}

// Random returns a uniformly distributed value in the range.
// A nil source uses the global generator.
func (r Range) Random(src *rand.Rand) float64 {
	if r.Min == r.Max {
		return r.Min
	}
	var t float64
	if src != nil {
		t = src.Float64()
	} else {
		t = rand.Float64()
	}
	return r.Lerp(t)
}

// IsZero reports whether the range was never set
func (r Range) IsZero() bool {
	return r.Min == 0 && r.Max == 0
}
