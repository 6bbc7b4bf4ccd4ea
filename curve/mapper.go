package curve

import "math"

// Mapper converts between control values in [0,1] and output values in
// [Min, Max]. A nil Curve maps linearly.
type Mapper struct {
	Curve Curve
	Min   float64
	Max   float64
}

// NewMapper returns a mapper over [lo, hi] bent by c
func NewMapper(c Curve, lo, hi float64) Mapper {
	return Mapper{Curve: c, Min: lo, Max: hi}
}

// ToOutput maps a control value to the output range. Control values outside
// [0,1] are clamped by the curve.
func (m Mapper) ToOutput(control float64) float64 {
	return lerp(m.Min, m.Max, m.evaluate(control))
}

// ToControl recovers the control value that produces output. Outputs outside
// [Min, Max] are pulled onto the nearest bound before inversion.
func (m Mapper) ToControl(output float64) (float64, error) {
	t := inverseLerp(m.Min, m.Max, output)
	if m.Curve == nil {
		return t, nil
	}

	control, ok := m.Curve.Inverse(t)
	if !ok || math.IsNaN(control) {
		return 0, &MappingError{Output: output, Fraction: t}
	}
	return control, nil
}

func (m Mapper) evaluate(control float64) float64 {
	if m.Curve == nil {
		return clamp01(control)
	}
	return m.Curve.Evaluate(control)
}

// lerp clamps t before interpolating
func lerp(a, b, t float64) float64 {
	t = clamp01(t)
	return a*(1-t) + b*t
}

// inverseLerp returns 0 for an empty range
func inverseLerp(a, b, v float64) float64 {
	if a == b {
		return 0
	}
	return clamp01((v - a) / (b - a))
}
