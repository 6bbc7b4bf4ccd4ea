package curve

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const tolerance = 1e-6

func TestMapperIdentityScenario(t *testing.T) {
	m := NewMapper(Linear{}, 0, 1)

	out := m.ToOutput(0.5)
	assert.InDelta(t, 0.5, out, tolerance)

	control, err := m.ToControl(out)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, control, tolerance)
}

func TestMapperNilCurveIsClampedLerp(t *testing.T) {
	m := Mapper{Min: -80, Max: 0}

	assert.InDelta(t, -80, m.ToOutput(0), tolerance)
	assert.InDelta(t, -40, m.ToOutput(0.5), tolerance)
	assert.InDelta(t, 0, m.ToOutput(1), tolerance)
	assert.InDelta(t, 0, m.ToOutput(3), tolerance, "control above 1 clamps")
	assert.InDelta(t, -80, m.ToOutput(-1), tolerance, "control below 0 clamps")

	control, err := m.ToControl(-20)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, control, tolerance)
}

func TestMapperEmptyRange(t *testing.T) {
	m := NewMapper(Linear{}, 3, 3)

	assert.Equal(t, 3.0, m.ToOutput(0.7))
	control, err := m.ToControl(3)
	require.NoError(t, err)
	assert.Equal(t, 0.0, control)
}

func TestMapperReportsMappingError(t *testing.T) {
	// Rises then falls: no unique inverse
	hump, err := NewKeyed(Key{0, 0}, Key{0.5, 1}, Key{1, 0})
	require.NoError(t, err)
	require.False(t, hump.Invertible())

	m := NewMapper(hump, 0, 1)
	_, err = m.ToControl(0.5)
	require.Error(t, err)

	var mappingErr *MappingError
	require.True(t, errors.As(err, &mappingErr))
	assert.InDelta(t, 0.5, mappingErr.Fraction, tolerance)
	assert.ErrorIs(t, err, ErrNotInvertible)
}

func TestMapperRoundTripProperty(t *testing.T) {
	curves := map[string]Curve{
		"linear": Linear{},
		"power":  Power{Exponent: 2},
		"root":   Power{Exponent: 0.5},
		"log":    Log{Decades: 4},
		"nil":    nil,
	}
	keyed, err := NewKeyed(Key{0, 0}, Key{0.25, 0.6}, Key{0.6, 0.8}, Key{1, 1})
	require.NoError(t, err)
	curves["keyed"] = keyed

	for name, c := range curves {
		t.Run(name, func(t *testing.T) {
			rapid.Check(t, func(rt *rapid.T) {
				lo := rapid.Float64Range(-100, 0).Draw(rt, "min")
				span := rapid.Float64Range(0.5, 100).Draw(rt, "span")
				v := rapid.Float64Range(0, 1).Draw(rt, "control")

				m := NewMapper(c, lo, lo+span)
				got, err := m.ToControl(m.ToOutput(v))
				if err != nil {
					rt.Fatalf("ToControl(ToOutput(%g)) failed: %v", v, err)
				}
				if math.Abs(got-v) > 1e-3 {
					rt.Fatalf("round trip of %g returned %g", v, got)
				}
			})
		})
	}
}
