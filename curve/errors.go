package curve

import (
	"errors"
	"fmt"
)

var (
	ErrNotInvertible = errors.New("curve has no inverse at this value")
	ErrInvalidCurve  = errors.New("invalid curve")
)

// MappingError reports an output value whose control position cannot be
// recovered through the configured curve
type MappingError struct {
	Output   float64 // value handed to ToControl
	Fraction float64 // inverse-lerp position within [Min, Max]
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("cannot map output %g (fraction %g) back to a control value", e.Output, e.Fraction)
}

func (e *MappingError) Is(target error) bool {
	return target == ErrNotInvertible
}
