package pool

import (
	"fmt"
	"strings"
)

// DefaultCapacity is the warm slot count when none is configured
const DefaultCapacity = 16

// Overflow selects what Acquire does when no idle slot is left
type Overflow int

const (
	// OverflowDrop returns the no-op slot and ErrPoolExhausted
	OverflowDrop Overflow = iota
	// OverflowGrow constructs a new slot, up to MaxSize when set
	OverflowGrow
	// OverflowSteal force-stops the oldest active slot and reissues it
	OverflowSteal
)

var overflowNames = []string{"drop", "grow", "steal"}

func (o Overflow) String() string {
	if o < 0 || int(o) >= len(overflowNames) {
		return fmt.Sprintf("overflow(%d)", int(o))
	}
	return overflowNames[o]
}

// ParseOverflow accepts drop, grow or steal
func ParseOverflow(s string) (Overflow, error) {
	for i, name := range overflowNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Overflow(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown overflow policy %q", ErrInvalidConfig, s)
}

// Config sizes the pool
type Config struct {
	// Capacity is the number of slots built up front
	Capacity int
	Overflow Overflow
	// MaxSize caps growth under OverflowGrow; 0 means unbounded
	MaxSize int
}

// DefaultConfig returns a drop-on-exhaustion pool of DefaultCapacity slots
func DefaultConfig() Config {
	return Config{Capacity: DefaultCapacity, Overflow: OverflowDrop}
}

// Validate checks sizes and policy
func (c Config) Validate() error {
	if c.Capacity < 0 {
		return fmt.Errorf("%w: negative capacity %d", ErrInvalidConfig, c.Capacity)
	}
	if c.Overflow < OverflowDrop || c.Overflow > OverflowSteal {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, c.Overflow)
	}
	if c.MaxSize < 0 {
		return fmt.Errorf("%w: negative max size %d", ErrInvalidConfig, c.MaxSize)
	}
	if c.MaxSize > 0 && c.MaxSize < c.Capacity {
		return fmt.Errorf("%w: max size %d below capacity %d", ErrInvalidConfig, c.MaxSize, c.Capacity)
	}
	return nil
}
