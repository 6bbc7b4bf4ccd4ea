package pool

import "errors"

var (
	// ErrPoolExhausted is returned when no slot can be handed out
	ErrPoolExhausted = errors.New("playback pool exhausted")
	ErrPoolClosed    = errors.New("playback pool closed")
	ErrSlotIdle      = errors.New("slot is not acquired")
	ErrInvalidConfig = errors.New("invalid pool config")
	ErrNoFactory     = errors.New("pool needs a voice factory")
)
