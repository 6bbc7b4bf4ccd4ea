package sound

import "errors"

// Sentinel errors
var (
	ErrInvalidDescriptor = errors.New("invalid sound descriptor")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrEmptyClip         = errors.New("clip has no samples")
	ErrInvalidBank       = errors.New("invalid sound bank")
	ErrNoVariants        = errors.New("sound bank has no variants")
	ErrUnknownSynth      = errors.New("unknown synth sound")
)
