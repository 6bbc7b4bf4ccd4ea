package sound

import (
	"fmt"
	"time"

	"github.com/gopxl/beep"
)

// Clip is fully decoded audio held in memory. Safe for concurrent playback:
// every Streamer call returns an independent cursor.
type Clip struct {
	name string
	buf  *beep.Buffer
}

// NewClip drains s into memory. s must terminate.
func NewClip(name string, format beep.Format, s beep.Streamer) (*Clip, error) {
	buf := beep.NewBuffer(format)
	buf.Append(s)
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyClip)
	}
	return &Clip{name: name, buf: buf}, nil
}

// Name returns the clip's source name
func (c *Clip) Name() string {
	return c.name
}

// Format returns the sample format the clip was decoded at
func (c *Clip) Format() beep.Format {
	return c.buf.Format()
}

// Len returns the clip length in frames
func (c *Clip) Len() int {
	return c.buf.Len()
}

// Duration returns the clip length at its native sample rate
func (c *Clip) Duration() time.Duration {
	return c.buf.Format().SampleRate.D(c.buf.Len())
}

// Streamer returns a fresh cursor over the whole clip
func (c *Clip) Streamer() beep.StreamSeeker {
	return c.buf.Streamer(0, c.buf.Len())
}
