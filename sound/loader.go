package sound

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/flac"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/vorbis"
	"github.com/gopxl/beep/wav"
	"github.com/patrickmn/go-cache"
)

// DefaultClipTTL is how long an unused decoded clip stays cached
const DefaultClipTTL = 10 * time.Minute

type decodeFunc func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error)

var decoders = map[string]decodeFunc{
	".wav":  decodeWAV,
	".mp3":  mp3.Decode,
	".ogg":  vorbis.Decode,
	".flac": decodeFLAC,
}

func decodeWAV(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
	return wav.Decode(rc)
}

func decodeFLAC(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
	return flac.Decode(rc)
}

// Supported reports whether name has a decodable extension
func Supported(name string) bool {
	_, ok := decoders[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Loader decodes clips from disk or an fs.FS and caches them by name
type Loader struct {
	fsys  fs.FS
	clips *cache.Cache
}

// NewLoader creates a loader reading from fsys, or the OS filesystem when
// fsys is nil. Clips unused for ttl are evicted; ttl <= 0 keeps them forever.
func NewLoader(fsys fs.FS, ttl time.Duration) *Loader {
	expiration := ttl
	cleanup := ttl
	if ttl <= 0 {
		expiration = cache.NoExpiration
		cleanup = 0
	}
	return &Loader{
		fsys:  fsys,
		clips: cache.New(expiration, cleanup),
	}
}

// Load returns the decoded clip for name, decoding on first use
func (l *Loader) Load(name string) (*Clip, error) {
	if c, ok := l.Lookup(name); ok {
		return c, nil
	}

	decode, ok := decoders[strings.ToLower(filepath.Ext(name))]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrUnsupportedFormat)
	}

	f, err := l.open(name)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	s, format, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	defer s.Close()

	clip, err := NewClip(name, format, s)
	if err != nil {
		return nil, err
	}

	l.clips.SetDefault(name, clip)
	return clip, nil
}

// Lookup returns the cached clip for name without touching the filesystem
func (l *Loader) Lookup(name string) (*Clip, bool) {
	c, ok := l.clips.Get(name)
	if !ok {
		return nil, false
	}
	// Refresh expiration on hit
	l.clips.SetDefault(name, c)
	return c.(*Clip), true
}

// Store registers an already decoded clip under name
func (l *Loader) Store(name string, clip *Clip) {
	l.clips.SetDefault(name, clip)
}

// Evict drops a cached clip
func (l *Loader) Evict(name string) {
	l.clips.Delete(name)
}

// Cached returns the number of clips held
func (l *Loader) Cached() int {
	return l.clips.ItemCount()
}

func (l *Loader) open(name string) (io.ReadCloser, error) {
	if l.fsys == nil {
		return os.Open(name)
	}
	return l.fsys.Open(filepath.ToSlash(name))
}
