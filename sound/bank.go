package sound

import (
	"bytes"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/lixenwraith/soundpool/curve"
)

// BankExt is the file extension for sound bank files
const BankExt = ".toml"

// Variant is one clip choice inside a bank
type Variant struct {
	File    string  `toml:"file"`
	Volume  float64 `toml:"volume"`
	Pitch   float64 `toml:"pitch"`
	Pan     float64 `toml:"pan,omitempty"`
	DelayMs float64 `toml:"delay_ms,omitempty"`
	Loop    bool    `toml:"loop,omitempty"`
}

// Bank groups clip variants under one sound identity. Each play picks a
// variant and optionally jitters its pitch and volume.
type Bank struct {
	Name         string       `toml:"name"`
	Bus          string       `toml:"bus,omitempty"`
	PitchJitter  *curve.Range `toml:"pitch_jitter,omitempty"`
	VolumeJitter *curve.Range `toml:"volume_jitter,omitempty"`
	Variants     []Variant    `toml:"variants"`

	dir string // directory variant paths resolve against
}

// ID returns the identity shared by every variant of the bank
func (b *Bank) ID() ID {
	return ID(b.Name)
}

// Validate checks the bank is playable
func (b *Bank) Validate() error {
	if b.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidBank)
	}
	if len(b.Variants) == 0 {
		return fmt.Errorf("%s: %w", b.Name, ErrNoVariants)
	}
	for i, v := range b.Variants {
		if v.File == "" {
			return fmt.Errorf("%w: %s variant %d has no file", ErrInvalidBank, b.Name, i)
		}
	}
	return nil
}

// Path resolves variant i's file against the bank's directory
func (b *Bank) Path(i int) string {
	f := b.Variants[i].File
	if filepath.IsAbs(f) || b.dir == "" {
		return f
	}
	return filepath.Join(b.dir, f)
}

// Descriptor builds the descriptor for variant i without jitter
func (b *Bank) Descriptor(i int, clip *Clip) Descriptor {
	v := b.Variants[i]
	d := New(b.ID(), clip)
	d.Volume = v.Volume
	d.Pitch = v.Pitch
	if d.Pitch == 0 {
		d.Pitch = 1
	}
	d.Pan = v.Pan
	d.Delay = time.Duration(v.DelayMs * float64(time.Millisecond))
	d.Loop = v.Loop
	return d
}

// Pick chooses a random variant, loads its clip and applies jitter.
// A nil src uses the global generator.
func (b *Bank) Pick(src *rand.Rand, load func(path string) (*Clip, error)) (Descriptor, error) {
	if len(b.Variants) == 0 {
		return Descriptor{}, fmt.Errorf("%s: %w", b.Name, ErrNoVariants)
	}

	var i int
	if src != nil {
		i = src.IntN(len(b.Variants))
	} else {
		i = rand.IntN(len(b.Variants))
	}

	clip, err := load(b.Path(i))
	if err != nil {
		return Descriptor{}, err
	}

	d := b.Descriptor(i, clip)
	if b.PitchJitter != nil {
		d.Pitch *= b.PitchJitter.Random(src)
	}
	if b.VolumeJitter != nil {
		d.Volume *= b.VolumeJitter.Random(src)
	}
	d.Volume = curve.Range{Min: 0, Max: 1}.Lerp(d.Volume)
	return d, nil
}

// ReadBank decodes a bank from TOML
func ReadBank(r io.Reader) (*Bank, error) {
	var b Bank
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBank, err)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// LoadBank reads a bank file; variant paths resolve relative to it
func LoadBank(path string) (*Bank, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	b, err := ReadBank(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	b.dir = filepath.Dir(path)
	return b, nil
}

// WriteBank encodes b as TOML
func WriteBank(w io.Writer, b *Bank) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	return enc.Encode(b)
}

// SaveBank writes b to path, replacing any existing file
func SaveBank(path string, b *Bank) error {
	var buf bytes.Buffer
	if err := WriteBank(&buf, b); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// CreateBanks writes bank files for audio clips. With single false, every
// clip gets its own SFX_<name>.toml next to it. With single true, one bank
// named after the first clip collects all clips as variants. Returns the
// written paths.
func CreateBanks(clips []string, single bool) ([]string, error) {
	if len(clips) == 0 {
		return nil, fmt.Errorf("%w: no clips given", ErrInvalidBank)
	}
	for _, c := range clips {
		if !Supported(c) {
			return nil, fmt.Errorf("%s: %w", c, ErrUnsupportedFormat)
		}
	}

	if single {
		dir := filepath.Dir(clips[0])
		name := baseName(clips[0])
		b := &Bank{Name: name}
		for _, c := range clips {
			b.Variants = append(b.Variants, unityVariant(relativeTo(dir, c)))
		}
		path := filepath.Join(dir, name+BankExt)
		if err := SaveBank(path, b); err != nil {
			return nil, err
		}
		return []string{path}, nil
	}

	written := make([]string, 0, len(clips))
	for _, c := range clips {
		dir := filepath.Dir(c)
		name := "SFX_" + baseName(c)
		b := &Bank{
			Name:     name,
			Variants: []Variant{unityVariant(filepath.Base(c))},
		}
		path := filepath.Join(dir, name+BankExt)
		if err := SaveBank(path, b); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func unityVariant(file string) Variant {
	return Variant{File: file, Volume: 1, Pitch: 1}
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func relativeTo(dir, path string) string {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
