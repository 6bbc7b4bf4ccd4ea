// Package config loads runtime settings from an optional TOML file,
// SOUNDPOOL_* environment variables and command-line flags, in rising
// precedence, on top of Defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/lixenwraith/soundpool/audio"
	"github.com/lixenwraith/soundpool/curve"
	"github.com/lixenwraith/soundpool/manager"
	"github.com/lixenwraith/soundpool/pool"
	"github.com/lixenwraith/soundpool/prefs"
)

// EnvPrefix prefixes environment overrides, e.g. SOUNDPOOL_POOL_CAPACITY
const EnvPrefix = "SOUNDPOOL"

var ErrInvalid = errors.New("invalid config")

// Config holds all soundpool settings
type Config struct {
	Pool   PoolConfig   `mapstructure:"pool"`
	Volume VolumeConfig `mapstructure:"volume"`
	Output OutputConfig `mapstructure:"output"`
	Prefs  PrefsConfig  `mapstructure:"prefs"`
	Log    LogConfig    `mapstructure:"log"`
}

// PoolConfig sizes the playback pool
type PoolConfig struct {
	Capacity int    `mapstructure:"capacity"`
	Overflow string `mapstructure:"overflow"` // drop, grow or steal
	MaxSize  int    `mapstructure:"max_size"`
}

// VolumeConfig shapes slider-to-level mapping
type VolumeConfig struct {
	Min      float64     `mapstructure:"min"`
	Max      float64     `mapstructure:"max"`
	Curve    string      `mapstructure:"curve"` // linear, power, log or keyed
	Exponent float64     `mapstructure:"exponent"`
	Decades  float64     `mapstructure:"decades"`
	Keys     []KeyConfig `mapstructure:"keys"`
}

// KeyConfig is one keyframe of a keyed curve
type KeyConfig struct {
	In  float64 `mapstructure:"in"`
	Out float64 `mapstructure:"out"`
}

// OutputConfig controls the speaker and clip loading
type OutputConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	SampleRate int           `mapstructure:"sample_rate"`
	Buffer     time.Duration `mapstructure:"buffer"`
	Sounds     string        `mapstructure:"sounds"`    // directory clips are loaded from
	CacheTTL   time.Duration `mapstructure:"cache_ttl"` // decoded clip lifetime
}

// PrefsConfig selects where volumes persist
type PrefsConfig struct {
	Backend string `mapstructure:"backend"` // memory, file or sqlite
	Path    string `mapstructure:"path"`
	Watch   bool   `mapstructure:"watch"`
}

type LogConfig struct {
	Debug bool   `mapstructure:"debug"`
	Dir   string `mapstructure:"dir"`
}

// Defaults returns the built-in configuration
func Defaults() Config {
	return Config{
		Pool: PoolConfig{
			Capacity: pool.DefaultCapacity,
			Overflow: pool.OverflowDrop.String(),
		},
		Volume: VolumeConfig{
			Min:      audio.SilenceFloor,
			Max:      0,
			Curve:    "log",
			Exponent: 2,
			Decades:  curve.DefaultDecades,
		},
		Output: OutputConfig{
			Enabled:    true,
			SampleRate: int(audio.DefaultSampleRate),
			Buffer:     audio.DefaultBuffer,
			Sounds:     ".",
			CacheTTL:   10 * time.Minute,
		},
		Prefs: PrefsConfig{
			Backend: string(prefs.KindFile),
			Path:    "soundpool.prefs.toml",
		},
		Log: LogConfig{
			Dir: "logs",
		},
	}
}

// Option adjusts the viper instance before unmarshalling
type Option func(v *viper.Viper) error

// BindFlag makes a command-line flag override key when the flag was set
func BindFlag(key string, f *pflag.Flag) Option {
	return func(v *viper.Viper) error {
		if f == nil {
			return nil
		}
		return v.BindPFlag(key, f)
	}
}

// Load reads path (skipped when empty), applies environment overrides and
// options, then validates
func Load(path string, opts ...Option) (Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WriteDefaults writes the default configuration to path as TOML
func WriteDefaults(path string) error {
	v := newViper()
	v.SetConfigType("toml")
	if err := v.SafeWriteConfigAs(path); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v, Defaults())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("pool.capacity", d.Pool.Capacity)
	v.SetDefault("pool.overflow", d.Pool.Overflow)
	v.SetDefault("pool.max_size", d.Pool.MaxSize)

	v.SetDefault("volume.min", d.Volume.Min)
	v.SetDefault("volume.max", d.Volume.Max)
	v.SetDefault("volume.curve", d.Volume.Curve)
	v.SetDefault("volume.exponent", d.Volume.Exponent)
	v.SetDefault("volume.decades", d.Volume.Decades)

	v.SetDefault("output.enabled", d.Output.Enabled)
	v.SetDefault("output.sample_rate", d.Output.SampleRate)
	v.SetDefault("output.buffer", d.Output.Buffer)
	v.SetDefault("output.sounds", d.Output.Sounds)
	v.SetDefault("output.cache_ttl", d.Output.CacheTTL)

	v.SetDefault("prefs.backend", d.Prefs.Backend)
	v.SetDefault("prefs.path", d.Prefs.Path)
	v.SetDefault("prefs.watch", d.Prefs.Watch)

	v.SetDefault("log.debug", d.Log.Debug)
	v.SetDefault("log.dir", d.Log.Dir)
}

// Validate checks every section
func (c Config) Validate() error {
	if _, err := c.PoolOptions(); err != nil {
		return err
	}
	if _, err := c.Mapper(); err != nil {
		return err
	}
	if c.Output.SampleRate <= 0 {
		return fmt.Errorf("%w: output.sample_rate must be positive, got %d", ErrInvalid, c.Output.SampleRate)
	}
	if c.Output.Buffer < 0 {
		return fmt.Errorf("%w: output.buffer is negative", ErrInvalid)
	}
	switch prefs.Kind(strings.ToLower(c.Prefs.Backend)) {
	case prefs.KindMemory:
	case prefs.KindFile, prefs.KindSQLite:
		if c.Prefs.Path == "" {
			return fmt.Errorf("%w: prefs.path required for %s backend", ErrInvalid, c.Prefs.Backend)
		}
	default:
		return fmt.Errorf("%w: unknown prefs.backend %q", ErrInvalid, c.Prefs.Backend)
	}
	return nil
}

// PoolOptions converts the pool section
func (c Config) PoolOptions() (pool.Config, error) {
	overflow, err := pool.ParseOverflow(c.Pool.Overflow)
	if err != nil {
		return pool.Config{}, fmt.Errorf("%w: pool.overflow: %v", ErrInvalid, err)
	}
	pc := pool.Config{Capacity: c.Pool.Capacity, Overflow: overflow, MaxSize: c.Pool.MaxSize}
	if err := pc.Validate(); err != nil {
		return pool.Config{}, fmt.Errorf("%w: pool: %v", ErrInvalid, err)
	}
	return pc, nil
}

// Mapper builds the volume mapper
func (c Config) Mapper() (curve.Mapper, error) {
	vc := c.Volume
	if vc.Min == vc.Max {
		return curve.Mapper{}, fmt.Errorf("%w: volume.min equals volume.max", ErrInvalid)
	}

	var cv curve.Curve
	switch strings.ToLower(vc.Curve) {
	case "", "linear":
		cv = curve.Linear{}
	case "power":
		if vc.Exponent <= 0 {
			return curve.Mapper{}, fmt.Errorf("%w: volume.exponent must be positive", ErrInvalid)
		}
		cv = curve.Power{Exponent: vc.Exponent}
	case "log":
		if vc.Decades <= 0 {
			return curve.Mapper{}, fmt.Errorf("%w: volume.decades must be positive", ErrInvalid)
		}
		cv = curve.Log{Decades: vc.Decades}
	case "keyed":
		keys := make([]curve.Key, len(vc.Keys))
		for i, k := range vc.Keys {
			keys[i] = curve.Key{In: k.In, Out: k.Out}
		}
		keyed, err := curve.NewKeyed(keys...)
		if err != nil {
			return curve.Mapper{}, fmt.Errorf("%w: volume.keys: %v", ErrInvalid, err)
		}
		cv = keyed
	default:
		return curve.Mapper{}, fmt.Errorf("%w: unknown volume.curve %q", ErrInvalid, vc.Curve)
	}
	return curve.NewMapper(cv, vc.Min, vc.Max), nil
}

// ManagerOptions assembles manager options from the pool and volume
// sections
func (c Config) ManagerOptions() (manager.Options, error) {
	pc, err := c.PoolOptions()
	if err != nil {
		return manager.Options{}, err
	}
	mapper, err := c.Mapper()
	if err != nil {
		return manager.Options{}, err
	}
	opts := manager.DefaultOptions()
	opts.Pool = pc
	opts.Mapper = mapper
	return opts, nil
}
