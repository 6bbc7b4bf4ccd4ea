package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/soundpool/curve"
	"github.com/lixenwraith/soundpool/pool"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "soundpool.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)

	pc, err := cfg.PoolOptions()
	require.NoError(t, err)
	assert.Equal(t, pool.DefaultConfig(), pc)

	m, err := cfg.Mapper()
	require.NoError(t, err)
	assert.Equal(t, curve.Log{Decades: curve.DefaultDecades}, m.Curve)
	assert.InDelta(t, -20, m.ToOutput(0.1), 1e-9)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
[pool]
capacity = 4
overflow = "grow"
max_size = 8

[volume]
min = 0.0
max = 1.0
curve = "keyed"
keys = [{ in = 0.0, out = 0.0 }, { in = 0.5, out = 0.2 }, { in = 1.0, out = 1.0 }]

[output]
buffer = "250ms"

[prefs]
backend = "sqlite"
path = "prefs.db"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, PoolConfig{Capacity: 4, Overflow: "grow", MaxSize: 8}, cfg.Pool)
	assert.Equal(t, 250*time.Millisecond, cfg.Output.Buffer)
	assert.Equal(t, "sqlite", cfg.Prefs.Backend)
	assert.Len(t, cfg.Volume.Keys, 3)

	opts, err := cfg.ManagerOptions()
	require.NoError(t, err)
	assert.Equal(t, pool.Config{Capacity: 4, Overflow: pool.OverflowGrow, MaxSize: 8}, opts.Pool)
	assert.InDelta(t, 0.2, opts.Mapper.ToOutput(0.5), 1e-9)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SOUNDPOOL_POOL_CAPACITY", "32")
	t.Setenv("SOUNDPOOL_POOL_OVERFLOW", "steal")
	t.Setenv("SOUNDPOOL_LOG_DEBUG", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Pool.Capacity)
	assert.Equal(t, "steal", cfg.Pool.Overflow)
	assert.True(t, cfg.Log.Debug)
}

func TestLoadFlagOverrides(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("capacity", 0, "")
	fs.Bool("debug", false, "")
	require.NoError(t, fs.Parse([]string{"--capacity=3"}))

	cfg, err := Load("",
		BindFlag("pool.capacity", fs.Lookup("capacity")),
		BindFlag("log.debug", fs.Lookup("debug")),
		BindFlag("log.dir", fs.Lookup("missing")),
	)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Pool.Capacity)
	assert.False(t, cfg.Log.Debug, "Expected unset flag to keep the default")
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"overflow", func(c *Config) { c.Pool.Overflow = "explode" }},
		{"capacity", func(c *Config) { c.Pool.Capacity = -1 }},
		{"max size", func(c *Config) { c.Pool.MaxSize = 2 }},
		{"empty range", func(c *Config) { c.Volume.Min = 0 }},
		{"curve", func(c *Config) { c.Volume.Curve = "spline" }},
		{"exponent", func(c *Config) { c.Volume.Curve = "power"; c.Volume.Exponent = 0 }},
		{"decades", func(c *Config) { c.Volume.Decades = -1 }},
		{"keys", func(c *Config) { c.Volume.Curve = "keyed" }},
		{"partial keys", func(c *Config) {
			c.Volume.Curve = "keyed"
			c.Volume.Keys = []KeyConfig{{In: 0.2, Out: 0}, {In: 0.8, Out: 1}}
		}},
		{"key above unit", func(c *Config) {
			c.Volume.Curve = "keyed"
			c.Volume.Keys = []KeyConfig{{In: 0, Out: 0}, {In: 1, Out: 2}}
		}},
		{"sample rate", func(c *Config) { c.Output.SampleRate = 0 }},
		{"buffer", func(c *Config) { c.Output.Buffer = -time.Second }},
		{"backend", func(c *Config) { c.Prefs.Backend = "redis" }},
		{"path", func(c *Config) { c.Prefs.Path = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}

	mem := Defaults()
	mem.Prefs = PrefsConfig{Backend: "memory"}
	assert.NoError(t, mem.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestWriteDefaultsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soundpool.toml")
	require.NoError(t, WriteDefaults(path))
	assert.Error(t, WriteDefaults(path), "Expected existing file to be kept")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Defaults().Pool, cfg.Pool)
	assert.Equal(t, Defaults().Output.Buffer, cfg.Output.Buffer)
}
