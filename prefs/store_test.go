package prefs

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore checks the Store contract shared by every backend
func exerciseStore(t *testing.T, s Backend) {
	t.Helper()

	assert.Equal(t, 0.5, s.GetFloat("GlobalMasterVolume", 0.5))

	require.NoError(t, s.SetFloat("GlobalMasterVolume", -12))
	require.NoError(t, s.SetFloat("GlobalSFXVolume", -3.5))
	require.NoError(t, s.SetFloat("GlobalMasterVolume", -6))

	assert.Equal(t, -6.0, s.GetFloat("GlobalMasterVolume", 0))
	assert.Equal(t, -3.5, s.GetFloat("GlobalSFXVolume", 0))
	assert.Equal(t, []string{"GlobalMasterVolume", "GlobalSFXVolume"}, s.Keys())

	assert.ErrorIs(t, s.SetFloat("", 1), ErrEmptyKey)
	assert.ErrorIs(t, s.SetFloat("x", math.NaN()), ErrInvalidValue)
	assert.ErrorIs(t, s.SetFloat("x", math.Inf(-1)), ErrInvalidValue)
	assert.Equal(t, 7.0, s.GetFloat("x", 7))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.toml")
	f, err := OpenFile(path)
	require.NoError(t, err)
	exerciseStore(t, f)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "GlobalMasterVolume = -6.0")

	// Values survive a reopen
	again, err := OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, -3.5, again.GetFloat("GlobalSFXVolume", 0))
}

func TestFileStoreAcceptsIntegers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	require.NoError(t, os.WriteFile(path, []byte("GlobalMusicVolume = -20\n"), 0o644))

	f, err := OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, -20.0, f.GetFloat("GlobalMusicVolume", 0))
}

func TestFileStoreRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	require.NoError(t, os.WriteFile(path, []byte("not = [toml"), 0o644))

	_, err := OpenFile(path)
	assert.Error(t, err)
}

func TestFileStoreWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	f, err := OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, f.SetFloat("GlobalSFXVolume", -1))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() {
		done <- f.Watch(ctx, func() { changed <- struct{}{} })
	}()

	// Give the watcher time to register before the external edit
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("GlobalSFXVolume = -40.0\n"), 0o644))

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("Expected reload after external write")
	}
	assert.Equal(t, -40.0, f.GetFloat("GlobalSFXVolume", 0))

	cancel()
	assert.NoError(t, <-done)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	exerciseStore(t, s)

	hist, err := s.History("GlobalMasterVolume", 0)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, -6.0, hist[0].Value)
	assert.Equal(t, -12.0, hist[1].Value)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	again, err := OpenSQLite(path)
	require.NoError(t, err)
	defer again.Close()
	assert.Equal(t, -3.5, again.GetFloat("GlobalSFXVolume", 0))
}

func TestOpenBackends(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		kind Kind
		path string
		want any
	}{
		{KindMemory, "", &Memory{}},
		{"", "", &Memory{}},
		{KindFile, filepath.Join(dir, "p.toml"), &File{}},
		{"SQLite", filepath.Join(dir, "p.db"), &SQLite{}},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			b, err := Open(tt.kind, tt.path)
			require.NoError(t, err)
			defer b.Close()
			assert.IsType(t, tt.want, b)
		})
	}

	_, err := Open(KindFile, "")
	assert.ErrorIs(t, err, ErrNoPath)
	_, err = Open("redis", "x")
	assert.ErrorIs(t, err, ErrUnknownBackend)
}
