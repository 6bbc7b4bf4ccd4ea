package prefs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"github.com/lixenwraith/soundpool/log"
)

// File stores preferences as a flat TOML table:
//
//	GlobalMasterVolume = 0.0
//	GlobalSFXVolume = -12.0
//
// Every SetFloat rewrites the file atomically.
type File struct {
	path string

	mu     sync.RWMutex
	values map[string]float64
	// last bytes written, used to ignore our own watch events
	written []byte
}

// OpenFile loads path if it exists; a missing file is an empty store
func OpenFile(path string) (*File, error) {
	f := &File{path: path, values: make(map[string]float64)}
	if err := f.Reload(); err != nil {
		return nil, err
	}
	return f, nil
}

// Path returns the backing file path
func (f *File) Path() string {
	return f.path
}

func (f *File) GetFloat(key string, def float64) float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if v, ok := f.values[key]; ok {
		return v
	}
	return def
}

func (f *File) SetFloat(key string, value float64) error {
	if err := checkEntry(key, value); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	prev, had := f.values[key]
	f.values[key] = value
	if err := f.saveLocked(); err != nil {
		if had {
			f.values[key] = prev
		} else {
			delete(f.values, key)
		}
		return err
	}
	return nil
}

func (f *File) Keys() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return sortedKeys(f.values)
}

func (f *File) Close() error {
	return nil
}

// Reload replaces in-memory values with the file contents
func (f *File) Reload() error {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read preferences: %w", err)
	}

	values := make(map[string]float64)
	if err := toml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("parse preferences %s: %w", f.path, err)
	}

	f.mu.Lock()
	f.values = values
	f.mu.Unlock()
	return nil
}

func (f *File) saveLocked() error {
	data, err := toml.Marshal(f.values)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create preference directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".prefs-*.toml")
	if err != nil {
		return fmt.Errorf("create temp preferences: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace preferences: %w", err)
	}

	f.written = data
	return nil
}

// Watch reloads the store when the file is changed by another writer and
// calls onChange after each reload. Blocks until ctx is done.
func (f *File) Watch(ctx context.Context, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory; atomic replaces swap the inode under the file
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create preference directory: %w", err)
	}
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Clean(f.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if f.isOwnWrite() {
				continue
			}
			if err := f.Reload(); err != nil {
				log.ErrorErr(log.CatPrefs, "Preference reload failed", err, "path", f.path)
				continue
			}
			log.Debug(log.CatPrefs, "Preferences reloaded", "path", f.path)
			if onChange != nil {
				onChange()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.ErrorErr(log.CatPrefs, "Preference watcher error", err)
		}
	}
}

func (f *File) isOwnWrite() bool {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return false
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.written != nil && bytes.Equal(data, f.written)
}
