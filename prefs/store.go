// Package prefs persists engine-domain bus volumes and other float
// preferences. Stores are safe for concurrent use.
package prefs

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"sync"
)

// Store is a keyed float preference store
type Store interface {
	// GetFloat returns the stored value for key or def when absent
	GetFloat(key string, def float64) float64
	// SetFloat stores value under key and persists it
	SetFloat(key string, value float64) error
}

// Backend is a Store with an owned resource
type Backend interface {
	Store
	io.Closer
	Keys() []string
}

var (
	ErrEmptyKey       = errors.New("preference key is empty")
	ErrInvalidValue   = errors.New("preference value is not finite")
	ErrUnknownBackend = errors.New("unknown preference backend")
	ErrNoPath         = errors.New("preference backend needs a path")
)

// Kind selects a Backend implementation
type Kind string

const (
	KindMemory Kind = "memory"
	KindFile   Kind = "file"
	KindSQLite Kind = "sqlite"
)

// Open creates the backend of the given kind. File and SQLite backends need
// a path.
func Open(kind Kind, path string) (Backend, error) {
	switch Kind(strings.ToLower(string(kind))) {
	case KindMemory, "":
		return NewMemory(), nil
	case KindFile:
		if path == "" {
			return nil, fmt.Errorf("%s: %w", kind, ErrNoPath)
		}
		return OpenFile(path)
	case KindSQLite:
		if path == "" {
			return nil, fmt.Errorf("%s: %w", kind, ErrNoPath)
		}
		return OpenSQLite(path)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, kind)
}

func checkEntry(key string, value float64) error {
	if key == "" {
		return ErrEmptyKey
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%s: %w", key, ErrInvalidValue)
	}
	return nil
}

// Memory keeps preferences for the life of the process
type Memory struct {
	mu     sync.RWMutex
	values map[string]float64
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]float64)}
}

func (m *Memory) GetFloat(key string, def float64) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.values[key]; ok {
		return v
	}
	return def
}

func (m *Memory) SetFloat(key string, value float64) error {
	if err := checkEntry(key, value); err != nil {
		return err
	}
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
	return nil
}

// Keys returns stored keys, sorted
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedKeys(m.values)
}

func (m *Memory) Close() error {
	return nil
}

func sortedKeys(values map[string]float64) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
