package log

import (
	"fmt"
	"io"
	stdlog "log"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const (
	DefaultDir  = "logs"
	FileName    = "soundpool.log"
	MaxFileSize = 10 * 1024 * 1024
)

// Setup enables file logging when debug is true. The log lives at
// dir/soundpool.log; an existing file above MaxFileSize is rotated aside with
// a timestamp suffix. Returns the open file (nil when disabled), which the
// caller closes on exit. The standard library logger is redirected too.
func Setup(debug bool, dir string) (*os.File, error) {
	if !debug {
		SetOutput(nil, slog.LevelInfo)
		stdlog.SetOutput(io.Discard)
		return nil, nil
	}
	if dir == "" {
		dir = DefaultDir
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, FileName)
	if info, err := os.Stat(path); err == nil && info.Size() > MaxFileSize {
		rotated := filepath.Join(dir, fmt.Sprintf("soundpool-%s.log", time.Now().Format("20060102-150405")))
		if err := os.Rename(path, rotated); err != nil {
			return nil, fmt.Errorf("failed to rotate log file: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	SetOutput(f, slog.LevelDebug)
	stdlog.SetOutput(f)
	stdlog.SetFlags(stdlog.LstdFlags | stdlog.Lmicroseconds)
	return f, nil
}
