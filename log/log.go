// Package log provides categorised structured logging over log/slog.
//
// Logging is silent until Setup or SetOutput is called. Call sites tag every
// record with a category:
//
//	log.Debug(log.CatPool, "Slot acquired", "index", 3)
//	log.ErrorErr(log.CatPrefs, "Failed to persist volume", err, "key", key)
package log

import (
	"io"
	"log/slog"
	"sync/atomic"
)

// Category groups records by subsystem
type Category string

const (
	CatAudio   Category = "audio"
	CatPool    Category = "pool"
	CatManager Category = "manager"
	CatPrefs   Category = "prefs"
	CatDB      Category = "db"
	CatConfig  Category = "config"
	CatCLI     Category = "cli"
)

var logger atomic.Pointer[slog.Logger]

func init() {
	logger.Store(discard())
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// SetOutput routes records at or above level to w as text
func SetOutput(w io.Writer, level slog.Level) {
	if w == nil {
		logger.Store(discard())
		return
	}
	logger.Store(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// Logger returns the current slog logger
func Logger() *slog.Logger {
	return logger.Load()
}

func Debug(cat Category, msg string, args ...any) {
	logger.Load().Debug(msg, withCat(cat, args)...)
}

func Info(cat Category, msg string, args ...any) {
	logger.Load().Info(msg, withCat(cat, args)...)
}

func Warn(cat Category, msg string, args ...any) {
	logger.Load().Warn(msg, withCat(cat, args)...)
}

func Error(cat Category, msg string, args ...any) {
	logger.Load().Error(msg, withCat(cat, args)...)
}

// ErrorErr logs msg with err attached
func ErrorErr(cat Category, msg string, err error, args ...any) {
	logger.Load().Error(msg, withCat(cat, append(args, "err", err))...)
}

func withCat(cat Category, args []any) []any {
	return append([]any{"cat", string(cat)}, args...)
}
