// Package logging builds the application logger. The terminal belongs to
// the UI, so records go to a rotating file or nowhere.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a text logger writing to path at level, and the closer for
// the underlying file. An empty path discards everything.
func New(path string, level slog.Level) (*slog.Logger, io.Closer) {
	if path == "" {
		return slog.New(slog.DiscardHandler), io.NopCloser(nil)
	}
	// lumberjack creates the file lazily but not its directory.
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	return NewWithWriter(rotator, level), rotator
}

// NewWithWriter returns a text logger on w.
func NewWithWriter(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})).With("app", "speakerid")
}
