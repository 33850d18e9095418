// Package logger holds the process-wide zerolog logger. The TUI owns the
// terminal, so log output goes to a file; until Init is called every event
// is discarded.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	logger *zerolog.Logger
	closer io.Closer
)

// ParseLevel maps a config string to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "off", "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Init points the logger at file, creating its directory when needed. An
// empty file discards output.
func Init(level, file string) error {
	var out io.Writer = io.Discard
	var c io.Closer

	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		out = zerolog.ConsoleWriter{Out: f, NoColor: true, TimeFormat: "2006-01-02 15:04:05"}
		c = f
	}

	l := zerolog.New(out).Level(ParseLevel(level)).With().Timestamp().Logger()
	Set(&l)

	mu.Lock()
	if closer != nil {
		_ = closer.Close()
	}
	closer = c
	mu.Unlock()
	return nil
}

// Set replaces the logger. Tests use it to capture output.
func Set(l *zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// Get returns the logger, or a discarding one before Init.
func Get() *zerolog.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l != nil {
		return l
	}
	nop := zerolog.Nop()
	return &nop
}

// Close releases the log file opened by Init.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if closer == nil {
		return nil
	}
	err := closer.Close()
	closer = nil
	return err
}
