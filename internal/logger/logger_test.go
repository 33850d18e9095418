package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
		"":        zerolog.InfoLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestGetBeforeInitDiscards(t *testing.T) {
	Set(nil)
	Get().Info().Msg("nobody hears this")
}

func TestInitWritesToFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "nested", "batch-mover.log")
	if err := Init("debug", file); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer Close()

	Get().Debug().Str("op", "op-1").Msg("hello")
	if err := Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "hello") || !strings.Contains(string(data), "op=op-1") {
		t.Errorf("log file = %q, want message and field", data)
	}
}

func TestSetCapturesOutput(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf)
	Set(&l)
	defer Set(nil)

	Get().Warn().Msg("captured")
	if !strings.Contains(buf.String(), "captured") {
		t.Errorf("Set() logger output = %q", buf.String())
	}
}
