package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWithWriterFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, slog.LevelWarn)

	log.Info("hidden")
	log.Warn("shown", "speaker", "42")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record written at warn level: %q", out)
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "speaker=42") {
		t.Errorf("warn record missing: %q", out)
	}
	if !strings.Contains(out, "app=speakerid") {
		t.Errorf("app attribute missing: %q", out)
	}
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "speakerid.log")
	log, closer := New(path, slog.LevelDebug)
	log.Debug("hello")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "msg=hello") {
		t.Errorf("log file = %q, want msg=hello", data)
	}
}

func TestNewEmptyPathDiscards(t *testing.T) {
	log, closer := New("", slog.LevelDebug)
	log.Error("nowhere")
	if err := closer.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}
