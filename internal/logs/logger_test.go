package logs

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggerWritesText(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Writer: &buf, Level: slog.LevelInfo})

	logger.Debug("hidden")
	logger.Info("test", "hello", "world!")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug record leaked at info level: %s", out)
	}
	if !strings.Contains(out, "hello=world!") {
		t.Errorf("expected attribute in output, got %s", out)
	}
}

func TestLoggerLevelVar(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	level.Set(slog.LevelError)
	logger := New(Options{Writer: &buf, Level: level})

	logger.Warn("quiet")
	level.Set(slog.LevelDebug)
	logger.Debug("loud")

	if strings.Contains(buf.String(), "quiet") || !strings.Contains(buf.String(), "loud") {
		t.Errorf("level var not honored: %s", buf.String())
	}
}

func TestHandlerAddsTurn(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Writer: &buf}).With("component", "chat")

	ctx := WithTurn(context.Background(), "abc-123")
	logger.InfoContext(ctx, "resolved")

	out := buf.String()
	if !strings.Contains(out, "turn=abc-123") || !strings.Contains(out, "component=chat") {
		t.Errorf("expected turn and component attributes, got %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "commlab.log")
	f, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer f.Close()

	New(Options{Writer: f}).Info("to file")
}

func TestDiscard(t *testing.T) {
	if OrDiscard(nil) == nil {
		t.Fatal("expected a logger")
	}
	Discard().Error("dropped")
}

func TestToJournalKey(t *testing.T) {
	if got := toJournalKey("turn.id-2"); got != "TURN_ID_2" {
		t.Errorf("unexpected journal key %q", got)
	}
}
