package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/enzyme/urlbot/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewHandler_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, config.LogConfig{Level: "info", Format: "json"}))

	logger.Debug("hidden")
	logger.Info("link resolved", "url", "https://example.com")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if rec["msg"] != "link resolved" || rec["url"] != "https://example.com" {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestNewHandler_Fanout(t *testing.T) {
	var console, bridge bytes.Buffer
	extra := slog.NewTextHandler(&bridge, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(NewHandler(&console, config.LogConfig{Level: "warn"}, extra))

	logger.With("channel", "#go").Info("only bridged")
	logger.Warn("both")

	if strings.Contains(console.String(), "only bridged") {
		t.Fatal("console handler should drop info records at warn level")
	}
	if !strings.Contains(console.String(), "both") {
		t.Fatal("console handler missing warn record")
	}
	if !strings.Contains(bridge.String(), "only bridged") || !strings.Contains(bridge.String(), "channel=#go") {
		t.Fatalf("bridge handler missing record or attrs: %q", bridge.String())
	}
}
