package telemetry

import (
	"context"
	"testing"

	"github.com/enzyme/urlbot/internal/config"
)

func TestSetup_Disabled(t *testing.T) {
	p, err := Setup(context.Background(), config.TelemetryConfig{Enabled: false})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if p.LogHandler != nil {
		t.Fatal("expected no log handler when disabled")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestSetup_UnknownProtocol(t *testing.T) {
	_, err := Setup(context.Background(), config.TelemetryConfig{
		Enabled:     true,
		Protocol:    "carrier-pigeon",
		Endpoint:    "localhost:4318",
		ServiceName: "urlbot",
	})
	if err == nil {
		t.Fatal("expected error for unknown protocol")
	}
}

func TestSetup_HTTPWithLogs(t *testing.T) {
	p, err := Setup(context.Background(), config.TelemetryConfig{
		Enabled:     true,
		Protocol:    "http",
		Endpoint:    "127.0.0.1:1",
		Insecure:    true,
		ServiceName: "urlbot",
		Logs:        true,
	})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if p.LogHandler == nil {
		t.Fatal("expected log handler when logs are enabled")
	}

	// Nothing listens on the endpoint; shutdown may report export errors
	// but must return.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = p.Shutdown(ctx)
}
