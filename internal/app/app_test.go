package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/enzyme/urlbot/internal/config"
	"github.com/enzyme/urlbot/internal/testutil"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Database.Path = filepath.Join(t.TempDir(), "urlbot.db")
	cfg.Fetch.AllowPrivate = true
	cfg.Fetch.Timeout = 2 * time.Second
	return cfg
}

func titleServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<title>Wired Up</title>"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_WiresHistory(t *testing.T) {
	srv := titleServer(t)
	a, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Shutdown(context.Background())

	if a.DB == nil {
		t.Fatal("expected database when history is enabled")
	}
	if a.Server != nil || a.Hub != nil {
		t.Fatal("relay should be disabled by default")
	}

	ctx := context.Background()
	if got := a.Pipeline.OnMessage(ctx, "#go", "alice", srv.URL); !slices.Equal(got, []string{"Wired Up"}) {
		t.Fatalf("first replies = %q", got)
	}
	got := a.Pipeline.OnMessage(ctx, "#go", "bob", srv.URL)
	if len(got) != 1 || got[0] == "Wired Up" {
		t.Fatalf("repost should be annotated, got %q", got)
	}
	if n := testutil.CountRows(t, a.DB.DB, "posts"); n != 2 {
		t.Fatalf("posts rows = %d, want 2", n)
	}
}

func TestNew_HistoryDisabledWithoutPath(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Path = ""

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Shutdown(context.Background())

	if a.DB != nil {
		t.Fatal("expected no database without a path")
	}
}

func TestNew_FloodDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Flood.Enabled = false

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Shutdown(context.Background())

	if a.Flood != nil {
		t.Fatal("expected no flood limiter")
	}
}

func TestNew_Relay(t *testing.T) {
	cfg := testConfig(t)
	cfg.Relay.Enabled = true
	cfg.Relay.Port = 18087

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Shutdown(context.Background())

	if a.Server == nil || a.Hub == nil {
		t.Fatal("expected relay server and hub")
	}
	if a.Server.TLSMode() != "off" {
		t.Fatalf("expected TLS off, got %q", a.Server.TLSMode())
	}
}

func TestStart_ReturnsOnCancelWithoutRelay(t *testing.T) {
	a, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}

	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}
