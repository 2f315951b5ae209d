package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultsWithoutYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "nonexistent.yaml")

	cfg, err := Load(cfgPath, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Fetch.Timeout != 10*time.Second {
		t.Fatalf("expected default timeout 10s, got %s", cfg.Fetch.Timeout)
	}
	if cfg.Fetch.MaxRedirects != 5 {
		t.Fatalf("expected default max_redirects 5, got %d", cfg.Fetch.MaxRedirects)
	}
	if cfg.Reply.MaxLength != 510 {
		t.Fatalf("expected default max_length 510, got %d", cfg.Reply.MaxLength)
	}
	if !cfg.HistoryEnabled() {
		t.Fatal("expected history enabled by default")
	}
	if cfg.Relay.TLS.Mode != "off" {
		t.Fatalf("expected default tls mode 'off', got %q", cfg.Relay.TLS.Mode)
	}
}

func TestLoad_FromYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	yaml := `
fetch:
  timeout: 3s
  user_agent: testbot/1.0
reply:
  prefix: "> "
  mask_highlights: true
pipeline:
  ignore_nicks:
    - otherbot
    - ChanServ
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Fetch.Timeout != 3*time.Second {
		t.Fatalf("expected timeout 3s, got %s", cfg.Fetch.Timeout)
	}
	if cfg.Fetch.UserAgent != "testbot/1.0" {
		t.Fatalf("expected user_agent 'testbot/1.0', got %q", cfg.Fetch.UserAgent)
	}
	if cfg.Reply.Prefix != "> " {
		t.Fatalf("expected prefix '> ', got %q", cfg.Reply.Prefix)
	}
	if !cfg.Reply.MaskHighlights {
		t.Fatal("expected mask_highlights true")
	}
	if len(cfg.Pipeline.IgnoreNicks) != 2 || cfg.Pipeline.IgnoreNicks[1] != "ChanServ" {
		t.Fatalf("unexpected ignore_nicks: %v", cfg.Pipeline.IgnoreNicks)
	}
	// Untouched keys keep their defaults
	if cfg.Fetch.MaxRedirects != 5 {
		t.Fatalf("expected default max_redirects 5, got %d", cfg.Fetch.MaxRedirects)
	}
}

func TestLoad_EmptyDatabasePathDisablesHistory(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(cfgPath, []byte("database:\n  path: \"\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HistoryEnabled() {
		t.Fatal("expected history disabled without a database path")
	}
}

func TestLoad_EnvSimpleKey(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "nonexistent.yaml")

	t.Setenv("URLBOT_RELAY_PORT", "9090")

	cfg, err := Load(cfgPath, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Relay.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Relay.Port)
	}
}

func TestLoad_EnvUnderscoreInLeafKey(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "nonexistent.yaml")

	t.Setenv("URLBOT_FETCH_MAX_BODY_SIZE", "2048")

	cfg, err := Load(cfgPath, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Fetch.MaxBodySize != 2048 {
		t.Fatalf("expected max_body_size 2048, got %d", cfg.Fetch.MaxBodySize)
	}
}

func TestLoad_EnvDeepNestedUnderscore(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "nonexistent.yaml")

	t.Setenv("URLBOT_RELAY_TLS_AUTO_CACHE_DIR", "/var/lib/urlbot/certs")

	cfg, err := Load(cfgPath, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Relay.TLS.Auto.CacheDir != "/var/lib/urlbot/certs" {
		t.Fatalf("expected cache_dir override, got %q", cfg.Relay.TLS.Auto.CacheDir)
	}
}

func TestLoad_EnvUnknownKeyIgnored(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "nonexistent.yaml")

	t.Setenv("URLBOT_NOT_A_SETTING", "whatever")

	if _, err := Load(cfgPath, nil); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	yamlContent := `
fetch:
  max_redirects: 2
`
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("URLBOT_FETCH_MAX_REDIRECTS", "7")

	cfg, err := Load(cfgPath, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Fetch.MaxRedirects != 7 {
		t.Fatalf("expected env override max_redirects 7, got %d", cfg.Fetch.MaxRedirects)
	}
}

func TestLoad_FromFlags(t *testing.T) {
	flags := SetupFlags()
	if err := flags.Parse([]string{
		"--fetch.timeout=2s",
		"--pipeline.ignore_nicks=spam,bot",
		"--relay.tls.mode=manual",
		"--relay.tls.cert_file=/tmp/cert.pem",
		"--relay.tls.key_file=/tmp/key.pem",
	}); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "nonexistent.yaml")

	cfg, err := Load(cfgPath, flags)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Fetch.Timeout != 2*time.Second {
		t.Fatalf("expected timeout 2s, got %s", cfg.Fetch.Timeout)
	}
	if len(cfg.Pipeline.IgnoreNicks) != 2 || cfg.Pipeline.IgnoreNicks[0] != "spam" {
		t.Fatalf("unexpected ignore_nicks: %v", cfg.Pipeline.IgnoreNicks)
	}
	if cfg.Relay.TLS.Mode != "manual" {
		t.Fatalf("expected mode 'manual', got %q", cfg.Relay.TLS.Mode)
	}
	if cfg.Relay.TLS.CertFile != "/tmp/cert.pem" {
		t.Fatalf("expected cert_file '/tmp/cert.pem', got %q", cfg.Relay.TLS.CertFile)
	}
	// Unset flags must not clobber defaults
	if cfg.Fetch.MaxRedirects != 5 {
		t.Fatalf("expected default max_redirects 5, got %d", cfg.Fetch.MaxRedirects)
	}
}

func TestLoad_InvalidYAMLValueFailsValidation(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(cfgPath, []byte("reply:\n  time_format: sometimes\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(cfgPath, nil); err == nil {
		t.Fatal("expected validation error")
	}
}
