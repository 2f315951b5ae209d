package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const envPrefix = "URLBOT_"

func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Load defaults
	defaults := Defaults()
	if err := k.Load(defaultsProvider(defaults), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// 2. Load from config file if it exists
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("loading config file: %w", err)
			}
		}
	} else {
		for _, path := range []string{"config.yaml", "config.yml"} {
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
					return nil, fmt.Errorf("loading config file: %w", err)
				}
				break
			}
		}
	}

	// 3. Load from environment variables (URLBOT_ prefix). Leaf keys may
	// contain underscores themselves, so names are resolved against the
	// known key set instead of blindly replacing "_" with ".".
	known := envKeys(k.Keys())
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return known[strings.ToLower(strings.TrimPrefix(s, envPrefix))]
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	// 4. Load from CLI flags
	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("loading flags: %w", err)
		}
	}

	// 5. Unmarshal into struct
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
	}); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// 6. Validate
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// envKeys maps "fetch_max_body_size" style names to "fetch.max_body_size".
func envKeys(keys []string) map[string]string {
	m := make(map[string]string, len(keys))
	for _, key := range keys {
		m[strings.ReplaceAll(key, ".", "_")] = key
	}
	return m
}

type defaultsProviderStruct struct {
	defaults *Config
}

func defaultsProvider(defaults *Config) *defaultsProviderStruct {
	return &defaultsProviderStruct{defaults: defaults}
}

func (d *defaultsProviderStruct) ReadBytes() ([]byte, error) {
	return nil, nil
}

func (d *defaultsProviderStruct) Read() (map[string]interface{}, error) {
	return map[string]interface{}{
		"log": map[string]interface{}{
			"level":  d.defaults.Log.Level,
			"format": d.defaults.Log.Format,
		},
		"database": map[string]interface{}{
			"path":         d.defaults.Database.Path,
			"busy_timeout": d.defaults.Database.BusyTimeout.String(),
		},
		"history": map[string]interface{}{
			"enabled":    d.defaults.History.Enabled,
			"log_errors": d.defaults.History.LogErrors,
		},
		"fetch": map[string]interface{}{
			"timeout":         d.defaults.Fetch.Timeout.String(),
			"max_body_size":   d.defaults.Fetch.MaxBodySize,
			"max_redirects":   d.defaults.Fetch.MaxRedirects,
			"user_agent":      d.defaults.Fetch.UserAgent,
			"accept_language": d.defaults.Fetch.AcceptLanguage,
			"allow_private":   d.defaults.Fetch.AllowPrivate,
		},
		"reply": map[string]interface{}{
			"prefix":           d.defaults.Reply.Prefix,
			"max_length":       d.defaults.Reply.MaxLength,
			"title_max_length": d.defaults.Reply.TitleMaxLength,
			"time_format":      d.defaults.Reply.TimeFormat,
			"mask_highlights":  d.defaults.Reply.MaskHighlights,
			"report_metadata":  d.defaults.Reply.ReportMetadata,
			"report_mime":      d.defaults.Reply.ReportMIME,
		},
		"pipeline": map[string]interface{}{
			"workers":      d.defaults.Pipeline.Workers,
			"queue_size":   d.defaults.Pipeline.QueueSize,
			"url_limit":    d.defaults.Pipeline.URLLimit,
			"ignore_nicks": d.defaults.Pipeline.IgnoreNicks,
		},
		"flood": map[string]interface{}{
			"enabled": d.defaults.Flood.Enabled,
			"limit":   d.defaults.Flood.Limit,
			"window":  d.defaults.Flood.Window.String(),
		},
		"relay": map[string]interface{}{
			"enabled":         d.defaults.Relay.Enabled,
			"host":            d.defaults.Relay.Host,
			"port":            d.defaults.Relay.Port,
			"allowed_origins": d.defaults.Relay.AllowedOrigins,
			"event_retention": d.defaults.Relay.EventRetention.String(),
			"tls": map[string]interface{}{
				"mode":      d.defaults.Relay.TLS.Mode,
				"cert_file": d.defaults.Relay.TLS.CertFile,
				"key_file":  d.defaults.Relay.TLS.KeyFile,
				"auto": map[string]interface{}{
					"domain":    d.defaults.Relay.TLS.Auto.Domain,
					"email":     d.defaults.Relay.TLS.Auto.Email,
					"cache_dir": d.defaults.Relay.TLS.Auto.CacheDir,
				},
			},
		},
		"telemetry": map[string]interface{}{
			"enabled":         d.defaults.Telemetry.Enabled,
			"protocol":        d.defaults.Telemetry.Protocol,
			"endpoint":        d.defaults.Telemetry.Endpoint,
			"insecure":        d.defaults.Telemetry.Insecure,
			"service_name":    d.defaults.Telemetry.ServiceName,
			"runtime_metrics": d.defaults.Telemetry.RuntimeMetrics,
			"logs":            d.defaults.Telemetry.Logs,
		},
	}, nil
}

func SetupFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("urlbot", pflag.ContinueOnError)
	flags.String("config", "", "Path to config file")
	flags.String("log.level", "", "Log level: debug, info, warn, error")
	flags.String("log.format", "", "Log format: text or json")
	flags.String("database.path", "", "History database path (empty disables history)")
	flags.Bool("history.enabled", true, "Record and report previously posted links")
	flags.Duration("fetch.timeout", 0, "Per-link fetch timeout")
	flags.Int64("fetch.max_body_size", 0, "Maximum response body size in bytes")
	flags.Int("fetch.max_redirects", 0, "Maximum redirects followed per link")
	flags.String("fetch.user_agent", "", "User-Agent header sent with fetches")
	flags.String("fetch.accept_language", "", "Accept-Language header sent with fetches")
	flags.Bool("reply.report_mime", false, "Describe unsupported content by MIME type and size")
	flags.Bool("reply.report_metadata", true, "Describe images by format and dimensions")
	flags.Int("pipeline.workers", 0, "Simultaneous fetches across all channels")
	flags.StringSlice("pipeline.ignore_nicks", nil, "Nicks whose messages are ignored")
	flags.Bool("relay.enabled", false, "Serve the HTTP relay for chat bridges")
	flags.String("relay.host", "", "Relay host")
	flags.Int("relay.port", 0, "Relay port")
	flags.StringSlice("relay.allowed_origins", nil, "Allowed CORS origins")
	flags.String("relay.tls.mode", "", "TLS mode: off, auto, or manual")
	flags.String("relay.tls.cert_file", "", "TLS certificate file (manual mode)")
	flags.String("relay.tls.key_file", "", "TLS key file (manual mode)")
	flags.String("relay.tls.auto.domain", "", "Domain for automatic TLS (auto mode)")
	flags.String("relay.tls.auto.email", "", "Contact email for Let's Encrypt (auto mode)")
	flags.String("relay.tls.auto.cache_dir", "", "Certificate cache directory (auto mode)")
	flags.Bool("telemetry.enabled", false, "Export traces, metrics and logs over OTLP")
	flags.String("telemetry.endpoint", "", "OTLP collector endpoint")
	return flags
}
