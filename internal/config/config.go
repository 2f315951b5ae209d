package config

import (
	"time"

	"github.com/enzyme/urlbot/internal/version"
)

type Config struct {
	Log       LogConfig       `koanf:"log"`
	Database  DatabaseConfig  `koanf:"database"`
	History   HistoryConfig   `koanf:"history"`
	Fetch     FetchConfig     `koanf:"fetch"`
	Reply     ReplyConfig     `koanf:"reply"`
	Pipeline  PipelineConfig  `koanf:"pipeline"`
	Flood     FloodConfig     `koanf:"flood"`
	Relay     RelayConfig     `koanf:"relay"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type DatabaseConfig struct {
	Path        string        `koanf:"path"`
	BusyTimeout time.Duration `koanf:"busy_timeout"`
}

type HistoryConfig struct {
	Enabled   bool `koanf:"enabled"`
	LogErrors bool `koanf:"log_errors"`
}

type FetchConfig struct {
	Timeout        time.Duration `koanf:"timeout"`
	MaxBodySize    int64         `koanf:"max_body_size"`
	MaxRedirects   int           `koanf:"max_redirects"`
	UserAgent      string        `koanf:"user_agent"`
	AcceptLanguage string        `koanf:"accept_language"`
	AllowPrivate   bool          `koanf:"allow_private"`
}

type ReplyConfig struct {
	Prefix         string `koanf:"prefix"`
	MaxLength      int    `koanf:"max_length"`
	TitleMaxLength int    `koanf:"title_max_length"`
	TimeFormat     string `koanf:"time_format"`
	MaskHighlights bool   `koanf:"mask_highlights"`
	ReportMetadata bool   `koanf:"report_metadata"`
	ReportMIME     bool   `koanf:"report_mime"`
}

type PipelineConfig struct {
	Workers     int      `koanf:"workers"`
	QueueSize   int      `koanf:"queue_size"`
	URLLimit    int      `koanf:"url_limit"`
	IgnoreNicks []string `koanf:"ignore_nicks"`
}

type FloodConfig struct {
	Enabled bool          `koanf:"enabled"`
	Limit   int           `koanf:"limit"`
	Window  time.Duration `koanf:"window"`
}

type RelayConfig struct {
	Enabled        bool          `koanf:"enabled"`
	Host           string        `koanf:"host"`
	Port           int           `koanf:"port"`
	AllowedOrigins []string      `koanf:"allowed_origins"`
	EventRetention time.Duration `koanf:"event_retention"`
	TLS            TLSConfig     `koanf:"tls"`
}

type TLSConfig struct {
	Mode     string        `koanf:"mode"`
	CertFile string        `koanf:"cert_file"`
	KeyFile  string        `koanf:"key_file"`
	Auto     AutoTLSConfig `koanf:"auto"`
}

type AutoTLSConfig struct {
	Domain   string `koanf:"domain"`
	Email    string `koanf:"email"`
	CacheDir string `koanf:"cache_dir"`
}

type TelemetryConfig struct {
	Enabled        bool   `koanf:"enabled"`
	Protocol       string `koanf:"protocol"`
	Endpoint       string `koanf:"endpoint"`
	Insecure       bool   `koanf:"insecure"`
	ServiceName    string `koanf:"service_name"`
	RuntimeMetrics bool   `koanf:"runtime_metrics"`
	Logs           bool   `koanf:"logs"`
}

// HistoryEnabled reports whether posts are persisted. A missing database
// path disables history entirely.
func (c *Config) HistoryEnabled() bool {
	return c.History.Enabled && c.Database.Path != ""
}

func DefaultUserAgent() string {
	return "Mozilla/5.0 (compatible; urlbot/" + version.Version + ")"
}

func Defaults() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Database: DatabaseConfig{
			Path:        "./data/urlbot.db",
			BusyTimeout: 5 * time.Second,
		},
		History: HistoryConfig{
			Enabled:   true,
			LogErrors: true,
		},
		Fetch: FetchConfig{
			Timeout:        10 * time.Second,
			MaxBodySize:    4 * 1024 * 1024, // 4MB
			MaxRedirects:   5,
			UserAgent:      DefaultUserAgent(),
			AcceptLanguage: "en",
		},
		Reply: ReplyConfig{
			MaxLength:      510, // RFC 1459 line budget
			TitleMaxLength: 200,
			TimeFormat:     "relative",
			ReportMetadata: true,
		},
		Pipeline: PipelineConfig{
			Workers:   4,
			QueueSize: 64,
			URLLimit:  10,
		},
		Flood: FloodConfig{
			Enabled: true,
			Limit:   10,
			Window:  time.Minute,
		},
		Relay: RelayConfig{
			Enabled:        false,
			Host:           "127.0.0.1",
			Port:           8087,
			EventRetention: time.Hour,
			TLS: TLSConfig{
				Mode: "off",
				Auto: AutoTLSConfig{
					CacheDir: "./data/certs",
				},
			},
		},
		Telemetry: TelemetryConfig{
			Enabled:        false,
			Protocol:       "http",
			Endpoint:       "localhost:4318",
			Insecure:       true,
			ServiceName:    "urlbot",
			RuntimeMetrics: true,
		},
	}
}
