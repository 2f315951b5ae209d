package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

func Validate(cfg *Config) error {
	var errs []error

	// Log validation
	switch cfg.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn, or error"))
	}
	switch cfg.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json"))
	}

	// Fetch validation
	if cfg.Fetch.Timeout < 100*time.Millisecond {
		errs = append(errs, fmt.Errorf("fetch.timeout must be at least 100ms"))
	}
	if cfg.Fetch.MaxBodySize < 1024 {
		errs = append(errs, fmt.Errorf("fetch.max_body_size must be at least 1KB"))
	}
	if cfg.Fetch.MaxRedirects < 0 || cfg.Fetch.MaxRedirects > 30 {
		errs = append(errs, fmt.Errorf("fetch.max_redirects must be between 0 and 30"))
	}
	if cfg.Fetch.UserAgent == "" {
		errs = append(errs, fmt.Errorf("fetch.user_agent is required"))
	}

	// Reply validation
	if cfg.Reply.MaxLength < 32 {
		errs = append(errs, fmt.Errorf("reply.max_length must be at least 32"))
	}
	if cfg.Reply.TitleMaxLength < 1 {
		errs = append(errs, fmt.Errorf("reply.title_max_length must be at least 1"))
	}
	switch cfg.Reply.TimeFormat {
	case "relative", "absolute":
	default:
		errs = append(errs, fmt.Errorf("reply.time_format must be relative or absolute"))
	}

	// Pipeline validation
	if cfg.Pipeline.Workers < 1 {
		errs = append(errs, fmt.Errorf("pipeline.workers must be at least 1"))
	}
	if cfg.Pipeline.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("pipeline.queue_size must be at least 1"))
	}
	if cfg.Pipeline.URLLimit < 1 {
		errs = append(errs, fmt.Errorf("pipeline.url_limit must be at least 1"))
	}

	// Flood validation (only when enabled)
	if cfg.Flood.Enabled {
		if cfg.Flood.Limit < 1 {
			errs = append(errs, fmt.Errorf("flood.limit must be at least 1"))
		}
		if cfg.Flood.Window < time.Second {
			errs = append(errs, fmt.Errorf("flood.window must be at least 1s"))
		}
	}

	// Relay validation (only when enabled)
	if cfg.Relay.Enabled {
		if cfg.Relay.Port < 1 || cfg.Relay.Port > 65535 {
			errs = append(errs, fmt.Errorf("relay.port must be between 1 and 65535"))
		}
		if cfg.Relay.EventRetention < 0 {
			errs = append(errs, fmt.Errorf("relay.event_retention must not be negative"))
		}
		for i, origin := range cfg.Relay.AllowedOrigins {
			u, err := url.Parse(origin)
			if err != nil || u.Scheme == "" || u.Host == "" {
				errs = append(errs, fmt.Errorf("relay.allowed_origins[%d] %q is not a valid URL with scheme", i, origin))
			}
		}
		switch cfg.Relay.TLS.Mode {
		case "", "off":
		case "auto":
			if cfg.Relay.TLS.Auto.Domain == "" {
				errs = append(errs, fmt.Errorf("relay.tls.auto.domain is required when tls mode is auto"))
			}
			if cfg.Relay.TLS.Auto.CacheDir == "" {
				errs = append(errs, fmt.Errorf("relay.tls.auto.cache_dir is required when tls mode is auto"))
			}
		case "manual":
			if cfg.Relay.TLS.CertFile == "" {
				errs = append(errs, fmt.Errorf("relay.tls.cert_file is required when tls mode is manual"))
			}
			if cfg.Relay.TLS.KeyFile == "" {
				errs = append(errs, fmt.Errorf("relay.tls.key_file is required when tls mode is manual"))
			}
		default:
			errs = append(errs, fmt.Errorf("relay.tls.mode must be off, auto, or manual"))
		}
	}

	// Telemetry validation (only when enabled)
	if cfg.Telemetry.Enabled {
		switch cfg.Telemetry.Protocol {
		case "http", "grpc":
		default:
			errs = append(errs, fmt.Errorf("telemetry.protocol must be http or grpc"))
		}
		if cfg.Telemetry.Endpoint == "" {
			errs = append(errs, fmt.Errorf("telemetry.endpoint is required when telemetry is enabled"))
		}
		if cfg.Telemetry.ServiceName == "" {
			errs = append(errs, fmt.Errorf("telemetry.service_name is required when telemetry is enabled"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
