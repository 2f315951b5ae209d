package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/enzyme/urlbot/internal/config"
	"github.com/enzyme/urlbot/internal/database"
	"github.com/enzyme/urlbot/internal/handler"
	"github.com/enzyme/urlbot/internal/history"
	"github.com/enzyme/urlbot/internal/linkpreview"
	"github.com/enzyme/urlbot/internal/pipeline"
	"github.com/enzyme/urlbot/internal/ratelimit"
	"github.com/enzyme/urlbot/internal/reply"
	"github.com/enzyme/urlbot/internal/server"
	"github.com/enzyme/urlbot/internal/sse"
)

const (
	floodCleanupInterval = 10 * time.Minute
	eventCleanupInterval = 10 * time.Minute
)

type App struct {
	Config   *config.Config
	DB       *database.DB // nil when history is disabled
	Pipeline *pipeline.Orchestrator
	Flood    *ratelimit.Limiter // nil when flood control is disabled
	Hub      *sse.Hub           // nil when the relay is disabled
	Server   *server.Server     // nil when the relay is disabled
}

// NewResolver builds the fetch and summarise stage from cfg.
func NewResolver(cfg *config.Config) *linkpreview.Resolver {
	fetcher := linkpreview.NewFetcher(linkpreview.Options{
		Timeout:        cfg.Fetch.Timeout,
		MaxBodySize:    cfg.Fetch.MaxBodySize,
		MaxRedirects:   cfg.Fetch.MaxRedirects,
		UserAgent:      cfg.Fetch.UserAgent,
		AcceptLanguage: cfg.Fetch.AcceptLanguage,
		AllowPrivate:   cfg.Fetch.AllowPrivate,
	})
	return linkpreview.NewResolver(fetcher, linkpreview.ResolverOptions{
		TitleMaxLength: cfg.Reply.TitleMaxLength,
		ReportMetadata: cfg.Reply.ReportMetadata,
	})
}

// NewFormatter builds the reply formatter from cfg.
func NewFormatter(cfg *config.Config) *reply.Formatter {
	return reply.NewFormatter(reply.Options{
		Prefix:         cfg.Reply.Prefix,
		MaxLength:      cfg.Reply.MaxLength,
		TimeFormat:     cfg.Reply.TimeFormat,
		MaskHighlights: cfg.Reply.MaskHighlights,
		ReportMIME:     cfg.Reply.ReportMIME,
	})
}

func New(cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	deps := pipeline.Deps{
		Resolver:  NewResolver(cfg),
		Formatter: NewFormatter(cfg),
	}

	var failures *history.ErrorLog
	if cfg.HistoryEnabled() {
		db, err := database.Open(cfg.Database.Path, database.Options{BusyTimeout: cfg.Database.BusyTimeout})
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
		a.DB = db
		deps.History = history.NewRepository(db.DB)
		if cfg.History.LogErrors {
			failures = history.NewErrorLog(db.DB)
			deps.Failures = failures
		}
	}

	if cfg.Flood.Enabled {
		a.Flood = ratelimit.NewLimiter(ratelimit.Rule{Limit: cfg.Flood.Limit, Window: cfg.Flood.Window})
		deps.Flood = a.Flood
	}

	orch, err := pipeline.New(deps, pipeline.Options{
		Workers:     cfg.Pipeline.Workers,
		QueueSize:   cfg.Pipeline.QueueSize,
		URLLimit:    cfg.Pipeline.URLLimit,
		IgnoreNicks: cfg.Pipeline.IgnoreNicks,
	})
	if err != nil {
		a.closeDB()
		return nil, err
	}
	a.Pipeline = orch

	if cfg.Relay.Enabled {
		if err := a.setupRelay(failures); err != nil {
			_ = orch.Close(context.Background())
			a.closeDB()
			return nil, err
		}
	}

	return a, nil
}

func (a *App) setupRelay(failures *history.ErrorLog) error {
	cfg := a.Config

	// Replay needs somewhere to keep events; without a database the hub
	// only delivers live.
	if a.DB != nil {
		a.Hub = sse.NewHub(a.DB.DB, cfg.Relay.EventRetention, eventCleanupInterval)
	} else {
		a.Hub = sse.NewHub(nil, 0, 0)
	}

	deps := handler.Dependencies{Pipeline: a.Pipeline, Hub: a.Hub}
	if failures != nil {
		deps.Failures = failures
	}
	router := server.NewRouter(handler.New(deps), sse.NewHandler(a.Hub), cfg.Relay.AllowedOrigins)

	tlsOpts := server.TLSOptions{
		Mode:     cfg.Relay.TLS.Mode,
		CertFile: cfg.Relay.TLS.CertFile,
		KeyFile:  cfg.Relay.TLS.KeyFile,
		Domain:   cfg.Relay.TLS.Auto.Domain,
		Email:    cfg.Relay.TLS.Auto.Email,
		CacheDir: cfg.Relay.TLS.Auto.CacheDir,
	}
	if tlsOpts.Mode == "auto" {
		if err := os.MkdirAll(tlsOpts.CacheDir, 0700); err != nil {
			return fmt.Errorf("creating TLS cache directory: %w", err)
		}
	}

	a.Server = server.New(cfg.Relay.Host, cfg.Relay.Port, router, tlsOpts)
	return nil
}

// Start runs background maintenance and, when enabled, the relay. It
// blocks until ctx is cancelled or the relay stops.
func (a *App) Start(ctx context.Context) error {
	if a.Hub != nil {
		go a.Hub.Run(ctx)
	}

	// Start flood limiter cleanup
	if a.Flood != nil {
		go func() {
			ticker := time.NewTicker(floodCleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					a.Flood.Cleanup()
				}
			}
		}()
	}

	attrs := []any{
		"history", a.DB != nil,
		"workers", a.Config.Pipeline.Workers,
		"flood", a.Flood != nil,
	}
	if a.DB != nil {
		attrs = append(attrs, "database", a.DB.Path())
	}

	if a.Server == nil {
		slog.Info("starting urlbot", attrs...)
		<-ctx.Done()
		return nil
	}

	attrs = append(attrs, "relay", a.Server.Addr(), "tls", a.Server.TLSMode())
	slog.Info("starting urlbot", attrs...)
	return a.Server.Start()
}

// Shutdown stops the relay, drains queued messages and closes the database.
func (a *App) Shutdown(ctx context.Context) error {
	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			slog.Warn("relay shutdown", "error", err)
		}
	}
	if err := a.Pipeline.Close(ctx); err != nil {
		slog.Warn("pipeline did not drain", "error", err)
	}
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

func (a *App) closeDB() {
	if a.DB != nil {
		_ = a.DB.Close()
	}
}
