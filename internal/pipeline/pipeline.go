package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/enzyme/urlbot/internal/history"
	"github.com/enzyme/urlbot/internal/linkpreview"
	"github.com/enzyme/urlbot/internal/ratelimit"
	"github.com/enzyme/urlbot/internal/reply"
)

// Resolver is satisfied by *linkpreview.Resolver.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string) linkpreview.Summary
}

// FailureLog is satisfied by *history.ErrorLog.
type FailureLog interface {
	Record(ctx context.Context, f *history.Failure) error
}

// FloodGuard is satisfied by *ratelimit.Limiter.
type FloodGuard interface {
	Allow(key string) (ratelimit.Result, bool)
}

// Message is one inbound chat line.
type Message struct {
	Channel string
	Nick    string
	Text    string
}

type Deps struct {
	Resolver  Resolver
	History   history.Store // nil disables history
	Failures  FailureLog    // optional
	Formatter *reply.Formatter
	Flood     FloodGuard // optional
}

type Options struct {
	// Workers caps simultaneous fetches across all messages.
	Workers     int
	QueueSize   int
	URLLimit    int
	IgnoreNicks []string
}

// Orchestrator turns chat messages into reply lines, one per link.
type Orchestrator struct {
	resolver  Resolver
	history   history.Store
	failures  FailureLog
	formatter *reply.Formatter
	flood     FloodGuard

	ignore   map[string]struct{}
	urlLimit int
	fetches  *semaphore.Weighted
	pool     *WorkerPool
	metrics  *metrics
	tracer   trace.Tracer
}

func New(deps Deps, opts Options) (*Orchestrator, error) {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.URLLimit <= 0 {
		opts.URLLimit = 10
	}
	if deps.History == nil {
		deps.History = history.NopStore{}
	}
	if deps.Formatter == nil {
		deps.Formatter = reply.NewFormatter(reply.Options{})
	}

	pool, err := NewWorkerPool(context.Background(), opts.Workers, opts.QueueSize)
	if err != nil {
		return nil, err
	}

	ignore := make(map[string]struct{}, len(opts.IgnoreNicks))
	for _, n := range opts.IgnoreNicks {
		ignore[strings.ToLower(n)] = struct{}{}
	}

	return &Orchestrator{
		resolver:  deps.Resolver,
		history:   deps.History,
		failures:  deps.Failures,
		formatter: deps.Formatter,
		flood:     deps.Flood,
		ignore:    ignore,
		urlLimit:  opts.URLLimit,
		fetches:   semaphore.NewWeighted(int64(opts.Workers)),
		pool:      pool,
		metrics:   newMetrics(),
		tracer:    otel.Tracer(instrumentationName),
	}, nil
}

// OnMessage returns one reply per link in text, in the order the links
// appear. Links are resolved concurrently.
func (o *Orchestrator) OnMessage(ctx context.Context, channel, nick, text string) []string {
	if _, ok := o.ignore[strings.ToLower(nick)]; ok {
		return nil
	}

	links := linkpreview.ExtractURLs(text)
	if len(links) == 0 {
		return nil
	}

	if o.flood != nil {
		if res, ok := o.flood.Allow(channel); !ok {
			slog.Debug("flood limit reached", "channel", channel, "nick", nick, "retry_in", res.RetryIn)
			return nil
		}
	}

	if len(links) > o.urlLimit {
		slog.Debug("link limit reached", "channel", channel, "links", len(links), "limit", o.urlLimit)
		links = links[:o.urlLimit]
	}

	replies := make([]string, len(links))
	var g errgroup.Group
	for i, link := range links {
		g.Go(func() error {
			if err := o.fetches.Acquire(ctx, 1); err != nil {
				return nil
			}
			defer o.fetches.Release(1)

			replies[i] = o.handle(ctx, channel, nick, link)
			return nil
		})
	}
	_ = g.Wait()

	out := replies[:0]
	for _, r := range replies {
		if r != "" {
			out = append(out, r)
		}
	}
	return out
}

func (o *Orchestrator) handle(ctx context.Context, channel, nick, link string) string {
	ctx, span := o.tracer.Start(ctx, "pipeline.resolve", trace.WithAttributes(
		attribute.String("url.full", link),
		attribute.String("chat.channel", channel),
	))
	defer span.End()

	start := time.Now()
	s := o.resolver.Resolve(ctx, link)
	o.metrics.record(ctx, s, time.Since(start))

	if !s.OK() {
		span.SetStatus(codes.Error, s.Failure.String())
		slog.Info("link resolution failed", "url", link, "kind", s.Failure.String(), "status", s.Status, "error", s.Err)
		o.recordFailure(ctx, link, s)
		return o.formatter.Format(s, nil)
	}

	prev, err := o.history.Lookup(ctx, s.FinalURL)
	if err != nil {
		slog.Warn("history lookup failed", "url", s.FinalURL, "error", err)
		prev = nil
	}

	entry := &history.Entry{URL: s.FinalURL, Nick: nick, Channel: channel, Title: summaryText(s)}
	if err := o.history.Record(ctx, entry); err != nil {
		slog.Warn("history record failed", "url", s.FinalURL, "error", err)
	}

	span.SetAttributes(attribute.Bool("urlbot.repost", prev != nil))
	return o.formatter.Format(s, prev)
}

func (o *Orchestrator) recordFailure(ctx context.Context, link string, s linkpreview.Summary) {
	if o.failures == nil {
		return
	}
	f := &history.Failure{URL: link, Kind: s.Failure.String(), Status: s.Status}
	if s.Err != nil {
		f.Detail = s.Err.Error()
	}
	if err := o.failures.Record(ctx, f); err != nil {
		slog.Warn("fetch error log failed", "url", link, "error", err)
	}
}

// Submit hands msg to the worker pool and returns immediately. deliver is
// called from a worker goroutine with the replies, if there are any.
func (o *Orchestrator) Submit(ctx context.Context, msg Message, deliver func([]string)) error {
	return o.pool.Submit(ctx, func(ctx context.Context) {
		if replies := o.OnMessage(ctx, msg.Channel, msg.Nick, msg.Text); len(replies) > 0 {
			deliver(replies)
		}
	})
}

// Close waits for submitted messages to be processed.
func (o *Orchestrator) Close(ctx context.Context) error {
	return o.pool.Close(ctx)
}

func summaryText(s linkpreview.Summary) string {
	if s.Kind == linkpreview.SummaryMedia {
		return reply.DescribeMedia(s.Media)
	}
	return s.Title
}
