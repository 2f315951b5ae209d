package pipeline

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/enzyme/urlbot/internal/linkpreview"
)

const instrumentationName = "github.com/enzyme/urlbot/internal/pipeline"

type metrics struct {
	resolved metric.Int64Counter
	duration metric.Float64Histogram
}

func newMetrics() *metrics {
	meter := otel.Meter(instrumentationName)

	resolved, err := meter.Int64Counter("urlbot.links.resolved",
		metric.WithDescription("Links resolved, by outcome"),
		metric.WithUnit("{link}"))
	if err != nil {
		slog.Warn("creating resolved counter", "error", err)
		resolved = noop.Int64Counter{}
	}

	duration, err := meter.Float64Histogram("urlbot.fetch.duration",
		metric.WithDescription("Time spent resolving a single link"),
		metric.WithUnit("s"))
	if err != nil {
		slog.Warn("creating duration histogram", "error", err)
		duration = noop.Float64Histogram{}
	}

	return &metrics{resolved: resolved, duration: duration}
}

func (m *metrics) record(ctx context.Context, s linkpreview.Summary, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome(s)))
	m.resolved.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}

func outcome(s linkpreview.Summary) string {
	switch s.Kind {
	case linkpreview.SummaryTitle:
		return "title"
	case linkpreview.SummaryMedia:
		return "media"
	default:
		return s.Failure.String()
	}
}
