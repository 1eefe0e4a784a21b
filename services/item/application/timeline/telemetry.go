package timeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/ghuser/lostfound/services/item/application/timeline"

var tracer = otel.Tracer(instrumentationName)

type instruments struct {
	pages     metric.Int64Counter
	filters   metric.Int64Counter
	timeouts  metric.Int64Counter
	batchTime metric.Float64Histogram
}

// newInstruments registers the timeline meters on the global provider.
// Registration failures fall back to no-op instruments.
func newInstruments() *instruments {
	meter := otel.Meter(instrumentationName)
	fallback := noop.Meter{}

	pages, err := meter.Int64Counter("timeline.pages",
		metric.WithDescription("Item and thumbnail pages fetched, by track and status"))
	if err != nil {
		pages, _ = fallback.Int64Counter("timeline.pages")
	}
	filters, err := meter.Int64Counter("timeline.filters",
		metric.WithDescription("Filter applications, by kind and base set"))
	if err != nil {
		filters, _ = fallback.Int64Counter("timeline.filters")
	}
	timeouts, err := meter.Int64Counter("timeline.batch.timeouts",
		metric.WithDescription("Fan-out batches that hit their deadline"))
	if err != nil {
		timeouts, _ = fallback.Int64Counter("timeline.batch.timeouts")
	}
	batchTime, err := meter.Float64Histogram("timeline.batch.duration",
		metric.WithDescription("Fan-out batch wall time"),
		metric.WithUnit("s"))
	if err != nil {
		batchTime, _ = fallback.Float64Histogram("timeline.batch.duration")
	}

	return &instruments{pages: pages, filters: filters, timeouts: timeouts, batchTime: batchTime}
}

func (i *instruments) recordBatch(ctx context.Context, op string, d time.Duration, timedOut bool) {
	attrs := metric.WithAttributes(attribute.String("op", op))
	i.batchTime.Record(ctx, d.Seconds(), attrs)
	if timedOut {
		i.timeouts.Add(ctx, 1, attrs)
	}
}

func (i *instruments) recordPage(ctx context.Context, track Track, status Status) {
	i.pages.Add(ctx, 1, metric.WithAttributes(
		attribute.String("track", string(track)),
		attribute.String("status", string(status)),
	))
}

func (i *instruments) recordFilter(ctx context.Context, kind FilterKind, base string) {
	i.filters.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("base", base),
	))
}
