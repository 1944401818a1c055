package observability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope of the engine's metrics.
const MeterName = "dynquery"

// QueryMetrics holds the engine's query instruments.
type QueryMetrics struct {
	duration      metric.Float64Histogram
	queries       metric.Int64Counter
	errors        metric.Int64Counter
	active        metric.Int64UpDownCounter
	rowsScanned   metric.Int64Histogram
	itemsReturned metric.Int64Histogram
}

// NewQueryMetrics creates the query instruments on meter.
func NewQueryMetrics(meter metric.Meter) (*QueryMetrics, error) {
	duration, err := meter.Float64Histogram(
		"dynquery.query.duration",
		metric.WithDescription("Duration of engine queries in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create query duration histogram: %w", err)
	}

	queries, err := meter.Int64Counter(
		"dynquery.queries.total",
		metric.WithDescription("Total number of engine queries"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create query counter: %w", err)
	}

	errs, err := meter.Int64Counter(
		"dynquery.errors.total",
		metric.WithDescription("Total number of failed engine queries by error kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create error counter: %w", err)
	}

	active, err := meter.Int64UpDownCounter(
		"dynquery.queries.active",
		metric.WithDescription("Number of engine queries in flight"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active queries counter: %w", err)
	}

	rowsScanned, err := meter.Int64Histogram(
		"dynquery.rows.scanned",
		metric.WithDescription("Number of flat rows read from the store per query"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rows scanned histogram: %w", err)
	}

	itemsReturned, err := meter.Int64Histogram(
		"dynquery.items.returned",
		metric.WithDescription("Number of DTOs returned per query after deduplication"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create items returned histogram: %w", err)
	}

	return &QueryMetrics{
		duration:      duration,
		queries:       queries,
		errors:        errs,
		active:        active,
		rowsScanned:   rowsScanned,
		itemsReturned: itemsReturned,
	}, nil
}

// InitQueryMetrics creates the query instruments on the global meter provider.
func InitQueryMetrics(logger *slog.Logger) (*QueryMetrics, error) {
	metrics, err := NewQueryMetrics(otel.Meter(MeterName))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize query metrics: %w", err)
	}
	logger.Debug("query metrics initialized")
	return metrics, nil
}

// RecordQuery records one finished query. errorKind is empty on success.
func (m *QueryMetrics) RecordQuery(ctx context.Context, duration time.Duration, dto, mode, errorKind string) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("dto", dto),
		attribute.String("mode", mode),
		attribute.Bool("has_error", errorKind != ""),
	)
	m.duration.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	m.queries.Add(ctx, 1, attrs)
	if errorKind != "" {
		m.errors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("dto", dto),
			attribute.String("kind", errorKind),
		))
	}
}

// RecordRows records how many flat rows produced how many DTOs.
func (m *QueryMetrics) RecordRows(ctx context.Context, dto string, rows, items int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("dto", dto))
	m.rowsScanned.Record(ctx, int64(rows), attrs)
	m.itemsReturned.Record(ctx, int64(items), attrs)
}

// QueryStarted marks a query as in flight.
func (m *QueryMetrics) QueryStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.active.Add(ctx, 1)
}

// QueryFinished marks a query as no longer in flight.
func (m *QueryMetrics) QueryFinished(ctx context.Context) {
	if m == nil {
		return
	}
	m.active.Add(ctx, -1)
}
