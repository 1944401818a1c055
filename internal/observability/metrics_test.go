package observability

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumValue(t *testing.T, data metricdata.Aggregation) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "expected int64 sum, got %T", data)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestQueryMetrics_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	metrics, err := NewQueryMetrics(provider.Meter(MeterName))
	require.NoError(t, err)

	ctx := context.Background()
	metrics.QueryStarted(ctx)
	metrics.RecordQuery(ctx, 12*time.Millisecond, "products", "items", "")
	metrics.RecordRows(ctx, "products", 6, 2)
	metrics.QueryFinished(ctx)

	metrics.QueryStarted(ctx)
	metrics.RecordQuery(ctx, time.Millisecond, "products", "paging", "bad_query_field")

	data := collect(t, reader)
	assert.Equal(t, int64(2), sumValue(t, data["dynquery.queries.total"]))
	assert.Equal(t, int64(1), sumValue(t, data["dynquery.errors.total"]))
	assert.Equal(t, int64(1), sumValue(t, data["dynquery.queries.active"]))

	rows, ok := data["dynquery.rows.scanned"].(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, rows.DataPoints, 1)
	assert.Equal(t, int64(6), rows.DataPoints[0].Sum)

	items, ok := data["dynquery.items.returned"].(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, items.DataPoints, 1)
	assert.Equal(t, int64(2), items.DataPoints[0].Sum)

	_, ok = data["dynquery.query.duration"].(metricdata.Histogram[float64])
	assert.True(t, ok)
}

func TestQueryMetrics_NilReceiver(t *testing.T) {
	var metrics *QueryMetrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		metrics.QueryStarted(ctx)
		metrics.RecordQuery(ctx, time.Second, "products", "count", "store_error")
		metrics.RecordRows(ctx, "products", 1, 1)
		metrics.QueryFinished(ctx)
	})
}

func TestInitQueryMetrics(t *testing.T) {
	mp, err := InitMeterProvider(Config{ServiceName: "dynquery-test"})
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background(), logger) })

	metrics, err := InitQueryMetrics(logger)
	require.NoError(t, err)
	require.NotNil(t, metrics.duration)
	require.NotNil(t, metrics.queries)
	require.NotNil(t, metrics.errors)
	require.NotNil(t, metrics.active)
}
