package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for name, want := range tests {
		assert.Equal(t, want, ParseLevel(name), name)
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: "info", Format: "json", Output: &buf})

	logger.Debug("hidden")
	logger.WithFields("dto", "products").Info("query finished", slog.Int("items", 3))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "query finished", record["msg"])
	assert.Equal(t, "products", record["dto"])
	assert.Equal(t, float64(3), record["items"])
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: "debug", Format: "text", Output: &buf})
	logger.Debug("planned", slog.String("table", "products"))
	assert.Contains(t, buf.String(), "table=products")
}

func TestMultiHandler(t *testing.T) {
	var info, errs bytes.Buffer
	h := newMultiHandler(
		slog.NewTextHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&errs, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	logger := slog.New(h).With("component", "engine")

	logger.Info("first")
	logger.Error("second")

	assert.Contains(t, info.String(), "first")
	assert.Contains(t, info.String(), "second")
	assert.NotContains(t, errs.String(), "first")
	assert.Contains(t, errs.String(), "component=engine")
	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	assert.NotNil(t, FromContext(ctx).Logger)
	assert.Empty(t, QueryID(ctx))

	logger := NewLogger(Config{Output: &bytes.Buffer{}})
	ctx = WithLogger(ctx, logger)
	ctx = WithQueryID(ctx, "q-1")
	assert.Same(t, logger, FromContext(ctx))
	assert.Equal(t, "q-1", QueryID(ctx))
}
