package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithContextInjectsTraceFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Config{Level: "debug", Format: "json"})
	globalLogger.Store(l)
	t.Cleanup(func() { globalLogger.Store(nil) })

	ctx := ContextWithTrace(context.Background(), "trace-1", "span-1", "req-1")
	Info(ctx, "query served", "symbol", "AAPL")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "query served", entry["msg"])
	assert.Equal(t, "trace-1", entry["trace_id"])
	assert.Equal(t, "span-1", entry["span_id"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "AAPL", entry["symbol"])

	assert.Equal(t, "trace-1", TraceID(ctx))
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Empty(t, TraceID(context.Background()))
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	globalLogger.Store(New(&buf, Config{Level: "warn", Format: "text"}))
	t.Cleanup(func() { globalLogger.Store(nil) })

	Info(context.Background(), "hidden")
	assert.Zero(t, buf.Len())

	Warn(context.Background(), "shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}
