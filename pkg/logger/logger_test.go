package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextIDsAreInjected(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(New(&buf, Config{Level: "debug", Format: "json"}))

	ctx := ContextWithIDs(context.Background(), "trace-1", "span-1", "req-1")
	Info(ctx, "option priced", "symbol", "AAPL")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "option priced", entry["msg"])
	assert.Equal(t, "trace-1", entry["trace_id"])
	assert.Equal(t, "span-1", entry["span_id"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "AAPL", entry["symbol"])
	assert.Equal(t, "trace-1", TraceID(ctx))
	assert.Equal(t, "req-1", RequestID(ctx))
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(New(&buf, Config{Level: "warn", Format: "text"}))

	Debug(context.Background(), "hidden")
	Info(context.Background(), "hidden")
	assert.Zero(t, buf.Len())

	Warn(context.Background(), "shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestInitWritesToRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "pricing.log")
	require.NoError(t, Init(Config{Level: "info", Format: "json", Output: "file", FilePath: path, MaxSize: 1}))
	done := LogDuration(context.Background(), "pricing finished")
	done()
	assert.FileExists(t, path)
}
