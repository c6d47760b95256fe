package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testService = "commitflow-test"
	testEnv     = "test"
	testMessage = "payload accepted"
)

func TestTracingHandler_ServiceAttributes(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(NewTracingHandler(inner, testService, testEnv, ModeServe))

	logger.InfoContext(context.Background(), testMessage)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, testService, record[attrService])
	assert.Equal(t, testEnv, record[attrEnv])
	assert.Equal(t, string(ModeServe), record[attrMode])
	assert.Equal(t, testMessage, record["msg"])
}

func TestTracingHandler_NoTraceContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(NewTracingHandler(inner, testService, "", ModeCLI))

	logger.InfoContext(context.Background(), testMessage)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	_, hasTrace := record[attrTraceID]
	assert.False(t, hasTrace, "no span context, no trace_id")

	_, hasEnv := record[attrEnv]
	assert.False(t, hasEnv, "empty env is omitted")
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelDebug, ParseLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLogLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLogLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLogLevel("nonsense"))
}
