package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initBuffer(t *testing.T, cfg LogConfig) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	cfg.Output = &buf
	require.NoError(t, InitWithConfig(cfg))
	t.Cleanup(func() {
		_ = InitWithConfig(LogConfig{Level: "INFO", Format: "json", Output: &bytes.Buffer{}})
	})
	return &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	dec := json.NewDecoder(buf)
	for dec.More() {
		var m map[string]any
		require.NoError(t, dec.Decode(&m))
		out = append(out, m)
	}
	return out
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("WARN"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("bogus"))
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "WARN")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("LOG_DETAILED", "true")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "WARN", cfg.Level)
	assert.Equal(t, "text", cfg.Format)
	assert.True(t, cfg.DetailedLogging)
}

func TestDebugSuppressedWithoutDetailedLogging(t *testing.T) {
	buf := initBuffer(t, LogConfig{Level: "DEBUG", Format: "json"})

	Debug(context.Background(), "hidden")
	Info(context.Background(), "shown", "symbol", "BTC/USD")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["msg"])
	assert.Equal(t, "BTC/USD", lines[0]["symbol"])
}

func TestErrorWithErrAddsErrorField(t *testing.T) {
	buf := initBuffer(t, LogConfig{Level: "INFO", Format: "json"})

	ErrorWithErr(context.Background(), "tick failed", errors.New("boom"), "trigger", "ExecuteTrade")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "boom", lines[0]["error"])
	assert.Equal(t, "ExecuteTrade", lines[0]["trigger"])
	assert.Equal(t, "ERROR", lines[0]["level"])
}

func TestTradeRecord(t *testing.T) {
	buf := initBuffer(t, LogConfig{Level: "INFO", Format: "json"})

	Trade(context.Background(), "BTC/USD", "BUY", decimal.RequireFromString("10"), decimal.RequireFromString("100.5"), "SIM-1")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "TRADE", lines[0]["type"])
	assert.Equal(t, "10", lines[0]["size"])
	assert.Equal(t, "100.5", lines[0]["price"])
	assert.Equal(t, "SIM-1", lines[0]["order_id"])
}

func TestDetailedLoggingAddsSource(t *testing.T) {
	buf := initBuffer(t, LogConfig{Level: "INFO", Format: "json", DetailedLogging: true})

	Debug(context.Background(), "visible")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	src, ok := lines[0]["source"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, src["function"], "TestDetailedLoggingAddsSource")
}
