package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestRequestIDIsAttached(t *testing.T) {
	var buf bytes.Buffer
	InitializeWriter(&buf, "info", "json")
	t.Cleanup(func() { defaultLogger = nil })

	ctx := ContextWithRequestID(context.Background(), "req-123")
	InfoContext(ctx, "order placed", "order_id", 7)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "req-123", rec["request_id"])
	assert.Equal(t, "order placed", rec["msg"])
	assert.EqualValues(t, 7, rec["order_id"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitializeWriter(&buf, "warn", "text")
	t.Cleanup(func() { defaultLogger = nil })

	Info("hidden")
	Warn("shown")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

func TestMultiHandler(t *testing.T) {
	var a, b bytes.Buffer
	ha := slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelDebug})
	hb := slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelError})
	log := slog.New(NewMultiHandler(ha, hb)).With("component", "test")

	log.Info("info line")
	log.Error("error line")

	assert.Equal(t, 2, strings.Count(a.String(), "component=test"))
	assert.NotContains(t, b.String(), "info line")
	assert.Contains(t, b.String(), "error line")
}
