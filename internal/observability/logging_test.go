package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func captureJSON(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	require.Equal(t, LogContext{}, GetContext(ctx))

	ctx = WithRunID(ctx, "run-1")
	ctx = WithStage(ctx, "transform")
	ctx = WithDocument(ctx, "intro.md")
	ctx = WithStage(ctx, "release")

	require.Equal(t, LogContext{RunID: "run-1", Stage: "release", Document: "intro.md"}, GetContext(ctx))
}

func TestContextLoggingAddsAttributes(t *testing.T) {
	buf := captureJSON(t)

	ctx := WithStage(WithRunID(context.Background(), "run-7"), "compile")
	WarnContext(ctx, "compile failed", slog.String("hash", "abc"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "WARN", line["level"])
	require.Equal(t, "compile failed", line["msg"])
	require.Equal(t, "run-7", line["run_id"])
	require.Equal(t, "compile", line["stage"])
	require.Equal(t, "abc", line["hash"])
	require.NotContains(t, line, "document")
}

func TestLevels(t *testing.T) {
	buf := captureJSON(t)
	ctx := context.Background()

	DebugContext(ctx, "d")
	InfoContext(ctx, "i")
	ErrorContext(ctx, "e")

	dec := json.NewDecoder(buf)
	var levels []string
	for dec.More() {
		var line map[string]any
		require.NoError(t, dec.Decode(&line))
		levels = append(levels, line["level"].(string))
	}
	require.Equal(t, []string{"DEBUG", "INFO", "ERROR"}, levels)
}
