package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}

	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestTraceContextHandler_PassesThroughWithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	handler := NewTraceContextHandler(slog.NewJSONHandler(&buf, nil))
	logger := slog.New(handler)

	logger.InfoContext(context.Background(), "hello", "key", "value")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	if record["msg"] != "hello" {
		t.Errorf("expected msg 'hello', got %v", record["msg"])
	}
	if record["key"] != "value" {
		t.Errorf("expected key 'value', got %v", record["key"])
	}
	if _, ok := record["trace_id"]; ok {
		t.Error("trace_id should be absent without an active span")
	}
}

func TestInit_ReturnsLogger(t *testing.T) {
	logger := Init(false)
	if logger == nil {
		t.Fatal("expected a logger")
	}
}
