package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFromContext_AddsRunAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	defer slog.SetDefault(prev)
	SetupWriter(&buf, "info", "json")

	ctx, id := NewRun(context.Background())
	ctx = context.WithValue(ctx, middleware.RequestIDKey, "req-42")

	FromContext(ctx).Info("hello", "file", "a.csv")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log is not JSON: %v (%s)", err, buf.String())
	}
	if entry["run_id"] != id.String() {
		t.Errorf("run_id = %v, want %s", entry["run_id"], id)
	}
	if entry["request_id"] != "req-42" {
		t.Errorf("request_id = %v, want req-42", entry["request_id"])
	}
	if entry["file"] != "a.csv" {
		t.Errorf("file = %v, want a.csv", entry["file"])
	}
}

func TestFromContext_NoIDs(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	defer slog.SetDefault(prev)
	SetupWriter(&buf, "debug", "text")

	WithFields(context.Background(), "model", "siisa_empleadores").Debug("plain")

	out := buf.String()
	if strings.Contains(out, "run_id") || strings.Contains(out, "request_id") {
		t.Errorf("unexpected ids in %q", out)
	}
	if !strings.Contains(out, "model=siisa_empleadores") {
		t.Errorf("missing field in %q", out)
	}
}

func TestRunID_Missing(t *testing.T) {
	if got := RunID(context.Background()); got != uuid.Nil {
		t.Errorf("RunID() = %s, want uuid.Nil", got)
	}
}
