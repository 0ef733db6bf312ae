package logging

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
)

func TestLoggerRoundTrip(t *testing.T) {
	t.Parallel()

	if got := FromContext(context.Background()); got != nil {
		t.Fatalf("expected no logger on empty context")
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := ContextWithLogger(context.Background(), logger)
	if got := FromContext(ctx); got != logger {
		t.Fatalf("expected attached logger to be returned")
	}

	if same := ContextWithLogger(ctx, nil); FromContext(same) != logger {
		t.Fatalf("expected nil logger to leave context unchanged")
	}
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	id := NewRequestID()
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("expected uuid request id, got %q: %v", id, err)
	}

	ctx := ContextWithRequestID(context.Background(), id)
	if got := RequestIDFromContext(ctx); got != id {
		t.Fatalf("expected %q, got %q", id, got)
	}
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty id, got %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for input, want := range tests {
		if got := ParseLevel(input); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}
