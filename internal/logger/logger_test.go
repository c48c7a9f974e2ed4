package logger

import (
	"context"
	"log/slog"
	"testing"
)

func TestInit(t *testing.T) {
	logger := Init("test-service", slog.LevelInfo)
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{" info ", slog.LevelInfo},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestWindowID_RoundTrip(t *testing.T) {
	ctx := context.Background()

	if id := WindowID(ctx); id != 0 {
		t.Errorf("expected zero window id, got %d", id)
	}

	ctx = WithWindowID(ctx, 42)
	if id := WindowID(ctx); id != 42 {
		t.Errorf("expected 42, got %d", id)
	}
}

func TestWithWindow(t *testing.T) {
	ctx := context.Background()

	if attrs := WithWindow(ctx); attrs != nil {
		t.Errorf("expected nil attrs without window id, got %v", attrs)
	}

	ctx = WithWindowID(ctx, 7)
	if attrs := WithWindow(ctx); len(attrs) == 0 {
		t.Fatal("expected non-empty attrs with window id set")
	}
}
