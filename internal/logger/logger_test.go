// Tests for the logger package: level parsing, the custom handler's output
// format, and attribute handling.
package logger

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

// ///////////////////////////////////////////////
// ParseLevel Tests
// ///////////////////////////////////////////////

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"trace", LevelTrace},
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"WARN", LevelWarn},
		{"Error", LevelError},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// ///////////////////////////////////////////////
// Handler Tests
// ///////////////////////////////////////////////

func record(level slog.Level, msg string, args ...any) slog.Record {
	r := slog.NewRecord(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), level, msg, 0)
	r.Add(args...)
	return r
}

func TestHandlerFormat(t *testing.T) {
	var buf strings.Builder
	h := NewHandler(&buf, LevelDebug)

	if err := h.Handle(context.Background(), record(LevelInfo, "pass complete", "sessions", 3)); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	want := "2026-03-01T10:00:00.000Z [INFO] pass complete | sessions=3\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestHandlerLevelFilter(t *testing.T) {
	h := NewHandler(&strings.Builder{}, LevelWarn)

	if h.Enabled(context.Background(), LevelDebug) {
		t.Error("debug should be filtered at warn level")
	}
	if !h.Enabled(context.Background(), LevelError) {
		t.Error("error should pass at warn level")
	}
	if !h.Enabled(context.Background(), LevelWarn) {
		t.Error("warn should pass at warn level")
	}
}

func TestHandlerWithAttrs(t *testing.T) {
	var buf strings.Builder
	h := NewHandler(&buf, LevelDebug).WithAttrs([]slog.Attr{slog.String("project", "alpha")})

	if err := h.Handle(context.Background(), record(LevelInfo, "scanned", "files", 2)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	got := buf.String()
	if !strings.Contains(got, "project=alpha, files=2") {
		t.Errorf("output = %q, want pre-applied attrs first", got)
	}
}

func TestHandlerWithGroup(t *testing.T) {
	var buf strings.Builder
	h := NewHandler(&buf, LevelDebug).WithGroup("scan")

	if err := h.Handle(context.Background(), record(LevelInfo, "done", "passes", 1)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.Contains(buf.String(), "scan.passes=1") {
		t.Errorf("output = %q, want grouped key scan.passes", buf.String())
	}
}

func TestTraceLevelName(t *testing.T) {
	var buf strings.Builder
	h := NewHandler(&buf, LevelTrace)

	if err := h.Handle(context.Background(), record(LevelTrace, "raw event")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.Contains(buf.String(), "[TRACE]") {
		t.Errorf("output = %q, want [TRACE]", buf.String())
	}
}
