package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo)
	logger.Info("scan finished", "items", 3, "root", "/tmp/my proj")

	out := buf.String()
	for _, want := range []string{"[info] scan finished", " | items=3", `root="/tmp/my proj"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
	if !strings.HasSuffix(out, "\n") {
		t.Errorf("output should end in newline: %q", out)
	}
}

func TestHandlerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelWarn)
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record should be filtered: %q", out)
	}
	if !strings.Contains(out, "[warn] shown") {
		t.Errorf("warn record missing: %q", out)
	}
}

func TestHandlerGroupsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelDebug).With("scan", 7).WithGroup("parse")
	logger.Debug("file", "path", "a.ts")

	out := buf.String()
	if !strings.Contains(out, "scan=7") || !strings.Contains(out, "parse.path=a.ts") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestDiscard(t *testing.T) {
	if Discard().Enabled(context.Background(), slog.LevelError) {
		t.Error("discard logger should not be enabled")
	}
}

func TestLevels(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"off", Silent},
		{"bogus", slog.LevelWarn},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if got := LevelFromVerbosity(0, false, slog.LevelError); got != slog.LevelError {
		t.Errorf("fallback not used: %v", got)
	}
	if got := LevelFromVerbosity(2, false, slog.LevelWarn); got != slog.LevelDebug {
		t.Errorf("-vv should be debug: %v", got)
	}
	if got := LevelFromVerbosity(2, true, slog.LevelWarn); got != Silent {
		t.Errorf("quiet wins: %v", got)
	}
}
