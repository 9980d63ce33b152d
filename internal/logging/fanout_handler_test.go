package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every handler is nil")
	}

	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newFanoutHandler(nil, inner); h != inner {
		t.Fatal("expected single non-nil handler to be returned unwrapped")
	}
}

func TestFanoutHandlerRespectsPerHandlerLevels(t *testing.T) {
	var console, file bytes.Buffer
	h := newFanoutHandler(
		slog.NewTextHandler(&console, &slog.HandlerOptions{Level: slog.LevelWarn}),
		slog.NewJSONHandler(&file, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug to be enabled through the file handler")
	}

	logger := slog.New(h).With(slog.String("setup_id", "42"))
	logger.Debug("schedule unchanged")
	logger.Warn("config has changed")

	if strings.Contains(console.String(), "schedule unchanged") {
		t.Fatalf("console handler should drop debug records: %q", console.String())
	}
	if !strings.Contains(console.String(), "config has changed") {
		t.Fatalf("console handler missing warning: %q", console.String())
	}
	if !strings.Contains(file.String(), "schedule unchanged") || !strings.Contains(file.String(), `"setup_id":"42"`) {
		t.Fatalf("file handler missing debug record or attrs: %q", file.String())
	}
}

func TestFanoutHandlerWithGroup(t *testing.T) {
	var a, b bytes.Buffer
	h := newFanoutHandler(slog.NewJSONHandler(&a, nil), slog.NewJSONHandler(&b, nil))
	slog.New(h).WithGroup("asset").Info("rendered", slog.Int64("id", 7))
	for _, out := range []string{a.String(), b.String()} {
		if !strings.Contains(out, `"asset":{"id":7}`) {
			t.Fatalf("expected grouped attr in %q", out)
		}
	}
}
