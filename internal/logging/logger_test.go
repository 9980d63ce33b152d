package logging_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"infobeamer-cms/internal/config"
	"infobeamer-cms/internal/logging"
	"infobeamer-cms/internal/services"
)

func noColor() *bool {
	v := false
	return &v
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Format = "json"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("sync started", logging.Int("live_count", 3))

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "infobeamer-cms.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), `"msg":"sync started"`) || !strings.Contains(string(content), `"live_count":3`) {
		t.Fatalf("unexpected log file content: %q", content)
	}
}

func TestConsoleLoggerFormatsComponentAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf, Color: noColor()})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger = logging.NewComponentLogger(logger, "syncer")
	logger.Info("schedule shows assets", logging.IDs("asset_ids", []int64{1, 2}), logging.String("schedule", "User Content"))
	logger.Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, "INFO syncer: schedule shows assets") {
		t.Fatalf("expected level and component prefix, got %q", out)
	}
	if !strings.Contains(out, "asset_ids=[1,2]") {
		t.Fatalf("expected compact id list, got %q", out)
	}
	if !strings.Contains(out, `schedule="User Content"`) {
		t.Fatalf("expected quoted value with spaces, got %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line should be filtered at info level, got %q", out)
	}
	if strings.Contains(out, ".go:") {
		t.Fatalf("expected no caller information at info level, got %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("expected no colour codes, got %q", out)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", Writer: &buf, Color: noColor()})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("message with caller")
	if !strings.Contains(buf.String(), "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", buf.String())
	}
}

func TestConsoleLoggerColoursWhenForced(t *testing.T) {
	var buf bytes.Buffer
	colour := true
	logger, err := logging.New(logging.Options{Format: "console", Writer: &buf, Color: &colour})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("config has changed")
	if !strings.Contains(buf.String(), "\x1b[33mWARN\x1b[0m") {
		t.Fatalf("expected coloured warn label, got %q", buf.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	base, err := logging.New(logging.Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithRunID(context.Background(), "run-1")
	ctx = services.WithSetupID(ctx, 99)
	logging.WithContext(ctx, base).Info("processing setup")

	out := buf.String()
	if !strings.Contains(out, `"run_id":"run-1"`) || !strings.Contains(out, `"setup_id":99`) {
		t.Fatalf("expected context fields, got %q", out)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "sink failed", "notify_sink_failed", logging.Error(errors.New("boom")))

	out := buf.String()
	for _, want := range []string{`"event_type":"notify_sink_failed"`, `"error_hint"`, `"impact"`, `"error":"boom"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %q", want, out)
		}
	}
}
