package preflight_test

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"infobeamer-cms/internal/cache"
	"infobeamer-cms/internal/preflight"
	"infobeamer-cms/internal/services/infobeamer"
	"infobeamer-cms/internal/testsupport"
)

func TestCheckDirectoryAccess(t *testing.T) {
	if result := preflight.CheckDirectoryAccess("test", t.TempDir()); !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
	if result := preflight.CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope")); result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	file := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := preflight.CheckDirectoryAccess("test", file); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckCache(t *testing.T) {
	if result := preflight.CheckCache(context.Background(), cache.NewMemory()); !result.Passed {
		t.Fatalf("expected memory cache to pass, got %s", result.Detail)
	}
}

func TestRunAll(t *testing.T) {
	hosted := testsupport.NewFakeHosted(t)
	hosted.AddDevice(1, true, "pi4")
	hosted.SetSetupConfig(10, testsupport.UserContentSchedule())
	hosted.SetSetupConfig(20, map[string]any{"schedules": []any{map[string]any{"name": "Talks"}}})
	cfg := testsupport.NewConfig(t, testsupport.WithHosted(hosted), testsupport.WithSetupIDs(10, 20, 30))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	client, err := infobeamer.NewFromConfig(cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}

	results := preflight.RunAll(context.Background(), cfg, client, cache.NewMemory())
	passed := map[string]bool{}
	for _, result := range results {
		passed[result.Name] = result.Passed
	}
	want := map[string]bool{
		"State directory": true,
		"Log directory":   true,
		"Request cache":   true,
		"Hosted API":      true,
		"Setup 10":        true,
		"Setup 20":        false,
		"Setup 30":        false,
	}
	for name, ok := range want {
		if got, present := passed[name]; !present || got != ok {
			t.Fatalf("%s: passed=%v present=%v, want %v (%+v)", name, got, present, ok, results)
		}
	}
	if !preflight.Failed(results) {
		t.Fatal("expected overall failure")
	}
}

func TestRunAllStopsOnRejectedCredentials(t *testing.T) {
	hosted := testsupport.NewFakeHosted(t)
	hosted.Fail(http.MethodGet, "device/list", http.StatusUnauthorized)
	cfg := testsupport.NewConfig(t, testsupport.WithHosted(hosted), testsupport.WithSetupIDs(10))
	client, err := infobeamer.NewFromConfig(cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}

	results := preflight.RunAll(context.Background(), cfg, client, nil)
	last := results[len(results)-1]
	if last.Name != "Hosted API" || last.Passed || last.Detail != "credentials rejected" {
		t.Fatalf("unexpected final result %+v", last)
	}
	if hosted.Count(http.MethodGet, "setup/") != 0 {
		t.Fatal("setups must not be probed with rejected credentials")
	}
}
