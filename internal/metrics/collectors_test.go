package metrics_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"infobeamer-cms/internal/assets"
	"infobeamer-cms/internal/metrics"
	"infobeamer-cms/internal/services/infobeamer"
	"infobeamer-cms/internal/testsupport"
)

func newClient(t *testing.T, f *testsupport.FakeHosted) *infobeamer.Client {
	t.Helper()
	client, err := infobeamer.New(f.APIKey, f.URL())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

// gauges flattens a gather into "name{label}" -> value.
func gauges(t *testing.T, registry *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	out := map[string]float64{}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			key := family.GetName()
			for _, label := range metric.GetLabel() {
				key += "{" + label.GetValue() + "}"
			}
			out[key] = metric.GetGauge().GetValue()
		}
	}
	return out
}

func TestSubmissionsZeroFillsStates(t *testing.T) {
	f := testsupport.NewFakeHosted(t)
	f.AddAsset(1, assets.FiletypeImage, map[string]any{"user": "github:a"})
	f.AddAsset(2, assets.FiletypeImage, map[string]any{"user": "github:b", "state": "confirmed"})
	f.AddAsset(3, assets.FiletypeImage, map[string]any{"user": "github:c", "state": "confirmed"})
	f.AddAsset(4, assets.FiletypeImage, nil)

	registry := prometheus.NewRegistry()
	registry.MustRegister(metrics.NewSubmissionsCollector(newClient(t, f), nil))
	got := gauges(t, registry)

	want := map[string]float64{
		"submissions{new}":       1,
		"submissions{review}":    0,
		"submissions{confirmed}": 2,
		"submissions{rejected}":  0,
		"submissions{deleted}":   0,
	}
	for key, value := range want {
		if got[key] != value {
			t.Fatalf("%s = %v, want %v (all: %v)", key, got[key], value, got)
		}
	}
	if _, ok := got["submissions{review}"]; !ok {
		t.Fatal("expected zero-valued states to be exported")
	}
}

func TestDeviceCollectorCountsAndMemoizes(t *testing.T) {
	f := testsupport.NewFakeHosted(t)
	f.AddDevice(1, true, "pi4")
	f.AddDevice(2, false, "pi4")
	f.AddDevice(3, true, "")

	now := time.Date(2026, 12, 27, 10, 0, 0, 0, time.UTC)
	collector := metrics.NewDeviceCollector(newClient(t, f), nil).WithClock(func() time.Time { return now })
	registry := prometheus.NewRegistry()
	registry.MustRegister(collector)

	got := gauges(t, registry)
	if got["devices"] != 3 || got["devices_online"] != 2 {
		t.Fatalf("unexpected device totals %v", got)
	}
	if got["device_model{pi4}"] != 2 || got["device_model{unknown}"] != 1 {
		t.Fatalf("unexpected model counts %v", got)
	}

	f.AddDevice(4, true, "pi5")
	now = now.Add(5 * time.Second)
	if gauges(t, registry)["devices"] != 3 {
		t.Fatal("expected memoized listing within memo period")
	}
	if f.Count(http.MethodGet, "device/list") != 1 {
		t.Fatal("expected a single upstream fetch within memo period")
	}

	now = now.Add(metrics.DeviceMemo)
	if gauges(t, registry)["devices"] != 4 {
		t.Fatal("expected refreshed listing after memo period")
	}
}

func TestDeviceCollectorReportsFailure(t *testing.T) {
	f := testsupport.NewFakeHosted(t)
	f.Fail(http.MethodGet, "device/list", http.StatusBadGateway)

	registry := prometheus.NewRegistry()
	registry.MustRegister(metrics.NewDeviceCollector(newClient(t, f), nil))
	if _, err := registry.Gather(); err == nil {
		t.Fatal("expected gather error when the device listing fails")
	}
}

func TestServerExposesRegistry(t *testing.T) {
	f := testsupport.NewFakeHosted(t)
	f.AddAsset(1, assets.FiletypeImage, map[string]any{"user": "github:a", "state": "review"})
	f.AddDevice(1, true, "pi4")

	registry, err := metrics.NewRegistry(newClient(t, f), nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	server := metrics.NewServer(registry, nil)
	if err := server.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx) }()

	resp, err := http.Get("http://" + server.Addr() + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	for _, want := range []string{`submissions{state="review"} 1`, `devices_online 1`, `device_model{model="pi4"} 1`} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("expected %q in exposition:\n%s", want, body)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
