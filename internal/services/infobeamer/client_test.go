package infobeamer_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"infobeamer-cms/internal/services"
	"infobeamer-cms/internal/services/infobeamer"
	"infobeamer-cms/internal/testsupport"
)

func newClient(t *testing.T, f *testsupport.FakeHosted, opts ...infobeamer.Option) *infobeamer.Client {
	t.Helper()
	client, err := infobeamer.New(f.APIKey, f.URL(), opts...)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := infobeamer.New(" ", "")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestListAssetsDecodesUserdata(t *testing.T) {
	f := testsupport.NewFakeHosted(t)
	f.AddAsset(1, "image", map[string]any{"user": "github:alice", "state": "confirmed", "starts": "100"})
	f.AddAsset(2, "video", nil)

	assets, err := newClient(t, f).ListAssets(context.Background(), false)
	if err != nil {
		t.Fatalf("ListAssets returned error: %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("expected 2 assets, got %d", len(assets))
	}
	if user, ok := assets[0].Userdata.String("user"); !ok || user != "github:alice" {
		t.Fatalf("unexpected user %q (ok=%v)", user, ok)
	}
	if string(assets[0].Userdata["starts"]) != `"100"` {
		t.Fatalf("expected raw starts to be preserved, got %s", assets[0].Userdata["starts"])
	}
	if assets[1].Userdata == nil || assets[1].Userdata.Has("user") {
		t.Fatalf("expected empty userdata for unmanaged asset, got %#v", assets[1].Userdata)
	}
}

func TestUserdataAcceptsEmptyList(t *testing.T) {
	var asset infobeamer.RawAsset
	if err := json.Unmarshal([]byte(`{"id":5,"filetype":"image","userdata":[]}`), &asset); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if asset.Userdata == nil || len(asset.Userdata) != 0 {
		t.Fatalf("expected empty userdata, got %#v", asset.Userdata)
	}
}

func TestGetAssetNotFound(t *testing.T) {
	f := testsupport.NewFakeHosted(t)
	_, err := newClient(t, f).GetAsset(context.Background(), 42)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	statusErr, ok := infobeamer.AsStatusError(err)
	if !ok || statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status error with 404, got %#v", statusErr)
	}
}

func TestWrongKeyIsConfigurationError(t *testing.T) {
	f := testsupport.NewFakeHosted(t)
	client, err := infobeamer.New("wrong", f.URL())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	_, err = client.ListAssets(context.Background(), false)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for 401, got %v", err)
	}
}

func TestServerErrorIsTransient(t *testing.T) {
	f := testsupport.NewFakeHosted(t)
	f.Fail(http.MethodGet, "asset/list", http.StatusBadGateway)
	_, err := newClient(t, f).ListAssets(context.Background(), false)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if f.Count(http.MethodGet, "asset/list") != 1 {
		t.Fatal("expected exactly one attempt without retries")
	}
}

func TestTimeoutIsClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(server.Close)

	client, err := infobeamer.New("key", server.URL, infobeamer.WithTimeout(20*time.Millisecond))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	_, err = client.ListAssets(context.Background(), false)
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestUpdateAssetUserdataMerges(t *testing.T) {
	f := testsupport.NewFakeHosted(t)
	f.AddAsset(7, "image", map[string]any{"user": "github:bob", "custom": "keep"})
	client := newClient(t, f)
	ctx := context.Background()

	asset, err := client.GetAsset(ctx, 7)
	if err != nil {
		t.Fatalf("GetAsset returned error: %v", err)
	}
	if err := client.UpdateAssetUserdata(ctx, asset, map[string]any{"state": "review", "ends": nil}); err != nil {
		t.Fatalf("UpdateAssetUserdata returned error: %v", err)
	}

	stored := f.Userdata(7)
	if stored["state"] != "review" || stored["custom"] != "keep" || stored["user"] != "github:bob" {
		t.Fatalf("unexpected merged userdata: %#v", stored)
	}
	if value, present := stored["ends"]; !present || value != nil {
		t.Fatalf("expected explicit null for ends, got %#v", stored)
	}
	if state, _ := asset.Userdata.String("state"); state != "review" {
		t.Fatalf("expected local copy to reflect update, got %q", state)
	}
}

func TestSetupRoundTrip(t *testing.T) {
	f := testsupport.NewFakeHosted(t)
	f.SetSetupConfig(10, testsupport.UserContentSchedule(1))
	client := newClient(t, f)
	ctx := context.Background()

	setup, err := client.GetSetup(ctx, 10)
	if err != nil {
		t.Fatalf("GetSetup returned error: %v", err)
	}
	cfg, ok := setup.DefaultConfig()
	if !ok {
		t.Fatal("expected default variant config")
	}
	if err := client.UpdateSetup(ctx, 10, cfg); err != nil {
		t.Fatalf("UpdateSetup returned error: %v", err)
	}

	requests := f.Requests()
	last := requests[len(requests)-1]
	if last.Method != http.MethodPost || last.Path != "setup/10" || last.Form["mode"] != "update" {
		t.Fatalf("unexpected update request: %#v", last)
	}
	if f.SetupConfig(10)["background"] != "black" {
		t.Fatalf("expected unknown config keys to survive, got %#v", f.SetupConfig(10))
	}
}

func TestUpdateSetupRejectsInvalidJSON(t *testing.T) {
	f := testsupport.NewFakeHosted(t)
	err := newClient(t, f).UpdateSetup(context.Background(), 10, json.RawMessage(`{`))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(f.Requests()) != 0 {
		t.Fatal("expected no request for invalid config")
	}
}

func TestListDevices(t *testing.T) {
	f := testsupport.NewFakeHosted(t)
	f.AddDevice(1, true, "pi4")
	f.AddDevice(2, false, "")

	devices, err := newClient(t, f).ListDevices(context.Background(), false)
	if err != nil {
		t.Fatalf("ListDevices returned error: %v", err)
	}
	if len(devices) != 2 || !devices[0].IsOnline || devices[0].Hardware == nil || devices[0].Hardware.Model != "pi4" {
		t.Fatalf("unexpected devices: %#v", devices)
	}
	if devices[1].Hardware != nil {
		t.Fatalf("expected missing hardware for second device, got %#v", devices[1].Hardware)
	}
}

func TestCreateScopedKey(t *testing.T) {
	f := testsupport.NewFakeHosted(t)
	key, err := newClient(t, f).CreateScopedKey(context.Background(), []infobeamer.PolicyStatement{{
		Action: "asset:upload",
		Effect: "allow",
	}}, 15*time.Minute, 1)
	if err != nil {
		t.Fatalf("CreateScopedKey returned error: %v", err)
	}
	if key != "adhoc-1-900" {
		t.Fatalf("unexpected key %q", key)
	}
	var policy map[string]any
	requests := f.Requests()
	if err := json.Unmarshal([]byte(requests[0].Form["policy"]), &policy); err != nil {
		t.Fatalf("decode policy: %v", err)
	}
	if policy["Version"] != float64(1) {
		t.Fatalf("unexpected policy: %#v", policy)
	}
}
