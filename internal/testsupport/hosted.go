package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// FakeAPIKey is the credential accepted by FakeHosted unless overridden.
const FakeAPIKey = "test-api-key"

// Request records one call received by FakeHosted.
type Request struct {
	Method string
	Path   string
	Form   map[string]string
}

// FakeHosted is an in-memory stand-in for the hosted info-beamer API. It
// understands the asset, setup, device and adhoc endpoints used by this module.
type FakeHosted struct {
	APIKey string

	t        testing.TB
	server   *httptest.Server
	mu       sync.Mutex
	assets   map[int64]map[string]any
	setups   map[int64]json.RawMessage
	devices  []map[string]any
	failures map[string]int
	requests []Request
}

// NewFakeHosted starts a fake hosted API and registers cleanup.
func NewFakeHosted(t testing.TB) *FakeHosted {
	t.Helper()
	f := &FakeHosted{
		APIKey:   FakeAPIKey,
		t:        t,
		assets:   make(map[int64]map[string]any),
		setups:   make(map[int64]json.RawMessage),
		failures: make(map[string]int),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the API base URL.
func (f *FakeHosted) URL() string {
	return f.server.URL
}

// AddAsset stores an asset record. A nil userdata stores an empty object.
func (f *FakeHosted) AddAsset(id int64, filetype string, userdata map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if userdata == nil {
		userdata = map[string]any{}
	}
	f.assets[id] = map[string]any{
		"id":       id,
		"filename": "user/asset-" + strconv.FormatInt(id, 10),
		"filetype": filetype,
		"thumb":    "https://cdn.example.org/thumb/" + strconv.FormatInt(id, 10) + ".jpg",
		"userdata": roundTrip(f.t, userdata),
	}
}

// SetUserdataKey overwrites one key of an asset's metadata.
func (f *FakeHosted) SetUserdataKey(id int64, key string, value any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	asset, ok := f.assets[id]
	if !ok {
		f.t.Fatalf("fake hosted: unknown asset %d", id)
	}
	userdata := asset["userdata"].(map[string]any)
	userdata[key] = roundTrip(f.t, value)
}

// Userdata returns a copy of an asset's metadata.
func (f *FakeHosted) Userdata(id int64) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	asset, ok := f.assets[id]
	if !ok {
		return nil
	}
	return roundTrip(f.t, asset["userdata"]).(map[string]any)
}

// SetSetupConfig stores the default variant configuration of a setup.
func (f *FakeHosted) SetSetupConfig(id int64, cfg any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, err := json.Marshal(cfg)
	if err != nil {
		f.t.Fatalf("fake hosted: encode setup config: %v", err)
	}
	f.setups[id] = raw
}

// SetupConfig returns the decoded default variant configuration of a setup.
func (f *FakeHosted) SetupConfig(id int64) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.setups[id]
	if !ok {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		f.t.Fatalf("fake hosted: decode setup config: %v", err)
	}
	return out
}

// AddDevice registers a device for device/list.
func (f *FakeHosted) AddDevice(id int64, online bool, model string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	device := map[string]any{"id": id, "description": "device " + strconv.FormatInt(id, 10), "is_online": online}
	if model != "" {
		device["hw"] = map[string]any{"model": model}
	}
	f.devices = append(f.devices, device)
}

// Fail makes every request for method and path answer with status.
func (f *FakeHosted) Fail(method, path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method+" "+path] = status
}

// Requests returns a copy of the received requests in order.
func (f *FakeHosted) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.requests...)
}

// Count returns how many requests matched method and path prefix.
func (f *FakeHosted) Count(method, pathPrefix string) int {
	count := 0
	for _, req := range f.Requests() {
		if req.Method == method && strings.HasPrefix(req.Path, pathPrefix) {
			count++
		}
	}
	return count
}

// Reset clears the request log.
func (f *FakeHosted) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = nil
}

func (f *FakeHosted) serve(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(r.URL.Path, "/")
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	form := make(map[string]string, len(r.PostForm))
	for key := range r.PostForm {
		form[key] = r.PostForm.Get(key)
	}

	f.mu.Lock()
	f.requests = append(f.requests, Request{Method: r.Method, Path: path, Form: form})
	status, failing := f.failures[r.Method+" "+path]
	f.mu.Unlock()

	if user, pass, ok := r.BasicAuth(); !ok || user != "" || pass != f.APIKey {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
		return
	}
	if failing {
		writeJSON(w, status, map[string]any{"error": "injected failure"})
		return
	}

	parts := strings.Split(path, "/")
	switch {
	case r.Method == http.MethodGet && path == "asset/list":
		f.listAssets(w)
	case r.Method == http.MethodGet && path == "device/list":
		f.mu.Lock()
		devices := append([]map[string]any{}, f.devices...)
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"devices": devices})
	case r.Method == http.MethodPost && path == "adhoc/create":
		if form["policy"] == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "policy required"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"api_key": "adhoc-" + form["uses"] + "-" + form["expire"]})
	case len(parts) == 2 && parts[0] == "asset":
		f.handleAsset(w, r.Method, parts[1], form)
	case len(parts) == 2 && parts[0] == "setup":
		f.handleSetup(w, r.Method, parts[1], form)
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
	}
}

func (f *FakeHosted) listAssets(w http.ResponseWriter) {
	f.mu.Lock()
	ids := make([]int64, 0, len(f.assets))
	for id := range f.assets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	assets := make([]any, 0, len(ids))
	for _, id := range ids {
		assets = append(assets, roundTrip(f.t, f.assets[id]))
	}
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"assets": assets})
}

func (f *FakeHosted) handleAsset(w http.ResponseWriter, method, rawID string, form map[string]string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	asset, ok := f.assets[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "no such asset"})
		return
	}
	switch method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, roundTrip(f.t, asset))
	case http.MethodPost:
		var userdata map[string]any
		if err := json.Unmarshal([]byte(form["userdata"]), &userdata); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid userdata"})
			return
		}
		asset["userdata"] = userdata
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
	}
}

func (f *FakeHosted) handleSetup(w http.ResponseWriter, method, rawID string, form map[string]string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg, ok := f.setups[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "no such setup"})
		return
	}
	switch method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{
			"id":     id,
			"name":   "setup " + rawID,
			"config": map[string]json.RawMessage{"": cfg},
		})
	case http.MethodPost:
		if form["mode"] != "update" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "unsupported mode"})
			return
		}
		var variants map[string]json.RawMessage
		if err := json.Unmarshal([]byte(form["config"]), &variants); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid config"})
			return
		}
		next, ok := variants[""]
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "missing default variant"})
			return
		}
		f.setups[id] = next
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// roundTrip normalizes value through JSON so stored data matches what the
// real API would return (numbers as float64, objects as maps).
func roundTrip(t testing.TB, value any) any {
	raw, err := json.Marshal(value)
	if err != nil {
		t.Fatalf("fake hosted: encode: %v", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("fake hosted: decode: %v", err)
	}
	return out
}

// UserContentSchedule builds a setup configuration holding one "User Content"
// schedule whose pages show the given asset ids, plus an unrelated schedule.
func UserContentSchedule(assetIDs ...int64) map[string]any {
	pages := make([]any, 0, len(assetIDs))
	for _, id := range assetIDs {
		pages = append(pages, map[string]any{
			"auto_duration": 10,
			"duration":      9,
			"interaction":   map[string]any{"key": ""},
			"layout_id":     -1,
			"overlap":       0,
			"tiles": []any{map[string]any{
				"type": "image", "asset": id,
				"x1": 0, "y1": 0, "x2": 1920, "y2": 1080,
				"config": map[string]any{"fade_time": 0.5},
			}},
		})
	}
	return map[string]any{
		"schedules": []any{
			map[string]any{"name": "Talks", "pages": []any{}},
			map[string]any{"name": "User Content", "pages": pages},
		},
		"background": "black",
	}
}
