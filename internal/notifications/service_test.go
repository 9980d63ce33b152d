package notifications_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"infobeamer-cms/internal/assets"
	"infobeamer-cms/internal/notifications"
	"infobeamer-cms/internal/testsupport"
)

type captured struct {
	mu       sync.Mutex
	requests []capturedRequest
}

type capturedRequest struct {
	path    string
	headers http.Header
	body    string
}

func (c *captured) handler(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.requests = append(c.requests, capturedRequest{path: r.URL.Path, headers: r.Header.Clone(), body: string(body)})
		c.mu.Unlock()
		w.WriteHeader(status)
	}
}

func (c *captured) all() []capturedRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]capturedRequest(nil), c.requests...)
}

type fakePublisher struct {
	topic   string
	payload []byte
	err     error
}

func (p *fakePublisher) Publish(_ context.Context, topic string, payload []byte) error {
	p.topic = topic
	p.payload = payload
	return p.err
}

func TestNewServiceReturnsNoopWithoutSinks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc := notifications.NewService(cfg, nil)
	svc.Message(context.Background(), notifications.Message{Text: "ignored"})
	if err := svc.Test(context.Background()); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyIncludesAssetLinks(t *testing.T) {
	var rec captured
	server := httptest.NewServer(rec.handler(http.StatusOK))
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t)
	cfg.Notifications.Ntfy = []string{server.URL + "/cms"}
	svc := notifications.NewService(cfg, nil)

	asset := &assets.Asset{ID: 42, Thumb: "https://cdn.example.org/42.jpg"}
	svc.Message(context.Background(), notifications.Message{Text: "Asset 42 needs review", Level: notifications.LevelWarn, Component: "moderation", Asset: asset})

	reqs := rec.all()
	if len(reqs) != 1 {
		t.Fatalf("expected one ntfy request, got %d", len(reqs))
	}
	got := reqs[0]
	if got.body != "Asset 42 needs review" {
		t.Fatalf("unexpected body %q", got.body)
	}
	if got.headers.Get("Click") != "https://cms.example.org/content/moderate/42" {
		t.Fatalf("unexpected Click header %q", got.headers.Get("Click"))
	}
	if got.headers.Get("Attach") != asset.Thumb {
		t.Fatalf("unexpected Attach header %q", got.headers.Get("Attach"))
	}
	if got.headers.Get("Title") != "infobeamer-cms/moderation" {
		t.Fatalf("unexpected Title header %q", got.headers.Get("Title"))
	}
	if got.headers.Get("Tags") != "infobeamer-cms,warn" {
		t.Fatalf("unexpected Tags header %q", got.headers.Get("Tags"))
	}
}

func TestWebhookPayloads(t *testing.T) {
	var rec captured
	server := httptest.NewServer(rec.handler(http.StatusOK))
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t)
	cfg.Notifications.GoogleChat = []string{server.URL + "/gchat"}
	cfg.Notifications.Mattermost = []string{server.URL + "/mm"}
	svc := notifications.NewService(cfg, nil)

	svc.Message(context.Background(), notifications.Message{Text: "plain"})
	svc.Message(context.Background(), notifications.Message{Text: "with asset", Asset: &assets.Asset{ID: 1, Thumb: "thumb.jpg"}})

	bodies := map[string][]map[string]any{}
	for _, req := range rec.all() {
		var decoded map[string]any
		if err := json.Unmarshal([]byte(req.body), &decoded); err != nil {
			t.Fatalf("decode %s body: %v", req.path, err)
		}
		bodies[req.path] = append(bodies[req.path], decoded)
	}

	if len(bodies["/gchat"]) != 2 || bodies["/gchat"][0]["text"] != "plain" {
		t.Fatalf("unexpected google chat payloads %#v", bodies["/gchat"])
	}
	mm := bodies["/mm"]
	if len(mm) != 2 {
		t.Fatalf("expected two mattermost payloads, got %#v", mm)
	}
	if mm[0]["text"] != "plain" || mm[0]["icon_url"] != "https://cms.example.org/static/event-logo.png" {
		t.Fatalf("unexpected plain mattermost payload %#v", mm[0])
	}
	attachments, ok := mm[1]["attachments"].([]any)
	if !ok || len(attachments) != 1 {
		t.Fatalf("expected attachment payload, got %#v", mm[1])
	}
	attachment := attachments[0].(map[string]any)
	if attachment["image_url"] != "thumb.jpg" || attachment["fallback"] != "with asset" {
		t.Fatalf("unexpected attachment %#v", attachment)
	}
	if _, hasText := mm[1]["text"]; hasText {
		t.Fatalf("attachment payload must not carry top-level text: %#v", mm[1])
	}
}

func TestMQTTPayload(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Notifications.MQTTHost = "mqtt.example.org"
	publisher := &fakePublisher{}
	svc := notifications.NewService(cfg, nil, notifications.WithPublisher(publisher))

	svc.Message(context.Background(), notifications.Message{Text: "2 assets in state review.", Level: notifications.LevelWarn})

	if publisher.topic != "/voc/alert" {
		t.Fatalf("unexpected topic %q", publisher.topic)
	}
	var payload map[string]string
	if err := json.Unmarshal(publisher.payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["level"] != "WARN" || payload["component"] != "infobeamer-cms" || payload["msg"] != "2 assets in state review." {
		t.Fatalf("unexpected payload %#v", payload)
	}
}

func TestSinkFailuresAreIsolated(t *testing.T) {
	var failing, healthy captured
	bad := httptest.NewServer(failing.handler(http.StatusInternalServerError))
	t.Cleanup(bad.Close)
	good := httptest.NewServer(healthy.handler(http.StatusOK))
	t.Cleanup(good.Close)

	cfg := testsupport.NewConfig(t)
	cfg.Notifications.MQTTHost = "mqtt.example.org"
	cfg.Notifications.Ntfy = []string{bad.URL}
	cfg.Notifications.GoogleChat = []string{good.URL}
	publisher := &fakePublisher{err: errors.New("broker down")}
	svc := notifications.NewService(cfg, nil, notifications.WithPublisher(publisher))

	svc.Message(context.Background(), notifications.Message{Text: "still delivered"})

	if len(healthy.all()) != 1 {
		t.Fatal("expected healthy sink to receive the message despite earlier failures")
	}

	err := svc.Test(context.Background())
	if err == nil {
		t.Fatal("expected Test to report sink failures")
	}
	if !strings.Contains(err.Error(), "broker down") || !strings.Contains(err.Error(), "returned 500") {
		t.Fatalf("expected both failures reported, got %v", err)
	}
}
