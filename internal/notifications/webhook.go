package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

type googleChatSink struct {
	endpoint string
	client   *http.Client
}

func (s *googleChatSink) name() string { return "gchat " + s.endpoint }

func (s *googleChatSink) send(ctx context.Context, msg Message) error {
	return postJSON(ctx, s.client, "google chat", s.endpoint, map[string]any{"text": msg.Text})
}

type mattermostSink struct {
	endpoint string
	client   *http.Client
	iconURL  string
}

type mattermostAttachment struct {
	ImageURL string `json:"image_url"`
	Text     string `json:"text"`
	Fallback string `json:"fallback"`
}

func (s *mattermostSink) name() string { return "mattermost " + s.endpoint }

func (s *mattermostSink) send(ctx context.Context, msg Message) error {
	body := map[string]any{}
	if s.iconURL != "" {
		body["icon_url"] = s.iconURL
	}
	if msg.Asset != nil {
		body["attachments"] = []mattermostAttachment{{
			ImageURL: msg.Asset.Thumb,
			Text:     msg.Text,
			Fallback: msg.Text,
		}}
	} else {
		body["text"] = msg.Text
	}
	return postJSON(ctx, s.client, "mattermost", s.endpoint, body)
}

func postJSON(ctx context.Context, client *http.Client, label, endpoint string, payload any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", label, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build %s request: %w", label, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send %s message: %w", label, err)
	}
	defer resp.Body.Close()
	return checkResponse(label, resp)
}
