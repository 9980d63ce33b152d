package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type ntfySink struct {
	endpoint  string
	client    *http.Client
	publicURL string
}

func (s *ntfySink) name() string { return "ntfy " + s.endpoint }

func (s *ntfySink) send(ctx context.Context, msg Message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(msg.Text))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Title", msg.component())
	req.Header.Set("Tags", strings.Join([]string{baseComponent, strings.ToLower(string(msg.level()))}, ","))
	if msg.level() == LevelError {
		req.Header.Set("Priority", "high")
	}
	if msg.Asset != nil {
		if click := moderateURL(s.publicURL, msg.Asset); click != "" {
			req.Header.Set("Click", click)
		}
		if thumb := strings.TrimSpace(msg.Asset.Thumb); thumb != "" {
			req.Header.Set("Attach", thumb)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()
	return checkResponse("ntfy", resp)
}

func checkResponse(label string, resp *http.Response) error {
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%s returned %d: %s", label, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
