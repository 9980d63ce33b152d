package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"infobeamer-cms/internal/assets"
	"infobeamer-cms/internal/config"
	"infobeamer-cms/internal/logging"
)

const (
	userAgent     = "infobeamer-cms/1.0"
	baseComponent = "infobeamer-cms"
)

// Level is the severity attached to a message.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Message is one notification. Component is an optional suffix naming the
// originating part of the system. Asset, when set, lets sinks attach the
// thumbnail and a moderation link.
type Message struct {
	Text      string
	Level     Level
	Component string
	Asset     *assets.Asset
}

func (m Message) level() Level {
	if m.Level == "" {
		return LevelInfo
	}
	return m.Level
}

func (m Message) component() string {
	if suffix := strings.Trim(strings.TrimSpace(m.Component), "/"); suffix != "" {
		return baseComponent + "/" + suffix
	}
	return baseComponent
}

// Service defines the notification surface exposed to sync and moderation code.
type Service interface {
	// Message delivers msg to every configured sink. Sink failures are logged
	// and never returned.
	Message(ctx context.Context, msg Message)
	// Test delivers a test message and reports every sink failure.
	Test(ctx context.Context) error
}

type sink interface {
	name() string
	send(ctx context.Context, msg Message) error
}

// Option configures the notifier built by NewService.
type Option func(*options)

type options struct {
	httpClient *http.Client
	publisher  Publisher
}

// WithHTTPClient overrides the client used by webhook and ntfy sinks.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithPublisher overrides the MQTT publisher.
func WithPublisher(p Publisher) Option {
	return func(o *options) {
		if p != nil {
			o.publisher = p
		}
	}
}

// NewService builds a notifier fanning out to every configured sink. When no
// sink is configured a noop implementation is returned.
func NewService(cfg *config.Config, logger *slog.Logger, opts ...Option) Service {
	if cfg == nil {
		return noopService{}
	}
	n := cfg.Notifications
	timeout := time.Duration(n.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	o := options{httpClient: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		opt(&o)
	}

	publicURL := cfg.PublicURL()
	var sinks []sink
	if host := strings.TrimSpace(n.MQTTHost); host != "" {
		publisher := o.publisher
		if publisher == nil {
			publisher = newPahoPublisher(n, timeout)
		}
		sinks = append(sinks, &mqttSink{publisher: publisher, topic: n.MQTTTopic})
	}
	for _, endpoint := range n.Ntfy {
		sinks = append(sinks, &ntfySink{endpoint: endpoint, client: o.httpClient, publicURL: publicURL})
	}
	for _, endpoint := range n.GoogleChat {
		sinks = append(sinks, &googleChatSink{endpoint: endpoint, client: o.httpClient})
	}
	iconURL := strings.TrimSpace(n.IconURL)
	if iconURL == "" && publicURL != "" {
		iconURL = publicURL + "/static/event-logo.png"
	}
	for _, endpoint := range n.Mattermost {
		sinks = append(sinks, &mattermostSink{endpoint: endpoint, client: o.httpClient, iconURL: iconURL})
	}
	if len(sinks) == 0 {
		return noopService{}
	}
	return &notifier{sinks: sinks, logger: logging.NewComponentLogger(logger, "notifier")}
}

type notifier struct {
	sinks  []sink
	logger *slog.Logger
}

func (n *notifier) Message(ctx context.Context, msg Message) {
	n.logger.Debug("notification",
		logging.String("level", string(msg.level())),
		logging.String("notify_component", msg.component()),
		logging.String("text", msg.Text),
	)
	for _, s := range n.sinks {
		if err := s.send(ctx, msg); err != nil {
			logging.WarnWithContext(n.logger, "notification sink failed", "notify_sink_failed",
				logging.String("sink", s.name()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the sink endpoint and credentials"),
				logging.String(logging.FieldImpact, "message not delivered to this sink"),
			)
			continue
		}
		n.logger.Info("notification sent", logging.String("sink", s.name()))
	}
}

func (n *notifier) Test(ctx context.Context) error {
	msg := Message{Text: "Notification system test", Level: LevelInfo, Component: "test"}
	var errs []error
	for _, s := range n.sinks {
		if err := s.send(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name(), err))
		}
	}
	return errors.Join(errs...)
}

type noopService struct{}

func (noopService) Message(context.Context, Message) {}
func (noopService) Test(context.Context) error       { return nil }

func moderateURL(publicURL string, asset *assets.Asset) string {
	if publicURL == "" || asset == nil {
		return ""
	}
	return publicURL + "/content/moderate/" + strconv.FormatInt(asset.ID, 10)
}
