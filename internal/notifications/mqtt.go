package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"infobeamer-cms/internal/config"
)

// Publisher delivers a payload to an MQTT topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

type mqttPayload struct {
	Level     string `json:"level"`
	Component string `json:"component"`
	Msg       string `json:"msg"`
}

type mqttSink struct {
	publisher Publisher
	topic     string
}

func (s *mqttSink) name() string { return "mqtt " + s.topic }

func (s *mqttSink) send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(mqttPayload{
		Level:     string(msg.level()),
		Component: msg.component(),
		Msg:       msg.Text,
	})
	if err != nil {
		return fmt.Errorf("encode mqtt payload: %w", err)
	}
	return s.publisher.Publish(ctx, s.topic, payload)
}

// pahoPublisher opens a fresh connection for every message.
type pahoPublisher struct {
	opts    *mqtt.ClientOptions
	timeout time.Duration
}

func newPahoPublisher(n config.Notifications, timeout time.Duration) *pahoPublisher {
	broker := "tcp://" + net.JoinHostPort(strings.TrimSpace(n.MQTTHost), strconv.Itoa(n.MQTTPort))
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("infobeamer-cms-" + uuid.NewString()[:8]).
		SetConnectTimeout(timeout).
		SetAutoReconnect(false)
	if n.MQTTUsername != "" {
		opts.SetUsername(n.MQTTUsername)
		opts.SetPassword(n.MQTTPassword)
	}
	return &pahoPublisher{opts: opts, timeout: timeout}
}

func (p *pahoPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	client := mqtt.NewClient(p.opts)
	if err := wait(ctx, client.Connect(), p.timeout); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	defer client.Disconnect(250)

	if err := wait(ctx, client.Publish(topic, 0, false, payload), p.timeout); err != nil {
		return fmt.Errorf("mqtt publish: %w", err)
	}
	return nil
}

func wait(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(timeout):
		return errors.New("timed out")
	}
}
