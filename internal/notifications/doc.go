// Package notifications fans moderation and alerting messages out to the
// configured sinks: MQTT, ntfy, Google Chat and Mattermost webhooks.
//
// Delivery is best effort. A failing sink is logged and skipped so the caller
// never has to handle notification errors; only the Test method used by the
// test-notify command reports them. When nothing is configured a no-op
// implementation is returned.
package notifications
