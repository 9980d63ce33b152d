package config

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeInfobeamer()
	c.normalizeCache()
	c.normalizeSlideshow()
	c.normalizeModeration()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeInfobeamer() {
	c.Infobeamer.APIKey = strings.TrimSpace(c.Infobeamer.APIKey)
	if c.Infobeamer.APIKey == "" {
		if value, ok := os.LookupEnv("INFOBEAMER_API_KEY"); ok {
			c.Infobeamer.APIKey = strings.TrimSpace(value)
		}
	}
	c.Infobeamer.BaseURL = strings.TrimRight(strings.TrimSpace(c.Infobeamer.BaseURL), "/")
	if c.Infobeamer.BaseURL == "" {
		c.Infobeamer.BaseURL = defaultInfobeamerBaseURL
	}
	if c.Infobeamer.TimeoutSeconds == 0 {
		c.Infobeamer.TimeoutSeconds = defaultInfobeamerTimeout
	}
}

func (c *Config) normalizeCache() {
	c.Cache.RedisAddr = strings.TrimSpace(c.Cache.RedisAddr)
	if c.Cache.RedisAddr == "" {
		if value, ok := os.LookupEnv("REDIS_ADDR"); ok {
			c.Cache.RedisAddr = strings.TrimSpace(value)
		}
	}
	if c.Cache.TTLSeconds == 0 {
		c.Cache.TTLSeconds = defaultCacheTTLSeconds
	}
}

func (c *Config) normalizeSlideshow() {
	c.Slideshow.Domain = strings.TrimSpace(c.Slideshow.Domain)
	if c.Slideshow.SlideTime == 0 {
		c.Slideshow.SlideTime = defaultSlideTime
	}
}

func (c *Config) normalizeModeration() {
	c.Moderation.AdminUsers = foldUsers(c.Moderation.AdminUsers)
	c.Moderation.NoLimitUsers = foldUsers(c.Moderation.NoLimitUsers)
}

func (c *Config) normalizeNotifications() {
	c.Notifications.Ntfy = trimList(c.Notifications.Ntfy)
	c.Notifications.GoogleChat = trimList(c.Notifications.GoogleChat)
	c.Notifications.Mattermost = trimList(c.Notifications.Mattermost)
	c.Notifications.MQTTHost = strings.TrimSpace(c.Notifications.MQTTHost)
	c.Notifications.MQTTTopic = strings.TrimSpace(c.Notifications.MQTTTopic)
	if c.Notifications.MQTTTopic == "" {
		c.Notifications.MQTTTopic = defaultMQTTTopic
	}
	if c.Notifications.MQTTPort == 0 {
		c.Notifications.MQTTPort = defaultMQTTPort
	}
	if c.Notifications.RequestTimeout == 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format

	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}

// foldUser case folds a user identifier such as "github:Alice" so list
// membership checks ignore case.
func foldUser(user string) string {
	return cases.Fold().String(strings.TrimSpace(user))
}

func foldUsers(users []string) []string {
	out := make([]string, 0, len(users))
	seen := make(map[string]struct{}, len(users))
	for _, user := range users {
		folded := foldUser(user)
		if folded == "" {
			continue
		}
		if _, ok := seen[folded]; ok {
			continue
		}
		seen[folded] = struct{}{}
		out = append(out, folded)
	}
	return out
}

func trimList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, value)
		}
	}
	return out
}
