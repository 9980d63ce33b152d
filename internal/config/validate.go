package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateInfobeamer(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateSlideshow(); err != nil {
		return err
	}
	if err := c.validateModeration(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateInfobeamer() error {
	if c.Infobeamer.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/infobeamer-cms/config.toml"
		}
		return fmt.Errorf("infobeamer.api_key is required. Set INFOBEAMER_API_KEY env var or edit %s (create with 'infobeamer-cms config init')", defaultPath)
	}
	if _, err := url.ParseRequestURI(c.Infobeamer.BaseURL); err != nil {
		return fmt.Errorf("infobeamer.base_url is invalid: %w", err)
	}
	if c.Infobeamer.TimeoutSeconds <= 0 {
		return errors.New("infobeamer.timeout_seconds must be positive")
	}
	seen := make(map[int64]struct{}, len(c.Infobeamer.SetupIDs))
	for _, id := range c.Infobeamer.SetupIDs {
		if id <= 0 {
			return fmt.Errorf("infobeamer.setup_ids contains invalid id %d", id)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("infobeamer.setup_ids contains duplicate id %d", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.TTLSeconds <= 0 {
		return errors.New("cache.ttl_seconds must be positive")
	}
	if c.Cache.RedisDB < 0 {
		return errors.New("cache.redis_db must not be negative")
	}
	return nil
}

func (c *Config) validateSlideshow() error {
	if c.Slideshow.SlideTime <= 0 {
		return errors.New("slideshow.slide_time must be positive")
	}
	if c.Slideshow.FadeTime < 0 {
		return errors.New("slideshow.fade_time must not be negative")
	}
	if c.Slideshow.SlideTime-2*c.Slideshow.FadeTime <= 0 {
		return errors.New("slideshow.slide_time must be longer than twice slideshow.fade_time")
	}
	for i, tile := range c.Slideshow.ExtraTiles {
		kind, _ := tile["type"].(string)
		if strings.TrimSpace(kind) == "" {
			return fmt.Errorf("slideshow.extra_tiles[%d] must set type", i)
		}
	}
	return nil
}

func (c *Config) validateModeration() error {
	if c.Moderation.MaxUploads < 0 {
		return errors.New("moderation.max_uploads must not be negative")
	}
	if c.Moderation.TimeMin != 0 && c.Moderation.TimeMax != 0 && c.Moderation.TimeMax <= c.Moderation.TimeMin {
		return errors.New("moderation.time_max must be after moderation.time_min")
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.StateReportMinute > 59 {
		return errors.New("sync.state_report_minute must be between 0 and 59 (negative disables)")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	if c.Notifications.MQTTPort <= 0 || c.Notifications.MQTTPort > 65535 {
		return errors.New("notifications.mqtt_port must be a valid TCP port")
	}
	hasUser := strings.TrimSpace(c.Notifications.MQTTUsername) != ""
	hasPass := strings.TrimSpace(c.Notifications.MQTTPassword) != ""
	if hasUser != hasPass {
		return errors.New("notifications.mqtt_username and notifications.mqtt_password must be set together")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
