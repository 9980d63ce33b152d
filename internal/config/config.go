package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Infobeamer contains configuration for the hosted info-beamer API.
type Infobeamer struct {
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	SetupIDs       []int64 `toml:"setup_ids"`
}

// Cache contains configuration for the read cache in front of the hosted API.
// An empty RedisAddr selects the in-process cache.
type Cache struct {
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	TTLSeconds    int    `toml:"ttl_seconds"`
}

// Slideshow contains the constants used when rendering live content into pages.
type Slideshow struct {
	Domain    string  `toml:"domain"`
	SlideTime float64 `toml:"slide_time"`
	FadeTime  float64 `toml:"fade_time"`
	// ExtraTiles are appended verbatim to every rendered page.
	ExtraTiles []map[string]any `toml:"extra_tiles"`
}

// Moderation contains user privileges and the upload eligibility window.
type Moderation struct {
	AdminUsers   []string `toml:"admin_users"`
	NoLimitUsers []string `toml:"no_limit_users"`
	MaxUploads   int      `toml:"max_uploads"`
	TimeMin      int64    `toml:"time_min"`
	TimeMax      int64    `toml:"time_max"`
}

// Sync contains configuration for the reconciliation run.
type Sync struct {
	// StateReportMinute is the minute of the hour during which a sync run also
	// broadcasts the count of assets waiting for moderation. Negative disables.
	StateReportMinute int `toml:"state_report_minute"`
}

// Notifications contains the sinks the notifier fans out to.
type Notifications struct {
	Ntfy           []string `toml:"ntfy"`
	GoogleChat     []string `toml:"gchat"`
	Mattermost     []string `toml:"mattermost"`
	IconURL        string   `toml:"icon_url"`
	MQTTHost       string   `toml:"mqtt_host"`
	MQTTPort       int      `toml:"mqtt_port"`
	MQTTUsername   string   `toml:"mqtt_username"`
	MQTTPassword   string   `toml:"mqtt_password"`
	MQTTTopic      string   `toml:"mqtt_topic"`
	RequestTimeout int      `toml:"request_timeout"`
}

// Metrics contains configuration for the Prometheus exporter.
type Metrics struct {
	Listen string `toml:"listen"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for infobeamer-cms.
//
// Configuration sections by subsystem:
//   - Paths: state (history database, lock file) and log directories
//   - Infobeamer: hosted API credentials and the setups to keep in sync
//   - Cache: Redis or in-process read cache for hosted API listings
//   - Slideshow: page timing, public domain and station-wide extra tiles
//   - Moderation: admin/no-limit users, upload limit and window
//   - Sync: reconciliation run options
//   - Notifications: ntfy, Google Chat, Mattermost and MQTT sinks
//   - Metrics: Prometheus exporter listen address
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Infobeamer    Infobeamer    `toml:"infobeamer"`
	Cache         Cache         `toml:"cache"`
	Slideshow     Slideshow     `toml:"slideshow"`
	Moderation    Moderation    `toml:"moderation"`
	Sync          Sync          `toml:"sync"`
	Notifications Notifications `toml:"notifications"`
	Metrics       Metrics       `toml:"metrics"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/infobeamer-cms/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	if err := loadDotEnv(); err != nil {
		return nil, "", false, err
	}

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadDotEnv imports a .env file from the working directory without
// overriding variables that are already set.
func loadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	if err := godotenv.Load(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = strings.TrimSpace(os.Getenv("SETTINGS"))
	}
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("infobeamer-cms.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryPath returns the location of the sync run history database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath returns the location of the lock file guarding sync runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "sync.lock")
}

// PublicURL returns the externally reachable base URL of the service.
func (c *Config) PublicURL() string {
	domain := strings.TrimRight(strings.TrimSpace(c.Slideshow.Domain), "/")
	if domain == "" {
		return ""
	}
	if strings.HasPrefix(domain, "http://") || strings.HasPrefix(domain, "https://") {
		return domain
	}
	return "https://" + domain
}

// IsAdmin reports whether the user identifier belongs to an administrator.
func (c *Config) IsAdmin(user string) bool {
	return containsFolded(c.Moderation.AdminUsers, user)
}

// HasNoLimit reports whether the user is exempt from the upload limit.
func (c *Config) HasNoLimit(user string) bool {
	return containsFolded(c.Moderation.NoLimitUsers, user)
}

func containsFolded(list []string, user string) bool {
	user = foldUser(user)
	if user == "" {
		return false
	}
	for _, candidate := range list {
		if candidate == user {
			return true
		}
	}
	return false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
