package testsupport

import (
	"path/filepath"
	"testing"

	"infobeamer-cms/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Infobeamer.APIKey = FakeAPIKey
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Slideshow.Domain = "cms.example.org"
	cfgVal.Metrics.Listen = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithHosted points the config at a fake hosted API.
func WithHosted(f *FakeHosted) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Infobeamer.BaseURL = f.URL()
		b.cfg.Infobeamer.APIKey = f.APIKey
	}
}

// WithSetupIDs sets the setups kept in sync.
func WithSetupIDs(ids ...int64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Infobeamer.SetupIDs = append([]int64(nil), ids...)
	}
}

// WithAdmins sets the administrator list. Entries are expected in folded form.
func WithAdmins(users ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Moderation.AdminUsers = append([]string(nil), users...)
	}
}

// WithUploadWindow sets the epoch bounds of the upload window.
func WithUploadWindow(minEpoch, maxEpoch int64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Moderation.TimeMin = minEpoch
		b.cfg.Moderation.TimeMax = maxEpoch
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
