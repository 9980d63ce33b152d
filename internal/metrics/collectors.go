package metrics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"infobeamer-cms/internal/assets"
	"infobeamer-cms/internal/logging"
	"infobeamer-cms/internal/services/infobeamer"
)

const (
	// DeviceMemo is how long a device listing is reused between scrapes.
	DeviceMemo     = 10 * time.Second
	collectTimeout = 10 * time.Second
	unknownModel   = "unknown"
)

// AssetLister lists hosted assets.
type AssetLister interface {
	ListAssets(ctx context.Context, allowCached bool) ([]infobeamer.RawAsset, error)
}

// DeviceLister lists hosted devices.
type DeviceLister interface {
	ListDevices(ctx context.Context, allowCached bool) ([]infobeamer.Device, error)
}

// SubmissionsCollector reports the number of managed assets per state.
// Every known state is exported, including those with no assets.
type SubmissionsCollector struct {
	lister AssetLister
	logger *slog.Logger
	desc   *prometheus.Desc
}

// NewSubmissionsCollector builds the submissions gauge.
func NewSubmissionsCollector(lister AssetLister, logger *slog.Logger) *SubmissionsCollector {
	return &SubmissionsCollector{
		lister: lister,
		logger: logging.NewComponentLogger(logger, "metrics"),
		desc:   prometheus.NewDesc("submissions", "Counts of content submissions", []string{"state"}, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *SubmissionsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

// Collect implements prometheus.Collector.
func (c *SubmissionsCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()

	raws, err := c.lister.ListAssets(ctx, true)
	var all []assets.Asset
	if err == nil {
		all, err = assets.ParseAll(raws)
	}
	if err != nil {
		logging.WarnWithContext(c.logger, "collecting submissions failed", "metrics_collect_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "submissions gauge missing from this scrape"),
		)
		ch <- prometheus.NewInvalidMetric(c.desc, err)
		return
	}
	for state, count := range assets.CountByState(all) {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(count), state.String())
	}
}

// DeviceCollector reports device totals, online devices and hardware models.
// The device list is fetched at most once per memo period.
type DeviceCollector struct {
	lister DeviceLister
	logger *slog.Logger
	memo   time.Duration
	now    func() time.Time

	devices *prometheus.Desc
	online  *prometheus.Desc
	models  *prometheus.Desc

	mu       sync.Mutex
	lastGot  time.Time
	snapshot []infobeamer.Device
}

// NewDeviceCollector builds the device gauges.
func NewDeviceCollector(lister DeviceLister, logger *slog.Logger) *DeviceCollector {
	return &DeviceCollector{
		lister:  lister,
		logger:  logging.NewComponentLogger(logger, "metrics"),
		memo:    DeviceMemo,
		now:     time.Now,
		devices: prometheus.NewDesc("devices", "Infobeamer devices", nil, nil),
		online:  prometheus.NewDesc("devices_online", "Infobeamer devices online", nil, nil),
		models:  prometheus.NewDesc("device_model", "Infobeamer device models", []string{"model"}, nil),
	}
}

// WithClock overrides the time source, primarily for tests.
func (c *DeviceCollector) WithClock(now func() time.Time) *DeviceCollector {
	if now != nil {
		c.now = now
	}
	return c
}

// Describe implements prometheus.Collector.
func (c *DeviceCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.devices
	ch <- c.online
	ch <- c.models
}

// Collect implements prometheus.Collector.
func (c *DeviceCollector) Collect(ch chan<- prometheus.Metric) {
	devices, err := c.current()
	if err != nil {
		logging.WarnWithContext(c.logger, "collecting devices failed", "metrics_collect_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "device gauges missing from this scrape"),
		)
		ch <- prometheus.NewInvalidMetric(c.devices, err)
		return
	}

	online := 0
	models := map[string]int{}
	for _, device := range devices {
		if device.IsOnline {
			online++
		}
		model := unknownModel
		if device.Hardware != nil && device.Hardware.Model != "" {
			model = device.Hardware.Model
		}
		models[model]++
	}

	ch <- prometheus.MustNewConstMetric(c.devices, prometheus.GaugeValue, float64(len(devices)))
	ch <- prometheus.MustNewConstMetric(c.online, prometheus.GaugeValue, float64(online))
	names := make([]string, 0, len(models))
	for model := range models {
		names = append(names, model)
	}
	sort.Strings(names)
	for _, model := range names {
		ch <- prometheus.MustNewConstMetric(c.models, prometheus.GaugeValue, float64(models[model]), model)
	}
}

func (c *DeviceCollector) current() ([]infobeamer.Device, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if !c.lastGot.IsZero() && now.Sub(c.lastGot) < c.memo {
		return c.snapshot, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()
	devices, err := c.lister.ListDevices(ctx, false)
	if err != nil {
		return nil, err
	}
	c.snapshot = devices
	c.lastGot = now
	return devices, nil
}

// NewRegistry registers both collectors on a fresh registry.
func NewRegistry(api interface {
	AssetLister
	DeviceLister
}, logger *slog.Logger) (*prometheus.Registry, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(NewSubmissionsCollector(api, logger)); err != nil {
		return nil, err
	}
	if err := registry.Register(NewDeviceCollector(api, logger)); err != nil {
		return nil, err
	}
	return registry, nil
}
