package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"infobeamer-cms/internal/cache"
	"infobeamer-cms/internal/config"
	"infobeamer-cms/internal/history"
	"infobeamer-cms/internal/logging"
	"infobeamer-cms/internal/moderation"
	"infobeamer-cms/internal/notifications"
	"infobeamer-cms/internal/services/infobeamer"
	"infobeamer-cms/internal/slideshow"
	"infobeamer-cms/internal/syncer"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger

	clientOnce sync.Once
	client     *infobeamer.Client
	cacheStore cache.Store
	clientErr  error

	closers []func() error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		logger, err := logging.NewFromConfig(c.config)
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

// ensureClient builds the hosted API client and its read cache.
func (c *commandContext) ensureClient(ctx context.Context) (*infobeamer.Client, error) {
	c.clientOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.clientErr = err
			return
		}
		logger := c.ensureLogger()
		store, err := cache.Open(ctx, cfg)
		if err != nil {
			c.clientErr = err
			return
		}
		c.cacheStore = store
		c.closers = append(c.closers, store.Close)
		ttl := time.Duration(cfg.Cache.TTLSeconds) * time.Second
		c.client, c.clientErr = infobeamer.NewFromConfig(cfg, infobeamer.NewCached(store, ttl, logger), logger)
	})
	return c.client, c.clientErr
}

func (c *commandContext) notifier() notifications.Service {
	return notifications.NewService(c.config, c.ensureLogger())
}

func (c *commandContext) openHistory() (*history.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := history.Open(cfg)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, store.Close)
	return store, nil
}

func (c *commandContext) moderationService(ctx context.Context) (*moderation.Service, error) {
	client, err := c.ensureClient(ctx)
	if err != nil {
		return nil, err
	}
	return moderation.NewService(client, c.notifier(), c.config, c.ensureLogger()), nil
}

// newRunner wires a full sync run. recorder may be nil.
func (c *commandContext) newRunner(ctx context.Context, recorder syncer.Recorder) (*syncer.Runner, error) {
	client, err := c.ensureClient(ctx)
	if err != nil {
		return nil, err
	}
	renderer, err := slideshow.NewRenderer(c.config)
	if err != nil {
		return nil, err
	}
	logger := c.ensureLogger()
	return syncer.NewRunner(
		client,
		syncer.NewReconciler(client, renderer, logger),
		syncer.NewReporter(c.notifier(), logger),
		recorder,
		c.config.Infobeamer.SetupIDs,
		logger,
	), nil
}

func (c *commandContext) close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		_ = c.closers[i]()
	}
	c.closers = nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
