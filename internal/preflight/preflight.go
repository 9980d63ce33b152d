package preflight

import (
	"context"
	"time"

	"infobeamer-cms/internal/cache"
	"infobeamer-cms/internal/config"
	"infobeamer-cms/internal/services/infobeamer"
	"infobeamer-cms/internal/syncer"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// API is the hosted API surface the checks probe.
type API interface {
	ListDevices(ctx context.Context, allowCached bool) ([]infobeamer.Device, error)
	syncer.SetupStore
}

// RunAll executes every check for cfg. store may be nil when no cache was
// opened.
func RunAll(ctx context.Context, cfg *config.Config, api API, store cache.Store) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if store != nil {
		results = append(results, CheckCache(ctx, store))
	}
	hosted := CheckHostedAPI(ctx, api)
	results = append(results, hosted)
	if !hosted.Passed {
		return results
	}
	for _, id := range cfg.Infobeamer.SetupIDs {
		results = append(results, CheckSetup(ctx, api, id))
	}
	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return true
		}
	}
	return false
}

const checkTimeout = 10 * time.Second
