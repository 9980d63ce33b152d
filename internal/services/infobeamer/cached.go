package infobeamer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"infobeamer-cms/internal/cache"
	"infobeamer-cms/internal/logging"
)

// DefaultCacheTTL bounds how long a cached listing may be served.
const DefaultCacheTTL = 60 * time.Second

// Cached memoizes hosted API GET responses under "ibh:{endpoint}". Every fetch
// refreshes the stored copy; a cached copy is only served when the caller asks
// for it. Concurrent fetches of one endpoint share a single request.
type Cached struct {
	store  cache.Store
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// NewCached wraps store. A non-positive ttl selects DefaultCacheTTL.
func NewCached(store cache.Store, ttl time.Duration, logger *slog.Logger) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if store == nil {
		store = cache.NewMemory()
	}
	return &Cached{
		store:  store,
		ttl:    ttl,
		logger: logging.NewComponentLogger(logger, "infobeamer-cache"),
	}
}

// Key returns the cache key used for endpoint.
func Key(endpoint string) string {
	return "ibh:" + endpoint
}

// Get returns the response body for endpoint, consulting the store first when
// allowCached is set and otherwise calling fetch.
func (c *Cached) Get(ctx context.Context, endpoint string, allowCached bool, fetch func(context.Context) ([]byte, error)) ([]byte, error) {
	key := Key(endpoint)
	if allowCached {
		body, err := c.store.Get(ctx, key)
		switch {
		case err == nil:
			c.logger.Debug("cache hit", logging.String("endpoint", endpoint))
			return body, nil
		case !errors.Is(err, cache.ErrMiss):
			logging.WarnWithContext(c.logger, "cache read failed", "cache_read_failed",
				logging.String("endpoint", endpoint),
				logging.Error(err),
				logging.String(logging.FieldImpact, "request sent to hosted api"),
			)
		}
	}

	// The shared request outlives any single caller; each caller still stops
	// waiting when its own context ends.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		body, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		if setErr := c.store.Set(fetchCtx, key, body, c.ttl); setErr != nil {
			logging.WarnWithContext(c.logger, "cache write failed", "cache_write_failed",
				logging.String("endpoint", endpoint),
				logging.Error(setErr),
				logging.String(logging.FieldImpact, "next cached read will query the hosted api"),
			)
		}
		return body, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	if res.Shared {
		c.logger.Debug("shared in-flight request", logging.String("endpoint", endpoint))
	}
	return res.Val.([]byte), nil
}
