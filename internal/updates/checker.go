package updates

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/MrSnakeDoc/updater/internal/cache"
	"github.com/MrSnakeDoc/updater/internal/domain"
	"github.com/MrSnakeDoc/updater/internal/logger"
	"github.com/MrSnakeDoc/updater/internal/metrics"
)

// ChangelogUnavailable is returned by Changelog when the server has none.
const ChangelogUnavailable = "Could not fetch the changelog."

var (
	// ErrUnknownSlug is returned for plugin information about another product.
	ErrUnknownSlug = errors.New("unknown plugin slug")
	// ErrNoVersionInfo is returned when the server gave no usable version data.
	ErrNoVersionInfo = errors.New("no version information available")
)

// API is the part of the update server client the checker needs.
type API interface {
	Product() domain.Product
	GetLatestVersion(ctx context.Context, beta bool) (*domain.Response, error)
	GetPluginInfo(ctx context.Context) (*domain.Response, error)
}

// Cache is the version cache.
type Cache interface {
	Get(ctx context.Context, key string) (*domain.Response, bool)
	Put(ctx context.Context, key string, resp *domain.Response, ttl time.Duration)
	Purge(ctx context.Context, key string) error
}

// Config tunes a Checker. Zero values are valid.
type Config struct {
	CacheTTL time.Duration
	Beta     bool
	Notifier Notifier
	Logger   logger.Logger
	Metrics  *metrics.Registry
}

// Result is the outcome of one Check.
type Result struct {
	UpdateAvailable bool                `json:"update_available"`
	Version         *domain.VersionInfo `json:"version,omitempty"`
	FromCache       bool                `json:"from_cache"`
	Skipped         bool                `json:"skipped"`
	Error           string              `json:"error,omitempty"`
}

// Checker decides whether an update is available for the client's product.
type Checker struct {
	api      API
	cache    Cache
	notifier Notifier
	log      logger.Logger
	metrics  *metrics.Registry
	ttl      time.Duration
	beta     atomic.Bool

	// Now is the clock stamped into LastChecked.
	Now func() time.Time
}

// NewChecker creates a checker.
func NewChecker(api API, c Cache, cfg Config) *Checker {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = cache.DefaultTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	ch := &Checker{
		api:      api,
		cache:    c,
		notifier: cfg.Notifier,
		log:      cfg.Logger,
		metrics:  cfg.Metrics,
		ttl:      cfg.CacheTTL,
		Now:      time.Now,
	}
	ch.beta.Store(cfg.Beta)
	return ch
}

// SetBeta switches the channel. The channel is part of the cache key.
func (c *Checker) SetBeta(beta bool) { c.beta.Store(beta) }

// Beta reports the current channel.
func (c *Checker) Beta() bool { return c.beta.Load() }

// Product returns the product being checked.
func (c *Checker) Product() domain.Product { return c.api.Product() }

// CacheKey returns the version cache key for the current product and channel.
func (c *Checker) CacheKey() string {
	p := c.api.Product()
	return cache.Key(p.Slug, p.LicenseKey, c.Beta())
}

// infoKey keeps plugin information apart from get_version answers.
func (c *Checker) infoKey() string {
	return c.CacheKey() + "_info"
}

// Check runs one update check against state and returns the new state.
// The input state is never modified.
//
// A product already checked with an update recorded under the current
// cache key is left as is. Otherwise the answer comes from the cache or from the server (and is
// cached, errors included). The only error is a configuration error from
// the client.
func (c *Checker) Check(ctx context.Context, state *CycleState) (*CycleState, Result, error) {
	p := c.api.Product()
	basename := p.UniqueBasename()
	key := c.CacheKey()

	if state != nil && state.CacheKeys[basename] == key {
		if _, checked := state.Checked[basename]; checked && state.Response[basename] != nil {
			v := state.Response[basename]
			res := Result{
				UpdateAvailable: domain.UpdateAvailable(p.Version, v.NewVersion),
				Version:         v,
				Skipped:         true,
			}
			c.metrics.RecordCheck("skipped", res.UpdateAvailable, c.Now())
			return state, res, nil
		}
	}

	resp, fromCache := c.cache.Get(ctx, key)
	if !fromCache {
		var err error
		resp, err = c.api.GetLatestVersion(ctx, c.Beta())
		if err != nil {
			return state, Result{}, fmt.Errorf("get latest version: %w", err)
		}
		c.cache.Put(ctx, key, resp, c.ttl)
	}

	res := Result{FromCache: fromCache}
	if resp.IsError() {
		res.Error = resp.Message
		c.log.Warn("update check failed",
			logger.String("slug", p.Slug),
			logger.Int("status", resp.StatusCode),
			logger.String("message", resp.Message),
			logger.Bool("from_cache", fromCache),
		)
	} else {
		res.Version = resp.Version
	}

	if res.Version != nil && res.Version.Message != "" && c.notifier != nil {
		c.notifier.Notice(ctx, p, res.Version.Message)
	}

	if res.Version != nil {
		res.UpdateAvailable = domain.UpdateAvailable(p.Version, res.Version.NewVersion)
	}

	next := state.Clone()
	if res.UpdateAvailable {
		next.Response[basename] = res.Version
	} else {
		delete(next.Response, basename)
	}
	next.Checked[basename] = p.Version
	next.CacheKeys[basename] = key
	next.LastChecked = c.Now()

	source := "remote"
	if fromCache {
		source = "cache"
	}
	c.metrics.RecordCheck(source, res.UpdateAvailable, next.LastChecked)

	c.log.Debug("update check",
		logger.String("slug", p.Slug),
		logger.String("source", source),
		logger.Bool("update_available", res.UpdateAvailable),
	)

	return next, res, nil
}

// PluginInfo returns the extended metadata for slug, through the cache.
func (c *Checker) PluginInfo(ctx context.Context, slug string) (*domain.VersionInfo, error) {
	p := c.api.Product()
	if slug != p.Slug {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSlug, slug)
	}

	key := c.infoKey()
	resp, ok := c.cache.Get(ctx, key)
	if !ok {
		var err error
		resp, err = c.api.GetPluginInfo(ctx)
		if err != nil {
			return nil, fmt.Errorf("get plugin info: %w", err)
		}
		c.cache.Put(ctx, key, resp, c.ttl)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrNoVersionInfo, resp.Message)
	}
	if resp.Version == nil {
		return nil, ErrNoVersionInfo
	}
	return resp.Version, nil
}

// Changelog returns the changelog section, or ChangelogUnavailable.
func (c *Checker) Changelog(ctx context.Context) (string, error) {
	info, err := c.PluginInfo(ctx, c.api.Product().Slug)
	if err != nil && !errors.Is(err, ErrNoVersionInfo) {
		return "", err
	}
	if text, ok := info.Changelog(); ok {
		return text, nil
	}
	return ChangelogUnavailable, nil
}

// Purge drops every cached answer for the current product and channel.
func (c *Checker) Purge(ctx context.Context) error {
	if err := c.cache.Purge(ctx, c.CacheKey()); err != nil {
		return fmt.Errorf("purge version cache: %w", err)
	}
	if err := c.cache.Purge(ctx, c.infoKey()); err != nil {
		return fmt.Errorf("purge plugin info cache: %w", err)
	}
	return nil
}

// Notification is the update notice shown next to the installed product.
type Notification struct {
	Name                string `json:"name"`
	Slug                string `json:"slug"`
	NewVersion          string `json:"new_version"`
	DetailsURL          string `json:"details_url"`
	AutoUpdateAvailable bool   `json:"auto_update_available"`
}

// Notification builds the update notice from state, nil when no update
// is recorded for the product.
func (c *Checker) Notification(state *CycleState) *Notification {
	if state == nil {
		return nil
	}
	p := c.api.Product()
	basename := p.UniqueBasename()

	v := state.Response[basename]
	if v == nil || !domain.UpdateAvailable(p.Version, v.NewVersion) {
		return nil
	}

	slug := v.Slug
	if slug == "" {
		slug = p.Slug
	}

	q := url.Values{}
	q.Set("plugin", basename)
	q.Set("slug", slug)

	return &Notification{
		Name:                p.Name,
		Slug:                slug,
		NewVersion:          *v.NewVersion,
		DetailsURL:          "/api/changelog?" + q.Encode(),
		AutoUpdateAvailable: v.Package != "",
	}
}
