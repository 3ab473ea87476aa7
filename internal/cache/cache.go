package cache

import (
	"context"
	"crypto/md5" //nolint:gosec // key derivation only
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/MrSnakeDoc/updater/internal/domain"
	"github.com/MrSnakeDoc/updater/internal/logger"
	"github.com/MrSnakeDoc/updater/internal/metrics"
)

// DefaultTTL is how long a fetched version answer stays fresh.
const DefaultTTL = 3 * time.Hour

// KeyPrefix prefixes every version cache key.
const KeyPrefix = "edd_api_request_"

// Transients is the expiring key/value store the cache is written to.
type Transients interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// envelope is what is written to the store. ExpiresAt is checked on read
// so a store that keeps values past their ttl never serves stale data.
type envelope struct {
	Value     *domain.Response `json:"value"`
	ExpiresAt int64            `json:"expires_at"`
}

// VersionCache stores update server responses per product, license and channel.
type VersionCache struct {
	store   Transients
	log     logger.Logger
	metrics *metrics.Registry

	// Now is the clock used for expiry.
	Now func() time.Time
}

// New creates a cache on top of store.
func New(store Transients, log logger.Logger, m *metrics.Registry) *VersionCache {
	if log == nil {
		log = logger.Nop()
	}
	return &VersionCache{
		store:   store,
		log:     log,
		metrics: m,
		Now:     time.Now,
	}
}

// Key derives the cache key for a product slug, license key and channel.
func Key(slug, licenseKey string, beta bool) string {
	b := ""
	if beta {
		b = "1"
	}
	sum := md5.Sum([]byte(slug + licenseKey + b)) //nolint:gosec
	return KeyPrefix + hex.EncodeToString(sum[:])
}

// Get returns the cached response for key. Misses, expired entries, store
// errors and undecodable entries all read as absent.
func (c *VersionCache) Get(ctx context.Context, key string) (*domain.Response, bool) {
	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.Warn("version cache read failed", logger.String("key", key), logger.Error(err))
		c.metrics.RecordCacheLookup("error")
		return nil, false
	}
	if !ok {
		c.metrics.RecordCacheLookup("miss")
		return nil, false
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Value == nil {
		c.log.Debug("version cache entry unreadable", logger.String("key", key))
		c.metrics.RecordCacheLookup("miss")
		return nil, false
	}

	if !c.Now().Before(time.Unix(env.ExpiresAt, 0)) {
		c.metrics.RecordCacheLookup("expired")
		return nil, false
	}

	c.metrics.RecordCacheLookup("hit")
	return env.Value, true
}

// Put overwrites the entry for key. A ttl <= 0 uses DefaultTTL.
// Write failures are logged, the cache is best effort.
func (c *VersionCache) Put(ctx context.Context, key string, resp *domain.Response, ttl time.Duration) {
	if resp == nil {
		return
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	data, err := json.Marshal(envelope{
		Value:     resp,
		ExpiresAt: c.Now().Add(ttl).Unix(),
	})
	if err != nil {
		c.log.Error("version cache encode failed", logger.String("key", key), logger.Error(err))
		return
	}

	if err := c.store.Set(ctx, key, data, ttl); err != nil {
		c.log.Warn("version cache write failed", logger.String("key", key), logger.Error(err))
	}
}

// Purge drops the entry for key.
func (c *VersionCache) Purge(ctx context.Context, key string) error {
	return c.store.Delete(ctx, key)
}
