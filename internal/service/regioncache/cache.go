// Package regioncache keeps the last successful region detection in a
// single slot of a SlotStore, with a freshness window.
package regioncache

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/jwalitptl/geo-pricing/internal/model"
	"github.com/jwalitptl/geo-pricing/internal/repository"
	"github.com/jwalitptl/geo-pricing/pkg/clock"
	"github.com/jwalitptl/geo-pricing/pkg/logger"
	"github.com/jwalitptl/geo-pricing/pkg/metrics"
)

const (
	DefaultKey    = "user_region_data"
	DefaultMaxAge = 24 * time.Hour

	clientKeyPrefix = "region:"
	lockStripes     = 64
)

// DetectFunc performs a fresh detection. A non-nil error accompanies a
// fallback Location and is passed through untouched.
type DetectFunc func(ctx context.Context) (model.Location, error)

type Options struct {
	Key     string
	MaxAge  time.Duration
	Clock   clock.Clock
	Logger  *logger.Logger
	Metrics *metrics.Metrics
}

// Cache reads and writes one slot. Caches derived with ForClient share the
// store and the lock stripes of their parent.
type Cache struct {
	store   repository.SlotStore
	key     string
	maxAge  time.Duration
	clock   clock.Clock
	logger  *logger.Logger
	metrics *metrics.Metrics
	locks   *[lockStripes]sync.Mutex
}

func New(store repository.SlotStore, opts Options) *Cache {
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultMaxAge
	}
	if opts.Clock == nil {
		opts.Clock = clock.NewSystem()
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New("regioncache")
	}

	return &Cache{
		store:   store,
		key:     opts.Key,
		maxAge:  opts.MaxAge,
		clock:   opts.Clock,
		logger:  opts.Logger.Component("regioncache"),
		metrics: opts.Metrics,
		locks:   new([lockStripes]sync.Mutex),
	}
}

// Key returns the slot key this cache reads and writes.
func (c *Cache) Key() string {
	return c.key
}

// MaxAge returns the freshness window applied by GetDefault.
func (c *Cache) MaxAge() time.Duration {
	return c.maxAge
}

// ForClient returns a cache bound to the slot of one client. The client key
// is hashed so raw identifiers never reach the store.
func (c *Cache) ForClient(clientKey string) *Cache {
	sum := blake2b.Sum256([]byte(clientKey))
	derived := *c
	derived.key = clientKeyPrefix + hex.EncodeToString(sum[:])
	return &derived
}

func (c *Cache) lock() *sync.Mutex {
	sum := blake2b.Sum256([]byte(c.key))
	return &c.locks[int(sum[0])%lockStripes]
}

// Put stores loc stamped with the current time, overwriting the slot.
// Failures are logged and otherwise ignored.
func (c *Cache) Put(ctx context.Context, loc model.Location) {
	payload, err := json.Marshal(model.CachedRegion{
		Location: loc,
		CachedAt: c.clock.Now(),
	})
	if err != nil {
		c.metrics.CacheWrites.WithLabelValues("error").Inc()
		c.logger.Error(err, "failed to encode cached region", "key", c.key)
		return
	}

	mu := c.lock()
	mu.Lock()
	defer mu.Unlock()

	if err := c.store.Set(ctx, c.key, payload); err != nil {
		c.metrics.CacheWrites.WithLabelValues("error").Inc()
		c.logger.Error(err, "failed to store cached region", "key", c.key)
		return
	}
	c.metrics.CacheWrites.WithLabelValues("ok").Inc()
}

// Get returns the cached region if it is no older than maxAge. A maxAge of
// zero or less treats every entry as expired. Expired entries are removed
// from the store.
func (c *Cache) Get(ctx context.Context, maxAge time.Duration) (*model.CachedRegion, bool) {
	mu := c.lock()
	mu.Lock()
	defer mu.Unlock()

	payload, err := c.store.Get(ctx, c.key)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			c.logger.Error(err, "failed to read cached region", "key", c.key)
		}
		c.metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	var cached model.CachedRegion
	if err := json.Unmarshal(payload, &cached); err != nil {
		c.logger.Warn("discarding undecodable cached region", "key", c.key, "error", err.Error())
		c.metrics.CacheLookups.WithLabelValues("corrupt").Inc()
		return nil, false
	}

	if maxAge <= 0 || cached.Age(c.clock.Now()) > maxAge {
		if err := c.store.Delete(ctx, c.key); err != nil {
			c.logger.Error(err, "failed to evict expired region", "key", c.key)
		}
		c.metrics.CacheLookups.WithLabelValues("expired").Inc()
		return nil, false
	}

	c.metrics.CacheLookups.WithLabelValues("hit").Inc()
	return &cached, true
}

// GetDefault is Get with the configured max age.
func (c *Cache) GetDefault(ctx context.Context) (*model.CachedRegion, bool) {
	return c.Get(ctx, c.maxAge)
}

// Clear empties the slot.
func (c *Cache) Clear(ctx context.Context) error {
	mu := c.lock()
	mu.Lock()
	defer mu.Unlock()

	if err := c.store.Delete(ctx, c.key); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return nil
}

// DetectWithCache returns the cached location while it is fresh and runs
// detect otherwise. Only successful detections are stored. The second
// return value reports whether the location came from the cache.
func (c *Cache) DetectWithCache(ctx context.Context, detect DetectFunc) (model.Location, bool, error) {
	if cached, ok := c.GetDefault(ctx); ok {
		return cached.Location, true, nil
	}

	loc, err := c.Refresh(ctx, detect)
	return loc, false, err
}

// Refresh runs detect without consulting the cache and stores a successful
// result.
func (c *Cache) Refresh(ctx context.Context, detect DetectFunc) (model.Location, error) {
	loc, err := detect(ctx)
	if loc.Success {
		c.Put(ctx, loc)
	}
	return loc, err
}
