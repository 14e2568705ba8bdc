// Package bootstrap builds the runtime components shared by the API server
// and the CLI from a loaded configuration.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jwalitptl/geo-pricing/internal/config"
	"github.com/jwalitptl/geo-pricing/internal/repository"
	"github.com/jwalitptl/geo-pricing/internal/repository/memory"
	"github.com/jwalitptl/geo-pricing/internal/repository/postgres"
	"github.com/jwalitptl/geo-pricing/internal/repository/redis"
	"github.com/jwalitptl/geo-pricing/internal/service/location"
	"github.com/jwalitptl/geo-pricing/internal/service/regioncache"
	"github.com/jwalitptl/geo-pricing/pkg/clock"
	"github.com/jwalitptl/geo-pricing/pkg/logger"
	"github.com/jwalitptl/geo-pricing/pkg/metrics"
)

// NewLogger builds the application logger from the log section.
func NewLogger(cfg config.LogConfig) *logger.Logger {
	return logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Level),
		TimeFormat: "2006-01-02T15:04:05Z07:00",
		JSON:       cfg.JSON,
	})
}

// NewStore opens the configured slot store. The returned close function
// releases its connections.
func NewStore(ctx context.Context, cfg *config.Config, m *metrics.Metrics, log *logger.Logger) (repository.SlotStore, func() error, error) {
	var (
		store   repository.SlotStore
		closeFn = func() error { return nil }
	)

	switch cfg.Cache.Backend {
	case config.BackendMemory:
		store = memory.NewSlotStore(cfg.Cache.Retention, cfg.Cache.CleanupInterval)

	case config.BackendRedis:
		client, err := redis.NewClient(ctx, redis.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		store = redis.NewSlotStore(client, cfg.Cache.Retention)
		closeFn = client.Close

	case config.BackendPostgres:
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		store = postgres.NewSlotRepository(db, cfg.Cache.Retention)
		closeFn = db.Close

	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}

	log.Info("region cache store ready", "backend", cfg.Cache.Backend)
	return repository.Instrument(store, cfg.Cache.Backend, m), closeFn, nil
}

// NewDetector builds the IP detector for the geolocation section.
func NewDetector(cfg config.GeolocationConfig, m *metrics.Metrics, log *logger.Logger) *location.Detector {
	provider := location.NewHTTPProvider(cfg.ProviderURL, cfg.Timeout)
	return location.NewDetector(provider, location.Options{
		FailureThreshold: cfg.FailureThreshold,
		OpenTimeout:      cfg.OpenTimeout,
	}, m, log)
}

// NewCache builds the region cache over store.
func NewCache(cfg config.CacheConfig, store repository.SlotStore, m *metrics.Metrics, log *logger.Logger) *regioncache.Cache {
	return regioncache.New(store, regioncache.Options{
		Key:     cfg.SlotKey,
		MaxAge:  cfg.MaxAge,
		Clock:   clock.NewSystem(),
		Logger:  log,
		Metrics: m,
	})
}
