package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/geo-pricing/internal/bootstrap"
	"github.com/jwalitptl/geo-pricing/internal/config"
	healthHandler "github.com/jwalitptl/geo-pricing/internal/handler/health"
	promHandler "github.com/jwalitptl/geo-pricing/internal/handler/prometheus"
	"github.com/jwalitptl/geo-pricing/internal/repository"
	"github.com/jwalitptl/geo-pricing/internal/worker"
	"github.com/jwalitptl/geo-pricing/pkg/clock"
	"github.com/jwalitptl/geo-pricing/pkg/metrics"
)

func setupHealthCheck(addr string, store healthHandler.Pinger, registry *prometheus.Registry, m *metrics.Metrics) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	healthHandler.NewHandler(store, promHandler.New(m, registry).Handler()).RegisterRoutes(&engine.RouterGroup)

	srv := &http.Server{Addr: addr, Handler: engine}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("health check server failed")
		}
	}()
	return srv
}

func main() {
	configPath := flag.String("config", os.Getenv("GEOPRICING_CONFIG"), "path to config file")
	healthAddr := flag.String("health-addr", ":8081", "listen address for health endpoints")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := bootstrap.NewLogger(cfg.Log)
	log.Logger = appLogger.ZL

	if cfg.Cache.Backend != config.BackendPostgres {
		log.Info().Str("backend", cfg.Cache.Backend).Msg("cache backend expires slots itself, nothing to clean up")
		return
	}

	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(cfg.Server.MetricsPrefix+"_worker", registry)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	store, closeStore, err := bootstrap.NewStore(ctx, cfg, m, appLogger)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open region cache store")
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Error().Err(err).Msg("failed to close region cache store")
		}
	}()

	purger, ok := store.(repository.Purger)
	if !ok {
		log.Fatal().Str("backend", cfg.Cache.Backend).Msg("store does not support purging")
	}

	srv := setupHealthCheck(*healthAddr, store, registry, m)

	ctx, cancel = context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("shutting down...")
		cancel()
	}()

	worker.NewSlotCleanupWorker(purger, cfg.Cache.CleanupInterval, clock.NewSystem(), appLogger, m).Start(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}
}
