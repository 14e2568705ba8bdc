package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/geo-pricing/internal/bootstrap"
	"github.com/jwalitptl/geo-pricing/internal/config"
	healthHandler "github.com/jwalitptl/geo-pricing/internal/handler/health"
	pricingHandler "github.com/jwalitptl/geo-pricing/internal/handler/pricing"
	promHandler "github.com/jwalitptl/geo-pricing/internal/handler/prometheus"
	regionHandler "github.com/jwalitptl/geo-pricing/internal/handler/region"
	zoneHandler "github.com/jwalitptl/geo-pricing/internal/handler/zone"
	"github.com/jwalitptl/geo-pricing/internal/middleware"
	"github.com/jwalitptl/geo-pricing/internal/router"
	pricingService "github.com/jwalitptl/geo-pricing/internal/service/pricing"
	regionService "github.com/jwalitptl/geo-pricing/internal/service/region"
	"github.com/jwalitptl/geo-pricing/pkg/metrics"
)

func main() {
	configPath := flag.String("config", os.Getenv("GEOPRICING_CONFIG"), "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := bootstrap.NewLogger(cfg.Log)
	log.Logger = appLogger.ZL

	// Metrics registry served on /health/metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(cfg.Server.MetricsPrefix, registry)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	store, closeStore, err := bootstrap.NewStore(ctx, cfg, m, appLogger)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Cache.Backend).Msg("failed to open region cache store")
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Error().Err(err).Msg("failed to close region cache store")
		}
	}()

	// Initialize services
	detector := bootstrap.NewDetector(cfg.Geolocation, m, appLogger)
	cache := bootstrap.NewCache(cfg.Cache, store, m, appLogger)
	regionSvc := regionService.NewService(detector, cache, appLogger)
	matcher := pricingService.NewMatcher(m, appLogger)
	catalog := pricingService.NewCatalog(cfg.Pricing.Plans, matcher)

	// Initialize handlers
	promH := promHandler.New(m, registry)
	handlers := router.Handlers{
		Health:  healthHandler.NewHandler(store, promH.Handler()),
		Zones:   zoneHandler.NewHandler(),
		Regions: regionHandler.NewHandler(regionSvc),
		Pricing: pricingHandler.NewHandler(matcher, catalog),
		Metrics: promH,
	}

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.CORS.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORS.AllowedOrigins
	}

	// Setup router
	r := router.NewRouter(handlers, regionSvc, router.RouterConfig{
		RateLimitEnabled: cfg.RateLimit.Enabled,
		RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst:        cfg.RateLimit.Burst,
		CORSConfig:       corsConfig,
		RequestTimeout:   cfg.Server.RequestTimeout,
		JWTSecret:        cfg.Auth.JWTSecret,
		TrustedProxies:   cfg.Server.TrustedProxies,
	})
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Int("plans", len(cfg.Pricing.Plans)).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 5 * time.Second
	}
	ctx, cancel = context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
