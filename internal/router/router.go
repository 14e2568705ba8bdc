package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	healthHandler "github.com/jwalitptl/geo-pricing/internal/handler/health"
	pricingHandler "github.com/jwalitptl/geo-pricing/internal/handler/pricing"
	promHandler "github.com/jwalitptl/geo-pricing/internal/handler/prometheus"
	regionHandler "github.com/jwalitptl/geo-pricing/internal/handler/region"
	zoneHandler "github.com/jwalitptl/geo-pricing/internal/handler/zone"
	"github.com/jwalitptl/geo-pricing/internal/middleware"
)

type Router struct {
	engine  *gin.Engine
	config  RouterConfig
	health  *healthHandler.Handler
	zones   *zoneHandler.Handler
	regions *regionHandler.Handler
	pricing *pricingHandler.Handler
	locator middleware.RegionLocator
	limiter *middleware.RateLimiter
	promH   *promHandler.Handler
}

type RouterConfig struct {
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
	CORSConfig       middleware.CORSConfig
	RequestTimeout   time.Duration
	JWTSecret        string
	Mode             string
	// TrustedProxies lists the addresses or CIDRs whose X-Forwarded-For is
	// believed. Empty means the peer address is the client address.
	TrustedProxies   []string
}

type Handlers struct {
	Health  *healthHandler.Handler
	Zones   *zoneHandler.Handler
	Regions *regionHandler.Handler
	Pricing *pricingHandler.Handler
	Metrics *promHandler.Handler
}

func NewRouter(h Handlers, locator middleware.RegionLocator, config RouterConfig) *Router {
	mode := config.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)

	engine := gin.New()
	if err := engine.SetTrustedProxies(config.TrustedProxies); err != nil {
		log.Error().Err(err).Strs("trusted_proxies", config.TrustedProxies).Msg("invalid trusted proxies, ignoring forwarded headers")
		_ = engine.SetTrustedProxies(nil)
	}

	r := &Router{
		engine:  engine,
		config:  config,
		health:  h.Health,
		zones:   h.Zones,
		regions: h.Regions,
		pricing: h.Pricing,
		locator: locator,
		promH:   h.Metrics,
	}

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		middleware.Validation(middleware.DefaultValidationConfig()),
	)
	if r.promH != nil {
		engine.Use(r.promH.Middleware())
	}
	engine.Use(
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.RequestTimeout}),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.SizeLimit(middleware.DefaultSizeLimitConfig()),
		middleware.CORS(config.CORSConfig),
		middleware.ClientIdentity(middleware.ClientIdentityConfig{JWTSecret: config.JWTSecret}),
	)

	if config.RateLimitEnabled {
		r.limiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
	}

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.health.RegisterRoutes(api)

	static := api.Group("", middleware.CacheControl(middleware.PublicCacheConfig()))
	r.zones.RegisterRoutes(static)

	perClient := api.Group("", middleware.CacheControl(middleware.PerClientCacheConfig()))
	var limited []gin.HandlerFunc
	if r.limiter != nil {
		limited = append(limited, r.limiter.RateLimit())
	}
	r.regions.RegisterRoutes(perClient, limited...)

	r.pricing.RegisterRoutes(perClient, append(limited, middleware.Region(r.locator))...)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
