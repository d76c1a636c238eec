package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/use-agent/shelfprobe/api/handler"
	"github.com/use-agent/shelfprobe/api/middleware"
	"github.com/use-agent/shelfprobe/cache"
	"github.com/use-agent/shelfprobe/config"
	"github.com/use-agent/shelfprobe/models"
)

// Service is the extraction backend behind the API.
type Service interface {
	handler.ProductScraper
	handler.CatalogScraper
	handler.PoolReporter
}

// Deps are the optional collaborators of the router. Nil caches disable
// caching, a nil notifier disables webhooks and a nil registry hides
// /metrics.
type Deps struct {
	ProductCache *cache.Cache[*models.ProductResponse]
	CatalogCache *cache.Cache[*models.CatalogResponse]
	Notifier     handler.Notifier
	Registry     *prometheus.Registry
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health and metrics are outside auth so monitoring probes always work.
func NewRouter(svc Service, cfg *config.Config, deps Deps) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	if deps.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	v1 := r.Group("/api/v1")

	// Health: no auth required.
	v1.GET("/health", handler.Health(svc))

	// Protected group: auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// DOM mode
	protected.POST("/product", handler.Product(svc, deps.ProductCache, deps.Notifier))

	// API mode
	protected.POST("/catalog", handler.Catalog(svc, deps.CatalogCache, deps.Notifier))

	return r
}
