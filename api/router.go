package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/scrapeurl/api/handler"
	"github.com/use-agent/scrapeurl/api/middleware"
	"github.com/use-agent/scrapeurl/cache"
	"github.com/use-agent/scrapeurl/config"
	"github.com/use-agent/scrapeurl/metrics"
)

// Deps are the collaborators the routes need.
type Deps struct {
	Runner    handler.Runner
	Cache     *cache.Cache
	Batches   *handler.BatchStore
	Notifier  handler.Notifier
	PoolStats handler.StatsFunc
	StartTime time.Time
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → RequestLogger → Metrics
//	API:     Auth (if enabled) → RateLimit
//
// Health and metrics stay outside auth so probes and scrapers always work.
func NewRouter(cfg *config.Config, deps Deps) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	if deps.Batches == nil {
		deps.Batches = handler.NewBatchStore(0)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.Metrics())

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := r.Group("/v1")
	v1.GET("/health", handler.Health(deps.PoolStats, deps.StartTime))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/scrape", handler.Scrape(deps.Runner, deps.Cache))
	protected.POST("/batch/scrape", handler.PostBatch(deps.Runner, deps.Batches, deps.Notifier, handler.BatchConfig{
		MaxURLs:     cfg.Batch.MaxURLs,
		Concurrency: cfg.Batch.Concurrency,
	}))
	protected.GET("/batch/:id", handler.GetBatch(deps.Batches))

	return r
}
