// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	_ "lumacheckin/docs"
	"lumacheckin/internal/assets"
	"lumacheckin/internal/checkin"
	"lumacheckin/internal/luma"
	"lumacheckin/internal/notifications"
	"lumacheckin/internal/scanner"
	"lumacheckin/internal/shared/config"
	"lumacheckin/internal/shared/database"
	"lumacheckin/internal/web"
	"lumacheckin/pkg/cache"
	"lumacheckin/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const serviceName = "luma-checkin"

// Router holds all route dependencies
type Router struct {
	config    *config.Config
	db        *database.DB
	publisher notifications.Publisher
	scripts   *assets.ScriptProvider
	jobs      *assets.JobProcessor
}

// NewRouter creates a new router instance. db may be nil when Redis is off.
func NewRouter(cfg *config.Config, db *database.DB) *Router {
	return &Router{
		config: cfg,
		db:     db,
	}
}

// SetPublisher injects the check-in event publisher
func (r *Router) SetPublisher(publisher notifications.Publisher) {
	r.publisher = publisher
}

// SetScriptProvider shares a provider the caller keeps warm
func (r *Router) SetScriptProvider(provider *assets.ScriptProvider) {
	r.scripts = provider
}

// SetScriptJobs exposes the background refresh job on /status
func (r *Router) SetScriptJobs(jobs *assets.JobProcessor) {
	r.jobs = jobs
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	if !r.config.IsProduction() {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := engine.Group(r.config.GetAPIBasePath())
	{
		r.setupCheckinRoutes(api)
	}

	r.setupScannerRoutes(engine)
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		err := r.db.HealthCheck(c.Request.Context())
		if err == nil && r.publisher != nil {
			err = r.publisher.HealthCheck(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   serviceName,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   serviceName,
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		status := gin.H{
			"status":          "operational",
			"api_version":     r.config.APIVersion,
			"luma_configured": r.config.Luma.APIKey != "",
			"redis":           r.db.GetRedisClient() != nil,
			"script_loaded":   r.scriptProvider().Loaded(),
			"timestamp":       time.Now(),
		}
		if r.jobs != nil {
			status["script_jobs"] = r.jobs.GetJobStatus(c.Request.Context())
		}
		c.JSON(http.StatusOK, status)
	})

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// setupCheckinRoutes configures the check-in proxy
func (r *Router) setupCheckinRoutes(rg *gin.RouterGroup) {
	lumaClient := luma.NewClient(luma.Config{
		APIKey:  r.config.Luma.APIKey,
		BaseURL: r.config.Luma.BaseURL,
		Timeout: r.config.Luma.Timeout,
	})
	checkinService := checkin.NewService(lumaClient, logger.GetDefault())
	if r.publisher != nil {
		checkinService.SetPublisher(r.publisher)
	}
	checkinController := checkin.NewController(checkinService)

	checkin.SetupCheckinRoutes(rg, checkinController)
}

// setupScannerRoutes configures the scanner page and its assets
func (r *Router) setupScannerRoutes(engine *gin.Engine) {
	assets.SetupAssetRoutes(engine, assets.NewController(r.scriptProvider()))

	pageController := web.NewController(web.PageConfig{
		CheckinPath: r.config.GetCheckinPath(),
		ScriptPath:  "/assets/" + assets.ScriptName,
		FPS:         scanner.DefaultOptions.FPS,
		QRBox:       scanner.DefaultOptions.QRBox,
	})
	web.SetupPageRoutes(engine, pageController)
}

func (r *Router) scriptProvider() *assets.ScriptProvider {
	if r.scripts == nil {
		r.scripts = NewScriptProvider(r.config, r.db)
	}
	return r.scripts
}

// NewScriptProvider builds the decoder script provider, backed by Redis when
// it is available
func NewScriptProvider(cfg *config.Config, db *database.DB) *assets.ScriptProvider {
	var cacheService cache.Service
	if client := db.GetRedisClient(); client != nil {
		cacheService = cache.NewService(client)
	}
	return assets.NewScriptProvider(&assets.Config{
		Sources: cfg.Scanner.ScriptSources,
		Timeout: cfg.Scanner.ScriptTimeout,
		TTL:     cfg.Scanner.ScriptTTL,
	}, cacheService, logger.GetDefault())
}
