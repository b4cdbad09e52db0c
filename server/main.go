package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lumacheckin/api/routes"
	"lumacheckin/internal/assets"
	"lumacheckin/internal/notifications"
	"lumacheckin/internal/shared/config"
	"lumacheckin/internal/shared/database"
	"lumacheckin/internal/shared/metrics"
	"lumacheckin/internal/shared/middleware"
	"lumacheckin/pkg/logger"
	"lumacheckin/pkg/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	appLogger := logger.GetDefault()

	// Smart environment loading
	if err := godotenv.Load(); err != nil {
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	// Load config
	cfg := config.Load()

	// Set Gin mode (debug/release) before building the logger so the handler matches
	gin.SetMode(cfg.GinMode)
	appLogger = logger.NewWithWriter(os.Stdout, cfg.LogLevel)
	logger.SetDefault(appLogger)

	appLogger.Info("Starting check-in service",
		slog.String("version", Version),
		slog.String("build_time", BuildTime),
		slog.String("commit", GitCommit),
	)

	if cfg.IsDevelopment() {
		appLogger.Debug("Swagger UI enabled", slog.String("path", "/swagger/index.html"))
	}

	if cfg.Luma.APIKey == "" {
		appLogger.Warn("LUMA_API_KEY is not set: every check-in will fail with a configuration error")
	}

	// Redis is optional
	var db *database.DB
	if cfg.Redis.Enabled {
		var err error
		db, err = database.InitDB(cfg)
		if err != nil {
			appLogger.Error("Failed to connect to Redis", slog.Any("error", err))
			appLogger.Info("Continuing without Redis - rate limiting and the shared script cache are off")
			db = nil
		}
	}
	defer db.Close()

	// Initialize Rate Limiter
	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled && db.GetRedisClient() != nil {
		rateLimiterConfig := &ratelimit.Config{
			Enabled:         cfg.RateLimit.Enabled,
			WindowDuration:  cfg.RateLimit.WindowDuration,
			DefaultRequests: cfg.RateLimit.DefaultRequests,
			CheckinRequests: cfg.RateLimit.CheckinRequests,
			PageRequests:    cfg.RateLimit.PageRequests,
			HealthRequests:  cfg.RateLimit.HealthRequests,
			WhitelistedIPs:  cfg.RateLimit.WhitelistedIPs,
		}

		rateLimiter = ratelimit.NewRateLimiter(db.GetRedisClient(), rateLimiterConfig)
		appLogger.Info("Rate limiter initialized",
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("checkin_requests", cfg.RateLimit.CheckinRequests),
		)
	} else {
		appLogger.Info("Rate limiting disabled")
	}

	// Check-in event publishing is optional
	var publisher notifications.Publisher = notifications.NoopPublisher{}
	if cfg.Kafka.Enabled {
		producerConfig := notifications.DefaultKafkaProducerConfig()
		producerConfig.Brokers = cfg.Kafka.Brokers
		producerConfig.CheckinTopic = cfg.Kafka.CheckinTopic

		kafkaPublisher, err := notifications.NewKafkaPublisher(producerConfig, appLogger)
		if err != nil {
			appLogger.Error("Failed to initialize Kafka publisher", slog.Any("error", err))
			appLogger.Info("Continuing without check-in events")
		} else {
			publisher = notifications.NewAsyncPublisher(kafkaPublisher, cfg.Kafka.QueueSize, cfg.Kafka.PublishTimeout, appLogger)
			appLogger.Info("Kafka publisher initialized", slog.String("topic", cfg.Kafka.CheckinTopic))
		}
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			appLogger.Error("Error closing publisher", slog.Any("error", err))
		}
	}()

	// Decoder script: prewarm now, refresh in the background
	jobCtx, jobCancel := context.WithCancel(context.Background())
	defer jobCancel()

	scripts := routes.NewScriptProvider(cfg, db)
	scriptJobs := assets.NewJobProcessor(scripts, &assets.JobConfig{
		RefreshInterval: cfg.Scanner.RefreshInterval,
	}, appLogger)
	scriptJobs.Start(jobCtx)
	defer scriptJobs.Stop()

	router := setupRouter(cfg, db, rateLimiter, publisher, scriptJobs)

	// HTTP server
	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	go func() {
		appLogger.Info("Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
			slog.String("scanner", fmt.Sprintf("http://localhost:%s/scan", cfg.Port)),
			slog.String("checkin", cfg.GetCheckinPath()),
			slog.Bool("redis", db.GetRedisClient() != nil),
			slog.Bool("rate_limiting", rateLimiter != nil),
			slog.Bool("kafka", cfg.Kafka.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Forced shutdown", slog.Any("error", err))
	}

	appLogger.Info("Server exited gracefully")
}

func setupRouter(cfg *config.Config, db *database.DB, rateLimiter *ratelimit.RateLimiter,
	publisher notifications.Publisher, scriptJobs *assets.JobProcessor) *gin.Engine {
	engine := gin.New()
	appLogger := logger.GetDefault()

	// forwarding headers are only believed from these hops
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		appLogger.Error("Invalid TRUSTED_PROXIES, trusting none", slog.Any("error", err))
		_ = engine.SetTrustedProxies(nil)
	}

	engine.Use(
		middleware.RequestID(),
		middleware.RequestLogger(appLogger),
		metrics.Middleware(),
		gin.Recovery(),
	)

	// CORS configuration
	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Length", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowOriginFunc = func(origin string) bool {
			return true
		}
	}
	engine.Use(cors.New(corsConfig))

	if rateLimiter != nil {
		engine.Use(ratelimit.Middleware(rateLimiter))
		appLogger.Info("Rate limiting middleware applied to all routes")
	}

	appRouter := routes.NewRouter(cfg, db)
	appRouter.SetPublisher(publisher)
	appRouter.SetScriptProvider(scriptJobs.Provider())
	appRouter.SetScriptJobs(scriptJobs)
	appRouter.SetupRoutes(engine)

	return engine
}
