package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lambojac/video/internal/cache"
	"github.com/lambojac/video/internal/compositor"
	"github.com/lambojac/video/internal/config"
	"github.com/lambojac/video/internal/database"
	"github.com/lambojac/video/internal/fetcher"
	"github.com/lambojac/video/internal/logging"
	"github.com/lambojac/video/internal/metrics"
	"github.com/lambojac/video/internal/middleware"
	"github.com/lambojac/video/internal/queue"
	"github.com/lambojac/video/internal/runner"
	"github.com/lambojac/video/internal/storage"
	"github.com/lambojac/video/internal/tracing"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logging.NewDefault().Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		logging.NewDefault().Fatalf("Failed to initialize logger: %v", err)
	}

	middleware.SetJWTSecret(cfg.Auth.JWTSecret)

	if cfg.Tracing.Enabled {
		_, closer, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.JaegerEndpoint)
		if err != nil {
			logger.Fatalf("Failed to initialize tracer: %v", err)
		}
		defer closer.Close()
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	repo := database.NewRepository(db)

	stor, err := storage.New(cfg.Storage)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	videoCache, err := cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatalf("Failed to connect to cache: %v", err)
	}
	defer videoCache.Close()

	q, err := queue.New(cfg.Queue)
	if err != nil {
		logger.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()

	exec := runner.NewExec()
	service := compositor.NewService(
		cfg.Compositor,
		fetcher.New(cfg.Compositor.FetchTimeout),
		exec,
		runner.NewProber(exec, cfg.Compositor.FFprobePath),
		stor,
		repo,
		storage.AnnotatedObjectName,
		logger,
	)

	api := &API{
		repo:       repo,
		webhooks:   repo,
		cache:      videoCache,
		assets:     stor,
		queue:      q,
		compositor: service,
		logger:     logger,
		videoTTL:   cfg.Redis.VideoTTL,
	}

	router := setupRouter(api, cfg, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	metricsSrv := metrics.NewServer(cfg.Server.MetricsPort)
	go func() {
		if err := metricsSrv.Start(); err != nil {
			logger.Fatalf("Failed to start metrics server: %v", err)
		}
	}()

	go func() {
		logger.Infof("Starting API server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}
	if err := metricsSrv.Shutdown(ctx); err != nil {
		logger.Errorf("Metrics server shutdown: %v", err)
	}

	logger.Info("Server stopped")
}

func setupRouter(api *API, cfg *config.Config, logger *logging.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(observability(logger))

	router.GET("/health", api.healthCheck)

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth())
	v1.Use(middleware.RateLimit(limiter))
	{
		// Annotation pipeline
		v1.POST("/annotation/annotate", api.annotateVideo)
		v1.POST("/annotation/annotate/async", api.annotateVideoAsync)
		v1.GET("/annotation/:id", api.getAnnotation)
		v1.GET("/annotation/:id/annotated", api.getAnnotatedVideo)

		// Video registry
		v1.POST("/videos", api.createVideo)
		v1.GET("/videos", api.listVideos)
		v1.DELETE("/videos/:id", api.deleteVideo)

		// Webhook subscriptions
		v1.POST("/webhooks", api.createWebhook)
		v1.GET("/webhooks", api.listWebhooks)
		v1.DELETE("/webhooks/:id", api.deleteWebhook)
	}

	return router
}

// observability records request metrics and structured access logs.
func observability(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		metrics.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status()),
		).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(
			c.Request.Method, endpoint,
		).Observe(duration.Seconds())

		logger.LogHTTPRequest(c.Request.Method, c.Request.URL.Path, c.ClientIP(), c.Writer.Status(), duration)
	}
}
