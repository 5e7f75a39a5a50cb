package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/lambojac/video/internal/cache"
	"github.com/lambojac/video/internal/compositor"
	"github.com/lambojac/video/internal/config"
	"github.com/lambojac/video/internal/database"
	"github.com/lambojac/video/internal/fetcher"
	"github.com/lambojac/video/internal/logging"
	"github.com/lambojac/video/internal/metrics"
	"github.com/lambojac/video/internal/queue"
	"github.com/lambojac/video/internal/runner"
	"github.com/lambojac/video/internal/storage"
	"github.com/lambojac/video/internal/tracing"
	"github.com/lambojac/video/internal/webhook"
	"github.com/lambojac/video/pkg/models"
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

	if cfg.Tracing.Enabled {
		_, closer, err := tracing.InitTracer(cfg.Tracing.ServiceName+"-worker", cfg.Tracing.JaegerEndpoint)
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

	metricsSrv := metrics.NewServer(cfg.Server.MetricsPort)
	go func() {
		if err := metricsSrv.Start(); err != nil {
			logger.Fatalf("Failed to start metrics server: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker := &worker{
		service:  service,
		cache:    videoCache,
		webhooks: webhook.NewService(repo, logger),
		logger:   logger,
	}

	if err := q.ConsumeJobs(ctx, worker.handle); err != nil {
		logger.Fatalf("Failed to start consumer: %v", err)
	}

	logger.Info("Annotation worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Metrics server shutdown: %v", err)
	}
}

type worker struct {
	service  *compositor.Service
	cache    *cache.Cache
	webhooks *webhook.Service
	logger   *logging.Logger
}

// handle runs one queued job through the pipeline. The requeue decision is
// kind-based: transient failures go back on the queue, deterministic ones
// are dropped so a poisoned job cannot loop forever.
func (w *worker) handle(job *models.AnnotationJob) (bool, error) {
	log := w.logger.WithJobID(job.ID).WithVideoID(job.Request.VideoID)
	log.Info("Processing annotation job")

	ctx := context.Background()
	video, err := w.service.Annotate(ctx, &job.Request)
	if err != nil {
		requeue := retryable(compositor.KindOf(err))
		log.WithField("requeue", requeue).ErrorWithErr("Annotation job failed", err)
		metrics.QueueJobsConsumed.WithLabelValues("failure").Inc()

		if !requeue {
			notifyErr := w.webhooks.NotifyAnnotationFailed(ctx, &models.AnnotationResult{
				JobID:           job.ID,
				OriginalVideoID: job.Request.VideoID,
				Error:           clientMessage(err),
			})
			if notifyErr != nil {
				log.ErrorWithErr("Failed to send failure webhook", notifyErr)
			}
		}
		return requeue, err
	}

	if cacheErr := w.cache.InvalidateAnnotated(ctx, job.Request.VideoID, video.ID); cacheErr != nil {
		log.ErrorWithErr("Failed to invalidate cache", cacheErr)
	}

	notifyErr := w.webhooks.NotifyAnnotationCompleted(ctx, &models.AnnotationResult{
		JobID:           job.ID,
		OriginalVideoID: job.Request.VideoID,
		DerivedVideoID:  video.ID,
		URL:             video.URL,
	})
	if notifyErr != nil {
		log.ErrorWithErr("Failed to send completion webhook", notifyErr)
	}

	log.WithField("derived_id", video.ID).Info("Annotation job completed")
	metrics.QueueJobsConsumed.WithLabelValues("success").Inc()
	return false, nil
}

// clientMessage mirrors the API's safe error text for webhook payloads.
func clientMessage(err error) string {
	var pipelineErr *compositor.Error
	if errors.As(err, &pipelineErr) {
		return pipelineErr.Message()
	}
	return "Internal error"
}

func retryable(kind compositor.Kind) bool {
	switch kind {
	case compositor.KindAssetUnavailable, compositor.KindPublishFailed, compositor.KindInternal:
		return true
	default:
		return false
	}
}
