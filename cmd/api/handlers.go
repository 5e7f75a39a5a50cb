package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lambojac/video/internal/compositor"
	"github.com/lambojac/video/internal/database"
	"github.com/lambojac/video/internal/logging"
	"github.com/lambojac/video/internal/metrics"
	"github.com/lambojac/video/internal/middleware"
	"github.com/lambojac/video/pkg/models"
)

// annotator runs the compositing pipeline.
type annotator interface {
	Annotate(ctx context.Context, req *models.AnnotateRequest) (*models.Video, error)
}

// videoStore is the repository surface the API needs.
type videoStore interface {
	Health(ctx context.Context) error
	CreateVideo(ctx context.Context, video *models.Video) error
	GetVideo(ctx context.Context, id string) (*models.Video, error)
	GetAnnotatedVideo(ctx context.Context, originalVideoID string) (*models.Video, error)
	ListVideos(ctx context.Context, limit, offset int) ([]*models.Video, error)
	DeleteVideo(ctx context.Context, id string) error
}

// videoCache is the read-side cache surface. A nil cache disables caching.
type videoCache interface {
	GetVideo(ctx context.Context, videoID string) (*models.Video, error)
	SetVideo(ctx context.Context, video *models.Video, ttl time.Duration) error
	InvalidateAnnotated(ctx context.Context, sourceVideoID, derivedVideoID string) error
}

// jobQueue publishes asynchronous annotation jobs. Nil disables the async
// route.
type jobQueue interface {
	PublishJob(ctx context.Context, job *models.AnnotationJob) error
}

// assetStore removes published objects when their video record goes away.
type assetStore interface {
	Delete(ctx context.Context, objectName string) error
}

// webhookStore is the subscriber-registry surface of the repository.
type webhookStore interface {
	CreateWebhook(ctx context.Context, webhook *models.Webhook) error
	ListWebhooks(ctx context.Context) ([]*models.Webhook, error)
	DeleteWebhook(ctx context.Context, id string) error
}

type API struct {
	repo       videoStore
	webhooks   webhookStore
	cache      videoCache
	queue      jobQueue
	assets     assetStore
	compositor annotator
	logger     *logging.Logger
	videoTTL   time.Duration
}

func (api *API) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := api.repo.Health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// annotateVideo runs the compositing pipeline synchronously and returns the
// derived video.
func (api *API) annotateVideo(c *gin.Context) {
	var req models.AnnotateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
		return
	}

	video, err := api.compositor.Annotate(c.Request.Context(), &req)
	if err != nil {
		api.logger.WithVideoID(req.VideoID).ErrorWithErr("Annotation pipeline failed", err)
		c.JSON(compositor.HTTPStatus(err), gin.H{
			"success": false,
			"message": clientMessage(err),
		})
		return
	}

	api.invalidateCache(c.Request.Context(), req.VideoID, video.ID)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"video":   video,
	})
}

// annotateVideoAsync queues the request and returns immediately.
func (api *API) annotateVideoAsync(c *gin.Context) {
	var req models.AnnotateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	job := &models.AnnotationJob{
		ID:          uuid.New().String(),
		Request:     req,
		SubmittedAt: time.Now(),
	}

	if err := api.queue.PublishJob(c.Request.Context(), job); err != nil {
		api.logger.WithVideoID(req.VideoID).ErrorWithErr("Failed to queue annotation job", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to queue job"})
		return
	}
	metrics.QueueJobsPublished.Inc()

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"job_id":  job.ID,
	})
}

// getAnnotation returns a video by id, cache-aside.
func (api *API) getAnnotation(c *gin.Context) {
	videoID := c.Param("id")
	ctx := c.Request.Context()

	if api.cache != nil {
		if video, err := api.cache.GetVideo(ctx, videoID); err == nil && video != nil {
			c.JSON(http.StatusOK, video)
			return
		}
	}

	video, err := api.repo.GetVideo(ctx, videoID)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Video not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to load video"})
		return
	}

	if api.cache != nil {
		if err := api.cache.SetVideo(ctx, video, api.videoTTL); err != nil {
			api.logger.WithVideoID(videoID).ErrorWithErr("Failed to cache video", err)
		}
	}

	c.JSON(http.StatusOK, video)
}

// getAnnotatedVideo returns the derived counterpart of a source video.
func (api *API) getAnnotatedVideo(c *gin.Context) {
	videoID := c.Param("id")

	video, err := api.repo.GetAnnotatedVideo(c.Request.Context(), videoID)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "No annotated video for this source"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to load annotated video"})
		return
	}

	c.JSON(http.StatusOK, video)
}

// createVideo registers source video metadata. Uploads happen at the
// collaborating media service; this API only tracks the record.
func (api *API) createVideo(c *gin.Context) {
	var video models.Video
	if err := c.ShouldBindJSON(&video); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	if video.Title == "" || video.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "title and url are required"})
		return
	}

	if owner, ok := middleware.GetUserID(c); ok && video.Owner == "" {
		video.Owner = owner
	}

	if err := api.repo.CreateVideo(c.Request.Context(), &video); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create video"})
		return
	}

	c.JSON(http.StatusCreated, &video)
}

func (api *API) listVideos(c *gin.Context) {
	limit := parseIntQuery(c, "limit", 20)
	offset := parseIntQuery(c, "offset", 0)

	videos, err := api.repo.ListVideos(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to list videos"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"videos": videos,
		"limit":  limit,
		"offset": offset,
	})
}

func (api *API) deleteVideo(c *gin.Context) {
	videoID := c.Param("id")
	ctx := c.Request.Context()

	video, err := api.repo.GetVideo(ctx, videoID)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Video not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to delete video"})
		return
	}

	// Best effort; a dangling object is preferable to a stuck delete.
	if api.assets != nil && video.AssetRef != "" {
		if err := api.assets.Delete(ctx, video.AssetRef); err != nil {
			api.logger.WithVideoID(videoID).ErrorWithErr("Failed to delete stored asset", err)
		}
	}

	err = api.repo.DeleteVideo(ctx, videoID)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Video not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to delete video"})
		return
	}

	api.invalidateCache(c.Request.Context(), videoID, "")

	c.JSON(http.StatusOK, gin.H{"message": "Video deleted", "video_id": videoID})
}

// createWebhook registers a subscriber endpoint for pipeline events.
func (api *API) createWebhook(c *gin.Context) {
	var webhook models.Webhook
	if err := c.ShouldBindJSON(&webhook); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	if webhook.URL == "" || len(webhook.Events) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "url and events are required"})
		return
	}

	for _, event := range webhook.Events {
		if event != models.WebhookEventAnnotationCompleted && event != models.WebhookEventAnnotationFailed {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Unknown event: " + event})
			return
		}
	}

	webhook.IsActive = true
	if owner, ok := middleware.GetUserID(c); ok && webhook.Owner == "" {
		webhook.Owner = owner
	}

	if err := api.webhooks.CreateWebhook(c.Request.Context(), &webhook); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create webhook"})
		return
	}

	c.JSON(http.StatusCreated, &webhook)
}

func (api *API) listWebhooks(c *gin.Context) {
	webhooks, err := api.webhooks.ListWebhooks(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to list webhooks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"webhooks": webhooks})
}

func (api *API) deleteWebhook(c *gin.Context) {
	err := api.webhooks.DeleteWebhook(c.Request.Context(), c.Param("id"))
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Webhook not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to delete webhook"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Webhook deleted"})
}

func (api *API) invalidateCache(ctx context.Context, sourceVideoID, derivedVideoID string) {
	if api.cache == nil {
		return
	}
	if err := api.cache.InvalidateAnnotated(ctx, sourceVideoID, derivedVideoID); err != nil {
		api.logger.WithVideoID(sourceVideoID).ErrorWithErr("Failed to invalidate cache", err)
	}
}

// clientMessage returns the safe client-facing message for a pipeline error.
// Process output and internal paths never leak through the API.
func clientMessage(err error) string {
	var pipelineErr *compositor.Error
	if errors.As(err, &pipelineErr) {
		return pipelineErr.Message()
	}
	return "Internal error"
}

func parseIntQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
