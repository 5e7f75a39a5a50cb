// Package webhook delivers signed event notifications to registered
// subscriber endpoints.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/lambojac/video/internal/logging"
	"github.com/lambojac/video/pkg/models"
)

// Delivery retry schedule. Deliveries are best-effort; a subscriber that
// stays down after the last attempt misses the event.
var retryDelays = []time.Duration{
	time.Second,
	5 * time.Second,
	30 * time.Second,
}

// Repository is the persistence surface the delivery service needs.
type Repository interface {
	ListWebhooksByEvent(ctx context.Context, event string) ([]*models.Webhook, error)
}

// Service handles webhook delivery
type Service struct {
	client *http.Client
	repo   Repository
	logger *logging.Logger
}

// NewService creates a new webhook service
func NewService(repo Repository, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Service{
		client: &http.Client{Timeout: 30 * time.Second},
		repo:   repo,
		logger: logger,
	}
}

// Notify sends an event to every active subscriber. Delivery failures are
// logged, not returned; a broken subscriber must not fail the pipeline.
func (s *Service) Notify(ctx context.Context, event string, data interface{}) error {
	webhooks, err := s.repo.ListWebhooksByEvent(ctx, event)
	if err != nil {
		return fmt.Errorf("failed to list webhooks: %w", err)
	}

	payload, err := json.Marshal(models.WebhookEvent{
		Event:     event,
		Timestamp: time.Now(),
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	for _, webhook := range webhooks {
		if !webhook.IsActive {
			continue
		}
		go s.deliver(webhook, event, payload)
	}

	return nil
}

// NotifyAnnotationCompleted sends the success event for a compositing run.
func (s *Service) NotifyAnnotationCompleted(ctx context.Context, result *models.AnnotationResult) error {
	return s.Notify(ctx, models.WebhookEventAnnotationCompleted, result)
}

// NotifyAnnotationFailed sends the failure event for a compositing run.
func (s *Service) NotifyAnnotationFailed(ctx context.Context, result *models.AnnotationResult) error {
	return s.Notify(ctx, models.WebhookEventAnnotationFailed, result)
}

// deliver posts the payload, retrying on its own schedule.
func (s *Service) deliver(webhook *models.Webhook, event string, payload []byte) {
	deliveryID := uuid.New().String()
	log := s.logger.WithField("webhook_id", webhook.ID).WithField("delivery_id", deliveryID)

	for attempt := 0; ; attempt++ {
		err := s.post(webhook, event, deliveryID, payload)
		if err == nil {
			log.Debugf("Delivered %s after %d attempt(s)", event, attempt+1)
			return
		}

		if attempt >= len(retryDelays) {
			log.ErrorWithErr(fmt.Sprintf("Giving up on %s delivery", event), err)
			return
		}
		time.Sleep(retryDelays[attempt])
	}
}

func (s *Service) post(webhook *models.Webhook, event, deliveryID string, payload []byte) error {
	req, err := http.NewRequest(http.MethodPost, webhook.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Annotation-Webhook/1.0")
	req.Header.Set("X-Webhook-Event", event)
	req.Header.Set("X-Webhook-Delivery", deliveryID)

	if webhook.Secret != "" {
		req.Header.Set("X-Webhook-Signature", Signature(payload, webhook.Secret))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("subscriber returned status %d", resp.StatusCode)
	}
	return nil
}

// Signature computes the HMAC-SHA256 payload signature subscribers verify.
func Signature(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}
