package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lambojac/video/pkg/models"
)

type stubRepository struct {
	webhooks []*models.Webhook
}

func (s *stubRepository) ListWebhooksByEvent(_ context.Context, event string) ([]*models.Webhook, error) {
	var out []*models.Webhook
	for _, w := range s.webhooks {
		if w.SubscribedTo(event) {
			out = append(out, w)
		}
	}
	return out, nil
}

type capture struct {
	mu      sync.Mutex
	bodies  []string
	headers []http.Header
}

func (c *capture) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	c.mu.Lock()
	c.bodies = append(c.bodies, string(body))
	c.headers = append(c.headers, r.Header.Clone())
	c.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (c *capture) wait(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		got := len(c.bodies)
		c.mu.Unlock()
		if got >= n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d deliveries before the deadline", n)
}

func TestNotifyDeliversSignedEvent(t *testing.T) {
	c := &capture{}
	srv := httptest.NewServer(http.HandlerFunc(c.handler))
	defer srv.Close()

	repo := &stubRepository{webhooks: []*models.Webhook{{
		ID:       "wh-1",
		URL:      srv.URL,
		Secret:   "shared-secret",
		Events:   []string{models.WebhookEventAnnotationCompleted},
		IsActive: true,
	}}}

	service := NewService(repo, nil)
	err := service.NotifyAnnotationCompleted(context.Background(), &models.AnnotationResult{
		OriginalVideoID: "V1",
		DerivedVideoID:  "derived-1",
	})
	require.NoError(t, err)

	c.wait(t, 1)

	var event models.WebhookEvent
	require.NoError(t, json.Unmarshal([]byte(c.bodies[0]), &event))
	assert.Equal(t, models.WebhookEventAnnotationCompleted, event.Event)

	header := c.headers[0]
	assert.Equal(t, models.WebhookEventAnnotationCompleted, header.Get("X-Webhook-Event"))
	assert.NotEmpty(t, header.Get("X-Webhook-Delivery"))
	assert.Equal(t, Signature([]byte(c.bodies[0]), "shared-secret"), header.Get("X-Webhook-Signature"))
}

func TestNotifySkipsInactiveAndUnsubscribed(t *testing.T) {
	c := &capture{}
	srv := httptest.NewServer(http.HandlerFunc(c.handler))
	defer srv.Close()

	repo := &stubRepository{webhooks: []*models.Webhook{
		{
			ID:       "inactive",
			URL:      srv.URL,
			Events:   []string{models.WebhookEventAnnotationFailed},
			IsActive: false,
		},
		{
			ID:       "other-event",
			URL:      srv.URL,
			Events:   []string{models.WebhookEventAnnotationCompleted},
			IsActive: true,
		},
	}}

	service := NewService(repo, nil)
	err := service.NotifyAnnotationFailed(context.Background(), &models.AnnotationResult{
		OriginalVideoID: "V1",
		Error:           "Video processing failed",
	})
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Empty(t, c.bodies)
}

func TestSignature(t *testing.T) {
	sig := Signature([]byte(`{"event":"test"}`), "secret")
	assert.Contains(t, sig, "sha256=")
	assert.Equal(t, sig, Signature([]byte(`{"event":"test"}`), "secret"), "signature is deterministic")
	assert.NotEqual(t, sig, Signature([]byte(`{"event":"test"}`), "other"))
}

func TestWebhookSubscribedTo(t *testing.T) {
	w := &models.Webhook{Events: []string{models.WebhookEventAnnotationCompleted}}

	assert.True(t, w.SubscribedTo(models.WebhookEventAnnotationCompleted))
	assert.False(t, w.SubscribedTo(models.WebhookEventAnnotationFailed))
}
