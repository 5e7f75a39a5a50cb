package models

import (
	"time"
)

// Webhook event names.
const (
	WebhookEventAnnotationCompleted = "annotation.completed"
	WebhookEventAnnotationFailed    = "annotation.failed"
)

// Webhook is a registered callback endpoint. Subscribers receive a signed
// POST for each subscribed event.
type Webhook struct {
	ID        string    `json:"id" db:"id"`
	URL       string    `json:"url" db:"url"`
	Secret    string    `json:"secret,omitempty" db:"secret"`
	Events    []string  `json:"events" db:"events"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	Owner     string    `json:"owner,omitempty" db:"owner"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SubscribedTo reports whether the webhook wants the given event.
func (w *Webhook) SubscribedTo(event string) bool {
	for _, e := range w.Events {
		if e == event {
			return true
		}
	}
	return false
}

// WebhookEvent is the delivery payload.
type WebhookEvent struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// AnnotationResult is the event data for annotation pipeline outcomes.
type AnnotationResult struct {
	JobID           string `json:"job_id,omitempty"`
	OriginalVideoID string `json:"original_video_id"`
	DerivedVideoID  string `json:"derived_video_id,omitempty"`
	URL             string `json:"url,omitempty"`
	Error           string `json:"error,omitempty"`
}
