package models

import (
	"fmt"
	"time"
)

// AnnotateRequest is the payload submitted by the editor to burn a set of
// annotations into a source video.
type AnnotateRequest struct {
	VideoID     string         `json:"videoId"`
	Annotations AnnotationList `json:"annotations"`
	Title       string         `json:"title"`
	OriginalURL string         `json:"originalUrl"`
}

// Validate checks the request shape before any resource is acquired. The
// annotation snapshot is validated here once; downstream stages trust it.
func (r *AnnotateRequest) Validate() error {
	if r.VideoID == "" {
		return fmt.Errorf("videoId is required")
	}
	if r.Annotations == nil {
		return fmt.Errorf("annotations are required")
	}
	for i := range r.Annotations {
		r.Annotations[i].Normalize()
		if err := r.Annotations[i].Validate(); err != nil {
			return fmt.Errorf("annotation %d: %w", i, err)
		}
	}
	return nil
}

// AnnotationJob is the queue message for asynchronous compositing.
type AnnotationJob struct {
	ID          string          `json:"id"`
	Request     AnnotateRequest `json:"request"`
	SubmittedAt time.Time       `json:"submitted_at"`
}
