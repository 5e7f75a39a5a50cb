package models

import (
	"time"
)

// Video represents one stored video asset. A derived (annotated) video
// carries OriginalVideoID pointing at its source; each source has at most
// one derived counterpart, enforced by the upsert keyed on that field.
type Video struct {
	ID              string         `json:"id" db:"id"`
	Title           string         `json:"title" db:"title"`
	URL             string         `json:"url" db:"url"`
	AssetRef        string         `json:"asset_ref" db:"asset_ref"`
	Privacy         string         `json:"privacy" db:"privacy"`
	Annotations     AnnotationList `json:"annotations" db:"annotations"`
	IsAnnotated     bool           `json:"is_annotated" db:"is_annotated"`
	OriginalVideoID string         `json:"original_video_id,omitempty" db:"original_video_id"`
	Owner           string         `json:"owner,omitempty" db:"owner"`
	UploadedAt      time.Time      `json:"uploaded_at" db:"uploaded_at"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
}

// Privacy constants
const (
	PrivacyPublic  = "public"
	PrivacyPrivate = "private"
)
