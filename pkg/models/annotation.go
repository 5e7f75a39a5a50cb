package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Font size limits for annotation text, matching the authoring canvas.
const (
	MinFontSize     = 10
	MaxFontSize     = 24
	DefaultFontSize = 14
)

// Point is a position in the reference canvas pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Annotation is a timed text callout drawn over a video. The bubble is
// centered on ArrowStart and the arrow points from the bubble to Anchor.
type Annotation struct {
	ID         string  `json:"id"`
	Text       string  `json:"text"`
	Anchor     Point   `json:"anchor"`
	ArrowStart Point   `json:"arrowStart"`
	ArrowEnd   Point   `json:"arrowEnd"`
	StartTime  float64 `json:"startTime"`
	EndTime    float64 `json:"endTime"`
	FontSize   int     `json:"fontSize"`
}

// Normalize fills defaults for fields optional on the wire.
func (a *Annotation) Normalize() {
	if a.FontSize == 0 {
		a.FontSize = DefaultFontSize
	}
	if a.ArrowEnd == (Point{}) {
		a.ArrowEnd = a.Anchor
	}
}

// Validate checks the annotation shape once, before any pipeline stage runs.
func (a *Annotation) Validate() error {
	if a.Text == "" {
		return fmt.Errorf("annotation text is required")
	}
	if a.StartTime < 0 {
		return fmt.Errorf("startTime must be >= 0, got %v", a.StartTime)
	}
	if a.EndTime < a.StartTime {
		return fmt.Errorf("endTime %v is before startTime %v", a.EndTime, a.StartTime)
	}
	if a.FontSize < MinFontSize || a.FontSize > MaxFontSize {
		return fmt.Errorf("fontSize must be in [%d,%d], got %d", MinFontSize, MaxFontSize, a.FontSize)
	}
	return nil
}

// VisibleAt reports whether the annotation is shown at playback time t.
// The window is closed on both ends, so startTime == endTime still yields
// a window containing exactly that instant.
func (a *Annotation) VisibleAt(t float64) bool {
	return t >= a.StartTime && t <= a.EndTime
}

// AnnotationList is stored embedded in its owning video record as JSONB.
type AnnotationList []Annotation

// Value implements driver.Valuer for database storage
func (l AnnotationList) Value() (driver.Value, error) {
	return json.Marshal(l)
}

// Scan implements sql.Scanner for database retrieval
func (l *AnnotationList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, l)
}
