package models

import (
	"encoding/json"
	"testing"
)

func TestAnnotationListValue(t *testing.T) {
	list := AnnotationList{
		{ID: "a1", Text: "Move racket back", Anchor: Point{X: 100, Y: 50}, StartTime: 2, EndTime: 5, FontSize: 14},
	}

	value, err := list.Value()
	if err != nil {
		t.Fatalf("Failed to get value: %v", err)
	}

	// Value should be JSON
	var result AnnotationList
	if err := json.Unmarshal(value.([]byte), &result); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	if len(result) != 1 || result[0].Text != "Move racket back" {
		t.Errorf("Expected round-tripped annotation, got %+v", result)
	}
}

func TestAnnotationListScan(t *testing.T) {
	jsonData := []byte(`[{"id":"a1","text":"hi","anchor":{"x":1,"y":2},"startTime":0,"endTime":3,"fontSize":12}]`)

	var list AnnotationList
	if err := list.Scan(jsonData); err != nil {
		t.Fatalf("Failed to scan: %v", err)
	}

	if len(list) != 1 {
		t.Fatalf("Expected 1 annotation, got %d", len(list))
	}

	if list[0].Anchor.X != 1 || list[0].Anchor.Y != 2 {
		t.Errorf("Expected anchor (1,2), got %+v", list[0].Anchor)
	}
}

func TestAnnotationListScanNil(t *testing.T) {
	var list AnnotationList
	if err := list.Scan(nil); err != nil {
		t.Fatalf("Failed to scan nil: %v", err)
	}

	if len(list) != 0 {
		t.Error("Expected empty list after scanning nil")
	}
}

func TestAnnotationValidate(t *testing.T) {
	anno := Annotation{Text: "hello", Anchor: Point{X: 10, Y: 10}, StartTime: 1, EndTime: 4, FontSize: 14}
	if err := anno.Validate(); err != nil {
		t.Fatalf("Expected valid annotation, got %v", err)
	}

	bad := anno
	bad.EndTime = 0.5
	if err := bad.Validate(); err == nil {
		t.Error("Expected error for endTime before startTime")
	}

	bad = anno
	bad.Text = ""
	if err := bad.Validate(); err == nil {
		t.Error("Expected error for empty text")
	}

	bad = anno
	bad.FontSize = 30
	if err := bad.Validate(); err == nil {
		t.Error("Expected error for fontSize above maximum")
	}
}

func TestAnnotationNormalizeDefaults(t *testing.T) {
	anno := Annotation{Text: "hi", Anchor: Point{X: 5, Y: 6}, StartTime: 0, EndTime: 1}
	anno.Normalize()

	if anno.FontSize != DefaultFontSize {
		t.Errorf("Expected default font size %d, got %d", DefaultFontSize, anno.FontSize)
	}

	if anno.ArrowEnd != anno.Anchor {
		t.Errorf("Expected arrowEnd defaulted to anchor, got %+v", anno.ArrowEnd)
	}
}

func TestVisibleAtClosedInterval(t *testing.T) {
	anno := Annotation{StartTime: 2, EndTime: 5}

	cases := []struct {
		t    float64
		want bool
	}{
		{1.999, false},
		{2, true},
		{3.5, true},
		{5, true},
		{5.001, false},
	}

	for _, c := range cases {
		if got := anno.VisibleAt(c.t); got != c.want {
			t.Errorf("VisibleAt(%v) = %v, want %v", c.t, got, c.want)
		}
	}
}

func TestAnnotateRequestValidate(t *testing.T) {
	req := AnnotateRequest{
		VideoID: "V1",
		Annotations: AnnotationList{
			{Text: "hi", Anchor: Point{X: 10, Y: 10}, StartTime: 0, EndTime: 1},
		},
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("Expected valid request, got %v", err)
	}

	bad := req
	bad.VideoID = ""
	if err := bad.Validate(); err == nil {
		t.Error("Expected error for missing videoId")
	}

	bad = req
	bad.Annotations = nil
	if err := bad.Validate(); err == nil {
		t.Error("Expected error for missing annotations field")
	}

	// An empty list is a valid pass-through request.
	bad = req
	bad.Annotations = AnnotationList{}
	if err := bad.Validate(); err != nil {
		t.Errorf("Expected empty annotation list to validate, got %v", err)
	}

	bad = req
	bad.Annotations = AnnotationList{{Text: "", Anchor: Point{X: 1, Y: 1}, StartTime: 0, EndTime: 1}}
	if err := bad.Validate(); err == nil {
		t.Error("Expected error for invalid annotation in list")
	}
}

func TestVisibleAtInstantWindow(t *testing.T) {
	anno := Annotation{StartTime: 3, EndTime: 3}

	if !anno.VisibleAt(3) {
		t.Error("Expected annotation visible at exact instant when start == end")
	}
	if anno.VisibleAt(2.999) || anno.VisibleAt(3.001) {
		t.Error("Expected annotation hidden outside the instant window")
	}
}
