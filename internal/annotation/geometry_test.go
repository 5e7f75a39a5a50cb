package annotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lambojac/video/pkg/models"
)

// tenPerRune makes widths easy to reason about in tests.
func tenPerRune(text string, _ int) float64 {
	return 10 * float64(len([]rune(text)))
}

func TestWrapTextGreedy(t *testing.T) {
	lines := WrapText("one two three", 70, 10, tenPerRune)
	assert.Equal(t, []string{"one two", "three"}, lines)
}

func TestWrapTextSingleLineAtExactWidth(t *testing.T) {
	// "one two" measures exactly 70; a line closes only when the width is
	// exceeded, not when it is met.
	lines := WrapText("one two", 70, 10, tenPerRune)
	assert.Equal(t, []string{"one two"}, lines)
}

func TestWrapTextEmptyInput(t *testing.T) {
	lines := WrapText("", 100, 10, tenPerRune)
	assert.Equal(t, []string{""}, lines, "the last partial line is always emitted")
}

func TestWrapTextLongWordNotSplit(t *testing.T) {
	lines := WrapText("unbreakableword", 50, 10, tenPerRune)
	assert.Equal(t, []string{"unbreakableword"}, lines)
}

func TestBubbleBounds(t *testing.T) {
	center := models.Point{X: 100, Y: 100}

	bounds := BubbleBounds(center, []string{"abcde"}, 10, BubblePadding, tenPerRune)

	// Text width 50 plus padding both sides; one line of height 12 plus
	// padding both sides; centered on the arrow start.
	assert.InDelta(t, 70.0, bounds.W, 1e-9)
	assert.InDelta(t, 32.0, bounds.H, 1e-9)
	assert.InDelta(t, 65.0, bounds.X, 1e-9)
	assert.InDelta(t, 84.0, bounds.Y, 1e-9)
}

func TestBubbleBoundsCapsAtMaxWidth(t *testing.T) {
	wide := "abcdefghijklmnopqrstuvwxyz1234" // 300 wide with tenPerRune

	bounds := BubbleBounds(models.Point{}, []string{wide}, 10, BubblePadding, tenPerRune)

	assert.InDelta(t, MaxBubbleWidth+2*BubblePadding, bounds.W, 1e-9)
}

func TestRectContainsIsEdgeInclusive(t *testing.T) {
	r := Rect{X: 10, Y: 10, W: 20, H: 20}

	assert.True(t, r.Contains(models.Point{X: 10, Y: 10}))
	assert.True(t, r.Contains(models.Point{X: 30, Y: 30}))
	assert.False(t, r.Contains(models.Point{X: 31, Y: 30}))
}

func TestHitTestBubbleBoundary(t *testing.T) {
	anno := &models.Annotation{
		Text:       "hi",
		Anchor:     models.Point{X: 300, Y: 300},
		ArrowStart: models.Point{X: 100, Y: 100},
		StartTime:  0,
		EndTime:    10,
		FontSize:   10,
	}

	// Bubble spans x 80..120, y 84..116 with the test measurer.
	assert.True(t, HitTest(models.Point{X: 120, Y: 100}, anno, 5, tenPerRune),
		"a point exactly on the bubble edge is a hit")
	assert.False(t, HitTest(models.Point{X: 121, Y: 100}, anno, 5, tenPerRune),
		"a point one unit outside is not a hit")
}

func TestHitTestAnchorRadius(t *testing.T) {
	anno := &models.Annotation{
		Text:       "hi",
		Anchor:     models.Point{X: 300, Y: 300},
		ArrowStart: models.Point{X: 100, Y: 100},
		StartTime:  0,
		EndTime:    10,
		FontSize:   10,
	}

	assert.True(t, HitTest(models.Point{X: 310, Y: 300}, anno, 5, tenPerRune),
		"a point exactly at the hit radius is a hit")
	assert.False(t, HitTest(models.Point{X: 311, Y: 300}, anno, 5, tenPerRune))
}

func TestHitTestRespectsVisibilityWindow(t *testing.T) {
	anno := &models.Annotation{
		Text:       "hi",
		Anchor:     models.Point{X: 300, Y: 300},
		ArrowStart: models.Point{X: 100, Y: 100},
		StartTime:  2,
		EndTime:    5,
		FontSize:   10,
	}

	inside := models.Point{X: 100, Y: 100}
	assert.True(t, HitTest(inside, anno, 2, tenPerRune))
	assert.True(t, HitTest(inside, anno, 5, tenPerRune))
	assert.False(t, HitTest(inside, anno, 1.9, tenPerRune))
	assert.False(t, HitTest(inside, anno, 5.1, tenPerRune))
}

func TestArrowheadTriangle(t *testing.T) {
	points := ArrowheadTriangle(models.Point{X: 0, Y: 0}, models.Point{X: 10, Y: 0}, 10)

	require.Equal(t, models.Point{X: 10, Y: 0}, points[0], "tip sits at the target point")

	// Wings swept back 30 degrees on either side of the shaft.
	assert.InDelta(t, 1.3397, points[1].X, 1e-3)
	assert.InDelta(t, 5.0, points[1].Y, 1e-3)
	assert.InDelta(t, 1.3397, points[2].X, 1e-3)
	assert.InDelta(t, -5.0, points[2].Y, 1e-3)
}
