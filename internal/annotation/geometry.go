package annotation

import (
	"math"
	"strings"

	"github.com/lambojac/video/pkg/models"
)

// Geometry constants shared with the authoring canvas.
const (
	// MaxBubbleWidth is the maximum text width inside a bubble in pixels.
	MaxBubbleWidth = 200.0
	// BubblePadding is the padding around bubble text in pixels.
	BubblePadding = 10.0
	// AnchorHitRadius is the click radius around an annotation's anchor.
	AnchorHitRadius = 10.0
	// ArrowHeadLength is the length of each arrowhead wing in pixels.
	ArrowHeadLength = 10.0
	// lineHeightFactor converts a font size to a line height.
	lineHeightFactor = 1.2
)

// TextMeasurer returns the rendered width of text at a font size. The
// authoring canvas measures with the real font; the default measurer only
// approximates, which is fine because bubble math just has to be
// self-consistent between wrapping, bounds and hit-testing.
type TextMeasurer func(text string, fontSize int) float64

// ApproxMeasure estimates text width at 0.6 em per rune.
func ApproxMeasure(text string, fontSize int) float64 {
	return 0.6 * float64(fontSize) * float64(len([]rune(text)))
}

// Rect is an axis-aligned rectangle in canvas pixel space.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Contains reports whether p is inside the rectangle, edges included.
func (r Rect) Contains(p models.Point) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

// WrapText greedily word-wraps text so no line measures wider than maxWidth.
// A line is closed when adding the next word would exceed maxWidth; the last
// partial line is always emitted, so empty input yields one empty line.
func WrapText(text string, maxWidth float64, fontSize int, measure TextMeasurer) []string {
	if measure == nil {
		measure = ApproxMeasure
	}

	words := strings.Split(text, " ")
	lines := make([]string, 0, 1)
	current := words[0]

	for _, word := range words[1:] {
		test := current + " " + word
		if measure(test, fontSize) > maxWidth {
			lines = append(lines, current)
			current = word
		} else {
			current = test
		}
	}

	return append(lines, current)
}

// LineHeight returns the line height for a font size.
func LineHeight(fontSize int) float64 {
	return lineHeightFactor * float64(fontSize)
}

// BubbleBounds computes the bubble rectangle for wrapped lines, centered on
// the arrow start point.
func BubbleBounds(center models.Point, lines []string, fontSize int, padding float64, measure TextMeasurer) Rect {
	if measure == nil {
		measure = ApproxMeasure
	}

	var maxLine float64
	for _, line := range lines {
		if w := measure(line, fontSize); w > maxLine {
			maxLine = w
		}
	}

	textWidth := math.Min(MaxBubbleWidth, maxLine)
	w := textWidth + 2*padding
	h := LineHeight(fontSize)*float64(len(lines)) + 2*padding

	return Rect{
		X: center.X - w/2,
		Y: center.Y - h/2,
		W: w,
		H: h,
	}
}

// HitTest reports whether a click at p selects the annotation at the given
// playback time. A hit requires the annotation to be inside its visibility
// window and the point to fall inside the bubble or within AnchorHitRadius
// of the anchor. Both checks are boundary-inclusive.
func HitTest(p models.Point, a *models.Annotation, currentTime float64, measure TextMeasurer) bool {
	if !a.VisibleAt(currentTime) {
		return false
	}

	fontSize := a.FontSize
	if fontSize == 0 {
		fontSize = models.DefaultFontSize
	}

	lines := WrapText(a.Text, MaxBubbleWidth, fontSize, measure)
	bounds := BubbleBounds(a.ArrowStart, lines, fontSize, BubblePadding, measure)
	if bounds.Contains(p) {
		return true
	}

	dx := p.X - a.Anchor.X
	dy := p.Y - a.Anchor.Y
	return dx*dx+dy*dy <= AnchorHitRadius*AnchorHitRadius
}

// ArrowheadTriangle returns the three points of a two-wing arrowhead whose
// tip sits at `to`, with wings swept back at 30 degrees from the shaft.
func ArrowheadTriangle(from, to models.Point, headLength float64) [3]models.Point {
	angle := math.Atan2(to.Y-from.Y, to.X-from.X)

	return [3]models.Point{
		to,
		{
			X: to.X - headLength*math.Cos(angle-math.Pi/6),
			Y: to.Y - headLength*math.Sin(angle-math.Pi/6),
		},
		{
			X: to.X - headLength*math.Cos(angle+math.Pi/6),
			Y: to.Y - headLength*math.Sin(angle+math.Pi/6),
		},
	}
}
