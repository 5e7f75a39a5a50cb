package annotation

import (
	"github.com/google/uuid"

	"github.com/lambojac/video/pkg/models"
)

// Mode is the editor's interaction state.
type Mode int

const (
	// ModeIdle means no annotation is selected.
	ModeIdle Mode = iota
	// ModeSelected means one annotation is selected for editing.
	ModeSelected
	// ModePositioningArrow means the next canvas click commits the selected
	// annotation's bubble position (its arrow start point).
	ModePositioningArrow
)

// Default placement for a freshly created annotation.
const (
	defaultText        = "New annotation"
	defaultDurationSec = 1.0
	defaultArrowDX     = -100.0
	defaultArrowDY     = -50.0
)

// DrawCommand is one step of the canvas redraw. Commands are emitted in
// paint order: frame first, then annotations back to front.
type DrawCommand interface {
	isDrawCommand()
}

// FrameCommand draws the current video frame.
type FrameCommand struct{}

// LineCommand draws an arrow shaft.
type LineCommand struct {
	From models.Point
	To   models.Point
}

// TriangleCommand draws a filled arrowhead.
type TriangleCommand struct {
	Points [3]models.Point
}

// BubbleCommand draws a text bubble with wrapped lines.
type BubbleCommand struct {
	Bounds   Rect
	Lines    []string
	FontSize int
}

// HighlightCommand outlines the selected annotation's bubble.
type HighlightCommand struct {
	Bounds Rect
}

func (FrameCommand) isDrawCommand()     {}
func (LineCommand) isDrawCommand()      {}
func (TriangleCommand) isDrawCommand()  {}
func (BubbleCommand) isDrawCommand()    {}
func (HighlightCommand) isDrawCommand() {}

// Editor is the interactive controller for placing, selecting and timing
// annotations against a played/paused media timeline. It is not safe for
// concurrent use; a single UI loop owns it.
type Editor struct {
	annotations []models.Annotation
	selectedID  string
	mode        Mode
	playing     bool
	currentTime float64
	fontSize    int
	measure     TextMeasurer
	newID       func() string
}

// EditorOption configures an Editor.
type EditorOption func(*Editor)

// WithMeasurer replaces the default text measurer.
func WithMeasurer(m TextMeasurer) EditorOption {
	return func(e *Editor) { e.measure = m }
}

// WithIDGenerator replaces the default annotation ID generator.
func WithIDGenerator(gen func() string) EditorOption {
	return func(e *Editor) { e.newID = gen }
}

// NewEditor creates an editor, optionally seeded with existing annotations.
func NewEditor(existing []models.Annotation, opts ...EditorOption) *Editor {
	e := &Editor{
		annotations: append([]models.Annotation(nil), existing...),
		mode:        ModeIdle,
		fontSize:    models.DefaultFontSize,
		measure:     ApproxMeasure,
		newID:       func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Annotations returns a copy of the current annotation list in z-order.
func (e *Editor) Annotations() []models.Annotation {
	return append([]models.Annotation(nil), e.annotations...)
}

// Selected returns the selected annotation, if any.
func (e *Editor) Selected() (models.Annotation, bool) {
	if a := e.selected(); a != nil {
		return *a, true
	}
	return models.Annotation{}, false
}

// Mode returns the current interaction mode.
func (e *Editor) Mode() Mode { return e.mode }

// Playing reports whether the timeline is playing.
func (e *Editor) Playing() bool { return e.playing }

// CurrentTime returns the playback position in seconds.
func (e *Editor) CurrentTime() float64 { return e.currentTime }

// Play resumes the timeline. Selection is cleared so a moving target is
// never left in an editing state.
func (e *Editor) Play() {
	e.playing = true
	e.selectedID = ""
	e.mode = ModeIdle
}

// Pause stops the timeline.
func (e *Editor) Pause() {
	e.playing = false
}

// SetTime updates the playback position.
func (e *Editor) SetTime(t float64) {
	if t < 0 {
		t = 0
	}
	e.currentTime = t
}

// Click handles a canvas click at p.
//
// Hitting an annotation selects it (switching selection discards any
// in-progress arrow positioning). While positioning, a click on empty canvas
// commits the new arrow start point. Otherwise a click on empty canvas with
// nothing selected creates a new annotation at the current timestamp and
// immediately enters arrow positioning. Playback is paused before any of
// these edits.
func (e *Editor) Click(p models.Point) {
	if hit := e.annotationAt(p); hit != nil {
		e.playing = false
		e.selectedID = hit.ID
		e.mode = ModeSelected
		return
	}

	if e.mode == ModePositioningArrow {
		if a := e.selected(); a != nil {
			a.ArrowStart = p
			e.mode = ModeSelected
		}
		return
	}

	if e.selectedID != "" {
		// Click on empty canvas with a selection keeps the selection.
		return
	}

	e.playing = false
	anno := models.Annotation{
		ID:         e.newID(),
		Text:       defaultText,
		Anchor:     p,
		ArrowStart: models.Point{X: p.X + defaultArrowDX, Y: p.Y + defaultArrowDY},
		ArrowEnd:   p,
		StartTime:  e.currentTime,
		EndTime:    e.currentTime + defaultDurationSec,
		FontSize:   e.fontSize,
	}
	e.annotations = append(e.annotations, anno)
	e.selectedID = anno.ID
	e.mode = ModePositioningArrow
}

// StartArrowPositioning begins repositioning the selected bubble.
func (e *Editor) StartArrowPositioning() {
	if e.selectedID != "" {
		e.mode = ModePositioningArrow
	}
}

// CancelArrowPositioning abandons repositioning, keeping the old position.
func (e *Editor) CancelArrowPositioning() {
	if e.mode == ModePositioningArrow {
		e.mode = ModeSelected
	}
}

// SetText live-updates the selected annotation's text. The text is stored
// even while the annotation is outside its visibility window.
func (e *Editor) SetText(text string) {
	if a := e.selected(); a != nil {
		a.Text = text
	}
}

// SetDurationPreset sets the selected annotation's end time to start +
// seconds (the 3s/5s/10s presets).
func (e *Editor) SetDurationPreset(seconds float64) {
	if a := e.selected(); a != nil {
		a.EndTime = a.StartTime + seconds
	}
}

// AdjustFontSize applies a size delta to the selected annotation, clamped to
// the allowed range, and remembers the result for new annotations.
func (e *Editor) AdjustFontSize(delta int) {
	size := clampFontSize(e.fontSize + delta)
	e.fontSize = size
	if a := e.selected(); a != nil {
		a.FontSize = size
	}
}

// Delete removes the annotation with the given id, clearing the selection if
// it was selected.
func (e *Editor) Delete(id string) {
	for i := range e.annotations {
		if e.annotations[i].ID == id {
			e.annotations = append(e.annotations[:i], e.annotations[i+1:]...)
			break
		}
	}
	if e.selectedID == id {
		e.selectedID = ""
		e.mode = ModeIdle
	}
}

// Render produces the full redraw for the current frame: the video frame,
// then every annotation whose window contains the current time, each as an
// arrow with arrowhead plus a wrapped-text bubble, and a highlight outline
// around the selection.
func (e *Editor) Render() []DrawCommand {
	cmds := []DrawCommand{FrameCommand{}}

	for i := range e.annotations {
		a := &e.annotations[i]
		if !a.VisibleAt(e.currentTime) {
			continue
		}

		fontSize := a.FontSize
		if fontSize == 0 {
			fontSize = models.DefaultFontSize
		}

		lines := WrapText(a.Text, MaxBubbleWidth, fontSize, e.measure)
		bounds := BubbleBounds(a.ArrowStart, lines, fontSize, BubblePadding, e.measure)

		cmds = append(cmds,
			LineCommand{From: a.ArrowStart, To: a.Anchor},
			TriangleCommand{Points: ArrowheadTriangle(a.ArrowStart, a.Anchor, ArrowHeadLength)},
			BubbleCommand{Bounds: bounds, Lines: lines, FontSize: fontSize},
		)

		if a.ID == e.selectedID {
			cmds = append(cmds, HighlightCommand{Bounds: Rect{
				X: bounds.X - 2,
				Y: bounds.Y - 2,
				W: bounds.W + 4,
				H: bounds.H + 4,
			}})
		}
	}

	return cmds
}

func (e *Editor) selected() *models.Annotation {
	if e.selectedID == "" {
		return nil
	}
	for i := range e.annotations {
		if e.annotations[i].ID == e.selectedID {
			return &e.annotations[i]
		}
	}
	return nil
}

func (e *Editor) annotationAt(p models.Point) *models.Annotation {
	for i := range e.annotations {
		if HitTest(p, &e.annotations[i], e.currentTime, e.measure) {
			return &e.annotations[i]
		}
	}
	return nil
}

func clampFontSize(size int) int {
	if size < models.MinFontSize {
		return models.MinFontSize
	}
	if size > models.MaxFontSize {
		return models.MaxFontSize
	}
	return size
}
