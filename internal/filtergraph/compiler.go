// Package filtergraph compiles an ordered annotation list into the ffmpeg
// filter chain that burns the annotations into a video's pixel stream.
package filtergraph

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lambojac/video/pkg/models"
)

// Reference canvas the editor authors against. Annotation coordinates are in
// this pixel space and are scaled to the target resolution at compile time.
const (
	DefaultCanvasWidth  = 640
	DefaultCanvasHeight = 360
)

// Options controls coordinate scaling and text styling.
type Options struct {
	// CanvasWidth/CanvasHeight describe the authoring canvas. Zero values
	// fall back to the 640x360 reference canvas.
	CanvasWidth  int
	CanvasHeight int

	// TargetWidth/TargetHeight is the resolution of the asset actually
	// transcoded. Zero values mean the asset matches the canvas and no
	// scaling is applied.
	TargetWidth  int
	TargetHeight int

	FontColor   string
	BorderColor string
	BorderWidth int
}

func (o Options) withDefaults() Options {
	if o.CanvasWidth == 0 {
		o.CanvasWidth = DefaultCanvasWidth
	}
	if o.CanvasHeight == 0 {
		o.CanvasHeight = DefaultCanvasHeight
	}
	if o.FontColor == "" {
		o.FontColor = "white"
	}
	if o.BorderColor == "" {
		o.BorderColor = "black"
	}
	if o.BorderWidth == 0 {
		o.BorderWidth = 2
	}
	return o
}

// Overlay is one time-gated drawtext operation. Operations compose
// sequentially: each receives the previous operation's output frame.
type Overlay struct {
	Text        string // escaped, ready for the filter string
	X           int
	Y           int
	FontSize    int
	Start       float64
	End         float64
	FontColor   string
	BorderColor string
	BorderWidth int
}

// Filter renders the overlay as a drawtext filter. The enable expression is
// inclusive on both ends, matching the annotation visibility window.
func (o Overlay) Filter() string {
	return fmt.Sprintf(
		"drawtext=text='%s':x=%d:y=%d:fontsize=%d:fontcolor=%s:borderw=%d:bordercolor=%s:enable='between(t,%s,%s)'",
		o.Text, o.X, o.Y, o.FontSize, o.FontColor, o.BorderWidth, o.BorderColor,
		formatTime(o.Start), formatTime(o.End),
	)
}

// Chain is an ordered overlay sequence. Order is visual z-order: later
// overlays draw on top.
type Chain []Overlay

// IsIdentity reports whether the chain performs no overlay work.
func (c Chain) IsIdentity() bool {
	return len(c) == 0
}

// Filtergraph serializes the chain for ffmpeg's -vf argument. An empty chain
// compiles to the null pass-through filter so the command shape never
// changes.
func (c Chain) Filtergraph() string {
	if c.IsIdentity() {
		return "null"
	}

	filters := make([]string, len(c))
	for i, op := range c {
		filters[i] = op.Filter()
	}
	return strings.Join(filters, ",")
}

// Compile turns an annotation list into an overlay chain, one operation per
// annotation, preserving input order. It never reorders or merges.
func Compile(annotations []models.Annotation, opts Options) Chain {
	opts = opts.withDefaults()

	sx, sy := 1.0, 1.0
	if opts.TargetWidth > 0 && opts.TargetHeight > 0 {
		sx = float64(opts.TargetWidth) / float64(opts.CanvasWidth)
		sy = float64(opts.TargetHeight) / float64(opts.CanvasHeight)
	}

	chain := make(Chain, 0, len(annotations))
	for _, a := range annotations {
		fontSize := a.FontSize
		if fontSize == 0 {
			fontSize = models.DefaultFontSize
		}

		scaledFont := int(math.Round(float64(fontSize) * sy))
		if scaledFont < 1 {
			scaledFont = 1
		}

		chain = append(chain, Overlay{
			Text:        Escape(a.Text),
			X:           int(math.Round(a.Anchor.X * sx)),
			Y:           int(math.Round(a.Anchor.Y * sy)),
			FontSize:    scaledFont,
			Start:       a.StartTime,
			End:         a.EndTime,
			FontColor:   opts.FontColor,
			BorderColor: opts.BorderColor,
			BorderWidth: opts.BorderWidth,
		})
	}

	return chain
}

// Escape backslash-escapes the characters with special meaning in the filter
// syntax: backslash, single quote and colon.
func Escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\', '\'', ':':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Unescape reverses Escape.
func Unescape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	escaped := false
	for _, r := range s {
		if !escaped && r == '\\' {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}

// formatTime renders seconds without a trailing fractional zero, so 2.0
// becomes "2" and 2.5 stays "2.5".
func formatTime(t float64) string {
	return strconv.FormatFloat(t, 'f', -1, 64)
}
