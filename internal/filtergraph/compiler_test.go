package filtergraph

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lambojac/video/pkg/models"
)

func TestCompileOneOverlayPerAnnotation(t *testing.T) {
	annotations := make([]models.Annotation, 5)
	for i := range annotations {
		annotations[i] = models.Annotation{
			Text:      fmt.Sprintf("note %d", i),
			Anchor:    models.Point{X: float64(i * 10), Y: float64(i * 5)},
			StartTime: float64(i),
			EndTime:   float64(i + 2),
			FontSize:  14,
		}
	}

	chain := Compile(annotations, Options{})

	require.Len(t, chain, len(annotations))
	for i, op := range chain {
		assert.Equal(t, annotations[i].StartTime, op.Start, "overlay %d keeps its time gate", i)
		assert.Equal(t, annotations[i].EndTime, op.End)
		assert.Contains(t, op.Filter(), fmt.Sprintf("note %d", i), "input order is preserved")
	}
}

func TestCompileTimeGate(t *testing.T) {
	chain := Compile([]models.Annotation{
		{Text: "Move racket back", Anchor: models.Point{X: 100, Y: 50}, StartTime: 2.0, EndTime: 5.0, FontSize: 14},
	}, Options{})

	require.Len(t, chain, 1)
	filter := chain[0].Filter()
	assert.Contains(t, filter, "enable='between(t,2,5)'")
	assert.Contains(t, filter, "text='Move racket back'")
	assert.Contains(t, filter, "x=100:y=50")
}

func TestCompileFractionalTimes(t *testing.T) {
	chain := Compile([]models.Annotation{
		{Text: "a", StartTime: 1.25, EndTime: 3.5, FontSize: 14},
	}, Options{})

	assert.Contains(t, chain[0].Filter(), "between(t,1.25,3.5)")
}

func TestCompileScalesCoordinates(t *testing.T) {
	chain := Compile([]models.Annotation{
		{Text: "a", Anchor: models.Point{X: 100, Y: 50}, StartTime: 0, EndTime: 1, FontSize: 14},
	}, Options{TargetWidth: 1280, TargetHeight: 720})

	filter := chain[0].Filter()
	assert.Contains(t, filter, "x=200:y=100", "coordinates scale from the 640x360 canvas")
	assert.Contains(t, filter, "fontsize=28", "font size scales with height")
}

func TestCompileZeroTargetMeansNoScaling(t *testing.T) {
	chain := Compile([]models.Annotation{
		{Text: "a", Anchor: models.Point{X: 100, Y: 50}, StartTime: 0, EndTime: 1, FontSize: 14},
	}, Options{})

	assert.Contains(t, chain[0].Filter(), "x=100:y=50")
	assert.Contains(t, chain[0].Filter(), "fontsize=14")
}

func TestEmptyChainIsNullFilter(t *testing.T) {
	chain := Compile(nil, Options{})

	assert.True(t, chain.IsIdentity())
	assert.Equal(t, "null", chain.Filtergraph())
}

func TestFiltergraphJoinsInOrder(t *testing.T) {
	chain := Compile([]models.Annotation{
		{Text: "first", StartTime: 0, EndTime: 1, FontSize: 14},
		{Text: "second", StartTime: 1, EndTime: 2, FontSize: 14},
	}, Options{})

	graph := chain.Filtergraph()
	parts := strings.Split(graph, ",drawtext=")
	require.Len(t, parts, 2)
	assert.Less(t, strings.Index(graph, "first"), strings.Index(graph, "second"))
}

func TestEscapeRoundTrip(t *testing.T) {
	cases := []string{
		"Move racket back",
		"it's 3:2 now",
		`back\slash`,
		`all: 'of' \them`,
		"",
	}

	for _, input := range cases {
		escaped := Escape(input)
		assert.Equal(t, input, Unescape(escaped), "round-trip of %q", input)
	}
}

func TestEscapeSpecialCharacters(t *testing.T) {
	assert.Equal(t, `it\'s`, Escape("it's"))
	assert.Equal(t, `a\:b`, Escape("a:b"))
	assert.Equal(t, `a\\b`, Escape(`a\b`))
	assert.Equal(t, "Move racket back", Escape("Move racket back"), "plain text passes through unchanged")
}

func TestCompileDefaultsFontSize(t *testing.T) {
	chain := Compile([]models.Annotation{
		{Text: "a", StartTime: 0, EndTime: 1},
	}, Options{})

	assert.Contains(t, chain[0].Filter(), fmt.Sprintf("fontsize=%d", models.DefaultFontSize))
}

func TestOverlayStyleDefaults(t *testing.T) {
	chain := Compile([]models.Annotation{
		{Text: "a", StartTime: 0, EndTime: 1, FontSize: 14},
	}, Options{})

	filter := chain[0].Filter()
	assert.Contains(t, filter, "fontcolor=white")
	assert.Contains(t, filter, "borderw=2")
	assert.Contains(t, filter, "bordercolor=black")
}
