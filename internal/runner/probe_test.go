package runner

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const probeJSON = `{
	"format": {"duration": "12.5"},
	"streams": [
		{"codec_type": "video", "width": 1280, "height": 720},
		{"codec_type": "audio"}
	]
}`

// fakeFFprobe writes a script that prints canned ffprobe output.
func fakeFFprobe(t *testing.T, payload string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("script-based probe tests require a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), "ffprobe")
	script := "#!/bin/sh\ncat <<'EOF'\n" + payload + "\nEOF\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

func TestProbeParsesMediaInfo(t *testing.T) {
	p := NewProber(NewExec(), fakeFFprobe(t, probeJSON))

	info, err := p.Probe(context.Background(), "input.mp4")
	require.NoError(t, err)

	assert.Equal(t, 1280, info.Width)
	assert.Equal(t, 720, info.Height)
	assert.Equal(t, 12.5, info.Duration)
	assert.Equal(t, 2, info.StreamCount)
}

func TestProbeNoVideoStream(t *testing.T) {
	p := NewProber(NewExec(), fakeFFprobe(t, `{"format":{"duration":"3"},"streams":[{"codec_type":"audio"}]}`))

	info, err := p.Probe(context.Background(), "input.mp3")
	require.NoError(t, err)

	assert.Zero(t, info.Width)
	assert.Zero(t, info.Height)
	assert.Equal(t, 1, info.StreamCount)
}

func TestProbeInvalidOutput(t *testing.T) {
	p := NewProber(NewExec(), fakeFFprobe(t, "not json"))

	_, err := p.Probe(context.Background(), "input.mp4")
	assert.Error(t, err)
}
