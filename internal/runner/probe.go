package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// MediaInfo holds the probe results the compositing pipeline cares about:
// the resolution used for coordinate scaling and the stream layout used for
// output verification.
type MediaInfo struct {
	Width       int
	Height      int
	Duration    float64
	StreamCount int
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// Prober extracts media metadata using ffprobe.
type Prober struct {
	exec        *Exec
	ffprobePath string
}

// NewProber creates a prober around the given ffprobe binary.
func NewProber(exec *Exec, ffprobePath string) *Prober {
	return &Prober{exec: exec, ffprobePath: ffprobePath}
}

// Probe inspects a local media file.
func (p *Prober) Probe(ctx context.Context, path string) (*MediaInfo, error) {
	cmd := Command{
		Path: p.ffprobePath,
		Args: []string{
			"-v", "quiet",
			"-print_format", "json",
			"-show_format",
			"-show_streams",
			path,
		},
	}

	result, err := p.exec.Run(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var out probeOutput
	if err := json.Unmarshal([]byte(result.Stdout), &out); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := &MediaInfo{StreamCount: len(out.Streams)}

	if duration, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil {
		info.Duration = duration
	}

	for _, stream := range out.Streams {
		if stream.CodecType == "video" {
			info.Width = stream.Width
			info.Height = stream.Height
			break
		}
	}

	return info, nil
}
