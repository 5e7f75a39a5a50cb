package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lambojac/video/pkg/models"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()

	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	c, err := NewCache(mr.Host(), port, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	return c
}

func TestVideoCacheRoundTrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	video := &models.Video{
		ID:    "v1",
		Title: "Backhand drill",
		URL:   "https://assets.example.com/v1.mp4",
		Annotations: models.AnnotationList{
			{ID: "a1", Text: "Move racket back", StartTime: 2, EndTime: 5, FontSize: 14},
		},
	}

	require.NoError(t, c.SetVideo(ctx, video, time.Minute))

	got, err := c.GetVideo(ctx, "v1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, video.Title, got.Title)
	assert.Len(t, got.Annotations, 1)
	assert.Equal(t, "Move racket back", got.Annotations[0].Text)
}

func TestVideoCacheMiss(t *testing.T) {
	c := newTestCache(t)

	got, err := c.GetVideo(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInvalidateAnnotated(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetVideo(ctx, &models.Video{ID: "src"}, time.Minute))
	require.NoError(t, c.SetVideo(ctx, &models.Video{ID: "derived"}, time.Minute))

	require.NoError(t, c.InvalidateAnnotated(ctx, "src", "derived"))

	for _, id := range []string{"src", "derived"} {
		got, err := c.GetVideo(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, got, "expected %s to be invalidated", id)
	}
}
