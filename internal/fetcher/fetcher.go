// Package fetcher streams remote assets to local storage.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// ErrEmptyAsset is returned when the downloaded file is zero bytes or absent
// after the transfer completes.
var ErrEmptyAsset = errors.New("downloaded asset is empty")

// UnavailableError is returned when the remote responds with a non-success
// status.
type UnavailableError struct {
	URL        string
	StatusCode int
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("asset unavailable: %s returned status %d", e.URL, e.StatusCode)
}

// Fetcher downloads assets over HTTP, streaming directly to disk so memory
// use stays bounded for large media.
type Fetcher struct {
	client *http.Client
}

// New creates a fetcher. A zero timeout disables the client-level deadline;
// callers are expected to bound each fetch through the context instead.
func New(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads url into destPath. The partial file is removed on any
// failure so a failed fetch never leaves a truncated asset behind.
func (f *Fetcher) Fetch(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &UnavailableError{URL: url, StatusCode: resp.StatusCode}
	}

	file, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}

	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		os.Remove(destPath)
		return fmt.Errorf("failed to stream asset to disk: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(destPath)
		return fmt.Errorf("failed to close destination file: %w", err)
	}

	info, err := os.Stat(destPath)
	if err != nil || info.Size() == 0 {
		os.Remove(destPath)
		return ErrEmptyAsset
	}

	return nil
}
