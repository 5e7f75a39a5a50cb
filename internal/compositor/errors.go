package compositor

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies pipeline failures for API mapping and metrics labels.
type Kind string

const (
	KindBadRequest       Kind = "bad_request"
	KindNotFound         Kind = "not_found"
	KindAssetUnavailable Kind = "asset_unavailable"
	KindEmptyAsset       Kind = "empty_asset"
	KindProcessFailed    Kind = "process_failed"
	KindEmptyOutput      Kind = "empty_output"
	KindPublishFailed    Kind = "publish_failed"
	KindInternal         Kind = "internal"
)

// Error is the typed failure returned by the compositing pipeline. Stage
// names the pipeline stage that failed; the wrapped error keeps the cause.
type Error struct {
	Kind  Kind
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s stage failed (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message returns the client-facing description. Process output never leaks
// through here; the wrapped cause is for server-side logs only.
func (e *Error) Message() string {
	switch e.Kind {
	case KindBadRequest:
		return e.Err.Error()
	case KindNotFound:
		return "Video not found"
	case KindAssetUnavailable:
		return "Source video could not be downloaded"
	case KindEmptyAsset:
		return "Source video is empty"
	case KindProcessFailed:
		return "Video processing failed"
	case KindEmptyOutput:
		return "Video processing produced no output"
	case KindPublishFailed:
		return "Failed to publish annotated video"
	default:
		return "Internal error"
	}
}

// KindOf extracts the failure kind, defaulting to internal for untyped
// errors.
func KindOf(err error) Kind {
	var pipelineErr *Error
	if errors.As(err, &pipelineErr) {
		return pipelineErr.Kind
	}
	return KindInternal
}

// HTTPStatus maps a pipeline error to its API status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func stageErr(stage string, kind Kind, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}
