// Package compositor sequences the server-side annotation pipeline: fetch the
// source asset, compile the overlay chain, transcode, verify, publish and
// persist the derived video. It owns the failure and cleanup contract.
package compositor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/lambojac/video/internal/config"
	"github.com/lambojac/video/internal/database"
	"github.com/lambojac/video/internal/fetcher"
	"github.com/lambojac/video/internal/filtergraph"
	"github.com/lambojac/video/internal/logging"
	"github.com/lambojac/video/internal/metrics"
	"github.com/lambojac/video/internal/runner"
	"github.com/lambojac/video/internal/tracing"
	"github.com/lambojac/video/internal/workspace"
	"github.com/lambojac/video/pkg/models"
)

// Pipeline stage names, used for logs, metrics and spans.
const (
	StageValidate  = "validate"
	StageWorkspace = "workspace"
	StageFetch     = "fetch"
	StageCompile   = "compile"
	StageTranscode = "transcode"
	StageVerify    = "verify"
	StagePublish   = "publish"
	StagePersist   = "persist"
	StageCleanup   = "cleanup"
)

// Suffix appended to the source title when the request does not name the
// derived video.
const annotatedTitleSuffix = " (Annotated)"

// AssetFetcher downloads a remote asset to a local path.
type AssetFetcher interface {
	Fetch(ctx context.Context, url, destPath string) error
}

// ProcessRunner executes external transcoding processes.
type ProcessRunner interface {
	Run(ctx context.Context, cmd runner.Command) (runner.Result, error)
}

// MediaProber inspects local media files.
type MediaProber interface {
	Probe(ctx context.Context, path string) (*runner.MediaInfo, error)
}

// AssetStore publishes local files to permanent object storage.
type AssetStore interface {
	Publish(ctx context.Context, objectName, filePath string) (string, error)
}

// VideoRepository persists video records.
type VideoRepository interface {
	GetVideo(ctx context.Context, id string) (*models.Video, error)
	UpsertAnnotatedVideo(ctx context.Context, video *models.Video) (*models.Video, error)
}

// ObjectNamer builds the permanent object key for a composited output.
type ObjectNamer func(sourceVideoID string) string

// Service drives the compositing pipeline.
type Service struct {
	cfg     config.CompositorConfig
	fetcher AssetFetcher
	runner  ProcessRunner
	prober  MediaProber
	store   AssetStore
	repo    VideoRepository
	nameFor ObjectNamer
	logger  *logging.Logger
}

// NewService creates a compositing service.
func NewService(
	cfg config.CompositorConfig,
	assetFetcher AssetFetcher,
	processRunner ProcessRunner,
	prober MediaProber,
	store AssetStore,
	repo VideoRepository,
	nameFor ObjectNamer,
	logger *logging.Logger,
) *Service {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Service{
		cfg:     cfg,
		fetcher: assetFetcher,
		runner:  processRunner,
		prober:  prober,
		store:   store,
		repo:    repo,
		nameFor: nameFor,
		logger:  logger,
	}
}

// Annotate runs the full pipeline for one request and returns the derived
// video. The annotation snapshot in the request is immutable for the lifetime
// of the call; later edits to the same source do not affect it.
func (s *Service) Annotate(ctx context.Context, req *models.AnnotateRequest) (*models.Video, error) {
	metrics.JobsInProgress.Inc()
	defer metrics.JobsInProgress.Dec()

	span, ctx := tracing.StartSpan(ctx, "pipeline.annotate")
	defer tracing.FinishSpan(span)
	tracing.SetTag(span, "video.id", req.VideoID)

	video, err := s.annotate(ctx, req)
	if err != nil {
		metrics.PipelineJobsTotal.WithLabelValues("failure").Inc()
		tracing.LogError(span, err)
		return nil, err
	}

	metrics.PipelineJobsTotal.WithLabelValues("success").Inc()
	return video, nil
}

func (s *Service) annotate(ctx context.Context, req *models.AnnotateRequest) (*models.Video, error) {
	log := s.logger.WithVideoID(req.VideoID)

	// Validating: nothing is acquired until the request and the source
	// video reference both check out.
	var source *models.Video
	err := s.stage(ctx, req.VideoID, StageValidate, func(ctx context.Context) error {
		if err := req.Validate(); err != nil {
			return stageErr(StageValidate, KindBadRequest, err)
		}

		var err error
		source, err = s.repo.GetVideo(ctx, req.VideoID)
		if errors.Is(err, database.ErrNotFound) {
			return stageErr(StageValidate, KindNotFound, err)
		}
		if err != nil {
			return stageErr(StageValidate, KindInternal, err)
		}

		if req.OriginalURL == "" && source.URL == "" {
			return stageErr(StageValidate, KindBadRequest,
				fmt.Errorf("source video %s has no downloadable url", req.VideoID))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.AnnotationsPerJob.Observe(float64(len(req.Annotations)))

	// Workspacing.
	var ws *workspace.Workspace
	err = s.stage(ctx, req.VideoID, StageWorkspace, func(context.Context) error {
		var err error
		ws, err = workspace.Acquire(s.cfg.WorkspaceRoot)
		if err != nil {
			return stageErr(StageWorkspace, KindInternal, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// CleaningUp runs on every exit path from here on.
	defer func() {
		start := time.Now()
		err := ws.Release()
		s.logger.LogPipelineStage(req.VideoID, StageCleanup, time.Since(start), err)
		if err != nil {
			metrics.PipelineStageFailures.WithLabelValues(StageCleanup, string(KindInternal)).Inc()
		}
	}()

	// Fetching.
	sourceURL := req.OriginalURL
	if sourceURL == "" {
		sourceURL = source.URL
	}
	err = s.stage(ctx, req.VideoID, StageFetch, func(ctx context.Context) error {
		fetchCtx := ctx
		if s.cfg.FetchTimeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(ctx, s.cfg.FetchTimeout)
			defer cancel()
		}

		if err := s.fetcher.Fetch(fetchCtx, sourceURL, ws.SourcePath()); err != nil {
			return stageErr(StageFetch, fetchKind(err), err)
		}

		if info, err := os.Stat(ws.SourcePath()); err == nil {
			metrics.FetchedAssetBytes.Observe(float64(info.Size()))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Compiling: probe the fetched asset so overlay coordinates scale from
	// the authoring canvas to the real resolution.
	var chain filtergraph.Chain
	err = s.stage(ctx, req.VideoID, StageCompile, func(ctx context.Context) error {
		opts := filtergraph.Options{
			CanvasWidth:  s.cfg.CanvasWidth,
			CanvasHeight: s.cfg.CanvasHeight,
		}

		if s.cfg.ScaleToSource {
			info, err := s.prober.Probe(ctx, ws.SourcePath())
			if err != nil {
				return stageErr(StageCompile, KindProcessFailed, err)
			}
			opts.TargetWidth = info.Width
			opts.TargetHeight = info.Height
		}

		chain = filtergraph.Compile(req.Annotations, opts)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Transcoding.
	err = s.stage(ctx, req.VideoID, StageTranscode, func(ctx context.Context) error {
		transcodeCtx := ctx
		if s.cfg.TranscodeTimeout > 0 {
			var cancel context.CancelFunc
			transcodeCtx, cancel = context.WithTimeout(ctx, s.cfg.TranscodeTimeout)
			defer cancel()
		}

		cmd := runner.Command{
			Path: s.cfg.FFmpegPath,
			Args: []string{
				"-y",
				"-i", ws.SourcePath(),
				"-vf", chain.Filtergraph(),
				"-codec:a", "copy",
				ws.OutputPath(),
			},
			Dir: ws.Dir(),
		}

		result, err := s.runner.Run(transcodeCtx, cmd)
		s.logger.LogProcessOutput(req.VideoID, result.ExitCode, result.Stdout, result.Stderr)
		if err != nil {
			return stageErr(StageTranscode, KindProcessFailed, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Verifying.
	err = s.stage(ctx, req.VideoID, StageVerify, func(context.Context) error {
		info, err := os.Stat(ws.OutputPath())
		if err != nil || info.Size() == 0 {
			return stageErr(StageVerify, KindEmptyOutput,
				fmt.Errorf("transcode produced no output for %s", req.VideoID))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Publishing.
	var publishedURL, assetRef string
	err = s.stage(ctx, req.VideoID, StagePublish, func(ctx context.Context) error {
		assetRef = s.nameFor(req.VideoID)

		url, err := s.store.Publish(ctx, assetRef, ws.OutputPath())
		if err != nil {
			return stageErr(StagePublish, KindPublishFailed, err)
		}
		publishedURL = url

		if info, err := os.Stat(ws.OutputPath()); err == nil {
			metrics.PublishedAssetBytes.Observe(float64(info.Size()))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Persisting.
	var derived *models.Video
	err = s.stage(ctx, req.VideoID, StagePersist, func(ctx context.Context) error {
		candidate := &models.Video{
			Title:           derivedTitle(req, source),
			URL:             publishedURL,
			AssetRef:        assetRef,
			Privacy:         source.Privacy,
			Annotations:     req.Annotations,
			OriginalVideoID: req.VideoID,
			Owner:           source.Owner,
		}

		var err error
		derived, err = s.repo.UpsertAnnotatedVideo(ctx, candidate)
		if err != nil {
			return stageErr(StagePersist, KindInternal, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithField("derived_id", derived.ID).Info("Compositing pipeline completed")
	return derived, nil
}

// stage wraps one pipeline stage with timing, logging, metrics and tracing.
func (s *Service) stage(ctx context.Context, videoID, name string, fn func(context.Context) error) error {
	span, ctx := tracing.StartStageSpan(ctx, name, videoID)
	defer tracing.FinishSpan(span)

	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start)

	metrics.PipelineStageDuration.WithLabelValues(name).Observe(duration.Seconds())
	s.logger.LogPipelineStage(videoID, name, duration, err)

	if err != nil {
		metrics.PipelineStageFailures.WithLabelValues(name, string(KindOf(err))).Inc()
		tracing.LogError(span, err)
	}
	return err
}

func fetchKind(err error) Kind {
	var unavailable *fetcher.UnavailableError
	if errors.As(err, &unavailable) {
		return KindAssetUnavailable
	}
	if errors.Is(err, fetcher.ErrEmptyAsset) {
		return KindEmptyAsset
	}
	return KindAssetUnavailable
}

func derivedTitle(req *models.AnnotateRequest, source *models.Video) string {
	if req.Title != "" {
		return req.Title
	}
	if source.Title != "" {
		return source.Title + annotatedTitleSuffix
	}
	return "Annotated video"
}
