package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lambojac/video/pkg/models"
)

// ErrNotFound is returned when a requested video does not exist.
var ErrNotFound = errors.New("video not found")

const videoColumns = `id, title, url, asset_ref, privacy, annotations, is_annotated,
	       original_video_id, owner, uploaded_at, created_at, updated_at`

// Repository provides database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Health checks the underlying database connection.
func (r *Repository) Health(ctx context.Context) error {
	return r.db.Health(ctx)
}

// CreateVideo creates a new video record
func (r *Repository) CreateVideo(ctx context.Context, video *models.Video) error {
	if video.ID == "" {
		video.ID = uuid.New().String()
	}
	if video.Privacy == "" {
		video.Privacy = models.PrivacyPublic
	}
	if video.UploadedAt.IsZero() {
		video.UploadedAt = time.Now()
	}

	query := `
		INSERT INTO videos (id, title, url, asset_ref, privacy, annotations, is_annotated,
		                    original_video_id, owner, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		video.ID, video.Title, video.URL, video.AssetRef, video.Privacy,
		video.Annotations, video.IsAnnotated, video.OriginalVideoID,
		video.Owner, video.UploadedAt,
	).Scan(&video.CreatedAt, &video.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create video: %w", err)
	}

	return nil
}

// GetVideo retrieves a video by ID
func (r *Repository) GetVideo(ctx context.Context, id string) (*models.Video, error) {
	query := `
		SELECT ` + videoColumns + `
		FROM videos
		WHERE id = $1
	`

	video, err := scanVideo(r.db.Pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get video: %w", err)
	}

	return video, nil
}

// GetAnnotatedVideo retrieves the derived video for a source, if one exists.
func (r *Repository) GetAnnotatedVideo(ctx context.Context, originalVideoID string) (*models.Video, error) {
	query := `
		SELECT ` + videoColumns + `
		FROM videos
		WHERE original_video_id = $1 AND is_annotated = true
	`

	video, err := scanVideo(r.db.Pool.QueryRow(ctx, query, originalVideoID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get annotated video: %w", err)
	}

	return video, nil
}

// UpsertAnnotatedVideo creates or replaces the derived video keyed on its
// original video id. An existing derived video is overwritten in place so
// its identity stays stable for links; otherwise a new record is inserted.
// Concurrent upserts for the same source are last-writer-wins.
func (r *Repository) UpsertAnnotatedVideo(ctx context.Context, video *models.Video) (*models.Video, error) {
	if video.OriginalVideoID == "" {
		return nil, fmt.Errorf("derived video must carry an original video id")
	}
	video.IsAnnotated = true

	update := `
		UPDATE videos
		SET title = $2, url = $3, asset_ref = $4, privacy = $5, annotations = $6,
		    is_annotated = true, owner = $7, updated_at = now()
		WHERE original_video_id = $1 AND is_annotated = true
		RETURNING ` + videoColumns + `
	`

	existing, err := scanVideo(r.db.Pool.QueryRow(ctx, update,
		video.OriginalVideoID, video.Title, video.URL, video.AssetRef,
		video.Privacy, video.Annotations, video.Owner,
	))
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to update annotated video: %w", err)
	}

	if video.ID == "" {
		video.ID = uuid.New().String()
	}
	if video.UploadedAt.IsZero() {
		video.UploadedAt = time.Now()
	}

	insert := `
		INSERT INTO videos (id, title, url, asset_ref, privacy, annotations, is_annotated,
		                    original_video_id, owner, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, true, $7, $8, $9)
		RETURNING ` + videoColumns + `
	`

	created, err := scanVideo(r.db.Pool.QueryRow(ctx, insert,
		video.ID, video.Title, video.URL, video.AssetRef, video.Privacy,
		video.Annotations, video.OriginalVideoID, video.Owner, video.UploadedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert annotated video: %w", err)
	}

	return created, nil
}

// ListVideos retrieves all videos with pagination
func (r *Repository) ListVideos(ctx context.Context, limit, offset int) ([]*models.Video, error) {
	query := `
		SELECT ` + videoColumns + `
		FROM videos
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer rows.Close()

	var videos []*models.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, video)
	}

	return videos, nil
}

// DeleteVideo removes a video record
func (r *Repository) DeleteVideo(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateWebhook registers a subscriber endpoint.
func (r *Repository) CreateWebhook(ctx context.Context, webhook *models.Webhook) error {
	if webhook.ID == "" {
		webhook.ID = uuid.New().String()
	}

	query := `
		INSERT INTO webhooks (id, url, secret, events, is_active, owner)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		webhook.ID, webhook.URL, webhook.Secret, webhook.Events,
		webhook.IsActive, webhook.Owner,
	).Scan(&webhook.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create webhook: %w", err)
	}

	return nil
}

// ListWebhooks retrieves all registered webhooks.
func (r *Repository) ListWebhooks(ctx context.Context) ([]*models.Webhook, error) {
	query := `
		SELECT id, url, secret, events, is_active, owner, created_at
		FROM webhooks
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	defer rows.Close()

	var webhooks []*models.Webhook
	for rows.Next() {
		var webhook models.Webhook
		err := rows.Scan(&webhook.ID, &webhook.URL, &webhook.Secret,
			&webhook.Events, &webhook.IsActive, &webhook.Owner, &webhook.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook: %w", err)
		}
		webhooks = append(webhooks, &webhook)
	}

	return webhooks, nil
}

// ListWebhooksByEvent retrieves active webhooks subscribed to an event.
func (r *Repository) ListWebhooksByEvent(ctx context.Context, event string) ([]*models.Webhook, error) {
	query := `
		SELECT id, url, secret, events, is_active, owner, created_at
		FROM webhooks
		WHERE is_active = true AND $1 = ANY(events)
	`

	rows, err := r.db.Pool.Query(ctx, query, event)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks by event: %w", err)
	}
	defer rows.Close()

	var webhooks []*models.Webhook
	for rows.Next() {
		var webhook models.Webhook
		err := rows.Scan(&webhook.ID, &webhook.URL, &webhook.Secret,
			&webhook.Events, &webhook.IsActive, &webhook.Owner, &webhook.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook: %w", err)
		}
		webhooks = append(webhooks, &webhook)
	}

	return webhooks, nil
}

// DeleteWebhook removes a subscriber endpoint.
func (r *Repository) DeleteWebhook(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM webhooks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVideo(row rowScanner) (*models.Video, error) {
	var video models.Video
	err := row.Scan(
		&video.ID, &video.Title, &video.URL, &video.AssetRef, &video.Privacy,
		&video.Annotations, &video.IsAnnotated, &video.OriginalVideoID,
		&video.Owner, &video.UploadedAt, &video.CreatedAt, &video.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &video, nil
}
