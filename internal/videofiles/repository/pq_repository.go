package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/amankumarsingh77/cloud-video-encoder/internal/models"
	"github.com/amankumarsingh77/cloud-video-encoder/internal/videofiles"
)

type videoRepo struct {
	db *sqlx.DB
}

func NewVideoRepo(db *sqlx.DB) videofiles.Repository {
	return &videoRepo{db: db}
}

type videoRow struct {
	ID               string         `db:"id"`
	OwnerID          string         `db:"owner_id"`
	RawVideoID       string         `db:"raw_video_id"`
	ProcessedVideoID sql.NullString `db:"processed_video_id"`
	Title            string         `db:"title"`
	Status           string         `db:"status"`
	UploadedAt       sql.NullTime   `db:"uploaded_at"`
	ProcessedAt      sql.NullTime   `db:"processed_at"`
	OriginalURL      string         `db:"original_url"`
	ProcessedURL     sql.NullString `db:"processed_url"`
	Votes            int            `db:"votes"`
}

func (v *videoRepo) FindByID(ctx context.Context, id string) (*models.Video, error) {
	row := &videoRow{}
	if err := v.db.QueryRowxContext(ctx, findVideoByIDQuery, id).StructScan(row); err != nil {
		if err == sql.ErrNoRows {
			return nil, videofiles.ErrNotFound
		}
		return nil, fmt.Errorf("find video %s: %w", id, err)
	}
	return row.toModel(), nil
}

func (v *videoRepo) Update(ctx context.Context, video *models.Video) error {
	_, err := v.db.ExecContext(
		ctx,
		updateVideoQuery,
		video.ID,
		string(video.Status),
		nullableString(video.ProcessedVideoID),
		nullableString(video.ProcessedURL),
		nullableTime(video.ProcessedAt),
	)
	if err != nil {
		return fmt.Errorf("update video %s: %w", video.ID, err)
	}
	return nil
}

func (r *videoRow) toModel() *models.Video {
	video := &models.Video{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		RawVideoID:  r.RawVideoID,
		Title:       r.Title,
		Status:      models.VideoStatus(r.Status),
		OriginalURL: r.OriginalURL,
		Votes:       r.Votes,
	}
	if r.UploadedAt.Valid {
		video.UploadedAt = r.UploadedAt.Time
	}
	if r.ProcessedAt.Valid {
		t := r.ProcessedAt.Time
		video.ProcessedAt = &t
	}
	if r.ProcessedVideoID.Valid {
		s := r.ProcessedVideoID.String
		video.ProcessedVideoID = &s
	}
	if r.ProcessedURL.Valid {
		s := r.ProcessedURL.String
		video.ProcessedURL = &s
	}
	return video
}

func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
