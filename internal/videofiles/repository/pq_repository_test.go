package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/amankumarsingh77/cloud-video-encoder/internal/models"
)

func TestVideoRowToModelMapsNullableColumns(t *testing.T) {
	uploadedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	row := &videoRow{
		ID:          "video-1",
		OwnerID:     "owner-1",
		RawVideoID:  "raw-1",
		Title:       "clip",
		Status:      "uploaded",
		OriginalURL: "raw/clip.mp4",
		Votes:       3,
		UploadedAt:  sql.NullTime{Time: uploadedAt, Valid: true},
	}

	video := row.toModel()

	assert.Equal(t, models.VideoStatusUploaded, video.Status)
	assert.Equal(t, uploadedAt, video.UploadedAt)
	assert.Nil(t, video.ProcessedAt)
	assert.Nil(t, video.ProcessedVideoID)
}

func TestVideoRowToModelPopulatesProcessedFieldsWhenPresent(t *testing.T) {
	processedAt := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	row := &videoRow{
		Status:           "processed",
		ProcessedAt:      sql.NullTime{Time: processedAt, Valid: true},
		ProcessedVideoID: sql.NullString{String: "processed-1", Valid: true},
		ProcessedURL:     sql.NullString{String: "processed/clip.mp4", Valid: true},
	}

	video := row.toModel()

	assert.Equal(t, &processedAt, video.ProcessedAt)
	assert.Equal(t, "processed-1", *video.ProcessedVideoID)
	assert.Equal(t, "processed/clip.mp4", *video.ProcessedURL)
}

func TestNullableStringTreatsEmptyAsNull(t *testing.T) {
	empty := ""
	assert.False(t, nullableString(&empty).Valid)
	assert.False(t, nullableString(nil).Valid)

	value := "set"
	ns := nullableString(&value)
	assert.True(t, ns.Valid)
	assert.Equal(t, "set", ns.String)
}

func TestNullableTimeHandlesNil(t *testing.T) {
	assert.False(t, nullableTime(nil).Valid)

	now := time.Now()
	nt := nullableTime(&now)
	assert.True(t, nt.Valid)
}
