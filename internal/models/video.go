package models

import "time"

// VideoStatus is the lifecycle state of a video row.
type VideoStatus string

const (
	VideoStatusUploaded  VideoStatus = "uploaded"
	VideoStatusProcessed VideoStatus = "processed"
	VideoStatusDeleted   VideoStatus = "deleted"
	VideoStatusFailed    VideoStatus = "failed"
)

// Video is the authoritative row the worker reads and updates. A task
// handler never creates or deletes rows; it only transitions
// uploaded<->processed and resets to uploaded on failure.
type Video struct {
	ID               string      `db:"id"`
	OwnerID          string      `db:"owner_id"`
	RawVideoID       string      `db:"raw_video_id"`
	ProcessedVideoID *string     `db:"processed_video_id"`
	Title            string      `db:"title"`
	Status           VideoStatus `db:"status"`
	UploadedAt       time.Time   `db:"uploaded_at"`
	ProcessedAt      *time.Time  `db:"processed_at"`
	OriginalURL      string      `db:"original_url"`
	ProcessedURL     *string     `db:"processed_url"`
	Votes            int         `db:"votes"`
}

// MarkProcessed transitions the row to processed, setting all three
// dependent fields together per the invariant in spec §3.
func (v *Video) MarkProcessed(processedAt time.Time, processedVideoID, processedURL string) {
	v.Status = VideoStatusProcessed
	v.ProcessedAt = &processedAt
	v.ProcessedVideoID = optionalString(processedVideoID)
	v.ProcessedURL = optionalString(processedURL)
}

// ResetToUploaded nulls every processed field, restoring the pre-processing
// invariant. Used as the compensating action on every failure path prior to
// a successful persist.
func (v *Video) ResetToUploaded() {
	v.Status = VideoStatusUploaded
	v.ProcessedAt = nil
	v.ProcessedVideoID = nil
	v.ProcessedURL = nil
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	copied := value
	return &copied
}
