package transcoder

import (
	"context"
	"io"

	"github.com/amankumarsingh77/cloud-video-encoder/internal/models"
)

// Engine turns a raw video stream into the watermarked, curtain-bracketed
// clip described by a models.TranscodeOptions value.
type Engine interface {
	Process(ctx context.Context, input io.Reader, opts models.TranscodeOptions) (*models.ProcessedVideo, error)
}
