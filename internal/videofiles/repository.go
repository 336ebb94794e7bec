package videofiles

import (
	"context"

	"github.com/amankumarsingh77/cloud-video-encoder/internal/models"
)

// Repository is the persistence port for the single video row a task
// operates on.
type Repository interface {
	FindByID(ctx context.Context, id string) (*models.Video, error)
	Update(ctx context.Context, video *models.Video) error
}

// ErrNotFound is returned by FindByID when no row matches the given id.
var ErrNotFound = notFoundError{}

type notFoundError struct{}

func (notFoundError) Error() string { return "video record not found" }
