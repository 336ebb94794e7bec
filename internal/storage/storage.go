package storage

import (
	"context"
	"io"
)

// Storage is the object-storage port shared by every backend: download a
// blob by its remote path, upload a blob to one.
type Storage interface {
	Download(ctx context.Context, remotePath string) (io.ReadCloser, error)
	Upload(ctx context.Context, remotePath string, data io.Reader) error
}
