package storage

import (
	"bytes"
	"context"
	"io"
	"path"

	"github.com/studio-b12/gowebdav"

	"github.com/amankumarsingh77/cloud-video-encoder/pkg/logger"
)

// WebDAVStorage talks to a Nextcloud-style WebDAV backend. Downloads are
// buffered whole into memory because the backend closes the response stream
// out from under readers that try to stream it incrementally.
type WebDAVStorage struct {
	client *gowebdav.Client
	root   string
	log    logger.Logger
}

func NewWebDAVStorage(baseURL, root, username, password string, log logger.Logger) *WebDAVStorage {
	client := gowebdav.NewClient(baseURL, username, password)
	return &WebDAVStorage{client: client, root: root, log: log}
}

func (s *WebDAVStorage) Download(ctx context.Context, remotePath string) (io.ReadCloser, error) {
	fullPath := s.fullPath(remotePath)
	s.log.Debugf("downloading from webdav: %s", fullPath)

	stream, err := s.client.ReadStream(fullPath)
	if err != nil {
		s.log.Errorf("webdav stream open failed for %s: %v", fullPath, err)
		return nil, err
	}

	data, err := io.ReadAll(stream)
	_ = stream.Close()
	if err != nil {
		s.log.Errorf("webdav stream read failed for %s: %v", fullPath, err)
		return nil, err
	}

	s.log.Infof("downloaded %d bytes from webdav path %s", len(data), fullPath)
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *WebDAVStorage) Upload(ctx context.Context, remotePath string, data io.Reader) error {
	fullPath := s.fullPath(remotePath)
	s.log.Infof("uploading to webdav path %s", fullPath)
	return s.client.WriteStream(fullPath, data, 0644)
}

func (s *WebDAVStorage) fullPath(p string) string {
	return path.Join(s.root, p)
}
