package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amankumarsingh77/cloud-video-encoder/internal/models"
	"github.com/amankumarsingh77/cloud-video-encoder/internal/queue"
	"github.com/amankumarsingh77/cloud-video-encoder/pkg/logger"
)

type fakeQueue struct {
	fetchMsg  *queue.Message
	fetchErr  error
	acked     []*queue.Message
	ackErr    error
	failed    []*queue.Message
	failedErr error
}

func (f *fakeQueue) Fetch(ctx context.Context) (*queue.Message, error) {
	return f.fetchMsg, f.fetchErr
}
func (f *fakeQueue) Ack(ctx context.Context, msg *queue.Message) error {
	f.acked = append(f.acked, msg)
	return f.ackErr
}
func (f *fakeQueue) Fail(ctx context.Context, msg *queue.Message, reason error) error {
	f.failed = append(f.failed, msg)
	return f.failedErr
}

type fakeStorage struct {
	downloadData string
	downloadErr  error
	uploadErr    error
	uploadedPath string
	uploadedData []byte
}

func (f *fakeStorage) Download(ctx context.Context, remotePath string) (io.ReadCloser, error) {
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return io.NopCloser(bytes.NewBufferString(f.downloadData)), nil
}
func (f *fakeStorage) Upload(ctx context.Context, remotePath string, data io.Reader) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploadedPath = remotePath
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.uploadedData = buf
	return nil
}

type fakeRepo struct {
	video     *models.Video
	findErr   error
	updated   []*models.Video
	updateErr error
}

func (f *fakeRepo) FindByID(ctx context.Context, id string) (*models.Video, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.video, nil
}
func (f *fakeRepo) Update(ctx context.Context, video *models.Video) error {
	f.updated = append(f.updated, video)
	return f.updateErr
}

type fakeTranscoder struct {
	result *models.ProcessedVideo
	err    error
}

func (f *fakeTranscoder) Process(ctx context.Context, input io.Reader, opts models.TranscodeOptions) (*models.ProcessedVideo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeMetrics struct {
	observed     []string
	queueErrors  int
}

func (f *fakeMetrics) ObserveProcessed(status string, workerID string, duration time.Duration) {
	f.observed = append(f.observed, status)
}
func (f *fakeMetrics) IncQueueError(workerID string) { f.queueErrors++ }
func (f *fakeMetrics) SetQueueDepth(workerID string, depth float64) {}

func noopLogger() logger.Logger { return &testLogger{} }

type testLogger struct{}

func (testLogger) Debug(args ...interface{})                   {}
func (testLogger) Debugf(template string, args ...interface{}) {}
func (testLogger) Info(args ...interface{})                     {}
func (testLogger) Infof(template string, args ...interface{})   {}
func (testLogger) Warn(args ...interface{})                     {}
func (testLogger) Warnf(template string, args ...interface{})   {}
func (testLogger) Error(args ...interface{})                    {}
func (testLogger) Errorf(template string, args ...interface{})  {}
func (testLogger) Fatal(args ...interface{})                    {}
func (testLogger) Fatalf(template string, args ...interface{})  {}
func (t testLogger) WithFields(fields map[string]interface{}) logger.Logger { return t }

func TestHandleNextSuccess(t *testing.T) {
	ctx := context.Background()
	task := models.Task{ID: "task-1", VideoID: "video-1", SourcePath: "raw/source.mp4"}
	msg := &queue.Message{ID: "msg-1", Task: task}

	q := &fakeQueue{fetchMsg: msg}
	s := &fakeStorage{downloadData: "raw-bytes"}
	r := &fakeRepo{video: &models.Video{ID: "video-1", Status: models.VideoStatusUploaded}}
	tr := &fakeTranscoder{result: &models.ProcessedVideo{Reader: io.NopCloser(bytes.NewBufferString("processed-bytes"))}}
	m := &fakeMetrics{}

	uc := New(q, s, r, tr, m, noopLogger(), 0, models.TranscodeOptions{}, "worker-1")

	err := uc.HandleNext(ctx)
	require.NoError(t, err)

	require.Len(t, r.updated, 1)
	assert.Equal(t, models.VideoStatusProcessed, r.updated[0].Status)
	require.NotNil(t, r.updated[0].ProcessedVideoID)
	assert.True(t, strings.HasSuffix(*r.updated[0].ProcessedURL, ".mp4"))
	assert.Equal(t, []string{string(models.VideoStatusProcessed)}, m.observed)
	assert.Len(t, q.acked, 1)
	assert.Equal(t, "processed-bytes", string(s.uploadedData))
}

func TestHandleNextNoMessages(t *testing.T) {
	q := &fakeQueue{fetchErr: queue.ErrNoMessages}
	m := &fakeMetrics{}
	uc := New(q, nil, nil, nil, m, noopLogger(), 0, models.TranscodeOptions{}, "worker-1")

	err := uc.HandleNext(context.Background())
	assert.NoError(t, err)
	assert.Zero(t, m.queueErrors)
}

func TestHandleNextFetchTransportError(t *testing.T) {
	fetchErr := errors.New("transport down")
	q := &fakeQueue{fetchErr: fetchErr}
	m := &fakeMetrics{}
	uc := New(q, nil, nil, nil, m, noopLogger(), 0, models.TranscodeOptions{}, "worker-1")

	err := uc.HandleNext(context.Background())
	assert.ErrorIs(t, err, fetchErr)
	assert.Equal(t, 1, m.queueErrors)
}

func TestHandleNextVideoNotFound(t *testing.T) {
	task := models.Task{ID: "task-1", VideoID: "missing"}
	msg := &queue.Message{ID: "msg-1", Task: task}
	findErr := errors.New("no row")

	q := &fakeQueue{fetchMsg: msg}
	r := &fakeRepo{findErr: findErr}
	m := &fakeMetrics{}

	uc := New(q, nil, r, nil, m, noopLogger(), 0, models.TranscodeOptions{}, "worker-1")

	err := uc.HandleNext(context.Background())
	assert.ErrorIs(t, err, findErr)
	assert.Len(t, q.failed, 1)
	assert.Equal(t, []string{string(models.VideoStatusFailed)}, m.observed)
}

func TestHandleNextDownloadFailureResetsRow(t *testing.T) {
	task := models.Task{ID: "task-1", VideoID: "video-1", SourcePath: "raw/source.mp4"}
	msg := &queue.Message{ID: "msg-1", Task: task}
	processedAt := time.Now()
	processedID := "old-id"
	processedURL := "old-id.mp4"

	q := &fakeQueue{fetchMsg: msg}
	s := &fakeStorage{downloadErr: errors.New("download failed")}
	r := &fakeRepo{video: &models.Video{
		ID:               "video-1",
		Status:           models.VideoStatusProcessed,
		ProcessedAt:      &processedAt,
		ProcessedVideoID: &processedID,
		ProcessedURL:     &processedURL,
	}}
	m := &fakeMetrics{}

	uc := New(q, s, r, &fakeTranscoder{}, m, noopLogger(), 0, models.TranscodeOptions{}, "worker-1")

	err := uc.HandleNext(context.Background())
	assert.Error(t, err)
	require.Len(t, r.updated, 1)
	assert.Equal(t, models.VideoStatusUploaded, r.updated[0].Status)
	assert.Nil(t, r.updated[0].ProcessedAt)
	assert.Nil(t, r.updated[0].ProcessedVideoID)
	assert.Len(t, q.failed, 1)
}

func TestHandleNextTranscodeFailureResetsRowAndFailsMessage(t *testing.T) {
	task := models.Task{ID: "task-1", VideoID: "video-1", SourcePath: "raw/source.mp4"}
	msg := &queue.Message{ID: "msg-1", Task: task}

	q := &fakeQueue{fetchMsg: msg}
	s := &fakeStorage{downloadData: "raw-bytes"}
	r := &fakeRepo{video: &models.Video{ID: "video-1", Status: models.VideoStatusUploaded}}
	tr := &fakeTranscoder{err: errors.New("ffmpeg exploded")}
	m := &fakeMetrics{}

	uc := New(q, s, r, tr, m, noopLogger(), 0, models.TranscodeOptions{}, "worker-1")

	err := uc.HandleNext(context.Background())
	assert.Error(t, err)
	assert.Equal(t, models.VideoStatusUploaded, r.updated[0].Status)
	assert.Len(t, q.failed, 1)
}

func TestHandleNextUploadFailure(t *testing.T) {
	task := models.Task{ID: "task-1", VideoID: "video-1", SourcePath: "raw/source.mp4"}
	msg := &queue.Message{ID: "msg-1", Task: task}

	q := &fakeQueue{fetchMsg: msg}
	s := &fakeStorage{downloadData: "raw-bytes", uploadErr: errors.New("upload failed")}
	r := &fakeRepo{video: &models.Video{ID: "video-1", Status: models.VideoStatusUploaded}}
	tr := &fakeTranscoder{result: &models.ProcessedVideo{Reader: io.NopCloser(bytes.NewBufferString("processed"))}}
	m := &fakeMetrics{}

	uc := New(q, s, r, tr, m, noopLogger(), 0, models.TranscodeOptions{}, "worker-1")

	err := uc.HandleNext(context.Background())
	assert.Error(t, err)
	assert.Equal(t, models.VideoStatusUploaded, r.updated[0].Status)
	assert.Len(t, q.failed, 1)
}

func TestHandleNextPersistFailureStillFailsMessage(t *testing.T) {
	task := models.Task{ID: "task-1", VideoID: "video-1", SourcePath: "raw/source.mp4"}
	msg := &queue.Message{ID: "msg-1", Task: task}

	q := &fakeQueue{fetchMsg: msg}
	s := &fakeStorage{downloadData: "raw-bytes"}
	r := &fakeRepo{video: &models.Video{ID: "video-1", Status: models.VideoStatusUploaded}, updateErr: errors.New("db down")}
	tr := &fakeTranscoder{result: &models.ProcessedVideo{Reader: io.NopCloser(bytes.NewBufferString("processed"))}}
	m := &fakeMetrics{}

	uc := New(q, s, r, tr, m, noopLogger(), 0, models.TranscodeOptions{}, "worker-1")

	err := uc.HandleNext(context.Background())
	assert.Error(t, err)
	assert.Len(t, q.failed, 1)
	assert.Zero(t, q.acked)
}

func TestHandleNextAckErrorDoesNotFailTask(t *testing.T) {
	task := models.Task{ID: "task-1", VideoID: "video-1", SourcePath: "raw/source.mp4"}
	msg := &queue.Message{ID: "msg-1", Task: task}

	q := &fakeQueue{fetchMsg: msg, ackErr: errors.New("ack transport error")}
	s := &fakeStorage{downloadData: "raw-bytes"}
	r := &fakeRepo{video: &models.Video{ID: "video-1", Status: models.VideoStatusUploaded}}
	tr := &fakeTranscoder{result: &models.ProcessedVideo{Reader: io.NopCloser(bytes.NewBufferString("processed"))}}
	m := &fakeMetrics{}

	uc := New(q, s, r, tr, m, noopLogger(), 0, models.TranscodeOptions{}, "worker-1")

	err := uc.HandleNext(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, models.VideoStatusProcessed, r.updated[0].Status)
}
