package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/amankumarsingh77/cloud-video-encoder/internal/metrics"
	"github.com/amankumarsingh77/cloud-video-encoder/internal/models"
	"github.com/amankumarsingh77/cloud-video-encoder/internal/queue"
	"github.com/amankumarsingh77/cloud-video-encoder/internal/storage"
	"github.com/amankumarsingh77/cloud-video-encoder/internal/transcoder"
	"github.com/amankumarsingh77/cloud-video-encoder/internal/videofiles"
	"github.com/amankumarsingh77/cloud-video-encoder/pkg/logger"
)

// ProcessTaskUseCase drives a single task end to end: fetch, load, download,
// transcode, upload, persist, ack. A failed download, transcode or upload
// resets the video row to uploaded before returning; a missing row or a
// failed persist fails the message without another row update.
type ProcessTaskUseCase struct {
	queue             queue.MessageQueue
	storage           storage.Storage
	repository        videofiles.Repository
	transcoder        transcoder.Engine
	metrics           metrics.Recorder
	log               logger.Logger
	processingTimeout time.Duration
	transcodeOptions  models.TranscodeOptions
	workerID          string
}

func New(
	q queue.MessageQueue,
	s storage.Storage,
	repo videofiles.Repository,
	eng transcoder.Engine,
	rec metrics.Recorder,
	log logger.Logger,
	processingTimeout time.Duration,
	transcodeOptions models.TranscodeOptions,
	workerID string,
) *ProcessTaskUseCase {
	return &ProcessTaskUseCase{
		queue:             q,
		storage:           s,
		repository:        repo,
		transcoder:        eng,
		metrics:           rec,
		log:               log,
		processingTimeout: processingTimeout,
		transcodeOptions:  transcodeOptions,
		workerID:          workerID,
	}
}

// HandleNext processes at most one message. A nil error means either a task
// was processed successfully or the queue had nothing to do.
func (u *ProcessTaskUseCase) HandleNext(ctx context.Context) error {
	msg, err := u.queue.Fetch(ctx)
	if err != nil {
		if errors.Is(err, queue.ErrNoMessages) {
			return nil
		}
		u.metrics.IncQueueError(u.workerID)
		u.log.Errorf("fetch from queue failed: %v", err)
		return err
	}

	start := time.Now()
	status := string(models.VideoStatusUploaded)
	defer func() {
		u.metrics.ObserveProcessed(status, u.workerID, time.Since(start))
	}()

	task := msg.Task

	video, err := u.repository.FindByID(ctx, task.VideoID)
	if err != nil {
		status = string(models.VideoStatusFailed)
		u.log.Errorf("video %s not found: %v", task.VideoID, err)
		if failErr := u.queue.Fail(ctx, msg, err); failErr != nil {
			u.log.Errorf("failed to fail message for missing video %s: %v", task.VideoID, failErr)
		}
		return err
	}

	processCtx := ctx
	if u.processingTimeout > 0 {
		var cancel context.CancelFunc
		processCtx, cancel = context.WithTimeout(ctx, u.processingTimeout)
		defer cancel()
	}

	processedURL, processedVideoID, procErr := u.processVideo(processCtx, task)
	if procErr != nil {
		status = string(models.VideoStatusFailed)
		video.ResetToUploaded()
		if updateErr := u.repository.Update(ctx, video); updateErr != nil {
			u.log.Errorf("failed to reset video %s after processing error: %v", task.VideoID, updateErr)
		}
		u.log.Errorf("task %s processing failed: %v", task.ID, procErr)
		if failErr := u.queue.Fail(ctx, msg, procErr); failErr != nil {
			u.log.Errorf("failed to fail message for task %s: %v", task.ID, failErr)
		}
		return procErr
	}

	video.MarkProcessed(time.Now(), processedVideoID, processedURL)
	if err := u.repository.Update(ctx, video); err != nil {
		status = string(models.VideoStatusFailed)
		u.log.Errorf("failed to persist processed video %s: %v", task.VideoID, err)
		if failErr := u.queue.Fail(ctx, msg, err); failErr != nil {
			u.log.Errorf("failed to fail message for task %s: %v", task.ID, failErr)
		}
		return err
	}

	status = string(models.VideoStatusProcessed)
	u.log.Infof("task %s processed video %s successfully", task.ID, video.ID)

	if err := u.queue.Ack(ctx, msg); err != nil {
		u.log.Errorf("ack failed for task %s: %v", task.ID, err)
	}

	return nil
}

// processVideo downloads the raw blob, transcodes it, and uploads the
// result. It returns the output URL/id pair used to mark the row processed.
func (u *ProcessTaskUseCase) processVideo(ctx context.Context, task models.Task) (processedURL, processedVideoID string, err error) {
	reader, err := u.storage.Download(ctx, task.SourcePath)
	if err != nil {
		return "", "", fmt.Errorf("download: %w", err)
	}
	defer reader.Close()

	processed, err := u.transcoder.Process(ctx, reader, u.transcodeOptions)
	if err != nil {
		return "", "", fmt.Errorf("transcode: %w", err)
	}
	defer processed.Close()

	outputID := uuid.NewString()
	outputPath := outputID + ".mp4"

	if err := u.storage.Upload(ctx, outputPath, processed.Reader); err != nil {
		return "", "", fmt.Errorf("upload: %w", err)
	}

	return outputPath, outputID, nil
}
