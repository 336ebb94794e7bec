package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	redislib "github.com/go-redis/redis/v8"

	"github.com/amankumarsingh77/cloud-video-encoder/internal/metrics"
	"github.com/amankumarsingh77/cloud-video-encoder/internal/models"
	"github.com/amankumarsingh77/cloud-video-encoder/pkg/logger"
)

// StreamQueue is a consumer-group backed queue over Redis Streams. Every
// worker owns its own consumer name so deliveries never overlap.
type StreamQueue struct {
	client        *redislib.Client
	stream        string
	group         string
	consumer      string
	blockTimeout  time.Duration
	maxDeliveries int
	log           logger.Logger
	metrics       metrics.Recorder
}

func NewStreamQueue(
	ctx context.Context,
	client *redislib.Client,
	stream, group, consumer string,
	blockTimeout time.Duration,
	maxDeliveries int,
	log logger.Logger,
	rec metrics.Recorder,
) (*StreamQueue, error) {
	if err := client.XGroupCreateMkStream(ctx, stream, group, "0").Err(); err != nil {
		if err.Error() != "BUSYGROUP Consumer Group name already exists" {
			return nil, fmt.Errorf("create consumer group: %w", err)
		}
	}

	return &StreamQueue{
		client:        client,
		stream:        stream,
		group:         group,
		consumer:      consumer,
		blockTimeout:  blockTimeout,
		maxDeliveries: maxDeliveries,
		log:           log,
		metrics:       rec,
	}, nil
}

func (q *StreamQueue) Fetch(ctx context.Context) (*Message, error) {
	if q.metrics != nil {
		if size, err := q.client.XLen(ctx, q.stream).Result(); err != nil {
			q.log.Warnf("failed to read stream length for %s: %v", q.stream, err)
		} else {
			q.metrics.SetQueueDepth(q.consumer, float64(size))
		}
	}

	streams, err := q.client.XReadGroup(ctx, &redislib.XReadGroupArgs{
		Group:    q.group,
		Consumer: q.consumer,
		Streams:  []string{q.stream, ">"},
		Count:    1,
		Block:    q.blockTimeout,
	}).Result()
	if errors.Is(err, redislib.Nil) {
		return nil, ErrNoMessages
	}
	if err != nil {
		return nil, err
	}
	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, ErrNoMessages
	}

	xmsg := streams[0].Messages[0]
	return &Message{
		ID:   xmsg.ID,
		Task: hydrateTask(xmsg.Values),
		Raw:  toRawMap(xmsg.Values),
	}, nil
}

func (q *StreamQueue) Ack(ctx context.Context, msg *Message) error {
	if msg == nil {
		return errors.New("queue message is nil")
	}
	if err := q.client.XAck(ctx, q.stream, q.group, msg.ID).Err(); err != nil {
		return err
	}
	if err := q.client.XDel(ctx, q.stream, msg.ID).Err(); err != nil {
		q.log.Warnf("acked message %s but failed to delete it from stream: %v", msg.ID, err)
	}
	return nil
}

func (q *StreamQueue) Fail(ctx context.Context, msg *Message, reason error) error {
	if msg == nil {
		return errors.New("queue message is nil")
	}

	if err := q.client.XAck(ctx, q.stream, q.group, msg.ID).Err(); err != nil {
		q.log.Errorf("failed to ack failed message %s: %v", msg.ID, err)
	}

	if q.maxDeliveries > 0 && msg.Task.Attempt+1 >= q.maxDeliveries {
		q.log.Warnf("discarding task %s after %d deliveries", msg.Task.ID, msg.Task.Attempt+1)
		return nil
	}

	values := map[string]any{
		"task_id":     msg.Task.ID,
		"video_id":    msg.Task.VideoID,
		"source_path": msg.Task.SourcePath,
		"attempt":     msg.Task.Attempt + 1,
	}
	if reason != nil {
		values["error"] = reason.Error()
	}
	for k, v := range msg.Raw {
		if _, exists := values[k]; !exists {
			values[k] = v
		}
	}

	return q.client.XAdd(ctx, &redislib.XAddArgs{Stream: q.stream, Values: values}).Err()
}

func hydrateTask(values map[string]interface{}) models.Task {
	task := models.Task{Metadata: make(map[string]string)}
	for key, value := range values {
		strVal := fmt.Sprint(value)
		switch key {
		case "task_id":
			task.ID = strVal
		case "video_id":
			task.VideoID = strVal
		case "source_path":
			task.SourcePath = strVal
		case "attempt":
			if attempt, err := strconv.Atoi(strVal); err == nil {
				task.Attempt = attempt
			}
		default:
			task.Metadata[key] = strVal
		}
	}
	return task
}

func toRawMap(values map[string]interface{}) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}
