package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/amankumarsingh77/cloud-video-encoder/internal/metrics"
	"github.com/amankumarsingh77/cloud-video-encoder/internal/models"
	"github.com/amankumarsingh77/cloud-video-encoder/pkg/logger"
)

// SQSQueue is a visibility-timeout backed queue over AWS SQS. The delivery
// attempt count starts from SQS's own ApproximateReceiveCount attribute
// (minus one); an explicit "attempt" field in the message body, as written
// by Fail on a retry, takes precedence over it.
type SQSQueue struct {
	client        *sqs.Client
	queueURL      string
	maxDeliveries int
	waitSeconds   int32
	log           logger.Logger
	metrics       metrics.Recorder
	workerID      string
}

func NewSQSQueue(
	ctx context.Context,
	queueURL, region string,
	maxDeliveries int,
	waitSeconds int32,
	log logger.Logger,
	rec metrics.Recorder,
	workerID string,
) (*SQSQueue, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &SQSQueue{
		client:        sqs.NewFromConfig(cfg),
		queueURL:      queueURL,
		maxDeliveries: maxDeliveries,
		waitSeconds:   waitSeconds,
		log:           log,
		metrics:       rec,
		workerID:      workerID,
	}, nil
}

func (q *SQSQueue) Fetch(ctx context.Context) (*Message, error) {
	if q.metrics != nil {
		attrs, err := q.client.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
			QueueUrl:       aws.String(q.queueURL),
			AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameApproximateNumberOfMessages},
		})
		if err != nil {
			q.log.Warnf("failed to read queue depth for %s: %v", q.queueURL, err)
		} else if attrs.Attributes != nil {
			if raw, ok := attrs.Attributes[string(types.QueueAttributeNameApproximateNumberOfMessages)]; ok {
				if count, err := strconv.ParseFloat(raw, 64); err == nil {
					q.metrics.SetQueueDepth(q.workerID, count)
				}
			}
		}
	}

	result, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: 1,
		WaitTimeSeconds:     q.waitSeconds,
		AttributeNames:      []types.QueueAttributeName{types.QueueAttributeName("ApproximateReceiveCount")},
	})
	if err != nil {
		return nil, fmt.Errorf("receive message: %w", err)
	}
	if len(result.Messages) == 0 {
		return nil, ErrNoMessages
	}

	msg := result.Messages[0]

	var body map[string]interface{}
	if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &body); err != nil {
		q.log.Errorf("malformed sqs message %s: %v", aws.ToString(msg.MessageId), err)
		_, _ = q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
			QueueUrl:      aws.String(q.queueURL),
			ReceiptHandle: msg.ReceiptHandle,
		})
		return nil, fmt.Errorf("parse message body: %w", err)
	}

	attempt := 0
	if msg.Attributes != nil {
		if raw, ok := msg.Attributes["ApproximateReceiveCount"]; ok {
			if count, err := strconv.Atoi(raw); err == nil {
				attempt = count - 1
			}
		}
	}
	if raw, ok := body["attempt"]; ok {
		if count, err := strconv.Atoi(fmt.Sprint(raw)); err == nil {
			attempt = count
		}
	}

	return &Message{
		ID:   aws.ToString(msg.ReceiptHandle),
		Task: hydrateSQSTask(body, attempt),
		Raw:  body,
	}, nil
}

func (q *SQSQueue) Ack(ctx context.Context, msg *Message) error {
	if msg == nil {
		return errors.New("queue message is nil")
	}
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(msg.ID),
	})
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

func (q *SQSQueue) Fail(ctx context.Context, msg *Message, reason error) error {
	if msg == nil {
		return errors.New("queue message is nil")
	}

	if q.maxDeliveries > 0 && msg.Task.Attempt+1 >= q.maxDeliveries {
		q.log.Warnf("discarding task %s after %d deliveries", msg.Task.ID, msg.Task.Attempt+1)
		_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
			QueueUrl:      aws.String(q.queueURL),
			ReceiptHandle: aws.String(msg.ID),
		})
		return err
	}

	body := map[string]interface{}{
		"task_id":     msg.Task.ID,
		"video_id":    msg.Task.VideoID,
		"source_path": msg.Task.SourcePath,
		"attempt":     msg.Task.Attempt + 1,
	}
	if reason != nil {
		body["error"] = reason.Error()
	}
	for k, v := range msg.Raw {
		if k != "task_id" && k != "video_id" && k != "source_path" && k != "attempt" {
			body[k] = v
		}
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal retry body: %w", err)
	}

	if _, err := q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(encoded)),
	}); err != nil {
		return fmt.Errorf("send retry message: %w", err)
	}

	if _, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(msg.ID),
	}); err != nil {
		q.log.Errorf("failed to delete original message %s: %v", msg.ID, err)
	}

	return nil
}

func hydrateSQSTask(values map[string]interface{}, attempt int) models.Task {
	task := models.Task{Attempt: attempt, Metadata: make(map[string]string)}
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
		default:
			task.Metadata[key] = strVal
		}
	}
	return task
}
