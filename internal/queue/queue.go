package queue

import (
	"context"
	"errors"

	"github.com/amankumarsingh77/cloud-video-encoder/internal/models"
)

// ErrNoMessages is returned by Fetch when the backend has nothing ready and
// the caller should simply retry on its own cadence.
var ErrNoMessages = errors.New("no messages available")

// Message wraps a decoded task together with whatever the backend needs to
// ack, fail or requeue it later.
type Message struct {
	ID   string
	Task models.Task
	Raw  map[string]any
}

// MessageQueue is the transport-agnostic consumer contract shared by the
// Redis Streams and SQS backends.
type MessageQueue interface {
	// Fetch retrieves the next available task message for this consumer. It
	// returns ErrNoMessages, not an error, when the backend is simply empty.
	Fetch(ctx context.Context) (*Message, error)
	// Ack acknowledges successful processing and removes the message.
	Ack(ctx context.Context, msg *Message) error
	// Fail marks a message as failed, requeuing it with an incremented
	// attempt count unless the backend's max-deliveries ceiling is reached.
	Fail(ctx context.Context, msg *Message, reason error) error
}
