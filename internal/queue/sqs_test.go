package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHydrateSQSTaskPrefersExplicitAttemptParam(t *testing.T) {
	task := hydrateSQSTask(map[string]interface{}{
		"task_id":     "task-1",
		"video_id":    "video-1",
		"source_path": "raw/video-1.mp4",
		"attempt":     "9",
	}, 3)

	assert.Equal(t, 3, task.Attempt)
	assert.Equal(t, "task-1", task.ID)
}

func TestHydrateSQSTaskSpillsUnknownFieldsToMetadata(t *testing.T) {
	task := hydrateSQSTask(map[string]interface{}{
		"task_id":  "task-1",
		"trace_id": "xyz",
	}, 0)

	assert.Equal(t, "xyz", task.Metadata["trace_id"])
	_, hasAttempt := task.Metadata["attempt"]
	assert.False(t, hasAttempt)
}
