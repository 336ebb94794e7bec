package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHydrateTaskExtractsKnownFieldsAndSpillsRestToMetadata(t *testing.T) {
	task := hydrateTask(map[string]interface{}{
		"task_id":     "task-1",
		"video_id":    "video-1",
		"source_path": "raw/video-1.mp4",
		"attempt":     "2",
		"trace_id":    "abc-123",
	})

	assert.Equal(t, "task-1", task.ID)
	assert.Equal(t, "video-1", task.VideoID)
	assert.Equal(t, "raw/video-1.mp4", task.SourcePath)
	assert.Equal(t, 2, task.Attempt)
	assert.Equal(t, "abc-123", task.Metadata["trace_id"])
}

func TestHydrateTaskIgnoresUnparsableAttempt(t *testing.T) {
	task := hydrateTask(map[string]interface{}{
		"task_id": "task-1",
		"attempt": "not-a-number",
	})

	assert.Equal(t, 0, task.Attempt)
}

func TestToRawMapCopiesAllEntries(t *testing.T) {
	values := map[string]interface{}{"a": 1, "b": "two"}
	raw := toRawMap(values)

	assert.Equal(t, values["a"], raw["a"])
	assert.Equal(t, values["b"], raw["b"])

	raw["a"] = 99
	assert.Equal(t, 1, values["a"])
}
