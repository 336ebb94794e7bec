package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amankumarsingh77/cloud-video-encoder/pkg/logger"
)

type countingLogger struct{ logger.Logger }

func (countingLogger) Debug(args ...interface{})                            {}
func (countingLogger) Debugf(template string, args ...interface{})          {}
func (countingLogger) Info(args ...interface{})                             {}
func (countingLogger) Infof(template string, args ...interface{})           {}
func (countingLogger) Warn(args ...interface{})                             {}
func (countingLogger) Warnf(template string, args ...interface{})           {}
func (countingLogger) Error(args ...interface{})                            {}
func (countingLogger) Errorf(template string, args ...interface{})          {}
func (countingLogger) Fatal(args ...interface{})                            {}
func (countingLogger) Fatalf(template string, args ...interface{})          {}
func (c countingLogger) WithFields(fields map[string]interface{}) logger.Logger { return c }

type fakeTask struct {
	calls int32
	err   error
}

func (f *fakeTask) HandleNext(ctx context.Context) error {
	atomic.AddInt32(&f.calls, 1)
	return f.err
}

func TestPoolRunsOneWorkerPerFactoryCall(t *testing.T) {
	var built int32
	pool := NewPool(3, func(workerID string) (Task, error) {
		atomic.AddInt32(&built, 1)
		return &fakeTask{}, nil
	}, countingLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	err := pool.Run(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, int32(3), built)
}

func TestPoolPropagatesFactoryError(t *testing.T) {
	factoryErr := errors.New("boom")
	pool := NewPool(2, func(workerID string) (Task, error) {
		return nil, factoryErr
	}, countingLogger{})

	err := pool.Run(context.Background(), time.Second)
	assert.ErrorIs(t, err, factoryErr)
}

func TestPoolStopsOnContextCancel(t *testing.T) {
	task := &fakeTask{}
	pool := NewPool(1, func(workerID string) (Task, error) {
		return task, nil
	}, countingLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pool.Run(ctx, 100*time.Millisecond)
	require.NoError(t, err)
}
