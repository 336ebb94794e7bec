package worker

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/amankumarsingh77/cloud-video-encoder/pkg/logger"
)

// Task is the narrow interface the pool drives — one HandleNext call per
// loop iteration. usecase.ProcessTaskUseCase satisfies it.
type Task interface {
	HandleNext(ctx context.Context) error
}

// Factory builds one Task per worker so that each gets its own queue
// adapter instance (disjoint consumer names / receive sessions) while
// sharing everything else.
type Factory func(workerID string) (Task, error)

const errorCooldown = 500 * time.Millisecond

// Pool runs N concurrent workers, each looping HandleNext until its context
// is canceled, with a cool-down pause after a transport error.
type Pool struct {
	size    int
	factory Factory
	log     logger.Logger
}

func NewPool(size int, factory Factory, log logger.Logger) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{size: size, factory: factory, log: log}
}

// Run spawns the pool and blocks until ctx is canceled, then waits up to
// gracePeriod for in-flight iterations to finish.
func (p *Pool) Run(ctx context.Context, gracePeriod time.Duration) error {
	var wg sync.WaitGroup

	for i := 0; i < p.size; i++ {
		workerID := strconv.Itoa(i + 1)
		task, err := p.factory(workerID)
		if err != nil {
			return err
		}

		wg.Add(1)
		go func(id string, t Task) {
			defer wg.Done()
			p.loop(ctx, id, t)
		}(workerID, task)
	}

	<-ctx.Done()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(gracePeriod):
		p.log.Warnf("worker pool shutdown timed out after %s", gracePeriod)
	}

	return nil
}

func (p *Pool) loop(ctx context.Context, workerID string, task Task) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := task.HandleNext(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			p.log.Errorf("worker %s iteration failed: %v", workerID, err)

			select {
			case <-ctx.Done():
				return
			case <-time.After(errorCooldown):
			}
		}
	}
}
