// Package worker runs the task consumers that execute crawls dispatched by
// the scheduler.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/polygraphy/digest/internal/config"
	"github.com/polygraphy/digest/internal/domain"
	"github.com/polygraphy/digest/internal/logger"
	"github.com/polygraphy/digest/internal/queue"
)

// Handler executes one crawl task.
type Handler interface {
	ProcessSourceByID(ctx context.Context, sourceID string) error
}

// Guard serializes task execution per source across worker processes.
type Guard interface {
	Acquire(ctx context.Context, sourceID string) (bool, error)
	Release(ctx context.Context, sourceID string) error
}

// Pool reads tasks from the queue and runs them on a fixed set of
// goroutines. Delivery is at-least-once: a task is acknowledged only after
// its handler returns without error, so a crash before the ack redelivers.
type Pool struct {
	consumer     *queue.Consumer
	handler      Handler
	guard        Guard
	logger       logger.Logger
	size         int
	jobTimeout   time.Duration
	drainTimeout time.Duration
}

// NewPool creates a worker pool.
func NewPool(
	consumer *queue.Consumer,
	handler Handler,
	guard Guard,
	cfg config.WorkerConfig,
	log logger.Logger,
) *Pool {
	return &Pool{
		consumer:     consumer,
		handler:      handler,
		guard:        guard,
		logger:       log,
		size:         cfg.PoolSize,
		jobTimeout:   cfg.JobTimeout,
		drainTimeout: cfg.DrainTimeout,
	}
}

// Run starts the pool and blocks until ctx is cancelled. In-flight tasks
// finish before Run returns.
func (p *Pool) Run(ctx context.Context) error {
	if err := p.consumer.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize consumer: %w", err)
	}

	p.logger.Info("worker pool starting", logger.Int("size", p.size))

	tasks := make(chan *queue.ConsumedTask)

	var wg sync.WaitGroup
	for i := 0; i < p.size; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.runWorker(ctx, id, tasks)
		}(i)
	}

	p.readLoop(ctx, tasks)
	close(tasks)

	// Let in-flight tasks finish, but do not hold the process hostage. An
	// abandoned task stays unacknowledged and is redelivered.
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(p.drainTimeout):
		p.logger.Warn("drain timeout elapsed, abandoning in-flight tasks")
	}

	p.logger.Info("worker pool stopped")
	return nil
}

// readLoop feeds the workers until ctx is cancelled. Read errors are logged
// and retried after a short pause so a Redis blip does not kill the process.
func (p *Pool) readLoop(ctx context.Context, tasks chan<- *queue.ConsumedTask) {
	for {
		if ctx.Err() != nil {
			return
		}

		batch, err := p.consumer.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Error("failed to read tasks", logger.Error(err))
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		for _, task := range batch {
			select {
			case tasks <- task:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (p *Pool) runWorker(ctx context.Context, id int, tasks <-chan *queue.ConsumedTask) {
	log := p.logger.With(logger.Int("worker", id))

	for task := range tasks {
		p.handleTask(ctx, log, task)
	}
}

// handleTask runs one task end to end. The shutdown context is deliberately
// not used for the job itself: a task already started should finish during a
// drain, bounded by the job timeout.
func (p *Pool) handleTask(ctx context.Context, log logger.Logger, task *queue.ConsumedTask) {
	if p.consumer.Exhausted(task) {
		// Delivery budget spent. Acknowledge so it stops clogging the
		// pending list and record enough to replay it by hand.
		log.Error("task exhausted delivery attempts, dropping",
			logger.String("task_id", task.Task.ID),
			logger.String("source_id", task.Task.SourceID),
			logger.Int64("deliveries", task.DeliveryCount),
		)
		p.ack(log, task)
		return
	}

	jobCtx, cancel := context.WithTimeout(context.Background(), p.jobTimeout)
	defer cancel()

	acquired, err := p.guard.Acquire(jobCtx, task.Task.SourceID)
	if err != nil {
		log.Error("failed to acquire in-flight lock",
			logger.String("source_id", task.Task.SourceID),
			logger.Error(err),
		)
		return
	}
	if !acquired {
		// Another worker is already crawling this source. The task is
		// redundant, not failed.
		log.Info("source already in flight, skipping task",
			logger.String("source_id", task.Task.SourceID),
		)
		p.ack(log, task)
		return
	}
	defer func() {
		// jobCtx may already be expired when the job ran long; the release
		// must still go through or the source stays locked for the TTL.
		if releaseErr := p.guard.Release(context.Background(), task.Task.SourceID); releaseErr != nil {
			log.Error("failed to release in-flight lock",
				logger.String("source_id", task.Task.SourceID),
				logger.Error(releaseErr),
			)
		}
	}()

	if task.Task.Kind != domain.TaskKindProcessSource {
		log.Error("unknown task kind, dropping",
			logger.String("kind", task.Task.Kind),
			logger.String("task_id", task.Task.ID),
		)
		p.ack(log, task)
		return
	}

	log.Info("processing task",
		logger.String("task_id", task.Task.ID),
		logger.String("source_id", task.Task.SourceID),
		logger.Int64("delivery", task.DeliveryCount),
	)

	if handleErr := p.handler.ProcessSourceByID(jobCtx, task.Task.SourceID); handleErr != nil {
		// Leave the message pending; it will be reclaimed and retried.
		log.Error("task failed",
			logger.String("task_id", task.Task.ID),
			logger.String("source_id", task.Task.SourceID),
			logger.Error(handleErr),
		)
		return
	}

	p.ack(log, task)
}

func (p *Pool) ack(log logger.Logger, task *queue.ConsumedTask) {
	if err := p.consumer.Acknowledge(context.Background(), task); err != nil {
		log.Error("failed to acknowledge task",
			logger.String("message_id", task.MessageID),
			logger.Error(err),
		)
	}
}
