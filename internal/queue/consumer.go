package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/polygraphy/digest/internal/domain"
)

const (
	// defaultBlockTimeout is the block timeout for stream reads.
	defaultBlockTimeout = 5 * time.Second
	// defaultBatchSize is the number of messages read per batch.
	defaultBatchSize = 10
	// defaultClaimMinIdle is the minimum idle time before a pending message
	// is reclaimed from a dead consumer.
	defaultClaimMinIdle = 5 * time.Minute
	// defaultMaxDeliveries bounds redelivery before dead-lettering.
	defaultMaxDeliveries = 5
	// maxPendingCheck is the number of pending entries inspected per pass.
	maxPendingCheck = 100
)

// ConsumedTask is a task read from the queue together with its delivery
// metadata.
type ConsumedTask struct {
	MessageID     string
	Task          *domain.Task
	DeliveryCount int64
}

// Consumer reads tasks from the Redis stream via a consumer group.
type Consumer struct {
	client        *StreamsClient
	consumerGroup string
	consumerID    string
	blockTimeout  time.Duration
	batchSize     int64
	claimMinIdle  time.Duration
	maxDeliveries int64
}

// ConsumerConfig holds configuration for the Consumer.
type ConsumerConfig struct {
	ConsumerGroup string
	ConsumerID    string
	BlockTimeout  time.Duration
	BatchSize     int64
	ClaimMinIdle  time.Duration
	MaxDeliveries int64
}

// NewConsumer creates a new task consumer.
func NewConsumer(client *StreamsClient, cfg ConsumerConfig) (*Consumer, error) {
	if cfg.ConsumerID == "" {
		return nil, errors.New("consumer ID is required")
	}
	if cfg.ConsumerGroup == "" {
		return nil, errors.New("consumer group is required")
	}

	blockTimeout := cfg.BlockTimeout
	if blockTimeout <= 0 {
		blockTimeout = defaultBlockTimeout
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	claimMinIdle := cfg.ClaimMinIdle
	if claimMinIdle <= 0 {
		claimMinIdle = defaultClaimMinIdle
	}

	maxDeliveries := cfg.MaxDeliveries
	if maxDeliveries <= 0 {
		maxDeliveries = defaultMaxDeliveries
	}

	return &Consumer{
		client:        client,
		consumerGroup: cfg.ConsumerGroup,
		consumerID:    cfg.ConsumerID,
		blockTimeout:  blockTimeout,
		batchSize:     batchSize,
		claimMinIdle:  claimMinIdle,
		maxDeliveries: maxDeliveries,
	}, nil
}

// Initialize creates the consumer group for the stream.
func (c *Consumer) Initialize(ctx context.Context) error {
	if err := c.client.CreateConsumerGroup(ctx, c.consumerGroup); err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

// Read returns the next batch of tasks. Pending messages idle beyond the
// reclaim threshold are returned before new ones, so work abandoned by a
// crashed worker is retried.
func (c *Consumer) Read(ctx context.Context) ([]*ConsumedTask, error) {
	reclaimed, err := c.reclaimPending(ctx)
	if err != nil {
		return nil, err
	}
	if len(reclaimed) > 0 {
		return reclaimed, nil
	}

	return c.readNew(ctx)
}

// Acknowledge marks a task as successfully processed.
func (c *Consumer) Acknowledge(ctx context.Context, task *ConsumedTask) error {
	if task == nil {
		return errors.New("task cannot be nil")
	}
	return c.client.XAck(ctx, c.consumerGroup, task.MessageID)
}

// Exhausted reports whether the task has used up its delivery budget. The
// worker acknowledges exhausted tasks instead of processing them, which
// dead-letters the work into the log stream.
func (c *Consumer) Exhausted(task *ConsumedTask) bool {
	return task.DeliveryCount > c.maxDeliveries
}

func (c *Consumer) readNew(ctx context.Context) ([]*ConsumedTask, error) {
	streams, err := c.client.XReadGroup(ctx, c.consumerGroup, c.consumerID, c.batchSize, c.blockTimeout)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}

	var tasks []*ConsumedTask
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			task, parseErr := parseTask(msg)
			if parseErr != nil {
				// A message that cannot be decoded will never succeed;
				// acknowledge it so it does not clog the pending list.
				_ = c.client.XAck(ctx, c.consumerGroup, msg.ID)
				continue
			}
			tasks = append(tasks, &ConsumedTask{
				MessageID:     msg.ID,
				Task:          task,
				DeliveryCount: 1,
			})
		}
	}

	return tasks, nil
}

// reclaimPending claims messages from consumers that stopped acknowledging.
func (c *Consumer) reclaimPending(ctx context.Context) ([]*ConsumedTask, error) {
	pending, err := c.client.XPendingExt(ctx, c.consumerGroup, maxPendingCheck)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to inspect pending entries: %w", err)
	}

	var ids []string
	deliveries := make(map[string]int64, len(pending))
	for _, entry := range pending {
		if entry.Idle < c.claimMinIdle {
			continue
		}
		ids = append(ids, entry.ID)
		// The claim below is itself a delivery on top of the recorded count.
		deliveries[entry.ID] = entry.RetryCount + 1
	}
	if len(ids) == 0 {
		return nil, nil
	}

	messages, err := c.client.XClaim(ctx, c.consumerGroup, c.consumerID, c.claimMinIdle, ids...)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to claim pending messages: %w", err)
	}

	var tasks []*ConsumedTask
	for _, msg := range messages {
		task, parseErr := parseTask(msg)
		if parseErr != nil {
			_ = c.client.XAck(ctx, c.consumerGroup, msg.ID)
			continue
		}
		tasks = append(tasks, &ConsumedTask{
			MessageID:     msg.ID,
			Task:          task,
			DeliveryCount: deliveries[msg.ID],
		})
	}

	return tasks, nil
}

func parseTask(msg redis.XMessage) (*domain.Task, error) {
	raw, ok := msg.Values[TaskDataField].(string)
	if !ok {
		return nil, fmt.Errorf("message %s has no task field", msg.ID)
	}

	var task domain.Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		return nil, fmt.Errorf("failed to decode task in message %s: %w", msg.ID, err)
	}

	return &task, nil
}
