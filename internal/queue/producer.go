package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/polygraphy/digest/internal/domain"
)

// Message field names used on the stream.
const (
	// TaskDataField is the field name for the serialized task.
	TaskDataField = "task"
	// EnqueuedAtField is the field name for the enqueue timestamp.
	EnqueuedAtField = "enqueued_at"
)

// Producer enqueues tasks on the Redis stream.
type Producer struct {
	client *StreamsClient
}

// NewProducer creates a new task producer.
func NewProducer(client *StreamsClient) *Producer {
	return &Producer{client: client}
}

// DispatchCrawl enqueues a process-source task for the given source.
func (p *Producer) DispatchCrawl(ctx context.Context, sourceID string) error {
	task := &domain.Task{
		ID:         uuid.New().String(),
		Kind:       domain.TaskKindProcessSource,
		SourceID:   sourceID,
		EnqueuedAt: time.Now().UTC(),
	}

	_, err := p.Enqueue(ctx, task)
	return err
}

// Enqueue adds a task to the stream and returns the message id.
func (p *Producer) Enqueue(ctx context.Context, task *domain.Task) (string, error) {
	if task == nil {
		return "", fmt.Errorf("task cannot be nil")
	}

	data, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("failed to serialize task: %w", err)
	}

	values := map[string]any{
		TaskDataField:   string(data),
		EnqueuedAtField: task.EnqueuedAt.Format(time.RFC3339),
	}

	messageID, err := p.client.XAdd(ctx, values)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue task: %w", err)
	}

	return messageID, nil
}
