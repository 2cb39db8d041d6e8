package domain

import "time"

// Task kinds understood by the worker.
const (
	// TaskKindProcessSource asks a worker to crawl a single source.
	TaskKindProcessSource = "process_source"
)

// Task is the unit of work exchanged over the task queue.
type Task struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	SourceID string `json:"source_id,omitempty"`
	// EnqueuedAt records when the task was handed to the queue.
	EnqueuedAt time.Time `json:"enqueued_at"`
}
