// Package events publishes task lifecycle events to RabbitMQ and
// consumes them for offline aggregation. Publishing is best effort
// from the mutation path; a broker outage never fails a task
// operation.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/benvon/moodtask/internal/models"
)

// Action identifies what happened to a task.
type Action string

const (
	// ActionAdded is emitted when a task enters the active bucket.
	ActionAdded Action = "added"
	// ActionPromoted is emitted when a suggestion becomes an active task.
	ActionPromoted Action = "promoted"
	// ActionCompleted is emitted when a task moves to the completed bucket.
	ActionCompleted Action = "completed"
	// ActionReturned is emitted when a completed task moves back to active.
	ActionReturned Action = "returned"
	// ActionDeleted is emitted when a task is removed entirely.
	ActionDeleted Action = "deleted"
	// ActionEdited is emitted when an active task's fields change.
	ActionEdited Action = "edited"
)

// TaskEvent records one lifecycle transition.
type TaskEvent struct {
	ID         uuid.UUID     `json:"id"`
	Action     Action        `json:"action"`
	SessionID  string        `json:"session_id"`
	TaskID     string        `json:"task_id"`
	TaskTitle  string        `json:"task_title"`
	Bucket     models.Bucket `json:"bucket"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// NewTaskEvent creates an event with a fresh id and timestamp.
func NewTaskEvent(action Action, sessionID string, task models.Task, bucket models.Bucket) *TaskEvent {
	return &TaskEvent{
		ID:         uuid.New(),
		Action:     action,
		SessionID:  sessionID,
		TaskID:     task.ID,
		TaskTitle:  task.Title,
		Bucket:     bucket,
		OccurredAt: time.Now(),
	}
}

// Publisher emits lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, event *TaskEvent) error
	Close() error
}

// Consumer receives lifecycle events for aggregation.
type Consumer interface {
	// Consume delivers events asynchronously until the context is
	// cancelled. The caller acknowledges each message.
	Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error)
	Close() error
}
