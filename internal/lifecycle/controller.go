// Package lifecycle coordinates task state transitions. Every mutation
// follows the same sequence: apply to the in-memory store, persist the
// full snapshot, refresh the rendered views, and emit a lifecycle
// event. Persistence and event failures are logged and never roll back
// or fail the mutation.
package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/benvon/moodtask/internal/events"
	"github.com/benvon/moodtask/internal/models"
	"github.com/benvon/moodtask/internal/persistence"
	"github.com/benvon/moodtask/internal/render"
	"github.com/benvon/moodtask/internal/store"
)

// Controller owns one principal's task state: the persisted active and
// completed buckets plus the ephemeral suggestion list. Its mutex
// serializes mutations, so at most one transition is in flight per
// principal at any time.
type Controller struct {
	mu        sync.Mutex
	sessionID string
	identity  models.Identity
	store     *store.TaskStore
	suggested []models.Task

	adapter   *persistence.Adapter
	renderer  render.Renderer
	publisher events.Publisher
	logger    *zap.Logger
}

// NewController creates a controller for one session. The publisher
// may be nil when no broker is configured.
func NewController(sessionID string, identity models.Identity, adapter *persistence.Adapter, renderer render.Renderer, publisher events.Publisher, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderer == nil {
		renderer = render.NewMultiRenderer()
	}
	return &Controller{
		sessionID: sessionID,
		identity:  identity,
		store:     store.New(),
		adapter:   adapter,
		renderer:  renderer,
		publisher: publisher,
		logger:    logger,
	}
}

// Identity returns the principal the controller currently serves.
func (c *Controller) Identity() models.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// Snapshot returns a copy of the persisted buckets.
func (c *Controller) Snapshot() models.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Snapshot()
}

// Suggestions returns a copy of the ephemeral suggestion list.
func (c *Controller) Suggestions() []models.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Task, len(c.suggested))
	copy(out, c.suggested)
	return out
}

// SetSuggestions replaces the suggestion list and re-renders the
// suggested view. Suggestions are never persisted.
func (c *Controller) SetSuggestions(tasks []models.Task) {
	c.mu.Lock()
	c.suggested = make([]models.Task, len(tasks))
	copy(c.suggested, tasks)
	suggested := c.suggestedLocked()
	c.mu.Unlock()

	c.renderer.Render(render.Update{SessionID: c.sessionID, Bucket: models.BucketSuggested, Tasks: suggested})
}

// Add creates a task from user input and places it in the active
// bucket.
func (c *Controller) Add(ctx context.Context, title, description, duration, dueDate string) (models.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	task := models.NewTask(title, description, duration, dueDate)
	if err := c.store.Add(task, models.BucketActive); err != nil {
		return models.Task{}, err
	}
	c.finishLocked(ctx, events.ActionAdded, task, models.BucketActive)
	return task, nil
}

// Promote moves a suggestion into the active bucket and removes it
// from the suggestion list.
func (c *Controller) Promote(ctx context.Context, suggestedID string) (models.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := -1
	for i, task := range c.suggested {
		if task.ID == suggestedID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.Task{}, &store.InvalidTransitionError{TaskID: suggestedID, Reason: "no such suggestion"}
	}

	task := c.suggested[idx]
	if err := c.store.Add(task, models.BucketActive); err != nil {
		return models.Task{}, err
	}
	c.suggested = append(c.suggested[:idx], c.suggested[idx+1:]...)

	c.finishLocked(ctx, events.ActionPromoted, task, models.BucketActive)
	c.renderer.Render(render.Update{SessionID: c.sessionID, Bucket: models.BucketSuggested, Tasks: c.suggestedLocked()})
	return task, nil
}

// Complete moves an active task to the completed bucket.
func (c *Controller) Complete(ctx context.Context, taskID string) error {
	return c.move(ctx, taskID, models.BucketCompleted, events.ActionCompleted)
}

// Return moves a completed task back to the active bucket.
func (c *Controller) Return(ctx context.Context, taskID string) error {
	return c.move(ctx, taskID, models.BucketActive, events.ActionReturned)
}

func (c *Controller) move(ctx context.Context, taskID string, to models.Bucket, action events.Action) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.MoveTask(taskID, to); err != nil {
		return err
	}
	task, _, _ := c.store.Get(taskID)
	c.finishLocked(ctx, action, task, to)
	return nil
}

// Delete removes a task from whichever structure holds it: an owned
// bucket or the ephemeral suggestion list. Deletion is terminal.
func (c *Controller) Delete(ctx context.Context, taskID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	task, bucket, found := c.store.Get(taskID)
	c.store.RemoveTask(taskID)
	if !found {
		// Not owned; it may be a suggestion. Dropping one only
		// changes the suggested view, nothing is persisted or
		// published.
		for i, suggested := range c.suggested {
			if suggested.ID == taskID {
				c.suggested = append(c.suggested[:i], c.suggested[i+1:]...)
				c.renderer.Render(render.Update{SessionID: c.sessionID, Bucket: models.BucketSuggested, Tasks: c.suggestedLocked()})
				return nil
			}
		}
		// Idempotent: deleting an absent task succeeds without
		// persisting or emitting anything.
		return nil
	}
	c.finishLocked(ctx, events.ActionDeleted, task, bucket)
	return nil
}

// Edit replaces the title, description, duration, and due date of an
// active task. Completed tasks must be returned to active before they
// can change.
func (c *Controller) Edit(ctx context.Context, task models.Task) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Update(task); err != nil {
		return err
	}
	updated, _, _ := c.store.Get(task.ID)
	c.finishLocked(ctx, events.ActionEdited, updated, models.BucketActive)
	return nil
}

// CompleteAll moves every active task to the completed bucket in one
// mutation.
func (c *Controller) CompleteAll(ctx context.Context) error {
	return c.moveAll(ctx, models.BucketCompleted, events.ActionCompleted)
}

// ReturnAll moves every completed task back to the active bucket in
// one mutation.
func (c *Controller) ReturnAll(ctx context.Context) error {
	return c.moveAll(ctx, models.BucketActive, events.ActionReturned)
}

func (c *Controller) moveAll(ctx context.Context, to models.Bucket, action events.Action) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := c.store.Snapshot()
	source := snapshot.Completed
	if to == models.BucketCompleted {
		source = snapshot.Active
	}
	if len(source) == 0 {
		return nil
	}

	for _, task := range source {
		if err := c.store.MoveTask(task.ID, to); err != nil {
			return fmt.Errorf("bulk move failed at task %s: %w", task.ID, err)
		}
	}
	c.persistAndRenderLocked(ctx)
	for _, task := range source {
		c.publishLocked(ctx, action, task, to)
	}
	return nil
}

// Replace swaps the controller's entire persisted state for the given
// snapshot without persisting or emitting events. Used when switching
// principals.
func (c *Controller) Replace(identity models.Identity, snapshot models.Snapshot) {
	c.mu.Lock()
	c.identity = identity
	c.store.Replace(snapshot)
	c.suggested = nil
	c.mu.Unlock()

	c.renderAll()
}

// finishLocked runs the post-mutation sequence: persist, render,
// publish. Callers hold the mutex.
func (c *Controller) finishLocked(ctx context.Context, action events.Action, task models.Task, bucket models.Bucket) {
	c.persistAndRenderLocked(ctx)
	c.publishLocked(ctx, action, task, bucket)
}

func (c *Controller) persistAndRenderLocked(ctx context.Context) {
	snapshot := c.store.Snapshot()
	if err := c.adapter.Save(ctx, c.identity, snapshot); err != nil {
		// The in-memory state is already mutated; surface the
		// degradation and carry on.
		c.logger.Error("task_save_failed",
			zap.String("session_id", c.sessionID),
			zap.String("identity", string(c.identity.Kind)),
			zap.Error(err),
		)
	}

	c.renderer.Render(render.Update{SessionID: c.sessionID, Bucket: models.BucketActive, Tasks: snapshot.Active})
	c.renderer.Render(render.Update{SessionID: c.sessionID, Bucket: models.BucketCompleted, Tasks: snapshot.Completed})
}

func (c *Controller) publishLocked(ctx context.Context, action events.Action, task models.Task, bucket models.Bucket) {
	if c.publisher == nil {
		return
	}
	event := events.NewTaskEvent(action, c.sessionID, task, bucket)
	if err := c.publisher.Publish(ctx, event); err != nil {
		c.logger.Warn("event_publish_failed",
			zap.String("action", string(action)),
			zap.String("task_id", task.ID),
			zap.Error(err),
		)
	}
}

func (c *Controller) suggestedLocked() []models.Task {
	out := make([]models.Task, len(c.suggested))
	copy(out, c.suggested)
	return out
}

func (c *Controller) renderAll() {
	c.mu.Lock()
	snapshot := c.store.Snapshot()
	suggested := c.suggestedLocked()
	c.mu.Unlock()

	c.renderer.Render(render.Update{SessionID: c.sessionID, Bucket: models.BucketActive, Tasks: snapshot.Active})
	c.renderer.Render(render.Update{SessionID: c.sessionID, Bucket: models.BucketCompleted, Tasks: snapshot.Completed})
	c.renderer.Render(render.Update{SessionID: c.sessionID, Bucket: models.BucketSuggested, Tasks: suggested})
}
