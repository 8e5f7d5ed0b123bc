// Package store holds the in-memory task buckets for one identity's
// session. A TaskStore is constructed once per session and passed
// explicitly to every collaborator that mutates it; it never persists
// or renders on its own.
package store

import (
	"fmt"

	"github.com/benvon/moodtask/internal/models"
)

// InvalidTransitionError reports a bucket-safety violation the store
// rejected. Callers can match it with errors.As.
type InvalidTransitionError struct {
	TaskID string
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition for task %s: %s", e.TaskID, e.Reason)
}

// TaskStore owns the active and completed buckets for the current
// identity. It assumes a single caller holding the session lock; no
// internal locking is performed.
type TaskStore struct {
	active    []models.Task
	completed []models.Task
}

// New creates an empty TaskStore.
func New() *TaskStore {
	s := &TaskStore{}
	s.Reset()
	return s
}

// Reset empties both buckets. Called on construction and on identity
// teardown before a replacement snapshot is loaded.
func (s *TaskStore) Reset() {
	s.active = []models.Task{}
	s.completed = []models.Task{}
}

// Replace swaps both buckets wholesale with the contents of snapshot.
// Prior state is discarded, never merged.
func (s *TaskStore) Replace(snapshot models.Snapshot) {
	s.active = append([]models.Task{}, snapshot.Active...)
	s.completed = append([]models.Task{}, snapshot.Completed...)
	for i := range s.active {
		s.active[i].Completed = false
	}
	for i := range s.completed {
		s.completed[i].Completed = true
	}
}

// Add appends task to the named owned bucket. Adding a task whose id
// already exists in either bucket is rejected.
func (s *TaskStore) Add(task models.Task, bucket models.Bucket) error {
	if s.contains(task.ID) {
		return &InvalidTransitionError{TaskID: task.ID, Reason: "id already exists in an owned bucket"}
	}
	switch bucket {
	case models.BucketActive:
		task.Completed = false
		s.active = append(s.active, task)
	case models.BucketCompleted:
		task.Completed = true
		s.completed = append(s.completed, task)
	default:
		return &InvalidTransitionError{TaskID: task.ID, Reason: fmt.Sprintf("unknown bucket %q", bucket)}
	}
	return nil
}

// MoveTask removes the task from whichever owned bucket currently
// holds it and appends it to the target bucket. Moving a task that is
// in no owned bucket is rejected.
func (s *TaskStore) MoveTask(taskID string, toBucket models.Bucket) error {
	if toBucket != models.BucketActive && toBucket != models.BucketCompleted {
		return &InvalidTransitionError{TaskID: taskID, Reason: fmt.Sprintf("unknown bucket %q", toBucket)}
	}
	task, found := s.take(taskID)
	if !found {
		return &InvalidTransitionError{TaskID: taskID, Reason: "not found in any owned bucket"}
	}
	return s.Add(task, toBucket)
}

// RemoveTask deletes the task from whichever owned bucket holds it.
// Removing an absent task is a no-op.
func (s *TaskStore) RemoveTask(taskID string) {
	s.take(taskID)
}

// Get returns the task with the given id and the bucket holding it.
func (s *TaskStore) Get(taskID string) (models.Task, models.Bucket, bool) {
	for _, t := range s.active {
		if t.ID == taskID {
			return t, models.BucketActive, true
		}
	}
	for _, t := range s.completed {
		if t.ID == taskID {
			return t, models.BucketCompleted, true
		}
	}
	return models.Task{}, "", false
}

// Update replaces the stored copy of an active task in place,
// preserving its position. Only active tasks are editable; the
// lifecycle controller enforces that before calling.
func (s *TaskStore) Update(task models.Task) error {
	for i, t := range s.active {
		if t.ID == task.ID {
			task.Completed = false
			s.active[i] = task
			return nil
		}
	}
	return &InvalidTransitionError{TaskID: task.ID, Reason: "not found in active bucket"}
}

// Snapshot returns an immutable copy of both buckets for persistence
// or rendering.
func (s *TaskStore) Snapshot() models.Snapshot {
	snap := models.Snapshot{
		Active:    make([]models.Task, len(s.active)),
		Completed: make([]models.Task, len(s.completed)),
	}
	copy(snap.Active, s.active)
	copy(snap.Completed, s.completed)
	for i := range snap.Completed {
		snap.Completed[i].Completed = true
	}
	return snap
}

// Active returns a copy of the active bucket in order.
func (s *TaskStore) Active() []models.Task {
	return append([]models.Task{}, s.active...)
}

// Completed returns a copy of the completed bucket in order.
func (s *TaskStore) Completed() []models.Task {
	out := append([]models.Task{}, s.completed...)
	for i := range out {
		out[i].Completed = true
	}
	return out
}

// ActiveCount returns the number of active tasks.
func (s *TaskStore) ActiveCount() int {
	return len(s.active)
}

func (s *TaskStore) contains(taskID string) bool {
	_, _, ok := s.Get(taskID)
	return ok
}

// take removes and returns the task with the given id from whichever
// bucket holds it.
func (s *TaskStore) take(taskID string) (models.Task, bool) {
	for i, t := range s.active {
		if t.ID == taskID {
			s.active = append(s.active[:i], s.active[i+1:]...)
			return t, true
		}
	}
	for i, t := range s.completed {
		if t.ID == taskID {
			s.completed = append(s.completed[:i], s.completed[i+1:]...)
			return t, true
		}
	}
	return models.Task{}, false
}
