package store

import (
	"errors"
	"reflect"
	"testing"

	"github.com/benvon/moodtask/internal/models"
)

func task(id, title string) models.Task {
	return models.Task{ID: id, Title: title, DueDate: models.NoDueDate}
}

func TestTaskStore_AddRejectsDuplicateID(t *testing.T) {
	t.Parallel()

	s := New()
	if err := s.Add(task("1", "a"), models.BucketActive); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	err := s.Add(task("1", "b"), models.BucketCompleted)
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
}

func TestTaskStore_MoveTask(t *testing.T) {
	t.Parallel()

	s := New()
	if err := s.Add(task("1", "a"), models.BucketActive); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if err := s.MoveTask("1", models.BucketCompleted); err != nil {
		t.Fatalf("move to completed failed: %v", err)
	}
	if _, bucket, ok := s.Get("1"); !ok || bucket != models.BucketCompleted {
		t.Fatalf("task not in completed bucket after move (bucket=%q ok=%v)", bucket, ok)
	}

	if err := s.MoveTask("1", models.BucketActive); err != nil {
		t.Fatalf("move back to active failed: %v", err)
	}
	if _, bucket, ok := s.Get("1"); !ok || bucket != models.BucketActive {
		t.Fatalf("task not in active bucket after move back (bucket=%q ok=%v)", bucket, ok)
	}
}

func TestTaskStore_MoveTaskIdempotent(t *testing.T) {
	t.Parallel()

	s := New()
	for _, tsk := range []models.Task{task("1", "a"), task("2", "b")} {
		if err := s.Add(tsk, models.BucketActive); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}

	if err := s.MoveTask("1", models.BucketActive); err != nil {
		t.Fatalf("first move failed: %v", err)
	}
	first := s.Snapshot()

	if err := s.MoveTask("1", models.BucketActive); err != nil {
		t.Fatalf("second move failed: %v", err)
	}
	second := s.Snapshot()

	if !reflect.DeepEqual(first, second) {
		t.Errorf("second identical move changed observable state:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestTaskStore_MoveAbsentTaskRejected(t *testing.T) {
	t.Parallel()

	s := New()
	err := s.MoveTask("missing", models.BucketActive)
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
}

func TestTaskStore_RemoveTaskIdempotent(t *testing.T) {
	t.Parallel()

	s := New()
	if err := s.Add(task("1", "a"), models.BucketActive); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	s.RemoveTask("1")
	s.RemoveTask("1") // absent removal is a no-op
	if s.ActiveCount() != 0 {
		t.Errorf("ActiveCount = %d, want 0", s.ActiveCount())
	}
}

func TestTaskStore_SnapshotIsACopy(t *testing.T) {
	t.Parallel()

	s := New()
	if err := s.Add(task("1", "a"), models.BucketActive); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	snap := s.Snapshot()
	snap.Active[0].Title = "mutated"

	got, _, _ := s.Get("1")
	if got.Title != "a" {
		t.Errorf("mutating a snapshot leaked into the store: title = %q", got.Title)
	}
}

func TestTaskStore_ReplaceDiscardsPriorState(t *testing.T) {
	t.Parallel()

	s := New()
	if err := s.Add(task("guest-1", "guest task"), models.BucketActive); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	s.Replace(models.Snapshot{
		Active:    []models.Task{task("user-1", "user task")},
		Completed: []models.Task{task("user-2", "done task")},
	})

	if _, _, ok := s.Get("guest-1"); ok {
		t.Error("prior task survived a wholesale replace")
	}
	if _, bucket, ok := s.Get("user-2"); !ok || bucket != models.BucketCompleted {
		t.Errorf("replacement completed task missing (bucket=%q ok=%v)", bucket, ok)
	}
	completed := s.Completed()
	if len(completed) != 1 || !completed[0].Completed {
		t.Errorf("completed flag not derived from bucket membership: %+v", completed)
	}
}

func TestTaskStore_UpdateRequiresActive(t *testing.T) {
	t.Parallel()

	s := New()
	if err := s.Add(task("1", "a"), models.BucketCompleted); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	err := s.Update(task("1", "edited"))
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("expected InvalidTransitionError editing non-active task, got %v", err)
	}
}
