package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/benvon/moodtask/internal/events"
	"github.com/benvon/moodtask/internal/kvstore"
	"github.com/benvon/moodtask/internal/models"
	"github.com/benvon/moodtask/internal/persistence"
	"github.com/benvon/moodtask/internal/render"
	"github.com/benvon/moodtask/internal/store"
)

type captureRenderer struct {
	mu      sync.Mutex
	updates []render.Update
}

func (r *captureRenderer) Render(update render.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, update)
}

func (r *captureRenderer) lastFor(bucket models.Bucket) (render.Update, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.updates) - 1; i >= 0; i-- {
		if r.updates[i].Bucket == bucket {
			return r.updates[i], true
		}
	}
	return render.Update{}, false
}

type capturePublisher struct {
	mu     sync.Mutex
	events []*events.TaskEvent
}

func (p *capturePublisher) Publish(ctx context.Context, event *events.TaskEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) actions() []events.Action {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Action
	for _, e := range p.events {
		out = append(out, e.Action)
	}
	return out
}

func newTestController(t *testing.T) (*Controller, *kvstore.MemoryStore, *captureRenderer, *capturePublisher) {
	t.Helper()
	kv := kvstore.NewMemoryStore()
	renderer := &captureRenderer{}
	publisher := &capturePublisher{}
	ctrl := NewController("session-1", models.GuestIdentity("session-1"), persistence.New(kv, nil), renderer, publisher, nil)
	return ctrl, kv, renderer, publisher
}

func TestController_AddPersistsAndRenders(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ctrl, kv, renderer, publisher := newTestController(t)

	task, err := ctrl.Add(ctx, "Walk", "go outside", "", "")
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if task.DueDate != models.NoDueDate {
		t.Errorf("due date = %q, want %q", task.DueDate, models.NoDueDate)
	}

	snapshot := ctrl.Snapshot()
	if len(snapshot.Active) != 1 || snapshot.Active[0].Title != "Walk" {
		t.Fatalf("active bucket = %+v, want single Walk", snapshot.Active)
	}

	if _, found, _ := kv.Get(ctx, persistence.GuestKeyPrefix+"session-1"); !found {
		t.Error("add did not persist the snapshot")
	}

	update, ok := renderer.lastFor(models.BucketActive)
	if !ok || len(update.Tasks) != 1 {
		t.Errorf("active view not re-rendered: %+v", update)
	}

	if got := publisher.actions(); len(got) != 1 || got[0] != events.ActionAdded {
		t.Errorf("published actions = %v, want [added]", got)
	}
}

func TestController_PromoteMovesSuggestionToActive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ctrl, _, renderer, _ := newTestController(t)

	suggestion := models.NewTask("Read", "", "", "")
	ctrl.SetSuggestions([]models.Task{suggestion})

	promoted, err := ctrl.Promote(ctx, suggestion.ID)
	if err != nil {
		t.Fatalf("promote failed: %v", err)
	}
	if promoted.ID != suggestion.ID {
		t.Errorf("promoted id = %q, want %q", promoted.ID, suggestion.ID)
	}

	if got := ctrl.Suggestions(); len(got) != 0 {
		t.Errorf("suggestion list still holds %d entries after promotion", len(got))
	}
	snapshot := ctrl.Snapshot()
	if len(snapshot.Active) != 1 || snapshot.Active[0].ID != suggestion.ID {
		t.Errorf("active bucket = %+v, want promoted task", snapshot.Active)
	}

	update, ok := renderer.lastFor(models.BucketSuggested)
	if !ok || len(update.Tasks) != 0 {
		t.Errorf("suggested view not refreshed after promotion: %+v", update)
	}
}

func TestController_PromoteUnknownSuggestionRejected(t *testing.T) {
	t.Parallel()

	ctrl, _, _, _ := newTestController(t)

	_, err := ctrl.Promote(context.Background(), "missing")
	var ite *store.InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
}

func TestController_CompleteAndReturn(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ctrl, _, _, publisher := newTestController(t)

	task, err := ctrl.Add(ctx, "Walk", "", "", "")
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if err := ctrl.Complete(ctx, task.ID); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	snapshot := ctrl.Snapshot()
	if len(snapshot.Active) != 0 || len(snapshot.Completed) != 1 {
		t.Fatalf("after complete: active=%d completed=%d", len(snapshot.Active), len(snapshot.Completed))
	}
	if !snapshot.Completed[0].Completed {
		t.Error("completed task does not carry the completed flag")
	}

	if err := ctrl.Return(ctx, task.ID); err != nil {
		t.Fatalf("return failed: %v", err)
	}
	snapshot = ctrl.Snapshot()
	if len(snapshot.Active) != 1 || len(snapshot.Completed) != 0 {
		t.Fatalf("after return: active=%d completed=%d", len(snapshot.Active), len(snapshot.Completed))
	}

	want := []events.Action{events.ActionAdded, events.ActionCompleted, events.ActionReturned}
	got := publisher.actions()
	if len(got) != len(want) {
		t.Fatalf("published actions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("action[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestController_EditRequiresActive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ctrl, _, _, _ := newTestController(t)

	task, err := ctrl.Add(ctx, "Walk", "", "", "")
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := ctrl.Complete(ctx, task.ID); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	task.Title = "Run"
	err = ctrl.Edit(ctx, task)
	var ite *store.InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("editing a completed task should be rejected, got %v", err)
	}

	if err := ctrl.Return(ctx, task.ID); err != nil {
		t.Fatalf("return failed: %v", err)
	}
	if err := ctrl.Edit(ctx, task); err != nil {
		t.Fatalf("editing an active task failed: %v", err)
	}
	snapshot := ctrl.Snapshot()
	if snapshot.Active[0].Title != "Run" {
		t.Errorf("title = %q, want Run", snapshot.Active[0].Title)
	}
}

func TestController_DeleteIsTerminalAndIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ctrl, _, _, publisher := newTestController(t)

	task, err := ctrl.Add(ctx, "Walk", "", "", "")
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if err := ctrl.Delete(ctx, task.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := ctrl.Delete(ctx, task.ID); err != nil {
		t.Fatalf("second delete failed: %v", err)
	}

	snapshot := ctrl.Snapshot()
	if len(snapshot.Active)+len(snapshot.Completed) != 0 {
		t.Errorf("task survived deletion: %+v", snapshot)
	}

	// One added, one deleted; the repeated delete emits nothing.
	if got := publisher.actions(); len(got) != 2 || got[1] != events.ActionDeleted {
		t.Errorf("published actions = %v, want [added deleted]", got)
	}
}

func TestController_DeleteRemovesSuggestion(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ctrl, kv, renderer, publisher := newTestController(t)

	suggestion := models.NewTask("Read", "", "", "")
	ctrl.SetSuggestions([]models.Task{suggestion})

	if err := ctrl.Delete(ctx, suggestion.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if got := ctrl.Suggestions(); len(got) != 0 {
		t.Errorf("suggestion list still holds %d entries after delete", len(got))
	}

	update, ok := renderer.lastFor(models.BucketSuggested)
	if !ok || len(update.Tasks) != 0 {
		t.Errorf("suggested view not refreshed after delete: %+v", update)
	}

	// Dropping a suggestion touches neither the durable store nor the
	// event stream.
	if _, found, _ := kv.Get(ctx, persistence.GuestKeyPrefix+"session-1"); found {
		t.Error("deleting a suggestion persisted a snapshot")
	}
	if got := publisher.actions(); len(got) != 0 {
		t.Errorf("published actions = %v, want none", got)
	}
}

func TestController_BulkTransitions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ctrl, _, _, _ := newTestController(t)

	for _, title := range []string{"a", "b", "c"} {
		if _, err := ctrl.Add(ctx, title, "", "", ""); err != nil {
			t.Fatalf("add %q failed: %v", title, err)
		}
	}

	if err := ctrl.CompleteAll(ctx); err != nil {
		t.Fatalf("complete all failed: %v", err)
	}
	snapshot := ctrl.Snapshot()
	if len(snapshot.Active) != 0 || len(snapshot.Completed) != 3 {
		t.Fatalf("after complete all: active=%d completed=%d", len(snapshot.Active), len(snapshot.Completed))
	}

	if err := ctrl.ReturnAll(ctx); err != nil {
		t.Fatalf("return all failed: %v", err)
	}
	snapshot = ctrl.Snapshot()
	if len(snapshot.Active) != 3 || len(snapshot.Completed) != 0 {
		t.Fatalf("after return all: active=%d completed=%d", len(snapshot.Active), len(snapshot.Completed))
	}
}

func TestController_SaveFailureDoesNotFailMutation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := kvstore.NewMemoryStore()
	kv.FailWrites(true)
	ctrl := NewController("session-1", models.GuestIdentity("session-1"), persistence.New(kv, nil), nil, nil, nil)

	task, err := ctrl.Add(ctx, "Walk", "", "", "")
	if err != nil {
		t.Fatalf("add should succeed despite save failure, got %v", err)
	}

	snapshot := ctrl.Snapshot()
	if len(snapshot.Active) != 1 || snapshot.Active[0].ID != task.ID {
		t.Errorf("in-memory state lost after save failure: %+v", snapshot)
	}
}

func TestController_ReplaceSwapsState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ctrl, kv, _, _ := newTestController(t)

	if _, err := ctrl.Add(ctx, "guest task", "", "", ""); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	ctrl.SetSuggestions([]models.Task{models.NewTask("old suggestion", "", "", "")})

	incoming := models.Snapshot{
		Active:    []models.Task{models.NewTask("user task", "", "", "")},
		Completed: []models.Task{},
	}
	ctrl.Replace(models.AuthenticatedIdentity("user@example.com"), incoming)

	snapshot := ctrl.Snapshot()
	if len(snapshot.Active) != 1 || snapshot.Active[0].Title != "user task" {
		t.Errorf("replace did not install incoming state: %+v", snapshot.Active)
	}
	if got := ctrl.Suggestions(); len(got) != 0 {
		t.Errorf("suggestion list survived identity switch: %+v", got)
	}
	if got := ctrl.Identity(); got.Kind != models.IdentityAuthenticated {
		t.Errorf("identity = %+v, want authenticated", got)
	}

	// Replace must not persist by itself: the guest slot still holds
	// the pre-switch record written by Add.
	raw, found, err := kv.Get(ctx, persistence.GuestKeyPrefix+"session-1")
	if err != nil || !found {
		t.Fatalf("guest slot missing: found=%v err=%v", found, err)
	}
	if raw == "" {
		t.Error("guest slot empty")
	}
}
