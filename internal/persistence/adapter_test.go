package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"

	"github.com/benvon/moodtask/internal/kvstore"
	"github.com/benvon/moodtask/internal/models"
)

func snapshotTuples(s models.Snapshot) []string {
	var out []string
	for _, t := range s.Active {
		out = append(out, t.Title+"|"+t.Description+"|"+t.DueDate+"|active")
	}
	for _, t := range s.Completed {
		out = append(out, t.Title+"|"+t.Description+"|"+t.DueDate+"|completed")
	}
	sort.Strings(out)
	return out
}

func sampleSnapshot() models.Snapshot {
	return models.Snapshot{
		Active: []models.Task{
			models.NewTask("Walk", "go outside", "", ""),
			models.NewTask("Read", "", "30 minutes", "tomorrow"),
		},
		Completed: []models.Task{
			models.NewTask("Laundry", "", "", ""),
		},
	}
}

func TestAdapter_RoundTripGuest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	adapter := New(kvstore.NewMemoryStore(), nil)
	identity := models.GuestIdentity("session-1")
	snapshot := sampleSnapshot()

	if err := adapter.Save(ctx, identity, snapshot); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := adapter.Load(ctx, identity)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	want := snapshotTuples(snapshot)
	got := snapshotTuples(loaded)
	if len(want) != len(got) {
		t.Fatalf("round trip lost tasks: want %v, got %v", want, got)
	}
	for i := range want {
		if want[i] != got[i] {
			t.Errorf("tuple mismatch at %d: want %q, got %q", i, want[i], got[i])
		}
	}
}

func TestAdapter_RoundTripRegistered(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	adapter := New(kvstore.NewMemoryStore(), nil)
	identity := models.AuthenticatedIdentity("user@example.com")
	snapshot := sampleSnapshot()

	if err := adapter.Save(ctx, identity, snapshot); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := adapter.Load(ctx, identity)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	want := snapshotTuples(snapshot)
	got := snapshotTuples(loaded)
	if len(want) != len(got) {
		t.Fatalf("round trip lost tasks: want %v, got %v", want, got)
	}
	for i := range want {
		if want[i] != got[i] {
			t.Errorf("tuple mismatch at %d: want %q, got %q", i, want[i], got[i])
		}
	}
}

func TestAdapter_LoadMissingReturnsEmpty(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	adapter := New(kvstore.NewMemoryStore(), nil)

	for _, identity := range []models.Identity{
		models.GuestIdentity("fresh-session"),
		models.AuthenticatedIdentity("nobody@example.com"),
	} {
		snapshot, err := adapter.Load(ctx, identity)
		if err != nil {
			t.Fatalf("load for %s returned error: %v", identity.Kind, err)
		}
		if snapshot.Active == nil || snapshot.Completed == nil {
			t.Errorf("load for %s returned nil buckets", identity.Kind)
		}
		if len(snapshot.Active) != 0 || len(snapshot.Completed) != 0 {
			t.Errorf("load for %s returned non-empty snapshot: %+v", identity.Kind, snapshot)
		}
	}
}

func TestAdapter_MalformedStoredTaskExcluded(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := kvstore.NewMemoryStore()
	adapter := New(kv, nil)
	identity := models.GuestIdentity("session-1")

	// One valid record, one missing its title, one missing the
	// completed flag.
	record := map[string]any{
		"active": []map[string]any{
			{"id": "1", "title": "Walk", "description": "", "due_date": "No Due Date", "completed": false},
			{"id": "2", "description": "", "due_date": "No Due Date", "completed": false},
			{"id": "3", "title": "Read", "description": "", "due_date": "No Due Date"},
		},
		"completed": []map[string]any{},
	}
	payload, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	if err := kv.Set(ctx, GuestKeyPrefix+identity.Key, string(payload)); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	snapshot, err := adapter.Load(ctx, identity)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(snapshot.Active) != 1 {
		t.Fatalf("expected 1 surviving task, got %d", len(snapshot.Active))
	}
	if snapshot.Active[0].Title != "Walk" {
		t.Errorf("surviving task = %q, want Walk", snapshot.Active[0].Title)
	}
}

func TestAdapter_GuestAndRegisteredKeysDisjoint(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	adapter := New(kvstore.NewMemoryStore(), nil)
	guest := models.GuestIdentity("session-1")
	user := models.AuthenticatedIdentity("user@example.com")

	guestSnap := models.Snapshot{Active: []models.Task{models.NewTask("guest task", "", "", "")}, Completed: []models.Task{}}
	userSnap := models.Snapshot{Active: []models.Task{models.NewTask("user task", "", "", "")}, Completed: []models.Task{}}

	if err := adapter.Save(ctx, guest, guestSnap); err != nil {
		t.Fatalf("guest save failed: %v", err)
	}
	if err := adapter.Save(ctx, user, userSnap); err != nil {
		t.Fatalf("user save failed: %v", err)
	}

	loadedGuest, err := adapter.Load(ctx, guest)
	if err != nil {
		t.Fatalf("guest load failed: %v", err)
	}
	loadedUser, err := adapter.Load(ctx, user)
	if err != nil {
		t.Fatalf("user load failed: %v", err)
	}

	if len(loadedGuest.Active) != 1 || loadedGuest.Active[0].Title != "guest task" {
		t.Errorf("guest snapshot polluted: %+v", loadedGuest.Active)
	}
	if len(loadedUser.Active) != 1 || loadedUser.Active[0].Title != "user task" {
		t.Errorf("user snapshot polluted: %+v", loadedUser.Active)
	}
}

func TestAdapter_SaveFailureIsStorageError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := kvstore.NewMemoryStore()
	kv.FailWrites(true)
	adapter := New(kv, nil)

	err := adapter.Save(ctx, models.GuestIdentity("s"), models.EmptySnapshot())
	var se *kvstore.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %v", err)
	}
}

func TestAdapter_RegistryLastWriteWins(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	adapter := New(kvstore.NewMemoryStore(), nil)
	identity := models.AuthenticatedIdentity("user@example.com")

	first := models.Snapshot{Active: []models.Task{models.NewTask("first", "", "", "")}, Completed: []models.Task{}}
	second := models.Snapshot{Active: []models.Task{models.NewTask("second", "", "", "")}, Completed: []models.Task{}}

	if err := adapter.Save(ctx, identity, first); err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	if err := adapter.Save(ctx, identity, second); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	loaded, err := adapter.Load(ctx, identity)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded.Active) != 1 || loaded.Active[0].Title != "second" {
		t.Errorf("expected last write to win, got %+v", loaded.Active)
	}
}
