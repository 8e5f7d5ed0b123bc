package session

import (
	"context"
	"testing"

	"github.com/benvon/moodtask/internal/kvstore"
	"github.com/benvon/moodtask/internal/models"
	"github.com/benvon/moodtask/internal/persistence"
	"github.com/benvon/moodtask/internal/suggest"
	"github.com/benvon/moodtask/internal/weather"
)

func newTestManager(kv kvstore.Store) *Manager {
	return NewManager(Config{
		Adapter: persistence.New(kv, nil),
		Engine:  suggest.NewEngine(&suggest.StaticSource{Pool: models.Pool{}}, nil),
		Weather: &weather.StaticProvider{Observation: weather.Observation{Condition: "clear"}},
	})
}

func TestManager_GetOrCreateIsStable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newTestManager(kvstore.NewMemoryStore())
	defer m.Close()

	first, err := m.GetOrCreate(ctx, "session-1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	second, err := m.GetOrCreate(ctx, "session-1")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if first != second {
		t.Error("same id produced two sessions")
	}
	if m.Count() != 1 {
		t.Errorf("session count = %d, want 1", m.Count())
	}

	other, err := m.GetOrCreate(ctx, "session-2")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if other == first {
		t.Error("distinct ids share a session")
	}
}

func TestSession_StartsAsGuestWithPersistedTasks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := kvstore.NewMemoryStore()

	adapter := persistence.New(kv, nil)
	seed := models.Snapshot{
		Active:    []models.Task{models.NewTask("persisted", "", "", "")},
		Completed: []models.Task{},
	}
	if err := adapter.Save(ctx, models.GuestIdentity("session-1"), seed); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	m := newTestManager(kv)
	defer m.Close()

	s, err := m.GetOrCreate(ctx, "session-1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if !s.Identity().IsGuest() {
		t.Errorf("new session identity = %+v, want guest", s.Identity())
	}
	snapshot := s.Controller().Snapshot()
	if len(snapshot.Active) != 1 || snapshot.Active[0].Title != "persisted" {
		t.Errorf("session did not hydrate the guest slot: %+v", snapshot.Active)
	}
}

func TestManager_GetOrCreateDegradesWhenLoadFails(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := kvstore.NewMemoryStore()
	kv.FailReads(true)

	m := newTestManager(kv)
	defer m.Close()

	// Unreadable storage must not block session creation: the session
	// starts with an empty snapshot and keeps serving from memory.
	s, err := m.GetOrCreate(ctx, "session-1")
	if err != nil {
		t.Fatalf("session creation failed on unreadable storage: %v", err)
	}

	snapshot := s.Controller().Snapshot()
	if len(snapshot.Active)+len(snapshot.Completed) != 0 {
		t.Errorf("degraded session not empty: %+v", snapshot)
	}

	if _, err := s.Controller().Add(ctx, "still works", "", "", ""); err != nil {
		t.Fatalf("add failed on degraded session: %v", err)
	}
	if got := s.Controller().Snapshot(); len(got.Active) != 1 {
		t.Errorf("degraded session lost the added task: %+v", got)
	}
}

func TestSession_SwitchToSavesThenLoads(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := kvstore.NewMemoryStore()
	adapter := persistence.New(kv, nil)

	user := models.AuthenticatedIdentity("user@example.com")
	if err := adapter.Save(ctx, user, models.Snapshot{
		Active:    []models.Task{models.NewTask("user task", "", "", "")},
		Completed: []models.Task{},
	}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	m := newTestManager(kv)
	defer m.Close()
	s, err := m.GetOrCreate(ctx, "session-1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := s.Controller().Add(ctx, "guest task", "", "", ""); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if err := s.SwitchTo(ctx, user); err != nil {
		t.Fatalf("switch failed: %v", err)
	}
	snapshot := s.Controller().Snapshot()
	if len(snapshot.Active) != 1 || snapshot.Active[0].Title != "user task" {
		t.Errorf("switch did not install account snapshot: %+v", snapshot.Active)
	}

	// Switching back restores the guest's saved tasks.
	if err := s.SwitchTo(ctx, models.GuestIdentity("session-1")); err != nil {
		t.Fatalf("switch back failed: %v", err)
	}
	snapshot = s.Controller().Snapshot()
	if len(snapshot.Active) != 1 || snapshot.Active[0].Title != "guest task" {
		t.Errorf("guest snapshot lost across round trip: %+v", snapshot.Active)
	}
}

func TestSession_SwitchToSameIdentityIsNoop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newTestManager(kvstore.NewMemoryStore())
	defer m.Close()
	s, err := m.GetOrCreate(ctx, "session-1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := s.Controller().Add(ctx, "kept", "", "", ""); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := s.SwitchTo(ctx, models.GuestIdentity("session-1")); err != nil {
		t.Fatalf("noop switch failed: %v", err)
	}
	if got := s.Controller().Snapshot(); len(got.Active) != 1 {
		t.Errorf("noop switch changed state: %+v", got)
	}
}

func TestSession_FailedSaveAbortsSwitch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := kvstore.NewMemoryStore()
	m := newTestManager(kv)
	defer m.Close()
	s, err := m.GetOrCreate(ctx, "session-1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := s.Controller().Add(ctx, "guest task", "", "", ""); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	kv.FailWrites(true)
	err = s.SwitchTo(ctx, models.AuthenticatedIdentity("user@example.com"))
	if err == nil {
		t.Fatal("switch succeeded despite failed save")
	}

	if !s.Identity().IsGuest() {
		t.Errorf("identity changed after aborted switch: %+v", s.Identity())
	}
	if got := s.Controller().Snapshot(); len(got.Active) != 1 || got.Active[0].Title != "guest task" {
		t.Errorf("state changed after aborted switch: %+v", got.Active)
	}
}
