package workers

import (
	"context"
	"testing"

	"github.com/benvon/moodtask/internal/events"
	"github.com/benvon/moodtask/internal/kvstore"
	"github.com/benvon/moodtask/internal/models"
)

func TestActivityAggregator_CountsByActionAndSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	agg, err := NewActivityAggregator(ctx, kvstore.NewMemoryStore())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	task := models.NewTask("Walk", "", "", "")
	fixtures := []struct {
		action  events.Action
		session string
	}{
		{events.ActionAdded, "s1"},
		{events.ActionCompleted, "s1"},
		{events.ActionAdded, "s2"},
	}
	for _, f := range fixtures {
		event := events.NewTaskEvent(f.action, f.session, task, models.BucketActive)
		if err := agg.ProcessEvent(ctx, event); err != nil {
			t.Fatalf("process failed: %v", err)
		}
	}

	stats := agg.Snapshot()
	if got := stats.Actions[events.ActionAdded]; got != 2 {
		t.Errorf("added count = %d, want 2", got)
	}
	if got := stats.Actions[events.ActionCompleted]; got != 1 {
		t.Errorf("completed count = %d, want 1", got)
	}
	if got := stats.Sessions["s1"]; got != 2 {
		t.Errorf("s1 count = %d, want 2", got)
	}
	if stats.LastEventAt.IsZero() {
		t.Error("last event timestamp not recorded")
	}
}

func TestActivityAggregator_ResumesFromPersistedCounters(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := kvstore.NewMemoryStore()

	first, err := NewActivityAggregator(ctx, kv)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	event := events.NewTaskEvent(events.ActionAdded, "s1", models.NewTask("Walk", "", "", ""), models.BucketActive)
	if err := first.ProcessEvent(ctx, event); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	second, err := NewActivityAggregator(ctx, kv)
	if err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if got := second.Snapshot().Actions[events.ActionAdded]; got != 1 {
		t.Errorf("resumed added count = %d, want 1", got)
	}
}

func TestActivityAggregator_CorruptCountersDiscarded(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := kvstore.NewMemoryStore()
	if err := kv.Set(ctx, StatsKey, "not json"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	agg, err := NewActivityAggregator(ctx, kv)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	stats := agg.Snapshot()
	if len(stats.Actions) != 0 || len(stats.Sessions) != 0 {
		t.Errorf("corrupt record not discarded: %+v", stats)
	}
}

func TestActivityAggregator_RejectsNilEvent(t *testing.T) {
	t.Parallel()

	agg, err := NewActivityAggregator(context.Background(), kvstore.NewMemoryStore())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := agg.ProcessEvent(context.Background(), nil); err == nil {
		t.Error("nil event accepted")
	}
}
