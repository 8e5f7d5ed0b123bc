// Package workers contains the background consumers that run in the
// worker process, separate from the API server.
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/benvon/moodtask/internal/events"
	"github.com/benvon/moodtask/internal/kvstore"
)

// StatsKey is where the aggregator persists its counters.
const StatsKey = "moodtask:stats"

// Stats is the aggregate view of task activity across all sessions.
type Stats struct {
	Actions     map[events.Action]int64 `json:"actions"`
	Sessions    map[string]int64        `json:"sessions"`
	LastEventAt time.Time               `json:"last_event_at"`
}

// NewStats creates empty counters.
func NewStats() *Stats {
	return &Stats{
		Actions:  make(map[events.Action]int64),
		Sessions: make(map[string]int64),
	}
}

// ActivityAggregator consumes task lifecycle events and maintains
// rolling counters in the KV store so dashboards can read them without
// touching the API server.
type ActivityAggregator struct {
	mu    sync.Mutex
	stats *Stats
	kv    kvstore.Store
}

// NewActivityAggregator creates an aggregator, resuming from any
// previously persisted counters.
func NewActivityAggregator(ctx context.Context, kv kvstore.Store) (*ActivityAggregator, error) {
	a := &ActivityAggregator{stats: NewStats(), kv: kv}

	raw, found, err := kv.Get(ctx, StatsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read stats: %w", err)
	}
	if found {
		if err := json.Unmarshal([]byte(raw), a.stats); err != nil {
			// Corrupt counters are dropped rather than blocking the
			// worker; aggregation restarts from zero.
			log.Printf("Discarding unreadable stats record: %v", err)
			a.stats = NewStats()
		}
		if a.stats.Actions == nil {
			a.stats.Actions = make(map[events.Action]int64)
		}
		if a.stats.Sessions == nil {
			a.stats.Sessions = make(map[string]int64)
		}
	}
	return a, nil
}

// ProcessEvent folds one event into the counters and persists them.
func (a *ActivityAggregator) ProcessEvent(ctx context.Context, event *events.TaskEvent) error {
	if event == nil {
		return fmt.Errorf("event is required")
	}

	a.mu.Lock()
	a.stats.Actions[event.Action]++
	a.stats.Sessions[event.SessionID]++
	a.stats.LastEventAt = event.OccurredAt
	payload, err := json.Marshal(a.stats)
	a.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	if err := a.kv.Set(ctx, StatsKey, string(payload)); err != nil {
		return fmt.Errorf("failed to persist stats: %w", err)
	}
	return nil
}

// Snapshot returns a copy of the current counters.
func (a *ActivityAggregator) Snapshot() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := Stats{
		Actions:     make(map[events.Action]int64, len(a.stats.Actions)),
		Sessions:    make(map[string]int64, len(a.stats.Sessions)),
		LastEventAt: a.stats.LastEventAt,
	}
	for k, v := range a.stats.Actions {
		out.Actions[k] = v
	}
	for k, v := range a.stats.Sessions {
		out.Sessions[k] = v
	}
	return out
}

// Run consumes events until the context is cancelled. Events that
// fail to process are sent to the dead letter queue.
func (a *ActivityAggregator) Run(ctx context.Context, consumer events.Consumer, prefetchCount int) error {
	msgChan, errChan, err := consumer.Consume(ctx, prefetchCount)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errChan:
			if !ok {
				return nil
			}
			log.Printf("Consumer error: %v", err)
		case msg, ok := <-msgChan:
			if !ok {
				return nil
			}
			if err := a.ProcessEvent(ctx, msg.Event); err != nil {
				log.Printf("Failed to process event %s: %v", msg.Event.ID, err)
				_ = msg.Nack(false)
				continue
			}
			if err := msg.Ack(); err != nil {
				log.Printf("Failed to ack event %s: %v", msg.Event.ID, err)
			}
		}
	}
}
