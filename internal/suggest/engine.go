// Package suggest produces small, relevant, randomized sets of
// candidate tasks filtered against the current mood and weather.
package suggest

import (
	"context"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/benvon/moodtask/internal/models"
)

// MaxSuggestions caps every result set.
const MaxSuggestions = 4

// PoolFetchError reports an unreachable or malformed candidate pool.
// Non-fatal: the engine degrades to an empty result set.
type PoolFetchError struct {
	Err error
}

func (e *PoolFetchError) Error() string {
	return fmt.Sprintf("candidate pool unavailable: %v", e.Err)
}

func (e *PoolFetchError) Unwrap() error {
	return e.Err
}

// Engine filters and samples the candidate pool. Overlapping calls are
// not serialized here; callers discard stale results by sequence
// number.
type Engine struct {
	source PoolSource
	logger *zap.Logger
}

// NewEngine creates an engine over the given pool source.
func NewEngine(source PoolSource, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{source: source, logger: logger}
}

// LoadPool retrieves the candidate pool. Retrieval failure returns an
// empty pool and logs a PoolFetchError; it never propagates to the
// caller.
func (e *Engine) LoadPool(ctx context.Context) models.Pool {
	pool, err := e.source.Fetch(ctx)
	if err != nil {
		e.logger.Warn("pool_fetch_failed", zap.Error(&PoolFetchError{Err: err}))
		return models.Pool{Tasks: []models.Candidate{}}
	}
	return pool
}

// GetFilteredTasks loads the pool, keeps candidates matching the mood
// and weather, normalizes their fields, applies an unseeded
// Fisher-Yates permutation, and returns at most MaxSuggestions tasks.
// Repeated calls with identical inputs may order differently; that is
// intended.
func (e *Engine) GetFilteredTasks(ctx context.Context, mood int, weather string) []models.Task {
	pool := e.LoadPool(ctx)

	filtered := make([]models.Task, 0, len(pool.Tasks))
	for _, candidate := range pool.Tasks {
		if candidate.Matches(mood, weather) {
			filtered = append(filtered, candidate.Normalize())
		}
	}

	shuffle(filtered)

	if len(filtered) > MaxSuggestions {
		filtered = filtered[:MaxSuggestions]
	}
	return filtered
}

// shuffle applies an in-place Fisher-Yates permutation.
func shuffle(tasks []models.Task) {
	for i := len(tasks) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		tasks[i], tasks[j] = tasks[j], tasks[i]
	}
}
