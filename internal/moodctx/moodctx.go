// Package moodctx tracks a principal's current mood and weather and
// schedules suggestion refreshes. Mood adjustments arrive as a stream
// of intermediate values followed by a settled one; only settled
// values trigger a refresh, and that refresh is debounced. Weather
// changes refresh immediately.
package moodctx

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/benvon/moodtask/internal/debounce"
	"github.com/benvon/moodtask/internal/models"
	"github.com/benvon/moodtask/internal/suggest"
)

// DefaultDebounce is the settle window applied to mood adjustments.
const DefaultDebounce = 300 * time.Millisecond

// Context holds the mood and weather state for one principal and
// pushes refreshed suggestion lists to its callback. Refreshes carry
// sequence numbers; results of a refresh that has been superseded are
// discarded, so the callback only ever observes the latest inputs.
type Context struct {
	mu      sync.Mutex
	mood    int
	weather string

	seq       atomic.Uint64
	debouncer *debounce.Debouncer
	engine    *suggest.Engine
	callback  func(tasks []models.Task)
	logger    *zap.Logger
}

// New creates a Context with the default mood and the given initial
// weather. The callback receives every non-stale suggestion list; a
// nil callback drops results.
func New(engine *suggest.Engine, initialWeather string, delay time.Duration, callback func(tasks []models.Task), logger *zap.Logger) *Context {
	if logger == nil {
		logger = zap.NewNop()
	}
	if delay <= 0 {
		delay = DefaultDebounce
	}
	if callback == nil {
		callback = func([]models.Task) {}
	}
	return &Context{
		mood:      models.DefaultMood,
		weather:   initialWeather,
		debouncer: debounce.New(delay),
		engine:    engine,
		callback:  callback,
		logger:    logger,
	}
}

// Mood returns the current mood value.
func (c *Context) Mood() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mood
}

// Weather returns the current weather condition.
func (c *Context) Weather() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.weather
}

// SetMood records a mood value, clamped to [0, 100]. Intermediate
// values (settled=false) only update state; a settled value schedules
// a debounced refresh, so a burst of settled updates still produces a
// single refresh once the burst quiets down.
func (c *Context) SetMood(value int, settled bool) {
	if value < 0 {
		value = 0
	} else if value > 100 {
		value = 100
	}

	c.mu.Lock()
	c.mood = value
	c.mu.Unlock()

	if !settled {
		return
	}
	c.debouncer.Trigger(func() {
		c.refresh(context.Background())
	})
}

// SetWeather records a new weather condition and refreshes
// immediately, bypassing the debounce window.
func (c *Context) SetWeather(condition string) {
	c.mu.Lock()
	c.weather = condition
	c.mu.Unlock()

	go c.refresh(context.Background())
}

// Refresh forces a suggestion refresh with the current state,
// bypassing the debounce window. Used when the principal or view
// changes rather than the inputs.
func (c *Context) Refresh(ctx context.Context) {
	c.refresh(ctx)
}

// Close drops any pending debounced refresh.
func (c *Context) Close() {
	c.debouncer.Cancel()
}

func (c *Context) refresh(ctx context.Context) {
	seq := c.seq.Add(1)

	c.mu.Lock()
	mood := c.mood
	weather := c.weather
	c.mu.Unlock()

	tasks := c.engine.GetFilteredTasks(ctx, mood, weather)

	if c.seq.Load() != seq {
		c.logger.Debug("stale_refresh_discarded",
			zap.Uint64("seq", seq),
			zap.Uint64("latest", c.seq.Load()),
		)
		return
	}
	c.callback(tasks)
}
