// Package render delivers task list updates to observers. The service
// has no DOM to repaint; renderers translate "the visible lists
// changed" into log events and server-sent event frames instead.
package render

import (
	"go.uber.org/zap"

	"github.com/benvon/moodtask/internal/models"
)

// Update describes one refreshed view for one principal. Bucket is
// the suggested bucket when the update carries the ephemeral
// suggestion list rather than a persisted one.
type Update struct {
	SessionID string        `json:"session_id"`
	Bucket    models.Bucket `json:"bucket"`
	Tasks     []models.Task `json:"tasks"`
}

// Renderer receives view updates after every successful mutation.
type Renderer interface {
	Render(update Update)
}

// LogRenderer records updates as structured log events.
type LogRenderer struct {
	logger *zap.Logger
}

// NewLogRenderer creates a renderer that logs each update.
func NewLogRenderer(logger *zap.Logger) *LogRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogRenderer{logger: logger}
}

// Render logs the update at debug level.
func (r *LogRenderer) Render(update Update) {
	r.logger.Debug("view_rendered",
		zap.String("session_id", update.SessionID),
		zap.String("bucket", string(update.Bucket)),
		zap.Int("task_count", len(update.Tasks)),
	)
}

// MultiRenderer fans one update out to several renderers.
type MultiRenderer struct {
	renderers []Renderer
}

// NewMultiRenderer combines renderers; nil entries are skipped.
func NewMultiRenderer(renderers ...Renderer) *MultiRenderer {
	m := &MultiRenderer{}
	for _, r := range renderers {
		if r != nil {
			m.renderers = append(m.renderers, r)
		}
	}
	return m
}

// Render forwards the update to every renderer.
func (m *MultiRenderer) Render(update Update) {
	for _, r := range m.renderers {
		r.Render(update)
	}
}
