package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/benvon/moodtask/internal/events"
	"github.com/benvon/moodtask/internal/lifecycle"
	"github.com/benvon/moodtask/internal/models"
	"github.com/benvon/moodtask/internal/moodctx"
	"github.com/benvon/moodtask/internal/persistence"
	"github.com/benvon/moodtask/internal/render"
	"github.com/benvon/moodtask/internal/suggest"
	"github.com/benvon/moodtask/internal/weather"
)

// Config carries the shared dependencies every session is built from.
type Config struct {
	Adapter   *persistence.Adapter
	Engine    *suggest.Engine
	Renderer  render.Renderer
	Publisher events.Publisher
	Weather   weather.Provider
	Debounce  time.Duration
	Logger    *zap.Logger
}

// Manager creates sessions on first use and hands back existing ones
// on subsequent requests.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	cfg      Config
	logger   *zap.Logger
}

// NewManager creates an empty manager.
func NewManager(cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Weather == nil {
		cfg.Weather = weather.NewRandomProvider()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		logger:   cfg.Logger,
	}
}

// GetOrCreate returns the session for the id, creating it as a guest
// session when it does not exist yet. New sessions start with any
// previously persisted guest snapshot and a freshly observed weather
// condition.
func (m *Manager) GetOrCreate(ctx context.Context, sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[sessionID]; ok {
		return s, nil
	}

	identity := models.GuestIdentity(sessionID)
	ctrl := lifecycle.NewController(sessionID, identity, m.cfg.Adapter, m.cfg.Renderer, m.cfg.Publisher, m.logger)

	obs, err := m.cfg.Weather.Observe(ctx)
	if err != nil {
		m.logger.Warn("weather_observe_failed", zap.Error(err))
		obs.Condition = weather.Conditions[0]
	}

	mood := moodctx.New(m.cfg.Engine, obs.Condition, m.cfg.Debounce, ctrl.SetSuggestions, m.logger)

	s := &Session{
		id:      sessionID,
		ctrl:    ctrl,
		mood:    mood,
		adapter: m.cfg.Adapter,
		logger:  m.logger,
	}

	// An unreadable snapshot must not take the API down with it: the
	// session starts empty, in memory only, and keeps serving.
	snapshot, err := m.cfg.Adapter.Load(ctx, identity)
	if err != nil {
		m.logger.Warn("snapshot_load_failed_persistence_degraded",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		snapshot = models.EmptySnapshot()
	}
	ctrl.Replace(identity, snapshot)

	m.sessions[sessionID] = s
	m.logger.Info("session_created",
		zap.String("session_id", sessionID),
		zap.String("weather", obs.Condition),
	)
	return s, nil
}

// Get returns an existing session or nil.
func (m *Manager) Get(sessionID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[sessionID]
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close releases every session.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		s.Close()
		delete(m.sessions, id)
	}
}
