// Package session ties one principal's task controller and mood
// context together and maps incoming requests to them. Each session
// starts as a guest; logging in switches the session to the account's
// snapshot and logging out switches it back.
package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/benvon/moodtask/internal/lifecycle"
	"github.com/benvon/moodtask/internal/models"
	"github.com/benvon/moodtask/internal/moodctx"
	"github.com/benvon/moodtask/internal/persistence"
)

// Session is the per-principal unit of state. The embedded controller
// serializes task mutations; identity switches are serialized by the
// controller as well because Replace takes the same lock as every
// mutation.
type Session struct {
	id      string
	ctrl    *lifecycle.Controller
	mood    *moodctx.Context
	adapter *persistence.Adapter
	logger  *zap.Logger
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Controller returns the session's task controller.
func (s *Session) Controller() *lifecycle.Controller {
	return s.ctrl
}

// Mood returns the session's mood and weather context.
func (s *Session) Mood() *moodctx.Context {
	return s.mood
}

// Identity returns the principal the session currently serves.
func (s *Session) Identity() models.Identity {
	return s.ctrl.Identity()
}

// SwitchTo changes the acting principal. The outgoing snapshot is
// saved first and must succeed before anything else happens; then the
// incoming snapshot is loaded and installed wholesale. A failed save
// aborts the switch so the outgoing principal's tasks are never lost.
func (s *Session) SwitchTo(ctx context.Context, identity models.Identity) error {
	current := s.ctrl.Identity()
	if current == identity {
		return nil
	}

	if err := s.adapter.Save(ctx, current, s.ctrl.Snapshot()); err != nil {
		return fmt.Errorf("failed to save outgoing snapshot: %w", err)
	}

	snapshot, err := s.adapter.Load(ctx, identity)
	if err != nil {
		return fmt.Errorf("failed to load incoming snapshot: %w", err)
	}

	s.ctrl.Replace(identity, snapshot)
	s.logger.Info("identity_switched",
		zap.String("session_id", s.id),
		zap.String("from", string(current.Kind)),
		zap.String("to", string(identity.Kind)),
	)

	// The new principal starts with an empty suggestion list; refresh
	// it against the session's current mood and weather.
	s.mood.Refresh(ctx)
	return nil
}

// Close releases the session's scheduled work.
func (s *Session) Close() {
	s.mood.Close()
}
