package render

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// SSEHub broadcasts view updates to subscribed server-sent event
// streams. Subscribers are keyed by session so each stream only sees
// its own principal's updates.
type SSEHub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan []byte]struct{}
	logger      *zap.Logger
}

// NewSSEHub creates an empty hub.
func NewSSEHub(logger *zap.Logger) *SSEHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SSEHub{
		subscribers: make(map[string]map[chan []byte]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a stream for the session and returns the frame
// channel plus an unsubscribe function. The channel is buffered; slow
// consumers drop frames rather than block the mutation path.
func (h *SSEHub) Subscribe(sessionID string) (<-chan []byte, func()) {
	ch := make(chan []byte, 16)

	h.mu.Lock()
	if h.subscribers[sessionID] == nil {
		h.subscribers[sessionID] = make(map[chan []byte]struct{})
	}
	h.subscribers[sessionID][ch] = struct{}{}
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		if subs, ok := h.subscribers[sessionID]; ok {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(h.subscribers, sessionID)
			}
		}
		h.mu.Unlock()
		close(ch)
	}
	return ch, unsubscribe
}

// Render encodes the update and broadcasts it to the session's
// subscribers.
func (h *SSEHub) Render(update Update) {
	frame, err := json.Marshal(update)
	if err != nil {
		h.logger.Error("sse_encode_failed", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subscribers[update.SessionID] {
		select {
		case ch <- frame:
		default:
			h.logger.Debug("sse_frame_dropped", zap.String("session_id", update.SessionID))
		}
	}
}
