package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/benvon/moodtask/internal/kvstore"
	"github.com/benvon/moodtask/internal/middleware"
	"github.com/benvon/moodtask/internal/models"
	"github.com/benvon/moodtask/internal/persistence"
	"github.com/benvon/moodtask/internal/session"
	"github.com/benvon/moodtask/internal/suggest"
	"github.com/benvon/moodtask/internal/weather"
)

// testPool covers the default mood of 50 under clear weather plus one
// candidate that never matches, so filtered suggestion tests have both
// positive and negative material.
func testPool() models.Pool {
	return models.Pool{Tasks: []models.Candidate{
		{
			Name:              "Take a walk",
			MoodRange:         models.MoodRange{Min: 0, Max: 100},
			WeatherConditions: []string{"clear"},
		},
		{
			Name:              "Watch a storm",
			MoodRange:         models.MoodRange{Min: 0, Max: 100},
			WeatherConditions: []string{"thunderstorm"},
		},
	}}
}

type testEnv struct {
	router  *mux.Router
	manager *session.Manager
	kv      *kvstore.MemoryStore
}

// newTestEnv wires a full request path: session middleware in front of
// an /api/v1 router with every handler registered, backed by an
// in-memory store and a static pool.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	kv := kvstore.NewMemoryStore()
	adapter := persistence.New(kv, zap.NewNop())
	engine := suggest.NewEngine(&suggest.StaticSource{Pool: testPool()}, zap.NewNop())
	provider := &weather.StaticProvider{Observation: weather.Observation{Condition: "clear"}}

	manager := session.NewManager(session.Config{
		Adapter:  adapter,
		Engine:   engine,
		Weather:  provider,
		Debounce: time.Millisecond,
		Logger:   zap.NewNop(),
	})
	t.Cleanup(manager.Close)

	api := mux.NewRouter().PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Session(manager, zap.NewNop()))
	NewTaskHandler().RegisterRoutes(api.PathPrefix("/tasks").Subrouter())
	NewMoodHandler().RegisterRoutes(api.PathPrefix("/mood").Subrouter())
	NewWeatherHandler(provider).RegisterRoutes(api.PathPrefix("/weather").Subrouter())
	NewSuggestionHandler().RegisterRoutes(api.PathPrefix("/suggestions").Subrouter())
	NewAuthHandler(nil, nil).RegisterRoutes(api.PathPrefix("/auth").Subrouter())

	return &testEnv{router: api, manager: manager, kv: kv}
}

// envelope is the standard response wrapper.
type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	Message   string          `json:"message"`
	Timestamp string          `json:"timestamp"`
}

func decodeEnvelope(t *testing.T, body []byte) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("failed to decode response envelope: %v", err)
	}
	return env
}

func decodeData(t *testing.T, body []byte, out any) {
	t.Helper()
	env := decodeEnvelope(t, body)
	if !env.Success {
		t.Fatalf("expected success envelope, got error %q: %s", env.Error, env.Message)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("failed to decode response data: %v", err)
	}
}

func withSessionHeader(r *http.Request, sessionID string) *http.Request {
	r.Header.Set(middleware.SessionHeader, sessionID)
	return r
}
