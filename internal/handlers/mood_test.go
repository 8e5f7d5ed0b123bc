package handlers

import (
	"net/http"
	"testing"
)

func TestGetMoodDefaults(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env, http.MethodGet, "/api/v1/mood", "s1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var mood MoodResponse
	decodeData(t, rec.Body.Bytes(), &mood)
	if mood.Value != 50 {
		t.Errorf("expected default mood 50, got %d", mood.Value)
	}
	if mood.Weather != "clear" {
		t.Errorf("expected observed weather clear, got %q", mood.Weather)
	}
}

func TestSetMood(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env, http.MethodPost, "/api/v1/mood", "s1", SetMoodRequest{Value: 80, Settled: true})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var mood MoodResponse
	decodeData(t, rec.Body.Bytes(), &mood)
	if mood.Value != 80 {
		t.Errorf("expected mood 80, got %d", mood.Value)
	}
}

func TestSetMoodValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name  string
		value int
	}{
		{"below range", -1},
		{"above range", 101},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, env, http.MethodPost, "/api/v1/mood", "s1", SetMoodRequest{Value: tt.value})
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}
