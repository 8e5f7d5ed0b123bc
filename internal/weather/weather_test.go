package weather

import (
	"context"
	"testing"
)

func TestRandomProvider_ObservationBounds(t *testing.T) {
	t.Parallel()

	provider := NewRandomProvider()
	for i := 0; i < 200; i++ {
		obs, err := provider.Observe(context.Background())
		if err != nil {
			t.Fatalf("observe failed: %v", err)
		}
		if !IsValidCondition(obs.Condition) {
			t.Fatalf("unrecognized condition %q", obs.Condition)
		}
		if obs.Temperature < -5 || obs.Temperature >= 30 {
			t.Fatalf("temperature %v out of bounds", obs.Temperature)
		}
		if obs.Humidity < 0 || obs.Humidity > 100 {
			t.Fatalf("humidity %d out of bounds", obs.Humidity)
		}
		if obs.WindSpeed < 0 || obs.WindSpeed >= 15 {
			t.Fatalf("wind speed %v out of bounds", obs.WindSpeed)
		}
	}
}

func TestIsValidCondition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		condition string
		want      bool
	}{
		{"clear", true},
		{"clouds", true},
		{"rain", true},
		{"snow", true},
		{"thunderstorm", true},
		{"mist", true},
		{"any", false},
		{"Clear", false},
		{"", false},
		{"hail", false},
	}

	for _, tt := range tests {
		if got := IsValidCondition(tt.condition); got != tt.want {
			t.Errorf("IsValidCondition(%q) = %v, want %v", tt.condition, got, tt.want)
		}
	}
}
