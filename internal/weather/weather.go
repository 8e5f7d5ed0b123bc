// Package weather supplies the current weather observation used to
// filter task suggestions. The default provider fabricates plausible
// observations rather than calling a real meteorological service.
package weather

import (
	"context"
	"math/rand"
)

// Conditions is the closed set of recognized weather conditions, in a
// stable order for clients that render pickers.
var Conditions = []string{"clear", "clouds", "rain", "snow", "thunderstorm", "mist"}

// Observation is a single weather reading. Temperature is in degrees
// Celsius, humidity in percent, wind speed in meters per second.
type Observation struct {
	Condition   string  `json:"condition"`
	Temperature float64 `json:"temperature"`
	Humidity    int     `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
}

// Provider produces weather observations.
type Provider interface {
	Observe(ctx context.Context) (Observation, error)
}

// IsValidCondition reports whether the condition belongs to the
// recognized set.
func IsValidCondition(condition string) bool {
	for _, c := range Conditions {
		if c == condition {
			return true
		}
	}
	return false
}

// RandomProvider fabricates observations with uniformly sampled
// conditions and readings within realistic bounds.
type RandomProvider struct{}

// NewRandomProvider creates a fabricating provider.
func NewRandomProvider() *RandomProvider {
	return &RandomProvider{}
}

// Observe returns a fabricated observation: temperature in [-5, 30),
// humidity in [0, 100], wind speed in [0, 15).
func (p *RandomProvider) Observe(ctx context.Context) (Observation, error) {
	return Observation{
		Condition:   Conditions[rand.Intn(len(Conditions))],
		Temperature: -5 + rand.Float64()*35,
		Humidity:    rand.Intn(101),
		WindSpeed:   rand.Float64() * 15,
	}, nil
}

// StaticProvider returns a fixed observation. Used by tests.
type StaticProvider struct {
	Observation Observation
	Err         error
}

// Observe returns the fixed observation or error.
func (p *StaticProvider) Observe(ctx context.Context) (Observation, error) {
	if p.Err != nil {
		return Observation{}, p.Err
	}
	return p.Observation, nil
}
