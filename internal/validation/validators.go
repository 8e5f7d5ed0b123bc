package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/benvon/moodtask/internal/models"
	"github.com/benvon/moodtask/internal/weather"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	// These should never fail in normal operation, but log if they do
	if err := Validate.RegisterValidation("bucket", validateBucket); err != nil {
		panic(fmt.Sprintf("failed to register bucket validator: %v", err))
	}
	if err := Validate.RegisterValidation("weather_condition", validateWeatherCondition); err != nil {
		panic(fmt.Sprintf("failed to register weather_condition validator: %v", err))
	}
	if err := Validate.RegisterValidation("mood", validateMood); err != nil {
		panic(fmt.Sprintf("failed to register mood validator: %v", err))
	}
}

// validateBucket validates that a string is a persisted bucket name
func validateBucket(fl validator.FieldLevel) bool {
	switch models.Bucket(fl.Field().String()) {
	case models.BucketActive, models.BucketCompleted:
		return true
	default:
		return false
	}
}

// validateWeatherCondition validates that a string is a recognized
// weather condition
func validateWeatherCondition(fl validator.FieldLevel) bool {
	return weather.IsValidCondition(fl.Field().String())
}

// validateMood validates that an integer is within the mood scale
func validateMood(fl validator.FieldLevel) bool {
	value := fl.Field().Int()
	return value >= 0 && value <= 100
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	// Trim whitespace
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateBucket validates a bucket name
func ValidateBucket(value string) error {
	switch models.Bucket(value) {
	case models.BucketActive, models.BucketCompleted:
		return nil
	default:
		return fmt.Errorf("invalid bucket: %s (must be 'active' or 'completed')", value)
	}
}

// ValidateWeatherCondition validates a weather condition string value
func ValidateWeatherCondition(value string) error {
	if !weather.IsValidCondition(value) {
		return fmt.Errorf("invalid weather condition: %s (must be one of %s)", value, strings.Join(weather.Conditions, ", "))
	}
	return nil
}

// ValidateMood validates a mood value
func ValidateMood(value int) error {
	if value < 0 || value > 100 {
		return fmt.Errorf("invalid mood: %d (must be between 0 and 100)", value)
	}
	return nil
}
