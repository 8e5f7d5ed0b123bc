package models

import (
	"github.com/google/uuid"
)

// Bucket names a task container. Active and Completed are owned and
// persisted; Suggested is the ephemeral view produced by the suggestion
// engine and is never written to storage.
type Bucket string

const (
	BucketActive    Bucket = "active"
	BucketCompleted Bucket = "completed"
	BucketSuggested Bucket = "suggested"
)

// NoDueDate is the sentinel due date for tasks without one.
const NoDueDate = "No Due Date"

// UntitledTask is the fallback title for pool candidates missing both
// name and title.
const UntitledTask = "Untitled Task"

// WeatherAny is the wildcard condition a pool candidate may carry to
// match every weather.
const WeatherAny = "any"

// MoodRange is the inclusive mood interval a pool candidate applies to.
type MoodRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Contains reports whether mood falls inside the range.
func (r MoodRange) Contains(mood int) bool {
	return mood >= r.Min && mood <= r.Max
}

// Task is a single task owned by one identity. Completed is derived
// from bucket membership and only carried on the wire and in storage.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"due_date"`
	Duration    string `json:"duration,omitempty"`
	Completed   bool   `json:"completed"`
}

// NewTask creates an active task with a fresh id.
func NewTask(title, description, duration, dueDate string) Task {
	if dueDate == "" {
		dueDate = NoDueDate
	}
	return Task{
		ID:          uuid.New().String(),
		Title:       title,
		Description: description,
		Duration:    duration,
		DueDate:     dueDate,
	}
}

// Candidate is a raw entry of the external suggestion pool. Either Name
// or Title may carry the display name; DueDate and Duration are both
// optional free-form strings.
type Candidate struct {
	Name              string    `json:"name,omitempty"`
	Title             string    `json:"title,omitempty"`
	Description       string    `json:"description,omitempty"`
	DueDate           string    `json:"dueDate,omitempty"`
	Duration          string    `json:"duration,omitempty"`
	MoodRange         MoodRange `json:"moodRange"`
	WeatherConditions []string  `json:"weatherConditions"`
}

// Matches reports whether the candidate applies to the given mood and
// weather. Weather matches on exact condition or the "any" wildcard.
func (c Candidate) Matches(mood int, weather string) bool {
	if !c.MoodRange.Contains(mood) {
		return false
	}
	for _, w := range c.WeatherConditions {
		if w == WeatherAny || w == weather {
			return true
		}
	}
	return false
}

// Normalize converts the candidate into a Task suitable for the
// suggested view. The assigned id survives promotion into the active
// bucket.
func (c Candidate) Normalize() Task {
	title := c.Name
	if title == "" {
		title = c.Title
	}
	if title == "" {
		title = UntitledTask
	}
	dueDate := c.DueDate
	if dueDate == "" {
		dueDate = c.Duration
	}
	if dueDate == "" {
		dueDate = NoDueDate
	}
	return Task{
		ID:          uuid.New().String(),
		Title:       title,
		Description: c.Description,
		Duration:    c.Duration,
		DueDate:     dueDate,
	}
}

// Pool is the wire shape of the external candidate pool.
type Pool struct {
	Tasks []Candidate `json:"tasks"`
}

// Snapshot is the durable representation of one identity's task store
// at a point in time.
type Snapshot struct {
	Active    []Task `json:"active"`
	Completed []Task `json:"completed"`
}

// EmptySnapshot returns a snapshot with empty (non-nil) buckets, the
// normal result of loading an identity that has never saved.
func EmptySnapshot() Snapshot {
	return Snapshot{Active: []Task{}, Completed: []Task{}}
}
