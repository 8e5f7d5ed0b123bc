// Package persistence maps task snapshots to and from the durable
// key-value store. Two storage domains exist: a registry of per-account
// snapshots under a single key, looked up by scanning for the account
// key, and one guest slot per session marker. The two domains never
// overlap and are never merged.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/benvon/moodtask/internal/kvstore"
	"github.com/benvon/moodtask/internal/models"
)

const (
	// RegistryKey is the single key holding the per-account registry.
	RegistryKey = "moodtask:users"
	// GuestKeyPrefix prefixes the per-session guest slots.
	GuestKeyPrefix = "moodtask:guest:"
)

// ValidationError reports a stored task record that failed shape
// validation during hydration. Such records are excluded from the
// hydrated buckets, not surfaced to the user.
type ValidationError struct {
	Key string
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("stored record under %q failed validation: %v", e.Key, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// storedTask is the durable wire shape of one task. Pointer fields let
// the validator distinguish missing fields from zero values.
type storedTask struct {
	ID          *string `json:"id" validate:"required"`
	Title       *string `json:"title" validate:"required"`
	Description *string `json:"description" validate:"required"`
	DueDate     *string `json:"due_date" validate:"required"`
	Duration    *string `json:"duration,omitempty"`
	Completed   *bool   `json:"completed" validate:"required"`
}

// registryEntry is one account's record inside the registry list.
type registryEntry struct {
	AccountKey string       `json:"account_key"`
	Tasks      []storedTask `json:"tasks"`
}

// Adapter serializes snapshots to the key-value store. A single caller
// per identity is assumed; back-to-back saves are last-write-wins.
type Adapter struct {
	kv       kvstore.Store
	validate *validator.Validate
	logger   *zap.Logger
}

// New creates an adapter over the given store.
func New(kv kvstore.Store, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		kv:       kv,
		validate: validator.New(),
		logger:   logger,
	}
}

// Save writes the snapshot under the identity's storage domain. Write
// failures return a StorageError the caller must treat as non-fatal.
func (a *Adapter) Save(ctx context.Context, identity models.Identity, snapshot models.Snapshot) error {
	if identity.IsGuest() {
		return a.saveGuest(ctx, identity, snapshot)
	}
	return a.saveRegistered(ctx, identity, snapshot)
}

// Load reads and hydrates the snapshot for identity. A missing record
// is the normal empty case and returns empty buckets without error;
// records failing validation are silently excluded from the result.
func (a *Adapter) Load(ctx context.Context, identity models.Identity) (models.Snapshot, error) {
	if identity.IsGuest() {
		return a.loadGuest(ctx, identity)
	}
	return a.loadRegistered(ctx, identity)
}

func (a *Adapter) saveGuest(ctx context.Context, identity models.Identity, snapshot models.Snapshot) error {
	key := GuestKeyPrefix + identity.Key
	payload, err := json.Marshal(encodeSnapshot(snapshot))
	if err != nil {
		return &kvstore.StorageError{Op: "encode", Key: key, Err: err}
	}
	return a.kv.Set(ctx, key, string(payload))
}

func (a *Adapter) loadGuest(ctx context.Context, identity models.Identity) (models.Snapshot, error) {
	key := GuestKeyPrefix + identity.Key
	raw, ok, err := a.kv.Get(ctx, key)
	if err != nil {
		return models.EmptySnapshot(), err
	}
	if !ok {
		return models.EmptySnapshot(), nil
	}

	var record struct {
		Active    []json.RawMessage `json:"active"`
		Completed []json.RawMessage `json:"completed"`
	}
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		a.logger.Warn("guest_record_unreadable", zap.String("key", key), zap.Error(err))
		return models.EmptySnapshot(), nil
	}

	snapshot := models.EmptySnapshot()
	snapshot.Active = a.hydrateBucket(key, record.Active, false)
	snapshot.Completed = a.hydrateBucket(key, record.Completed, true)
	return snapshot, nil
}

func (a *Adapter) saveRegistered(ctx context.Context, identity models.Identity, snapshot models.Snapshot) error {
	entries, err := a.readRegistry(ctx)
	if err != nil {
		return err
	}

	entry := registryEntry{AccountKey: identity.Key, Tasks: encodeFlat(snapshot)}
	replaced := false
	for i := range entries {
		if entries[i].AccountKey == identity.Key {
			entries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, entry)
	}

	payload, err := json.Marshal(entries)
	if err != nil {
		return &kvstore.StorageError{Op: "encode", Key: RegistryKey, Err: err}
	}
	return a.kv.Set(ctx, RegistryKey, string(payload))
}

func (a *Adapter) loadRegistered(ctx context.Context, identity models.Identity) (models.Snapshot, error) {
	entries, err := a.readRegistry(ctx)
	if err != nil {
		return models.EmptySnapshot(), err
	}

	for _, entry := range entries {
		if entry.AccountKey != identity.Key {
			continue
		}
		snapshot := models.EmptySnapshot()
		for _, st := range entry.Tasks {
			if err := a.validate.Struct(st); err != nil {
				a.logger.Debug("stored_task_excluded",
					zap.String("account_key", identity.Key),
					zap.Error(&ValidationError{Key: RegistryKey, Err: err}),
				)
				continue
			}
			task := decodeStored(st)
			if *st.Completed {
				snapshot.Completed = append(snapshot.Completed, task)
			} else {
				snapshot.Active = append(snapshot.Active, task)
			}
		}
		return snapshot, nil
	}
	return models.EmptySnapshot(), nil
}

// hydrateBucket validates raw task records and drops the malformed
// ones. Exclusion is silent apart from a debug log entry.
func (a *Adapter) hydrateBucket(key string, raw []json.RawMessage, completed bool) []models.Task {
	out := []models.Task{}
	for _, msg := range raw {
		var st storedTask
		if err := json.Unmarshal(msg, &st); err != nil {
			a.logger.Debug("stored_task_excluded", zap.String("key", key), zap.Error(err))
			continue
		}
		if err := a.validate.Struct(st); err != nil {
			a.logger.Debug("stored_task_excluded",
				zap.String("key", key),
				zap.Error(&ValidationError{Key: key, Err: err}),
			)
			continue
		}
		task := decodeStored(st)
		task.Completed = completed
		out = append(out, task)
	}
	return out
}

func (a *Adapter) readRegistry(ctx context.Context) ([]registryEntry, error) {
	raw, ok, err := a.kv.Get(ctx, RegistryKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []registryEntry{}, nil
	}
	var entries []registryEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		a.logger.Warn("registry_record_unreadable", zap.Error(err))
		return []registryEntry{}, nil
	}
	return entries, nil
}

func encodeSnapshot(snapshot models.Snapshot) map[string][]storedTask {
	return map[string][]storedTask{
		"active":    encodeTasks(snapshot.Active, false),
		"completed": encodeTasks(snapshot.Completed, true),
	}
}

// encodeFlat flattens both buckets into one list with completed flags,
// the registry's task shape.
func encodeFlat(snapshot models.Snapshot) []storedTask {
	tasks := encodeTasks(snapshot.Active, false)
	return append(tasks, encodeTasks(snapshot.Completed, true)...)
}

func encodeTasks(tasks []models.Task, completed bool) []storedTask {
	out := make([]storedTask, 0, len(tasks))
	for _, t := range tasks {
		t := t
		c := completed
		out = append(out, storedTask{
			ID:          &t.ID,
			Title:       &t.Title,
			Description: &t.Description,
			DueDate:     &t.DueDate,
			Duration:    &t.Duration,
			Completed:   &c,
		})
	}
	return out
}

func decodeStored(st storedTask) models.Task {
	task := models.Task{
		ID:          *st.ID,
		Title:       *st.Title,
		Description: *st.Description,
		DueDate:     *st.DueDate,
		Completed:   *st.Completed,
	}
	if st.Duration != nil {
		task.Duration = *st.Duration
	}
	return task
}
