package kvstore

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store used by tests and by moodctl when
// inspecting exported records. Safe for concurrent use.
type MemoryStore struct {
	mu        sync.RWMutex
	data      map[string]string
	failed    bool
	failReads bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

// FailWrites makes every subsequent Set/Remove return a StorageError.
// Used by tests exercising persistence degradation.
func (s *MemoryStore) FailWrites(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = fail
}

// FailReads makes every subsequent Get return a StorageError. Used by
// tests exercising degraded session hydration.
func (s *MemoryStore) FailReads(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failReads = fail
}

// Get retrieves the value under key; ok is false if the key is absent.
func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failReads {
		return "", false, &StorageError{Op: "get", Key: key, Err: errReadFailure}
	}
	value, ok := s.data[key]
	return value, ok, nil
}

// Set writes value under key.
func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed {
		return &StorageError{Op: "set", Key: key, Err: errWriteFailure}
	}
	s.data[key] = value
	return nil
}

// Remove deletes key.
func (s *MemoryStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed {
		return &StorageError{Op: "remove", Key: key, Err: errWriteFailure}
	}
	delete(s.data, key)
	return nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

var (
	errWriteFailure = &simulatedFailureError{"simulated write failure"}
	errReadFailure  = &simulatedFailureError{"simulated read failure"}
)

type simulatedFailureError struct{ msg string }

func (e *simulatedFailureError) Error() string { return e.msg }
