package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/benvon/moodtask/internal/models"
)

// PoolSource retrieves the external candidate pool. Implementations
// exist for HTTP endpoints, local files, and the AI generator; the
// engine only requires a decoded pool from whichever is wired.
type PoolSource interface {
	Fetch(ctx context.Context) (models.Pool, error)
}

// DefaultFetchTimeout bounds a pool retrieval before it is treated as
// failed.
const DefaultFetchTimeout = 10 * time.Second

// HTTPSource fetches the pool from a URL.
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTPSource creates a source for the given URL.
func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{
		url:    url,
		client: &http.Client{Timeout: DefaultFetchTimeout},
	}
}

// Fetch retrieves and decodes the pool record.
func (s *HTTPSource) Fetch(ctx context.Context) (models.Pool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return models.Pool{}, fmt.Errorf("failed to create pool request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return models.Pool{}, fmt.Errorf("failed to fetch pool: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Pool{}, fmt.Errorf("pool endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Pool{}, fmt.Errorf("failed to read pool response: %w", err)
	}

	var pool models.Pool
	if err := json.Unmarshal(body, &pool); err != nil {
		return models.Pool{}, fmt.Errorf("failed to decode pool: %w", err)
	}
	return pool, nil
}

// FileSource reads the pool from a local JSON file.
type FileSource struct {
	path string
}

// NewFileSource creates a source for the given file path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Fetch reads and decodes the pool file.
func (s *FileSource) Fetch(ctx context.Context) (models.Pool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return models.Pool{}, fmt.Errorf("failed to read pool file: %w", err)
	}
	var pool models.Pool
	if err := json.Unmarshal(data, &pool); err != nil {
		return models.Pool{}, fmt.Errorf("failed to decode pool file: %w", err)
	}
	return pool, nil
}

// StaticSource serves a fixed pool. Used by tests and by moodctl when
// validating pool files.
type StaticSource struct {
	Pool models.Pool
	Err  error
}

// Fetch returns the fixed pool or error.
func (s *StaticSource) Fetch(ctx context.Context) (models.Pool, error) {
	if s.Err != nil {
		return models.Pool{}, s.Err
	}
	return s.Pool, nil
}
