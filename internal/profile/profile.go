// Package profile loads the single active UserProfile the ranker scores
// jobs against. spec.md §3 treats the profile as external input the core
// never mutates, so this is a thin read-only file source rather than a
// Store operation, following the teacher's TOML-file config-loading
// convention (internal/config.LoadFromFiles) applied to a second,
// independently-edited file.
package profile

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/careercrawl/orchestrator/internal/models"
)

// FileSource reads UserProfile from a TOML file, caching the parsed
// result until Reload is called. External edits to the file take effect
// only on the next Reload or process restart.
type FileSource struct {
	path string

	mu      sync.Mutex
	cached  *models.UserProfile
}

// NewFileSource returns a FileSource reading from path. The file is
// parsed lazily on first ActiveProfile call.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// ActiveProfile returns the cached profile, loading it from disk on the
// first call.
func (s *FileSource) ActiveProfile(ctx context.Context) (models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil {
		return *s.cached, nil
	}

	loaded, err := s.load()
	if err != nil {
		return models.UserProfile{}, err
	}
	s.cached = loaded
	return *loaded, nil
}

// Reload re-reads the profile file, replacing the cached value. Callers
// that want a running process to pick up an externally-edited profile on
// its next crawl call this between runs; the orchestrator still snapshots
// whatever ActiveProfile returns once per run.
func (s *FileSource) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	loaded, err := s.load()
	if err != nil {
		return err
	}
	s.cached = loaded
	return nil
}

func (s *FileSource) load() (*models.UserProfile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("profile: failed to read %s: %w", s.path, err)
	}

	var p models.UserProfile
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("profile: failed to parse %s: %w", s.path, err)
	}

	if err := validator.New().Struct(&p); err != nil {
		return nil, fmt.Errorf("profile: invalid profile at %s: %w", s.path, err)
	}

	return &p, nil
}
