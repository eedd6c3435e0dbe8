package file

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/faersight/internal/core/domain"
	"github.com/custodia-labs/faersight/internal/core/ports/driven"
	"github.com/custodia-labs/faersight/internal/logger"
)

var _ driven.PromptStore = (*PromptStore)(nil)

//go:embed defaults/*.txt defaults/README.md
var defaultFS embed.FS

// defaultPrompts holds the built-in prompt for each known name.
var defaultPrompts = loadDefaults()

func loadDefaults() map[string]string {
	entries, err := fs.Glob(defaultFS, "defaults/*.txt")
	if err != nil {
		panic(err)
	}
	prompts := make(map[string]string, len(entries))
	for _, entry := range entries {
		data, err := defaultFS.ReadFile(entry)
		if err != nil {
			panic(err)
		}
		name := strings.TrimSuffix(path.Base(entry), ".txt")
		prompts[name] = strings.TrimSpace(string(data))
	}
	return prompts
}

// PromptStore serves the narration prompts from <dir>/<name>.txt.
// Missing files are seeded from the built-in defaults on first use; a file
// whose %s count differs from its default is ignored.
type PromptStore struct {
	dir string

	seed    sync.Once
	seedErr error

	mu     sync.RWMutex
	loaded map[string]string
}

// NewPromptStore creates a prompt store rooted at dir, or ~/.faersight/prompts
// when dir is empty. Nothing touches the disk until the first Load.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".faersight", "prompts")
	}
	return &PromptStore{dir: dir, loaded: make(map[string]string)}, nil
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.dir
}

// Load returns the prompt template for name.
func (s *PromptStore) Load(name string) (string, error) {
	fallback, known := defaultPrompts[name]
	if !known {
		return "", fmt.Errorf("prompt %q: %w", name, domain.ErrNotFound)
	}

	s.seed.Do(s.seedDefaults)
	if s.seedErr != nil {
		return fallback, nil
	}

	s.mu.RLock()
	prompt, ok := s.loaded[name]
	s.mu.RUnlock()
	if ok {
		return prompt, nil
	}

	prompt = s.read(name, fallback)

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.loaded[name]; ok {
		return cached, nil
	}
	s.loaded[name] = prompt
	return prompt, nil
}

// Reload drops every loaded prompt so edits on disk are picked up.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.loaded = make(map[string]string)
	s.mu.Unlock()
}

func (s *PromptStore) read(name, fallback string) string {
	file := filepath.Join(s.dir, name+".txt")
	data, err := os.ReadFile(file)
	if err != nil {
		logger.Debug("Prompt %s: %v, using built-in", name, err)
		return fallback
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return fallback
	}
	if got, want := strings.Count(prompt, "%s"), strings.Count(fallback, "%s"); got != want {
		logger.Warn("Ignoring %s: %d placeholders, expected %d", file, got, want)
		return fallback
	}
	return prompt
}

// seedDefaults writes any missing prompt file and the README.
func (s *PromptStore) seedDefaults() {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		s.seedErr = fmt.Errorf("create prompt directory: %w", err)
		logger.Warn("Prompt directory unavailable, using built-in prompts: %v", s.seedErr)
		return
	}

	entries, err := fs.ReadDir(defaultFS, "defaults")
	if err != nil {
		s.seedErr = err
		return
	}
	for _, entry := range entries {
		target := filepath.Join(s.dir, entry.Name())
		if _, err := os.Stat(target); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		data, err := defaultFS.ReadFile(path.Join("defaults", entry.Name()))
		if err != nil {
			s.seedErr = err
			return
		}
		if err := os.WriteFile(target, data, 0600); err != nil {
			s.seedErr = fmt.Errorf("write %s: %w", entry.Name(), err)
			logger.Warn("Prompt directory unavailable, using built-in prompts: %v", s.seedErr)
			return
		}
	}
}
