package file

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/faersight/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/faersight/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore persists settings to <dir>/config.toml. Keys use dot notation
// ("analysis.top_k") and map to nested TOML tables on disk. Typed reads are
// served by an in-memory store; every Set rewrites the file.
type ConfigStore struct {
	*memory.ConfigStore

	saveMu   sync.Mutex
	filePath string
}

// NewConfigStore opens the config file in configDir, or ~/.faersight when
// configDir is empty. A missing file starts an empty store.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".faersight")
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	s := &ConfigStore{
		ConfigStore: memory.NewConfigStore(),
		filePath:    filepath.Join(configDir, "config.toml"),
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Set stores a value and rewrites the file.
func (s *ConfigStore) Set(key string, value any) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if err := s.ConfigStore.Set(key, value); err != nil {
		return err
	}
	return s.write()
}

// Save rewrites the file from the current values.
func (s *ConfigStore) Save() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	return s.write()
}

// write replaces the file atomically. Caller holds saveMu.
func (s *ConfigStore) write() error {
	data, err := toml.Marshal(nestMap(s.Snapshot()))
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmp := s.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, s.filePath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

// Load rereads the file, discarding unsaved values.
func (s *ConfigStore) Load() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if errors.Is(err, fs.ErrNotExist) {
		s.Replace(nil)
		return nil
	}
	if err != nil {
		return err
	}

	var tree map[string]any
	if err := toml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("parse %s: %w", s.filePath, err)
	}
	s.Replace(flattenMap(tree, ""))
	return nil
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

// flattenMap turns nested tables into dotted keys: {"a": {"b": 1}} becomes
// {"a.b": 1}.
func flattenMap(tree map[string]any, prefix string) map[string]any {
	flat := make(map[string]any, len(tree))
	for key, value := range tree {
		if prefix != "" {
			key = prefix + "." + key
		}
		if table, ok := value.(map[string]any); ok {
			maps.Copy(flat, flattenMap(table, key))
			continue
		}
		flat[key] = value
	}
	return flat
}

// nestMap is the inverse of flattenMap. A key that is both a value and a
// table prefix keeps its dotted form at the top level.
func nestMap(flat map[string]any) map[string]any {
	root := make(map[string]any)
	for _, key := range slices.Sorted(maps.Keys(flat)) {
		parts := strings.Split(key, ".")
		node, ok := root, true
		for _, part := range parts[:len(parts)-1] {
			child, exists := node[part]
			if !exists {
				next := make(map[string]any)
				node[part] = next
				node = next
				continue
			}
			next, isTable := child.(map[string]any)
			if !isTable {
				ok = false
				break
			}
			node = next
		}
		leaf := parts[len(parts)-1]
		if _, clash := node[leaf].(map[string]any); !ok || clash {
			root[key] = flat[key]
			continue
		}
		node[leaf] = flat[key]
	}
	return root
}
