package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/faersight/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/faersight/internal/core/ports/driven"
	"github.com/custodia-labs/faersight/internal/logger"
)

// DBFile is the database file name inside the data directory.
const DBFile = "embeddings.db"

// Ensure Store implements the interface.
var _ driven.EmbeddingStore = (*Store)(nil)

// Store is a SQLite-backed embedding cache.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.faersight/data/embeddings.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".faersight", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DBFile)

	s, err := open(dbPath)
	if err == nil {
		return s, nil
	}

	// The file exists but is not a usable cache. Keep it for inspection
	// and start again with an empty one.
	if _, statErr := os.Stat(dbPath); statErr != nil {
		return nil, err
	}
	logger.Warn("embedding cache %s is unreadable (%v); starting a new one", dbPath, err)
	if moveErr := moveAside(dbPath); moveErr != nil {
		return nil, fmt.Errorf("%w (moving aside: %w)", err, moveErr)
	}
	return open(dbPath)
}

func open(dbPath string) (*Store, error) {
	// WAL mode for concurrent readers
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

func moveAside(dbPath string) error {
	if err := os.Rename(dbPath, dbPath+".corrupt"); err != nil {
		return err
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(dbPath + suffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_embedding_cache.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.apply(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) apply(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(script); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// LoadAll returns every decodable entry for the model.
func (s *Store) LoadAll(ctx context.Context, model string) (map[string][]float32, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT text, dims, vector FROM embeddings WHERE model = ?", model)
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]float32)
	skipped := 0
	for rows.Next() {
		var (
			text string
			dims int
			blob []byte
		)
		if err := rows.Scan(&text, &dims, &blob); err != nil {
			skipped++
			continue
		}
		vec, ok := decodeVector(blob, dims)
		if !ok {
			skipped++
			continue
		}
		out[text] = vec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading embeddings: %w", err)
	}
	if skipped > 0 {
		logger.Warn("embedding cache: skipped %d malformed entries for %s", skipped, model)
	}
	return out, nil
}

// Get returns a single entry. A malformed entry reads as a miss.
func (s *Store) Get(ctx context.Context, model, text string) ([]float32, bool, error) {
	var (
		dims int
		blob []byte
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT dims, vector FROM embeddings WHERE model = ? AND text = ?", model, text).
		Scan(&dims, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("getting embedding: %w", err)
	}
	vec, ok := decodeVector(blob, dims)
	if !ok {
		return nil, false, nil
	}
	return vec, true, nil
}

// Put upserts one entry in a single statement.
func (s *Store) Put(ctx context.Context, model, text string, vector []float32) error {
	if len(vector) == 0 {
		return errors.New("sqlite: refusing to store an empty vector")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO embeddings (model, text, dims, vector)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(model, text) DO UPDATE SET
			dims = excluded.dims,
			vector = excluded.vector
	`, model, text, len(vector), encodeVector(vector))
	if err != nil {
		return fmt.Errorf("saving embedding: %w", err)
	}
	return nil
}

// Count returns the number of entries stored for the model.
func (s *Store) Count(ctx context.Context, model string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM embeddings WHERE model = ?", model).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting embeddings: %w", err)
	}
	return n, nil
}

// encodeVector converts a []float32 to a little-endian byte slice.
func encodeVector(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector converts a blob back to []float32, rejecting blobs whose
// length disagrees with the recorded dimensions.
func decodeVector(data []byte, dims int) ([]float32, bool) {
	if dims <= 0 || len(data) != dims*4 {
		return nil, false
	}
	floats := make([]float32, dims)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats, true
}
