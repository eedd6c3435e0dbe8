package driven

import "context"

// EmbeddingStore persists text embeddings keyed by model and exact text.
//
// Entries are append-only: there is no eviction, TTL or size bound. Put is an
// idempotent upsert and is atomic per entry, so a crash between two writes
// never damages earlier entries.
type EmbeddingStore interface {
	// LoadAll returns every entry stored for the model.
	// Entries that cannot be decoded are skipped rather than failing the load.
	LoadAll(ctx context.Context, model string) (map[string][]float32, error)

	// Get returns a single entry. The boolean is false when the text is unknown.
	Get(ctx context.Context, model, text string) ([]float32, bool, error)

	// Put stores or overwrites one entry.
	Put(ctx context.Context, model, text string, vector []float32) error

	// Count returns the number of entries stored for the model.
	Count(ctx context.Context, model string) (int, error)

	// Close releases resources.
	Close() error
}
