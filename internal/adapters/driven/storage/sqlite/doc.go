// Package sqlite provides the durable SQLite implementation of
// driven.EmbeddingStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Vectors are stored as little-endian float32 blobs keyed by (model, text).
//
// # Data Location
//
// By default, the database is stored at ~/.faersight/data/embeddings.db.
// A file that SQLite refuses to open is renamed with a .corrupt suffix and a
// fresh cache is created in its place.
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
