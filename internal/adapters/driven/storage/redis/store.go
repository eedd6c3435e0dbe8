// Package redis provides a Redis implementation of driven.EmbeddingStore,
// for sharing one embedding cache between several hosts.
//
// Each model is one hash under "<prefix>:<model>"; fields are the exact
// embedded texts and values are little-endian float32 bytes.
package redis

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/go-redis/redis/v8"

	"github.com/custodia-labs/faersight/internal/core/ports/driven"
	"github.com/custodia-labs/faersight/internal/logger"
)

// DefaultPrefix namespaces the cache keys.
const DefaultPrefix = "faersight:embeddings"

// Ensure Store implements the interface.
var _ driven.EmbeddingStore = (*Store)(nil)

// Config addresses the Redis server.
type Config struct {
	Addr     string
	Password string
	DB       int

	// Prefix overrides DefaultPrefix.
	Prefix string
}

// Store is a Redis-backed embedding cache.
type Store struct {
	client *redis.Client
	prefix string
}

// NewStore connects to Redis and checks the connection.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis: address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Addr, err)
	}
	return NewStoreWithClient(client, cfg.Prefix), nil
}

// NewStoreWithClient wraps an existing client.
func NewStoreWithClient(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(model string) string {
	return s.prefix + ":" + model
}

// LoadAll returns every decodable entry for the model.
func (s *Store) LoadAll(ctx context.Context, model string) (map[string][]float32, error) {
	raw, err := s.client.HGetAll(ctx, s.key(model)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: loading embeddings: %w", err)
	}

	out := make(map[string][]float32, len(raw))
	skipped := 0
	for text, value := range raw {
		vec, ok := decodeVector([]byte(value))
		if !ok {
			skipped++
			continue
		}
		out[text] = vec
	}
	if skipped > 0 {
		logger.Warn("embedding cache: skipped %d malformed entries for %s", skipped, model)
	}
	return out, nil
}

// Get returns a single entry. A malformed value reads as a miss.
func (s *Store) Get(ctx context.Context, model, text string) ([]float32, bool, error) {
	value, err := s.client.HGet(ctx, s.key(model), text).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis: getting embedding: %w", err)
	}
	vec, ok := decodeVector(value)
	if !ok {
		return nil, false, nil
	}
	return vec, true, nil
}

// Put stores or overwrites one field with a single HSET.
func (s *Store) Put(ctx context.Context, model, text string, vector []float32) error {
	if len(vector) == 0 {
		return errors.New("redis: refusing to store an empty vector")
	}
	if err := s.client.HSet(ctx, s.key(model), text, encodeVector(vector)).Err(); err != nil {
		return fmt.Errorf("redis: saving embedding: %w", err)
	}
	return nil
}

// Count returns the number of fields stored for the model.
func (s *Store) Count(ctx context.Context, model string) (int, error) {
	n, err := s.client.HLen(ctx, s.key(model)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: counting embeddings: %w", err)
	}
	return int(n), nil
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

func encodeVector(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, bool) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, false
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats, true
}
