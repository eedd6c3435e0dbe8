package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/faersight/internal/core/domain"
)

func TestNewEmbeddingService_Defaults(t *testing.T) {
	svc := NewEmbeddingService(Config{})

	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, DefaultDimensions, svc.Dimensions())
}

func TestEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "all-minilm", req.Model)

		w.Header().Set("Content-Type", "application/json")
		if req.Prompt == "empty" {
			_, _ = w.Write([]byte(`{"embedding":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"embedding":[0.1,0.2,0.3]}`))
	}))
	defer srv.Close()

	svc := NewEmbeddingService(Config{BaseURL: srv.URL, Model: "all-minilm"})

	vec, err := svc.Embed(context.Background(), "aspirin")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)

	_, err = svc.Embed(context.Background(), "empty")
	assert.Error(t, err)

	vecs, err := svc.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
}

func TestEmbed_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewEmbeddingService(Config{BaseURL: srv.URL}).Embed(context.Background(), "x")

	assert.True(t, domain.IsTransient(err))
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	assert.NoError(t, NewEmbeddingService(Config{BaseURL: srv.URL}).Ping(context.Background()))
}
