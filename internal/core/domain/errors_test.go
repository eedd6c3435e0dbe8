package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnknownUnit", ErrUnknownUnit},
		{"ErrOutOfDomain", ErrOutOfDomain},
		{"ErrLLMUnavailable", ErrLLMUnavailable},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrLiteratureUnavailable", ErrLiteratureUnavailable},
		{"ErrDatasetUnavailable", ErrDatasetUnavailable},
		{"ErrProviderTransient", ErrProviderTransient},
		{"ErrProviderExhausted", ErrProviderExhausted},
		{"ErrRateLimited", ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestTransient(t *testing.T) {
	cause := errors.New("503 service unavailable")
	err := Transient(cause)

	assert.True(t, IsTransient(err))
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, Transient(nil))
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(errors.New("bad request")))
	assert.True(t, IsTransient(fmt.Errorf("embed: %w", ErrRateLimited)))
	assert.False(t, IsTransient(&ProviderError{Provider: "openai", Exhausted: true, Err: Transient(errors.New("x"))}))
}

func TestProviderError(t *testing.T) {
	cause := errors.New("timeout")

	t.Run("exhausted", func(t *testing.T) {
		err := &ProviderError{Provider: "openai", Attempts: 3, Exhausted: true, Err: cause}
		assert.ErrorIs(t, err, ErrProviderExhausted)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "gave up after 3 attempts")
	})

	t.Run("permanent", func(t *testing.T) {
		err := &ProviderError{Provider: "ollama", Attempts: 1, Err: cause}
		assert.NotErrorIs(t, err, ErrProviderExhausted)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "ollama: timeout", err.Error())
	})

	t.Run("errors.As", func(t *testing.T) {
		wrapped := fmt.Errorf("embed: %w", &ProviderError{Provider: "openai", Attempts: 2, Err: cause})
		var pe *ProviderError
		assert.True(t, errors.As(wrapped, &pe))
		assert.Equal(t, 2, pe.Attempts)
	})
}
