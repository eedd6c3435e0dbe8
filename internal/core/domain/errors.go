package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownUnit indicates a unit code outside the closed conversion tables.
	// The dataset is assumed to only contain known codes, so this is a
	// data-integrity failure and is never retried.
	ErrUnknownUnit = errors.New("unknown unit code")

	// ErrOutOfDomain indicates a value outside a bucketing domain.
	ErrOutOfDomain = errors.New("value outside domain")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Narrative summaries are disabled.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Literature retrieval is disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLiteratureUnavailable indicates the literature search provider is not configured.
	ErrLiteratureUnavailable = errors.New("literature search unavailable")

	// ErrDatasetUnavailable indicates no case dataset has been loaded.
	ErrDatasetUnavailable = errors.New("case dataset unavailable")

	// Provider Errors.

	// ErrProviderTransient marks a provider failure that may succeed on retry
	// (rate limiting, 5xx responses, dropped connections).
	ErrProviderTransient = errors.New("transient provider error")

	// ErrProviderExhausted indicates the retry policy gave up on a transient failure.
	ErrProviderExhausted = errors.New("provider retries exhausted")

	// ErrRateLimited indicates the provider rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)

// ProviderError describes the final outcome of a retried provider call.
type ProviderError struct {
	// Provider names the external service (e.g. "openai").
	Provider string

	// Attempts is the number of calls made, including the first.
	Attempts int

	// Exhausted is true when every attempt failed transiently.
	Exhausted bool

	// Err is the last error returned by the provider.
	Err error
}

func (e *ProviderError) Error() string {
	if e.Exhausted {
		return fmt.Sprintf("%s: gave up after %d attempts: %v", e.Provider, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

// Unwrap exposes both the sentinel and the cause to errors.Is.
func (e *ProviderError) Unwrap() []error {
	if e.Exhausted {
		return []error{ErrProviderExhausted, e.Err}
	}
	return []error{e.Err}
}

// Transient wraps err so that IsTransient reports true.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrProviderTransient, err)
}

// IsTransient reports whether err may succeed if the call is repeated.
// Exhausted provider errors are not transient: the policy already gave up.
func IsTransient(err error) bool {
	if errors.Is(err, ErrProviderExhausted) {
		return false
	}
	return errors.Is(err, ErrProviderTransient) || errors.Is(err, ErrRateLimited)
}
