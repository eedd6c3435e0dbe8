// Package httpx is the HTTP transport shared by the provider adapters
// (embeddings, LLMs, literature search).
//
// It wraps a resty client with a token-bucket limiter and maps responses onto
// the domain error model: 429, 408 and 5xx responses and transport failures
// are transient, everything else is permanent. Retrying is left to the core
// retry policy, so the resty client itself never retries.
package httpx
