package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when cache service is unavailable
	ErrCacheUnavailable = errors.New("cache service unavailable")

	// ErrSearchIndexFailure is returned when a request to the hosted search index fails
	ErrSearchIndexFailure = errors.New("search index request failed")

	// ErrIndexNotConfigured is returned when the hosted search index has no credentials
	ErrIndexNotConfigured = errors.New("search index not configured")

	// ErrEmbeddingFailure is returned when the embedding service fails to produce a vector
	ErrEmbeddingFailure = errors.New("embedding generation failed")

	// ErrEmbeddingNotConfigured is returned when no embedding service is configured
	ErrEmbeddingNotConfigured = errors.New("embedding service not configured")

	// ErrCatalogUnavailable is returned when the product catalog cannot be read
	ErrCatalogUnavailable = errors.New("product catalog unavailable")
)
