package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations.
// Values are opaque encoded payloads so that memory and redis backends behave the same.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// SearchIndexClient defines the interface for interacting with the hosted search index
type SearchIndexClient interface {
	Search(ctx context.Context, query IndexQuery) (*SearchResult, error)
	SaveObjects(ctx context.Context, objects []IndexedProduct) (*SaveResult, error)
}

// Embedder defines the interface for the hosted embedding service
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// ProductCatalog is a read-only, ordered snapshot of the product catalog
type ProductCatalog interface {
	Products() []Product
}
