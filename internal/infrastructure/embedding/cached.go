package embedding

import (
	"context"

	"github.com/farmasearch/backend/internal/domain"
	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedEmbedder memoizes query embeddings so repeated questions skip the remote call.
// Document embeddings are passed through uncached.
type CachedEmbedder struct {
	next  domain.Embedder
	cache *lru.Cache[string, []float32]
}

// NewCachedEmbedder wraps next with an LRU cache holding up to size query vectors
func NewCachedEmbedder(next domain.Embedder, size int) (*CachedEmbedder, error) {
	if size <= 0 {
		size = 256
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &CachedEmbedder{next: next, cache: cache}, nil
}

// EmbedQuery returns the cached vector for text or asks the wrapped embedder
func (c *CachedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if vector, ok := c.cache.Get(text); ok {
		return vector, nil
	}

	vector, err := c.next.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}

	c.cache.Add(text, vector)
	return vector, nil
}

// EmbedDocuments delegates to the wrapped embedder
func (c *CachedEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return c.next.EmbedDocuments(ctx, texts)
}

// Len returns the number of cached query vectors
func (c *CachedEmbedder) Len() int {
	return c.cache.Len()
}
