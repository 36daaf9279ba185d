package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/farmasearch/backend/internal/domain"
	"github.com/panjf2000/ants/v2"
)

// Indexer defaults
const (
	DefaultIndexerPoolSize  = 4
	DefaultIndexerBatchSize = 50

	// SmokeTestQuery is searched against the enriched catalog after every run
	SmokeTestQuery = "acetaminofén"
)

// IndexerConfig holds configuration for the indexer
type IndexerConfig struct {
	PoolSize           int
	BatchSize          int
	EnableDebugLogging bool
}

// IndexReport summarizes one indexing run
type IndexReport struct {
	Products  []domain.IndexedProduct
	Uploaded  int
	TaskIDs   []int64
	SmokeHits int
}

// Indexer enriches catalog products with embeddings and uploads them to the hosted index
type Indexer struct {
	embedder           domain.Embedder
	index              domain.SearchIndexClient
	pool               *ants.Pool
	batchSize          int
	enableDebugLogging bool
}

// NewIndexer creates an indexer backed by a worker pool of config.PoolSize goroutines.
// index may be nil when only a local export is wanted.
func NewIndexer(embedder domain.Embedder, index domain.SearchIndexClient, config IndexerConfig) (*Indexer, error) {
	if embedder == nil {
		return nil, domain.ErrEmbeddingNotConfigured
	}

	poolSize := config.PoolSize
	if poolSize <= 0 {
		poolSize = DefaultIndexerPoolSize
	}
	batchSize := config.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultIndexerBatchSize
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create indexer pool: %w", err)
	}

	return &Indexer{
		embedder:           embedder,
		index:              index,
		pool:               pool,
		batchSize:          batchSize,
		enableDebugLogging: config.EnableDebugLogging,
	}, nil
}

// Release stops the worker pool. The indexer must not be used afterwards.
func (i *Indexer) Release() {
	i.pool.Release()
}

// EmbeddingText is the text embedded for a product: name, brand, description and tags
func EmbeddingText(p domain.Product) string {
	parts := []string{p.Name, p.Brand, p.Description}
	parts = append(parts, p.Tags...)
	return strings.Join(parts, " ")
}

// Run enriches every product, uploads the result when upload is set, and runs a smoke
// search against the enriched catalog.
func (i *Indexer) Run(ctx context.Context, products []domain.Product, upload bool) (*IndexReport, error) {
	log.Printf("[INDEXER] Processing %d products", len(products))

	enriched, err := i.Enrich(ctx, products)
	if err != nil {
		return nil, err
	}

	report := &IndexReport{Products: enriched}

	if upload {
		taskIDs, err := i.Upload(ctx, enriched)
		if err != nil {
			return nil, err
		}
		report.Uploaded = len(enriched)
		report.TaskIDs = taskIDs
	}

	report.SmokeHits = smokeSearch(enriched)
	log.Printf("[INDEXER] Smoke search %q: %d products found", SmokeTestQuery, report.SmokeHits)

	return report, nil
}

// Enrich embeds every product in batches on the worker pool.
// The output keeps catalog order; the first failing batch aborts the run.
func (i *Indexer) Enrich(ctx context.Context, products []domain.Product) ([]domain.IndexedProduct, error) {
	enriched := make([]domain.IndexedProduct, len(products))
	if len(products) == 0 {
		return enriched, nil
	}

	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for start := 0; start < len(products); start += i.batchSize {
		end := start + i.batchSize
		if end > len(products) {
			end = len(products)
		}
		batchStart, batch := start, products[start:end]

		wg.Add(1)
		err := i.pool.Submit(func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				fail(fmt.Errorf("batch at %d not started: %w", batchStart, err))
				return
			}

			texts := make([]string, len(batch))
			for j, p := range batch {
				texts[j] = EmbeddingText(p)
			}

			vectors, err := i.embedder.EmbedDocuments(ctx, texts)
			if err != nil {
				fail(fmt.Errorf("batch at %d: %w", batchStart, err))
				return
			}
			if len(vectors) != len(batch) {
				fail(fmt.Errorf("%w: got %d vectors for %d products", domain.ErrEmbeddingFailure, len(vectors), len(batch)))
				return
			}

			for j, p := range batch {
				enriched[batchStart+j] = domain.IndexedProduct{
					Product:  p,
					ObjectID: p.ID,
					Vector:   vectors[j],
				}
			}

			if i.enableDebugLogging {
				log.Printf("[INDEXER] Embedded products %d-%d", batchStart+1, batchStart+len(batch))
			}
		})
		if err != nil {
			wg.Done()
			fail(fmt.Errorf("failed to submit batch: %w", err))
			break
		}
	}

	wg.Wait()

	// An embedder that ignores cancellation can still finish every batch
	if firstErr == nil && parent.Err() != nil {
		firstErr = parent.Err()
	}
	if firstErr != nil {
		log.Printf("[INDEXER] Enrichment failed: %v", firstErr)
		return nil, firstErr
	}
	return enriched, nil
}

// Upload saves the enriched products to the hosted index in batches
func (i *Indexer) Upload(ctx context.Context, products []domain.IndexedProduct) ([]int64, error) {
	if i.index == nil {
		return nil, domain.ErrIndexNotConfigured
	}

	var taskIDs []int64
	for start := 0; start < len(products); start += i.batchSize {
		end := start + i.batchSize
		if end > len(products) {
			end = len(products)
		}

		result, err := i.index.SaveObjects(ctx, products[start:end])
		if err != nil {
			return taskIDs, fmt.Errorf("upload batch at %d: %w", start, err)
		}
		taskIDs = append(taskIDs, result.TaskID)
		log.Printf("[INDEXER] Uploaded %d objects (task %d)", len(result.ObjectIDs), result.TaskID)
	}

	return taskIDs, nil
}

// smokeSearch ranks the enriched catalog for SmokeTestQuery and returns the total hits
func smokeSearch(enriched []domain.IndexedProduct) int {
	products := make([]domain.Product, len(enriched))
	for i, p := range enriched {
		products[i] = p.Product
	}

	terms := NewTermMapper(false).MapToTerms(SmokeTestQuery)
	_, total := NewMockIndex(products).Search(terms, nil, DefaultResultLimit)
	return total
}
