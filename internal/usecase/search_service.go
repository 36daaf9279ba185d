package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/farmasearch/backend/internal/domain"
)

// SearchRecorder receives one observation per completed search
type SearchRecorder interface {
	RecordSearch(searchType, mode string, duration time.Duration, hits int, err error)
	RecordCache(hit bool)
}

type noopRecorder struct{}

func (noopRecorder) RecordSearch(string, string, time.Duration, int, error) {}
func (noopRecorder) RecordCache(bool)                                      {}

// SearchServiceConfig holds configuration for the search service
type SearchServiceConfig struct {
	CacheTTL           time.Duration
	DefaultLimit       int
	EnableDebugLogging bool
}

// SearchService runs keyword and semantic searches against the hosted index when it is
// configured, and against the in-process relevance engine otherwise.
type SearchService struct {
	index        domain.SearchIndexClient
	embedder     domain.Embedder
	cache        domain.CacheRepository
	mockIndex    *MockIndex
	termMapper   *TermMapper
	preprocessor *QueryPreprocessor
	recorder     SearchRecorder

	cacheTTL           time.Duration
	defaultLimit       int
	enableDebugLogging bool
}

// NewSearchService creates a new search service.
// A nil index selects mock mode for both searches; a nil embedder selects mock mode
// for semantic search only. cache may be nil.
func NewSearchService(
	catalog domain.ProductCatalog,
	index domain.SearchIndexClient,
	embedder domain.Embedder,
	cache domain.CacheRepository,
	config SearchServiceConfig,
) *SearchService {
	var products []domain.Product
	if catalog != nil {
		products = catalog.Products()
	}

	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 10 * time.Minute
	}

	defaultLimit := config.DefaultLimit
	if defaultLimit <= 0 {
		defaultLimit = DefaultResultLimit
	}

	return &SearchService{
		index:              index,
		embedder:           embedder,
		cache:              cache,
		mockIndex:          NewMockIndex(products),
		termMapper:         NewTermMapper(config.EnableDebugLogging),
		preprocessor:       NewQueryPreprocessor(config.EnableDebugLogging),
		recorder:           noopRecorder{},
		cacheTTL:           cacheTTL,
		defaultLimit:       defaultLimit,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// SetRecorder installs a metrics recorder
func (s *SearchService) SetRecorder(recorder SearchRecorder) {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	s.recorder = recorder
}

// KeywordMode reports which backend serves keyword searches
func (s *SearchService) KeywordMode() string {
	if s.index != nil {
		return domain.ModeAlgolia
	}
	return domain.ModeMock
}

// VectorMode reports which backend serves semantic searches
func (s *SearchService) VectorMode() string {
	if s.index != nil && s.embedder != nil {
		return domain.ModeAlgolia
	}
	return domain.ModeMock
}

// CatalogSize returns the number of products available to the mock engine
func (s *SearchService) CatalogSize() int {
	return s.mockIndex.Len()
}

// KeywordSearch runs a keyword search.
// Flow: preprocess -> check cache -> search index -> cache -> return, or rank locally in mock mode.
func (s *SearchService) KeywordSearch(
	ctx context.Context,
	request *domain.KeywordSearchRequest,
) (*domain.SearchResult, error) {
	if request == nil {
		return nil, domain.ErrInvalidRequest
	}

	query := s.preprocessor.PreprocessQuery(request.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}
	if err := validateFilters(request.Filters); err != nil {
		return nil, err
	}

	limit, page := s.paging(request.Options)
	mode := s.KeywordMode()
	start := time.Now()

	var (
		result *domain.SearchResult
		err    error
	)
	if mode == domain.ModeAlgolia {
		result, err = s.remoteKeywordSearch(ctx, query, request.Filters, limit, page)
	} else {
		result = s.mockSearch(query, request.Filters, limit)
		if s.enableDebugLogging {
			log.Printf("[SEARCH] Mock keyword search %q: %d hits", query, result.NbHits)
		}
	}

	return s.finish(domain.SearchTypeKeyword, mode, start, result, err)
}

// VectorSearch runs a semantic search for a natural-language question.
// The question is embedded and sent as a vector query when both the index and the
// embedder are configured; otherwise it is mapped to terms and ranked locally.
func (s *SearchService) VectorSearch(
	ctx context.Context,
	request *domain.VectorSearchRequest,
) (*domain.SearchResult, error) {
	if request == nil {
		return nil, domain.ErrInvalidRequest
	}

	question := strings.TrimSpace(request.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", domain.ErrInvalidRequest)
	}

	limit, page := s.paging(request.Options)
	mode := s.VectorMode()
	start := time.Now()

	var (
		result *domain.SearchResult
		err    error
	)
	if mode == domain.ModeAlgolia {
		result, err = s.remoteVectorSearch(ctx, question, limit, page)
	} else {
		result = s.mockSearch(question, nil, limit)
		if s.enableDebugLogging {
			log.Printf("[SEARCH] Mock vector search %q: %d hits", question, result.NbHits)
		}
	}

	return s.finish(domain.SearchTypeVector, mode, start, result, err)
}

// paging applies the default limit and clamps negative pages
func (s *SearchService) paging(options domain.SearchOptions) (int, int) {
	limit := options.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}
	page := options.Page
	if page < 0 {
		page = 0
	}
	return limit, page
}

// finish stamps mode and timing on a result and records the observation
func (s *SearchService) finish(
	searchType, mode string,
	start time.Time,
	result *domain.SearchResult,
	err error,
) (*domain.SearchResult, error) {
	elapsed := time.Since(start)

	if err != nil {
		s.recorder.RecordSearch(searchType, mode, elapsed, 0, err)
		return nil, err
	}

	result.Mode = mode
	result.ProcessingTimeMS = elapsed.Milliseconds()
	if result.Hits == nil {
		result.Hits = []domain.ScoredProduct{}
	}

	s.recorder.RecordSearch(searchType, mode, elapsed, len(result.Hits), nil)
	return result, nil
}

// mockSearch maps text to terms and ranks the local catalog.
// The mock engine always returns a single page.
func (s *SearchService) mockSearch(text string, filters map[string]string, limit int) *domain.SearchResult {
	terms := s.termMapper.MapToTerms(text)
	hits, total := s.mockIndex.Search(terms, filters, limit)

	return &domain.SearchResult{
		Hits:    hits,
		NbHits:  total,
		Page:    0,
		NbPages: 1,
		Terms:   terms,
	}
}

func (s *SearchService) remoteKeywordSearch(
	ctx context.Context,
	query string,
	filters map[string]string,
	limit, page int,
) (*domain.SearchResult, error) {
	cacheKey := keywordCacheKey(query, filters, limit, page)

	if cached, err := s.getFromCache(ctx, cacheKey); err == nil {
		s.recorder.RecordCache(true)
		return cached, nil
	}
	if s.cache != nil {
		s.recorder.RecordCache(false)
	}

	result, err := s.index.Search(ctx, domain.IndexQuery{
		Query:       query,
		Filters:     filters,
		HitsPerPage: limit,
		Page:        page,
	})
	if err != nil {
		log.Printf("[SEARCH] Keyword search for %q failed: %v", query, err)
		return nil, err
	}

	if err := s.setInCache(ctx, cacheKey, result); err != nil {
		log.Printf("[SEARCH] Failed to cache keyword result: %v", err)
	}

	return result, nil
}

func (s *SearchService) remoteVectorSearch(
	ctx context.Context,
	question string,
	limit, page int,
) (*domain.SearchResult, error) {
	vector, err := s.embedder.EmbedQuery(ctx, question)
	if err != nil {
		log.Printf("[SEARCH] Embedding for %q failed: %v", question, err)
		return nil, err
	}

	result, err := s.index.Search(ctx, domain.IndexQuery{
		HitsPerPage: limit,
		Page:        page,
		Vector:      vector,
	})
	if err != nil {
		log.Printf("[SEARCH] Vector search for %q failed: %v", question, err)
		return nil, err
	}

	result.EmbeddingGenerated = true
	return result, nil
}

// getFromCache reads a cached result; any failure counts as a miss and corrupt entries are evicted
func (s *SearchService) getFromCache(ctx context.Context, key string) (*domain.SearchResult, error) {
	if s.cache == nil {
		return nil, domain.ErrCacheMiss
	}

	data, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var result domain.SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		if delErr := s.cache.Delete(ctx, key); delErr != nil {
			log.Printf("[SEARCH] Failed to evict corrupt cache entry %s: %v", key, delErr)
		}
		return nil, fmt.Errorf("%w: corrupt entry: %v", domain.ErrCacheMiss, err)
	}

	if s.enableDebugLogging {
		log.Printf("[SEARCH] Cache hit for %s", key)
	}
	return &result, nil
}

// setInCache stores a result in the cache
func (s *SearchService) setInCache(ctx context.Context, key string, result *domain.SearchResult) error {
	if s.cache == nil {
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, key, data, s.cacheTTL)
}

// validateFilters rejects filter keys the indexes cannot facet on
func validateFilters(filters map[string]string) error {
	for key := range filters {
		supported := false
		for _, f := range SupportedFilters {
			if key == f {
				supported = true
				break
			}
		}
		if !supported {
			return fmt.Errorf("%w: unsupported filter %q", domain.ErrInvalidRequest, key)
		}
	}
	return nil
}
