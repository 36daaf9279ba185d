package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/farmasearch/backend/internal/domain"
)

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	data      map[string][]byte
	getError  error
	setError  error
	getCalled bool
	setCalled bool
	deleted   []string
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		data: make(map[string][]byte),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	m.getCalled = true
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.setCalled = true
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	delete(m.data, key)
	return nil
}

// MockSearchIndex is a mock implementation of domain.SearchIndexClient
type MockSearchIndex struct {
	searchResult *domain.SearchResult
	searchError  error
	saveError    error
	queries      []domain.IndexQuery
	saved        [][]domain.IndexedProduct
}

func (m *MockSearchIndex) Search(ctx context.Context, query domain.IndexQuery) (*domain.SearchResult, error) {
	m.queries = append(m.queries, query)
	if m.searchError != nil {
		return nil, m.searchError
	}
	result := *m.searchResult
	return &result, nil
}

func (m *MockSearchIndex) SaveObjects(ctx context.Context, objects []domain.IndexedProduct) (*domain.SaveResult, error) {
	if m.saveError != nil {
		return nil, m.saveError
	}
	m.saved = append(m.saved, objects)
	ids := make([]string, len(objects))
	for i, o := range objects {
		ids[i] = o.ObjectID
	}
	return &domain.SaveResult{TaskID: int64(len(m.saved)), ObjectIDs: ids}, nil
}

// MockEmbedder is a mock implementation of domain.Embedder
type MockEmbedder struct {
	vector   []float32
	err      error
	calls    int
	batchErr error
}

func (m *MockEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.vector, nil
}

func (m *MockEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = []float32{float32(len(text))}
	}
	return vectors, nil
}

// MockRecorder captures search observations
type MockRecorder struct {
	searches []string
	errs     []error
	hits     []int
	cache    []bool
}

func (m *MockRecorder) RecordSearch(searchType, mode string, duration time.Duration, hits int, err error) {
	m.searches = append(m.searches, searchType+"/"+mode)
	m.errs = append(m.errs, err)
	m.hits = append(m.hits, hits)
}

func (m *MockRecorder) RecordCache(hit bool) {
	m.cache = append(m.cache, hit)
}

type staticCatalog []domain.Product

func (c staticCatalog) Products() []domain.Product { return c }

func testCatalog() staticCatalog {
	return staticCatalog{
		{ID: "1", Name: "Acetaminofén 500mg", Brand: "Genfar", Category: "Medicamentos", Tags: []string{"fiebre", "genérico"}},
		{ID: "2", Name: "Gel Fijador Extra Fuerte", Brand: "Ego", Category: "Cuidado Personal", Tags: []string{"gel", "cabello", "hombre"}},
		{ID: "3", Name: "Shampoo Anticaspa Men", Brand: "Head & Shoulders", Category: "Cuidado Personal", Tags: []string{"shampoo", "anticaspa"}},
		{ID: "4", Name: "Jarabe Infantil", Brand: "Tylenol", Category: "Medicamentos", Tags: []string{"infantil", "jarabe", "fiebre"}},
	}
}

func remoteResult() *domain.SearchResult {
	return &domain.SearchResult{
		Hits:    []domain.ScoredProduct{{Product: domain.Product{ID: "99", Name: "Remoto"}}},
		NbHits:  1,
		NbPages: 1,
	}
}

func TestNewSearchService(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		svc := NewSearchService(nil, nil, nil, nil, SearchServiceConfig{})
		if svc.cacheTTL != 10*time.Minute {
			t.Errorf("cacheTTL = %v, want 10m", svc.cacheTTL)
		}
		if svc.defaultLimit != DefaultResultLimit {
			t.Errorf("defaultLimit = %d, want %d", svc.defaultLimit, DefaultResultLimit)
		}
		if svc.CatalogSize() != 0 {
			t.Errorf("CatalogSize = %d, want 0", svc.CatalogSize())
		}
	})

	t.Run("reports modes", func(t *testing.T) {
		index := &MockSearchIndex{}
		embedder := &MockEmbedder{}

		tests := []struct {
			name        string
			svc         *SearchService
			keywordMode string
			vectorMode  string
		}{
			{"nothing configured", NewSearchService(testCatalog(), nil, nil, nil, SearchServiceConfig{}), domain.ModeMock, domain.ModeMock},
			{"index only", NewSearchService(testCatalog(), index, nil, nil, SearchServiceConfig{}), domain.ModeAlgolia, domain.ModeMock},
			{"embedder only", NewSearchService(testCatalog(), nil, embedder, nil, SearchServiceConfig{}), domain.ModeMock, domain.ModeMock},
			{"both", NewSearchService(testCatalog(), index, embedder, nil, SearchServiceConfig{}), domain.ModeAlgolia, domain.ModeAlgolia},
		}
		for _, tt := range tests {
			if got := tt.svc.KeywordMode(); got != tt.keywordMode {
				t.Errorf("%s: KeywordMode = %s, want %s", tt.name, got, tt.keywordMode)
			}
			if got := tt.svc.VectorMode(); got != tt.vectorMode {
				t.Errorf("%s: VectorMode = %s, want %s", tt.name, got, tt.vectorMode)
			}
		}
	})
}

func TestKeywordSearch_Validation(t *testing.T) {
	ctx := context.Background()
	svc := NewSearchService(testCatalog(), nil, nil, nil, SearchServiceConfig{})

	testCases := []struct {
		name    string
		request *domain.KeywordSearchRequest
	}{
		{"nil request", nil},
		{"empty query", &domain.KeywordSearchRequest{Query: ""}},
		{"blank query", &domain.KeywordSearchRequest{Query: "   "}},
		{"unsupported filter", &domain.KeywordSearchRequest{Query: "gel", Filters: map[string]string{"price": "10"}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.KeywordSearch(ctx, tc.request)
			if !errors.Is(err, domain.ErrInvalidRequest) {
				t.Errorf("error = %v, want ErrInvalidRequest", err)
			}
		})
	}
}

func TestKeywordSearch_Mock(t *testing.T) {
	ctx := context.Background()

	t.Run("ranks the catalog", func(t *testing.T) {
		recorder := &MockRecorder{}
		svc := NewSearchService(testCatalog(), nil, nil, nil, SearchServiceConfig{})
		svc.SetRecorder(recorder)

		result, err := svc.KeywordSearch(ctx, &domain.KeywordSearchRequest{Query: "gel para el cabello"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Mode != domain.ModeMock {
			t.Errorf("Mode = %s, want mock", result.Mode)
		}
		if len(result.Hits) == 0 || result.Hits[0].ID != "2" {
			t.Fatalf("expected the gel first, got %+v", result.Hits)
		}
		if result.Page != 0 || result.NbPages != 1 {
			t.Errorf("page = %d nbPages = %d, want 0 and 1", result.Page, result.NbPages)
		}
		if result.NbHits != len(result.Hits) {
			t.Errorf("NbHits = %d, want %d", result.NbHits, len(result.Hits))
		}
		if len(recorder.searches) != 1 || recorder.searches[0] != "keyword/mock" {
			t.Errorf("recorded = %v", recorder.searches)
		}
	})

	t.Run("applies limit but reports total", func(t *testing.T) {
		svc := NewSearchService(testCatalog(), nil, nil, nil, SearchServiceConfig{})

		result, err := svc.KeywordSearch(ctx, &domain.KeywordSearchRequest{
			Query:   "fiebre",
			Options: domain.SearchOptions{Limit: 1},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Hits) != 1 || result.NbHits != 2 {
			t.Errorf("hits = %d nbHits = %d, want 1 and 2", len(result.Hits), result.NbHits)
		}
	})

	t.Run("applies filters", func(t *testing.T) {
		svc := NewSearchService(testCatalog(), nil, nil, nil, SearchServiceConfig{})

		result, err := svc.KeywordSearch(ctx, &domain.KeywordSearchRequest{
			Query:   "fiebre",
			Filters: map[string]string{"brand": "tylenol"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Hits) != 1 || result.Hits[0].ID != "4" {
			t.Errorf("hits = %+v, want only product 4", result.Hits)
		}
	})

	t.Run("no match returns empty hits", func(t *testing.T) {
		svc := NewSearchService(testCatalog(), nil, nil, nil, SearchServiceConfig{})

		result, err := svc.KeywordSearch(ctx, &domain.KeywordSearchRequest{Query: "protector solar"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Hits == nil || len(result.Hits) != 0 {
			t.Errorf("hits = %v, want empty non-nil slice", result.Hits)
		}
	})
}

func TestKeywordSearch_Remote(t *testing.T) {
	ctx := context.Background()

	t.Run("searches index on cache miss and caches", func(t *testing.T) {
		cache := NewMockCacheRepository()
		index := &MockSearchIndex{searchResult: remoteResult()}
		recorder := &MockRecorder{}
		svc := NewSearchService(testCatalog(), index, nil, cache, SearchServiceConfig{})
		svc.SetRecorder(recorder)

		result, err := svc.KeywordSearch(ctx, &domain.KeywordSearchRequest{
			Query:   "  Gel  ",
			Filters: map[string]string{"brand": "Ego"},
			Options: domain.SearchOptions{Limit: 5, Page: 2},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Mode != domain.ModeAlgolia {
			t.Errorf("Mode = %s, want algolia", result.Mode)
		}
		if len(index.queries) != 1 {
			t.Fatalf("index called %d times, want 1", len(index.queries))
		}
		q := index.queries[0]
		if q.Query != "Gel" || q.HitsPerPage != 5 || q.Page != 2 || q.Filters["brand"] != "Ego" || q.Vector != nil {
			t.Errorf("unexpected index query %+v", q)
		}
		if !cache.setCalled {
			t.Error("expected cache.Set to be called")
		}
		if len(recorder.cache) != 1 || recorder.cache[0] {
			t.Errorf("cache events = %v, want one miss", recorder.cache)
		}
	})

	t.Run("returns cached result without calling index", func(t *testing.T) {
		cache := NewMockCacheRepository()
		cached, _ := json.Marshal(remoteResult())
		cache.data[keywordCacheKey("gel", nil, DefaultResultLimit, 0)] = cached
		index := &MockSearchIndex{searchError: errors.New("should not be called")}
		svc := NewSearchService(testCatalog(), index, nil, cache, SearchServiceConfig{})

		result, err := svc.KeywordSearch(ctx, &domain.KeywordSearchRequest{Query: "GEL"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(index.queries) != 0 {
			t.Error("expected index not to be called")
		}
		if result.Hits[0].ID != "99" || result.Mode != domain.ModeAlgolia {
			t.Errorf("unexpected result %+v", result)
		}
	})

	t.Run("cache failures are not fatal", func(t *testing.T) {
		cache := NewMockCacheRepository()
		cache.getError = domain.ErrCacheUnavailable
		cache.setError = domain.ErrCacheUnavailable
		index := &MockSearchIndex{searchResult: remoteResult()}
		svc := NewSearchService(testCatalog(), index, nil, cache, SearchServiceConfig{})

		result, err := svc.KeywordSearch(ctx, &domain.KeywordSearchRequest{Query: "gel"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.NbHits != 1 {
			t.Errorf("NbHits = %d, want 1", result.NbHits)
		}
	})

	t.Run("corrupt cache entry is evicted and refilled", func(t *testing.T) {
		cache := NewMockCacheRepository()
		key := keywordCacheKey("gel", nil, DefaultResultLimit, 0)
		cache.data[key] = []byte("{not json")
		index := &MockSearchIndex{searchResult: remoteResult()}
		svc := NewSearchService(testCatalog(), index, nil, cache, SearchServiceConfig{})

		if _, err := svc.KeywordSearch(ctx, &domain.KeywordSearchRequest{Query: "gel"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(index.queries) != 1 {
			t.Errorf("index called %d times, want 1", len(index.queries))
		}
		if len(cache.deleted) != 1 || cache.deleted[0] != key {
			t.Errorf("deleted = %v, want [%s]", cache.deleted, key)
		}
		var stored domain.SearchResult
		if err := json.Unmarshal(cache.data[key], &stored); err != nil {
			t.Errorf("expected a fresh entry after eviction: %v", err)
		}
	})

	t.Run("works without a cache", func(t *testing.T) {
		index := &MockSearchIndex{searchResult: remoteResult()}
		svc := NewSearchService(testCatalog(), index, nil, nil, SearchServiceConfig{})

		if _, err := svc.KeywordSearch(ctx, &domain.KeywordSearchRequest{Query: "gel"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("propagates index errors", func(t *testing.T) {
		index := &MockSearchIndex{searchError: domain.ErrSearchIndexFailure}
		recorder := &MockRecorder{}
		svc := NewSearchService(testCatalog(), index, nil, NewMockCacheRepository(), SearchServiceConfig{})
		svc.SetRecorder(recorder)

		_, err := svc.KeywordSearch(ctx, &domain.KeywordSearchRequest{Query: "gel"})
		if !errors.Is(err, domain.ErrSearchIndexFailure) {
			t.Errorf("error = %v, want ErrSearchIndexFailure", err)
		}
		if len(recorder.errs) != 1 || recorder.errs[0] == nil {
			t.Errorf("expected the failure to be recorded, got %v", recorder.errs)
		}
	})
}

func TestVectorSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects blank question", func(t *testing.T) {
		svc := NewSearchService(testCatalog(), nil, nil, nil, SearchServiceConfig{})
		_, err := svc.VectorSearch(ctx, &domain.VectorSearchRequest{Question: "  "})
		if !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("error = %v, want ErrInvalidRequest", err)
		}
	})

	t.Run("mock mode maps the question to terms", func(t *testing.T) {
		svc := NewSearchService(testCatalog(), &MockSearchIndex{}, nil, nil, SearchServiceConfig{})

		result, err := svc.VectorSearch(ctx, &domain.VectorSearchRequest{Question: "¿Qué le doy a mi niño con fiebre?"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Mode != domain.ModeMock || result.EmbeddingGenerated {
			t.Errorf("Mode = %s embeddingGenerated = %v", result.Mode, result.EmbeddingGenerated)
		}
		if len(result.Hits) == 0 || result.Hits[0].ID != "4" {
			t.Errorf("expected the children's syrup first, got %+v", result.Hits)
		}
		if len(result.Terms) == 0 {
			t.Error("expected mapped terms to be reported")
		}
	})

	t.Run("remote mode embeds and sends a vector query", func(t *testing.T) {
		index := &MockSearchIndex{searchResult: remoteResult()}
		embedder := &MockEmbedder{vector: []float32{0.1, 0.2}}
		svc := NewSearchService(testCatalog(), index, embedder, nil, SearchServiceConfig{})

		result, err := svc.VectorSearch(ctx, &domain.VectorSearchRequest{
			Question: "algo para el dolor de cabeza",
			Options:  domain.SearchOptions{Limit: 3},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.EmbeddingGenerated || result.Mode != domain.ModeAlgolia {
			t.Errorf("embeddingGenerated = %v mode = %s", result.EmbeddingGenerated, result.Mode)
		}
		q := index.queries[0]
		if q.Query != "" || len(q.Vector) != 2 || q.HitsPerPage != 3 {
			t.Errorf("unexpected index query %+v", q)
		}
	})

	t.Run("embedding failure is returned", func(t *testing.T) {
		index := &MockSearchIndex{searchResult: remoteResult()}
		embedder := &MockEmbedder{err: domain.ErrEmbeddingFailure}
		svc := NewSearchService(testCatalog(), index, embedder, nil, SearchServiceConfig{})

		_, err := svc.VectorSearch(ctx, &domain.VectorSearchRequest{Question: "algo para la fiebre"})
		if !errors.Is(err, domain.ErrEmbeddingFailure) {
			t.Errorf("error = %v, want ErrEmbeddingFailure", err)
		}
		if len(index.queries) != 0 {
			t.Error("index should not be queried without a vector")
		}
	})
}

func TestMockSearch_Concurrent(t *testing.T) {
	ctx := context.Background()
	svc := NewSearchService(testCatalog(), nil, nil, nil, SearchServiceConfig{})

	want, err := svc.VectorSearch(ctx, &domain.VectorSearchRequest{Question: "algo para la fiebre"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := svc.VectorSearch(ctx, &domain.VectorSearchRequest{Question: "algo para la fiebre"})
			if err != nil {
				errs <- err
				return
			}
			if len(got.Hits) != len(want.Hits) || got.Hits[0].ID != want.Hits[0].ID {
				errs <- errors.New("concurrent search returned a different ranking")
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}
