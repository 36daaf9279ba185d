package usecase

import (
	"sort"
	"strings"

	"github.com/farmasearch/backend/internal/domain"
)

// DefaultResultLimit is used when the caller does not bound the result page
const DefaultResultLimit = 10

// Filter keys understood by the mock index and the hosted index
const (
	FilterCategory    = "category"
	FilterSubcategory = "subcategory"
	FilterBrand       = "brand"
)

// SupportedFilters lists the filter keys accepted by keyword search
var SupportedFilters = []string{FilterCategory, FilterSubcategory, FilterBrand}

// Ranker scores documents, drops non-matches and orders the rest by score
type Ranker struct {
	scorer *RelevanceScorer
}

// NewRanker creates a ranker using the given scorer
func NewRanker(scorer *RelevanceScorer) *Ranker {
	if scorer == nil {
		scorer = NewRelevanceScorer()
	}
	return &Ranker{scorer: scorer}
}

// Rank returns at most limit products with a positive score, best first, along with the
// total number of positive-score products. Equal scores keep their catalog order.
func (r *Ranker) Rank(docs []ScoringDocument, terms []string, limit int) ([]domain.ScoredProduct, int) {
	if limit <= 0 {
		limit = DefaultResultLimit
	}

	scored := make([]domain.ScoredProduct, 0, len(docs))
	for i := range docs {
		score := r.scorer.Score(&docs[i], terms)
		if score > 0 {
			scored = append(scored, domain.ScoredProduct{
				Product: docs[i].Product,
				Score:   score,
			})
		}
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score > scored[b].Score
	})

	total := len(scored)
	if total > limit {
		scored = scored[:limit]
	}
	return scored, total
}

// MockIndex is an immutable, pre-normalized snapshot of the catalog used when no
// hosted index is configured. Reloading the catalog means building a new MockIndex.
type MockIndex struct {
	docs   []ScoringDocument
	ranker *Ranker
}

// NewMockIndex lower-cases every product once and keeps catalog order
func NewMockIndex(products []domain.Product) *MockIndex {
	docs := make([]ScoringDocument, len(products))
	for i, p := range products {
		docs[i] = NewScoringDocument(p)
	}
	return &MockIndex{
		docs:   docs,
		ranker: NewRanker(NewRelevanceScorer()),
	}
}

// Len returns the number of indexed products
func (i *MockIndex) Len() int {
	return len(i.docs)
}

// Search ranks the documents matching every filter against the terms
func (i *MockIndex) Search(terms []string, filters map[string]string, limit int) ([]domain.ScoredProduct, int) {
	docs := i.docs
	if len(filters) > 0 {
		docs = make([]ScoringDocument, 0, len(i.docs))
		for _, doc := range i.docs {
			if doc.matchesFilters(filters) {
				docs = append(docs, doc)
			}
		}
	}
	return i.ranker.Rank(docs, terms, limit)
}

// matchesFilters applies exact, case-insensitive facet filters; unknown keys never match
func (d *ScoringDocument) matchesFilters(filters map[string]string) bool {
	for key, value := range filters {
		want := strings.ToLower(strings.TrimSpace(value))
		var got string
		switch key {
		case FilterCategory:
			got = d.category
		case FilterSubcategory:
			got = d.subcategory
		case FilterBrand:
			got = d.brand
		default:
			return false
		}
		if got != want {
			return false
		}
	}
	return true
}
