package algolia

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/farmasearch/backend/internal/domain"
)

// hit is a single record returned by the index
type hit struct {
	domain.Product
	ObjectID string `json:"objectID"`
}

// queryResponse is the part of an index query response we use
type queryResponse struct {
	Hits             []hit `json:"hits"`
	NbHits           int   `json:"nbHits"`
	Page             int   `json:"page"`
	NbPages          int   `json:"nbPages"`
	ProcessingTimeMS int64 `json:"processingTimeMS"`
}

// decodeQueryResponse reads product hits out of an SDK response, typed or raw.
// Hit attributes arrive as untyped additional properties, so the response is
// re-encoded and decoded into our own shape.
func decodeQueryResponse(raw interface{}) (*queryResponse, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	var resp queryResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}

// objectBody converts an indexed product into the record body the batch API expects
func objectBody(obj domain.IndexedProduct) (map[string]any, error) {
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to encode object %s: %w", obj.ObjectID, err)
	}
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("failed to encode object %s: %w", obj.ObjectID, err)
	}
	return body, nil
}

// mapQueryResponse converts an index response to our domain SearchResult
func mapQueryResponse(resp *queryResponse) *domain.SearchResult {
	hits := make([]domain.ScoredProduct, 0, len(resp.Hits))
	for _, h := range resp.Hits {
		product := h.Product
		if product.ID == "" {
			product.ID = h.ObjectID
		}
		hits = append(hits, domain.ScoredProduct{Product: product})
	}

	return &domain.SearchResult{
		Hits:             hits,
		NbHits:           resp.NbHits,
		Page:             resp.Page,
		NbPages:          resp.NbPages,
		ProcessingTimeMS: resp.ProcessingTimeMS,
		Mode:             domain.ModeAlgolia,
	}
}

// BuildFilters renders facet filters as an Algolia filter expression.
// Keys are sorted so the same filters always produce the same expression.
func BuildFilters(filters map[string]string) string {
	if len(filters) == 0 {
		return ""
	}

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := make([]string, 0, len(keys))
	for _, k := range keys {
		value := strings.ReplaceAll(filters[k], `"`, `\"`)
		clauses = append(clauses, fmt.Sprintf(`%s:"%s"`, k, value))
	}
	return strings.Join(clauses, " AND ")
}
