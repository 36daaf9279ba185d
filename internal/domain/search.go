package domain

// Search types reported in responses and metrics
const (
	SearchTypeKeyword = "keyword"
	SearchTypeVector  = "vector"
)

// Search modes: the hosted index or the in-process relevance engine
const (
	ModeAlgolia = "algolia"
	ModeMock    = "mock"
)

// SearchOptions holds paging options shared by both search entry points
type SearchOptions struct {
	Limit int `json:"limit,omitempty"`
	Page  int `json:"page,omitempty"`
}

// KeywordSearchRequest represents a keyword search request
type KeywordSearchRequest struct {
	Query   string            `json:"query"`
	Filters map[string]string `json:"filters,omitempty"`
	Options SearchOptions     `json:"options,omitempty"`
}

// VectorSearchRequest represents a semantic search request
type VectorSearchRequest struct {
	Question string        `json:"question"`
	Options  SearchOptions `json:"options,omitempty"`
}

// IndexQuery is the query sent to the hosted search index.
// Vector is set only for semantic queries, in which case Query is empty.
type IndexQuery struct {
	Query       string
	Filters     map[string]string
	HitsPerPage int
	Page        int
	Vector      []float32
}

// SearchResult represents one page of search hits
type SearchResult struct {
	Hits               []ScoredProduct `json:"hits"`
	NbHits             int             `json:"nbHits"`
	Page               int             `json:"page"`
	NbPages            int             `json:"nbPages"`
	ProcessingTimeMS   int64           `json:"processingTimeMS"`
	Mode               string          `json:"mode,omitempty"`
	Terms              []string        `json:"terms,omitempty"`
	EmbeddingGenerated bool            `json:"embeddingGenerated,omitempty"`
}

// SaveResult represents the acknowledgement of a batch upload to the index
type SaveResult struct {
	TaskID    int64    `json:"taskID"`
	ObjectIDs []string `json:"objectIDs"`
}
