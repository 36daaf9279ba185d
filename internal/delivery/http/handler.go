package http

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/farmasearch/backend/config"
	"github.com/farmasearch/backend/internal/domain"
	"github.com/gin-gonic/gin"
)

const (
	serviceName    = "farmasearch-backend"
	serviceVersion = "1.0.0"
)

// Error types reported in error responses
const (
	errorTypeValidation    = "ValidationError"
	errorTypeKeywordSearch = "KeywordSearchError"
	errorTypeVectorSearch  = "VectorSearchError"
	errorTypeNotFound      = "NotFound"
	errorTypeRateLimit     = "RateLimitError"
	errorTypeUnavailable   = "ServiceUnavailable"
)

// SearchService is what the handlers need from the search use case
type SearchService interface {
	KeywordSearch(ctx context.Context, request *domain.KeywordSearchRequest) (*domain.SearchResult, error)
	VectorSearch(ctx context.Context, request *domain.VectorSearchRequest) (*domain.SearchResult, error)
	KeywordMode() string
	VectorMode() string
	CatalogSize() int
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	searchService SearchService
	cfg           *config.Config
}

// NewHandler creates a new HTTP handler. searchService may be nil, in which case
// the search endpoints answer 503.
func NewHandler(cfg *config.Config, searchService SearchService) *Handler {
	if cfg == nil {
		cfg = &config.Config{}
	}
	return &Handler{
		searchService: searchService,
		cfg:           cfg,
	}
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

type errorResponse struct {
	Success    bool        `json:"success"`
	SearchType string      `json:"searchType,omitempty"`
	Error      errorDetail `json:"error"`
	Timestamp  string      `json:"timestamp"`
}

type searchResults struct {
	Hits               []domain.ScoredProduct `json:"hits"`
	NbHits             int                    `json:"nbHits"`
	Page               int                    `json:"page"`
	NbPages            int                    `json:"nbPages"`
	ProcessingTimeMS   int64                  `json:"processingTimeMS"`
	EmbeddingGenerated *bool                  `json:"embeddingGenerated,omitempty"`
}

type searchResponse struct {
	Success    bool          `json:"success"`
	SearchType string        `json:"searchType"`
	Query      string        `json:"query,omitempty"`
	Question   string        `json:"question,omitempty"`
	Mode       string        `json:"mode"`
	Terms      []string      `json:"terms,omitempty"`
	Results    searchResults `json:"results"`
	Timestamp  string        `json:"timestamp"`
}

// HealthCheck returns the health status of the API and which backends are configured
func (h *Handler) HealthCheck(c *gin.Context) {
	response := gin.H{
		"status":      "OK",
		"service":     serviceName,
		"version":     serviceVersion,
		"timestamp":   timestamp(),
		"environment": h.cfg.Server.Environment,
		"mode":        h.cfg.Mode(),
		"algolia": gin.H{
			"configured": h.cfg.AlgoliaConfigured(),
			"indexName":  h.cfg.Algolia.IndexName,
		},
		"openai": gin.H{
			"configured": h.cfg.OpenAIConfigured(),
		},
	}

	if h.searchService != nil {
		response["search"] = gin.H{
			"keywordMode": h.searchService.KeywordMode(),
			"vectorMode":  h.searchService.VectorMode(),
			"products":    h.searchService.CatalogSize(),
		}
	}

	c.JSON(http.StatusOK, response)
}

// KeywordSearch handles POST /api/search/keyword
func (h *Handler) KeywordSearch(c *gin.Context) {
	if h.searchService == nil {
		writeUnavailable(c, domain.SearchTypeKeyword)
		return
	}

	var body keywordSearchBody
	if err := decodeBody(c.Request.Body, &body); err != nil {
		writeError(c, http.StatusBadRequest, domain.SearchTypeKeyword, err)
		return
	}

	request, err := validateKeywordSearch(&body, h.maxKeywordLimit())
	if err != nil {
		writeError(c, http.StatusBadRequest, domain.SearchTypeKeyword, err)
		return
	}

	log.Printf("[SEARCH] Keyword search: %q filters=%v", request.Query, request.Filters)

	result, err := h.searchService.KeywordSearch(c.Request.Context(), request)
	if err != nil {
		h.writeSearchError(c, domain.SearchTypeKeyword, err)
		return
	}

	log.Printf("[SEARCH] Keyword search completed in %dms - %d results (%s)", result.ProcessingTimeMS, result.NbHits, result.Mode)

	c.JSON(http.StatusOK, searchResponse{
		Success:    true,
		SearchType: domain.SearchTypeKeyword,
		Query:      request.Query,
		Mode:       result.Mode,
		Terms:      result.Terms,
		Results:    toSearchResults(result, false),
		Timestamp:  timestamp(),
	})
}

// VectorSearch handles POST /api/search/vector
func (h *Handler) VectorSearch(c *gin.Context) {
	if h.searchService == nil {
		writeUnavailable(c, domain.SearchTypeVector)
		return
	}

	var body vectorSearchBody
	if err := decodeBody(c.Request.Body, &body); err != nil {
		writeError(c, http.StatusBadRequest, domain.SearchTypeVector, err)
		return
	}

	request, err := validateVectorSearch(&body, h.maxVectorLimit())
	if err != nil {
		writeError(c, http.StatusBadRequest, domain.SearchTypeVector, err)
		return
	}

	log.Printf("[SEARCH] Vector search: %q", request.Question)

	result, err := h.searchService.VectorSearch(c.Request.Context(), request)
	if err != nil {
		h.writeSearchError(c, domain.SearchTypeVector, err)
		return
	}

	log.Printf("[SEARCH] Vector search completed in %dms - %d results (%s)", result.ProcessingTimeMS, result.NbHits, result.Mode)

	c.JSON(http.StatusOK, searchResponse{
		Success:    true,
		SearchType: domain.SearchTypeVector,
		Question:   request.Question,
		Mode:       result.Mode,
		Terms:      result.Terms,
		Results:    toSearchResults(result, true),
		Timestamp:  timestamp(),
	})
}

// NotFound answers every unknown route
func (h *Handler) NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, errorResponse{
		Success: false,
		Error: errorDetail{
			Message: "Ruta no encontrada: " + c.Request.Method + " " + c.Request.URL.Path,
			Type:    errorTypeNotFound,
		},
		Timestamp: timestamp(),
	})
}

func (h *Handler) maxKeywordLimit() int {
	if h.cfg.Search.MaxKeywordLimit > 0 {
		return h.cfg.Search.MaxKeywordLimit
	}
	return 50
}

func (h *Handler) maxVectorLimit() int {
	if h.cfg.Search.MaxVectorLimit > 0 {
		return h.cfg.Search.MaxVectorLimit
	}
	return 20
}

// writeSearchError maps a use case error to a response; failures after validation are 500s
func (h *Handler) writeSearchError(c *gin.Context, searchType string, err error) {
	log.Printf("[SEARCH] %s search failed: %v", searchType, err)

	if errors.Is(err, domain.ErrInvalidRequest) {
		writeError(c, http.StatusBadRequest, searchType, err)
		return
	}

	errType, message := errorTypeKeywordSearch, "Error al realizar la búsqueda por palabras clave"
	if searchType == domain.SearchTypeVector {
		errType, message = errorTypeVectorSearch, "Error al realizar la búsqueda vectorial"
	}

	c.JSON(http.StatusInternalServerError, errorResponse{
		Success:    false,
		SearchType: searchType,
		Error: errorDetail{
			Message: message,
			Type:    errType,
			Details: err.Error(),
		},
		Timestamp: timestamp(),
	})
}

// writeError writes a 4xx error, with field details for validation failures
func writeError(c *gin.Context, status int, searchType string, err error) {
	detail := errorDetail{
		Message: err.Error(),
		Type:    errorTypeValidation,
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		detail.Message = validationErr.Message
		detail.Field = validationErr.Field
	}

	c.JSON(status, errorResponse{
		Success:    false,
		SearchType: searchType,
		Error:      detail,
		Timestamp:  timestamp(),
	})
}

func writeUnavailable(c *gin.Context, searchType string) {
	c.JSON(http.StatusServiceUnavailable, errorResponse{
		Success:    false,
		SearchType: searchType,
		Error: errorDetail{
			Message: "Search service not configured",
			Type:    errorTypeUnavailable,
		},
		Timestamp: timestamp(),
	})
}

func toSearchResults(result *domain.SearchResult, includeEmbedding bool) searchResults {
	out := searchResults{
		Hits:             result.Hits,
		NbHits:           result.NbHits,
		Page:             result.Page,
		NbPages:          result.NbPages,
		ProcessingTimeMS: result.ProcessingTimeMS,
	}
	if out.Hits == nil {
		out.Hits = []domain.ScoredProduct{}
	}
	if out.NbPages == 0 {
		out.NbPages = 1
	}
	if includeEmbedding {
		generated := result.EmbeddingGenerated
		out.EmbeddingGenerated = &generated
	}
	return out
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
