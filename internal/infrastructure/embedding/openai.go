package embedding

import (
	"context"
	"fmt"
	"log"

	"github.com/farmasearch/backend/internal/domain"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	// DefaultModel is the embedding model used when none is configured
	DefaultModel = "text-embedding-ada-002"
	// DefaultMaxTokens is the input limit of DefaultModel
	DefaultMaxTokens = 8191
	// approxCharsPerToken is a coarse estimate used to keep inputs under the token limit
	approxCharsPerToken = 4
)

// OpenAIConfig holds configuration for the OpenAI embedder
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// OpenAIEmbedder implements domain.Embedder using the OpenAI embeddings API
type OpenAIEmbedder struct {
	embedder embeddings.Embedder
	model    string
	maxChars int
	debug    bool
}

// NewOpenAIEmbedder creates an embedder for the configured model
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, domain.ErrEmbeddingNotConfigured
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithEmbeddingModel(model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	return &OpenAIEmbedder{
		embedder: embedder,
		model:    model,
		maxChars: maxTokens * approxCharsPerToken,
	}, nil
}

// SetDebug enables verbose logging
func (e *OpenAIEmbedder) SetDebug(debug bool) {
	e.debug = debug
}

// EmbedQuery generates the embedding of a search question
func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if e.debug {
		log.Printf("[EMBED] Generating %s embedding for %q", e.model, text)
	}

	vector, err := e.embedder.EmbedQuery(ctx, truncate(text, e.maxChars))
	if err != nil {
		log.Printf("[EMBED] Failed to generate embedding: %v", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingFailure, err)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty vector", domain.ErrEmbeddingFailure)
	}

	return vector, nil
}

// EmbedDocuments generates embeddings for several texts, in input order
func (e *OpenAIEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if e.debug {
		log.Printf("[EMBED] Generating %s embeddings for %d documents", e.model, len(texts))
	}

	inputs := make([]string, len(texts))
	for i, text := range texts {
		inputs[i] = truncate(text, e.maxChars)
	}

	vectors, err := e.embedder.EmbedDocuments(ctx, inputs)
	if err != nil {
		log.Printf("[EMBED] Failed to generate %d embeddings: %v", len(texts), err)
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingFailure, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", domain.ErrEmbeddingFailure, len(vectors), len(texts))
	}

	return vectors, nil
}

// truncate cuts text to at most maxChars runes
func truncate(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars])
}
