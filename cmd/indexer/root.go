package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/farmasearch/backend/config"
	"github.com/farmasearch/backend/internal/domain"
	"github.com/farmasearch/backend/internal/infrastructure/algolia"
	"github.com/farmasearch/backend/internal/infrastructure/catalog"
	"github.com/farmasearch/backend/internal/infrastructure/embedding"
	"github.com/farmasearch/backend/internal/usecase"
)

const defaultOutputPath = "products_with_embeddings.json"

type runOptions struct {
	catalogPath string
	outputPath  string
	poolSize    int
	batchSize   int
	upload      bool
	debug       bool
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "indexer",
		Short: "Embed the pharmacy catalog and load it into the search index",
		Long: `indexer enriches every catalog product with an embedding vector,
writes the enriched catalog to disk and optionally uploads it to Algolia.

Without OpenAI credentials deterministic mock vectors are generated.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(newRunCmd())
	return cmd
}

func newRunCmd() *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate embeddings for the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndexer(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.catalogPath, "catalog", "", "Catalog JSON file (defaults to CATALOG_PATH or the embedded catalog)")
	cmd.Flags().StringVarP(&opts.outputPath, "output", "o", defaultOutputPath, "Where to write the enriched catalog, empty to skip")
	cmd.Flags().IntVar(&opts.poolSize, "pool-size", usecase.DefaultIndexerPoolSize, "Concurrent embedding workers")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", usecase.DefaultIndexerBatchSize, "Products per embedding and upload batch")
	cmd.Flags().BoolVar(&opts.upload, "upload", false, "Upload the enriched products to the Algolia index")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	return cmd
}

func runIndexer(ctx context.Context, opts runOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	debug := opts.debug || cfg.Search.EnableDebugLogging

	catalogPath := opts.catalogPath
	if catalogPath == "" {
		catalogPath = cfg.Catalog.Path
	}
	products, err := catalog.Load(catalogPath)
	if err != nil {
		return err
	}

	embedder, err := newEmbedder(cfg, debug)
	if err != nil {
		return err
	}

	var index domain.SearchIndexClient
	if opts.upload {
		if !cfg.AlgoliaConfigured() {
			return fmt.Errorf("upload requested: %w", domain.ErrIndexNotConfigured)
		}
		client, err := algolia.NewClient(algolia.ClientConfig{
			AppID:             cfg.Algolia.AppID,
			APIKey:            cfg.Algolia.AdminKey,
			IndexName:         cfg.Algolia.IndexName,
			BaseURL:           cfg.Algolia.BaseURL,
			WriteURL:          cfg.Algolia.WriteURL,
			RequestsPerSecond: float64(cfg.RateLimit.Algolia),
		})
		if err != nil {
			return err
		}
		client.SetDebug(debug)
		index = client
	}

	indexer, err := usecase.NewIndexer(embedder, index, usecase.IndexerConfig{
		PoolSize:           opts.poolSize,
		BatchSize:          opts.batchSize,
		EnableDebugLogging: debug,
	})
	if err != nil {
		return err
	}
	defer indexer.Release()

	report, err := indexer.Run(ctx, products.Products(), opts.upload)
	if err != nil {
		return err
	}

	if opts.outputPath != "" {
		if err := writeOutput(opts.outputPath, report.Products); err != nil {
			return err
		}
		log.Printf("Wrote %d products to %s", len(report.Products), opts.outputPath)
	}

	if opts.upload {
		log.Printf("Uploaded %d products to %s (tasks %v)", report.Uploaded, cfg.Algolia.IndexName, report.TaskIDs)
	}
	log.Printf("Done: %d products indexed, smoke search returned %d hits", len(report.Products), report.SmokeHits)

	return nil
}

// newEmbedder falls back to deterministic mock vectors when OpenAI is not configured
func newEmbedder(cfg *config.Config, debug bool) (domain.Embedder, error) {
	if !cfg.OpenAIConfigured() {
		log.Printf("WARNING: OPENAI_API_KEY not set, generating mock embeddings")
		return embedding.NewMockEmbedder(embedding.DefaultDimensions), nil
	}

	openAI, err := embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
		APIKey:    cfg.OpenAI.APIKey,
		BaseURL:   cfg.OpenAI.BaseURL,
		Model:     cfg.OpenAI.Model,
		MaxTokens: cfg.OpenAI.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	openAI.SetDebug(debug)
	return openAI, nil
}

func writeOutput(path string, products []domain.IndexedProduct) error {
	data, err := json.MarshalIndent(products, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode enriched catalog: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func init() {
	log.SetFlags(log.Ldate | log.Ltime)
	log.SetOutput(os.Stdout)
}
