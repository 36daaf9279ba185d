package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/farmasearch/backend/config"
	httpDelivery "github.com/farmasearch/backend/internal/delivery/http"
	"github.com/farmasearch/backend/internal/domain"
	"github.com/farmasearch/backend/internal/infrastructure/algolia"
	"github.com/farmasearch/backend/internal/infrastructure/cache"
	"github.com/farmasearch/backend/internal/infrastructure/catalog"
	"github.com/farmasearch/backend/internal/infrastructure/embedding"
	"github.com/farmasearch/backend/internal/infrastructure/metrics"
	"github.com/farmasearch/backend/internal/usecase"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting FarmaSearch Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)
	log.Printf("Cache Type: %s (TTL %s)", cfg.Cache.Type, cfg.Cache.TTL)

	debug := cfg.Search.EnableDebugLogging || cfg.Server.Environment == "development"

	// Initialize infrastructure dependencies
	products, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}

	resultCache, closeCache := newCache(cfg)
	defer closeCache()

	// Interfaces stay nil unless configured so the service selects mock mode
	var index domain.SearchIndexClient
	if cfg.AlgoliaConfigured() {
		client, err := algolia.NewClient(algolia.ClientConfig{
			AppID:             cfg.Algolia.AppID,
			APIKey:            cfg.Algolia.SearchKey,
			IndexName:         cfg.Algolia.IndexName,
			BaseURL:           cfg.Algolia.BaseURL,
			RequestsPerSecond: float64(cfg.RateLimit.Algolia),
		})
		if err != nil {
			log.Printf("WARNING: Algolia client unavailable, search will use mock: %v", err)
		} else {
			client.SetDebug(debug)
			index = client
			log.Printf("Algolia configured: app %s, index %s", cfg.Algolia.AppID, cfg.Algolia.IndexName)
		}
	}

	var embedder domain.Embedder
	if cfg.OpenAIConfigured() {
		openAI, err := embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
			APIKey:    cfg.OpenAI.APIKey,
			BaseURL:   cfg.OpenAI.BaseURL,
			Model:     cfg.OpenAI.Model,
			MaxTokens: cfg.OpenAI.MaxTokens,
		})
		if err != nil {
			log.Printf("WARNING: OpenAI client unavailable, vector search will use mock: %v", err)
		} else {
			openAI.SetDebug(debug)
			cached, err := embedding.NewCachedEmbedder(openAI, cfg.OpenAI.QueryCacheSize)
			if err != nil {
				log.Fatalf("Failed to create embedding cache: %v", err)
			}
			embedder = cached
			log.Printf("OpenAI configured: model %s", cfg.OpenAI.Model)
		}
	}

	if missing := cfg.MissingKeys(); len(missing) > 0 {
		log.Printf("WARNING: running in MOCK mode, missing keys: %s", strings.Join(missing, ", "))
	}

	// Initialize usecase layer
	searchService := usecase.NewSearchService(
		products,
		index,
		embedder,
		resultCache,
		usecase.SearchServiceConfig{
			CacheTTL:           cfg.Cache.TTL,
			DefaultLimit:       cfg.Search.DefaultLimit,
			EnableDebugLogging: debug,
		},
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	searchService.SetRecorder(metrics.New(registry))

	log.Printf("Search modes: keyword=%s, vector=%s, catalog=%d products",
		searchService.KeywordMode(), searchService.VectorMode(), searchService.CatalogSize())

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(cfg, searchService)

	// Setup router
	router, err := httpDelivery.SetupRouter(cfg, handler, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	if err != nil {
		log.Fatalf("Failed to set up router: %v", err)
	}

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited")
}

// newCache builds the keyword result cache. A redis cache that cannot be reached
// falls back to memory so search keeps working.
func newCache(cfg *config.Config) (domain.CacheRepository, func()) {
	if cfg.Cache.Type == "redis" {
		redisCache, err := cache.NewRedisCache(cfg.Cache.RedisURL, cfg.Cache.KeyPrefix)
		if err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			err = redisCache.Ping(ctx)
			cancel()
			if err == nil {
				log.Printf("Redis cache connected")
				return redisCache, func() { redisCache.Close() }
			}
			redisCache.Close()
		}
		log.Printf("WARNING: redis cache unavailable, using memory cache: %v", err)
	}

	memoryCache := cache.NewMemoryCache(time.Minute)
	return memoryCache, func() { memoryCache.Close() }
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
