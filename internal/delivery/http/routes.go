package http

import (
	"net/http"

	"github.com/farmasearch/backend/config"
	"github.com/gin-gonic/gin"
)

// SetupRouter creates and configures the Gin router.
// metrics is served on /metrics when not nil.
func SetupRouter(cfg *config.Config, handler *Handler, metrics http.Handler) (*gin.Engine, error) {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(RequestIDMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	rateLimit, err := RateLimitMiddleware(cfg.RateLimit.PerIP, MaxTrackedClients)
	if err != nil {
		return nil, err
	}

	// Search endpoints
	search := router.Group("/api/search")
	search.Use(rateLimit)
	{
		search.POST("/keyword", handler.KeywordSearch)
		search.POST("/vector", handler.VectorSearch)
	}

	router.NoRoute(handler.NotFound)

	return router, nil
}
