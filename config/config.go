package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Algolia   AlgoliaConfig
	OpenAI    OpenAIConfig
	Catalog   CatalogConfig
	Cache     CacheConfig
	Search    SearchConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	FrontendURL    string   `mapstructure:"frontend_url"`
}

// AlgoliaConfig holds hosted search index configuration
type AlgoliaConfig struct {
	AppID     string `mapstructure:"app_id"`
	SearchKey string `mapstructure:"search_key"`
	AdminKey  string `mapstructure:"admin_key"`
	IndexName string `mapstructure:"index_name"`
	BaseURL   string `mapstructure:"base_url"`  // Overrides the read host
	WriteURL  string `mapstructure:"write_url"` // Overrides the write host
}

// OpenAIConfig holds embedding service configuration
type OpenAIConfig struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	Model          string `mapstructure:"model"`
	MaxTokens      int    `mapstructure:"max_tokens"`
	QueryCacheSize int    `mapstructure:"query_cache_size"`
}

// CatalogConfig holds product catalog configuration
type CatalogConfig struct {
	Path string `mapstructure:"path"` // Empty loads the embedded catalog
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type      string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL  string        `mapstructure:"redis_url"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// SearchConfig holds search behaviour configuration
type SearchConfig struct {
	DefaultLimit       int  `mapstructure:"default_limit"`
	MaxKeywordLimit    int  `mapstructure:"max_keyword_limit"`
	MaxVectorLimit     int  `mapstructure:"max_vector_limit"`
	EnableDebugLogging bool `mapstructure:"enable_debug_logging"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP   int `mapstructure:"per_ip"`  // Requests per minute per client IP, 0 disables
	Algolia int `mapstructure:"algolia"` // Outbound requests per second
}

// envBindings maps config keys to the plain variable names accepted besides the
// FARMASEARCH_ prefixed form.
var envBindings = map[string][]string{
	"server.port":         {"PORT"},
	"server.environment":  {"NODE_ENV", "ENVIRONMENT"},
	"server.frontend_url": {"FRONTEND_URL"},
	"algolia.app_id":      {"ALGOLIA_APP_ID"},
	"algolia.search_key":  {"ALGOLIA_SEARCH_KEY"},
	"algolia.admin_key":   {"ALGOLIA_ADMIN_KEY"},
	"algolia.index_name":  {"ALGOLIA_INDEX_NAME"},
	"algolia.base_url":    nil,
	"algolia.write_url":   nil,
	"openai.api_key":      {"OPENAI_API_KEY"},
	"openai.base_url":     {"OPENAI_BASE_URL"},
	"catalog.path":        {"CATALOG_PATH"},
	"cache.redis_url":     {"REDIS_URL"},
}

// Load loads configuration from a .env file, environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/farmasearch/")

	// Environment variable settings
	v.SetEnvPrefix("FARMASEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, err
	}

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if config.Server.FrontendURL != "" && !contains(config.Server.AllowedOrigins, config.Server.FrontendURL) {
		config.Server.AllowedOrigins = append(config.Server.AllowedOrigins, config.Server.FrontendURL)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads variables from ./.env without overriding the environment.
// A missing file is not an error.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return gotenv.Load(".env")
}

// bindEnv binds every key to its prefixed variable followed by its plain aliases
func bindEnv(v *viper.Viper) error {
	for key, aliases := range envBindings {
		names := append([]string{"FARMASEARCH_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, aliases...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return fmt.Errorf("unable to bind %s: %w", key, err)
		}
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "3001")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})

	// Algolia defaults
	v.SetDefault("algolia.index_name", "farmatodo_products_poc")

	// OpenAI defaults
	v.SetDefault("openai.model", "text-embedding-ada-002")
	v.SetDefault("openai.max_tokens", 8191)
	v.SetDefault("openai.query_cache_size", 512)

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.key_prefix", "farmasearch:")
	v.SetDefault("cache.ttl", "10m")

	// Search defaults
	v.SetDefault("search.default_limit", 10)
	v.SetDefault("search.max_keyword_limit", 50)
	v.SetDefault("search.max_vector_limit", 20)
	v.SetDefault("search.enable_debug_logging", false)

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
	v.SetDefault("ratelimit.algolia", 50)
}

// validate validates the configuration.
// Missing Algolia or OpenAI credentials are not errors: they select mock mode.
func validate(config *Config) error {
	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when cache type is 'redis'")
	}

	if config.Search.DefaultLimit <= 0 || config.Search.MaxKeywordLimit <= 0 || config.Search.MaxVectorLimit <= 0 {
		return fmt.Errorf("search limits must be positive")
	}

	if config.RateLimit.PerIP < 0 || config.RateLimit.Algolia < 0 {
		return fmt.Errorf("rate limits must not be negative")
	}

	return nil
}

// AlgoliaConfigured reports whether every Algolia credential is present
func (c *Config) AlgoliaConfigured() bool {
	return c.Algolia.AppID != "" && c.Algolia.AdminKey != "" && c.Algolia.SearchKey != ""
}

// OpenAIConfigured reports whether an OpenAI API key is present
func (c *Config) OpenAIConfigured() bool {
	return c.OpenAI.APIKey != ""
}

// MissingKeys lists the credential variables that are not set
func (c *Config) MissingKeys() []string {
	var missing []string
	if c.Algolia.AppID == "" {
		missing = append(missing, "ALGOLIA_APP_ID")
	}
	if c.Algolia.AdminKey == "" {
		missing = append(missing, "ALGOLIA_ADMIN_KEY")
	}
	if c.Algolia.SearchKey == "" {
		missing = append(missing, "ALGOLIA_SEARCH_KEY")
	}
	if c.OpenAI.APIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	return missing
}

// Mode reports "algolia" when the hosted index is configured and "mock" otherwise
func (c *Config) Mode() string {
	if c.AlgoliaConfigured() {
		return "algolia"
	}
	return "mock"
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
