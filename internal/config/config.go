// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.corpusd/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - Storage: PostgreSQL connection (see storage.go)
//   - Embedding: provider, model and vector dimension
//   - Retrieval: default top-k and confidence threshold
//   - Sink: downstream generation service endpoint and dispatch policy
//
// Security: Sensitive data (passwords) are never logged; config directory uses 0750 permissions.
// Validation: Comprehensive range checks in validation.go with clear error messages.
//
// Error Handling:
//   - Uses sentinel errors for Go-idiomatic error checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidProvider indicates the embedding provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidEmbedderDimension indicates the embedder vector dimension is out of range.
	ErrInvalidEmbedderDimension = errors.New("invalid embedder dimension")

	// ErrInvalidOllamaHost indicates the Ollama host is invalid.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidTopK indicates the default retrieval top-k is out of range.
	ErrInvalidTopK = errors.New("invalid retrieval top-k")

	// ErrInvalidThreshold indicates the confidence threshold is out of range.
	ErrInvalidThreshold = errors.New("invalid confidence threshold")

	// ErrInvalidSinkURL indicates the delivery sink URL is missing or malformed.
	ErrInvalidSinkURL = errors.New("invalid sink URL")

	// ErrInvalidDispatchRetries indicates the dispatch retry count is out of range.
	ErrInvalidDispatchRetries = errors.New("invalid dispatch retry count")
)

// Embedding provider identifiers used in Config.Provider.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

const (
	// DefaultGeminiEmbedderModel is the default Gemini embedder model.
	DefaultGeminiEmbedderModel = "gemini-embedding-001"

	// DefaultEmbedderDimension is the vector dimension the schema is provisioned
	// for. Every document in a deployment must carry vectors of this dimension;
	// changing it requires a schema migration.
	DefaultEmbedderDimension = 1024

	// DefaultRetrievalTopK is the default number of nearest neighbors a RAG
	// query retrieves when the caller does not override k.
	DefaultRetrievalTopK = 5

	// DefaultConfidenceThreshold is the minimum similarity score a retrieved
	// document needs to be forwarded as a RAG candidate.
	DefaultConfidenceThreshold = 0.5

	// MaxRetrievalTopK bounds per-request k to prevent resource exhaustion.
	MaxRetrievalTopK = 100
)

// Config stores application configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys, tokens), update MarshalJSON.
type Config struct {
	// Embedding provider configuration
	Provider          string `mapstructure:"provider" json:"provider"` // "gemini" (default), "ollama"
	EmbedderModel     string `mapstructure:"embedder_model" json:"embedder_model"`
	EmbedderDimension int    `mapstructure:"embedder_dimension" json:"embedder_dimension"`

	// Ollama configuration (only used when provider is "ollama")
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// Storage configuration (see storage.go for documentation)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Retrieval configuration
	RetrievalTopK       int     `mapstructure:"retrieval_top_k" json:"retrieval_top_k"`
	ConfidenceThreshold float32 `mapstructure:"confidence_threshold" json:"confidence_threshold"`

	// Delivery sink configuration
	SinkURL                  string `mapstructure:"sink_url" json:"sink_url"`
	SinkTimeoutSeconds       int    `mapstructure:"sink_timeout_seconds" json:"sink_timeout_seconds"`
	DispatchMaxRetries       int    `mapstructure:"dispatch_max_retries" json:"dispatch_max_retries"`
	DispatchInitialBackoffMS int    `mapstructure:"dispatch_initial_backoff_ms" json:"dispatch_initial_backoff_ms"`
	DispatchRatePerSecond    int    `mapstructure:"dispatch_rate_per_second" json:"dispatch_rate_per_second"`

	// HTTP server configuration
	ServerAddr string `mapstructure:"server_addr" json:"server_addr"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	// Configuration directory: ~/.corpusd/
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".corpusd")

	// Ensure directory exists (use 0750 permission for better security)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	// Configure Viper
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	// Set default values
	setDefaults()

	// Bind environment variables
	bindEnvVariables()

	// Read configuration file (if exists)
	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	// Use Unmarshal to automatically map to struct (type-safe)
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// Parse DATABASE_URL if set (highest priority for PostgreSQL config)
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	// CRITICAL: Validate immediately (fail-fast)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// Embedding defaults
	viper.SetDefault("provider", ProviderGemini)
	viper.SetDefault("embedder_model", DefaultGeminiEmbedderModel)
	viper.SetDefault("embedder_dimension", DefaultEmbedderDimension)

	// Ollama defaults
	viper.SetDefault("ollama_host", "http://localhost:11434")

	// PostgreSQL defaults for local development
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "corpusd")
	viper.SetDefault("postgres_password", "corpusd_dev_password")
	viper.SetDefault("postgres_db_name", "corpusd")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// Retrieval defaults
	viper.SetDefault("retrieval_top_k", DefaultRetrievalTopK)
	viper.SetDefault("confidence_threshold", DefaultConfidenceThreshold)

	// Sink / dispatch defaults
	viper.SetDefault("sink_url", "http://localhost:9099/generate")
	viper.SetDefault("sink_timeout_seconds", 30)
	viper.SetDefault("dispatch_max_retries", 3)
	viper.SetDefault("dispatch_initial_backoff_ms", 250)
	viper.SetDefault("dispatch_rate_per_second", 10)

	// Server defaults
	viper.SetDefault("server_addr", "127.0.0.1:8090")
}

// bindEnvVariables binds environment variables explicitly.
//
// NOTE: GEMINI_API_KEY is read directly by Genkit, not via Viper.
// Validation checks its presence based on the selected provider.
func bindEnvVariables() {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail)
	// If this panics, it's a BUG in our code, not a runtime error
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("sink_url", "CORPUSD_SINK_URL")
	mustBind("server_addr", "CORPUSD_SERVER_ADDR")
	mustBind("provider", "CORPUSD_PROVIDER")
	mustBind("embedder_model", "CORPUSD_EMBEDDER_MODEL")
	mustBind("ollama_host", "CORPUSD_OLLAMA_HOST")
}

// maskedValue is the placeholder for masked sensitive data.
// Using ████████ (full-width blocks U+2588) to avoid substring matching.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Shows first 2 and last 2 characters, masks the rest.
// SECURITY: For secrets <=8 chars, fully masks to prevent substring attacks.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	prefix := make([]byte, 2)
	suffix := make([]byte, 2)
	copy(prefix, s[:2])
	copy(suffix, s[len(s)-2:])
	return string(prefix) + "<" + maskedValue + ">" + string(suffix)
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - PostgresPassword
//
// When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
