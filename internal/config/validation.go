package config

import (
	"fmt"
	"net/url"
	"slices"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	// 0. Check for nil config (defensive programming)
	if c == nil {
		return ErrConfigNil
	}

	// 1. Embedding provider validation
	validProviders := []string{ProviderGemini, ProviderOllama}
	if !slices.Contains(validProviders, c.Provider) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidProvider, c.Provider, validProviders)
	}

	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}

	// The dimension is baked into the pgvector column type; a value the schema
	// was not provisioned for must fail at startup, not per-insert.
	if c.EmbedderDimension < 1 || c.EmbedderDimension > 16000 {
		return fmt.Errorf("%w: must be between 1 and 16000, got %d",
			ErrInvalidEmbedderDimension, c.EmbedderDimension)
	}

	if c.Provider == ProviderOllama && c.OllamaHost == "" {
		return fmt.Errorf("%w: ollama_host cannot be empty when provider is ollama", ErrInvalidOllamaHost)
	}

	// 2. PostgreSQL configuration validation
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}

	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}

	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}

	// Modern SSL modes only - exclude deprecated allow/prefer (MITM vulnerable)
	// Reference: https://www.postgresql.org/docs/current/libpq-ssl.html
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
	}

	// 3. Retrieval configuration validation
	if c.RetrievalTopK < 1 || c.RetrievalTopK > MaxRetrievalTopK {
		return fmt.Errorf("%w: must be between 1 and %d, got %d",
			ErrInvalidTopK, MaxRetrievalTopK, c.RetrievalTopK)
	}

	// Cosine similarity on non-normalized vectors ranges over [-1, 1].
	if c.ConfidenceThreshold < -1.0 || c.ConfidenceThreshold > 1.0 {
		return fmt.Errorf("%w: must be between -1.0 and 1.0, got %.2f",
			ErrInvalidThreshold, c.ConfidenceThreshold)
	}

	// 4. Sink / dispatch configuration validation
	if err := validateSinkURL(c.SinkURL); err != nil {
		return err
	}

	if c.SinkTimeoutSeconds < 1 || c.SinkTimeoutSeconds > 300 {
		return fmt.Errorf("%w: sink_timeout_seconds must be between 1 and 300, got %d",
			ErrInvalidSinkURL, c.SinkTimeoutSeconds)
	}

	if c.DispatchMaxRetries < 0 || c.DispatchMaxRetries > 10 {
		return fmt.Errorf("%w: must be between 0 and 10, got %d",
			ErrInvalidDispatchRetries, c.DispatchMaxRetries)
	}

	if c.DispatchInitialBackoffMS < 1 || c.DispatchInitialBackoffMS > 60000 {
		return fmt.Errorf("%w: dispatch_initial_backoff_ms must be between 1 and 60000, got %d",
			ErrInvalidDispatchRetries, c.DispatchInitialBackoffMS)
	}

	if c.DispatchRatePerSecond < 1 || c.DispatchRatePerSecond > 1000 {
		return fmt.Errorf("%w: dispatch_rate_per_second must be between 1 and 1000, got %d",
			ErrInvalidDispatchRetries, c.DispatchRatePerSecond)
	}

	return nil
}

// validateSinkURL checks the delivery sink endpoint is an absolute http(s) URL.
func validateSinkURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: sink_url cannot be empty", ErrInvalidSinkURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSinkURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https, got %q", ErrInvalidSinkURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host in %q", ErrInvalidSinkURL, raw)
	}
	return nil
}
