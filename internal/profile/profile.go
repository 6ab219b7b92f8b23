package profile

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Profile is the runtime configuration for the memory engine.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Driver is the database driver (postgres or sqlite)
	Driver string
	// DSN points to where lorekeep stores its data
	DSN string

	// Embedding provider configuration
	EmbeddingProvider string // LOREKEEP_EMBEDDING_PROVIDER (default: openai)
	EmbeddingAPIKey   string // LOREKEEP_EMBEDDING_API_KEY
	EmbeddingBaseURL  string // LOREKEEP_EMBEDDING_BASE_URL (default: https://api.openai.com/v1)
	EmbeddingModel    string // LOREKEEP_EMBEDDING_MODEL (default: text-embedding-3-small)
	EmbeddingDims     int    // LOREKEEP_EMBEDDING_DIMS (default: 384)

	// MaxMemoryTokens is the per-chunk token budget for stored memories.
	MaxMemoryTokens int // LOREKEEP_MAX_MEMORY_TOKENS (default: 8000)

	// LogFile receives JSON logs in addition to stderr text output.
	LogFile string // LOREKEEP_LOG_FILE
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsEmbeddingConfigured reports whether an embedding backend is usable.
func (p *Profile) IsEmbeddingConfigured() bool {
	return p.EmbeddingAPIKey != "" || p.EmbeddingBaseURL != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

// FromEnv loads configuration from LOREKEEP_* environment variables.
func (p *Profile) FromEnv() {
	p.Mode = getEnvOrDefault("LOREKEEP_MODE", p.Mode)
	p.Driver = getEnvOrDefault("LOREKEEP_DRIVER", p.Driver)
	p.DSN = getEnvOrDefault("LOREKEEP_DSN", p.DSN)

	p.EmbeddingProvider = getEnvOrDefault("LOREKEEP_EMBEDDING_PROVIDER", "openai")
	p.EmbeddingAPIKey = getEnvOrDefault("LOREKEEP_EMBEDDING_API_KEY", p.EmbeddingAPIKey)
	p.EmbeddingBaseURL = getEnvOrDefault("LOREKEEP_EMBEDDING_BASE_URL", "https://api.openai.com/v1")
	p.EmbeddingModel = getEnvOrDefault("LOREKEEP_EMBEDDING_MODEL", "text-embedding-3-small")
	p.EmbeddingDims = getIntEnvOrDefault("LOREKEEP_EMBEDDING_DIMS", 384)

	p.MaxMemoryTokens = getIntEnvOrDefault("LOREKEEP_MAX_MEMORY_TOKENS", 8000)

	p.LogFile = getEnvOrDefault("LOREKEEP_LOG_FILE", p.LogFile)
}

func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	switch p.Driver {
	case "postgres", "sqlite":
	case "":
		p.Driver = "sqlite"
	default:
		return errors.Errorf("unknown driver %q: only 'postgres' and 'sqlite' are supported", p.Driver)
	}

	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("postgres driver requires a DSN")
	}
	if p.Driver == "sqlite" && p.DSN == "" {
		p.DSN = "lorekeep_" + p.Mode + ".db"
	}

	if p.EmbeddingDims <= 0 {
		p.EmbeddingDims = 384
	}
	if p.MaxMemoryTokens <= 0 {
		p.MaxMemoryTokens = 8000
	}

	return nil
}
