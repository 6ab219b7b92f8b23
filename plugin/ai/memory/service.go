package memory

import (
	"github.com/pkg/errors"

	"github.com/lorekeep/lorekeep/plugin/ai"
	"github.com/lorekeep/lorekeep/store"
)

// DefaultMaxMemoryTokens is the embedding token budget one record may
// occupy before the write path splits it into chunks.
const DefaultMaxMemoryTokens = 8000

// Config tunes the memory engine.
type Config struct {
	// MaxMemoryTokens is the per-record token budget; <=0 uses
	// DefaultMaxMemoryTokens.
	MaxMemoryTokens int
}

// Service is the long-term memory engine. It owns the write path
// (chunking, embedding, idempotent persistence) and the read path
// (similarity retrieval, sibling reconstruction, waterfall scoping).
type Service struct {
	store    *store.Store
	embedder ai.EmbeddingService
	counter  TokenCounter
	config   Config
}

// NewService creates the memory engine. A nil config uses defaults.
func NewService(s *store.Store, embedder ai.EmbeddingService, counter TokenCounter, cfg *Config) (*Service, error) {
	if s == nil {
		return nil, errors.New("store is nil")
	}
	if embedder == nil {
		return nil, errors.New("embedding service is nil")
	}
	if counter == nil {
		return nil, errors.New("token counter is nil")
	}

	config := Config{}
	if cfg != nil {
		config = *cfg
	}
	if config.MaxMemoryTokens <= 0 {
		config.MaxMemoryTokens = DefaultMaxMemoryTokens
	}

	return &Service{
		store:    s,
		embedder: embedder,
		counter:  counter,
		config:   config,
	}, nil
}
