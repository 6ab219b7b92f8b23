// Package ai provides the embedding service used by the memory engine.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/lorekeep/lorekeep/internal/profile"
	"github.com/lorekeep/lorekeep/plugin/ai/timeout"
)

// ErrDimensionMismatch is returned when the provider produces a vector
// whose length differs from the configured dimension. The vector is never
// truncated or padded.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// ErrNotReady is returned when the embedding backend has not passed a
// readiness probe.
var ErrNotReady = errors.New("embedding service not ready")

// EmbeddingService is the vector embedding service interface.
type EmbeddingService interface {
	// Embed generates a vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates vectors for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector dimension.
	Dimensions() int

	// IsReady reports whether the backend is reachable and producing
	// vectors of the declared dimension.
	IsReady(ctx context.Context) bool
}

// EmbeddingConfig configures the OpenAI-compatible embedding backend.
type EmbeddingConfig struct {
	Provider   string // "openai" or any OpenAI-compatible endpoint
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int

	// MaxRetries bounds the exponential backoff retry loop (default 3).
	MaxRetries int
	// RequestsPerSecond is the client-side rate limit (default 5).
	RequestsPerSecond float64
}

type embeddingService struct {
	client     *openai.Client
	model      string
	dimensions int
	maxRetries int
	limiter    *rate.Limiter
	ready      atomic.Bool
}

// NewEmbeddingService creates a new EmbeddingService.
func NewEmbeddingService(cfg *EmbeddingConfig) (EmbeddingService, error) {
	if cfg == nil {
		return nil, errors.New("embedding config is nil")
	}
	if cfg.Dimensions <= 0 {
		return nil, errors.New("embedding dimensions must be positive")
	}

	switch cfg.Provider {
	case "openai", "":
		// OpenAI and compatible endpoints share the same client.
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}

	return &embeddingService{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		maxRetries: maxRetries,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
	}, nil
}

// NewEmbeddingServiceFromProfile builds the service from a runtime profile.
func NewEmbeddingServiceFromProfile(p *profile.Profile) (EmbeddingService, error) {
	return NewEmbeddingService(&EmbeddingConfig{
		Provider:   p.EmbeddingProvider,
		APIKey:     p.EmbeddingAPIKey,
		BaseURL:    p.EmbeddingBaseURL,
		Model:      p.EmbeddingModel,
		Dimensions: p.EmbeddingDims,
	})
}

func (s *embeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, errors.New("empty embedding result")
	}
	return vectors[0], nil
}

func (s *embeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errors.New("no texts provided for embedding")
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var vectors [][]float32
	err := s.doWithRetry(ctx, func() error {
		req := openai.EmbeddingRequest{
			Input:      texts,
			Model:      openai.EmbeddingModel(s.model),
			Dimensions: s.dimensions,
		}

		resp, err := s.client.CreateEmbeddings(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Data) == 0 {
			return errors.New("empty embedding response")
		}

		vectors = make([][]float32, len(resp.Data))
		for i, data := range resp.Data {
			vectors[i] = data.Embedding
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings failed: %w", err)
	}

	for i, vec := range vectors {
		if len(vec) != s.dimensions {
			return nil, fmt.Errorf("%w: input %d produced %d dimensions, want %d",
				ErrDimensionMismatch, i, len(vec), s.dimensions)
		}
	}

	s.ready.Store(true)
	return vectors, nil
}

func (s *embeddingService) Dimensions() int {
	return s.dimensions
}

// IsReady probes the backend with a trivial embed request. A successful
// probe (or any prior successful embed) is cached for the process lifetime.
func (s *embeddingService) IsReady(ctx context.Context) bool {
	if s.ready.Load() {
		return true
	}

	probeCtx, cancel := context.WithTimeout(ctx, timeout.ReadinessTimeout)
	defer cancel()

	if _, err := s.Embed(probeCtx, "ping"); err != nil {
		slog.Debug("embedding readiness probe failed", "error", err)
		return false
	}
	return true
}

// doWithRetry executes a function with exponential backoff retry.
func (s *embeddingService) doWithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			if attempt < s.maxRetries-1 {
				waitTime := time.Duration(math.Pow(2, float64(attempt))) * time.Second
				slog.Debug("embedding request failed, retrying",
					"attempt", attempt+1,
					"wait_time", waitTime,
					"error", err)
				select {
				case <-time.After(waitTime):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
	return lastErr
}
