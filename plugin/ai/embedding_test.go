package ai

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewEmbeddingService(t *testing.T) {
	t.Run("RejectsNilConfig", func(t *testing.T) {
		_, err := NewEmbeddingService(nil)
		require.Error(t, err)
	})

	t.Run("RejectsNonPositiveDimensions", func(t *testing.T) {
		_, err := NewEmbeddingService(&EmbeddingConfig{Dimensions: 0})
		require.Error(t, err)
		_, err = NewEmbeddingService(&EmbeddingConfig{Dimensions: -5})
		require.Error(t, err)
	})

	t.Run("RejectsUnknownProvider", func(t *testing.T) {
		_, err := NewEmbeddingService(&EmbeddingConfig{Provider: "anthropic", Dimensions: 384})
		require.Error(t, err)
		require.Contains(t, err.Error(), "unsupported embedding provider")
	})

	t.Run("EmptyProviderMeansOpenAI", func(t *testing.T) {
		service, err := NewEmbeddingService(&EmbeddingConfig{Dimensions: 384})
		require.NoError(t, err)
		require.Equal(t, 384, service.Dimensions())
	})

	t.Run("CompatibleEndpointAccepted", func(t *testing.T) {
		service, err := NewEmbeddingService(&EmbeddingConfig{
			Provider:   "openai",
			BaseURL:    "http://localhost:11434/v1",
			Model:      "nomic-embed-text",
			Dimensions: 768,
		})
		require.NoError(t, err)
		require.Equal(t, 768, service.Dimensions())
	})
}
