package memory

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkText(t *testing.T) {
	counter := mockTokenCounter{}

	t.Run("UnderBudgetPassesThroughWhole", func(t *testing.T) {
		result := ChunkText("short note", 100, counter)
		require.False(t, result.WasChunked)
		require.Equal(t, []string{"short note"}, result.Chunks)
		require.Equal(t, 10, result.OriginalTokens)
	})

	t.Run("ExactBudgetIsNotChunked", func(t *testing.T) {
		text := strings.Repeat("x", 100)
		result := ChunkText(text, 100, counter)
		require.False(t, result.WasChunked)
		require.Equal(t, []string{text}, result.Chunks)
	})

	t.Run("MinimalChunkCount", func(t *testing.T) {
		// 10 tokens against a budget of 4 needs ceil(10/4) = 3 chunks.
		result := ChunkText("abcdefghij", 4, counter)
		require.True(t, result.WasChunked)
		require.Len(t, result.Chunks, 3)
	})

	t.Run("EveryChunkWithinBudget", func(t *testing.T) {
		text := strings.Repeat("lorem ipsum ", 100)
		result := ChunkText(text, 75, counter)
		require.True(t, result.WasChunked)
		for _, chunk := range result.Chunks {
			require.LessOrEqual(t, counter.CountTokens(chunk), 75)
		}
	})

	t.Run("ConcatenationReconstructsExactly", func(t *testing.T) {
		text := strings.Repeat("héllo wörld ", 50)
		result := ChunkText(text, 40, counter)
		require.True(t, result.WasChunked)
		require.Equal(t, text, strings.Join(result.Chunks, ""))
	})

	t.Run("MultibyteRunesNeverSplit", func(t *testing.T) {
		text := strings.Repeat("日本語のテキスト", 20)
		result := ChunkText(text, 30, counter)
		for _, chunk := range result.Chunks {
			require.True(t, strings.ContainsRune("日本語のテキスト", []rune(chunk)[0]))
		}
		require.Equal(t, text, strings.Join(result.Chunks, ""))
	})

	t.Run("EmptyTextSingleChunk", func(t *testing.T) {
		result := ChunkText("", 10, counter)
		require.False(t, result.WasChunked)
		require.Equal(t, []string{""}, result.Chunks)
	})
}
