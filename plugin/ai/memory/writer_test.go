package memory

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lorekeep/lorekeep/store"
)

func TestAddMemory(t *testing.T) {
	ctx := context.Background()
	opts := AddMemoryOptions{PersonaID: "persona-1", PersonalityID: "luna"}

	t.Run("RejectsEmptyText", func(t *testing.T) {
		service, _, _ := newTestService(t, nil)
		require.Error(t, service.AddMemory(ctx, "   ", opts))
	})

	t.Run("RejectsMissingOwner", func(t *testing.T) {
		service, _, _ := newTestService(t, nil)
		require.Error(t, service.AddMemory(ctx, "text", AddMemoryOptions{PersonalityID: "luna"}))
		require.Error(t, service.AddMemory(ctx, "text", AddMemoryOptions{PersonaID: "persona-1"}))
	})

	t.Run("WritesSingleRecord", func(t *testing.T) {
		service, driver, _ := newTestService(t, nil)
		require.NoError(t, service.AddMemory(ctx, "the moon is made of cheese", opts))

		require.Len(t, driver.memories, 1)
		m := driver.memories[MemoryID("persona-1", "luna", "the moon is made of cheese")]
		require.NotNil(t, m)
		require.Equal(t, "the moon is made of cheese", m.Content)
		require.Equal(t, "personal", m.CanonScope)
		require.Len(t, m.Embedding, testDimensions)
		require.False(t, m.IsChunk())
		require.NotZero(t, m.CreatedTs)
	})

	t.Run("DuplicateWriteIsNoOp", func(t *testing.T) {
		service, driver, _ := newTestService(t, nil)
		require.NoError(t, service.AddMemory(ctx, "remember this once", opts))
		require.NoError(t, service.AddMemory(ctx, "remember this once", opts))

		require.Equal(t, 2, driver.insertAttempts)
		require.Equal(t, 1, driver.insertedCount)
		require.Len(t, driver.memories, 1)
	})

	t.Run("OversizedTextIsChunked", func(t *testing.T) {
		service, driver, _ := newTestService(t, &Config{MaxMemoryTokens: 4})
		require.NoError(t, service.AddMemory(ctx, "abcdefghij", opts))

		require.Len(t, driver.memories, 3)
		groupID := ChunkGroupID("persona-1", "luna", "abcdefghij")
		chunks := chunksOfGroup(driver, groupID)
		require.Len(t, chunks, 3)
		content := ""
		for i, chunk := range chunks {
			require.EqualValues(t, i, *chunk.ChunkIndex)
			require.EqualValues(t, 3, *chunk.TotalChunks)
			content += chunk.Content
		}
		require.Equal(t, "abcdefghij", content)
	})

	t.Run("ChunkedRetryRecreatesOnlyMissing", func(t *testing.T) {
		service, driver, _ := newTestService(t, &Config{MaxMemoryTokens: 4})
		require.NoError(t, service.AddMemory(ctx, "abcdefghij", opts))
		require.Equal(t, 3, driver.insertedCount)

		var ids []string
		for id := range driver.memories {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		victim := ids[0]
		require.NoError(t, driver.DeleteMemory(ctx, &store.DeleteMemory{ID: &victim}))

		require.NoError(t, service.AddMemory(ctx, "abcdefghij", opts))
		require.Len(t, driver.memories, 3)
		require.Equal(t, 4, driver.insertedCount)
		var after []string
		for id := range driver.memories {
			after = append(after, id)
		}
		sort.Strings(after)
		require.Equal(t, ids, after)
	})

	t.Run("EmbedderErrorPropagates", func(t *testing.T) {
		service, driver, embedder := newTestService(t, nil)
		embedder.embedErr = errors.New("backend down")
		require.Error(t, service.AddMemory(ctx, "some text", opts))
		require.Empty(t, driver.memories)
	})

	t.Run("StoreErrorPropagates", func(t *testing.T) {
		service, driver, _ := newTestService(t, nil)
		driver.createErr = errors.New("connection refused")
		require.Error(t, service.AddMemory(ctx, "some text", opts))
	})

	t.Run("DimensionMismatchPropagates", func(t *testing.T) {
		service, driver, embedder := newTestService(t, nil)
		embedder.register("bad vector text", []float32{1, 0})
		require.Error(t, service.AddMemory(ctx, "bad vector text", opts))
		require.Empty(t, driver.memories)
	})
}

func chunksOfGroup(driver *mockDriver, groupID string) []*store.Memory {
	var chunks []*store.Memory
	for _, m := range driver.memories {
		if m.ChunkGroupID != nil && *m.ChunkGroupID == groupID {
			chunks = append(chunks, m)
		}
	}
	sort.Slice(chunks, func(i, j int) bool {
		return *chunks[i].ChunkIndex < *chunks[j].ChunkIndex
	})
	return chunks
}
