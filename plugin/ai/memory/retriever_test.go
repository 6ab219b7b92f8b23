package memory

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lorekeep/lorekeep/store"
)

func TestQueryMemories(t *testing.T) {
	ctx := context.Background()
	writeOpts := AddMemoryOptions{PersonaID: "persona-1", PersonalityID: "luna"}
	queryOpts := QueryOptions{PersonaID: "persona-1"}

	t.Run("RoundTrip", func(t *testing.T) {
		service, _, embedder := newTestService(t, nil)
		embedder.register("the moon is made of cheese", []float32{1, 0, 0, 0})
		embedder.register("what is the moon made of", []float32{1, 0, 0, 0})
		require.NoError(t, service.AddMemory(ctx, "the moon is made of cheese", writeOpts))

		documents := service.QueryMemories(ctx, "what is the moon made of", queryOpts)
		require.Len(t, documents, 1)
		require.Equal(t, "the moon is made of cheese", documents[0].Memory.Content)
		require.InDelta(t, 1.0, documents[0].Score, 1e-5)
	})

	t.Run("ChunkedRoundTrip", func(t *testing.T) {
		service, _, embedder := newTestService(t, &Config{MaxMemoryTokens: 4})
		// "abcdefghij" splits into "abc", "def", "ghij"; only the
		// middle chunk matches the query.
		embedder.register("abc", []float32{0, 1, 0, 0})
		embedder.register("def", []float32{1, 0, 0, 0})
		embedder.register("ghij", []float32{0, 1, 0, 0})
		embedder.register("middle query", []float32{1, 0, 0, 0})
		require.NoError(t, service.AddMemory(ctx, "abcdefghij", writeOpts))

		documents := service.QueryMemories(ctx, "middle query", queryOpts)
		require.Len(t, documents, 3)

		ordered := make([]*MemoryDocument, len(documents))
		copy(ordered, documents)
		sort.Slice(ordered, func(i, j int) bool {
			return *ordered[i].Memory.ChunkIndex < *ordered[j].Memory.ChunkIndex
		})
		reconstructed := ""
		for _, doc := range ordered {
			reconstructed += doc.Memory.Content
		}
		require.Equal(t, "abcdefghij", reconstructed)
	})

	t.Run("ScoreIsOneMinusDistance", func(t *testing.T) {
		service, _, embedder := newTestService(t, nil)
		embedder.register("memory text", []float32{1, 0, 0, 0})
		embedder.register("query text", []float32{0.6, 0.8, 0, 0})
		require.NoError(t, service.AddMemory(ctx, "memory text", writeOpts))

		// cosine similarity 0.6 sits below the default floor of 0.85.
		documents := service.QueryMemories(ctx, "query text", queryOpts)
		require.Empty(t, documents)

		loose := queryOpts
		loose.MinSimilarity = 0.5
		documents = service.QueryMemories(ctx, "query text", loose)
		require.Len(t, documents, 1)
		require.InDelta(t, 0.4, documents[0].Distance, 1e-5)
		require.InDelta(t, 0.6, documents[0].Score, 1e-5)
	})

	t.Run("EmptyQueryShortCircuits", func(t *testing.T) {
		service, driver, _ := newTestService(t, nil)
		driver.searchHook = func(opts *store.SearchMemoriesOptions) ([]*store.MemoryHit, error) {
			t.Fatal("search must not run for an empty query")
			return nil, nil
		}
		require.Empty(t, service.QueryMemories(ctx, "  \n ", queryOpts))
	})

	t.Run("PersonaScoping", func(t *testing.T) {
		service, _, embedder := newTestService(t, nil)
		embedder.register("shared secret", []float32{1, 0, 0, 0})
		require.NoError(t, service.AddMemory(ctx, "shared secret",
			AddMemoryOptions{PersonaID: "persona-2", PersonalityID: "luna"}))

		embedder.register("find the secret", []float32{1, 0, 0, 0})
		require.Empty(t, service.QueryMemories(ctx, "find the secret", queryOpts))
	})

	t.Run("EmbedderFailureIsFailOpen", func(t *testing.T) {
		service, _, embedder := newTestService(t, nil)
		embedder.embedErr = errors.New("backend down")
		require.Empty(t, service.QueryMemories(ctx, "anything", queryOpts))
	})

	t.Run("SearchFailureIsFailOpen", func(t *testing.T) {
		service, driver, _ := newTestService(t, nil)
		driver.searchHook = func(opts *store.SearchMemoriesOptions) ([]*store.MemoryHit, error) {
			return nil, errors.New("relation does not exist")
		}
		require.Empty(t, service.QueryMemories(ctx, "anything", queryOpts))
	})

	t.Run("PersonalityNameEnrichment", func(t *testing.T) {
		service, driver, embedder := newTestService(t, nil)
		_, err := driver.UpsertPersonality(ctx, &store.Personality{ID: "luna", Name: "Luna"})
		require.NoError(t, err)
		embedder.register("a named memory", []float32{1, 0, 0, 0})
		embedder.register("named query", []float32{1, 0, 0, 0})
		require.NoError(t, service.AddMemory(ctx, "a named memory", writeOpts))

		documents := service.QueryMemories(ctx, "named query", queryOpts)
		require.Len(t, documents, 1)
		require.Equal(t, "Luna", documents[0].PersonalityName)
	})
}

func TestSiblingReconstruction(t *testing.T) {
	ctx := context.Background()
	queryOpts := QueryOptions{PersonaID: "persona-1"}

	// seedChunkGroup writes three chunks directly; only the middle one
	// matches the query vector.
	seedChunkGroup := func(t *testing.T, driver *mockDriver, embedder *mockEmbedder) string {
		t.Helper()
		groupID := ChunkGroupID("persona-1", "luna", "seed")
		for i, content := range []string{"first part", "second part", "third part"} {
			index := int32(i)
			total := int32(3)
			vector := []float32{0, 1, 0, 0}
			if i == 1 {
				vector = []float32{1, 0, 0, 0}
			}
			_, err := driver.CreateMemoryIgnoreConflict(ctx, &store.Memory{
				ID:            chunkMemoryID("persona-1", "luna", i, content),
				PersonaID:     "persona-1",
				PersonalityID: "luna",
				Content:       content,
				Embedding:     vector,
				CanonScope:    "personal",
				ChunkGroupID:  &groupID,
				ChunkIndex:    &index,
				TotalChunks:   &total,
				CreatedTs:     100,
			})
			require.NoError(t, err)
		}
		embedder.register("group query", []float32{1, 0, 0, 0})
		return groupID
	}

	t.Run("CompletesTheGroup", func(t *testing.T) {
		service, driver, embedder := newTestService(t, nil)
		seedChunkGroup(t, driver, embedder)

		documents := service.QueryMemories(ctx, "group query", queryOpts)
		require.Len(t, documents, 3)

		// The ranked chunk comes first with a real score; siblings
		// follow in chunk-index order with a synthetic perfect score.
		require.Equal(t, "second part", documents[0].Memory.Content)
		require.InDelta(t, 1.0, documents[0].Score, 1e-5)
		require.Equal(t, "first part", documents[1].Memory.Content)
		require.Equal(t, "third part", documents[2].Memory.Content)
		for _, sibling := range documents[1:] {
			require.Zero(t, sibling.Distance)
			require.InDelta(t, 1.0, sibling.Score, 1e-5)
		}
	})

	t.Run("NoSiblingsDisablesExpansion", func(t *testing.T) {
		service, driver, embedder := newTestService(t, nil)
		seedChunkGroup(t, driver, embedder)

		opts := queryOpts
		opts.NoSiblings = true
		documents := service.QueryMemories(ctx, "group query", opts)
		require.Len(t, documents, 1)
	})

	t.Run("NoDuplicatesWhenGroupFullyRanked", func(t *testing.T) {
		service, driver, embedder := newTestService(t, nil)
		groupID := seedChunkGroup(t, driver, embedder)

		// Make every chunk match the query.
		for _, m := range driver.memories {
			m.Embedding = []float32{1, 0, 0, 0}
		}
		documents := service.QueryMemories(ctx, "group query", queryOpts)
		require.Len(t, documents, 3)
		seen := map[string]bool{}
		for _, doc := range documents {
			require.False(t, seen[doc.Memory.ID])
			seen[doc.Memory.ID] = true
			require.Equal(t, groupID, *doc.Memory.ChunkGroupID)
		}
	})

	t.Run("GroupFetchFailureDegradesThatGroupOnly", func(t *testing.T) {
		service, driver, embedder := newTestService(t, nil)
		groupID := seedChunkGroup(t, driver, embedder)
		driver.listErrGroups = map[string]error{groupID: errors.New("timeout")}

		documents := service.QueryMemories(ctx, "group query", queryOpts)
		require.Len(t, documents, 1)
		require.Equal(t, "second part", documents[0].Memory.Content)
	})
}
