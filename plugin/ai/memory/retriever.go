package memory

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lorekeep/lorekeep/plugin/ai/timeout"
	"github.com/lorekeep/lorekeep/store"
)

// MemoryDocument is one retrieved memory with its similarity score.
// Score is always 1 - Distance; sibling chunks pulled in for group
// reconstruction carry Distance 0 and Score 1 since they were not
// ranked against the query.
type MemoryDocument struct {
	Memory          *store.Memory
	PersonalityName string
	Distance        float32
	Score           float32
}

// QueryMemories retrieves memories similar to queryText, scoped to one
// persona. Chunked results are expanded to their full chunk groups
// unless opts.NoSiblings is set. The read path never returns an error:
// any failure is logged and yields an empty result so the conversation
// turn can proceed without recall.
func (s *Service) QueryMemories(ctx context.Context, queryText string, opts QueryOptions) []*MemoryDocument {
	if strings.TrimSpace(queryText) == "" {
		return []*MemoryDocument{}
	}
	if opts.PersonaID == "" {
		slog.Warn("memory query missing persona id")
		return []*MemoryDocument{}
	}

	embedCtx, cancel := context.WithTimeout(ctx, timeout.EmbeddingTimeout)
	vector, err := s.embedder.Embed(embedCtx, queryText)
	cancel()
	if err != nil {
		slog.Warn("memory query embedding failed", "persona_id", opts.PersonaID, "error", err)
		return []*MemoryDocument{}
	}

	resolved := resolveQueryOptions(opts)
	searchCtx, cancel := context.WithTimeout(ctx, timeout.StoreTimeout)
	defer cancel()
	hits, err := s.store.SearchMemories(searchCtx, &store.SearchMemoriesOptions{
		Filter:      buildMemoryFilter(opts),
		Vector:      vector,
		MaxDistance: resolved.MaxDistance,
		Limit:       resolved.Limit,
	})
	if err != nil {
		slog.Warn("memory search failed", "persona_id", opts.PersonaID, "error", err)
		return []*MemoryDocument{}
	}

	documents := make([]*MemoryDocument, 0, len(hits))
	for _, hit := range hits {
		documents = append(documents, &MemoryDocument{
			Memory:          hit.Memory,
			PersonalityName: hit.PersonalityName,
			Distance:        hit.Distance,
			Score:           1 - hit.Distance,
		})
	}

	if !opts.NoSiblings {
		documents = s.expandSiblings(ctx, opts.PersonaID, documents)
	}
	return documents
}

// expandSiblings pulls in the missing chunks of every chunk group
// represented in the ranked results, so callers always see complete
// reconstructed groups. Groups are expanded in first-encounter order;
// within a group, siblings append in chunk-index order. A failed group
// fetch degrades that one group only.
func (s *Service) expandSiblings(ctx context.Context, personaID string, documents []*MemoryDocument) []*MemoryDocument {
	seen := make(map[string]bool, len(documents))
	var groupOrder []string
	groupSeen := make(map[string]bool)
	for _, doc := range documents {
		seen[doc.Memory.ID] = true
		if doc.Memory.IsChunk() && !groupSeen[*doc.Memory.ChunkGroupID] {
			groupSeen[*doc.Memory.ChunkGroupID] = true
			groupOrder = append(groupOrder, *doc.Memory.ChunkGroupID)
		}
	}

	for _, groupID := range groupOrder {
		group := groupID
		listCtx, cancel := context.WithTimeout(ctx, timeout.StoreTimeout)
		siblings, err := s.store.ListMemories(listCtx, &store.FindMemory{
			PersonaID:         &personaID,
			ChunkGroupID:      &group,
			OrderByChunkIndex: true,
		})
		cancel()
		if err != nil {
			slog.Warn("sibling fetch failed", "chunk_group_id", groupID, "error", err)
			continue
		}
		for _, sibling := range siblings {
			if seen[sibling.ID] {
				continue
			}
			seen[sibling.ID] = true
			documents = append(documents, &MemoryDocument{
				Memory:   sibling,
				Distance: 0,
				Score:    1,
			})
		}
	}
	return documents
}
