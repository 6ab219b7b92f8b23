package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"golang.org/x/sync/errgroup"

	"github.com/lorekeep/lorekeep/plugin/ai/timeout"
	"github.com/lorekeep/lorekeep/store"
)

// AddMemoryOptions carries the metadata persisted alongside a memory.
// PersonaID and PersonalityID are required; everything else is optional.
type AddMemoryOptions struct {
	PersonaID     string
	PersonalityID string

	SessionID   string
	CanonScope  string // defaults to "personal"
	SummaryType string
	ChannelID   string
	GuildID     string
	MessageIDs  []string
	SenderIDs   []string

	// CreatedTs is the record timestamp; zero uses the current time.
	CreatedTs int64
}

// AddMemory embeds and persists one memory. Texts over the token budget
// are split into chunks that share a deterministic group id and are
// embedded concurrently. All record ids derive from content, so calling
// AddMemory again with the same text and owner is a no-op per record;
// a partially failed write can simply be retried whole.
func (s *Service) AddMemory(ctx context.Context, text string, opts AddMemoryOptions) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("memory text is empty")
	}
	if opts.PersonaID == "" {
		return fmt.Errorf("persona id is required")
	}
	if opts.PersonalityID == "" {
		return fmt.Errorf("personality id is required")
	}
	if opts.CanonScope == "" {
		opts.CanonScope = "personal"
	}
	if opts.CreatedTs == 0 {
		opts.CreatedTs = time.Now().Unix()
	}

	writeID := shortuuid.New()
	result := ChunkText(text, s.config.MaxMemoryTokens, s.counter)
	if !result.WasChunked {
		return s.writeRecord(ctx, text, MemoryID(opts.PersonaID, opts.PersonalityID, text), nil, opts)
	}

	groupID := ChunkGroupID(opts.PersonaID, opts.PersonalityID, text)
	totalChunks := int32(len(result.Chunks))
	slog.Info("chunking oversized memory",
		"write_id", writeID,
		"persona_id", opts.PersonaID,
		"tokens", result.OriginalTokens,
		"chunks", totalChunks)

	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range result.Chunks {
		index := int32(i)
		chunkText := chunk
		g.Go(func() error {
			if got := s.counter.CountTokens(chunkText); got > s.config.MaxMemoryTokens {
				slog.Warn("chunk exceeds token budget after split",
					"write_id", writeID,
					"chunk_index", index,
					"tokens", got)
			}
			link := &chunkLink{groupID: groupID, index: index, total: totalChunks}
			id := chunkMemoryID(opts.PersonaID, opts.PersonalityID, int(index), chunkText)
			if err := s.writeRecord(gctx, chunkText, id, link, opts); err != nil {
				return fmt.Errorf("chunk %d/%d: %w", index+1, totalChunks, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// chunkLink is the group linkage carried by one chunk record.
type chunkLink struct {
	groupID string
	index   int32
	total   int32
}

func (s *Service) writeRecord(ctx context.Context, text, id string, link *chunkLink, opts AddMemoryOptions) error {
	embedCtx, cancel := context.WithTimeout(ctx, timeout.EmbeddingTimeout)
	vector, err := s.embedder.Embed(embedCtx, text)
	cancel()
	if err != nil {
		return fmt.Errorf("embed memory: %w", err)
	}
	if len(vector) == 0 || len(vector) != s.embedder.Dimensions() {
		return fmt.Errorf("embed memory: got %d dimensions, want %d", len(vector), s.embedder.Dimensions())
	}

	create := &store.Memory{
		ID:            id,
		PersonaID:     opts.PersonaID,
		PersonalityID: opts.PersonalityID,
		Content:       text,
		Embedding:     vector,
		SessionID:     opts.SessionID,
		CanonScope:    opts.CanonScope,
		SummaryType:   opts.SummaryType,
		ChannelID:     opts.ChannelID,
		GuildID:       opts.GuildID,
		MessageIDs:    opts.MessageIDs,
		SenderIDs:     opts.SenderIDs,
		CreatedTs:     opts.CreatedTs,
	}
	if link != nil {
		create.ChunkGroupID = &link.groupID
		create.ChunkIndex = &link.index
		create.TotalChunks = &link.total
	}

	storeCtx, cancel := context.WithTimeout(ctx, timeout.StoreTimeout)
	defer cancel()
	inserted, err := s.store.CreateMemoryIgnoreConflict(storeCtx, create)
	if err != nil {
		return fmt.Errorf("persist memory: %w", err)
	}
	if !inserted {
		slog.Debug("duplicate memory write skipped", "memory_id", id, "persona_id", opts.PersonaID)
	}
	return nil
}
