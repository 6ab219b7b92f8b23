package store

// Memory represents one retrievable unit of conversational context.
// A memory is either a complete unit (no chunk fields) or one chunk of a
// larger original that was split to fit the embedding token budget.
type Memory struct {
	ID            string
	PersonaID     string
	PersonalityID string
	Content       string
	Embedding     []float32 // fixed-length vector, dimension set by the embedding service

	// Metadata
	SessionID   string
	CanonScope  string // defaults to "personal"
	SummaryType string
	ChannelID   string
	GuildID     string
	MessageIDs  []string
	SenderIDs   []string

	// Chunk linkage; all nil for un-chunked memories.
	ChunkGroupID *string
	ChunkIndex   *int32
	TotalChunks  *int32

	CreatedTs int64
}

// IsChunk reports whether this memory is part of a chunk group.
func (m *Memory) IsChunk() bool {
	return m.ChunkGroupID != nil
}

// MemoryFilter is the ordered predicate set for memory queries.
// PersonaID is the only mandatory filter; nil/empty optional fields mean
// "not specified", never "match empty".
type MemoryFilter struct {
	PersonaID     string
	PersonalityID *string
	CreatedBefore *int64 // exclude memories newer than this unix timestamp
	ExcludeIDs    []string
	ChannelIDs    []string
}

// FindMemory is the find condition for plain (non-ranked) memory reads.
type FindMemory struct {
	ID            *string
	PersonaID     *string
	PersonalityID *string
	ChunkGroupID  *string
	Limit         int
	// OrderByChunkIndex orders ascending by chunk_index instead of created_ts.
	OrderByChunkIndex bool
}

// DeleteMemory is the delete condition for administrative removal.
// The memory engine itself never deletes; this exists for external
// administrative tooling only.
type DeleteMemory struct {
	ID        *string
	PersonaID *string
}

// SearchMemoriesOptions is a ranked nearest-neighbor query over the
// embedding column with additional equality/range predicates.
type SearchMemoriesOptions struct {
	Filter      MemoryFilter
	Vector      []float32
	MaxDistance float32 // results with cosine distance above this are dropped
	Limit       int
}

// MemoryHit is a vector search result with its cosine distance and
// read-only display enrichment.
type MemoryHit struct {
	Memory          *Memory
	Distance        float32
	PersonalityName string // from the personality lookup join; may be empty
}
