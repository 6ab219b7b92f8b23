package memory

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"

	"github.com/lorekeep/lorekeep/store"
)

// mockTokenCounter counts one token per rune.
type mockTokenCounter struct{}

func (mockTokenCounter) CountTokens(text string) int {
	return len([]rune(text))
}

// mockEmbedder returns canned vectors when registered, otherwise a
// deterministic unit vector derived from the text hash.
type mockEmbedder struct {
	dimensions int
	vectors    map[string][]float32
	embedErr   error
}

func newMockEmbedder(dimensions int) *mockEmbedder {
	return &mockEmbedder{
		dimensions: dimensions,
		vectors:    make(map[string][]float32),
	}
}

func (e *mockEmbedder) register(text string, vector []float32) {
	e.vectors[text] = vector
}

func (e *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.embedErr != nil {
		return nil, e.embedErr
	}
	if vector, ok := e.vectors[text]; ok {
		return vector, nil
	}
	hasher := fnv.New64a()
	hasher.Write([]byte(text))
	seed := hasher.Sum64()
	vector := make([]float32, e.dimensions)
	for i := range vector {
		seed = seed*6364136223846793005 + 1442695040888963407
		vector[i] = float32(int64(seed>>32)) / float32(1<<31)
	}
	return vector, nil
}

func (e *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vector, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, vector)
	}
	return vectors, nil
}

func (e *mockEmbedder) Dimensions() int { return e.dimensions }

func (e *mockEmbedder) IsReady(ctx context.Context) bool { return e.embedErr == nil }

// mockDriver is an in-memory store.Driver for engine tests. Ranking
// mirrors the sqlite driver: filter in full, rank by cosine distance.
type mockDriver struct {
	mu            sync.Mutex
	memories      map[string]*store.Memory
	personalities map[string]*store.Personality

	insertAttempts int
	insertedCount  int

	createErr error
	listErr   error
	// listErrGroups fails sibling fetches for specific chunk groups.
	listErrGroups map[string]error
	// searchHook, when set, intercepts every search call.
	searchHook func(opts *store.SearchMemoriesOptions) ([]*store.MemoryHit, error)
}

func newMockDriver() *mockDriver {
	return &mockDriver{
		memories:      make(map[string]*store.Memory),
		personalities: make(map[string]*store.Personality),
	}
}

func (d *mockDriver) GetDB() *sql.DB { return nil }

func (d *mockDriver) Close() error { return nil }

func (d *mockDriver) IsInitialized(ctx context.Context) (bool, error) { return true, nil }

func (d *mockDriver) CreateMemoryIgnoreConflict(ctx context.Context, create *store.Memory) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.insertAttempts++
	if d.createErr != nil {
		return false, d.createErr
	}
	if _, ok := d.memories[create.ID]; ok {
		return false, nil
	}
	clone := *create
	d.memories[create.ID] = &clone
	d.insertedCount++
	return true, nil
}

func (d *mockDriver) ListMemories(ctx context.Context, find *store.FindMemory) ([]*store.Memory, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.listErr != nil {
		return nil, d.listErr
	}
	if find.ChunkGroupID != nil {
		if err := d.listErrGroups[*find.ChunkGroupID]; err != nil {
			return nil, err
		}
	}

	var list []*store.Memory
	for _, m := range d.memories {
		if find.ID != nil && m.ID != *find.ID {
			continue
		}
		if find.PersonaID != nil && m.PersonaID != *find.PersonaID {
			continue
		}
		if find.PersonalityID != nil && m.PersonalityID != *find.PersonalityID {
			continue
		}
		if find.ChunkGroupID != nil && (m.ChunkGroupID == nil || *m.ChunkGroupID != *find.ChunkGroupID) {
			continue
		}
		list = append(list, m)
	}

	sort.SliceStable(list, func(i, j int) bool {
		if find.OrderByChunkIndex {
			return chunkIndexOf(list[i]) < chunkIndexOf(list[j])
		}
		return list[i].CreatedTs > list[j].CreatedTs
	})
	if find.Limit > 0 && len(list) > find.Limit {
		list = list[:find.Limit]
	}
	return list, nil
}

func chunkIndexOf(m *store.Memory) int32 {
	if m.ChunkIndex == nil {
		return 0
	}
	return *m.ChunkIndex
}

func (d *mockDriver) SearchMemories(ctx context.Context, opts *store.SearchMemoriesOptions) ([]*store.MemoryHit, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.searchHook != nil {
		return d.searchHook(opts)
	}

	excluded := make(map[string]bool, len(opts.Filter.ExcludeIDs))
	for _, id := range opts.Filter.ExcludeIDs {
		excluded[id] = true
	}
	channels := make(map[string]bool, len(opts.Filter.ChannelIDs))
	for _, id := range opts.Filter.ChannelIDs {
		channels[id] = true
	}

	var hits []*store.MemoryHit
	for _, m := range d.memories {
		if m.PersonaID != opts.Filter.PersonaID {
			continue
		}
		if opts.Filter.PersonalityID != nil && m.PersonalityID != *opts.Filter.PersonalityID {
			continue
		}
		if opts.Filter.CreatedBefore != nil && m.CreatedTs > *opts.Filter.CreatedBefore {
			continue
		}
		if excluded[m.ID] {
			continue
		}
		if len(channels) > 0 && !channels[m.ChannelID] {
			continue
		}
		distance := store.CosineDistance(opts.Vector, m.Embedding)
		if distance > opts.MaxDistance {
			continue
		}
		hit := &store.MemoryHit{Memory: m, Distance: distance}
		if p, ok := d.personalities[m.PersonalityID]; ok {
			hit.PersonalityName = p.Name
		}
		hits = append(hits, hit)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	if opts.Limit > 0 && len(hits) > opts.Limit {
		hits = hits[:opts.Limit]
	}
	return hits, nil
}

func (d *mockDriver) DeleteMemory(ctx context.Context, find *store.DeleteMemory) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if find.ID == nil && find.PersonaID == nil {
		return fmt.Errorf("refusing unconditional delete")
	}
	for id, m := range d.memories {
		if find.ID != nil && id != *find.ID {
			continue
		}
		if find.PersonaID != nil && m.PersonaID != *find.PersonaID {
			continue
		}
		delete(d.memories, id)
	}
	return nil
}

func (d *mockDriver) UpsertPersonality(ctx context.Context, upsert *store.Personality) (*store.Personality, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	clone := *upsert
	d.personalities[upsert.ID] = &clone
	return &clone, nil
}

func (d *mockDriver) GetPersonality(ctx context.Context, id string) (*store.Personality, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.personalities[id]; ok {
		clone := *p
		return &clone, nil
	}
	return nil, nil
}
