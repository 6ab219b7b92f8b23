package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that a store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// Memory model related methods.
	//
	// CreateMemoryIgnoreConflict persists a memory with insert-or-ignore
	// semantics keyed on the primary id: a pre-existing id is a no-op,
	// never an error. Returns true when a row was actually inserted.
	CreateMemoryIgnoreConflict(ctx context.Context, create *Memory) (bool, error)
	ListMemories(ctx context.Context, find *FindMemory) ([]*Memory, error)
	SearchMemories(ctx context.Context, opts *SearchMemoriesOptions) ([]*MemoryHit, error)
	DeleteMemory(ctx context.Context, delete *DeleteMemory) error

	// Personality model related methods.
	UpsertPersonality(ctx context.Context, upsert *Personality) (*Personality, error)
	GetPersonality(ctx context.Context, id string) (*Personality, error)
}
