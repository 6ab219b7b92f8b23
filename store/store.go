package store

import (
	"context"

	"github.com/lorekeep/lorekeep/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// CreateMemoryIgnoreConflict persists a memory; duplicate ids are a no-op.
func (s *Store) CreateMemoryIgnoreConflict(ctx context.Context, create *Memory) (bool, error) {
	return s.driver.CreateMemoryIgnoreConflict(ctx, create)
}

// ListMemories lists memories by plain equality predicates.
func (s *Store) ListMemories(ctx context.Context, find *FindMemory) ([]*Memory, error) {
	return s.driver.ListMemories(ctx, find)
}

// SearchMemories performs vector similarity search.
func (s *Store) SearchMemories(ctx context.Context, opts *SearchMemoriesOptions) ([]*MemoryHit, error) {
	return s.driver.SearchMemories(ctx, opts)
}

// DeleteMemory removes memories; administrative use only.
func (s *Store) DeleteMemory(ctx context.Context, delete *DeleteMemory) error {
	return s.driver.DeleteMemory(ctx, delete)
}

func (s *Store) UpsertPersonality(ctx context.Context, upsert *Personality) (*Personality, error) {
	return s.driver.UpsertPersonality(ctx, upsert)
}

func (s *Store) GetPersonality(ctx context.Context, id string) (*Personality, error) {
	return s.driver.GetPersonality(ctx, id)
}
