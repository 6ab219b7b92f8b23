package postgres

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/lorekeep/lorekeep/store"
)

// UpsertPersonality inserts or updates a personality display-name row.
func (d *DB) UpsertPersonality(ctx context.Context, upsert *store.Personality) (*store.Personality, error) {
	stmt := `
		INSERT INTO personality (id, name, updated_ts)
		VALUES (` + placeholders(3) + `)
		ON CONFLICT (id)
		DO UPDATE SET
			name = EXCLUDED.name,
			updated_ts = EXCLUDED.updated_ts
		RETURNING id, name, updated_ts
	`

	var personality store.Personality
	err := d.db.QueryRowContext(ctx, stmt,
		upsert.ID,
		upsert.Name,
		upsert.UpdatedTs,
	).Scan(&personality.ID, &personality.Name, &personality.UpdatedTs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert personality")
	}

	return &personality, nil
}

// GetPersonality returns the personality row by id, or nil when absent.
func (d *DB) GetPersonality(ctx context.Context, id string) (*store.Personality, error) {
	query := `SELECT id, name, updated_ts FROM personality WHERE id = ` + placeholder(1)

	var personality store.Personality
	err := d.db.QueryRowContext(ctx, query, id).Scan(&personality.ID, &personality.Name, &personality.UpdatedTs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get personality")
	}

	return &personality, nil
}
