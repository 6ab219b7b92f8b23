package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/lorekeep/lorekeep/store"
)

// CreateMemoryIgnoreConflict inserts a memory row with INSERT OR IGNORE
// semantics; a pre-existing id is a no-op, never an error.
func (d *DB) CreateMemoryIgnoreConflict(ctx context.Context, create *store.Memory) (bool, error) {
	embedding, err := json.Marshal(create.Embedding)
	if err != nil {
		return false, errors.Wrap(err, "failed to encode embedding")
	}
	messageIDs, err := json.Marshal(orEmpty(create.MessageIDs))
	if err != nil {
		return false, errors.Wrap(err, "failed to encode message ids")
	}
	senderIDs, err := json.Marshal(orEmpty(create.SenderIDs))
	if err != nil {
		return false, errors.Wrap(err, "failed to encode sender ids")
	}

	fields := []string{
		"id", "persona_id", "personality_id", "content", "embedding",
		"session_id", "canon_scope", "summary_type", "channel_id", "guild_id",
		"message_ids", "sender_ids", "chunk_group_id", "chunk_index", "total_chunks", "created_ts",
	}

	args := []any{
		create.ID,
		create.PersonaID,
		create.PersonalityID,
		create.Content,
		string(embedding),
		create.SessionID,
		create.CanonScope,
		create.SummaryType,
		create.ChannelID,
		create.GuildID,
		string(messageIDs),
		string(senderIDs),
		create.ChunkGroupID,
		create.ChunkIndex,
		create.TotalChunks,
		create.CreatedTs,
	}

	stmt := `INSERT OR IGNORE INTO memory (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)`

	result, err := d.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return false, errors.Wrap(err, "failed to create memory")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read rows affected")
	}
	return rows > 0, nil
}

// ListMemories lists memories by plain equality predicates.
func (d *DB) ListMemories(ctx context.Context, find *store.FindMemory) ([]*store.Memory, error) {
	if find == nil {
		return nil, errors.New("find parameter cannot be nil")
	}

	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.PersonaID != nil {
		where, args = append(where, "persona_id = ?"), append(args, *find.PersonaID)
	}
	if find.PersonalityID != nil {
		where, args = append(where, "personality_id = ?"), append(args, *find.PersonalityID)
	}
	if find.ChunkGroupID != nil {
		where, args = append(where, "chunk_group_id = ?"), append(args, *find.ChunkGroupID)
	}

	orderBy := "created_ts DESC"
	if find.OrderByChunkIndex {
		orderBy = "chunk_index ASC"
	}

	query := `SELECT id, persona_id, personality_id, content, embedding,
			session_id, canon_scope, summary_type, channel_id, guild_id,
			message_ids, sender_ids, chunk_group_id, chunk_index, total_chunks, created_ts
		FROM memory WHERE ` + strings.Join(where, " AND ") + ` ORDER BY ` + orderBy

	if find.Limit > 0 {
		args = append(args, find.Limit)
		query += " LIMIT ?"
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list memories")
	}
	defer rows.Close()

	list := []*store.Memory{}
	for rows.Next() {
		memory, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, memory)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate memories")
	}

	return list, nil
}

// SearchMemories filters candidate rows in SQL, then ranks them in-process
// by cosine distance. Best effort for development; PostgreSQL ranks in the
// database with an index.
func (d *DB) SearchMemories(ctx context.Context, opts *store.SearchMemoriesOptions) ([]*store.MemoryHit, error) {
	if opts == nil {
		return nil, errors.New("search options cannot be nil")
	}

	where, args := []string{"m.persona_id = ?"}, []any{opts.Filter.PersonaID}

	if opts.Filter.PersonalityID != nil {
		where, args = append(where, "m.personality_id = ?"), append(args, *opts.Filter.PersonalityID)
	}
	if opts.Filter.CreatedBefore != nil {
		where, args = append(where, "m.created_ts <= ?"), append(args, *opts.Filter.CreatedBefore)
	}
	if len(opts.Filter.ExcludeIDs) > 0 {
		where = append(where, "m.id NOT IN ("+placeholders(len(opts.Filter.ExcludeIDs))+")")
		for _, id := range opts.Filter.ExcludeIDs {
			args = append(args, id)
		}
	}
	if len(opts.Filter.ChannelIDs) > 0 {
		where = append(where, "m.channel_id IN ("+placeholders(len(opts.Filter.ChannelIDs))+")")
		for _, id := range opts.Filter.ChannelIDs {
			args = append(args, id)
		}
	}

	query := `
		SELECT
			m.id, m.persona_id, m.personality_id, m.content, m.embedding,
			m.session_id, m.canon_scope, m.summary_type, m.channel_id, m.guild_id,
			m.message_ids, m.sender_ids, m.chunk_group_id, m.chunk_index, m.total_chunks, m.created_ts,
			COALESCE(p.name, '') AS personality_name
		FROM memory m
		LEFT JOIN personality p ON p.id = m.personality_id
		WHERE ` + strings.Join(where, " AND ")

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search memories")
	}
	defer rows.Close()

	results := []*store.MemoryHit{}
	for rows.Next() {
		var hit store.MemoryHit
		memory, err := scanMemoryWith(rows, &hit.PersonalityName)
		if err != nil {
			return nil, err
		}

		hit.Memory = memory
		hit.Distance = store.CosineDistance(opts.Vector, memory.Embedding)
		if hit.Distance <= opts.MaxDistance {
			results = append(results, &hit)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate memory hits")
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}

	return results, nil
}

// DeleteMemory removes memories matching the delete condition.
func (d *DB) DeleteMemory(ctx context.Context, delete *store.DeleteMemory) error {
	if delete == nil {
		return errors.New("delete parameter cannot be nil")
	}

	where, args := []string{}, []any{}

	if delete.ID != nil {
		where, args = append(where, "id = ?"), append(args, *delete.ID)
	}
	if delete.PersonaID != nil {
		where, args = append(where, "persona_id = ?"), append(args, *delete.PersonaID)
	}

	if len(where) == 0 {
		return errors.New("no condition to delete memory")
	}

	stmt := `DELETE FROM memory WHERE ` + strings.Join(where, " AND ")
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return errors.Wrap(err, "failed to delete memory")
	}

	return nil
}

func scanMemory(rows *sql.Rows) (*store.Memory, error) {
	return scanMemoryWith(rows, nil)
}

// scanMemoryWith scans a memory row; when personalityName is non-nil the
// row is expected to carry a trailing personality_name column.
func scanMemoryWith(rows *sql.Rows, personalityName *string) (*store.Memory, error) {
	var memory store.Memory
	var embedding, messageIDs, senderIDs string
	var chunkGroupID sql.NullString
	var chunkIndex, totalChunks sql.NullInt32

	dest := []any{
		&memory.ID,
		&memory.PersonaID,
		&memory.PersonalityID,
		&memory.Content,
		&embedding,
		&memory.SessionID,
		&memory.CanonScope,
		&memory.SummaryType,
		&memory.ChannelID,
		&memory.GuildID,
		&messageIDs,
		&senderIDs,
		&chunkGroupID,
		&chunkIndex,
		&totalChunks,
		&memory.CreatedTs,
	}
	if personalityName != nil {
		dest = append(dest, personalityName)
	}

	if err := rows.Scan(dest...); err != nil {
		return nil, errors.Wrap(err, "failed to scan memory")
	}

	if err := json.Unmarshal([]byte(embedding), &memory.Embedding); err != nil {
		return nil, errors.Wrap(err, "failed to decode embedding")
	}
	if err := json.Unmarshal([]byte(messageIDs), &memory.MessageIDs); err != nil {
		return nil, errors.Wrap(err, "failed to decode message ids")
	}
	if err := json.Unmarshal([]byte(senderIDs), &memory.SenderIDs); err != nil {
		return nil, errors.Wrap(err, "failed to decode sender ids")
	}

	if chunkGroupID.Valid {
		v := chunkGroupID.String
		memory.ChunkGroupID = &v
	}
	if chunkIndex.Valid {
		v := chunkIndex.Int32
		memory.ChunkIndex = &v
	}
	if totalChunks.Valid {
		v := totalChunks.Int32
		memory.TotalChunks = &v
	}

	return &memory, nil
}

func orEmpty(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
