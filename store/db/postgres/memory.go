package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/lorekeep/lorekeep/store"
)

// CreateMemoryIgnoreConflict inserts a memory row. A pre-existing id is a
// no-op (first-writer-wins); the bool result reports whether a row was
// actually inserted.
func (d *DB) CreateMemoryIgnoreConflict(ctx context.Context, create *store.Memory) (bool, error) {
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
		pgvector.NewVector(create.Embedding),
		create.SessionID,
		create.CanonScope,
		create.SummaryType,
		create.ChannelID,
		create.GuildID,
		pq.Array(create.MessageIDs),
		pq.Array(create.SenderIDs),
		create.ChunkGroupID,
		create.ChunkIndex,
		create.TotalChunks,
		create.CreatedTs,
	}

	stmt := `INSERT INTO memory (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		ON CONFLICT (id) DO NOTHING`

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
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.PersonaID != nil {
		where, args = append(where, "persona_id = "+placeholder(len(args)+1)), append(args, *find.PersonaID)
	}
	if find.PersonalityID != nil {
		where, args = append(where, "personality_id = "+placeholder(len(args)+1)), append(args, *find.PersonalityID)
	}
	if find.ChunkGroupID != nil {
		where, args = append(where, "chunk_group_id = "+placeholder(len(args)+1)), append(args, *find.ChunkGroupID)
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
		query += " LIMIT " + placeholder(len(args))
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

// SearchMemories performs vector similarity search using pgvector.
// The <=> operator computes cosine distance, so ordering ascending puts
// the most similar rows first.
func (d *DB) SearchMemories(ctx context.Context, opts *store.SearchMemoriesOptions) ([]*store.MemoryHit, error) {
	if opts == nil {
		return nil, errors.New("search options cannot be nil")
	}

	vector := pgvector.NewVector(opts.Vector)
	where, args := []string{"m.persona_id = $2"}, []any{vector, opts.Filter.PersonaID}

	if opts.Filter.PersonalityID != nil {
		where, args = append(where, "m.personality_id = "+placeholder(len(args)+1)), append(args, *opts.Filter.PersonalityID)
	}
	if opts.Filter.CreatedBefore != nil {
		where, args = append(where, "m.created_ts <= "+placeholder(len(args)+1)), append(args, *opts.Filter.CreatedBefore)
	}
	if len(opts.Filter.ExcludeIDs) > 0 {
		where, args = append(where, "m.id <> ALL("+placeholder(len(args)+1)+")"), append(args, pq.Array(opts.Filter.ExcludeIDs))
	}
	if len(opts.Filter.ChannelIDs) > 0 {
		where, args = append(where, "m.channel_id = ANY("+placeholder(len(args)+1)+")"), append(args, pq.Array(opts.Filter.ChannelIDs))
	}

	args = append(args, opts.MaxDistance)
	where = append(where, "(m.embedding <=> $1) <= "+placeholder(len(args)))

	args = append(args, opts.Limit)

	query := `
		SELECT
			m.id, m.persona_id, m.personality_id, m.content, m.embedding,
			m.session_id, m.canon_scope, m.summary_type, m.channel_id, m.guild_id,
			m.message_ids, m.sender_ids, m.chunk_group_id, m.chunk_index, m.total_chunks, m.created_ts,
			m.embedding <=> $1 AS distance,
			COALESCE(p.name, '') AS personality_name
		FROM memory m
		LEFT JOIN personality p ON p.id = m.personality_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY distance ASC
		LIMIT ` + placeholder(len(args))

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search memories")
	}
	defer rows.Close()

	results := []*store.MemoryHit{}
	for rows.Next() {
		var hit store.MemoryHit
		var memory store.Memory
		var vec pgvector.Vector
		var chunkGroupID sql.NullString
		var chunkIndex, totalChunks sql.NullInt32

		err := rows.Scan(
			&memory.ID,
			&memory.PersonaID,
			&memory.PersonalityID,
			&memory.Content,
			&vec,
			&memory.SessionID,
			&memory.CanonScope,
			&memory.SummaryType,
			&memory.ChannelID,
			&memory.GuildID,
			pq.Array(&memory.MessageIDs),
			pq.Array(&memory.SenderIDs),
			&chunkGroupID,
			&chunkIndex,
			&totalChunks,
			&memory.CreatedTs,
			&hit.Distance,
			&hit.PersonalityName,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan memory hit")
		}

		memory.Embedding = vec.Slice()
		assignChunkFields(&memory, chunkGroupID, chunkIndex, totalChunks)

		hit.Memory = &memory
		results = append(results, &hit)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate memory hits")
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
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *delete.ID)
	}
	if delete.PersonaID != nil {
		where, args = append(where, "persona_id = "+placeholder(len(args)+1)), append(args, *delete.PersonaID)
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
	var memory store.Memory
	var vec pgvector.Vector
	var chunkGroupID sql.NullString
	var chunkIndex, totalChunks sql.NullInt32

	err := rows.Scan(
		&memory.ID,
		&memory.PersonaID,
		&memory.PersonalityID,
		&memory.Content,
		&vec,
		&memory.SessionID,
		&memory.CanonScope,
		&memory.SummaryType,
		&memory.ChannelID,
		&memory.GuildID,
		pq.Array(&memory.MessageIDs),
		pq.Array(&memory.SenderIDs),
		&chunkGroupID,
		&chunkIndex,
		&totalChunks,
		&memory.CreatedTs,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan memory")
	}

	memory.Embedding = vec.Slice()
	assignChunkFields(&memory, chunkGroupID, chunkIndex, totalChunks)
	return &memory, nil
}

func assignChunkFields(memory *store.Memory, groupID sql.NullString, index, total sql.NullInt32) {
	if groupID.Valid {
		v := groupID.String
		memory.ChunkGroupID = &v
	}
	if index.Valid {
		v := index.Int32
		memory.ChunkIndex = &v
	}
	if total.Valid {
		v := total.Int32
		memory.TotalChunks = &v
	}
}
