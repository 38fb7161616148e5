package memory

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps the log in PostgreSQL and leans on its full-text index
// for relevance search: ts_rank is the opaque relevance score, so the
// in-process ranker is skipped entirely on this backend.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &PostgresStore{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS turns (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			author_id TEXT NOT NULL,
			author_name TEXT NOT NULL,
			channel_id TEXT NOT NULL,
			guild_id TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			text_tsv tsvector GENERATED ALWAYS AS (to_tsvector('simple', text)) STORED
		);`,
		`CREATE INDEX IF NOT EXISTS idx_turns_guild ON turns (guild_id);`,
		`CREATE INDEX IF NOT EXISTS idx_turns_channel ON turns (channel_id);`,
		`CREATE INDEX IF NOT EXISTS idx_turns_created ON turns (created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_turns_text_tsv ON turns USING GIN (text_tsv);`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init postgres schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) SupportsLexicalSearch() bool { return true }

func (s *PostgresStore) Insert(ctx context.Context, t Turn) *Turn {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO turns (id, text, author_id, author_name, channel_id, guild_id, kind, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		 ON CONFLICT (id) DO NOTHING`,
		t.ID, t.Text, t.AuthorID, t.AuthorName, t.ChannelID, t.GuildID, string(t.Kind), now,
	)
	if err != nil {
		log.Printf("memory: postgres insert failed for %s: %v", t.ID, err)
		return nil
	}
	if tag.RowsAffected() == 0 {
		return nil
	}
	t.CreatedAt = now
	return &t
}

func (s *PostgresStore) SearchRelevant(ctx context.Context, query, guildID, authorID string, limit int) []ScoredTurn {
	if limit <= 0 {
		return nil
	}
	q := `SELECT id, text, author_id, author_name, channel_id, guild_id, kind, created_at,
	             ts_rank(text_tsv, plainto_tsquery('simple', $1)) AS score
	      FROM turns
	      WHERE guild_id = $2 AND text_tsv @@ plainto_tsquery('simple', $1)`
	args := []any{query, guildID}
	if authorID != "" {
		q += ` AND author_id = $3`
		args = append(args, authorID)
	}
	q += fmt.Sprintf(` ORDER BY score DESC, created_at DESC LIMIT %d`, limit)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		log.Printf("memory: postgres search failed: %v", err)
		return nil
	}
	defer rows.Close()

	var out []ScoredTurn
	for rows.Next() {
		var st ScoredTurn
		var kind string
		if err := rows.Scan(&st.ID, &st.Text, &st.AuthorID, &st.AuthorName, &st.ChannelID, &st.GuildID, &kind, &st.CreatedAt, &st.Score); err != nil {
			log.Printf("memory: postgres scan failed: %v", err)
			return nil
		}
		st.Kind = Kind(kind)
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		log.Printf("memory: postgres rows failed: %v", err)
		return nil
	}
	return out
}

func (s *PostgresStore) Recent(ctx context.Context, guildID, authorID string, limit int) []Turn {
	if limit <= 0 {
		return nil
	}
	q := `SELECT id, text, author_id, author_name, channel_id, guild_id, kind, created_at
	      FROM turns WHERE guild_id = $1`
	args := []any{guildID}
	if authorID != "" {
		q += ` AND author_id = $2`
		args = append(args, authorID)
	}
	q += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		log.Printf("memory: postgres recent failed: %v", err)
		return nil
	}
	defer rows.Close()

	var out []Turn
	for rows.Next() {
		var t Turn
		var kind string
		if err := rows.Scan(&t.ID, &t.Text, &t.AuthorID, &t.AuthorName, &t.ChannelID, &t.GuildID, &kind, &t.CreatedAt); err != nil {
			log.Printf("memory: postgres scan failed: %v", err)
			return nil
		}
		t.Kind = Kind(kind)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		log.Printf("memory: postgres rows failed: %v", err)
		return nil
	}
	return out
}

func (s *PostgresStore) PurgeOlderThan(ctx context.Context, days int) int {
	cutoff := time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM turns WHERE kind = $1 AND created_at <= $2`,
		string(KindUser), cutoff,
	)
	if err != nil {
		log.Printf("memory: postgres purge failed: %v", err)
		return 0
	}
	return int(tag.RowsAffected())
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
