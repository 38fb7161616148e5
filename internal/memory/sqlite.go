package memory

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ent0n29/aria/internal/rank"
)

// sqliteCandidateWindow bounds how many recent rows the SQLite backend pulls
// in before ranking them in-process. SQLite has no usable rank statistic for
// our purposes, so relevance search is fetch-then-score.
const sqliteCandidateWindow = 256

// SQLiteStore is the plain file-backed store. Lexical relevance is computed
// in Go by the rank package over a bounded window of recent rows.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := path
	if path != ":memory:" {
		// WAL keeps concurrent pipeline reads from blocking on writes.
		dsn = path + "?_journal=WAL&_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// modernc sqlite is single-writer; one connection serializes writes
	// without SQLITE_BUSY churn across in-flight pipelines.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS turns (
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		author_id TEXT NOT NULL,
		author_name TEXT NOT NULL,
		channel_id TEXT NOT NULL,
		guild_id TEXT NOT NULL DEFAULT '',
		kind TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_turns_guild ON turns(guild_id);
	CREATE INDEX IF NOT EXISTS idx_turns_channel ON turns(channel_id);
	CREATE INDEX IF NOT EXISTS idx_turns_created ON turns(created_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("init sqlite schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SupportsLexicalSearch() bool { return false }

func (s *SQLiteStore) Insert(ctx context.Context, t Turn) *Turn {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (id, text, author_id, author_name, channel_id, guild_id, kind, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		t.ID, t.Text, t.AuthorID, t.AuthorName, t.ChannelID, t.GuildID, string(t.Kind),
		now.UnixNano(), now.UnixNano(),
	)
	if err != nil {
		log.Printf("memory: sqlite insert failed for %s: %v", t.ID, err)
		return nil
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		// Duplicate id: silent no-op per the idempotent-insert contract.
		return nil
	}
	t.CreatedAt = now
	return &t
}

func (s *SQLiteStore) SearchRelevant(ctx context.Context, query, guildID, authorID string, limit int) []ScoredTurn {
	if limit <= 0 {
		return nil
	}
	candidates := s.queryTurns(ctx, guildID, authorID, sqliteCandidateWindow)
	if len(candidates) == 0 {
		return nil
	}

	scored := make([]ScoredTurn, 0, len(candidates))
	for _, t := range candidates {
		scored = append(scored, ScoredTurn{Turn: t, Score: rank.Score(query, t.Text)})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].CreatedAt.After(scored[j].CreatedAt)
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

func (s *SQLiteStore) Recent(ctx context.Context, guildID, authorID string, limit int) []Turn {
	if limit <= 0 {
		return nil
	}
	return s.queryTurns(ctx, guildID, authorID, limit)
}

func (s *SQLiteStore) queryTurns(ctx context.Context, guildID, authorID string, limit int) []Turn {
	q := `SELECT id, text, author_id, author_name, channel_id, guild_id, kind, created_at
	      FROM turns WHERE guild_id = ?`
	args := []any{guildID}
	if authorID != "" {
		q += ` AND author_id = ?`
		args = append(args, authorID)
	}
	q += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		log.Printf("memory: sqlite query failed: %v", err)
		return nil
	}
	defer rows.Close()

	var out []Turn
	for rows.Next() {
		var t Turn
		var kind string
		var createdNs int64
		if err := rows.Scan(&t.ID, &t.Text, &t.AuthorID, &t.AuthorName, &t.ChannelID, &t.GuildID, &kind, &createdNs); err != nil {
			log.Printf("memory: sqlite scan failed: %v", err)
			return nil
		}
		t.Kind = Kind(kind)
		t.CreatedAt = time.Unix(0, createdNs).UTC()
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		log.Printf("memory: sqlite rows failed: %v", err)
		return nil
	}
	return out
}

func (s *SQLiteStore) PurgeOlderThan(ctx context.Context, days int) int {
	cutoff := time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM turns WHERE kind = ? AND created_at <= ?`,
		string(KindUser), cutoff.UnixNano(),
	)
	if err != nil {
		log.Printf("memory: sqlite purge failed: %v", err)
		return 0
	}
	n, err := res.RowsAffected()
	if err != nil {
		log.Printf("memory: sqlite purge rows affected: %v", err)
		return 0
	}
	return int(n)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
