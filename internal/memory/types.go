// Package memory persists the bot's conversational log and serves the
// retrieval queries the context assembler is built on.
package memory

import (
	"context"
	"time"
)

// Kind distinguishes who authored a stored turn.
type Kind string

const (
	KindUser      Kind = "user"
	KindAssistant Kind = "assistant"
)

// BotAuthorID is the reserved author id used for turns the bot itself wrote.
const BotAuthorID = "aria"

// Turn is one stored conversational unit. Turns are immutable after insert;
// CreatedAt is assigned by the store, never by the caller.
type Turn struct {
	ID         string
	Text       string
	AuthorID   string
	AuthorName string
	ChannelID  string
	GuildID    string // empty for direct-message contexts
	Kind       Kind
	CreatedAt  time.Time
}

// ScoredTurn is a turn annotated with an opaque relevance score. Callers may
// only assume "higher is more relevant"; the numeric range depends on the
// backend (Jaccard blend for SQLite, ts_rank for Postgres).
type ScoredTurn struct {
	Turn
	Score float64
}

// Store is the conversational log. Every method degrades instead of failing:
// reads return empty results and writes return nil on backend errors, so the
// reply pipeline stays available when storage is not. Errors are logged here,
// not propagated.
type Store interface {
	// Insert persists a turn, assigning CreatedAt. Returns nil when the id
	// already exists (duplicate suppression) or the write failed; callers
	// treat nil as "no durable record", never as fatal.
	Insert(ctx context.Context, t Turn) *Turn

	// SearchRelevant returns at most limit turns from the guild partition
	// (restricted to authorID when non-empty) ordered by relevance
	// descending, ties broken by CreatedAt descending.
	SearchRelevant(ctx context.Context, query, guildID, authorID string, limit int) []ScoredTurn

	// Recent returns the limit most recent turns for the partition, strictly
	// CreatedAt descending.
	Recent(ctx context.Context, guildID, authorID string, limit int) []Turn

	// PurgeOlderThan deletes user turns older than the given age in days and
	// returns how many were removed. Assistant turns are exempt regardless of
	// age: there are few of them and they carry conversational continuity.
	PurgeOlderThan(ctx context.Context, days int) int

	Close() error
}

// LexicalSearcher is an optional capability: stores whose backend ranks text
// natively (full-text index) report true and skip the in-process ranker.
type LexicalSearcher interface {
	SupportsLexicalSearch() bool
}
