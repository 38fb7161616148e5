// Package history assembles the bounded context window fed into each model
// call: a budgeted merge of relevance-ranked turns and a recency fallback,
// fronted by a short-lived response cache.
package history

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/ent0n29/aria/internal/memory"
	"github.com/ent0n29/aria/internal/observability"
)

// DefaultMaxMessages is the context window budget when none is configured.
const DefaultMaxMessages = 20

// Entry is one line of assembled context. Score is set only for entries that
// came through relevance search.
type Entry struct {
	Text         string
	SpeakerLabel string
	Kind         memory.Kind
	Score        *float64
	CreatedAt    time.Time
}

// Assembler owns the ephemeral context cache. One instance is constructed at
// startup and shared by every in-flight pipeline.
//
// The cache never evicts. Known limitation: growth is bounded only by
// process lifetime.
type Assembler struct {
	store       memory.Store
	semantic    bool
	maxMessages int
	metrics     *observability.Metrics

	mu    sync.Mutex
	cache map[string][]Entry
}

func NewAssembler(store memory.Store, semanticEnabled bool, maxMessages int, metrics *observability.Metrics) *Assembler {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	return &Assembler{
		store:       store,
		semantic:    semanticEnabled,
		maxMessages: maxMessages,
		metrics:     metrics,
		cache:       make(map[string][]Entry),
	}
}

// Context returns at most maxMessages entries for the partition, scored
// entries first. It never fails: storage trouble degrades to recency-only
// results and finally to an empty window.
func (a *Assembler) Context(ctx context.Context, query, guildID, authorID string) []Entry {
	key := cacheKey(guildID, authorID, query)

	a.mu.Lock()
	cached, ok := a.cache[key]
	a.mu.Unlock()
	if ok {
		a.countCache("hit")
		return cached
	}
	a.countCache("miss")

	entries := a.assemble(ctx, query, guildID, authorID)

	a.mu.Lock()
	a.cache[key] = entries
	a.mu.Unlock()
	return entries
}

func (a *Assembler) assemble(ctx context.Context, query, guildID, authorID string) []Entry {
	budget := a.maxMessages
	half := budget / 2

	var entries []Entry
	if a.semantic {
		for _, st := range a.store.SearchRelevant(ctx, query, guildID, authorID, half) {
			score := st.Score
			entries = append(entries, Entry{
				Text:         st.Text,
				SpeakerLabel: st.AuthorName,
				Kind:         st.Kind,
				Score:        &score,
				CreatedAt:    st.CreatedAt,
			})
		}
	}

	if len(entries) < budget {
		seen := make(map[string]struct{}, len(entries))
		for _, e := range entries {
			seen[e.Text] = struct{}{}
		}
		for _, t := range a.store.Recent(ctx, guildID, authorID, budget) {
			// Exact-string dedupe only: a relevance hit wins over the same
			// text arriving through recency.
			if _, dup := seen[t.Text]; dup {
				continue
			}
			seen[t.Text] = struct{}{}
			entries = append(entries, Entry{
				Text:         t.Text,
				SpeakerLabel: t.AuthorName,
				Kind:         t.Kind,
				CreatedAt:    t.CreatedAt,
			})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		si, sj := entries[i].Score, entries[j].Score
		switch {
		case si != nil && sj == nil:
			return true
		case si == nil && sj != nil:
			return false
		case si != nil && sj != nil:
			return *si > *sj
		default:
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
	})

	if len(entries) > budget {
		entries = entries[:budget]
	}
	return entries
}

func (a *Assembler) countCache(result string) {
	if a.metrics != nil {
		a.metrics.ContextCache.WithLabelValues(result).Inc()
	}
}

func cacheKey(guildID, authorID, query string) string {
	author := authorID
	if author == "" {
		author = "all"
	}
	digest := sha256.Sum256([]byte(query))
	return guildID + "|" + author + "|" + hex.EncodeToString(digest[:])
}
