package history

import (
	"context"
	"testing"
	"time"

	"github.com/ent0n29/aria/internal/memory"
)

// fakeStore scripts the two retrieval paths independently so tests can drive
// the merge and fallback behavior.
type fakeStore struct {
	relevant      []memory.ScoredTurn
	recent        []memory.Turn
	searchCalls   int
	recentCalls   int
	lastRecentCap int
}

func (f *fakeStore) Insert(_ context.Context, t memory.Turn) *memory.Turn { return &t }

func (f *fakeStore) SearchRelevant(_ context.Context, _, _, _ string, limit int) []memory.ScoredTurn {
	f.searchCalls++
	if len(f.relevant) > limit {
		return f.relevant[:limit]
	}
	return f.relevant
}

func (f *fakeStore) Recent(_ context.Context, _, _ string, limit int) []memory.Turn {
	f.recentCalls++
	f.lastRecentCap = limit
	if len(f.recent) > limit {
		return f.recent[:limit]
	}
	return f.recent
}

func (f *fakeStore) PurgeOlderThan(_ context.Context, _ int) int { return 0 }
func (f *fakeStore) Close() error                                { return nil }

func scoredTurn(id, text string, score float64, at time.Time) memory.ScoredTurn {
	return memory.ScoredTurn{
		Turn:  memory.Turn{ID: id, Text: text, AuthorID: "u1", AuthorName: "alice", ChannelID: "c1", GuildID: "g1", Kind: memory.KindUser, CreatedAt: at},
		Score: score,
	}
}

func plainTurn(id, text string, at time.Time) memory.Turn {
	return memory.Turn{ID: id, Text: text, AuthorID: "u1", AuthorName: "alice", ChannelID: "c1", GuildID: "g1", Kind: memory.KindUser, CreatedAt: at}
}

func TestContextBudget(t *testing.T) {
	now := time.Now()
	store := &fakeStore{}
	for i := 0; i < 50; i++ {
		store.recent = append(store.recent, plainTurn(string(rune('a'+i)), "message number "+string(rune('a'+i)), now.Add(-time.Duration(i)*time.Minute)))
	}

	a := NewAssembler(store, false, 4, nil)
	got := a.Context(context.Background(), "anything", "g1", "")
	if len(got) > 4 {
		t.Fatalf("Context returned %d entries, want <= 4", len(got))
	}
}

func TestMergeDedupesAndKeepsScoredFirst(t *testing.T) {
	now := time.Now()
	store := &fakeStore{
		relevant: []memory.ScoredTurn{
			scoredTurn("r1", "the cat sat", 0.9, now.Add(-time.Minute)),
			scoredTurn("r2", "a cat sat down", 0.8, now.Add(-2*time.Minute)),
		},
		recent: []memory.Turn{
			plainTurn("m1", "the cat sat", now.Add(-time.Minute)), // exact duplicate of r1
			plainTurn("m2", "newest plain message", now),
			plainTurn("m3", "older plain message", now.Add(-3*time.Minute)),
		},
	}

	a := NewAssembler(store, true, 4, nil)
	got := a.Context(context.Background(), "cat sat", "g1", "")

	if len(got) != 4 {
		t.Fatalf("Context returned %d entries, want 4", len(got))
	}
	if got[0].Score == nil || got[1].Score == nil {
		t.Fatalf("scored entries not sorted first: %+v", got)
	}
	if *got[0].Score < *got[1].Score {
		t.Fatalf("scored entries not score-descending: %v then %v", *got[0].Score, *got[1].Score)
	}
	if got[2].Score != nil || got[3].Score != nil {
		t.Fatalf("unscored entries carry a score: %+v", got)
	}
	// The duplicate of r1 must be gone, so the remaining two are m2 and m3,
	// later CreatedAt first.
	if got[2].Text != "newest plain message" || got[3].Text != "older plain message" {
		t.Fatalf("unscored tail = %q, %q; want newest then older", got[2].Text, got[3].Text)
	}
	for _, e := range got {
		if e.Score != nil && e.Text == "the cat sat" {
			continue
		}
		if e.Score == nil && e.Text == "the cat sat" {
			t.Fatalf("duplicate text kept its unscored copy")
		}
	}
}

func TestRecentTopUpAsksForRemainingBudget(t *testing.T) {
	now := time.Now()
	store := &fakeStore{
		relevant: []memory.ScoredTurn{
			scoredTurn("r1", "one", 0.9, now),
			scoredTurn("r2", "two", 0.8, now),
		},
		recent: []memory.Turn{plainTurn("m1", "three", now)},
	}

	a := NewAssembler(store, true, 6, nil)
	got := a.Context(context.Background(), "q", "g1", "")

	if store.lastRecentCap != 6 {
		t.Fatalf("recency top-up asked for %d, want the full budget so dedupe can drop overlaps", store.lastRecentCap)
	}
	if len(got) != 3 {
		t.Fatalf("Context returned %d entries, want 3", len(got))
	}
}

func TestFallbackToRecencyWhenSearchEmpty(t *testing.T) {
	now := time.Now()
	store := &fakeStore{
		// Relevance search "fails" by yielding nothing, as the store does on
		// backend errors.
		recent: []memory.Turn{
			plainTurn("m1", "first", now),
			plainTurn("m2", "second", now.Add(-time.Minute)),
		},
	}

	a := NewAssembler(store, true, 6, nil)
	got := a.Context(context.Background(), "q", "g1", "")

	if len(got) != 2 {
		t.Fatalf("Context returned %d entries, want 2 from recency", len(got))
	}
	for _, e := range got {
		if e.Score != nil {
			t.Fatalf("fallback entry has a relevance score: %+v", e)
		}
	}
	if store.lastRecentCap != 6 {
		t.Fatalf("recency fallback asked for %d, want the full budget 6", store.lastRecentCap)
	}
}

func TestEmptyWhenStoreDown(t *testing.T) {
	a := NewAssembler(&fakeStore{}, true, 4, nil)
	got := a.Context(context.Background(), "q", "g1", "")
	if len(got) != 0 {
		t.Fatalf("Context = %+v, want empty when both paths are empty", got)
	}
}

func TestCacheReturnsSameWindow(t *testing.T) {
	now := time.Now()
	store := &fakeStore{
		recent: []memory.Turn{plainTurn("m1", "cached line", now)},
	}

	a := NewAssembler(store, false, 4, nil)
	first := a.Context(context.Background(), "same query", "g1", "u1")

	// Mutate the backing data; the cached window must be returned verbatim.
	store.recent = []memory.Turn{plainTurn("m2", "new line", now)}
	second := a.Context(context.Background(), "same query", "g1", "u1")

	if len(second) != 1 || second[0].Text != "cached line" {
		t.Fatalf("cache miss on identical key: %+v", second)
	}
	if len(first) != len(second) {
		t.Fatalf("cached window changed length")
	}
	if store.recentCalls != 1 {
		t.Fatalf("Recent called %d times, want 1 (second lookup served from cache)", store.recentCalls)
	}
}

func TestCacheKeyDistinguishesAuthor(t *testing.T) {
	now := time.Now()
	store := &fakeStore{
		recent: []memory.Turn{plainTurn("m1", "line", now)},
	}

	a := NewAssembler(store, false, 4, nil)
	a.Context(context.Background(), "q", "g1", "u1")
	a.Context(context.Background(), "q", "g1", "")

	if store.recentCalls != 2 {
		t.Fatalf("Recent called %d times, want 2 for distinct author keys", store.recentCalls)
	}
}
