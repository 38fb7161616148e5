package rank

import (
	"math"
	"testing"
	"time"
)

func TestScoreIdenticalText(t *testing.T) {
	got := Score("hello world", "hello world")
	if got != 1 {
		t.Fatalf("Score(identical) = %v, want 1", got)
	}
}

func TestScoreDisjointText(t *testing.T) {
	// No token overlap, equal length: jaccard 0, length similarity 1.
	got := Score("alpha beta", "gamma delta")
	if got != 0.5 {
		t.Fatalf("Score(disjoint, equal length) = %v, want 0.5", got)
	}
}

func TestScoreBothEmpty(t *testing.T) {
	// Empty union: jaccard 0, length similarity defined as 1.
	got := Score("", "")
	if got != 0.5 {
		t.Fatalf("Score(empty, empty) = %v, want 0.5", got)
	}
}

func TestScoreCaseAndWhitespaceInsensitive(t *testing.T) {
	a := Score("The  Cat   Sat", "the cat sat")
	if a != 1 {
		t.Fatalf("Score with case/whitespace noise = %v, want 1", a)
	}
}

func TestScoreJaccardComponent(t *testing.T) {
	// query {cat, sat}, candidate {the, cat, sat}: intersection 2, union 3.
	// lengths 2 vs 3: 1 - 1/3 = 2/3. mean = (2/3 + 2/3)/2 = 2/3.
	got := Score("cat sat", "the cat sat")
	want := 2.0 / 3.0
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("Score = %v, want %v", got, want)
	}
}

func TestScoreDeterministic(t *testing.T) {
	q := "what is the weather like"
	c := "the weather is nice today"
	first := Score(q, c)
	for i := 0; i < 100; i++ {
		if got := Score(q, c); got != first {
			t.Fatalf("Score not deterministic: %v then %v", first, got)
		}
	}
}

func TestRankOrdering(t *testing.T) {
	now := time.Now()
	candidates := []Candidate{
		{Text: "completely unrelated text", CreatedAt: now},
		{Text: "the cat sat", CreatedAt: now.Add(-time.Hour)},
		{Text: "a cat sat down", CreatedAt: now.Add(-2 * time.Hour)},
	}

	ranked := Rank("cat sat", candidates)
	if len(ranked) != 3 {
		t.Fatalf("Rank returned %d items, want 3", len(ranked))
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score > ranked[i-1].Score {
			t.Fatalf("Rank output not non-increasing at %d: %v > %v", i, ranked[i].Score, ranked[i-1].Score)
		}
	}
	if ranked[2].Text != "completely unrelated text" {
		t.Fatalf("unrelated text ranked %q last, got order %v", ranked[2].Text, ranked)
	}
}

func TestRankTieBreakNewestFirst(t *testing.T) {
	now := time.Now()
	older := Candidate{Text: "same words here", CreatedAt: now.Add(-time.Hour)}
	newer := Candidate{Text: "same words here", CreatedAt: now}

	ranked := Rank("same words here", []Candidate{older, newer})
	if !ranked[0].CreatedAt.Equal(now) {
		t.Fatalf("tie not broken by recency: first item CreatedAt = %v", ranked[0].CreatedAt)
	}
}
