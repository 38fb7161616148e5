// Package rank implements the lexical relevance scoring used to pick
// conversational history for a prompt.
//
// This is deliberately a bag-of-words heuristic (token-set Jaccard blended
// with a length-similarity term), not a trained embedding model. The ranking
// behavior of the bot is defined in terms of this heuristic; swapping in real
// semantic search would change which messages get recalled.
package rank

import (
	"sort"
	"strings"
	"time"
)

// Candidate is one scorable history item.
type Candidate struct {
	Text      string
	CreatedAt time.Time
}

// Scored is a candidate annotated with its relevance to the query.
type Scored struct {
	Candidate
	Score float64
}

// Score computes the relevance of candidate text to a query, in [0,1].
// It is a pure function: same inputs, same output.
func Score(query, candidate string) float64 {
	qTokens := tokenize(query)
	cTokens := tokenize(candidate)

	jaccard := jaccard(qTokens, cTokens)

	// Length similarity: two texts of wildly different token counts are
	// unlikely to be the same kind of utterance even with token overlap.
	lenSim := lengthSimilarity(len(qTokens), len(cTokens))

	return (jaccard + lenSim) / 2
}

// Rank scores every candidate against the query and returns them ordered by
// score descending, ties broken by CreatedAt descending (newer first).
func Rank(query string, candidates []Candidate) []Scored {
	out := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, Scored{Candidate: c, Score: Score(query, c.Text)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func tokenize(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		set[tok] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func lengthSimilarity(la, lb int) float64 {
	if la == 0 && lb == 0 {
		return 1
	}
	max := la
	if lb > max {
		max = lb
	}
	diff := la - lb
	if diff < 0 {
		diff = -diff
	}
	sim := 1 - float64(diff)/float64(max)
	if sim < 0 {
		return 0
	}
	return sim
}
