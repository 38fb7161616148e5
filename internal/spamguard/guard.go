// Package spamguard tracks per-author message bursts for auto-moderation.
package spamguard

import (
	"sync"
	"time"
)

// Guard counts messages per author inside a sliding window. State is
// in-memory only; a restart forgives everyone.
type Guard struct {
	threshold int
	window    time.Duration

	mu     sync.Mutex
	events map[string][]time.Time
}

func New(threshold int, window time.Duration) *Guard {
	if threshold <= 0 {
		threshold = 6
	}
	if window <= 0 {
		window = 10 * time.Second
	}
	return &Guard{
		threshold: threshold,
		window:    window,
		events:    make(map[string][]time.Time),
	}
}

// Record notes one message from the author and reports whether they just
// crossed the spam threshold. Crossing resets their counter so the notice
// fires once per burst.
func (g *Guard) Record(authorID string, at time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := at.Add(-g.window)
	kept := g.events[authorID][:0]
	for _, ts := range g.events[authorID] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, at)

	if len(kept) >= g.threshold {
		delete(g.events, authorID)
		return true
	}
	g.events[authorID] = kept
	return false
}
