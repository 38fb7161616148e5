package commands

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ent0n29/aria/internal/gateway"
)

// BirthdayBook keeps member birthdays in memory and announces them once a
// day in the home channel.
type BirthdayBook struct {
	mu      sync.Mutex
	entries map[string]birthday // author id -> birthday
	lastDay string              // MM-DD already announced
}

type birthday struct {
	name string
	date string // MM-DD
}

func NewBirthdayBook() *BirthdayBook {
	return &BirthdayBook{entries: make(map[string]birthday)}
}

// Set records a birthday given as MM-DD.
func (b *BirthdayBook) Set(authorID, authorName, date string) error {
	if _, err := time.Parse("01-02", date); err != nil {
		return fmt.Errorf("parse birthday %q: %w", date, err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[authorID] = birthday{name: authorName, date: date}
	return nil
}

func (b *BirthdayBook) Forget(authorID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, authorID)
}

// Celebrants returns the display names with a birthday on the given day,
// once per day: a second call for the same day returns nothing.
func (b *BirthdayBook) Celebrants(now time.Time) []string {
	day := now.Format("01-02")

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lastDay == day {
		return nil
	}
	b.lastDay = day

	var names []string
	for _, entry := range b.entries {
		if entry.date == day {
			names = append(names, entry.name)
		}
	}
	sort.Strings(names)
	return names
}

// Run sweeps hourly and posts a greeting into the channel on birthdays.
func (b *BirthdayBook) Run(ctx context.Context, sender gateway.Sender, channelID string) {
	if channelID == "" {
		return
	}
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			names := b.Celebrants(now)
			if len(names) == 0 {
				continue
			}
			msg := "Happy birthday, " + strings.Join(names, ", ") + "! 🎂"
			if err := sender.Send(ctx, channelID, "", msg); err != nil {
				log.Printf("commands: birthday greeting failed: %v", err)
			}
		}
	}
}
