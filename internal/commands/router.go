// Package commands handles the bot's one-shot prefix commands: web search,
// game-catalog lookup, and birthday bookkeeping, plus the spam notice. Each
// handler is thin request/response glue; only GenerateReply touches the
// conversational core.
package commands

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ent0n29/aria/internal/gateway"
	"github.com/ent0n29/aria/internal/observability"
	"github.com/ent0n29/aria/internal/spamguard"
)

// Replier is the only coupling between auxiliary features and the core.
type Replier interface {
	GenerateReply(ctx context.Context, text, channelID, guildID, messageID, authorID, authorName string) string
}

type Router struct {
	sender    gateway.Sender
	replier   Replier
	search    *SearchRelay
	catalog   *CatalogClient
	birthdays *BirthdayBook
	guard     *spamguard.Guard
	metrics   *observability.Metrics
}

func NewRouter(sender gateway.Sender, replier Replier, search *SearchRelay, catalog *CatalogClient, birthdays *BirthdayBook, guard *spamguard.Guard, metrics *observability.Metrics) *Router {
	return &Router{
		sender:    sender,
		replier:   replier,
		search:    search,
		catalog:   catalog,
		birthdays: birthdays,
		guard:     guard,
		metrics:   metrics,
	}
}

// Handle consumes command and moderation traffic. It returns true when the
// stimulus was handled here and must not reach the conversational pipeline.
func (r *Router) Handle(ctx context.Context, s gateway.Stimulus) bool {
	if r.guard != nil && r.guard.Record(s.AuthorID, time.Now()) {
		r.count("spam_notice")
		r.send(ctx, s, fmt.Sprintf("%s, slow down. That looked like spam.", s.AuthorName))
		return true
	}

	text := strings.TrimSpace(s.Text)
	switch {
	case strings.HasPrefix(text, "!ask "):
		r.count("ask")
		r.send(ctx, s, r.handleAsk(ctx, s, strings.TrimPrefix(text, "!ask ")))
		return true
	case strings.HasPrefix(text, "!search "):
		r.count("search")
		r.send(ctx, s, r.handleSearch(ctx, strings.TrimPrefix(text, "!search ")))
		return true
	case strings.HasPrefix(text, "!game "):
		r.count("game")
		r.send(ctx, s, r.handleGame(ctx, strings.TrimPrefix(text, "!game ")))
		return true
	case strings.HasPrefix(text, "!birthday"):
		r.count("birthday")
		r.send(ctx, s, r.handleBirthday(s, strings.TrimSpace(strings.TrimPrefix(text, "!birthday"))))
		return true
	}
	return false
}

// handleAsk forces a generated reply regardless of the orchestrator's
// respond/no-respond policy.
func (r *Router) handleAsk(ctx context.Context, s gateway.Stimulus, question string) string {
	if r.replier == nil {
		return "I cannot answer questions right now."
	}
	return r.replier.GenerateReply(ctx, strings.TrimSpace(question), s.ChannelID, s.GuildID, s.MessageID, s.AuthorID, s.AuthorName)
}

func (r *Router) handleSearch(ctx context.Context, terms string) string {
	if r.search == nil {
		return "Search is not set up."
	}
	results, err := r.search.Query(ctx, strings.TrimSpace(terms))
	if err != nil || len(results) == 0 {
		if err != nil {
			log.Printf("commands: search failed: %v", err)
		}
		return "I could not find anything for that."
	}
	return strings.Join(results, "\n")
}

func (r *Router) handleGame(ctx context.Context, title string) string {
	if r.catalog == nil {
		return "The game catalog is not set up."
	}
	game, err := r.catalog.Lookup(ctx, strings.TrimSpace(title))
	if err != nil {
		log.Printf("commands: catalog lookup failed: %v", err)
		return "The catalog is not answering right now."
	}
	if game == nil {
		return "No game in the catalog matches that."
	}
	return fmt.Sprintf("%s — %s\n%s", game.Title, game.Description, game.URL)
}

func (r *Router) handleBirthday(s gateway.Stimulus, args string) string {
	if r.birthdays == nil {
		return "Birthdays are not set up."
	}
	fields := strings.Fields(args)
	if len(fields) == 2 && fields[0] == "set" {
		if err := r.birthdays.Set(s.AuthorID, s.AuthorName, fields[1]); err != nil {
			return "That is not a date I understand. Use MM-DD."
		}
		return fmt.Sprintf("Noted, %s. I will remember %s.", s.AuthorName, fields[1])
	}
	if len(fields) == 1 && fields[0] == "forget" {
		r.birthdays.Forget(s.AuthorID)
		return "Forgotten."
	}
	return "Usage: !birthday set MM-DD, or !birthday forget"
}

func (r *Router) send(ctx context.Context, s gateway.Stimulus, text string) {
	if err := r.sender.Send(ctx, s.ChannelID, s.MessageID, text); err != nil {
		log.Printf("commands: sending to %s failed: %v", s.ChannelID, err)
	}
}

func (r *Router) count(command string) {
	if r.metrics != nil {
		r.metrics.CommandsHandled.WithLabelValues(command).Inc()
	}
}
