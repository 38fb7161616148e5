// Package bot runs the conversational pipeline: decide whether a stimulus
// deserves a reply, assemble context, call the completion service, clean the
// output, and record the exchange.
package bot

import (
	"context"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/ent0n29/aria/internal/gateway"
	"github.com/ent0n29/aria/internal/history"
	"github.com/ent0n29/aria/internal/llm"
	"github.com/ent0n29/aria/internal/memory"
	"github.com/ent0n29/aria/internal/observability"
)

const (
	// ApologyReply is sent when the completion service fails or times out.
	// It is still recorded as the assistant turn.
	ApologyReply = "I am experiencing technical difficulties. How annoying."

	// FillerReply substitutes an empty or degenerate model output.
	FillerReply = "Huh. I have nothing to say to that."

	minReplyLen       = 3
	completionTimeout = 60 * time.Second

	defaultSystemPrompt = "You are Aria, a dry-witted Discord companion. Reply briefly, stay in character, and never prefix your reply with your own name."
)

// Options configures the orchestrator. One instance is constructed at startup
// and shared by all pipelines; the cooldown timestamp and the assembler cache
// are its only shared mutable state.
type Options struct {
	BotName        string
	SystemPrompt   string
	HomeChannelID  string
	ResponseChance float64
	Cooldown       time.Duration
	MaxTokens      int
	Temperature    float64
	Debug          bool

	// RandFloat overrides the probability source in tests.
	RandFloat func() float64
}

type Orchestrator struct {
	assembler *history.Assembler
	client    llm.Client
	recorder  *Recorder
	fetcher   gateway.Fetcher
	metrics   *observability.Metrics
	opts      Options

	// The chance-reply cooldown is global across the process, not
	// per-channel.
	mu               sync.Mutex
	lastChancedReply time.Time
}

func NewOrchestrator(assembler *history.Assembler, client llm.Client, recorder *Recorder, fetcher gateway.Fetcher, metrics *observability.Metrics, opts Options) *Orchestrator {
	if opts.BotName == "" {
		opts.BotName = "Aria"
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = defaultSystemPrompt
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 256
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.9
	}
	if opts.RandFloat == nil {
		opts.RandFloat = rand.Float64
	}
	return &Orchestrator{
		assembler: assembler,
		client:    client,
		recorder:  recorder,
		fetcher:   fetcher,
		metrics:   metrics,
		opts:      opts,
	}
}

// HandleStimulus runs one full pipeline for an incoming message and delivers
// the reply through sender. Concurrent stimuli each run independently.
func (o *Orchestrator) HandleStimulus(ctx context.Context, s gateway.Stimulus, sender gateway.Sender) {
	if s.MessageID == "" || strings.TrimSpace(s.Text) == "" {
		// Malformed stimulus: nobody is waiting on a reply.
		return
	}
	if !o.shouldRespond(s) {
		o.countStimulus("skipped")
		return
	}
	o.countStimulus("responding")

	reply := o.respond(ctx, s)
	if err := sender.Send(ctx, s.ChannelID, s.MessageID, reply); err != nil {
		log.Printf("bot: sending reply to %s failed: %v", s.ChannelID, err)
	}
}

// GenerateReply is the library entry point used by auxiliary features. It
// runs the Composing→Recording pipeline without the respond/no-respond gate.
func (o *Orchestrator) GenerateReply(ctx context.Context, text, channelID, guildID, messageID, authorID, authorName string) string {
	return o.respond(ctx, gateway.Stimulus{
		MessageID:  messageID,
		Text:       text,
		AuthorID:   authorID,
		AuthorName: authorName,
		ChannelID:  channelID,
		GuildID:    guildID,
	})
}

func (o *Orchestrator) shouldRespond(s gateway.Stimulus) bool {
	if s.MentionsBot {
		return true
	}
	if o.opts.HomeChannelID == "" || s.ChannelID != o.opts.HomeChannelID {
		return false
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if time.Since(o.lastChancedReply) < o.opts.Cooldown {
		return false
	}
	if o.opts.RandFloat() >= o.opts.ResponseChance {
		return false
	}
	o.lastChancedReply = time.Now()
	return true
}

func (o *Orchestrator) respond(ctx context.Context, s gateway.Stimulus) string {
	query := o.compose(ctx, s)

	entries := o.assembler.Context(ctx, query, s.GuildID, "")
	if o.opts.Debug {
		log.Printf("bot: assembled %d context entries for message %s", len(entries), s.MessageID)
	}

	raw, outcome := o.generate(ctx, query, entries)
	reply := Clean(raw, o.opts.BotName)
	if reply == "" {
		reply = FillerReply
		if outcome == "generated" {
			outcome = "filler"
		}
	}
	o.countReply(outcome)

	o.recorder.RecordExchange(memory.Turn{
		ID:         s.MessageID,
		Text:       s.Text,
		AuthorID:   s.AuthorID,
		AuthorName: s.AuthorName,
		ChannelID:  s.ChannelID,
		GuildID:    s.GuildID,
		Kind:       memory.KindUser,
	}, reply)

	return reply
}

// compose builds the query text, prefixed with a quoted snippet of the
// replied-to message when one can be fetched. Fetch failure just drops the
// prefix.
func (o *Orchestrator) compose(ctx context.Context, s gateway.Stimulus) string {
	if s.RepliedToMessageID == "" || o.fetcher == nil {
		return s.Text
	}
	quoted, err := o.fetcher.FetchMessage(ctx, s.ChannelID, s.RepliedToMessageID)
	if err != nil || strings.TrimSpace(quoted) == "" {
		if err != nil && o.opts.Debug {
			log.Printf("bot: fetching replied-to message %s failed: %v", s.RepliedToMessageID, err)
		}
		return s.Text
	}
	return "> " + quoted + "\n" + s.Text
}

func (o *Orchestrator) generate(ctx context.Context, query string, entries []history.Entry) (string, string) {
	callCtx, cancel := context.WithTimeout(ctx, completionTimeout)
	defer cancel()

	start := time.Now()
	raw, err := o.client.Complete(callCtx, llm.Request{
		System:      o.opts.SystemPrompt,
		History:     FormatHistory(entries),
		UserText:    query,
		MaxTokens:   o.opts.MaxTokens,
		Temperature: o.opts.Temperature,
	})
	if o.metrics != nil {
		o.metrics.ObserveCompletionLatency(time.Since(start))
	}
	if err != nil {
		log.Printf("bot: completion call failed: %v", err)
		return ApologyReply, "apology"
	}
	return raw, "generated"
}

// FormatHistory renders assembled context entries as "Speaker: text" lines,
// oldest material last so the freshest context sits next to the user text.
func FormatHistory(entries []history.Entry) string {
	if len(entries) == 0 {
		return ""
	}
	var b strings.Builder
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		label := e.SpeakerLabel
		if label == "" {
			label = string(e.Kind)
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(e.Text)
		if i > 0 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (o *Orchestrator) countStimulus(decision string) {
	if o.metrics != nil {
		o.metrics.Stimuli.WithLabelValues(decision).Inc()
	}
}

func (o *Orchestrator) countReply(outcome string) {
	if o.metrics != nil {
		o.metrics.Replies.WithLabelValues(outcome).Inc()
	}
}
