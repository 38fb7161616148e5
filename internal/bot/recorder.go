package bot

import (
	"context"
	"sync"
	"time"

	"github.com/ent0n29/aria/internal/memory"
)

const recordTimeout = 10 * time.Second

// AssistantTurnPrefix derives the assistant turn id from the user turn id, so
// a retried exchange dedupes through the store's idempotent insert.
const AssistantTurnPrefix = "bot-"

// Recorder writes completed exchanges back to the store off the reply path.
// Within one exchange the user turn write is attempted before the assistant
// turn write; across exchanges nothing is ordered, the store's CreatedAt is
// the ordering authority.
type Recorder struct {
	store   memory.Store
	botName string
	wg      sync.WaitGroup
}

func NewRecorder(store memory.Store, botName string) *Recorder {
	if botName == "" {
		botName = "Aria"
	}
	return &Recorder{store: store, botName: botName}
}

// RecordExchange is fire-and-forget: it never blocks the caller on storage.
func (r *Recorder) RecordExchange(userTurn memory.Turn, assistantText string) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()

		userTurn.Kind = memory.KindUser
		r.store.Insert(ctx, userTurn)

		r.store.Insert(ctx, memory.Turn{
			ID:         AssistantTurnPrefix + userTurn.ID,
			Text:       assistantText,
			AuthorID:   memory.BotAuthorID,
			AuthorName: r.botName,
			ChannelID:  userTurn.ChannelID,
			GuildID:    userTurn.GuildID,
			Kind:       memory.KindAssistant,
		})
	}()
}

// Flush waits for in-flight writes; used at shutdown and in tests.
func (r *Recorder) Flush() {
	r.wg.Wait()
}
