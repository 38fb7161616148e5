// Package gateway is the boundary to the chat platform. The bot core only
// sees Stimulus values and the Send/Fetch operations; the wire protocol lives
// behind the relay client.
package gateway

import "context"

// Stimulus is one incoming chat event that may trigger a reply. Delivery is
// at-least-once; turn-id idempotence in storage absorbs duplicates.
type Stimulus struct {
	MessageID          string `json:"message_id"`
	Text               string `json:"text"`
	AuthorID           string `json:"author_id"`
	AuthorName         string `json:"author_name"`
	ChannelID          string `json:"channel_id"`
	GuildID            string `json:"guild_id,omitempty"` // empty for DMs
	MentionsBot        bool   `json:"mentions_bot"`
	RepliedToMessageID string `json:"replied_to_message_id,omitempty"`
}

// Sender delivers a reply into a channel, optionally threaded onto a message.
type Sender interface {
	Send(ctx context.Context, channelID, replyToMessageID, text string) error
}

// Fetcher retrieves the text of a referenced message. Best effort: callers
// treat failure as "no snippet available".
type Fetcher interface {
	FetchMessage(ctx context.Context, channelID, messageID string) (string, error)
}

// Source produces stimuli until closed.
type Source interface {
	Events() <-chan Stimulus
	Sender
	Fetcher
	Close() error
}
