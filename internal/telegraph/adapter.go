// Package telegraph connects parley to chat platforms (Discord, Slack, a local
// console).
package telegraph

import (
	"context"
	"time"
)

// Adapter is the interface that platform-specific implementations must satisfy.
// Each adapter handles connection management and message sending/receiving
// for a single chat platform.
type Adapter interface {
	// Connect establishes a connection to the chat platform.
	Connect(ctx context.Context) error

	// Listen returns a channel of inbound messages from the platform.
	// The channel is closed when the adapter is closed. Listen must only be
	// called after Connect.
	Listen(ctx context.Context) (<-chan InboundMessage, error)

	// Send delivers an outbound message to the platform.
	Send(ctx context.Context, msg OutboundMessage) error

	// Close gracefully shuts down the adapter connection.
	Close() error
}

// InboundMessage represents a message received from the chat platform.
type InboundMessage struct {
	Platform  string    // e.g. "slack", "discord", "console"
	ChannelID string    // platform-specific channel identifier
	MessageID string    // platform-specific message identifier, if any
	UserID    string    // platform-specific user identifier
	UserName  string    // human-readable username
	Text      string    // raw message text
	IsSelf    bool      // set by adapters that can tell the bot's own messages apart
	IsBot     bool      // author is a bot account
	Timestamp time.Time // when the message was sent
}

// OutboundMessage represents a message to be sent to the chat platform.
type OutboundMessage struct {
	ChannelID string // target channel
	Text      string // message text (platform-native formatting)
}

// BotUserIDer is an optional interface that adapters can implement to
// expose the bot's own user ID. This enables self-message filtering.
type BotUserIDer interface {
	BotUserID() string
}

// BotNamer is an optional interface that adapters can implement to expose
// the bot's display name as reported by the platform.
type BotNamer interface {
	BotName() string
}

// Typer is an optional interface for platforms that can show a typing
// indicator while a reply is being produced.
type Typer interface {
	Typing(ctx context.Context, channelID string) error
}

// MessageLimiter is an optional interface for platforms that cap the length
// of a single message.
type MessageLimiter interface {
	MessageLimit() int
}
