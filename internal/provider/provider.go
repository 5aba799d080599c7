// Package provider adapts the Telegram MTProto client into the narrow event
// surface the watcher core consumes. Provider-specific payloads are mapped
// into Event at this boundary; nothing downstream branches on Telegram types.
package provider

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotAuthorized  = errors.New("account session is not authorized")
	ErrConnectTimeout = errors.New("timed out connecting to provider")
	ErrGroupNotFound  = errors.New("group or channel not found")
	ErrTopicNotFound  = errors.New("forum topic not found")
)

// Event is the fixed internal shape of one inbound provider message.
type Event struct {
	SourceID        int64
	MessageID       int
	// AnchorID is the id of the message this one replies to; for forum topic
	// posts it attributes the message to its topic. Zero when not a reply.
	AnchorID        int64
	ForumTopic      bool
	SenderFirstName string
	SenderLastName  string
	SenderUsername  string
	Text            string
	Timestamp       time.Time
}

// EventHandler consumes adapted events for one subscribed source.
type EventHandler func(ctx context.Context, event Event)

// Client is the per-user provider connection the watcher core drives.
type Client interface {
	// Connect establishes the connection and verifies authorization, bounded
	// by the adapter's connect timeout.
	Connect(ctx context.Context) error
	// Subscribe registers a handler for events from one source. Must be
	// called before Connect delivers events for that source.
	Subscribe(sourceID int64, handler EventHandler)
	// Wait blocks until the context is cancelled or the underlying
	// connection fails.
	Wait(ctx context.Context) error
	// Disconnect tears the connection down.
	Disconnect() error
}

// Group is a provider-level chat entity visible to a user.
type Group struct {
	ID         int64   `json:"id"`
	AccessHash int64   `json:"-"`
	Title      string  `json:"title"`
	Username   *string `json:"username,omitempty"`
	Type       string  `json:"type"` // group, supergroup or channel
	IsForum    bool    `json:"is_forum"`
	Topics     []Topic `json:"topics,omitempty"`
}

// Topic is a forum topic inside a supergroup.
type Topic struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}
