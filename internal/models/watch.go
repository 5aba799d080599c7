package models

import (
	"fmt"
	"time"
)

// WatchKey uniquely identifies one active watcher: a user listening to one
// group, optionally narrowed to a single forum topic. SubChannelID zero means
// the whole group is watched.
type WatchKey struct {
	UserID       string
	SourceID     int64
	SubChannelID int64
}

func (k WatchKey) String() string {
	return fmt.Sprintf("%s:%d:%d", k.UserID, k.SourceID, k.SubChannelID)
}

// WatchTarget is a persisted watch configuration entry.
type WatchTarget struct {
	ID             int64      `db:"id" json:"id"`
	UserID         string     `db:"user_id" json:"user_id"`
	SourceID       int64      `db:"source_id" json:"group_id"`
	SourceName     string     `db:"source_name" json:"group_name"`
	SourceUsername *string    `db:"source_username" json:"username,omitempty"`
	IsChannel      bool       `db:"is_channel" json:"is_channel"`
	IsForum        bool       `db:"is_forum" json:"is_forum"`
	SubChannelID   *int64     `db:"sub_channel_id" json:"topic_id,omitempty"`
	SubChannelName *string    `db:"sub_channel_name" json:"topic_name,omitempty"`
	WebhookURL     *string    `db:"webhook_url" json:"webhook_url,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// Key returns the watcher identity for this target.
func (t WatchTarget) Key() WatchKey {
	k := WatchKey{UserID: t.UserID, SourceID: t.SourceID}
	if t.SubChannelID != nil {
		k.SubChannelID = *t.SubChannelID
	}
	return k
}

// WindowKey is the label under which this target's messages are batched.
// Topic-scoped targets batch per topic name, whole-group targets per group
// name. Two groups sharing a topic label therefore share a window.
func (t WatchTarget) WindowKey() string {
	if t.SubChannelName != nil && *t.SubChannelName != "" {
		return *t.SubChannelName
	}
	return t.SourceName
}
