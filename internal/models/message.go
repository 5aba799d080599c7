package models

// RawMessage is a single chat message after routing: provider payloads are
// adapted into this fixed shape at the watcher boundary, so nothing
// downstream depends on provider-specific attributes.
//
// Overlap marks a message carried forward from the tail of the previous
// window for context. It is never set on a freshly observed message.
type RawMessage struct {
	SourceName     string `json:"group_name"`
	SubChannelName string `json:"topic_name"`
	SenderName     string `json:"sender_name"`
	Text           string `json:"message_text"`
	UserID         string `json:"user_id"`
	Overlap        bool   `json:"overlap"`
}
