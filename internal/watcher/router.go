package watcher

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"alphawatch/internal/models"
	"alphawatch/internal/provider"
)

// AnchorRegistry is the registry lookup the router performs per event. The
// lookup is live, not cached: watch topics added after the watcher started
// are honored without a restart.
type AnchorRegistry interface {
	ListAnchorIDs(ctx context.Context, userID string) ([]int64, error)
	GetByAnchor(ctx context.Context, userID string, anchorID int64) (*models.WatchTarget, error)
}

// Sink receives routed messages keyed by sub-channel label.
type Sink interface {
	Append(key string, msg models.RawMessage)
}

// Router filters one watcher's provider events down to the configured
// sub-channel, resolves sender and sub-channel display names, and forwards
// the result to the batcher. Events that match no watched anchor are dropped
// silently; that is expected high-volume filtering, not an error.
type Router struct {
	target   models.WatchTarget
	registry AnchorRegistry
	sink     Sink
	logger   *zap.Logger
}

func NewRouter(target models.WatchTarget, registry AnchorRegistry, sink Sink, logger *zap.Logger) *Router {
	return &Router{target: target, registry: registry, sink: sink, logger: logger}
}

// HandleEvent routes one inbound event.
func (r *Router) HandleEvent(ctx context.Context, event provider.Event) {
	entry := &r.target

	if r.target.SubChannelID != nil {
		// Topic-scoped watch: only replies anchored to a watched topic qualify.
		if !event.ForumTopic || event.AnchorID == 0 {
			return
		}

		anchors, err := r.registry.ListAnchorIDs(ctx, r.target.UserID)
		if err != nil {
			r.logger.Error("Failed to look up watched anchors", zap.Error(err))
			return
		}
		if !containsID(anchors, event.AnchorID) {
			return
		}

		entry, err = r.registry.GetByAnchor(ctx, r.target.UserID, event.AnchorID)
		if err != nil {
			r.logger.Error("Failed to resolve watch entry for anchor",
				zap.Int64("anchor_id", event.AnchorID), zap.Error(err))
			return
		}
		if entry == nil {
			return
		}
	}

	key := entry.WindowKey()
	r.sink.Append(key, models.RawMessage{
		SourceName:     entry.SourceName,
		SubChannelName: key,
		SenderName:     senderName(event),
		Text:           event.Text,
		UserID:         r.target.UserID,
	})
}

// senderName resolves a display name: "first last" trimmed, then username,
// then "Unknown".
func senderName(event provider.Event) string {
	name := strings.TrimSpace(event.SenderFirstName + " " + event.SenderLastName)
	if name != "" {
		return name
	}
	if event.SenderUsername != "" {
		return event.SenderUsername
	}
	return "Unknown"
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
