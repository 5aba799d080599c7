package watcher

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"alphawatch/internal/models"
	"alphawatch/internal/provider"
)

// ClientFactory builds a provider client for a user's stored session.
type ClientFactory interface {
	ClientFor(ctx context.Context, userID string) (provider.Client, error)
}

// NewListener binds a watch target to a listening task: connect the user's
// provider client, subscribe the router to the target's source, and hold the
// subscription until cancellation or provider failure.
func NewListener(
	target models.WatchTarget,
	clients ClientFactory,
	registry AnchorRegistry,
	sink Sink,
	logger *zap.Logger,
) ListenerFactory {
	return func(ctx context.Context) error {
		client, err := clients.ClientFor(ctx, target.UserID)
		if err != nil {
			return fmt.Errorf("build provider client: %w", err)
		}

		router := NewRouter(target, registry, sink, logger.With(
			zap.String("key", target.Key().String())))
		client.Subscribe(target.SourceID, router.HandleEvent)

		if err := client.Connect(ctx); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		defer func() {
			if err := client.Disconnect(); err != nil {
				logger.Warn("Provider disconnect failed", zap.Error(err))
			}
		}()

		return client.Wait(ctx)
	}
}
