// Package batcher accumulates routed messages into fixed-size windows with
// trailing overlap and hands completed windows to a flush handler.
package batcher

import (
	"sync"

	"go.uber.org/zap"

	"alphawatch/internal/models"
)

const (
	// WindowSize is the number of messages a window holds when it flushes.
	WindowSize = 10
	// OverlapSize is how many tail messages of a flushed window are carried
	// into the next one for context.
	OverlapSize = 3
)

// FlushFunc receives a completed window. It is invoked on its own goroutine
// so a slow pipeline run never blocks message ingestion.
type FlushFunc func(key string, window []models.RawMessage)

// Batcher keeps one in-flight window per sub-channel label. Windows are
// independent across labels; there is no time-based flush, a label that
// never reaches WindowSize never flushes.
type Batcher struct {
	mu      sync.Mutex
	windows map[string][]models.RawMessage
	flush   FlushFunc
	logger  *zap.Logger
}

func New(flush FlushFunc, logger *zap.Logger) *Batcher {
	return &Batcher{
		windows: make(map[string][]models.RawMessage),
		flush:   flush,
		logger:  logger,
	}
}

// Append adds a message to the window under key. When the window reaches
// WindowSize it is handed to the flush handler and replaced by its last
// OverlapSize messages, re-marked as overlap. The swap happens under the
// lock, so no concurrent append can land between the full window being read
// and the overlap tail being installed.
func (b *Batcher) Append(key string, msg models.RawMessage) {
	b.mu.Lock()

	window := append(b.windows[key], msg)
	if len(window) < WindowSize {
		b.windows[key] = window
		b.mu.Unlock()
		return
	}

	reseeded := make([]models.RawMessage, OverlapSize)
	copy(reseeded, window[WindowSize-OverlapSize:])
	for i := range reseeded {
		reseeded[i].Overlap = true
	}
	b.windows[key] = reseeded
	b.mu.Unlock()

	b.logger.Info("Window full, handing off to pipeline",
		zap.String("key", key),
		zap.Int("size", len(window)))

	go b.flush(key, window)
}

// Snapshot returns a copy of every in-flight window, keyed by sub-channel
// label. Used by the queue inspection endpoint.
func (b *Batcher) Snapshot() map[string][]models.RawMessage {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string][]models.RawMessage, len(b.windows))
	for key, window := range b.windows {
		cp := make([]models.RawMessage, len(window))
		copy(cp, window)
		out[key] = cp
	}
	return out
}
