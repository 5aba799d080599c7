// Package watcher owns the set of long-lived listening tasks, one per
// (user, group, topic) key, and routes their provider events into the
// window batcher.
package watcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"alphawatch/internal/models"
)

// State of a watcher task.
type State int32

const (
	StateStarting State = iota
	StateRunning
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ListenerFactory is one listening task: it blocks until its context is
// cancelled or the provider fails unrecoverably.
type ListenerFactory func(ctx context.Context) error

// Handle is the supervisor's grip on one running task.
type Handle struct {
	Key    models.WatchKey
	cancel context.CancelFunc
	state  atomic.Int32
	done   chan struct{}
}

func (h *Handle) State() State { return State(h.state.Load()) }

// Done closes when the task has fully exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

func (h *Handle) setState(s State) { h.state.Store(int32(s)) }

// Supervisor keeps at most one active handle per key. All access to the
// handle set goes through Start/Stop/RestoreAll/StopAll.
type Supervisor struct {
	logger    *zap.Logger
	onFailure func(key models.WatchKey, err error)

	mu      sync.Mutex
	handles map[models.WatchKey]*Handle
}

func NewSupervisor(logger *zap.Logger) *Supervisor {
	return &Supervisor{
		logger:  logger,
		handles: make(map[models.WatchKey]*Handle),
	}
}

// OnFailure registers a callback invoked when a task dies with an
// unrecoverable error. Set it before the first Start.
func (s *Supervisor) OnFailure(fn func(key models.WatchKey, err error)) {
	s.onFailure = fn
}

// Start launches a listener under key. An existing handle for the key is
// cancelled and removed before the replacement is installed, so no two
// handles ever share a key (last writer wins).
func (s *Supervisor) Start(key models.WatchKey, run ListenerFactory) *Handle {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{Key: key, cancel: cancel, done: make(chan struct{})}
	h.setState(StateStarting)

	s.mu.Lock()
	if old, ok := s.handles[key]; ok {
		s.logger.Info("Replacing existing watcher", zap.String("key", key.String()))
		old.cancel()
		old.setState(StateCancelled)
	}
	s.handles[key] = h
	s.mu.Unlock()

	s.logger.Info("Watcher started", zap.String("key", key.String()))

	go func() {
		defer close(h.done)
		h.setState(StateRunning)

		err := run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			// Unrecoverable provider error: the task removes its own handle.
			// No auto-retry; a new watch request or a restart reconnects.
			h.setState(StateFailed)
			s.logger.Error("Watcher failed",
				zap.String("key", key.String()),
				zap.Error(err))
			s.removeIf(key, h)
			if s.onFailure != nil {
				s.onFailure(key, err)
			}
			return
		}
		h.setState(StateCancelled)
	}()

	return h
}

// Stop cancels and removes the handle for key. Stopping an absent key is a
// no-op.
func (s *Supervisor) Stop(key models.WatchKey) {
	s.mu.Lock()
	h, ok := s.handles[key]
	if ok {
		delete(s.handles, key)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	h.cancel()
	h.setState(StateCancelled)
	s.logger.Info("Watcher stopped", zap.String("key", key.String()))
}

// RestoreAll seeds watchers for persisted targets at process start. A target
// whose listener cannot be built is logged and skipped; it never aborts
// restoration of the rest.
func (s *Supervisor) RestoreAll(targets []models.WatchTarget, bind func(models.WatchTarget) (ListenerFactory, error)) {
	s.logger.Info("Restoring watchers", zap.Int("count", len(targets)))
	for _, target := range targets {
		run, err := bind(target)
		if err != nil {
			s.logger.Error("Failed to restore watcher",
				zap.String("key", target.Key().String()),
				zap.Error(err))
			continue
		}
		s.Start(target.Key(), run)
	}
}

// StopAll cancels every handle and waits, bounded, for the tasks to exit.
func (s *Supervisor) StopAll(timeout time.Duration) {
	s.mu.Lock()
	handles := make([]*Handle, 0, len(s.handles))
	for _, h := range s.handles {
		handles = append(handles, h)
	}
	s.handles = make(map[models.WatchKey]*Handle)
	s.mu.Unlock()

	for _, h := range handles {
		h.cancel()
		h.setState(StateCancelled)
	}

	deadline := time.After(timeout)
	for _, h := range handles {
		select {
		case <-h.done:
		case <-deadline:
			s.logger.Warn("Timed out waiting for watchers to stop")
			return
		}
	}
	s.logger.Info("All watchers stopped", zap.Int("count", len(handles)))
}

// Get returns the active handle for key, if any.
func (s *Supervisor) Get(key models.WatchKey) (*Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.handles[key]
	return h, ok
}

// Count returns the number of registered handles.
func (s *Supervisor) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// removeIf removes key only if it still maps to h, so a task that failed
// after being replaced cannot clobber its successor.
func (s *Supervisor) removeIf(key models.WatchKey, h *Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.handles[key]; ok && current == h {
		delete(s.handles, key)
	}
}
