package watcher

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"alphawatch/internal/models"
)

func blockingListener() (ListenerFactory, *atomic.Int32) {
	cancellations := &atomic.Int32{}
	return func(ctx context.Context) error {
		<-ctx.Done()
		cancellations.Add(1)
		return ctx.Err()
	}, cancellations
}

func testKey(topic int64) models.WatchKey {
	return models.WatchKey{UserID: "u1", SourceID: 42, SubChannelID: topic}
}

func TestStartReplacesExistingHandle(t *testing.T) {
	s := NewSupervisor(zap.NewNop())
	key := testKey(7)

	run1, cancelled1 := blockingListener()
	h1 := s.Start(key, run1)

	run2, _ := blockingListener()
	h2 := s.Start(key, run2)

	// The first handle got its cancellation signal, exactly once.
	select {
	case <-h1.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("replaced handle never exited")
	}
	assert.Equal(t, int32(1), cancelled1.Load())
	assert.Equal(t, StateCancelled, h1.State())

	// Exactly one active handle remains and it is the new one.
	assert.Equal(t, 1, s.Count())
	got, ok := s.Get(key)
	require.True(t, ok)
	assert.Same(t, h2, got)

	s.StopAll(time.Second)
}

func TestStopIsIdempotent(t *testing.T) {
	s := NewSupervisor(zap.NewNop())
	key := testKey(1)

	run, _ := blockingListener()
	h := s.Start(key, run)

	s.Stop(key)
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("stopped handle never exited")
	}
	assert.Equal(t, 0, s.Count())

	// Stopping again, and stopping a key that never existed, are no-ops.
	s.Stop(key)
	s.Stop(testKey(99))
	assert.Equal(t, 0, s.Count())
}

func TestFailedListenerRemovesOwnHandle(t *testing.T) {
	s := NewSupervisor(zap.NewNop())
	key := testKey(2)

	h := s.Start(key, func(ctx context.Context) error {
		return errors.New("authorization revoked")
	})

	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("failing handle never exited")
	}
	assert.Equal(t, StateFailed, h.State())

	// No auto-retry: the handle is gone until an explicit re-watch.
	assert.Eventually(t, func() bool { return s.Count() == 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestFailedListenerDoesNotClobberReplacement(t *testing.T) {
	s := NewSupervisor(zap.NewNop())
	key := testKey(3)

	release := make(chan struct{})
	h1 := s.Start(key, func(ctx context.Context) error {
		<-release
		return errors.New("late failure")
	})

	run2, _ := blockingListener()
	h2 := s.Start(key, run2)

	close(release)
	select {
	case <-h1.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("first handle never exited")
	}

	got, ok := s.Get(key)
	require.True(t, ok, "replacement survives the old task's failure")
	assert.Same(t, h2, got)

	s.StopAll(time.Second)
}

func TestStopAllWaitsForHandles(t *testing.T) {
	s := NewSupervisor(zap.NewNop())

	for i := int64(0); i < 5; i++ {
		run, _ := blockingListener()
		s.Start(testKey(i), run)
	}
	require.Equal(t, 5, s.Count())

	done := make(chan struct{})
	go func() {
		s.StopAll(2 * time.Second)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("StopAll did not return")
	}
	assert.Equal(t, 0, s.Count())
}

func TestRestoreAllSkipsFailedBindings(t *testing.T) {
	s := NewSupervisor(zap.NewNop())

	topic2, topic3 := int64(2), int64(3)
	targets := []models.WatchTarget{
		{UserID: "u1", SourceID: 10, SourceName: "A"},
		{UserID: "u2", SourceID: 20, SourceName: "B", SubChannelID: &topic2},
		{UserID: "u3", SourceID: 30, SourceName: "C", SubChannelID: &topic3},
	}

	s.RestoreAll(targets, func(target models.WatchTarget) (ListenerFactory, error) {
		if target.UserID == "u2" {
			return nil, errors.New("session expired")
		}
		run, _ := blockingListener()
		return run, nil
	})

	// One bad target must not abort restoration of the rest.
	assert.Equal(t, 2, s.Count())
	_, ok := s.Get(targets[0].Key())
	assert.True(t, ok)
	_, ok = s.Get(targets[1].Key())
	assert.False(t, ok)
	_, ok = s.Get(targets[2].Key())
	assert.True(t, ok)

	s.StopAll(time.Second)
}
