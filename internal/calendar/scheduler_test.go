package calendar

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staybook/backend/internal/logging"
	"github.com/staybook/backend/internal/storage/models"
)

type countingSyncer struct {
	mu      sync.Mutex
	all     int
	users   []string
	release chan struct{}
}

func (s *countingSyncer) SyncAll(ctx context.Context) []models.SyncResult {
	s.mu.Lock()
	s.all++
	s.mu.Unlock()
	return nil
}

func (s *countingSyncer) SyncUser(ctx context.Context, userID string) []models.SyncResult {
	s.mu.Lock()
	s.users = append(s.users, userID)
	s.mu.Unlock()
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
		}
	}
	return []models.SyncResult{{PropertyID: "p1"}}
}

func (s *countingSyncer) sweeps() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.all
}

func (s *countingSyncer) userCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func TestScheduler_SweepsOnStart(t *testing.T) {
	syncer := &countingSyncer{}
	s := NewScheduler(syncer, time.Hour, logging.Nop())
	require.Nil(t, s.NextRun())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool { return syncer.sweeps() == 1 }, time.Second, 10*time.Millisecond)

	next := s.NextRun()
	require.NotNil(t, next)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *next, time.Minute)
}

func TestScheduler_SweepsEveryInterval(t *testing.T) {
	syncer := &countingSyncer{}
	s := NewScheduler(syncer, time.Second, logging.Nop())
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool { return syncer.sweeps() >= 2 }, 3*time.Second, 50*time.Millisecond)
}

func TestScheduler_TriggerUserSyncIsDedupedPerUser(t *testing.T) {
	syncer := &countingSyncer{release: make(chan struct{})}
	s := NewScheduler(syncer, time.Hour, logging.Nop())

	assert.True(t, s.TriggerUserSync("u1"))
	assert.Eventually(t, func() bool { return syncer.userCalls() == 1 }, time.Second, 10*time.Millisecond)

	assert.False(t, s.TriggerUserSync("u1"), "u1 is still running")
	assert.True(t, s.TriggerUserSync("u2"))

	close(syncer.release)
	assert.Eventually(t, func() bool { return s.TriggerUserSync("u1") }, time.Second, 10*time.Millisecond)
	s.Stop()
}

func TestScheduler_StopCancelsRunningSyncs(t *testing.T) {
	syncer := &countingSyncer{release: make(chan struct{})}
	s := NewScheduler(syncer, time.Hour, logging.Nop())
	require.True(t, s.TriggerUserSync("u1"))

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}
