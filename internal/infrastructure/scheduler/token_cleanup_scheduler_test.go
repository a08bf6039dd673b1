package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakePurger struct {
	mu      sync.Mutex
	cutoffs []time.Time
	removed int64
	err     error
}

func (p *fakePurger) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cutoffs = append(p.cutoffs, cutoff)
	return p.removed, p.err
}

func (p *fakePurger) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cutoffs)
}

func TestDefaultTokenCleanupConfig(t *testing.T) {
	cfg := DefaultTokenCleanupConfig()

	assert.Equal(t, time.Hour, cfg.Interval)
	assert.Equal(t, 24*time.Hour, cfg.Grace)
	assert.Equal(t, time.Minute, cfg.Timeout)
}

func TestTokenCleanupScheduler_RunOnce(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("cutoff honours grace", func(t *testing.T) {
		purger := &fakePurger{removed: 3}
		s := NewTokenCleanupScheduler(purger, TokenCleanupConfig{Interval: time.Hour, Grace: 2 * time.Hour}, zaptest.NewLogger(t))
		s.now = func() time.Time { return now }

		removed, err := s.RunOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(3), removed)
		require.Len(t, purger.cutoffs, 1)
		assert.Equal(t, now.Add(-2*time.Hour), purger.cutoffs[0])
	})

	t.Run("store failure", func(t *testing.T) {
		purger := &fakePurger{err: errors.New("db down")}
		s := NewTokenCleanupScheduler(purger, DefaultTokenCleanupConfig(), zaptest.NewLogger(t))

		removed, err := s.RunOnce(context.Background())
		assert.Error(t, err)
		assert.Zero(t, removed)
	})
}

func TestTokenCleanupScheduler_StartStop(t *testing.T) {
	purger := &fakePurger{}
	s := NewTokenCleanupScheduler(purger, TokenCleanupConfig{Interval: 10 * time.Millisecond}, zaptest.NewLogger(t))

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	// Second start is a no-op
	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool { return purger.calls() >= 2 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.IsRunning())
	require.NoError(t, s.Stop(ctx))
}

func TestTokenCleanupScheduler_Disabled(t *testing.T) {
	purger := &fakePurger{}
	s := NewTokenCleanupScheduler(purger, TokenCleanupConfig{}, nil)

	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
	assert.Zero(t, purger.calls())
}
