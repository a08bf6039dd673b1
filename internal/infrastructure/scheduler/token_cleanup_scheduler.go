// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ExpiredTokenPurger removes refresh tokens that expired before cutoff
type ExpiredTokenPurger interface {
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// TokenCleanupConfig configures the refresh token purge
type TokenCleanupConfig struct {
	// Interval between purges; zero or negative disables the scheduler
	Interval time.Duration
	// Grace keeps recently expired tokens so reuse can still be detected
	Grace time.Duration
	// Timeout bounds a single purge
	Timeout time.Duration
}

// DefaultTokenCleanupConfig returns hourly purges with a one day grace period
func DefaultTokenCleanupConfig() TokenCleanupConfig {
	return TokenCleanupConfig{
		Interval: time.Hour,
		Grace:    24 * time.Hour,
		Timeout:  time.Minute,
	}
}

// TokenCleanupScheduler periodically deletes expired refresh tokens
type TokenCleanupScheduler struct {
	purger ExpiredTokenPurger
	config TokenCleanupConfig
	logger *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewTokenCleanupScheduler creates a scheduler over purger
func NewTokenCleanupScheduler(purger ExpiredTokenPurger, config TokenCleanupConfig, logger *zap.Logger) *TokenCleanupScheduler {
	if config.Timeout <= 0 {
		config.Timeout = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenCleanupScheduler{
		purger: purger,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// Start launches the purge loop. It is a no-op when already running or disabled.
func (s *TokenCleanupScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if s.config.Interval <= 0 {
		s.mu.Unlock()
		s.logger.Info("Refresh token cleanup is disabled")
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("Refresh token cleanup started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("grace", s.config.Grace),
	)
	return nil
}

// Stop cancels the loop and waits for an in-flight purge, bounded by ctx
func (s *TokenCleanupScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Refresh token cleanup stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Refresh token cleanup stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the loop is active
func (s *TokenCleanupScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// RunOnce performs a single purge and returns the number of tokens removed
func (s *TokenCleanupScheduler) RunOnce(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	cutoff := s.now().Add(-s.config.Grace)
	removed, err := s.purger.DeleteExpired(ctx, cutoff)
	if err != nil {
		s.logger.Error("Refresh token cleanup failed", zap.Error(err))
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("Expired refresh tokens purged",
			zap.Int64("removed", removed),
			zap.Time("cutoff", cutoff),
		)
	}
	return removed, nil
}

func (s *TokenCleanupScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Refresh token cleanup loop stopping")
			return
		case <-ticker.C:
			_, _ = s.RunOnce(ctx)
		}
	}
}
