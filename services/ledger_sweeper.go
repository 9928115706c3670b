package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/upb/beinus-auth/repositories"
	"go.uber.org/zap"
)

// DefaultSweepInterval is how often expired refresh records are purged
const DefaultSweepInterval = 10 * time.Minute

// LedgerSweeper periodically purges refresh records whose tokens have expired.
// Expired tokens are already rejected at decode; this only keeps the ledger small.
type LedgerSweeper struct {
	ledger   repositories.RefreshLedger
	logger   *zap.Logger
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time

	wg      sync.WaitGroup
	cancel  context.CancelFunc
	started bool
	mu      sync.Mutex

	runs   int64
	purged int64
}

// SweeperStats is a snapshot of sweeper activity
type SweeperStats struct {
	Started bool
	Runs    int64
	Purged  int64
}

// NewLedgerSweeper creates a sweeper. A zero interval selects DefaultSweepInterval.
func NewLedgerSweeper(ledger repositories.RefreshLedger, interval, timeout time.Duration, logger *zap.Logger) *LedgerSweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if timeout <= 0 {
		timeout = DefaultLedgerTimeout
	}

	return &LedgerSweeper{
		ledger:   ledger,
		logger:   logger,
		interval: interval,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Start launches the background loop. A stopped sweeper may be started again.
func (s *LedgerSweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("ledger sweeper already started")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)

	s.started = true
	s.logger.Info("started ledger sweeper", zap.Duration("interval", s.interval))
	return nil
}

// Stop cancels the loop and waits up to timeout for an in-flight sweep to finish
func (s *LedgerSweeper) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("ledger sweeper not started")
	}
	s.started = false
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("ledger sweeper stopped")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("ledger sweeper stop timeout after %v", timeout)
	}
}

// Sweep runs a single purge pass
func (s *LedgerSweeper) Sweep(ctx context.Context) (int64, error) {
	sweepCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.ledger.PurgeExpired(sweepCtx, s.now())

	s.mu.Lock()
	s.runs++
	if err == nil {
		s.purged += n
	}
	s.mu.Unlock()

	if err != nil {
		return 0, fmt.Errorf("failed to purge expired refresh tokens: %w", err)
	}
	return n, nil
}

// GetStats returns sweeper counters
func (s *LedgerSweeper) GetStats() SweeperStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return SweeperStats{
		Started: s.started,
		Runs:    s.runs,
		Purged:  s.purged,
	}
}

func (s *LedgerSweeper) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				s.logger.Warn("ledger sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				s.logger.Info("purged expired refresh tokens", zap.Int64("count", n))
			}
		}
	}
}
