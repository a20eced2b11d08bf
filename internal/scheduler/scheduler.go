package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mcoot/gamehost/internal/metrics"
)

// jobTimeout bounds a single purge run
const jobTimeout = time.Minute

// Purger deletes expired session tokens
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Scheduler runs periodic maintenance jobs
type Scheduler struct {
	cron   *cron.Cron
	purger Purger
	logger *slog.Logger
}

// New creates a scheduler. Nothing runs until Start.
func New(purger Purger, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger))),
		purger: purger,
		logger: logger,
	}
}

// Start registers the token purge under spec and starts the cron loop
func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if _, err := s.PurgeNow(ctx); err != nil {
			s.logger.Error("token purge failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid purge schedule %q: %w", spec, err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "purge_schedule", spec)
	return nil
}

// Stop stops the cron loop and waits for running jobs
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// PurgeNow runs the token purge immediately
func (s *Scheduler) PurgeNow(ctx context.Context) (int64, error) {
	n, err := s.purger.PurgeExpired(ctx)
	if err != nil {
		return 0, err
	}
	metrics.TokensPurged(n)
	if n > 0 {
		s.logger.Info("expired tokens purged", "count", n)
	}
	return n, nil
}
