package invites

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/canopyhq/canopy/pkg/observability"
)

// Sweeper periodically expires stale pending invitations.
type Sweeper struct {
	lifecycle *Lifecycle
	logger    *observability.Logger
	cron      *cron.Cron
	schedule  string
}

// NewSweeper creates a sweeper running on the given cron schedule, e.g.
// "@hourly" or "*/15 * * * *".
func NewSweeper(lifecycle *Lifecycle, logger *observability.Logger, schedule string) *Sweeper {
	return &Sweeper{
		lifecycle: lifecycle,
		logger:    logger,
		cron:      cron.New(),
		schedule:  schedule,
	}
}

// Start schedules the sweep and launches the cron runner. The context bounds
// each sweep, not the runner; call Stop to halt scheduling.
func (s *Sweeper) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		s.Sweep(ctx)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.WithField("schedule", s.schedule).Info("invitation expiry sweeper started")
	return nil
}

// Sweep runs one expiry pass immediately.
func (s *Sweeper) Sweep(ctx context.Context) {
	expired, err := s.lifecycle.ExpireStale(ctx, time.Now().UTC())
	if err != nil {
		s.logger.WithError(err).Error("invitation expiry sweep failed")
		return
	}
	if expired > 0 {
		s.logger.Infof("expired %d stale invitations", expired)
	}
}

// Stop halts the cron runner and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
}
