package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper runs the retention sweep on a cron schedule, decoupled from the
// request paths. A failed pass is logged and retried on the next tick; it
// never surfaces to callers and never blocks ingestion.
type Sweeper struct {
	cron     *cron.Cron
	svc      *RetentionService
	schedule string
	timeout  time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a Sweeper that triggers svc.Sweep per the cron schedule
// expression. timeout bounds each pass so a stuck store cannot pile up
// overlapping sweeps.
func NewSweeper(svc *RetentionService, schedule string, timeout time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		cron:     cron.New(),
		svc:      svc,
		schedule: schedule,
		timeout:  timeout,
		logger:   logger,
	}
}

// Start registers the sweep job and starts the cron scheduler. An invalid
// schedule expression is a configuration error.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.run); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.logger.Info("retention sweeper started", "schedule", s.schedule)
	return nil
}

// Stop stops the cron scheduler and waits for an in-flight pass to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("retention sweeper stopped")
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.svc.Sweep(ctx); err != nil {
		s.logger.Warn("retention sweep failed", "error", err)
	}
}
